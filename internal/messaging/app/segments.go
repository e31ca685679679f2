package app

// Segment limits under the legacy GSM-7 assumption: 160 characters for
// a single SMS, 153 per part once the message needs the concatenation
// header.
const (
	singleSegmentLimit    = 160
	multipartSegmentLimit = 153
)

// segmentBody splits a message body into transmit parts. Bodies within
// the single-segment limit ship as one part; longer bodies are chunked
// at the multipart limit. Counting is rune-based, matching the 7-bit
// character assumption rather than byte length.
func segmentBody(body string) []string {
	runes := []rune(body)
	if len(runes) <= singleSegmentLimit {
		return []string{body}
	}

	var parts []string
	for start := 0; start < len(runes); start += multipartSegmentLimit {
		end := start + multipartSegmentLimit
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}
