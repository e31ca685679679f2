package app

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentBody_SingleSegment(t *testing.T) {
	assert.Equal(t, []string{"hello"}, segmentBody("hello"))

	exact := strings.Repeat("a", singleSegmentLimit)
	assert.Equal(t, []string{exact}, segmentBody(exact))
}

func TestSegmentBody_Multipart(t *testing.T) {
	body := strings.Repeat("a", singleSegmentLimit+1)
	parts := segmentBody(body)
	require.Len(t, parts, 2)
	assert.Equal(t, multipartSegmentLimit, len([]rune(parts[0])))
	assert.Equal(t, body, strings.Join(parts, ""))
}

func TestSegmentBody_CountsRunesNotBytes(t *testing.T) {
	// 160 multi-byte runes still fit in a single segment.
	body := strings.Repeat("é", singleSegmentLimit)
	assert.Equal(t, []string{body}, segmentBody(body))
}

func TestSegmentBody_LongBodyReassembles(t *testing.T) {
	body := strings.Repeat("x", multipartSegmentLimit*3+7)
	parts := segmentBody(body)
	require.Len(t, parts, 4)
	assert.Equal(t, body, strings.Join(parts, ""))
	for _, part := range parts[:3] {
		assert.Equal(t, multipartSegmentLimit, len([]rune(part)))
	}
}
