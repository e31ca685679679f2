package domain

import "strings"

// NormalizeAddress strips every non-digit character from a phone
// number, producing the canonical key threads are bucketed by. It is
// idempotent: normalizing an already-normalized address is a no-op.
func NormalizeAddress(address string) string {
	var b strings.Builder
	b.Grow(len(address))
	for _, r := range address {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ThreadIDForAddress derives the thread id for a peer address. Group
// MMS addresses arrive comma-joined; by convention only the first
// participant determines the thread.
func ThreadIDForAddress(address string) string {
	if idx := strings.IndexByte(address, ','); idx >= 0 {
		address = address[:idx]
	}
	return "thread_" + NormalizeAddress(address)
}
