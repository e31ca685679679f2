package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAddress(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "formatted north american number", input: "+1 (555) 123-4567", expected: "15551234567"},
		{name: "already normalized", input: "15551234567", expected: "15551234567"},
		{name: "dots and spaces", input: "555.123.4567", expected: "5551234567"},
		{name: "empty", input: "", expected: ""},
		{name: "no digits at all", input: "abc", expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, NormalizeAddress(tc.input))
		})
	}
}

func TestNormalizeAddress_Idempotent(t *testing.T) {
	once := NormalizeAddress("+1 (555) 123-4567")
	assert.Equal(t, once, NormalizeAddress(once))
}

func TestThreadIDForAddress(t *testing.T) {
	// Formatting variants of the same number must land in one thread.
	assert.Equal(t, ThreadIDForAddress("+1 (555) 123-4567"), ThreadIDForAddress("15551234567"))
	assert.Equal(t, "thread_15551234567", ThreadIDForAddress("+1 (555) 123-4567"))
}

func TestThreadIDForAddress_GroupUsesFirstParticipant(t *testing.T) {
	assert.Equal(t, "thread_15551234567", ThreadIDForAddress("+1 (555) 123-4567,+1 (555) 765-4321"))
}
