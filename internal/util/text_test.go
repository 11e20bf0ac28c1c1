package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateRunes(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		limit    int
		expected string
	}{
		{"shorter than limit", "hello", 10, "hello"},
		{"exactly at limit", "hello", 5, "hello"},
		{"over limit", "hello world", 5, "hello"},
		{"zero limit", "hello", 0, ""},
		{"negative limit", "hello", -1, ""},
		{"empty input", "", 5, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, TruncateRunes(tc.input, tc.limit))
		})
	}
}

func TestTruncateRunesMultibyte(t *testing.T) {
	// Kazakh and Russian text is multi-byte in UTF-8; truncation must count
	// characters, not bytes
	input := strings.Repeat("ә", 100)
	out := TruncateRunes(input, 10)
	assert.Equal(t, 10, len([]rune(out)))
	assert.Equal(t, strings.Repeat("ә", 10), out)
}

func TestNormalizePollOptions(t *testing.T) {
	testCases := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "trims whitespace",
			input:    []string{"  Plov  ", "Lagman"},
			expected: []string{"Plov", "Lagman"},
		},
		{
			name:     "drops empties",
			input:    []string{"A", "", "   ", "B"},
			expected: []string{"A", "B"},
		},
		{
			name:     "dedups by trimmed text preserving order",
			input:    []string{"A", "A", "  B  ", ""},
			expected: []string{"A", "B"},
		},
		{
			name:     "dedup compares trimmed values",
			input:    []string{"Yes", "  Yes", "No"},
			expected: []string{"Yes", "No"},
		},
		{
			name:     "all invalid",
			input:    []string{"", "  "},
			expected: nil,
		},
		{
			name:     "nil input",
			input:    nil,
			expected: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, NormalizePollOptions(tc.input))
		})
	}
}
