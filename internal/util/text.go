package util

import (
	"strings"
)

// TruncateRunes bounds s to at most n runes. Byte-based slicing would split
// multi-byte Cyrillic and Kazakh characters.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// NormalizePollOptions trims each option, drops empties, and de-duplicates by
// trimmed text while preserving first-seen order.
func NormalizePollOptions(options []string) []string {
	seen := make(map[string]bool, len(options))
	var out []string
	for _, opt := range options {
		trimmed := strings.TrimSpace(opt)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		out = append(out, trimmed)
	}
	return out
}
