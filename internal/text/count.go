package text

import (
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// CharCount returns the number of characters in s after NFC normalization,
// so a decomposed "é" counts once, like the remote model counts it.
func CharCount(s string) int {
	return utf8.RuneCountInString(norm.NFC.String(s))
}

// Preview returns at most n characters of s, with "..." appended when cut.
func Preview(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
