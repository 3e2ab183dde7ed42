// Package text provides text processing utilities for subtitle translation.
package text

import (
	"regexp"
	"strings"
)

// Pre-compiled regex patterns (created once at package init for performance)
var (
	whitespaceRegex   = regexp.MustCompile(`\s+`)
	dotsRegex         = regexp.MustCompile(`\.{4,}`)
	exclamationsRegex = regexp.MustCompile(`!{2,}`)
	questionsRegex    = regexp.MustCompile(`\?{2,}`)
	commasRegex       = regexp.MustCompile(`,{2,}`)
)

// Preprocess cleans up subtitle text before it is sent for translation.
// It normalizes whitespace and simplifies runs of repeated punctuation;
// ellipses ("...") are kept since they carry timing in speech.
func Preprocess(text string) string {
	if text == "" {
		return ""
	}

	text = whitespaceRegex.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	text = dotsRegex.ReplaceAllString(text, "...")
	text = exclamationsRegex.ReplaceAllString(text, "!")
	text = questionsRegex.ReplaceAllString(text, "?")
	text = commasRegex.ReplaceAllString(text, ",")

	return text
}
