package text

import (
	"regexp"
	"strings"
)

var (
	// labels some models prepend to the answer, e.g. "Translation:" or "翻译："
	answerLabelRegex = regexp.MustCompile(`(?i)^\s*(translation|translated text|shortened|result|output|译文|翻译|结果)\s*[:：]\s*`)
	quotePairs       = [][2]string{{`"`, `"`}, {"'", "'"}, {"“", "”"}, {"「", "」"}, {"『", "』"}, {"《", "》"}}
)

// CleanModelOutput strips the wrapping a chat model tends to add around a
// one-line answer: leading labels, surrounding quotes and extra whitespace.
func CleanModelOutput(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	text = answerLabelRegex.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	for _, q := range quotePairs {
		if len(text) >= len(q[0])+len(q[1]) && strings.HasPrefix(text, q[0]) && strings.HasSuffix(text, q[1]) {
			text = strings.TrimSpace(text[len(q[0]) : len(text)-len(q[1])])
			break
		}
	}

	return whitespaceRegex.ReplaceAllString(text, " ")
}
