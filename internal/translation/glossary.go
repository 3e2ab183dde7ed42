package translation

import (
	"strings"

	"github.com/samber/lo"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/text"
)

// Term pins the translation of one source phrase.
type Term struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Glossary is an ordered list of terms injected into prompts.
type Glossary []Term

// ParseGlossary reads "source=target" pairs separated by newlines or semicolons.
// Entries without '=' or with an empty side are ignored; later duplicates win.
func ParseGlossary(s string) Glossary {
	var terms Glossary
	for _, f := range text.SplitLines(s) {
		src, dst, ok := strings.Cut(f, "=")
		src, dst = strings.TrimSpace(src), strings.TrimSpace(dst)
		if !ok || src == "" || dst == "" {
			continue
		}
		terms = lo.Reject(terms, func(t Term, _ int) bool { return t.Source == src })
		terms = append(terms, Term{Source: src, Target: dst})
	}
	return terms
}

// Relevant returns the terms whose source appears in text.
func (g Glossary) Relevant(text string) Glossary {
	return lo.Filter(g, func(t Term, _ int) bool { return strings.Contains(text, t.Source) })
}

// String renders the glossary as prompt lines.
func (g Glossary) String() string {
	lines := lo.Map(g, func(t Term, _ int) string { return "- " + t.Source + " => " + t.Target })
	return strings.Join(lines, "\n")
}
