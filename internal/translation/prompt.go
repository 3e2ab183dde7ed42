package translation

import (
	"fmt"
	"strings"
)

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	translateSystem = "You are a professional subtitle translator. Keep translations natural and easy to speak aloud."
	shortenSystem   = "You are a subtitle editor who condenses translations for dubbing."
	adjustSystem    = "You are a subtitle editor. You must respect the requested character count exactly."
)

func glossaryBlock(g Glossary, source string) string {
	g = g.Relevant(source)
	if len(g) == 0 {
		return ""
	}
	return "\n\nAlways use these term translations:\n" + g.String()
}

func translateMessages(text, language string, g Glossary) []message {
	user := fmt.Sprintf("Translate the following text into %s. Output only the translation.%s\n\n%s",
		language, glossaryBlock(g, text), text)
	return []message{{Role: "system", Content: translateSystem}, {Role: "user", Content: user}}
}

func shortenMessages(req ShortenRequest, currentChars, targetChars int) []message {
	var b strings.Builder
	if req.Original != "" {
		fmt.Fprintf(&b, "Original text: %q\n", req.Original)
	}
	fmt.Fprintf(&b, "Current %s translation: %q\n", req.Language, req.Current)
	fmt.Fprintf(&b, "It has %d characters. Rewrite it in %s with fewer than %d characters, keeping the meaning and a conversational tone.",
		currentChars, req.Language, targetChars)
	b.WriteString(glossaryBlock(req.Glossary, req.Original+req.Current))
	b.WriteString("\nOutput only the new translation.")
	return []message{{Role: "system", Content: shortenSystem}, {Role: "user", Content: b.String()}}
}

func adjustMessages(req AdjustRequest, currentChars, targetChars int, tolerance int) []message {
	verb := "Shorten"
	if req.Mode == ModeLengthen {
		verb = "Lengthen"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s the following %s text from %d to about %d characters (between %d and %d). Keep the meaning and spoken style.\n\n%s",
		verb, req.Language, currentChars, targetChars, targetChars-tolerance, targetChars+tolerance, req.Current)
	if req.Original != "" {
		fmt.Fprintf(&b, "\n\nSource reference: %s", req.Original)
	}
	b.WriteString(glossaryBlock(req.Glossary, req.Original+req.Current))
	b.WriteString("\n\nOutput only the rewritten text.")
	return []message{{Role: "system", Content: adjustSystem}, {Role: "user", Content: b.String()}}
}
