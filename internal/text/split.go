package text

import "strings"

// SplitByDelimiter splits text by a delimiter and returns cleaned, non-empty parts.
// Glossaries and speaker lists arrive as delimiter separated strings.
func SplitByDelimiter(text, delimiter string) []string {
	parts := strings.Split(text, delimiter)
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return cleaned
}

// SplitLines splits on newlines and semicolons (ASCII and full width).
func SplitLines(text string) []string {
	text = strings.NewReplacer("\r\n", "\n", ";", "\n", "；", "\n").Replace(text)
	return SplitByDelimiter(text, "\n")
}
