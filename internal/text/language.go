package text

import "strings"

// SupportedLanguages lists the language names accepted by the TTS
// language_boost parameter and by the translation prompts, in display order.
var SupportedLanguages = []string{
	"Chinese",
	"Chinese,Yue",
	"English",
	"Arabic",
	"Russian",
	"Spanish",
	"French",
	"Portuguese",
	"German",
	"Turkish",
	"Dutch",
	"Ukrainian",
	"Vietnamese",
	"Indonesian",
	"Japanese",
	"Italian",
	"Korean",
	"Thai",
	"Polish",
	"Romanian",
	"Greek",
	"Czech",
	"Finnish",
	"Hindi",
}

// LanguageNames maps ISO 639-1 language codes to the names above.
var LanguageNames = map[string]string{
	"zh":  "Chinese",
	"yue": "Chinese,Yue",
	"en":  "English",
	"ar":  "Arabic",
	"ru":  "Russian",
	"es":  "Spanish",
	"fr":  "French",
	"pt":  "Portuguese",
	"de":  "German",
	"tr":  "Turkish",
	"nl":  "Dutch",
	"uk":  "Ukrainian",
	"vi":  "Vietnamese",
	"id":  "Indonesian",
	"ja":  "Japanese",
	"it":  "Italian",
	"ko":  "Korean",
	"th":  "Thai",
	"pl":  "Polish",
	"ro":  "Romanian",
	"el":  "Greek",
	"cs":  "Czech",
	"fi":  "Finnish",
	"hi":  "Hindi",
}

// GetLanguageName returns the language name for a code or a name in any case.
// If the value is not known, it returns the value itself.
func GetLanguageName(code string) string {
	trimmed := strings.TrimSpace(code)
	if name, ok := LanguageNames[strings.ToLower(trimmed)]; ok {
		return name
	}
	for _, name := range SupportedLanguages {
		if strings.EqualFold(name, trimmed) {
			return name
		}
	}
	return trimmed
}

// IsSupportedLanguage reports whether a code or name resolves to a supported language.
func IsSupportedLanguage(code string) bool {
	name := GetLanguageName(code)
	for _, l := range SupportedLanguages {
		if l == name {
			return true
		}
	}
	return false
}
