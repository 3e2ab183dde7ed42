package text

import (
	"reflect"
	"testing"
)

func TestCharCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"hello", 5},
		{"我今天很开心", 6},
		{"e\u0301", 1}, // decomposed é
	}
	for _, tt := range tests {
		if got := CharCount(tt.in); got != tt.want {
			t.Errorf("CharCount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("你好世界", 2); got != "你好..." {
		t.Errorf("Preview() = %q, want %q", got, "你好...")
	}
	if got := Preview("abc", 5); got != "abc" {
		t.Errorf("Preview() = %q, want %q", got, "abc")
	}
}

func TestCleanModelOutput(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Hello world  ", "Hello world"},
		{`"Hello world"`, "Hello world"},
		{"Translation: Hello", "Hello"},
		{"翻译：你好", "你好"},
		{"“你好”", "你好"},
		{"line one\nline two", "line one line two"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanModelOutput(tt.in); got != tt.want {
			t.Errorf("CleanModelOutput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPreprocess(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  hello   world ", "hello world"},
		{"wait...", "wait..."},
		{"what??!!", "what?!"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Preprocess(tt.in); got != tt.want {
			t.Errorf("Preprocess(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSplitLines(t *testing.T) {
	got := SplitLines("a=b; c=d\n\n e=f；g=h")
	want := []string{"a=b", "c=d", "e=f", "g=h"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitLines() = %v, want %v", got, want)
	}
}

func TestGetLanguageName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"en", "English"},
		{"english", "English"},
		{"Chinese,Yue", "Chinese,Yue"},
		{"klingon", "klingon"},
	}
	for _, tt := range tests {
		if got := GetLanguageName(tt.in); got != tt.want {
			t.Errorf("GetLanguageName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if IsSupportedLanguage("klingon") {
		t.Error("IsSupportedLanguage(klingon) = true, want false")
	}
	if !IsSupportedLanguage("ja") {
		t.Error("IsSupportedLanguage(ja) = false, want true")
	}
}
