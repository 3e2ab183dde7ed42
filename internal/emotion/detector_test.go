package emotion

import (
	"reflect"
	"testing"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"happy keyword", "我今天很开心", "happy"},
		{"empty", "", "auto"},
		{"no keyword", "明天上午九点开会", "auto"},
		{"english keyword, mixed case", "I am SO Happy", "happy"},
		{"english keyword with punctuation", "Wow! That was fast", "surprised"},
		{"english keyword inside a word", "The ambassador arrived", "auto"},
		{"english keyword as prefix", "a glade in the forest", "auto"},
		{"highest score wins", "我很害怕，非常害怕，但也有点开心", "fearful"},
		{"tie goes to first table entry", "难过又生气", "sad"},
		{"tie between happy and calm", "开心而平静", "happy"},
		{"repeated keyword counts", "哈哈哈哈", "happy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.text); got != tt.want {
				t.Errorf("Detect(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Happy", "happy"},
		{" calm ", "calm"},
		{"neutral", "auto"},
		{"auto", "auto"},
		{"", "auto"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolve(t *testing.T) {
	if got := Resolve("angry", "我今天很开心"); got != "angry" {
		t.Errorf("Resolve(explicit) = %q, want angry", got)
	}
	if got := Resolve("neutral", "我今天很开心"); got != "happy" {
		t.Errorf("Resolve(neutral) = %q, want happy", got)
	}
	if got := Resolve("auto", "nothing here"); got != "auto" {
		t.Errorf("Resolve(auto) = %q, want auto", got)
	}
}

func TestSupported(t *testing.T) {
	want := []string{"happy", "sad", "angry", "fearful", "disgusted", "surprised", "calm"}
	if got := Supported(); !reflect.DeepEqual(got, want) {
		t.Errorf("Supported() = %v, want %v", got, want)
	}
}
