// Package emotion classifies subtitle text into the emotion labels the TTS
// voice settings accept.
package emotion

import (
	"strings"
	"unicode"
)

// Auto means "let the voice decide"; it is never sent to the TTS service.
const Auto = "auto"

// keywordTable is scored in order; on equal scores the earlier entry wins.
// Keywords match anywhere in the text, Words only as whole words.
var keywordTable = []struct {
	Emotion  string
	Keywords []string
	Words    []string
}{
	{"happy", []string{"高兴", "开心", "快乐", "兴奋", "愉快", "笑", "哈哈", "嘿嘿", "欢喜", "喜悦"}, []string{"happy", "glad", "haha"}},
	{"sad", []string{"难过", "悲伤", "哭", "眼泪", "伤心", "痛苦", "失望", "沮丧", "忧伤", "哀伤"}, []string{"sad", "tears"}},
	{"angry", []string{"生气", "愤怒", "气愤", "恼火", "暴怒", "发火", "愤恨", "恼怒", "怒气", "火大"}, []string{"angry", "furious"}},
	{"fearful", []string{"害怕", "恐惧", "担心", "紧张", "焦虑", "忧虑", "不安", "惊慌", "恐慌", "畏惧"}, []string{"afraid", "scared"}},
	{"disgusted", []string{"恶心", "厌恶", "讨厌", "反感", "嫌弃", "厌烦", "憎恶", "排斥", "反胃"}, []string{"disgusting", "gross"}},
	{"surprised", []string{"惊讶", "震惊", "意外", "吃惊", "惊奇", "惊愕", "惊诧", "诧异", "出乎意料", "想不到"}, []string{"surprised", "wow"}},
	{"calm", []string{"平静", "冷静", "淡定", "沉着", "安静", "宁静", "祥和", "安宁", "镇静", "平和"}, []string{"calm", "peaceful"}},
}

// Supported lists the labels Detect can return besides Auto, in tie-break order.
func Supported() []string {
	out := make([]string, len(keywordTable))
	for i, e := range keywordTable {
		out[i] = e.Emotion
	}
	return out
}

// IsSupported reports whether label is one of the concrete emotions.
func IsSupported(label string) bool {
	label = strings.ToLower(strings.TrimSpace(label))
	for _, e := range keywordTable {
		if e.Emotion == label {
			return true
		}
	}
	return false
}

// Normalize lower-cases a label and maps anything unsupported to Auto.
func Normalize(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	if IsSupported(label) {
		return label
	}
	return Auto
}

// Detect scores text against the keyword table and returns the emotion with
// the strictly highest keyword count, or Auto when nothing matches.
func Detect(text string) string {
	if text == "" {
		return Auto
	}
	text = strings.ToLower(text)
	words := make(map[string]int)
	for _, w := range strings.FieldsFunc(text, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) }) {
		words[w]++
	}

	best, bestScore := Auto, 0
	for _, e := range keywordTable {
		score := 0
		for _, kw := range e.Keywords {
			score += strings.Count(text, kw)
		}
		for _, w := range e.Words {
			score += words[w]
		}
		if score > bestScore {
			best, bestScore = e.Emotion, score
		}
	}
	return best
}

// Resolve returns label when it is a concrete emotion, otherwise the emotion
// detected from text.
func Resolve(label, text string) string {
	if IsSupported(label) {
		return Normalize(label)
	}
	return Detect(text)
}
