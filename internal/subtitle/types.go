// Package subtitle provides types and utilities for handling annotated subtitles.
package subtitle

import (
	"errors"
	"strings"
	"time"
)

// ErrNoSegments is returned when neither parsing strategy yields a record.
var ErrNoSegments = errors.New("no valid subtitle content")

// Default annotations for records whose timestamp line carries none.
const (
	DefaultSpeaker = "SPEAKER_00"
	DefaultEmotion = "neutral"
)

// Record is one parsed subtitle entry. Start and End are normalized to the
// HH:MM:SS,mmm form.
type Record struct {
	Index   int
	Start   string
	End     string
	Speaker string
	Emotion string
	Text    string
}

// StartMillis returns the start timestamp in milliseconds.
func (r Record) StartMillis() (int64, error) {
	return TimestampToMillis(r.Start)
}

// EndMillis returns the end timestamp in milliseconds.
func (r Record) EndMillis() (int64, error) {
	return TimestampToMillis(r.End)
}

// DurationMillis returns End - Start in milliseconds.
func (r Record) DurationMillis() (int64, error) {
	start, err := r.StartMillis()
	if err != nil {
		return 0, err
	}
	end, err := r.EndMillis()
	if err != nil {
		return 0, err
	}
	return end - start, nil
}

// IsEmpty returns true if the record has no text.
func (r Record) IsEmpty() bool {
	return strings.TrimSpace(r.Text) == ""
}

// List is a slice of records with utility methods.
type List []Record

// Texts returns all record texts as a slice.
func (l List) Texts() []string {
	texts := make([]string, len(l))
	for i, r := range l {
		texts[i] = r.Text
	}
	return texts
}

// TotalMillis returns the largest end timestamp in the list.
func (l List) TotalMillis() int64 {
	var total int64
	for _, r := range l {
		if end, err := r.EndMillis(); err == nil && end > total {
			total = end
		}
	}
	return total
}

// TotalDuration returns the end of the last-ending record.
func (l List) TotalDuration() time.Duration {
	return time.Duration(l.TotalMillis()) * time.Millisecond
}

// Speakers returns the distinct speaker labels in first-seen order.
func (l List) Speakers() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range l {
		if _, ok := seen[r.Speaker]; ok {
			continue
		}
		seen[r.Speaker] = struct{}{}
		out = append(out, r.Speaker)
	}
	return out
}
