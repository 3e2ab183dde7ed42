package models

import (
	"bytes"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/config"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/emotion"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/media"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/subtitle"
)

var (
	ErrSegmentNotFound   = errors.New("segment not found")
	ErrInvalidTimestamps = errors.New("start time must be before end time")
	ErrInvalidSpeed      = errors.New("speed must be between 1.0 and 2.0")
	ErrTooManySegments   = errors.New("too many subtitle segments")
)

// Segment is one timed subtitle line and the audio generated for it.
type Segment struct {
	ID              string          `json:"id"`
	Index           int             `json:"index"`
	StartTime       string          `json:"start_time"`
	EndTime         string          `json:"end_time"`
	Speaker         string          `json:"speaker"`
	Text            string          `json:"text"`
	TranslatedText  string          `json:"translated_text,omitempty"`
	Emotion         string          `json:"emotion"`
	Speed           float64         `json:"speed"`
	Audio           media.AudioSlot `json:"audio"`
	AudioDurationMs int64           `json:"audio_duration"`
	TraceID         string          `json:"trace_id,omitempty"`
	AudioURL        string          `json:"audio_url,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewSegment creates a segment with a fresh id. An emotion outside the
// supported set is replaced by the one detected from text.
func NewSegment(start, end, speaker, text, emo string) *Segment {
	if strings.TrimSpace(speaker) == "" {
		speaker = config.DefaultSpeaker
	}
	now := time.Now()
	return &Segment{
		ID:        uuid.New().String(),
		StartTime: subtitle.NormalizeTimestamp(start),
		EndTime:   subtitle.NormalizeTimestamp(end),
		Speaker:   speaker,
		Text:      text,
		Emotion:   emotion.Resolve(emo, text),
		Speed:     config.MinSpeed,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// StartMs returns the start timestamp in milliseconds.
func (s *Segment) StartMs() (int64, error) {
	return subtitle.TimestampToMillis(s.StartTime)
}

// EndMs returns the end timestamp in milliseconds.
func (s *Segment) EndMs() (int64, error) {
	return subtitle.TimestampToMillis(s.EndTime)
}

// TargetMs is the window the segment's audio must fit. Unparsable
// timestamps give 0.
func (s *Segment) TargetMs() int64 {
	start, err := s.StartMs()
	if err != nil {
		return 0
	}
	end, err := s.EndMs()
	if err != nil {
		return 0
	}
	return end - start
}

// SpokenText is the text synthesis should use.
func (s *Segment) SpokenText() string {
	if t := strings.TrimSpace(s.TranslatedText); t != "" {
		return t
	}
	return s.Text
}

// HasAudio reports whether real audio or a silence marker is attached.
func (s *Segment) HasAudio() bool {
	return !s.Audio.IsNone()
}

// ClearAudio drops generated audio, e.g. after the text or timing changed.
func (s *Segment) ClearAudio() {
	s.Audio = media.AudioSlot{}
	s.AudioDurationMs = 0
	s.TraceID = ""
	s.AudioURL = ""
}

// Record converts the segment for export.
func (s *Segment) Record() subtitle.Record {
	return subtitle.Record{
		Index:   s.Index,
		Start:   s.StartTime,
		End:     s.EndTime,
		Speaker: s.Speaker,
		Emotion: s.Emotion,
		Text:    s.SpokenText(),
	}
}

// Clone returns a deep copy, including the audio bytes.
func (s *Segment) Clone() *Segment {
	out := &Segment{}
	if err := copier.Copy(out, s); err != nil {
		c := *s
		out = &c
	}
	out.Audio.Data = bytes.Clone(s.Audio.Data)
	return out
}

// SegmentUpdate carries the editable fields of a segment. Nil fields are
// left unchanged.
type SegmentUpdate struct {
	StartTime      *string  `json:"start_time,omitempty"`
	EndTime        *string  `json:"end_time,omitempty"`
	Speaker        *string  `json:"speaker,omitempty"`
	Text           *string  `json:"text,omitempty"`
	TranslatedText *string  `json:"translated_text,omitempty"`
	Emotion        *string  `json:"emotion,omitempty"`
	Speed          *float64 `json:"speed,omitempty"`
}

// Apply validates u against s and applies it. Changing timing or spoken
// text invalidates generated audio.
func (u SegmentUpdate) Apply(s *Segment) error {
	start, end := s.StartTime, s.EndTime
	if u.StartTime != nil {
		start = subtitle.NormalizeTimestamp(*u.StartTime)
	}
	if u.EndTime != nil {
		end = subtitle.NormalizeTimestamp(*u.EndTime)
	}
	if u.StartTime != nil || u.EndTime != nil {
		if err := validateWindow(start, end); err != nil {
			return err
		}
	}
	if u.Speed != nil && (*u.Speed < config.MinSpeed || *u.Speed > config.MaxSpeed) {
		return ErrInvalidSpeed
	}

	stale := start != s.StartTime || end != s.EndTime
	s.StartTime, s.EndTime = start, end
	if u.Speaker != nil && strings.TrimSpace(*u.Speaker) != "" {
		s.Speaker = strings.TrimSpace(*u.Speaker)
	}
	if u.Text != nil {
		stale = stale || *u.Text != s.Text
		s.Text = *u.Text
	}
	if u.TranslatedText != nil {
		stale = stale || *u.TranslatedText != s.TranslatedText
		s.TranslatedText = *u.TranslatedText
	}
	if u.Emotion != nil {
		s.Emotion = emotion.Resolve(*u.Emotion, s.Text)
	}
	if u.Speed != nil {
		s.Speed = *u.Speed
	}
	if stale {
		s.ClearAudio()
	}
	s.UpdatedAt = time.Now()
	return nil
}

func validateWindow(start, end string) error {
	s, err := subtitle.TimestampToMillis(start)
	if err != nil {
		return err
	}
	e, err := subtitle.TimestampToMillis(end)
	if err != nil {
		return err
	}
	if s >= e {
		return ErrInvalidTimestamps
	}
	return nil
}
