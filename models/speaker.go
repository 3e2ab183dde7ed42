package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/config"
)

var (
	// ErrSpeakerNotFound is returned for an unknown custom speaker id.
	ErrSpeakerNotFound = errors.New("speaker not found")
	// ErrSpeakerLimit is returned when every label up to SPEAKER_99 is taken.
	ErrSpeakerLimit = errors.New("speaker limit reached")
	// ErrEmptyVoice is returned when a custom speaker has no voice id.
	ErrEmptyVoice = errors.New("voice id is required")
)

// CustomSpeaker is a user-defined speaker label bound to a voice id.
type CustomSpeaker struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"` // SPEAKER_NN
	VoiceID   string    `json:"voice_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCustomSpeaker allocates the next free label after the built-in ones.
func NewCustomSpeaker(voiceID string, existing []CustomSpeaker) (*CustomSpeaker, error) {
	voiceID = strings.TrimSpace(voiceID)
	if voiceID == "" {
		return nil, ErrEmptyVoice
	}
	name, err := NextSpeakerName(existing)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &CustomSpeaker{
		ID:        uuid.New().String(),
		Name:      name,
		VoiceID:   voiceID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// SetVoice changes the voice id.
func (s *CustomSpeaker) SetVoice(voiceID string) error {
	voiceID = strings.TrimSpace(voiceID)
	if voiceID == "" {
		return ErrEmptyVoice
	}
	s.VoiceID = voiceID
	s.UpdatedAt = time.Now()
	return nil
}

// SpeakerLabel renders SPEAKER_NN.
func SpeakerLabel(n int) string {
	return fmt.Sprintf("SPEAKER_%02d", n)
}

// NextSpeakerName returns the lowest free label from SPEAKER_06 to
// SPEAKER_99. Labels 00-05 belong to the built-in voices.
func NextSpeakerName(existing []CustomSpeaker) (string, error) {
	taken := lo.SliceToMap(existing, func(s CustomSpeaker) (string, struct{}) { return s.Name, struct{}{} })
	for n := config.FirstCustomSpeaker; n <= config.LastCustomSpeaker; n++ {
		if _, ok := taken[SpeakerLabel(n)]; !ok {
			return SpeakerLabel(n), nil
		}
	}
	return "", fmt.Errorf("%w (%s)", ErrSpeakerLimit, SpeakerLabel(config.LastCustomSpeaker))
}

// VoiceMapping merges custom speakers over the configured voices.
func (c *Config) VoiceMapping(custom []CustomSpeaker) map[string]string {
	out := make(map[string]string, len(c.Voices)+len(custom))
	for k, v := range c.Voices {
		out[k] = v
	}
	for _, s := range custom {
		out[s.Name] = s.VoiceID
	}
	return out
}

// SpeakerNames lists the configured labels in order, followed by the custom ones.
func (c *Config) SpeakerNames(custom []CustomSpeaker) []string {
	names := lo.Keys(c.Voices)
	sort.Strings(names)
	for _, s := range custom {
		if _, ok := c.Voices[s.Name]; !ok {
			names = append(names, s.Name)
		}
	}
	return names
}
