package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/logger"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/store"
	"github.com/backearth1/MiniMax-TTS-Translation/models"
)

// SpeakerManager holds the custom speakers. All of them are kept in memory;
// changes are written through to the store.
type SpeakerManager struct {
	store *store.Store // nil keeps speakers in memory only

	mu       sync.Mutex
	speakers []models.CustomSpeaker // ordered by name
}

// NewSpeakerManager loads the stored speakers.
func NewSpeakerManager(ctx context.Context, s *store.Store) (*SpeakerManager, error) {
	m := &SpeakerManager{store: s}
	if s == nil {
		return m, nil
	}
	list, err := s.ListSpeakers(ctx)
	if err != nil {
		return nil, err
	}
	m.speakers = list
	return m, nil
}

// List returns a copy of the custom speakers ordered by label.
func (m *SpeakerManager) List() []models.CustomSpeaker {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.speakers)
}

// Add creates a speaker under the next free label.
func (m *SpeakerManager) Add(ctx context.Context, voiceID string) (*models.CustomSpeaker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sp, err := models.NewCustomSpeaker(voiceID, m.speakers)
	if err != nil {
		return nil, err
	}
	if m.store != nil {
		if err := m.store.SaveSpeaker(ctx, sp); err != nil {
			return nil, err
		}
	}
	m.speakers = append(m.speakers, *sp)
	m.sort()
	logger.Info("custom speaker %s added with voice %s", sp.Name, sp.VoiceID)
	out := *sp
	return &out, nil
}

// Update changes the voice of speaker id.
func (m *SpeakerManager) Update(ctx context.Context, id, voiceID string) (*models.CustomSpeaker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrSpeakerNotFound, id)
	}
	sp := m.speakers[i]
	if err := sp.SetVoice(voiceID); err != nil {
		return nil, err
	}
	if m.store != nil {
		if err := m.store.SaveSpeaker(ctx, &sp); err != nil {
			return nil, err
		}
	}
	m.speakers[i] = sp
	logger.Info("custom speaker %s now uses voice %s", sp.Name, sp.VoiceID)
	return &sp, nil
}

// Delete removes speaker id. Its label becomes free again.
func (m *SpeakerManager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", models.ErrSpeakerNotFound, id)
	}
	if m.store != nil {
		if err := m.store.DeleteSpeaker(ctx, id); err != nil {
			return err
		}
	}
	logger.Info("custom speaker %s deleted", m.speakers[i].Name)
	m.speakers = slices.Delete(m.speakers, i, i+1)
	return nil
}

// VoiceMapping merges the custom speakers over the configured voices.
func (m *SpeakerManager) VoiceMapping(cfg *models.Config) map[string]string {
	return cfg.VoiceMapping(m.List())
}

func (m *SpeakerManager) index(id string) int {
	return slices.IndexFunc(m.speakers, func(s models.CustomSpeaker) bool { return s.ID == id })
}

func (m *SpeakerManager) sort() {
	slices.SortFunc(m.speakers, func(a, b models.CustomSpeaker) int { return strings.Compare(a.Name, b.Name) })
}
