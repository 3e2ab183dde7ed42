package store_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/store"
	"github.com/backearth1/MiniMax-TTS-Translation/models"
)

func TestSpeakers(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	first, err := models.NewCustomSpeaker("voice-a", nil)
	if err != nil {
		t.Fatalf("NewCustomSpeaker() error = %v", err)
	}
	second, err := models.NewCustomSpeaker("voice-b", []models.CustomSpeaker{*first})
	if err != nil {
		t.Fatalf("NewCustomSpeaker() error = %v", err)
	}
	for _, sp := range []*models.CustomSpeaker{second, first} {
		if err := s.SaveSpeaker(ctx, sp); err != nil {
			t.Fatalf("SaveSpeaker(%s) error = %v", sp.Name, err)
		}
	}

	if err := first.SetVoice("voice-c"); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveSpeaker(ctx, first); err != nil {
		t.Fatalf("SaveSpeaker() update error = %v", err)
	}

	list, err := s.ListSpeakers(ctx)
	if err != nil {
		t.Fatalf("ListSpeakers() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListSpeakers() len = %d, want 2", len(list))
	}
	if list[0].Name != "SPEAKER_06" || list[0].VoiceID != "voice-c" {
		t.Errorf("ListSpeakers()[0] = %s/%s, want SPEAKER_06/voice-c", list[0].Name, list[0].VoiceID)
	}
	if list[1].Name != "SPEAKER_07" || list[1].VoiceID != "voice-b" {
		t.Errorf("ListSpeakers()[1] = %s/%s, want SPEAKER_07/voice-b", list[1].Name, list[1].VoiceID)
	}

	if err := s.DeleteSpeaker(ctx, first.ID); err != nil {
		t.Fatalf("DeleteSpeaker() error = %v", err)
	}
	if err := s.DeleteSpeaker(ctx, first.ID); !errors.Is(err, models.ErrSpeakerNotFound) {
		t.Errorf("DeleteSpeaker() twice error = %v, want ErrSpeakerNotFound", err)
	}
}

func TestOpenMigratesVersionOne(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dubber.db")

	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	for _, stmt := range []string{"DROP TABLE custom_speakers", "UPDATE schema_version SET version = 1"} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = store.Open(path)
	if err != nil {
		t.Fatalf("Open() version 1 error = %v", err)
	}
	defer s.Close()

	sp, err := models.NewCustomSpeaker("voice-a", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SaveSpeaker(ctx, sp); err != nil {
		t.Errorf("SaveSpeaker() after migration error = %v", err)
	}
}

func TestOpenRejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dubber.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	if _, err := store.Open(path); !errors.Is(err, store.ErrSchemaMismatch) {
		t.Errorf("Open() error = %v, want ErrSchemaMismatch", err)
	}
}
