package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/media"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/store"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/subtitle"
	"github.com/backearth1/MiniMax-TTS-Translation/models"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "data", "dubber.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newProject(t *testing.T, clientID string) *models.Project {
	t.Helper()
	p, err := models.NewProjectFromRecords("demo.srt", clientID, subtitle.List{
		{Start: "00:00:00,000", End: "00:00:01,000", Speaker: "SPEAKER_00", Text: "one"},
		{Start: "00:00:01,000", End: "00:00:02,000", Speaker: "SPEAKER_01", Text: "two"},
		{Start: "00:00:02,000", End: "00:00:03,000", Speaker: "SPEAKER_00", Text: "three"},
	})
	if err != nil {
		t.Fatalf("NewProjectFromRecords() error = %v", err)
	}
	return p
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	p := newProject(t, "c1")
	p.Segments[0].Audio = media.Real([]byte{1, 2, 3, 4})
	p.Segments[0].AudioDurationMs = 900
	p.Segments[0].TraceID = "trace-1"
	p.Segments[1].Audio = media.Silence()
	p.Segments[2].TranslatedText = "drei"
	p.Segments[2].Speed = 1.4

	if err := s.Save(ctx, p); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := s.Load(ctx, p.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got.Filename != "demo.srt" || got.ClientID != "c1" || got.TotalSegments != 3 {
		t.Errorf("Load() project = %+v", got.Summary())
	}
	if !got.CreatedAt.Equal(p.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, p.CreatedAt)
	}
	first := got.Segments[0]
	if !first.Audio.IsReal() || len(first.Audio.Data) != 4 || first.Audio.Data[3] != 4 {
		t.Errorf("segment 1 audio = %+v, want real 4 bytes", first.Audio)
	}
	if first.AudioDurationMs != 900 || first.TraceID != "trace-1" || first.ID != p.Segments[0].ID {
		t.Errorf("segment 1 = %+v", first)
	}
	if !got.Segments[1].Audio.IsSilence() {
		t.Errorf("segment 2 audio kind = %q, want silence", got.Segments[1].Audio.Kind)
	}
	if third := got.Segments[2]; third.Audio.IsReal() || third.TranslatedText != "drei" || third.Speed != 1.4 {
		t.Errorf("segment 3 = %+v", third)
	}
}

func TestSaveReplacesAudio(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	p := newProject(t, "c1")
	p.Segments[0].Audio = media.Real([]byte{1})
	if err := s.Save(ctx, p); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	p.Segments[0].ClearAudio()
	if err := p.RemoveSegment(p.Segments[2].ID); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, p); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	got, err := s.Load(ctx, p.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Segments[0].HasAudio() || len(got.Segments) != 2 {
		t.Errorf("Load() after update = %d segments, audio %+v", len(got.Segments), got.Segments[0].Audio)
	}
}

func TestListAndDelete(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	a, b, c := newProject(t, "c1"), newProject(t, "c1"), newProject(t, "c2")
	for _, p := range []*models.Project{a, b, c} {
		if err := s.Save(ctx, p); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	all, err := s.List(ctx, "")
	if err != nil || len(all) != 3 {
		t.Fatalf("List(\"\") = %d, %v; want 3", len(all), err)
	}
	mine, _ := s.List(ctx, "c1")
	if len(mine) != 2 {
		t.Errorf("List(c1) = %d, want 2", len(mine))
	}

	if err := s.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Load(ctx, c.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Load(deleted) error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, c.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Delete(deleted) error = %v, want ErrNotFound", err)
	}

	n, err := s.DeleteByClient(ctx, "c1")
	if err != nil || n != 2 {
		t.Errorf("DeleteByClient(c1) = %d, %v; want 2", n, err)
	}
	if rest, _ := s.List(ctx, ""); len(rest) != 0 {
		t.Errorf("List() after deletes = %d, want 0", len(rest))
	}
}

func TestReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dubber.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	p := newProject(t, "")
	if err := s.Save(ctx, p); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	_ = s.Close()

	s, err = store.Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()
	if _, err := s.Load(ctx, p.ID); err != nil {
		t.Errorf("Load() after reopen error = %v", err)
	}
}
