package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/media"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/store"
	"github.com/backearth1/MiniMax-TTS-Translation/models"
)

func managers(t *testing.T) map[string]*ProjectManager {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "dubber.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return map[string]*ProjectManager{
		"memory": NewProjectManager(nil),
		"sqlite": NewProjectManager(s),
	}
}

func TestProjectManager(t *testing.T) {
	for name, m := range managers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			p := newTestProject(t, newTestDubber(t, nil, nil))
			if err := m.Create(ctx, p); err != nil {
				t.Fatalf("Create() error = %v", err)
			}

			snap, err := m.Get(ctx, p.ID)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			snap.Segments[0].Text = "changed only in the snapshot"
			if again, _ := m.Get(ctx, p.ID); again.Segments[0].Text != "Hello there" {
				t.Errorf("Get() returned shared state: %q", again.Segments[0].Text)
			}

			updated, err := m.Update(ctx, p.ID, func(p *models.Project) error {
				return p.RemoveSegment(p.Segments[1].ID)
			})
			if err != nil || len(updated.Segments) != 2 {
				t.Fatalf("Update() = %v segments, %v; want 2", len(updated.Segments), err)
			}

			boom := errors.New("boom")
			if _, err := m.Update(ctx, p.ID, func(p *models.Project) error {
				p.Segments = nil
				return boom
			}); !errors.Is(err, boom) {
				t.Errorf("Update() error = %v, want boom", err)
			}
			if got, _ := m.Get(ctx, p.ID); len(got.Segments) != 2 {
				t.Errorf("failed Update() changed the project: %d segments", len(got.Segments))
			}

			seg := updated.Segments[1].Clone()
			seg.Audio = media.Real([]byte{7})
			if err := m.PutSegment(ctx, p.ID, seg); err != nil {
				t.Fatalf("PutSegment() error = %v", err)
			}
			if got, _ := m.Get(ctx, p.ID); !got.Segments[1].Audio.IsReal() {
				t.Error("PutSegment() did not store the audio")
			}

			list, err := m.List(ctx, "client-1")
			if err != nil || len(list) != 1 || list[0].TotalSegments != 2 {
				t.Errorf("List() = %+v, %v", list, err)
			}

			if err := m.Delete(ctx, p.ID); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, err := m.Get(ctx, p.ID); !errors.Is(err, store.ErrNotFound) {
				t.Errorf("Get() after Delete error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestProjectManager_ReloadsFromStore(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(filepath.Join(t.TempDir(), "dubber.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	p := newTestProject(t, newTestDubber(t, nil, nil))
	if err := NewProjectManager(s).Create(ctx, p); err != nil {
		t.Fatal(err)
	}
	got, err := NewProjectManager(s).Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get() from a fresh manager error = %v", err)
	}
	if len(got.Segments) != 3 || got.Segments[2].Text != "Fine" {
		t.Errorf("Get() = %+v", got.Summary())
	}
}

func TestProjectManager_DeleteByClient(t *testing.T) {
	for name, m := range managers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			d := newTestDubber(t, nil, nil)
			for i := 0; i < 2; i++ {
				if err := m.Create(ctx, newTestProject(t, d)); err != nil {
					t.Fatal(err)
				}
			}
			n, err := m.DeleteByClient(ctx, "client-1")
			if err != nil || n != 2 {
				t.Errorf("DeleteByClient() = %d, %v; want 2", n, err)
			}
			if list, _ := m.List(ctx, ""); len(list) != 0 {
				t.Errorf("List() after DeleteByClient = %d, want 0", len(list))
			}
		})
	}
}

func TestSummaryLines(t *testing.T) {
	s := newSummary(4)
	s.Successful = 3
	s.Failed = 1
	s.FailedSilent = []int{2, 4}
	s.MaxSpeed = 1
	s.Interrupted = true

	lines := s.Lines()
	want := []string{
		"succeeded 3, failed 1 of 4",
		"silent (2): 2, 4",
		"at maximum speed: 1",
		"interrupted before the last segment",
	}
	if len(lines) != len(want) {
		t.Fatalf("Lines() = %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("Lines()[%d] = %q, want %q", i, lines[i], want[i])
		}
	}
}
