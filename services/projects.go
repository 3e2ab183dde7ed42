package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/logger"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/store"
	"github.com/backearth1/MiniMax-TTS-Translation/models"
)

// ProjectManager keeps the working copy of every open project in memory and
// writes each change through to the store. Callers always receive clones;
// changes go through Update or PutSegment.
type ProjectManager struct {
	store *store.Store // nil keeps projects in memory only

	mu    sync.Mutex
	cache map[string]*models.Project
}

func NewProjectManager(s *store.Store) *ProjectManager {
	return &ProjectManager{store: s, cache: make(map[string]*models.Project)}
}

// Create stores a new project.
func (m *ProjectManager) Create(ctx context.Context, p *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.save(ctx, p); err != nil {
		return err
	}
	m.cache[p.ID] = p.Clone()
	logger.Info("project %s created: %s, %d segments", p.ID, p.Filename, len(p.Segments))
	return nil
}

// Get returns a snapshot of the project.
func (m *ProjectManager) Get(ctx context.Context, id string) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// Update applies fn to the live project and saves it. fn runs under the
// manager lock and must not block on remote calls. When fn fails the
// project is left unchanged.
func (m *ProjectManager) Update(ctx context.Context, id string, fn func(p *models.Project) error) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	work := p.Clone()
	if err := fn(work); err != nil {
		return nil, err
	}
	if err := m.save(ctx, work); err != nil {
		return nil, err
	}
	m.cache[id] = work
	return work.Clone(), nil
}

// PutSegment replaces the segment with the same id in the live project.
// A segment deleted in the meantime is dropped silently.
func (m *ProjectManager) PutSegment(ctx context.Context, projectID string, seg *models.Segment) error {
	_, err := m.Update(ctx, projectID, func(p *models.Project) error {
		_, i, err := p.FindSegment(seg.ID)
		if err != nil {
			return nil
		}
		updated := seg.Clone()
		updated.Index = p.Segments[i].Index
		p.Segments[i] = updated
		return nil
	})
	return err
}

// List returns summaries of the stored projects of clientID, or of all
// projects when clientID is empty.
func (m *ProjectManager) List(ctx context.Context, clientID string) ([]models.ProjectSummary, error) {
	if m.store != nil {
		return m.store.List(ctx, clientID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.ProjectSummary{}
	for _, p := range m.cache {
		if clientID == "" || p.ClientID == clientID {
			out = append(out, p.Summary())
		}
	}
	return out, nil
}

// Delete removes a project.
func (m *ProjectManager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, cached := m.cache[id]
	delete(m.cache, id)
	if m.store == nil {
		if !cached {
			return fmt.Errorf("%w: %s", store.ErrNotFound, id)
		}
		return nil
	}
	return m.store.Delete(ctx, id)
}

// DeleteByClient removes every project of clientID.
func (m *ProjectManager) DeleteByClient(ctx context.Context, clientID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, p := range m.cache {
		if p.ClientID == clientID {
			delete(m.cache, id)
			n++
		}
	}
	if m.store == nil {
		return n, nil
	}
	return m.store.DeleteByClient(ctx, clientID)
}

func (m *ProjectManager) load(ctx context.Context, id string) (*models.Project, error) {
	if p, ok := m.cache[id]; ok {
		return p, nil
	}
	if m.store == nil {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	p, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	m.cache[id] = p
	return p, nil
}

func (m *ProjectManager) save(ctx context.Context, p *models.Project) error {
	if m.store == nil {
		return nil
	}
	if err := m.store.Save(ctx, p); err != nil {
		return fmt.Errorf("save project %s: %w", p.ID, err)
	}
	return nil
}
