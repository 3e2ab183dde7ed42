package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/config"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/subtitle"
)

// Project is a parsed subtitle file being edited and dubbed. Segment order
// is timeline order.
type Project struct {
	ID            string     `json:"id"`
	Filename      string     `json:"filename"`
	ClientID      string     `json:"client_id,omitempty"`
	Segments      []*Segment `json:"segments"`
	TotalSegments int        `json:"total_segments"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Pagination describes one page of segments.
type Pagination struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
	Pages   int `json:"pages"`
}

func NewProject(filename, clientID string) *Project {
	now := time.Now()
	return &Project{
		ID:        uuid.New().String(),
		Filename:  filename,
		ClientID:  clientID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewProjectFromRecords builds a project from parsed subtitle records.
// Emotions are resolved per record and every segment starts at speed 1.0.
func NewProjectFromRecords(filename, clientID string, records subtitle.List) (*Project, error) {
	if len(records) == 0 {
		return nil, subtitle.ErrNoSegments
	}
	if len(records) > config.MaxSegmentsPerProject {
		return nil, fmt.Errorf("%w: %d entries, at most %d supported", ErrTooManySegments, len(records), config.MaxSegmentsPerProject)
	}

	p := NewProject(filename, clientID)
	p.Segments = lo.Map(records, func(r subtitle.Record, _ int) *Segment {
		return NewSegment(r.Start, r.End, r.Speaker, r.Text, r.Emotion)
	})
	p.Reindex()
	return p, nil
}

// Reindex renumbers segments 1..N and refreshes TotalSegments.
func (p *Project) Reindex() {
	for i, s := range p.Segments {
		s.Index = i + 1
	}
	p.TotalSegments = len(p.Segments)
}

func (p *Project) touch() {
	p.Reindex()
	p.UpdatedAt = time.Now()
}

// FindSegment returns the segment with id and its position.
func (p *Project) FindSegment(id string) (*Segment, int, error) {
	s, i, ok := lo.FindIndexOf(p.Segments, func(s *Segment) bool { return s.ID == id })
	if !ok {
		return nil, -1, fmt.Errorf("%w: %s", ErrSegmentNotFound, id)
	}
	return s, i, nil
}

// AddSegment appends s.
func (p *Project) AddSegment(s *Segment) error {
	if err := validateWindow(s.StartTime, s.EndTime); err != nil {
		return err
	}
	p.Segments = append(p.Segments, s)
	p.touch()
	return nil
}

// InsertAfter places s right after the segment with id afterID. An empty
// afterID inserts at the front.
func (p *Project) InsertAfter(afterID string, s *Segment) error {
	if err := validateWindow(s.StartTime, s.EndTime); err != nil {
		return err
	}
	pos := 0
	if afterID != "" {
		_, i, err := p.FindSegment(afterID)
		if err != nil {
			return err
		}
		pos = i + 1
	}
	p.Segments = append(p.Segments[:pos], append([]*Segment{s}, p.Segments[pos:]...)...)
	p.touch()
	return nil
}

// RemoveSegment deletes the segment with id and renumbers the rest.
func (p *Project) RemoveSegment(id string) error {
	_, i, err := p.FindSegment(id)
	if err != nil {
		return err
	}
	p.Segments = append(p.Segments[:i], p.Segments[i+1:]...)
	p.touch()
	return nil
}

// UpdateSegment applies u to the segment with id.
func (p *Project) UpdateSegment(id string, u SegmentUpdate) (*Segment, error) {
	s, _, err := p.FindSegment(id)
	if err != nil {
		return nil, err
	}
	if err := u.Apply(s); err != nil {
		return nil, err
	}
	p.UpdatedAt = time.Now()
	return s, nil
}

// BatchUpdateSpeaker sets speaker on the listed segments, or on every
// segment when ids is empty. It returns the number of segments changed.
func (p *Project) BatchUpdateSpeaker(ids []string, speaker string) int {
	targets := p.Segments
	if len(ids) > 0 {
		want := lo.SliceToMap(ids, func(id string) (string, struct{}) { return id, struct{}{} })
		targets = lo.Filter(p.Segments, func(s *Segment, _ int) bool {
			_, ok := want[s.ID]
			return ok
		})
	}
	now := time.Now()
	for _, s := range targets {
		s.Speaker = speaker
		s.UpdatedAt = now
	}
	if len(targets) > 0 {
		p.UpdatedAt = now
	}
	return len(targets)
}

// Page returns the 1-based page of segments. Out of range pages are empty.
func (p *Project) Page(page, perPage int) ([]*Segment, Pagination) {
	if perPage <= 0 {
		perPage = config.DefaultPageSize
	}
	page = max(page, 1)
	total := len(p.Segments)
	info := Pagination{Page: page, PerPage: perPage, Total: total, Pages: (total + perPage - 1) / perPage}

	from := (page - 1) * perPage
	if from >= total {
		return []*Segment{}, info
	}
	return p.Segments[from:min(from+perPage, total)], info
}

// Records converts the segments for export.
func (p *Project) Records() subtitle.List {
	return lo.Map(p.Segments, func(s *Segment, _ int) subtitle.Record { return s.Record() })
}

// Speakers lists the distinct speaker labels in timeline order.
func (p *Project) Speakers() []string {
	return lo.Uniq(lo.Map(p.Segments, func(s *Segment, _ int) string { return s.Speaker }))
}

// Clone returns a deep copy that shares no segments with p.
func (p *Project) Clone() *Project {
	out := *p
	out.Segments = lo.Map(p.Segments, func(s *Segment, _ int) *Segment { return s.Clone() })
	return &out
}

// ProjectSummary is the project without its segments.
type ProjectSummary struct {
	ID            string    `json:"id"`
	Filename      string    `json:"filename"`
	ClientID      string    `json:"client_id,omitempty"`
	TotalSegments int       `json:"total_segments"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (p *Project) Summary() ProjectSummary {
	return ProjectSummary{
		ID:            p.ID,
		Filename:      p.Filename,
		ClientID:      p.ClientID,
		TotalSegments: p.TotalSegments,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}
