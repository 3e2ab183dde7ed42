// Package store persists projects, their segments and generated audio in SQLite.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	_ "modernc.org/sqlite"

	"github.com/backearth1/MiniMax-TTS-Translation/models"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes incompatibly.
const schemaVersion = 2

var (
	// ErrNotFound is returned when a project id is unknown.
	ErrNotFound = errors.New("project not found")
	// ErrSchemaMismatch indicates a database written by another schema version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
)

// Store is a SQLite-backed project repository.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure database directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin schema tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return tx.Commit()
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version < 1 || version > schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s)", ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return s.migrate(ctx, version)
}

// migrations[v] upgrades a version v-1 database to v.
var migrations = map[int]string{
	2: `CREATE TABLE IF NOT EXISTS custom_speakers (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL UNIQUE,
    voice_id   TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
)`,
}

func (s *Store) migrate(ctx context.Context, from int) error {
	for v := from + 1; v <= schemaVersion; v++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration tx: %w", err)
		}
		if _, err := tx.ExecContext(ctx, migrations[v]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrate to version %d: %w", v, err)
		}
		if _, err := tx.ExecContext(ctx, "UPDATE schema_version SET version = ?", v); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record schema version %d: %w", v, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", v, err)
		}
	}
	return nil
}

// Save writes the project, replacing any stored copy and its audio.
func (s *Store) Save(ctx context.Context, p *models.Project) error {
	payload, err := sonic.Marshal(p.Segments)
	if err != nil {
		return fmt.Errorf("marshal segments: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO projects (id, filename, client_id, total_segments, payload, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
            filename = excluded.filename,
            client_id = excluded.client_id,
            total_segments = excluded.total_segments,
            payload = excluded.payload,
            updated_at = excluded.updated_at`,
		p.ID, p.Filename, p.ClientID, len(p.Segments), string(payload),
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert project: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM segment_audio WHERE project_id = ?", p.ID); err != nil {
		return fmt.Errorf("clear audio: %w", err)
	}
	for _, seg := range p.Segments {
		data := seg.Audio.Bytes()
		if len(data) == 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO segment_audio (project_id, segment_id, data) VALUES (?, ?, ?)",
			p.ID, seg.ID, data,
		); err != nil {
			return fmt.Errorf("insert audio for segment %d: %w", seg.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Load returns the project with id, audio included.
func (s *Store) Load(ctx context.Context, id string) (*models.Project, error) {
	var (
		p                models.Project
		payload          string
		created, updated string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, filename, client_id, payload, created_at, updated_at FROM projects WHERE id = ?", id,
	).Scan(&p.ID, &p.Filename, &p.ClientID, &payload, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("select project: %w", err)
	}
	if err := sonic.UnmarshalString(payload, &p.Segments); err != nil {
		return nil, fmt.Errorf("unmarshal segments: %w", err)
	}
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)

	audio, err := s.loadAudio(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, seg := range p.Segments {
		if seg.Audio.IsReal() {
			seg.Audio.Data = audio[seg.ID]
		}
	}
	p.Reindex()
	return &p, nil
}

func (s *Store) loadAudio(ctx context.Context, projectID string) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT segment_id, data FROM segment_audio WHERE project_id = ?", projectID)
	if err != nil {
		return nil, fmt.Errorf("select audio: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var (
			segID string
			data  []byte
		)
		if err := rows.Scan(&segID, &data); err != nil {
			return nil, fmt.Errorf("scan audio: %w", err)
		}
		out[segID] = data
	}
	return out, rows.Err()
}

// List returns project summaries, newest first. An empty clientID lists all.
func (s *Store) List(ctx context.Context, clientID string) ([]models.ProjectSummary, error) {
	query := "SELECT id, filename, client_id, total_segments, created_at, updated_at FROM projects"
	var args []any
	if clientID != "" {
		query += " WHERE client_id = ?"
		args = append(args, clientID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	out := []models.ProjectSummary{}
	for rows.Next() {
		var (
			sum              models.ProjectSummary
			created, updated string
		)
		if err := rows.Scan(&sum.ID, &sum.Filename, &sum.ClientID, &sum.TotalSegments, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		sum.CreatedAt = parseTime(created)
		sum.UpdatedAt = parseTime(updated)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes the project and its audio.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM segment_audio WHERE project_id = ?", id); err != nil {
		return fmt.Errorf("delete audio: %w", err)
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// DeleteByClient removes every project owned by clientID and returns how
// many were removed.
func (s *Store) DeleteByClient(ctx context.Context, clientID string) (int, error) {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM segment_audio WHERE project_id IN (SELECT id FROM projects WHERE client_id = ?)", clientID,
	); err != nil {
		return 0, fmt.Errorf("delete client audio: %w", err)
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE client_id = ?", clientID)
	if err != nil {
		return 0, fmt.Errorf("delete client projects: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
