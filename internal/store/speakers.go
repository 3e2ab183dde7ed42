package store

import (
	"context"
	"fmt"

	"github.com/backearth1/MiniMax-TTS-Translation/models"
)

// SaveSpeaker inserts or updates a custom speaker.
func (s *Store) SaveSpeaker(ctx context.Context, sp *models.CustomSpeaker) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO custom_speakers (id, name, voice_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    voice_id = excluded.voice_id,
    updated_at = excluded.updated_at`,
		sp.ID, sp.Name, sp.VoiceID, formatTime(sp.CreatedAt), formatTime(sp.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save speaker %s: %w", sp.Name, err)
	}
	return nil
}

// ListSpeakers returns every custom speaker ordered by label.
func (s *Store) ListSpeakers(ctx context.Context) ([]models.CustomSpeaker, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, voice_id, created_at, updated_at FROM custom_speakers ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list speakers: %w", err)
	}
	defer rows.Close()

	var out []models.CustomSpeaker
	for rows.Next() {
		var sp models.CustomSpeaker
		var created, updated string
		if err := rows.Scan(&sp.ID, &sp.Name, &sp.VoiceID, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan speaker: %w", err)
		}
		sp.CreatedAt = parseTime(created)
		sp.UpdatedAt = parseTime(updated)
		out = append(out, sp)
	}
	return out, rows.Err()
}

// DeleteSpeaker removes a custom speaker by id.
func (s *Store) DeleteSpeaker(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM custom_speakers WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete speaker: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", models.ErrSpeakerNotFound, id)
	}
	return nil
}
