package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mizukiro/anibridge/internal/domain"
	"github.com/mizukiro/anibridge/internal/ports"
)

// ProgressRepository persiste une paire (last_played, total) par href.
// Upsert pur: jamais de delete, dernière écriture gagnante.
type ProgressRepository struct {
	db *sql.DB
}

func NewProgressRepository(db *sql.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

func (r *ProgressRepository) Get(ctx context.Context, href string) (domain.PlaybackProgressRecord, error) {
	var rec domain.PlaybackProgressRecord
	var updated string
	err := r.db.QueryRowContext(ctx, `
		SELECT href, last_played_seconds, total_seconds, updated_at
		FROM playback_progress WHERE href = ?
	`, href).Scan(&rec.Href, &rec.LastPlayedSeconds, &rec.TotalSeconds, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PlaybackProgressRecord{}, ports.ErrNotFound
		}
		return domain.PlaybackProgressRecord{}, err
	}
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return rec, nil
}

func (r *ProgressRepository) Put(ctx context.Context, rec domain.PlaybackProgressRecord) error {
	rec = rec.Clamp()
	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO playback_progress(href, last_played_seconds, total_seconds, updated_at)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(href) DO UPDATE SET
			last_played_seconds = excluded.last_played_seconds,
			total_seconds = excluded.total_seconds,
			updated_at = excluded.updated_at
	`, rec.Href, rec.LastPlayedSeconds, rec.TotalSeconds, updated.Format(time.RFC3339))
	return err
}
