package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/mizukiro/anibridge/internal/domain"
)

// ContinueWatchingRepository stocke le snapshot dénormalisé "reprendre la
// lecture", écrit à chaque tick; dernière écriture gagnante par href.
type ContinueWatchingRepository struct {
	db *sql.DB
}

func NewContinueWatchingRepository(db *sql.DB) *ContinueWatchingRepository {
	return &ContinueWatchingRepository{db: db}
}

func (r *ContinueWatchingRepository) Put(ctx context.Context, e domain.ContinueWatchingEntry) error {
	updated := e.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO continue_watching(
			href, provider, title, episode_number, episode_title,
			thumbnail_url, last_played_seconds, total_seconds, updated_at
		) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(href) DO UPDATE SET
			provider = excluded.provider,
			title = excluded.title,
			episode_number = excluded.episode_number,
			episode_title = excluded.episode_title,
			thumbnail_url = excluded.thumbnail_url,
			last_played_seconds = excluded.last_played_seconds,
			total_seconds = excluded.total_seconds,
			updated_at = excluded.updated_at
	`, e.Href, string(e.Provider), e.Title, e.EpisodeNumber, e.EpisodeTitle,
		e.ThumbnailURL, e.LastPlayedSeconds, e.TotalSeconds, updated.Format(time.RFC3339))
	return err
}

func (r *ContinueWatchingRepository) List(ctx context.Context, limit int) ([]domain.ContinueWatchingEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT href, provider, title, episode_number, episode_title,
			thumbnail_url, last_played_seconds, total_seconds, updated_at
		FROM continue_watching
		ORDER BY updated_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ContinueWatchingEntry
	for rows.Next() {
		var e domain.ContinueWatchingEntry
		var provider, updated string
		if err := rows.Scan(&e.Href, &provider, &e.Title, &e.EpisodeNumber, &e.EpisodeTitle,
			&e.ThumbnailURL, &e.LastPlayedSeconds, &e.TotalSeconds, &updated); err != nil {
			return nil, err
		}
		e.Provider = domain.ProviderID(provider)
		e.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
		out = append(out, e)
	}
	return out, rows.Err()
}
