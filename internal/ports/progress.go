package ports

import (
	"context"

	"github.com/mizukiro/anibridge/internal/domain"
)

// ProgressRepository persiste l'état de lecture par href d'épisode.
// Écriture ~1/s pendant la lecture; jamais supprimé, seulement écrasé.
type ProgressRepository interface {
	// Get renvoie ErrNotFound quand aucun enregistrement n'existe.
	Get(ctx context.Context, href string) (domain.PlaybackProgressRecord, error)
	Put(ctx context.Context, rec domain.PlaybackProgressRecord) error
}

// ContinueWatchingRepository stocke les snapshots "reprendre la lecture".
// Dernière écriture gagnante par href.
type ContinueWatchingRepository interface {
	Put(ctx context.Context, entry domain.ContinueWatchingEntry) error
	List(ctx context.Context, limit int) ([]domain.ContinueWatchingEntry, error)
}
