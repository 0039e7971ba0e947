package app

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/mizukiro/anibridge/internal/domain"
)

// ProgressSyncService pousse la progression d'épisode vers le service de
// tracking. Résolution de l'id: override manuel d'abord, recherche par
// titre sinon. Aucun cache inter-sessions (appels au plus une fois par
// session, re-résoudre est acceptable). Échec = loggé, pas de retry,
// jamais bloquant pour la lecture.
type ProgressSyncService struct {
	tracker  *TrackerService
	settings func(ctx context.Context) (domain.Settings, error)
	logger   zerolog.Logger
}

func NewProgressSyncService(tracker *TrackerService, settingsGetter func(ctx context.Context) (domain.Settings, error), logger zerolog.Logger) *ProgressSyncService {
	return &ProgressSyncService{tracker: tracker, settings: settingsGetter, logger: logger}
}

// Push envoie (titre -> id, épisode). L'erreur rendue est informative;
// l'appelant (coordinator) la logge et continue.
func (s *ProgressSyncService) Push(ctx context.Context, title string, episode int) error {
	st, err := s.settings(ctx)
	if err != nil {
		return coded(CodeSync, "read settings", err)
	}

	mediaID, ok := st.TrackerOverrides[title]
	if !ok {
		mediaID, err = s.tracker.SearchMediaID(ctx, title)
		if err != nil {
			if errors.Is(err, ErrTrackerNotConfigured) {
				return err
			}
			return coded(CodeSync, "resolve tracker id", err)
		}
	}

	if err := s.tracker.SaveProgress(ctx, mediaID, episode); err != nil {
		if errors.Is(err, ErrTrackerNotConfigured) {
			return err
		}
		return coded(CodeSync, "push progress", err)
	}

	s.logger.Info().
		Str("title", title).
		Int("mediaId", mediaID).
		Int("episode", episode).
		Msg("progress synced")
	return nil
}
