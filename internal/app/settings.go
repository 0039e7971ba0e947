package app

import (
	"context"

	"github.com/mizukiro/anibridge/internal/domain"
	"github.com/mizukiro/anibridge/internal/ports"
)

type SettingsService struct {
	repo ports.SettingsRepository
}

func NewSettingsService(repo ports.SettingsRepository) *SettingsService {
	return &SettingsService{repo: repo}
}

func (s *SettingsService) Get(ctx context.Context) (domain.Settings, error) {
	return s.repo.Get(ctx)
}

func (s *SettingsService) Put(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	// Validation légère; le provider reste libre d'être vide ("aucune
	// source"), les opérations échouent alors explicitement.
	if settings.PreferredQuality == "" {
		settings.PreferredQuality = domain.DefaultSettings().PreferredQuality
	}
	if settings.PreferredAudio == "" {
		settings.PreferredAudio = domain.DefaultSettings().PreferredAudio
	}
	if settings.MaxConcurrentFetches <= 0 {
		settings.MaxConcurrentFetches = domain.DefaultSettings().MaxConcurrentFetches
	}
	return s.repo.Put(ctx, settings)
}
