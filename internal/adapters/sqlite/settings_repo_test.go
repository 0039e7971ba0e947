package sqlite

import (
	"context"
	"testing"

	"github.com/mizukiro/anibridge/internal/domain"
)

func TestSettingsRepository_DefaultsAndPersist(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := NewSettingsRepository(db.SQL)

	got, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("Get(default): %v", err)
	}
	if got.PreferredQuality == "" {
		t.Fatalf("expected default PreferredQuality, got empty")
	}
	if got.Provider != "" {
		t.Fatalf("expected no default provider, got %q", got.Provider)
	}

	want := domain.DefaultSettings()
	want.Provider = domain.ProviderAniWatch
	want.PreferredQuality = "720p"
	want.ReverseSort = true
	want.PushSync = true
	want.TrackerToken = "tok"
	want.TrackerOverrides = map[string]int{"Long Show": 11}
	want.MaxConcurrentFetches = 8

	updated, err := repo.Put(ctx, want)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if updated.Provider != want.Provider {
		t.Fatalf("Provider: want %q, got %q", want.Provider, updated.Provider)
	}
	if updated.PreferredQuality != want.PreferredQuality {
		t.Fatalf("PreferredQuality: want %q, got %q", want.PreferredQuality, updated.PreferredQuality)
	}
	if !updated.ReverseSort || !updated.PushSync {
		t.Fatalf("booleans not persisted: %+v", updated)
	}
	if updated.TrackerOverrides["Long Show"] != 11 {
		t.Fatalf("TrackerOverrides: %+v", updated.TrackerOverrides)
	}

	got2, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("Get(after Put): %v", err)
	}
	if got2.MaxConcurrentFetches != want.MaxConcurrentFetches {
		t.Fatalf("MaxConcurrentFetches: want %d, got %d", want.MaxConcurrentFetches, got2.MaxConcurrentFetches)
	}
}
