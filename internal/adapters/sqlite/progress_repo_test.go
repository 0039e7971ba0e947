package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mizukiro/anibridge/internal/domain"
	"github.com/mizukiro/anibridge/internal/ports"
)

func TestProgressRepository_UpsertLastWriteWins(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := NewProgressRepository(db.SQL)

	_, err = repo.Get(ctx, "/ep/1")
	if !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("Get(missing): want ErrNotFound, got %v", err)
	}

	if err := repo.Put(ctx, domain.PlaybackProgressRecord{
		Href: "/ep/1", LastPlayedSeconds: 60, TotalSeconds: 1400,
	}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	// Écriture ~1/s: la seconde écrase la première.
	if err := repo.Put(ctx, domain.PlaybackProgressRecord{
		Href: "/ep/1", LastPlayedSeconds: 61.5, TotalSeconds: 1400,
	}); err != nil {
		t.Fatalf("Put(2): %v", err)
	}

	rec, err := repo.Get(ctx, "/ep/1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.LastPlayedSeconds != 61.5 || rec.TotalSeconds != 1400 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.UpdatedAt.IsZero() {
		t.Fatalf("UpdatedAt not persisted")
	}
}

func TestProgressRepository_PutClampsToTotal(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := NewProgressRepository(db.SQL)
	if err := repo.Put(ctx, domain.PlaybackProgressRecord{
		Href: "/ep/2", LastPlayedSeconds: 2000, TotalSeconds: 1400,
	}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	rec, err := repo.Get(ctx, "/ep/2")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.LastPlayedSeconds != 1400 {
		t.Fatalf("want clamped to 1400, got %v", rec.LastPlayedSeconds)
	}
}

func TestContinueWatchingRepository_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := NewContinueWatchingRepository(db.SQL)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, href := range []string{"/ep/1", "/ep/2", "/ep/3"} {
		if err := repo.Put(ctx, domain.ContinueWatchingEntry{
			Href: href, Provider: "sessprov", Title: "Long Show",
			EpisodeNumber:     string(rune('1' + i)),
			LastPlayedSeconds: 100, TotalSeconds: 1400,
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("Put(%s): %v", href, err)
		}
	}

	// Ré-écrire /ep/1 plus tard: il doit remonter en tête.
	if err := repo.Put(ctx, domain.ContinueWatchingEntry{
		Href: "/ep/1", Provider: "sessprov", Title: "Long Show",
		EpisodeNumber:     "1",
		LastPlayedSeconds: 900, TotalSeconds: 1400,
		UpdatedAt:         base.Add(time.Hour),
	}); err != nil {
		t.Fatalf("Put(rewrite): %v", err)
	}

	entries, err := repo.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("want 3 entries, got %d", len(entries))
	}
	if entries[0].Href != "/ep/1" || entries[0].LastPlayedSeconds != 900 {
		t.Fatalf("newest first: %+v", entries[0])
	}
	if entries[1].Href != "/ep/3" {
		t.Fatalf("order: %+v", entries)
	}
}

func TestContinueWatchingRepository_ListHonorsLimit(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := NewContinueWatchingRepository(db.SQL)
	for _, href := range []string{"/a", "/b", "/c"} {
		if err := repo.Put(ctx, domain.ContinueWatchingEntry{Href: href, Provider: "p", Title: "t"}); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	entries, err := repo.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("limit ignored: got %d", len(entries))
	}
}
