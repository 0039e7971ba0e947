package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mizukiro/anibridge/internal/adapters/httpapi"
	"github.com/mizukiro/anibridge/internal/adapters/memorybus"
	"github.com/mizukiro/anibridge/internal/adapters/remoteplayer"
	"github.com/mizukiro/anibridge/internal/adapters/sqlite"
	"github.com/mizukiro/anibridge/internal/app"
	"github.com/mizukiro/anibridge/internal/buildinfo"
	"github.com/mizukiro/anibridge/internal/config"
	"github.com/mizukiro/anibridge/internal/domain"
)

func main() {
	// .env optionnel, les variables d'environnement priment.
	_ = godotenv.Load()

	def := config.Default()
	addr := flag.String("addr", def.Addr, "Adresse d'écoute (ex: 127.0.0.1:8080)")
	dbPath := flag.String("db", def.DBPath, "Chemin SQLite (ex: anibridge.db)")
	flag.Parse()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("app", "anibridge-server").Logger()
	log.Logger = logger

	logger.Info().Interface("build", buildinfo.Current()).Str("db", *dbPath).Msg("starting")

	ctx := context.Background()
	db, err := sqlite.Open(ctx, *dbPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open db")
	}
	defer func() { _ = db.Close() }()

	bus := memorybus.New()

	settingsRepo := sqlite.NewSettingsRepository(db.SQL)
	settingsSvc := app.NewSettingsService(settingsRepo)
	progressRepo := sqlite.NewProgressRepository(db.SQL)
	continueRepo := sqlite.NewContinueWatchingRepository(db.SQL)

	registry := app.NewRegistry()

	fetchConcurrency := domain.DefaultSettings().MaxConcurrentFetches
	if s, err := settingsSvc.Get(ctx); err == nil && s.MaxConcurrentFetches > 0 {
		fetchConcurrency = s.MaxConcurrentFetches
	}
	fetch := app.NewFetchClient(logger.With().Str("component", "fetch").Logger(), fetchConcurrency)

	details := app.NewDetailFetcher(registry, fetch, logger.With().Str("component", "details").Logger())
	resolver := app.NewStreamResolver(registry, fetch, logger.With().Str("component", "resolver").Logger())

	tracker := app.NewTrackerService(settingsSvc.Get).WithEndpoint(def.TrackerEndpoint)
	syncSvc := app.NewProgressSyncService(tracker, settingsSvc.Get, logger.With().Str("component", "sync").Logger())

	player := remoteplayer.New(bus)
	coordinator := app.NewCoordinator(
		logger.With().Str("component", "session").Logger(),
		resolver, progressRepo, continueRepo, settingsSvc.Get, syncSvc, player, bus,
	)

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := httpapi.NewServer(
		logger, registry, details, resolver, coordinator,
		settingsSvc, continueRepo, player, bus,
		func(updated domain.Settings) {
			if updated.MaxConcurrentFetches > 0 {
				fetch.SetMaxConcurrent(updated.MaxConcurrentFetches)
			}
		},
	)
	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", *addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server crashed")
			stop()
		}
	}()

	<-shutdownCtx.Done()
	logger.Info().Msg("shutting down")

	coordinator.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctx)
	logger.Info().Msg("bye")
}
