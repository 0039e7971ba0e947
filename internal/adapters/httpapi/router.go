package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/mizukiro/anibridge/internal/adapters/remoteplayer"
	"github.com/mizukiro/anibridge/internal/app"
	"github.com/mizukiro/anibridge/internal/domain"
	"github.com/mizukiro/anibridge/internal/httpjson"
	"github.com/mizukiro/anibridge/internal/ports"
)

type Server struct {
	logger      zerolog.Logger
	registry    *app.Registry
	details     *app.DetailFetcher
	resolver    *app.StreamResolver
	coordinator *app.Coordinator
	settings    *app.SettingsService
	continues   ports.ContinueWatchingRepository
	player      *remoteplayer.Player
	bus         ports.EventBus
	metrics     *Metrics

	// onSettingsUpdated est optionnel (ex: ajuster la concurrence fetch).
	onSettingsUpdated func(domain.Settings)
}

func NewServer(
	logger zerolog.Logger,
	registry *app.Registry,
	details *app.DetailFetcher,
	resolver *app.StreamResolver,
	coordinator *app.Coordinator,
	settings *app.SettingsService,
	continues ports.ContinueWatchingRepository,
	player *remoteplayer.Player,
	bus ports.EventBus,
	onSettingsUpdated func(domain.Settings),
) *Server {
	return &Server{
		logger:            logger,
		registry:          registry,
		details:           details,
		resolver:          resolver,
		coordinator:       coordinator,
		settings:          settings,
		continues:         continues,
		player:            player,
		bus:               bus,
		metrics:           NewMetrics(),
		onSettingsUpdated: onSettingsUpdated,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(defaultRequestTimeout))
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.RequestIDHandler("request_id", "Request-Id"))
	r.Use(hlog.RemoteAddrHandler("remote_ip"))
	r.Use(hlog.UserAgentHandler("user_agent"))
	r.Use(hlog.AccessHandler(accessLogFn))

	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/version", s.handleVersion)
		r.Get("/events", s.handleEvents)

		r.Get("/providers", s.handleProviders)
		r.Get("/providers/{id}/detail", s.handleDetail)
		r.Post("/resolve", s.handleResolve)

		r.Route("/session", func(r chi.Router) {
			r.Get("/", s.handleSessionGet)
			r.Post("/start", s.handleSessionStart)
			r.Post("/next", s.handleSessionNext)
			r.Post("/previous", s.handleSessionPrevious)
			r.Post("/stop", s.handleSessionStop)
			r.Post("/progress", s.handleSessionProgress)
			r.Post("/ended", s.handleSessionEnded)
		})

		r.Get("/continue-watching", s.handleContinueWatching)

		if s.settings != nil {
			NewSettingsHandler(s.settings, s.onSettingsUpdated).Routes(r)
		}
	})

	return r
}

// writeAppError traduit la taxonomie d'erreurs en statuts HTTP. Un choix
// interactif en attente n'est pas un échec: 409 + options.
func writeAppError(w http.ResponseWriter, err error) {
	var choice *app.ChoiceRequiredError
	if errors.As(err, &choice) {
		httpjson.Write(w, http.StatusConflict, map[string]any{
			"choiceRequired": map[string]any{
				"kind":    choice.Kind,
				"options": choice.Options,
			},
		})
		return
	}

	switch code := app.ErrorCode(err); code {
	case app.CodeNoSourceSelected:
		httpjson.WriteCodedError(w, http.StatusBadRequest, code, err.Error())
	case app.CodeNoCandidates:
		httpjson.WriteCodedError(w, http.StatusNotFound, code, err.Error())
	case app.CodeNetwork, app.CodeHTTPStatus, app.CodeParse, app.CodeSync:
		httpjson.WriteCodedError(w, http.StatusBadGateway, code, err.Error())
	default:
		switch {
		case errors.Is(err, ports.ErrNotFound):
			httpjson.WriteError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, app.ErrNoActiveSession):
			httpjson.WriteError(w, http.StatusConflict, err.Error())
		default:
			httpjson.WriteError(w, http.StatusInternalServerError, err.Error())
		}
	}
}
