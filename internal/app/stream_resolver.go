package app

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mizukiro/anibridge/internal/domain"
)

// Preferences sont les préférences utilisateur lues UNE fois par action et
// passées explicitement (pas de global relu en cours d'opération).
type Preferences struct {
	Quality string
	Audio   string
	Server  string
}

// ResolveRequest décrit une résolution de flux pour un épisode.
type ResolveRequest struct {
	Provider domain.ProviderID
	Href     string
	Prefs    Preferences

	// Prompt est le rappel de choix interactif; nil signifie "pas d'UI",
	// auquel cas les cas ambigus remontent ChoiceRequiredError.
	Prompt PromptFunc

	// Download: résoudre des liens de téléchargement plutôt qu'un flux.
	Download bool
}

// StreamResolver transforme une référence d'épisode opaque en URL jouable
// en exécutant la stratégie du provider. Chaque hop passe par le
// FetchClient partagé; le premier échec est terminal (pas de retry).
type StreamResolver struct {
	reg    *Registry
	fetch  *FetchClient
	logger zerolog.Logger
}

func NewStreamResolver(reg *Registry, fetch *FetchClient, logger zerolog.Logger) *StreamResolver {
	return &StreamResolver{reg: reg, fetch: fetch, logger: logger}
}

func (r *StreamResolver) Resolve(ctx context.Context, req ResolveRequest) (domain.StreamCandidate, error) {
	spec, err := r.reg.Lookup(req.Provider)
	if err != nil {
		return domain.StreamCandidate{}, err
	}
	base, err := r.reg.BaseURL(req.Provider)
	if err != nil {
		return domain.StreamCandidate{}, err
	}

	if req.Download {
		return r.resolveDownload(ctx, spec, base, req)
	}

	var cand domain.StreamCandidate
	switch spec.Stream {
	case domain.StreamScrape:
		cand, err = r.resolveScrape(ctx, spec, base, req)
	case domain.StreamIframe:
		cand, err = r.resolveIframe(ctx, spec, base, req)
	case domain.StreamAttr:
		cand, err = r.resolveAttr(ctx, spec, base, req)
	case domain.StreamAPI2Hop:
		cand, err = r.resolveAPI2Hop(ctx, spec, base, req)
	case domain.StreamManifest:
		cand, err = r.resolveManifest(ctx, spec, base, req)
	case domain.StreamRedirect:
		cand, err = r.resolveRedirect(ctx, spec, base, req)
	default:
		return domain.StreamCandidate{}, coded(CodeNoCandidates, "no stream strategy for "+string(spec.ID), nil)
	}
	if err != nil {
		return domain.StreamCandidate{}, err
	}

	r.logger.Debug().
		Str("provider", string(req.Provider)).
		Str("href", req.Href).
		Str("strategy", string(spec.Stream)).
		Msg("stream resolved")
	return cand, nil
}
