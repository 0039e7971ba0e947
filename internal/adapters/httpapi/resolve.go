package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mizukiro/anibridge/internal/app"
	"github.com/mizukiro/anibridge/internal/domain"
	"github.com/mizukiro/anibridge/internal/httpjson"
)

type resolveRequest struct {
	Provider domain.ProviderID `json:"provider"`
	Href     string            `json:"href"`
	Download bool              `json:"download"`

	// Réponses aux choix interactifs, par genre ("category", "server",
	// "quality", "download"). Un choix manquant vaut 409 + options: le
	// client re-poste avec sa réponse.
	Choices map[string]string `json:"choices,omitempty"`
}

// choicesPrompt rejoue les réponses fournies par le client; un genre sans
// réponse remonte ChoiceRequiredError, traduit en 409 par writeAppError.
func choicesPrompt(choices map[string]string) app.PromptFunc {
	return func(_ context.Context, kind string, options []string) (int, error) {
		if v, ok := choices[kind]; ok {
			for i, o := range options {
				if strings.EqualFold(o, v) {
					return i, nil
				}
			}
		}
		return 0, &app.ChoiceRequiredError{Kind: kind, Options: options}
	}
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Href) == "" {
		httpjson.WriteError(w, http.StatusBadRequest, "missing href")
		return
	}

	st, err := s.settings.Get(r.Context())
	if err != nil {
		httpjson.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	cand, err := s.resolver.Resolve(r.Context(), app.ResolveRequest{
		Provider: req.Provider,
		Href:     req.Href,
		Prefs: app.Preferences{
			Quality: st.PreferredQuality,
			Audio:   st.PreferredAudio,
			Server:  st.PreferredServer,
		},
		Prompt:   choicesPrompt(req.Choices),
		Download: req.Download || st.DownloadInsteadOfPlay,
	})
	s.metrics.Resolves.WithLabelValues(string(req.Provider), outcomeLabel(err)).Inc()
	if err != nil {
		writeAppError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]any{"candidate": cand})
}
