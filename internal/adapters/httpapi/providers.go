package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mizukiro/anibridge/internal/domain"
	"github.com/mizukiro/anibridge/internal/httpjson"
)

type providerSummary struct {
	ID       domain.ProviderID     `json:"id"`
	Name     string                `json:"name"`
	Mirrors  []string              `json:"mirrors"`
	Strategy domain.StreamStrategy `json:"strategy"`
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	specs := s.registry.All()
	out := make([]providerSummary, 0, len(specs))
	for _, spec := range specs {
		out = append(out, providerSummary{
			ID:       spec.ID,
			Name:     spec.Name,
			Mirrors:  spec.Mirrors,
			Strategy: spec.Stream,
		})
	}
	httpjson.Write(w, http.StatusOK, map[string]any{"providers": out})
}

type detailResponse struct {
	Detail  domain.TitleDetail `json:"detail"`
	Reverse bool               `json:"reverseSort"`
}

// handleDetail retourne la fiche d'un titre, épisodes triés selon la
// préférence reverseSort: c'est l'ordre sur lequel la navigation
// next/previous s'appuie.
func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	provider := domain.ProviderID(chi.URLParam(r, "id"))
	ref := strings.TrimSpace(r.URL.Query().Get("ref"))
	if ref == "" {
		httpjson.WriteError(w, http.StatusBadRequest, "missing ref")
		return
	}

	st, err := s.settings.Get(r.Context())
	if err != nil {
		httpjson.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	detail, err := s.details.Fetch(r.Context(), provider, ref)
	s.metrics.DetailFetches.WithLabelValues(string(provider), outcomeLabel(err)).Inc()
	if err != nil {
		writeAppError(w, err)
		return
	}

	domain.SortEpisodes(detail.Episodes, st.ReverseSort)
	httpjson.Write(w, http.StatusOK, detailResponse{Detail: detail, Reverse: st.ReverseSort})
}

func (s *Server) handleContinueWatching(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	entries, err := s.continues.List(r.Context(), limit)
	if err != nil {
		httpjson.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []domain.ContinueWatchingEntry{}
	}
	httpjson.Write(w, http.StatusOK, map[string]any{"entries": entries})
}
