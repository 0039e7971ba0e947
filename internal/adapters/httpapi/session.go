package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/mizukiro/anibridge/internal/app"
	"github.com/mizukiro/anibridge/internal/domain"
	"github.com/mizukiro/anibridge/internal/httpjson"
	"github.com/mizukiro/anibridge/internal/ports"
)

type sessionStartRequest struct {
	Provider domain.ProviderID  `json:"provider"`
	Title    domain.TitleDetail `json:"title"`
	Index    int                `json:"index"`
	Choices  map[string]string  `json:"choices,omitempty"`
}

func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	var req sessionStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.Title.Episodes) == 0 {
		httpjson.WriteError(w, http.StatusBadRequest, "title has no episodes")
		return
	}

	err := s.coordinator.Start(r.Context(), app.StartRequest{
		Provider: req.Provider,
		Title:    req.Title,
		Index:    req.Index,
		Prompt:   choicesPrompt(req.Choices),
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	s.metrics.Sessions.Inc()
	httpjson.Write(w, http.StatusOK, s.coordinator.Snapshot())
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, s.coordinator.Snapshot())
}

func (s *Server) handleSessionNext(w http.ResponseWriter, r *http.Request) {
	if err := s.coordinator.Next(r.Context()); err != nil {
		writeAppError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, s.coordinator.Snapshot())
}

func (s *Server) handleSessionPrevious(w http.ResponseWriter, r *http.Request) {
	if err := s.coordinator.Previous(r.Context()); err != nil {
		writeAppError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, s.coordinator.Snapshot())
}

func (s *Server) handleSessionStop(w http.ResponseWriter, r *http.Request) {
	s.coordinator.Stop()
	httpjson.Write(w, http.StatusOK, s.coordinator.Snapshot())
}

type progressReport struct {
	CurrentSeconds  float64 `json:"currentSeconds"`
	DurationSeconds float64 `json:"durationSeconds"`
}

// handleSessionProgress: le lecteur distant (ou le receiver cast) rapporte
// sa position; le coordinator la consommera à son prochain tick.
func (s *Server) handleSessionProgress(w http.ResponseWriter, r *http.Request) {
	var rep progressReport
	if err := json.NewDecoder(r.Body).Decode(&rep); err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	s.player.Report(rep.CurrentSeconds, rep.DurationSeconds)
	httpjson.Write(w, http.StatusOK, map[string]string{"status": "ok"})
}

type endedReport struct {
	Reason string `json:"reason"`
}

func (s *Server) handleSessionEnded(w http.ResponseWriter, r *http.Request) {
	var rep endedReport
	if err := json.NewDecoder(r.Body).Decode(&rep); err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	reason := ports.EndReason(rep.Reason)
	switch reason {
	case ports.EndFinished, ports.EndDismissed, ports.EndError:
	default:
		reason = ports.EndFinished
	}
	s.player.End(reason)
	httpjson.Write(w, http.StatusOK, map[string]string{"status": "ok"})
}
