package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mizukiro/anibridge/internal/adapters/memorybus"
	"github.com/mizukiro/anibridge/internal/adapters/remoteplayer"
	"github.com/mizukiro/anibridge/internal/adapters/sqlite"
	"github.com/mizukiro/anibridge/internal/app"
	"github.com/mizukiro/anibridge/internal/domain"
)

func newTestServer(t *testing.T, onSettingsUpdated func(domain.Settings)) http.Handler {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger := zerolog.Nop()
	settingsSvc := app.NewSettingsService(sqlite.NewSettingsRepository(db.SQL))
	progressRepo := sqlite.NewProgressRepository(db.SQL)
	continueRepo := sqlite.NewContinueWatchingRepository(db.SQL)

	registry := app.NewRegistry()
	fetch := app.NewFetchClient(logger, 2)
	details := app.NewDetailFetcher(registry, fetch, logger)
	resolver := app.NewStreamResolver(registry, fetch, logger)

	tracker := app.NewTrackerService(settingsSvc.Get)
	syncSvc := app.NewProgressSyncService(tracker, settingsSvc.Get, logger)

	bus := memorybus.New()
	player := remoteplayer.New(bus)
	coordinator := app.NewCoordinator(logger, resolver, progressRepo, continueRepo, settingsSvc.Get, syncSvc, player, bus)

	srv := NewServer(logger, registry, details, resolver, coordinator, settingsSvc, continueRepo, player, bus, onSettingsUpdated)
	return srv.Router()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body []byte) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	out := map[string]json.RawMessage{}
	_ = json.Unmarshal(rr.Body.Bytes(), &out)
	return rr, out
}

func TestServer_Health(t *testing.T) {
	h := newTestServer(t, nil)
	rr, _ := doJSON(t, h, http.MethodGet, "/api/v1/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: %d", rr.Code)
	}
}

func TestServer_ProvidersListsBuiltins(t *testing.T) {
	h := newTestServer(t, nil)
	rr, out := doJSON(t, h, http.MethodGet, "/api/v1/providers", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: %d", rr.Code)
	}
	var providers []struct {
		ID       string   `json:"id"`
		Name     string   `json:"name"`
		Mirrors  []string `json:"mirrors"`
		Strategy string   `json:"strategy"`
	}
	if err := json.Unmarshal(out["providers"], &providers); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(providers) != 6 {
		t.Fatalf("want 6 providers, got %d", len(providers))
	}
	if providers[0].ID != string(domain.ProviderAnimeWorld) || len(providers[0].Mirrors) == 0 {
		t.Fatalf("unexpected first provider: %+v", providers[0])
	}
}

func TestServer_DetailUnknownProviderIsBadRequest(t *testing.T) {
	h := newTestServer(t, nil)
	rr, _ := doJSON(t, h, http.MethodGet, "/api/v1/providers/nonexistent/detail?ref=/x", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: want 400, got %d", rr.Code)
	}
	var e struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &e)
	if e.Error.Code != app.CodeNoSourceSelected {
		t.Fatalf("code: want %s, got %q (body %s)", app.CodeNoSourceSelected, e.Error.Code, rr.Body.String())
	}
}

func TestServer_DetailMissingRefIsBadRequest(t *testing.T) {
	h := newTestServer(t, nil)
	rr, _ := doJSON(t, h, http.MethodGet, "/api/v1/providers/animeworld/detail", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: want 400, got %d", rr.Code)
	}
}

func TestServer_ResolveMissingHrefIsBadRequest(t *testing.T) {
	h := newTestServer(t, nil)
	rr, _ := doJSON(t, h, http.MethodPost, "/api/v1/resolve", []byte(`{"provider":"animeworld"}`))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: want 400, got %d", rr.Code)
	}
}

func TestServer_SessionNextWithoutSessionConflicts(t *testing.T) {
	h := newTestServer(t, nil)
	rr, _ := doJSON(t, h, http.MethodPost, "/api/v1/session/next", []byte(`{}`))
	if rr.Code != http.StatusConflict {
		t.Fatalf("status: want 409, got %d", rr.Code)
	}
}

func TestServer_SessionSnapshotStartsIdle(t *testing.T) {
	h := newTestServer(t, nil)
	rr, _ := doJSON(t, h, http.MethodGet, "/api/v1/session/", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: %d", rr.Code)
	}
	var snap struct {
		State string `json:"state"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &snap)
	if snap.State != "idle" {
		t.Fatalf("state: want idle, got %q", snap.State)
	}
}

func TestServer_SessionProgressAndEndedReportsAccepted(t *testing.T) {
	h := newTestServer(t, nil)
	rr, _ := doJSON(t, h, http.MethodPost, "/api/v1/session/progress", []byte(`{"currentSeconds":12,"durationSeconds":1400}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("progress status: %d", rr.Code)
	}
	rr, _ = doJSON(t, h, http.MethodPost, "/api/v1/session/ended", []byte(`{"reason":"finished"}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("ended status: %d", rr.Code)
	}
}

func TestServer_ContinueWatchingEmptyList(t *testing.T) {
	h := newTestServer(t, nil)
	rr, out := doJSON(t, h, http.MethodGet, "/api/v1/continue-watching", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: %d", rr.Code)
	}
	if string(out["entries"]) != "[]" {
		t.Fatalf("entries: want [], got %s", out["entries"])
	}
}

func TestServer_SettingsPutTriggersCallback(t *testing.T) {
	var got domain.Settings
	h := newTestServer(t, func(updated domain.Settings) { got = updated })

	body := []byte(`{"provider":"aniwatch","preferredQuality":"720p","preferredAudio":"dub","autoPlay":true,"maxConcurrentFetches":6}`)
	rr, _ := doJSON(t, h, http.MethodPut, "/api/v1/settings", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: %d (%s)", rr.Code, rr.Body.String())
	}
	if got.Provider != domain.ProviderAniWatch || got.MaxConcurrentFetches != 6 {
		t.Fatalf("callback settings: %+v", got)
	}

	rr, _ = doJSON(t, h, http.MethodGet, "/api/v1/settings", nil)
	var st domain.Settings
	_ = json.Unmarshal(rr.Body.Bytes(), &st)
	if st.PreferredQuality != "720p" || st.PreferredAudio != "dub" {
		t.Fatalf("persisted settings: %+v", st)
	}
}

func TestWriteAppError_ChoiceRequiredIsConflictWithOptions(t *testing.T) {
	rr := httptest.NewRecorder()
	writeAppError(rr, &app.ChoiceRequiredError{Kind: "server", Options: []string{"alpha", "beta"}})
	if rr.Code != http.StatusConflict {
		t.Fatalf("status: want 409, got %d", rr.Code)
	}
	var body struct {
		ChoiceRequired struct {
			Kind    string   `json:"kind"`
			Options []string `json:"options"`
		} `json:"choiceRequired"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ChoiceRequired.Kind != "server" || len(body.ChoiceRequired.Options) != 2 {
		t.Fatalf("payload: %s", rr.Body.String())
	}
}

func TestWriteAppError_CodeMapping(t *testing.T) {
	cases := []struct {
		code string
		want int
	}{
		{app.CodeNoSourceSelected, http.StatusBadRequest},
		{app.CodeNoCandidates, http.StatusNotFound},
		{app.CodeNetwork, http.StatusBadGateway},
		{app.CodeHTTPStatus, http.StatusBadGateway},
		{app.CodeParse, http.StatusBadGateway},
		{app.CodeSync, http.StatusBadGateway},
	}
	for _, c := range cases {
		rr := httptest.NewRecorder()
		writeAppError(rr, &app.CodedError{Code: c.code, Message: "boom"})
		if rr.Code != c.want {
			t.Fatalf("%s: want %d, got %d", c.code, c.want, rr.Code)
		}
	}
}
