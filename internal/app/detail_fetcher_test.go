package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mizukiro/anibridge/internal/domain"
)

func newTestFetcher(r *Registry) *DetailFetcher {
	return NewDetailFetcher(r, NewFetchClient(zerolog.Nop(), 4), zerolog.Nop())
}

func TestDetailFetcher_ElementsStrategy(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body>
			<h1>Great Show</h1>
			<div class="poster"><img src="/img/great-show.jpg"></div>
			<div class="syn">Two kids save the world.</div>
			<ul class="eps">
				<a href="/watch/1">1</a>
				<a href="/watch/2">2</a>
				<a href="/watch/2">2 again</a>
			</ul>
		</body></html>`))
	}))
	defer ts.Close()

	reg := newTestRegistry(domain.ProviderSpec{
		ID: "testprov", Name: "Test",
		Mirrors: []string{ts.URL},
		Detail:  domain.DetailHTML, Episodes: domain.EpisodesElements,
		Join: domain.JoinAppend,
		Selectors: domain.DetailSelectors{
			Title: "h1", Synopsis: "div.syn",
			Cover:       "div.poster img",
			EpisodeItem: "ul.eps a", EpisodeHrefAttr: "href",
		},
	})

	detail, err := newTestFetcher(reg).Fetch(context.Background(), "testprov", "/anime/great-show")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if detail.Title != "Great Show" {
		t.Fatalf("title: got %q", detail.Title)
	}
	if detail.Synopsis != "Two kids save the world." {
		t.Fatalf("synopsis: got %q", detail.Synopsis)
	}
	// L'affiche relative est résolue contre l'URL de la page.
	if detail.CoverURL != ts.URL+"/img/great-show.jpg" {
		t.Fatalf("cover: got %q", detail.CoverURL)
	}
	// Le doublon par href est éliminé.
	if len(detail.Episodes) != 2 {
		t.Fatalf("episodes: want 2, got %d", len(detail.Episodes))
	}
	if detail.Episodes[0].Href != "/watch/1" || detail.Episodes[0].Number != "1" {
		t.Fatalf("unexpected first episode: %+v", detail.Episodes[0])
	}
}

func TestDetailFetcher_RangeStrategyExpandsAndSkipsZero(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body>
			<h1>Ranged Show</h1>
			<ul id="pages"><li><a class="active">0-12</a></li></ul>
		</body></html>`))
	}))
	defer ts.Close()

	reg := newTestRegistry(domain.ProviderSpec{
		ID: "rangeprov", Name: "Range",
		Mirrors: []string{ts.URL},
		Detail:  domain.DetailHTML, Episodes: domain.EpisodesRange,
		Join: domain.JoinAppend,
		Selectors: domain.DetailSelectors{
			Title:      "h1",
			RangeLabel: "ul#pages a.active",
		},
		EpisodeHrefTemplate: "/%s-episode-%d",
	})

	detail, err := newTestFetcher(reg).Fetch(context.Background(), "rangeprov", "/category/ranged-show")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	// "0-12" devient 1..12: pas d'épisode zéro.
	if len(detail.Episodes) != 12 {
		t.Fatalf("episodes: want 12, got %d", len(detail.Episodes))
	}
	if detail.Episodes[0].Number != "1" || detail.Episodes[0].Href != "/ranged-show-episode-1" {
		t.Fatalf("unexpected first episode: %+v", detail.Episodes[0])
	}
	if detail.Episodes[11].Href != "/ranged-show-episode-12" {
		t.Fatalf("unexpected last episode: %+v", detail.Episodes[11])
	}
}

func TestDetailFetcher_FilmsSplitRenumbersUnnumbered(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body>
			<h1 class="film-name">Split Show</h1>
			<div class="ss-list">
				<a class="ssl-item" href="/w?id=1">1</a>
				<a class="ssl-item" href="/w?id=2">2</a>
				<a class="ssl-item" href="/w?id=movie">The Lost Movie</a>
			</div>
		</body></html>`))
	}))
	defer ts.Close()

	reg := newTestRegistry(domain.ProviderSpec{
		ID: "filmprov", Name: "Films",
		Mirrors: []string{ts.URL},
		Detail:  domain.DetailHTML, Episodes: domain.EpisodesFilmsSplit,
		Join: domain.JoinAppend,
		Selectors: domain.DetailSelectors{
			Title:       "h1.film-name",
			EpisodeItem: "div.ss-list a.ssl-item", EpisodeHrefAttr: "href",
		},
	})

	detail, err := newTestFetcher(reg).Fetch(context.Background(), "filmprov", "/anime/split-show")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(detail.Episodes) != 3 {
		t.Fatalf("episodes: want 3, got %d", len(detail.Episodes))
	}
	last := detail.Episodes[2]
	if last.Number != "Filme 1" || last.Title != "The Lost Movie" {
		t.Fatalf("film entry: %+v", last)
	}
}

func TestDetailFetcher_SeasonsStrategyMergesAllSeasons(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/anime/multi":
			_, _ = w.Write([]byte(`<html><body>
				<h1>Multi Season</h1>
				<div class="seasons"><a class="season" href="/anime/multi/s1">S1</a><a class="season" href="/anime/multi/s2">S2</a></div>
			</body></html>`))
		case "/anime/multi/s1":
			_, _ = w.Write([]byte(`<html><body><div class="eps"><a href="/ep/1">1</a><a href="/ep/2">2</a></div></body></html>`))
		case "/anime/multi/s2":
			_, _ = w.Write([]byte(`<html><body><div class="eps"><a href="/ep/3">3</a></div></body></html>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	reg := newTestRegistry(domain.ProviderSpec{
		ID: "seasonprov", Name: "Seasons",
		Mirrors: []string{ts.URL},
		Detail:  domain.DetailHTMLSeasons, Episodes: domain.EpisodesSeasons,
		Join: domain.JoinAppend,
		Selectors: domain.DetailSelectors{
			Title:       "h1",
			SeasonLink:  "div.seasons a.season",
			EpisodeItem: "div.eps a", EpisodeHrefAttr: "href",
		},
	})

	detail, err := newTestFetcher(reg).Fetch(context.Background(), "seasonprov", "/anime/multi")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if detail.Title != "Multi Season" {
		t.Fatalf("title: got %q", detail.Title)
	}
	if len(detail.Episodes) != 3 {
		t.Fatalf("episodes: want 3 merged, got %d", len(detail.Episodes))
	}
	// L'ordre des saisons est préservé malgré le fan-out parallèle.
	if detail.Episodes[0].Href != "/ep/1" || detail.Episodes[2].Href != "/ep/3" {
		t.Fatalf("unexpected merge order: %+v", detail.Episodes)
	}
}

func TestDetailFetcher_JSONStrategy(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/anime/show-42" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"title":"API Show","synonyms":["Alt Name"],"synopsis":"From the API.",
			"poster":"https://img.example/show-42.jpg",
			"episodes":[
				{"number":"1","title":"Pilot","episodeId":"show-42?ep=1001"},
				{"number":"2","title":"Second","episodeId":"show-42?ep=1002"}
			]
		}`))
	}))
	defer ts.Close()

	reg := newTestRegistry(domain.ProviderSpec{
		ID: "apiprov", Name: "API",
		Mirrors: []string{ts.URL},
		Detail:  domain.DetailJSON, Episodes: domain.EpisodesJSONArray,
		Join: domain.JoinAppend,
		API:  domain.APIEndpoints{Detail: "/api/v2/anime/%s"},
	})

	detail, err := newTestFetcher(reg).Fetch(context.Background(), "apiprov", "show-42")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if detail.Title != "API Show" || detail.Aliases != "Alt Name" {
		t.Fatalf("metadata: %+v", detail)
	}
	if detail.CoverURL != "https://img.example/show-42.jpg" {
		t.Fatalf("cover: got %q", detail.CoverURL)
	}
	if len(detail.Episodes) != 2 || detail.Episodes[0].Href != "show-42?ep=1001" {
		t.Fatalf("episodes: %+v", detail.Episodes)
	}
}

func TestDetailFetcher_EmptyEpisodeListIsParseError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><h1>Empty</h1></body></html>`))
	}))
	defer ts.Close()

	reg := newTestRegistry(domain.ProviderSpec{
		ID: "emptyprov", Name: "Empty",
		Mirrors: []string{ts.URL},
		Detail:  domain.DetailHTML, Episodes: domain.EpisodesElements,
		Join: domain.JoinAppend,
		Selectors: domain.DetailSelectors{
			Title:       "h1",
			EpisodeItem: "ul.eps a", EpisodeHrefAttr: "href",
		},
	})

	_, err := newTestFetcher(reg).Fetch(context.Background(), "emptyprov", "/anime/empty")
	if ErrorCode(err) != CodeParse {
		t.Fatalf("want %s, got %v", CodeParse, err)
	}
}

func TestDetailFetcher_HTTPErrorIsStatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	reg := newTestRegistry(domain.ProviderSpec{
		ID: "blockedprov", Name: "Blocked",
		Mirrors: []string{ts.URL},
		Detail:  domain.DetailHTML, Episodes: domain.EpisodesElements,
		Join:    domain.JoinAppend,
		Selectors: domain.DetailSelectors{
			EpisodeItem: "a", EpisodeHrefAttr: "href",
		},
	})

	_, err := newTestFetcher(reg).Fetch(context.Background(), "blockedprov", "/x")
	if ErrorCode(err) != CodeHTTPStatus {
		t.Fatalf("want %s, got %v", CodeHTTPStatus, err)
	}
}
