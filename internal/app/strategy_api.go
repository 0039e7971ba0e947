package app

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mizukiro/anibridge/internal/domain"
)

// Réponses typées du provider JSON-API (2 hops: servers puis sources).

type apiServersResponse struct {
	Raw []apiServer `json:"raw"`
	Sub []apiServer `json:"sub"`
	Dub []apiServer `json:"dub"`
}

type apiServer struct {
	Name string `json:"serverName"`
}

type apiSourcesResponse struct {
	Sources []apiSource `json:"sources"`
	Tracks  []apiTrack  `json:"tracks"`
}

type apiSource struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

type apiTrack struct {
	File  string `json:"file"`
	Kind  string `json:"kind"`
	Label string `json:"label"`
}

// resolveAPI2Hop: hop 1 énumère catégories audio (raw/sub/dub) × serveurs,
// la sélection suit la politique commune (exact / unique / prompt), hop 2
// donne l'URL finale plus d'éventuelles pistes de sous-titres.
func (r *StreamResolver) resolveAPI2Hop(ctx context.Context, spec domain.ProviderSpec, base string, req ResolveRequest) (domain.StreamCandidate, error) {
	episodeID := extractJoinID(req.Href, spec.Join)
	serversURL := strings.TrimRight(base, "/") + fmt.Sprintf(spec.API.Servers, url.QueryEscape(episodeID))

	var servers apiServersResponse
	if err := r.fetch.GetJSON(ctx, serversURL, base, &servers); err != nil {
		return domain.StreamCandidate{}, err
	}

	byCategory := map[string][]apiServer{}
	var categories []string
	for _, c := range []struct {
		name string
		list []apiServer
	}{{"raw", servers.Raw}, {"sub", servers.Sub}, {"dub", servers.Dub}} {
		if len(c.list) > 0 {
			categories = append(categories, c.name)
			byCategory[c.name] = c.list
		}
	}
	if len(categories) == 0 {
		return domain.StreamCandidate{}, coded(CodeNoCandidates, "no audio categories for episode", nil)
	}

	category, err := SelectOption(ctx, "category", req.Prefs.Audio, categories, req.Prompt)
	if err != nil {
		return domain.StreamCandidate{}, err
	}

	names := make([]string, 0, len(byCategory[category]))
	for _, s := range byCategory[category] {
		names = append(names, s.Name)
	}
	server, err := SelectOption(ctx, "server", req.Prefs.Server, names, req.Prompt)
	if err != nil {
		return domain.StreamCandidate{}, err
	}

	sourcesURL := strings.TrimRight(base, "/") + fmt.Sprintf(spec.API.Sources,
		url.QueryEscape(episodeID), url.QueryEscape(category), url.QueryEscape(server))

	var sources apiSourcesResponse
	if err := r.fetch.GetJSON(ctx, sourcesURL, base, &sources); err != nil {
		return domain.StreamCandidate{}, err
	}
	if len(sources.Sources) == 0 {
		return domain.StreamCandidate{}, coded(CodeNoCandidates, "server returned no sources", nil)
	}

	cand := domain.StreamCandidate{URL: sources.Sources[0].URL}
	for _, t := range sources.Tracks {
		if strings.EqualFold(t.Kind, "captions") {
			cand.SubtitleURL = t.File
			break
		}
	}
	return cand, nil
}
