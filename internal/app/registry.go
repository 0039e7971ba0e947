package app

import (
	"math/rand/v2"
	"net/url"
	"strings"

	"github.com/mizukiro/anibridge/internal/domain"
)

// Registry est la table, purement descriptive, des sources supportées.
// Ajouter un provider = ajouter une entrée ici; aucun switch ailleurs.
type Registry struct {
	specs map[domain.ProviderID]domain.ProviderSpec
	order []domain.ProviderID
}

func NewRegistry() *Registry {
	r := &Registry{specs: map[domain.ProviderID]domain.ProviderSpec{}}
	for _, s := range builtinProviders() {
		r.specs[s.ID] = s
		r.order = append(r.order, s.ID)
	}
	return r
}

// Lookup renvoie no_source_selected pour un id vide ou inconnu: jamais de
// défaut silencieux.
func (r *Registry) Lookup(id domain.ProviderID) (domain.ProviderSpec, error) {
	if strings.TrimSpace(string(id)) == "" {
		return domain.ProviderSpec{}, coded(CodeNoSourceSelected, "no source selected", nil)
	}
	s, ok := r.specs[id]
	if !ok {
		return domain.ProviderSpec{}, coded(CodeNoSourceSelected, "unknown source: "+string(id), nil)
	}
	return s, nil
}

// BaseURL choisit un mirror au hasard quand il y en a plusieurs. C'est une
// politique d'étalement de charge voulue, pas un round-robin garanti.
func (r *Registry) BaseURL(id domain.ProviderID) (string, error) {
	s, err := r.Lookup(id)
	if err != nil {
		return "", err
	}
	if len(s.Mirrors) == 1 {
		return s.Mirrors[0], nil
	}
	return s.Mirrors[rand.IntN(len(s.Mirrors))], nil
}

func (r *Registry) All() []domain.ProviderSpec {
	out := make([]domain.ProviderSpec, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.specs[id])
	}
	return out
}

// JoinHref construit l'URL de requête depuis base + référence selon la
// règle du provider. Certains providers veulent la ref telle quelle, d'autres
// un identifiant extrait d'un paramètre de query.
func JoinHref(base, ref string, rule domain.HrefJoinRule) (string, error) {
	b, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", coded(CodeNetwork, "invalid base url", err)
	}

	ref = extractJoinID(ref, rule)

	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref, nil
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return b.String() + ref, nil
}

// extractJoinID isole l'identifiant d'une référence porteuse d'un marqueur
// de query ("id=", "?ep=") pour les providers qui en ont besoin; les autres
// règles renvoient la référence telle quelle.
func extractJoinID(ref string, rule domain.HrefJoinRule) string {
	var param string
	switch rule {
	case domain.JoinIDQuery:
		param = "id"
	case domain.JoinEpQuery:
		param = "ep"
	default:
		return ref
	}
	if u, err := url.Parse(ref); err == nil {
		if v := u.Query().Get(param); v != "" {
			return v
		}
	}
	return ref
}

func builtinProviders() []domain.ProviderSpec {
	return []domain.ProviderSpec{
		{
			ID:      domain.ProviderAnimeWorld,
			Name:    "AnimeWorld",
			Mirrors: []string{"https://www.animeworld.ac", "https://www.animeworld.so"},
			Detail:  domain.DetailHTML, Episodes: domain.EpisodesElements,
			Stream: domain.StreamScrape, Join: domain.JoinAppend,
			Selectors: domain.DetailSelectors{
				Title:           "h1.title",
				Aliases:         "h2.alternative-titles",
				Synopsis:        "div.desc div.long",
				AirDate:         "dl.meta dd.air-date",
				Rating:          "dl.meta dd.rating span.score",
				Cover:           "div.thumb img",
				EpisodeItem:     "div.server.active ul.episodes li.episode a",
				EpisodeHrefAttr: "href",
			},
			StreamSel: domain.StreamSelectors{
				VideoSource:    "div#player video source",
				DownloadAnchor: "a#alternativeDownloadLink, a[href$='.mp4']",
			},
		},
		{
			ID:      domain.ProviderGoGoAnime,
			Name:    "GoGoAnime",
			Mirrors: []string{"https://gogoanime.gr", "https://anitaku.to"},
			Detail:  domain.DetailHTML, Episodes: domain.EpisodesRange,
			Stream: domain.StreamIframe, Join: domain.JoinAppend,
			Selectors: domain.DetailSelectors{
				Title:      "div.anime_info_body_bg h1",
				Aliases:    "p.type.other-name a",
				Synopsis:   "div.description",
				AirDate:    "p.type.released",
				Rating:     "p.type.rating",
				Cover:      "div.anime_info_body_bg img",
				RangeLabel: "ul#episode_page li a.active",
			},
			StreamSel: domain.StreamSelectors{
				Iframe: "div.play-video iframe",
			},
			EpisodeHrefTemplate: "/%s-episode-%d",
		},
		{
			ID:      domain.ProviderAnimeFox,
			Name:    "AnimeFox",
			Mirrors: []string{"https://animefox.sh"},
			Detail:  domain.DetailHTML, Episodes: domain.EpisodesFilmsSplit,
			Stream: domain.StreamAttr, Join: domain.JoinIDQuery,
			Selectors: domain.DetailSelectors{
				Title:           "h1.film-name",
				Aliases:         "div.anisc-info span.alias",
				Synopsis:        "div.film-description",
				AirDate:         "div.anisc-info span.item-aired",
				Rating:          "div.film-stats span.tick-pg",
				Cover:           "div.film-poster img",
				EpisodeItem:     "div.ss-list a.ssl-item",
				EpisodeHrefAttr: "href",
			},
			StreamSel: domain.StreamSelectors{
				Attr:     "div#player-holder div.player-frame",
				AttrName: "data-video-src",
			},
		},
		{
			ID:      domain.ProviderAniWatch,
			Name:    "AniWatch",
			Mirrors: []string{"https://aniwatch.cc"},
			Detail:  domain.DetailJSON, Episodes: domain.EpisodesJSONArray,
			Stream: domain.StreamAPI2Hop, Join: domain.JoinEpQuery,
			API: domain.APIEndpoints{
				Detail:  "/api/v2/anime/%s",
				Servers: "/api/v2/episode/servers?episodeId=%s",
				Sources: "/api/v2/episode/sources?episodeId=%s&category=%s&server=%s",
			},
		},
		{
			ID:      domain.ProviderAnimeSaturn,
			Name:    "AnimeSaturn",
			Mirrors: []string{"https://www.animesaturn.cx", "https://www.animesaturn.mx"},
			Detail:  domain.DetailHTMLSeasons, Episodes: domain.EpisodesSeasons,
			Stream: domain.StreamManifest, Join: domain.JoinAppend,
			Selectors: domain.DetailSelectors{
				Title:           "div.container h1.anime-title",
				Aliases:         "div.box-trasparente span.alias",
				Synopsis:        "div#synopsis div.synopsis-text",
				AirDate:         "div.anime-info span.release-date",
				Rating:          "div.anime-info span.rating",
				Cover:           "div.cover-anime img.img-fluid",
				SeasonLink:      "div.seasons-tab a.season-link",
				EpisodeItem:     "div.episodes-button a.bottone-ep",
				EpisodeHrefAttr: "href",
			},
			StreamSel: domain.StreamSelectors{
				ManifestSource: "video#player-hls source",
			},
		},
		{
			ID:      domain.ProviderAnimePahe,
			Name:    "AnimePahe",
			Mirrors: []string{"https://animepahe.ru"},
			Detail:  domain.DetailHTML, Episodes: domain.EpisodesElements,
			Stream: domain.StreamRedirect, Join: domain.JoinAppend,
			Selectors: domain.DetailSelectors{
				Title:           "div.title-wrapper h1",
				Aliases:         "div.title-wrapper h2.japanese",
				Synopsis:        "div.anime-synopsis",
				AirDate:         "div.anime-info p.aired",
				Rating:          "div.anime-info p.score",
				Cover:           "div.anime-poster img",
				EpisodeItem:     "div.episode-list a.play",
				EpisodeHrefAttr: "href",
			},
		},
	}
}
