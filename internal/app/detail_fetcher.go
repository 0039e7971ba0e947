package app

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/mizukiro/anibridge/internal/domain"
)

// DetailFetcher récupère et décode la fiche d'un titre (métadonnées + liste
// d'épisodes) pour un provider donné. Pas de cache, pas de retry: une fiche
// est refetchée entière à chaque ouverture.
type DetailFetcher struct {
	reg    *Registry
	fetch  *FetchClient
	logger zerolog.Logger
}

func NewDetailFetcher(reg *Registry, fetch *FetchClient, logger zerolog.Logger) *DetailFetcher {
	return &DetailFetcher{reg: reg, fetch: fetch, logger: logger}
}

// Fetch renvoie la fiche, ou une erreur "detail fetch failed" portant la
// cause (réseau, statut, parse). La liste d'épisodes est plate, dédupliquée
// et NON triée; le tri appartient à l'appelant (domain.SortEpisodes).
func (f *DetailFetcher) Fetch(ctx context.Context, provider domain.ProviderID, ref string) (domain.TitleDetail, error) {
	spec, err := f.reg.Lookup(provider)
	if err != nil {
		return domain.TitleDetail{}, err
	}
	base, err := f.reg.BaseURL(provider)
	if err != nil {
		return domain.TitleDetail{}, err
	}

	var detail domain.TitleDetail
	switch spec.Detail {
	case domain.DetailJSON:
		detail, err = f.fetchJSONDetail(ctx, spec, base, ref)
	case domain.DetailHTMLSeasons:
		detail, err = f.fetchSeasonsDetail(ctx, spec, base, ref)
	default:
		detail, err = f.fetchHTMLDetail(ctx, spec, base, ref)
	}
	if err != nil {
		return domain.TitleDetail{}, fmt.Errorf("detail fetch failed: %w", err)
	}

	detail.Episodes = domain.DedupeEpisodes(detail.Episodes)
	f.logger.Debug().
		Str("provider", string(provider)).
		Str("ref", ref).
		Int("episodes", len(detail.Episodes)).
		Msg("detail fetched")
	return detail, nil
}

func (f *DetailFetcher) fetchHTMLDetail(ctx context.Context, spec domain.ProviderSpec, base, ref string) (domain.TitleDetail, error) {
	pageURL, err := JoinHref(base, ref, spec.Join)
	if err != nil {
		return domain.TitleDetail{}, err
	}
	doc, _, err := f.fetch.GetDocument(ctx, pageURL, base)
	if err != nil {
		return domain.TitleDetail{}, err
	}

	detail := metadataFromDoc(doc, spec.Selectors, pageURL)

	switch spec.Episodes {
	case domain.EpisodesRange:
		detail.Episodes, err = episodesFromRange(doc, spec, ref)
	case domain.EpisodesFilmsSplit:
		detail.Episodes, err = episodesFilmsSplit(doc, spec.Selectors)
	default:
		detail.Episodes, err = episodesFromElements(doc, spec.Selectors)
	}
	if err != nil {
		return domain.TitleDetail{}, err
	}
	return detail, nil
}

func metadataFromDoc(doc *goquery.Document, sel domain.DetailSelectors, pageURL string) domain.TitleDetail {
	text := func(s string) string {
		if s == "" {
			return ""
		}
		return strings.TrimSpace(doc.Find(s).First().Text())
	}
	detail := domain.TitleDetail{
		Title:    text(sel.Title),
		Aliases:  text(sel.Aliases),
		Synopsis: text(sel.Synopsis),
		AirDate:  text(sel.AirDate),
		Rating:   text(sel.Rating),
	}
	if sel.Cover != "" {
		if src, ok := doc.Find(sel.Cover).First().Attr("src"); ok && strings.TrimSpace(src) != "" {
			cover := fixSchemeRelative(strings.TrimSpace(src))
			if baseU, err := url.Parse(pageURL); err == nil {
				if abs, ok := resolveAgainst(baseU, cover); ok {
					cover = abs
				}
			}
			detail.CoverURL = cover
		}
	}
	return detail
}
