package app

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/mizukiro/anibridge/internal/domain"
)

// episodesFromElements: un élément DOM = un épisode.
func episodesFromElements(doc *goquery.Document, sel domain.DetailSelectors) ([]domain.Episode, error) {
	if sel.EpisodeItem == "" {
		return nil, coded(CodeParse, "no episode selector configured", nil)
	}
	hrefAttr := sel.EpisodeHrefAttr
	if hrefAttr == "" {
		hrefAttr = "href"
	}

	var eps []domain.Episode
	doc.Find(sel.EpisodeItem).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr(hrefAttr)
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		num := strings.TrimSpace(s.Text())
		if num == "" {
			num, _ = s.Attr("data-number")
		}
		title, _ := s.Attr("title")
		dl, _ := s.Attr("data-download")
		eps = append(eps, domain.Episode{
			Number:      num,
			Title:       strings.TrimSpace(title),
			Href:        strings.TrimSpace(href),
			DownloadURL: strings.TrimSpace(dl),
		})
	})
	if len(eps) == 0 {
		return nil, coded(CodeParse, "episode list empty or markup changed", nil)
	}
	return eps, nil
}

var reEpisodeRange = regexp.MustCompile(`(\d+)\s*-\s*(\d+)`)

// episodesFromRange développe un libellé "start-end" en un épisode par
// entier. Le début est borné à 1 et un éventuel épisode "0" est filtré
// (bizarrerie connue des pages type GoGoAnime).
func episodesFromRange(doc *goquery.Document, spec domain.ProviderSpec, ref string) ([]domain.Episode, error) {
	label := strings.TrimSpace(doc.Find(spec.Selectors.RangeLabel).Last().Text())
	m := reEpisodeRange.FindStringSubmatch(label)
	if m == nil {
		return nil, coded(CodeParse, "episode range label not found", nil)
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	if start < 1 {
		start = 1
	}
	if end < start {
		return nil, coded(CodeParse, "invalid episode range "+label, nil)
	}

	slug := strings.TrimPrefix(strings.Trim(ref, "/"), "category/")
	eps := make([]domain.Episode, 0, end-start+1)
	for n := start; n <= end; n++ {
		if n == 0 {
			continue
		}
		eps = append(eps, domain.Episode{
			Number: strconv.Itoa(n),
			Href:   fmt.Sprintf(spec.EpisodeHrefTemplate, slug, n),
		})
	}
	return eps, nil
}

// episodesFilmsSplit sépare les entrées numérotées des films/spéciaux: les
// entrées sans numéro sont comptées à part et renumérotées "Filme K".
func episodesFilmsSplit(doc *goquery.Document, sel domain.DetailSelectors) ([]domain.Episode, error) {
	all, err := episodesFromElements(doc, sel)
	if err != nil {
		return nil, err
	}
	var numbered, films []domain.Episode
	filmCount := 0
	for _, e := range all {
		if _, ok := domain.EpisodeNumberValue(e.Number); ok {
			numbered = append(numbered, e)
			continue
		}
		filmCount++
		e.Title = e.Number
		e.Number = "Filme " + strconv.Itoa(filmCount)
		films = append(films, e)
	}
	return append(numbered, films...), nil
}

// fetchSeasonsDetail: les providers multi-saisons paginent la liste par
// saison. Les N pages saison sont fetchées en parallèle (fan-out errgroup)
// puis fusionnées; l'appel lui-même reste bloquant pour son caller.
func (f *DetailFetcher) fetchSeasonsDetail(ctx context.Context, spec domain.ProviderSpec, base, ref string) (domain.TitleDetail, error) {
	pageURL, err := JoinHref(base, ref, spec.Join)
	if err != nil {
		return domain.TitleDetail{}, err
	}
	doc, _, err := f.fetch.GetDocument(ctx, pageURL, base)
	if err != nil {
		return domain.TitleDetail{}, err
	}

	detail := metadataFromDoc(doc, spec.Selectors, pageURL)

	var seasonHrefs []string
	doc.Find(spec.Selectors.SeasonLink).Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok && strings.TrimSpace(href) != "" {
			seasonHrefs = append(seasonHrefs, strings.TrimSpace(href))
		}
	})

	// Pas de pagination: la page racine porte la liste.
	if len(seasonHrefs) == 0 {
		detail.Episodes, err = episodesFromElements(doc, spec.Selectors)
		if err != nil {
			return domain.TitleDetail{}, err
		}
		return detail, nil
	}

	perSeason := make([][]domain.Episode, len(seasonHrefs))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for i, href := range seasonHrefs {
		g.Go(func() error {
			seasonURL, jerr := JoinHref(base, href, domain.JoinAppend)
			if jerr != nil {
				return jerr
			}
			sdoc, _, ferr := f.fetch.GetDocument(gctx, seasonURL, pageURL)
			if ferr != nil {
				return ferr
			}
			eps, perr := episodesFromElements(sdoc, spec.Selectors)
			if perr != nil {
				return perr
			}
			mu.Lock()
			perSeason[i] = eps
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.TitleDetail{}, err
	}

	for _, eps := range perSeason {
		detail.Episodes = append(detail.Episodes, eps...)
	}
	if len(detail.Episodes) == 0 {
		return domain.TitleDetail{}, coded(CodeParse, "no episodes across seasons", nil)
	}
	return detail, nil
}

// Réponses JSON typées (pas d'accès dictionnaire stringly-typed): un échec
// de décodage est un parse_error.
type apiDetailResponse struct {
	Title    string       `json:"title"`
	Synonyms []string     `json:"synonyms"`
	Synopsis string       `json:"synopsis"`
	Aired    string       `json:"aired"`
	Rating   string       `json:"rating"`
	Poster   string       `json:"poster"`
	Episodes []apiEpisode `json:"episodes"`
}

type apiEpisode struct {
	Number string `json:"number"`
	Title  string `json:"title"`
	ID     string `json:"episodeId"`
}

func (f *DetailFetcher) fetchJSONDetail(ctx context.Context, spec domain.ProviderSpec, base, ref string) (domain.TitleDetail, error) {
	id := extractJoinID(ref, spec.Join)
	apiURL := strings.TrimRight(base, "/") + fmt.Sprintf(spec.API.Detail, id)

	var resp apiDetailResponse
	if err := f.fetch.GetJSON(ctx, apiURL, base, &resp); err != nil {
		return domain.TitleDetail{}, err
	}
	if len(resp.Episodes) == 0 {
		return domain.TitleDetail{}, coded(CodeParse, "api response has no episodes", nil)
	}

	detail := domain.TitleDetail{
		Title:    resp.Title,
		Aliases:  strings.Join(resp.Synonyms, ", "),
		Synopsis: resp.Synopsis,
		AirDate:  resp.Aired,
		Rating:   resp.Rating,
		CoverURL: resp.Poster,
	}
	for _, e := range resp.Episodes {
		detail.Episodes = append(detail.Episodes, domain.Episode{
			Number: e.Number,
			Title:  e.Title,
			Href:   e.ID,
		})
	}
	return detail, nil
}
