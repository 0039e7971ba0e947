package app

import (
	"context"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mizukiro/anibridge/internal/domain"
)

// Fallback regex: le parse structuré peut échouer sur des fragments
// malformés alors que la page reste exploitable en recherche de chaîne.
// mp4 d'abord, m3u8 ensuite.
var (
	reMP4URL  = regexp.MustCompile(`(?i)(https?:)?//[^\s"'<>]+\.mp4(\?[^\s"'<>]*)?`)
	reM3U8URL = regexp.MustCompile(`(?i)(https?:)?//[^\s"'<>]+\.m3u8(\?[^\s"'<>]*)?`)
)

func looksLikeMediaURL(u string) bool {
	lu := strings.ToLower(u)
	return strings.Contains(lu, ".mp4") || strings.Contains(lu, ".m3u8")
}

// scanRawForMedia cherche une URL média dans du HTML brut, après
// normalisation des échappements JS/JSON courants.
func scanRawForMedia(raw []byte) (string, bool) {
	text := string(raw)
	text = strings.ReplaceAll(text, `\/`, "/")
	text = strings.ReplaceAll(text, "&amp;", "&")

	if m := reMP4URL.FindString(text); m != "" {
		return fixSchemeRelative(m), true
	}
	if m := reM3U8URL.FindString(text); m != "" {
		return fixSchemeRelative(m), true
	}
	return "", false
}

// resolveScrape: <video><source src> direct, fallback regex sur le HTML brut.
func (r *StreamResolver) resolveScrape(ctx context.Context, spec domain.ProviderSpec, base string, req ResolveRequest) (domain.StreamCandidate, error) {
	pageURL, err := JoinHref(base, req.Href, spec.Join)
	if err != nil {
		return domain.StreamCandidate{}, err
	}
	doc, raw, err := r.fetch.GetDocument(ctx, pageURL, base)
	if err != nil && doc == nil && raw == nil {
		return domain.StreamCandidate{}, err
	}

	if doc != nil {
		if src, ok := doc.Find(spec.StreamSel.VideoSource).First().Attr("src"); ok && strings.TrimSpace(src) != "" {
			return domain.StreamCandidate{URL: fixSchemeRelative(strings.TrimSpace(src))}, nil
		}
	}
	if u, ok := scanRawForMedia(raw); ok {
		return domain.StreamCandidate{URL: u}, nil
	}
	return domain.StreamCandidate{}, coded(CodeNoCandidates, "no media url on episode page", nil)
}

// resolveIframe: l'iframe est le hop suivant. Les src scheme-relative
// ("//cdn/...") sont corrigés en https. Si le hop n'est pas déjà une URL
// média, sa page est fetchée et fouillée à son tour (profondeur bornée).
func (r *StreamResolver) resolveIframe(ctx context.Context, spec domain.ProviderSpec, base string, req ResolveRequest) (domain.StreamCandidate, error) {
	pageURL, err := JoinHref(base, req.Href, spec.Join)
	if err != nil {
		return domain.StreamCandidate{}, err
	}
	doc, raw, err := r.fetch.GetDocument(ctx, pageURL, base)
	if err != nil && doc == nil && raw == nil {
		return domain.StreamCandidate{}, err
	}

	var hop string
	if doc != nil {
		if src, ok := doc.Find(spec.StreamSel.Iframe).First().Attr("src"); ok {
			hop = strings.TrimSpace(src)
		}
	}
	if hop == "" {
		// Même fallback que le scrape direct: iframe par regex.
		if m := regexp.MustCompile(`(?i)<iframe[^>]+src=['"]([^'"]+)['"]`).FindSubmatch(raw); m != nil {
			hop = strings.TrimSpace(string(m[1]))
		}
	}
	if hop == "" {
		return domain.StreamCandidate{}, coded(CodeNoCandidates, "no iframe on episode page", nil)
	}

	hop = fixSchemeRelative(hop)
	if baseU, perr := url.Parse(pageURL); perr == nil {
		if abs, ok := resolveAgainst(baseU, hop); ok {
			hop = abs
		}
	}
	if looksLikeMediaURL(hop) {
		return domain.StreamCandidate{URL: hop}, nil
	}
	return r.followHop(ctx, hop, pageURL, 2)
}

// followHop fouille une page embed pour une URL média, en suivant au plus
// depth indirections iframe supplémentaires. Quand rien n'est trouvé, le
// hop lui-même est rendu: certains embeds sont directement jouables.
func (r *StreamResolver) followHop(ctx context.Context, hopURL, referer string, depth int) (domain.StreamCandidate, error) {
	doc, raw, err := r.fetch.GetDocument(ctx, hopURL, referer)
	if err != nil && doc == nil && raw == nil {
		return domain.StreamCandidate{URL: hopURL}, nil
	}
	if u, ok := scanRawForMedia(raw); ok {
		return domain.StreamCandidate{URL: u}, nil
	}
	if depth > 0 && doc != nil {
		if src, ok := doc.Find("iframe").First().Attr("src"); ok && strings.TrimSpace(src) != "" {
			next := fixSchemeRelative(strings.TrimSpace(src))
			if baseU, perr := url.Parse(hopURL); perr == nil {
				if abs, ok := resolveAgainst(baseU, next); ok {
					next = abs
				}
			}
			if next != hopURL {
				return r.followHop(ctx, next, hopURL, depth-1)
			}
		}
	}
	return domain.StreamCandidate{URL: hopURL}, nil
}

// resolveAttr: l'URL est portée telle quelle par un attribut data-*.
func (r *StreamResolver) resolveAttr(ctx context.Context, spec domain.ProviderSpec, base string, req ResolveRequest) (domain.StreamCandidate, error) {
	pageURL, err := JoinHref(base, req.Href, spec.Join)
	if err != nil {
		return domain.StreamCandidate{}, err
	}
	doc, _, err := r.fetch.GetDocument(ctx, pageURL, base)
	if err != nil && doc == nil {
		return domain.StreamCandidate{}, err
	}
	src, ok := doc.Find(spec.StreamSel.Attr).First().Attr(spec.StreamSel.AttrName)
	if !ok || strings.TrimSpace(src) == "" {
		return domain.StreamCandidate{}, coded(CodeNoCandidates, "attribute "+spec.StreamSel.AttrName+" absent", nil)
	}
	return domain.StreamCandidate{URL: fixSchemeRelative(strings.TrimSpace(src))}, nil
}

// resolveDownload: ancres host+extension de la page épisode. Plusieurs
// candidats se départagent par nom de fichier via le prompt.
func (r *StreamResolver) resolveDownload(ctx context.Context, spec domain.ProviderSpec, base string, req ResolveRequest) (domain.StreamCandidate, error) {
	if spec.StreamSel.DownloadAnchor == "" {
		return domain.StreamCandidate{}, coded(CodeNoCandidates, "provider has no download links", nil)
	}
	pageURL, err := JoinHref(base, req.Href, spec.Join)
	if err != nil {
		return domain.StreamCandidate{}, err
	}
	doc, _, err := r.fetch.GetDocument(ctx, pageURL, base)
	if err != nil && doc == nil {
		return domain.StreamCandidate{}, err
	}

	baseU, _ := url.Parse(pageURL)
	var variants []domain.QualityVariant
	doc.Find(spec.StreamSel.DownloadAnchor).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		abs, ok := resolveAgainst(baseU, strings.TrimSpace(href))
		if !ok {
			return
		}
		label := abs
		if u, perr := url.Parse(abs); perr == nil {
			label = path.Base(u.Path)
		}
		variants = append(variants, domain.QualityVariant{Label: label, URL: abs})
	})
	if len(variants) == 0 {
		return domain.StreamCandidate{}, coded(CodeNoCandidates, "no download links on episode page", nil)
	}

	chosen, err := SelectVariant(ctx, "download", "", variants, req.Prompt)
	if err != nil {
		return domain.StreamCandidate{}, err
	}
	return domain.StreamCandidate{URL: chosen.URL, Variants: variants}, nil
}
