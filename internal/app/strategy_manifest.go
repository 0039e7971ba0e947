package app

import (
	"bufio"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/mizukiro/anibridge/internal/domain"
)

var reStreamInfResolution = regexp.MustCompile(`RESOLUTION=(\d+)x(\d+)`)

// ParseMasterPlaylist lit un master m3u8: chaque #EXT-X-STREAM-INF est
// apparié à la ligne URI qui le suit, la hauteur de RESOLUTION devient le
// label ("1080p"). Le ladder rendu est trié qualité décroissante.
func ParseMasterPlaylist(manifestURL string, text string) ([]domain.QualityVariant, error) {
	base, err := url.Parse(manifestURL)
	if err != nil {
		return nil, coded(CodeParse, "invalid manifest url", err)
	}

	var variants []domain.QualityVariant
	var pendingLabel string
	haveInf := false

	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#EXT-X-STREAM-INF") {
			haveInf = true
			pendingLabel = ""
			if m := reStreamInfResolution.FindStringSubmatch(line); m != nil {
				if h, err := strconv.Atoi(m[2]); err == nil {
					pendingLabel = fmt.Sprintf("%dp", h)
				}
			}
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		if !haveInf {
			continue
		}
		uri := line
		if abs, ok := resolveAgainst(base, uri); ok {
			uri = abs
		}
		label := pendingLabel
		if label == "" {
			label = "variant " + strconv.Itoa(len(variants)+1)
		}
		variants = append(variants, domain.QualityVariant{Label: label, URL: uri})
		haveInf = false
	}
	if err := sc.Err(); err != nil {
		return nil, coded(CodeParse, "read manifest", err)
	}
	if len(variants) == 0 {
		return nil, coded(CodeNoCandidates, "master playlist has no variants", nil)
	}

	domain.SortVariantsDesc(variants)
	return variants, nil
}

// resolveManifest: la page épisode pointe vers un master m3u8 dont le
// ladder alimente la sélection de qualité. Le candidat rendu garde le
// ladder complet pour un re-choix éventuel côté UI.
func (r *StreamResolver) resolveManifest(ctx context.Context, spec domain.ProviderSpec, base string, req ResolveRequest) (domain.StreamCandidate, error) {
	pageURL, err := JoinHref(base, req.Href, spec.Join)
	if err != nil {
		return domain.StreamCandidate{}, err
	}
	doc, raw, err := r.fetch.GetDocument(ctx, pageURL, base)
	if err != nil && doc == nil && raw == nil {
		return domain.StreamCandidate{}, err
	}

	var manifestURL string
	if doc != nil {
		if src, ok := doc.Find(spec.StreamSel.ManifestSource).First().Attr("src"); ok {
			manifestURL = strings.TrimSpace(src)
		}
	}
	if manifestURL == "" {
		if m := reM3U8URL.Find(raw); m != nil {
			manifestURL = string(m)
		}
	}
	if manifestURL == "" {
		return domain.StreamCandidate{}, coded(CodeNoCandidates, "no master playlist on episode page", nil)
	}
	manifestURL = fixSchemeRelative(manifestURL)
	if baseU, perr := url.Parse(pageURL); perr == nil {
		if abs, ok := resolveAgainst(baseU, manifestURL); ok {
			manifestURL = abs
		}
	}

	body, err := r.fetch.Get(ctx, manifestURL, pageURL)
	if err != nil {
		return domain.StreamCandidate{}, err
	}
	variants, err := ParseMasterPlaylist(manifestURL, string(body))
	if err != nil {
		return domain.StreamCandidate{}, err
	}

	chosen, err := SelectVariant(ctx, "quality", req.Prefs.Quality, variants, req.Prompt)
	if err != nil {
		return domain.StreamCandidate{}, err
	}
	return domain.StreamCandidate{URL: chosen.URL, Variants: variants}, nil
}
