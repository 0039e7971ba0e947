package app

import (
	"context"
	"encoding/base64"
	"net/url"
	"regexp"
	"strings"

	"github.com/mizukiro/anibridge/internal/domain"
)

var (
	reWindowLocation = regexp.MustCompile(`(?i)(?:window\.)?location(?:\.href)?\s*=\s*['"]([^'"]+)['"]`)
	reLocationCall   = regexp.MustCompile(`(?i)location\.(?:replace|assign)\s*\(\s*['"]([^'"]+)['"]\s*\)`)
	reAtob           = regexp.MustCompile(`atob\s*\(\s*['"]([A-Za-z0-9+/=]+)['"]\s*\)`)
)

// resolveRedirect: page intermédiaire -> URL de redirection porteuse de
// token (window.location) -> page finale dont le script inline embarque
// l'URL du manifest, en clair ou en base64.
func (r *StreamResolver) resolveRedirect(ctx context.Context, spec domain.ProviderSpec, base string, req ResolveRequest) (domain.StreamCandidate, error) {
	pageURL, err := JoinHref(base, req.Href, spec.Join)
	if err != nil {
		return domain.StreamCandidate{}, err
	}
	first, err := r.fetch.Get(ctx, pageURL, base)
	if err != nil {
		return domain.StreamCandidate{}, err
	}

	redirect := extractRedirectURL(first)
	if redirect == "" {
		return domain.StreamCandidate{}, coded(CodeNoCandidates, "no redirect target on intermediate page", nil)
	}
	redirect = fixSchemeRelative(redirect)
	if baseU, perr := url.Parse(pageURL); perr == nil {
		if abs, ok := resolveAgainst(baseU, redirect); ok {
			redirect = abs
		}
	}

	second, err := r.fetch.Get(ctx, redirect, pageURL)
	if err != nil {
		return domain.StreamCandidate{}, err
	}

	if u, ok := manifestFromScript(second); ok {
		return domain.StreamCandidate{URL: u}, nil
	}
	return domain.StreamCandidate{}, coded(CodeNoCandidates, "no manifest in redirected page", nil)
}

func extractRedirectURL(raw []byte) string {
	if m := reWindowLocation.FindSubmatch(raw); m != nil {
		return strings.TrimSpace(string(m[1]))
	}
	if m := reLocationCall.FindSubmatch(raw); m != nil {
		return strings.TrimSpace(string(m[1]))
	}
	return ""
}

// manifestFromScript fouille le script inline: d'abord les payloads
// base64 (atob), puis une URL m3u8 en clair.
func manifestFromScript(raw []byte) (string, bool) {
	for _, m := range reAtob.FindAllSubmatch(raw, -1) {
		decoded, err := base64.StdEncoding.DecodeString(string(m[1]))
		if err != nil {
			continue
		}
		s := strings.TrimSpace(string(decoded))
		if strings.HasPrefix(s, "http") && looksLikeMediaURL(s) {
			return s, true
		}
		// Le payload décodé peut lui-même contenir l'URL au milieu de JS.
		if u, ok := scanRawForMedia(decoded); ok {
			return u, true
		}
	}
	if u, ok := scanRawForMedia(raw); ok {
		return u, true
	}
	return "", false
}
