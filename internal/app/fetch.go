package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	fetchUserAgent = "Mozilla/5.0 (X11; Linux x86_64) Gecko/20100101 Firefox/120.0"
	maxBodyBytes   = 4 << 20
)

// FetchClient centralise tous les GET vers les providers: headers communs,
// timeout, limite de concurrence globale et rate limit par host.
type FetchClient struct {
	client  *http.Client
	limiter *DynamicLimiter
	logger  zerolog.Logger

	mu    sync.Mutex
	hosts map[string]*rate.Limiter
}

func NewFetchClient(logger zerolog.Logger, maxConcurrent int) *FetchClient {
	return &FetchClient{
		client:  &http.Client{Timeout: 20 * time.Second},
		limiter: NewDynamicLimiter(maxConcurrent),
		logger:  logger,
		hosts:   map[string]*rate.Limiter{},
	}
}

// SetMaxConcurrent ajuste à chaud la concurrence globale.
func (c *FetchClient) SetMaxConcurrent(n int) {
	c.limiter.SetLimit(n)
}

func (c *FetchClient) hostLimiter(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.hosts[host]
	if !ok {
		// 4 req/s avec un burst court: poli envers les mirrors.
		l = rate.NewLimiter(rate.Limit(4), 8)
		c.hosts[host] = l
	}
	return l
}

// Get exécute un GET et renvoie le corps (borné). Les échecs transport
// deviennent network_error, les non-2xx http_status.
func (c *FetchClient) Get(ctx context.Context, rawURL, referer string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, coded(CodeNetwork, "invalid url", err)
	}

	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, coded(CodeNetwork, "fetch canceled", err)
	}
	defer c.limiter.Release()

	if err := c.hostLimiter(u.Host).Wait(ctx); err != nil {
		return nil, coded(CodeNetwork, "fetch canceled", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, coded(CodeNetwork, "build request", err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, coded(CodeNetwork, "get "+u.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, coded(CodeHTTPStatus, fmt.Sprintf("get %s: %s", u.Host, resp.Status), nil)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, coded(CodeNetwork, "read body", err)
	}
	return b, nil
}

// GetDocument renvoie le document goquery ET le HTML brut, pour que les
// stratégies gardent le fallback regex quand le parse structuré échoue.
func (c *FetchClient) GetDocument(ctx context.Context, rawURL, referer string) (*goquery.Document, []byte, error) {
	raw, err := c.Get(ctx, rawURL, referer)
	if err != nil {
		return nil, nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		// Le document reste exploitable par regex; le caller décide.
		return nil, raw, coded(CodeParse, "parse html", err)
	}
	return doc, raw, nil
}

// GetJSON décode la réponse dans out (structs typés par provider).
func (c *FetchClient) GetJSON(ctx context.Context, rawURL, referer string, out any) error {
	raw, err := c.Get(ctx, rawURL, referer)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return coded(CodeParse, "decode json", err)
	}
	return nil
}

// fixSchemeRelative préfixe "https:" sur les URLs en "//host/...".
func fixSchemeRelative(raw string) string {
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	return raw
}

// resolveAgainst résout ref relativement à base; les refs scheme-relative
// héritent du scheme de base.
func resolveAgainst(base *url.URL, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || base == nil {
		return "", false
	}
	if strings.HasPrefix(ref, "//") {
		return base.Scheme + ":" + ref, true
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	return base.ResolveReference(u).String(), true
}
