// Package youtube searches YouTube's public results page.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/keshon/searchpanel/internal/search"
	"github.com/keshon/searchpanel/pkg/retrylimit"
)

const (
	Name = "youtube"

	watchURL        = "https://www.youtube.com/watch?v="
	defaultMaxItems = 12
	maxBodySize     = 8 << 20
)

var ErrNoInitialData = errors.New("ytInitialData not found in results page")

// Kind tags a renderer found on the results page.
type Kind string

const (
	KindVideo    Kind = "video"
	KindPlaylist Kind = "playlist"
	KindChannel  Kind = "channel"
	KindShelf    Kind = "shelf"
	KindOther    Kind = "other"
)

// Item is one raw entry of the results page.
type Item struct {
	Kind      Kind
	ID        string
	Title     string
	Duration  string
	Thumbnail string
	Author    string
}

// Provider implements search.Provider over the results page.
type Provider struct {
	baseURL    string
	client     *http.Client
	limiter    *retrylimit.AdaptiveLimiter
	maxResults int
}

type Option func(*Provider)

func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.client = c }
}

func WithLimiter(l *retrylimit.AdaptiveLimiter) Option {
	return func(p *Provider) { p.limiter = l }
}

// WithMaxResults caps how many videos Consume returns.
func WithMaxResults(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.maxResults = n
		}
	}
}

func New(opts ...Option) *Provider {
	p := &Provider{
		baseURL:    "https://www.youtube.com",
		client:     &http.Client{Timeout: 10 * time.Second},
		maxResults: defaultMaxItems,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Searcher returns the provider with its raw type erased.
func (p *Provider) Searcher() search.Searcher {
	return search.Adapt[[]Item](Name, p)
}

func (p *Provider) URLCheck(query string) bool {
	return search.IsHTTPURL(query)
}

func (p *Provider) SearchContent(ctx context.Context, query string) (search.Lookup[[]Item], error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return search.Lookup[[]Item]{}, err
		}
	}

	body, err := p.fetch(ctx, query)
	if err != nil {
		return search.Lookup[[]Item]{}, err
	}

	data, err := extractInitialData(body)
	if err != nil {
		return search.Lookup[[]Item]{}, err
	}

	items, corrected := parseResults(data)
	return search.Lookup[[]Item]{Raw: items, TransformedQuery: corrected}, nil
}

// Consume keeps videos only, in page order.
func (p *Provider) Consume(raw []Item) []search.Result {
	out := make([]search.Result, 0, min(len(raw), p.maxResults))
	for _, it := range raw {
		if len(out) == p.maxResults {
			break
		}
		if it.Kind != KindVideo || it.ID == "" {
			continue
		}
		out = append(out, search.Result{
			URL:         watchURL + it.ID,
			Title:       it.Title,
			Duration:    it.Duration,
			Thumbnail:   it.Thumbnail,
			Author:      it.Author,
			Description: fmt.Sprintf("Length: %s, Channel: %s", it.Duration, it.Author),
		})
	}
	return out
}

func (p *Provider) fetch(ctx context.Context, query string) (string, error) {
	searchURL := fmt.Sprintf("%s/results?search_query=%s&hl=en", p.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := p.client.Do(req)
	if err != nil {
		p.observe(0, err)
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := &retrylimit.StatusError{Code: resp.StatusCode, URL: searchURL}
		p.observe(resp.StatusCode, err)
		return "", err
	}
	p.observe(resp.StatusCode, nil)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (p *Provider) observe(code int, err error) {
	if p.limiter != nil {
		p.limiter.Observe(code, err)
	}
}
