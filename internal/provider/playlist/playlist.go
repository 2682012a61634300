// Package playlist lists the entries of a YouTube playlist as search
// results, so a pasted playlist link opens a panel instead of queueing
// everything at once.
package playlist

import (
	"context"
	"errors"
	"net/url"
	"regexp"

	"github.com/kkdai/youtube/v2"

	"github.com/keshon/searchpanel/internal/search"
	"github.com/keshon/searchpanel/pkg/util"
)

const Name = "playlist"

const watchURL = "https://www.youtube.com/watch?v="

var (
	ErrNotPlaylist = errors.New("query is not a playlist link or id")

	playlistIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{13,42}$`)
)

// IsPlaylist reports whether query is a playlist URL (one with a list
// parameter) or a bare playlist id.
func IsPlaylist(query string) bool {
	if search.IsHTTPURL(query) {
		u, err := url.Parse(query)
		if err != nil {
			return false
		}
		return playlistIDPattern.MatchString(u.Query().Get("list"))
	}
	return playlistIDPattern.MatchString(query)
}

// Fetcher is the part of *youtube.Client the provider needs.
type Fetcher interface {
	GetPlaylistContext(ctx context.Context, url string) (*youtube.Playlist, error)
}

type Provider struct {
	search.NoURLCheck

	client     Fetcher
	maxResults int
}

func New(client Fetcher, maxResults int) *Provider {
	if maxResults <= 0 {
		maxResults = 25
	}
	return &Provider{client: client, maxResults: maxResults}
}

func (p *Provider) Searcher() search.Searcher {
	return search.Adapt[*youtube.Playlist](Name, p)
}

func (p *Provider) SearchContent(ctx context.Context, query string) (search.Lookup[*youtube.Playlist], error) {
	if !IsPlaylist(query) {
		return search.Lookup[*youtube.Playlist]{}, ErrNotPlaylist
	}

	pl, err := p.client.GetPlaylistContext(ctx, query)
	if err != nil {
		return search.Lookup[*youtube.Playlist]{}, err
	}
	return search.Lookup[*youtube.Playlist]{Raw: pl, TransformedQuery: pl.Title}, nil
}

// Consume drops unavailable entries (no video id) and keeps order.
func (p *Provider) Consume(pl *youtube.Playlist) []search.Result {
	if pl == nil {
		return nil
	}

	out := make([]search.Result, 0, min(len(pl.Videos), p.maxResults))
	for _, v := range pl.Videos {
		if len(out) == p.maxResults {
			break
		}
		if v == nil || v.ID == "" {
			continue
		}
		duration := util.FormatDuration(v.Duration)
		r := search.Result{
			URL:         watchURL + v.ID,
			Title:       v.Title,
			Duration:    duration,
			Author:      v.Author,
			Description: "Length: " + duration + ", Channel: " + v.Author,
		}
		if n := len(v.Thumbnails); n > 0 {
			r.Thumbnail = v.Thumbnails[n-1].URL
		}
		out = append(out, r)
	}
	return out
}
