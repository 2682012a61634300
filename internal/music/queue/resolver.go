package queue

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/kkdai/youtube/v2"

	"github.com/keshon/searchpanel/pkg/util"
)

// Resolver turns an enqueue input into a Track.
type Resolver interface {
	Resolve(ctx context.Context, input string) (Track, error)
}

// VideoFetcher is the part of *youtube.Client used for metadata.
type VideoFetcher interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
}

var youtubeHosts = map[string]bool{
	"youtube.com":       true,
	"www.youtube.com":   true,
	"m.youtube.com":     true,
	"music.youtube.com": true,
	"youtu.be":          true,
}

// KkdaiResolver fills in YouTube metadata; other links are queued as is.
type KkdaiResolver struct {
	Client VideoFetcher
}

func (r KkdaiResolver) Resolve(ctx context.Context, input string) (Track, error) {
	u, err := url.Parse(input)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return Track{}, fmt.Errorf("not a playable link: %q", input)
	}
	if !youtubeHosts[strings.ToLower(u.Hostname())] {
		return Track{URL: input, Title: input}, nil
	}
	if _, err := youtube.ExtractVideoID(input); err != nil {
		return Track{URL: input, Title: input}, nil
	}

	v, err := r.Client.GetVideoContext(ctx, input)
	if err != nil {
		return Track{}, fmt.Errorf("fetch video metadata: %w", err)
	}
	return Track{
		URL:      "https://www.youtube.com/watch?v=" + v.ID,
		Title:    v.Title,
		Duration: util.FormatDuration(v.Duration),
		Author:   v.Author,
	}, nil
}
