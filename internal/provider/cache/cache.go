// Package cache wraps a search.Searcher with an expiring LRU so that
// repeated queries skip the remote lookup.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/keshon/searchpanel/internal/search"
)

type Options struct {
	Size int
	TTL  time.Duration
}

type Hooks struct {
	OnHit  func(provider string)
	OnMiss func(provider string)
}

// Searcher caches non-empty outcomes per normalized query. Errors and
// empty outcomes are never stored. Concurrent identical lookups share one
// call to the wrapped searcher.
type Searcher struct {
	next  search.Searcher
	lru   *expirable.LRU[string, search.Outcome]
	sf    singleflight.Group
	hooks Hooks
}

var _ search.Searcher = (*Searcher)(nil)

func New(next search.Searcher, opts Options, hooks Hooks) *Searcher {
	if opts.Size <= 0 {
		opts.Size = 256
	}
	return &Searcher{
		next:  next,
		lru:   expirable.NewLRU[string, search.Outcome](opts.Size, nil, opts.TTL),
		hooks: hooks,
	}
}

func (c *Searcher) Name() string { return c.next.Name() }

func (c *Searcher) URLCheck(query string) bool { return c.next.URLCheck(query) }

func (c *Searcher) Search(ctx context.Context, query string) (search.Outcome, error) {
	key := normalize(query)
	if out, ok := c.lru.Get(key); ok {
		if c.hooks.OnHit != nil {
			c.hooks.OnHit(c.Name())
		}
		return clone(out), nil
	}
	if c.hooks.OnMiss != nil {
		c.hooks.OnMiss(c.Name())
	}

	ch := c.sf.DoChan(key, func() (any, error) {
		out, err := c.next.Search(ctx, query)
		if err != nil {
			return search.Outcome{}, err
		}
		if len(out.Results) > 0 {
			c.lru.Add(key, out)
		}
		return out, nil
	})

	select {
	case <-ctx.Done():
		return search.Outcome{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return search.Outcome{}, res.Err
		}
		return clone(res.Val.(search.Outcome)), nil
	}
}

// Len is the number of cached queries.
func (c *Searcher) Len() int { return c.lru.Len() }

// Purge drops every cached outcome.
func (c *Searcher) Purge() { c.lru.Purge() }

func normalize(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}

func clone(out search.Outcome) search.Outcome {
	out.Results = append([]search.Result(nil), out.Results...)
	return out
}
