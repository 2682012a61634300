package search

import (
	"context"
	"fmt"
	"strings"
)

// Lookup wraps what a provider returned for a query. TransformedQuery is
// set when the provider searched for something other than what the user
// typed (a spelling correction, a playlist title).
type Lookup[T any] struct {
	Raw              T
	TransformedQuery string
}

// Provider is a pluggable content source. T is the provider's own raw
// result shape.
type Provider[T any] interface {
	// SearchContent runs the provider-specific lookup. It must not retry.
	SearchContent(ctx context.Context, query string) (Lookup[T], error)

	// Consume maps raw output to playable results. It must be pure: same
	// input, same output, order of surviving items preserved.
	Consume(raw T) []Result

	// URLCheck reports whether query is already a direct resource locator
	// that should skip the search pipeline.
	URLCheck(query string) bool
}

// NoURLCheck can be embedded by providers that never bypass the pipeline.
type NoURLCheck struct{}

func (NoURLCheck) URLCheck(string) bool { return false }

// IsHTTPURL reports whether s starts with an http or https scheme.
func IsHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Outcome is a lookup after normalization.
type Outcome struct {
	Results []Result
	Query   string
}

// Searcher is a Provider with its raw type erased, which lets the
// controller hold providers of different shapes.
type Searcher interface {
	Name() string
	URLCheck(query string) bool
	Search(ctx context.Context, query string) (Outcome, error)
}

// Adapt erases the raw type of p.
func Adapt[T any](name string, p Provider[T]) Searcher {
	return &adapted[T]{name: name, p: p}
}

type adapted[T any] struct {
	name string
	p    Provider[T]
}

func (a *adapted[T]) Name() string { return a.name }

func (a *adapted[T]) URLCheck(query string) bool { return a.p.URLCheck(query) }

func (a *adapted[T]) Search(ctx context.Context, query string) (Outcome, error) {
	lookup, err := a.p.SearchContent(ctx, query)
	if err != nil {
		return Outcome{}, fmt.Errorf("%s: %w", a.name, err)
	}

	out := Outcome{
		Results: a.p.Consume(lookup.Raw),
		Query:   query,
	}
	if lookup.TransformedQuery != "" {
		out.Query = lookup.TransformedQuery
	}
	return out, nil
}
