package search

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"sync/atomic"
)

type rawItem struct {
	kind   string
	url    string
	title  string
	author string
}

type rawPage struct {
	items     []rawItem
	corrected string
}

// stubProvider is a Provider[rawPage] whose lookup can be held open with gate.
type stubProvider struct {
	page    rawPage
	err     error
	gate    chan struct{}
	urlExpr *regexp.Regexp
	calls   atomic.Int32
}

func (p *stubProvider) SearchContent(ctx context.Context, query string) (Lookup[rawPage], error) {
	p.calls.Add(1)
	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return Lookup[rawPage]{}, ctx.Err()
		}
	}
	if p.err != nil {
		return Lookup[rawPage]{}, p.err
	}
	return Lookup[rawPage]{Raw: p.page, TransformedQuery: p.page.corrected}, nil
}

func (p *stubProvider) Consume(raw rawPage) []Result {
	out := make([]Result, 0, len(raw.items))
	for _, it := range raw.items {
		if it.kind != "video" {
			continue
		}
		out = append(out, Result{URL: it.url, Title: it.title, Author: it.author})
	}
	return out
}

func (p *stubProvider) URLCheck(query string) bool {
	return p.urlExpr != nil && p.urlExpr.MatchString(query)
}

type enqueueCall struct {
	input     string
	autoStart bool
}

type fakeQueue struct {
	mu    sync.Mutex
	busy  bool
	calls []enqueueCall
	err   error
	// failAt is the number of successful calls before err is returned.
	failAt int
}

func (q *fakeQueue) Enqueue(_ context.Context, _ Request, input string, autoStart bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil && len(q.calls) >= q.failAt {
		return q.err
	}
	q.calls = append(q.calls, enqueueCall{input: input, autoStart: autoStart})
	// A started player is busy for anything queued after it.
	if autoStart {
		q.busy = true
	}
	return nil
}

func (q *fakeQueue) Busy(string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.busy
}

func (q *fakeQueue) Calls() []enqueueCall {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]enqueueCall(nil), q.calls...)
}

type fakeVoice struct{ err error }

func (v fakeVoice) EnsureJoined(context.Context, Request) error { return v.err }

type fakeAffordance struct{ cleared atomic.Int32 }

func (a *fakeAffordance) Clear(context.Context) error {
	a.cleared.Add(1)
	return nil
}

type fakeResponder struct {
	mu          sync.Mutex
	argMissing  int
	voiceFailed int
	lookupFail  int
	noResults   int
	panels      []*Session
	enqueued    [][]Result
	affordances []*fakeAffordance
	panelErr    error
}

func (r *fakeResponder) ArgumentMissing(context.Context, Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.argMissing++
	return nil
}

func (r *fakeResponder) VoiceFailed(context.Context, Request, error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.voiceFailed++
	return nil
}

func (r *fakeResponder) Conflict(context.Context, Request, *Session) (Affordance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := &fakeAffordance{}
	r.affordances = append(r.affordances, a)
	return a, nil
}

func (r *fakeResponder) LookupFailed(context.Context, Request, error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookupFail++
	return nil
}

func (r *fakeResponder) NoResults(context.Context, Request, string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.noResults++
	return nil
}

func (r *fakeResponder) Panel(_ context.Context, _ Request, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.panels = append(r.panels, s)
	return r.panelErr
}

func (r *fakeResponder) Enqueued(_ context.Context, _ Request, picked []Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enqueued = append(r.enqueued, picked)
	return nil
}

func (r *fakeResponder) Affordances() []*fakeAffordance {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*fakeAffordance(nil), r.affordances...)
}

type fakeHistory struct {
	mu      sync.Mutex
	queries []string
}

func (h *fakeHistory) RecordSelection(_, _ string, query string, _ []Result) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queries = append(h.queries, query)
	return nil
}

var errProviderDown = errors.New("provider down")
