package search

import (
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var httpExpr = regexp.MustCompile(`^https?://`)

type harness struct {
	provider *stubProvider
	registry *Registry
	queue    *fakeQueue
	respond  *fakeResponder
	history  *fakeHistory
	ctrl     *Controller
}

func newHarness(t *testing.T, p *stubProvider, cfg ControllerConfig) *harness {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	h := &harness{
		provider: p,
		registry: NewRegistry(WithRegistryLogger(log)),
		queue:    &fakeQueue{},
		respond:  &fakeResponder{},
		history:  &fakeHistory{},
	}
	h.ctrl = NewController(
		Adapt("stub", p),
		h.registry,
		h.queue,
		fakeVoice{},
		h.respond,
		cfg,
		WithHistory(h.history),
		WithControllerLogger(log),
	)
	t.Cleanup(h.ctrl.Close)
	return h
}

func req(query string) Request {
	return Request{ScopeID: "guild", ChannelID: "chan", UserID: "user", Query: query}
}

func threeItems() rawPage {
	return rawPage{items: []rawItem{
		{kind: "video", url: "https://youtu.be/1", title: "Night Dance"},
		{kind: "channel", url: "https://youtube.com/c/x", title: "Some Channel"},
		{kind: "video", url: "https://youtu.be/2", title: "Night Dance (live)"},
	}}
}

func TestHandleSearchURLBypass(t *testing.T) {
	h := newHarness(t, &stubProvider{urlExpr: httpExpr}, ControllerConfig{})

	err := h.ctrl.HandleSearch(context.Background(), req("https://example.com/v1"))
	require.NoError(t, err)

	assert.Equal(t, []enqueueCall{{input: "https://example.com/v1", autoStart: true}}, h.queue.Calls())
	assert.Equal(t, 0, h.registry.Len())
	assert.Zero(t, h.provider.calls.Load())
	require.Len(t, h.respond.enqueued, 1)
	assert.Equal(t, "https://example.com/v1", h.respond.enqueued[0][0].URL)
}

func TestHandleSearchURLBypassSeveralLinks(t *testing.T) {
	h := newHarness(t, &stubProvider{urlExpr: httpExpr}, ControllerConfig{})

	err := h.ctrl.HandleSearch(context.Background(), req("https://example.com/v1  https://example.com/v2"))
	require.NoError(t, err)

	assert.Equal(t, []enqueueCall{
		{input: "https://example.com/v1", autoStart: true},
		{input: "https://example.com/v2", autoStart: false},
	}, h.queue.Calls())
}

func TestHandleSearchURLBypassConfirmsPartialQueue(t *testing.T) {
	h := newHarness(t, &stubProvider{urlExpr: httpExpr}, ControllerConfig{})
	h.queue.err = errors.New("unplayable")
	h.queue.failAt = 1

	err := h.ctrl.HandleSearch(context.Background(), req("https://example.com/v1 https://example.com/v2 https://example.com/v3"))
	require.Error(t, err)

	assert.Len(t, h.queue.Calls(), 1)
	require.Len(t, h.respond.enqueued, 1)
	require.Len(t, h.respond.enqueued[0], 1)
	assert.Equal(t, "https://example.com/v1", h.respond.enqueued[0][0].URL)
}

func TestHandleSearchURLBypassFirstLinkFails(t *testing.T) {
	h := newHarness(t, &stubProvider{urlExpr: httpExpr}, ControllerConfig{})
	h.queue.err = errors.New("unplayable")

	err := h.ctrl.HandleSearch(context.Background(), req("https://example.com/v1"))
	require.Error(t, err)
	assert.Empty(t, h.respond.enqueued)
}

func TestHandleSearchBypassIgnoresOpenSession(t *testing.T) {
	h := newHarness(t, &stubProvider{urlExpr: httpExpr}, ControllerConfig{})
	h.queue.busy = true

	existing, err := h.registry.Acquire(req("").Key(), "held")
	require.NoError(t, err)

	err = h.ctrl.HandleSearch(context.Background(), req("http://example.com/a"))
	require.NoError(t, err)

	assert.Equal(t, []enqueueCall{{input: "http://example.com/a", autoStart: false}}, h.queue.Calls())
	cur, ok := h.registry.Get(req("").Key())
	require.True(t, ok)
	assert.Same(t, existing, cur)
	assert.Empty(t, h.respond.Affordances())
}

func TestHandleSearchEmptyQuery(t *testing.T) {
	h := newHarness(t, &stubProvider{urlExpr: httpExpr}, ControllerConfig{})

	err := h.ctrl.HandleSearch(context.Background(), req("   "))
	assert.ErrorIs(t, err, ErrArgumentMissing)
	assert.Equal(t, 1, h.respond.argMissing)
	assert.Equal(t, 0, h.registry.Len())
	assert.Zero(t, h.provider.calls.Load())
}

func TestHandleSearchBindsFilteredResults(t *testing.T) {
	h := newHarness(t, &stubProvider{page: threeItems()}, ControllerConfig{PanelTTL: time.Minute})

	err := h.ctrl.HandleSearch(context.Background(), req("night dance"))
	require.NoError(t, err)

	s, ok := h.registry.Get(req("").Key())
	require.True(t, ok)
	assert.Equal(t, StateBound, s.State())

	results := s.Results()
	require.Len(t, results, 2)
	assert.Equal(t, "https://youtu.be/1", results[0].URL)
	assert.Equal(t, "https://youtu.be/2", results[1].URL)

	require.Len(t, h.respond.panels, 1)
	assert.Same(t, s, h.respond.panels[0])
}

func TestClosedControllerDoesNotWatchAffordances(t *testing.T) {
	h := newHarness(t, &stubProvider{page: threeItems()}, ControllerConfig{})
	existing, err := h.registry.Acquire(req("").Key(), "held")
	require.NoError(t, err)

	h.ctrl.Close()

	err = h.ctrl.HandleSearch(context.Background(), req("second"))
	require.ErrorIs(t, err, ErrSessionConflict)
	affs := h.respond.Affordances()
	require.Len(t, affs, 1)

	h.registry.Destroy(existing, ReasonCancelled)
	assert.Never(t, func() bool { return affs[0].cleared.Load() > 0 }, 50*time.Millisecond, time.Millisecond)
}

func TestHandleSearchConflictClearsAffordanceOnDestroy(t *testing.T) {
	p := &stubProvider{page: threeItems(), gate: make(chan struct{})}
	h := newHarness(t, p, ControllerConfig{})

	firstDone := make(chan error, 1)
	go func() { firstDone <- h.ctrl.HandleSearch(context.Background(), req("first")) }()
	require.Eventually(t, func() bool { return p.calls.Load() == 1 }, time.Second, time.Millisecond)

	existing, ok := h.registry.Get(req("").Key())
	require.True(t, ok)
	assert.Equal(t, StateOpen, existing.State())

	err := h.ctrl.HandleSearch(context.Background(), req("second"))
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Same(t, existing, conflict.Existing)

	affs := h.respond.Affordances()
	require.Len(t, affs, 1)
	assert.Zero(t, affs[0].cleared.Load())

	require.True(t, h.ctrl.HandleCancel(req("").Key()))
	require.Eventually(t, func() bool { return affs[0].cleared.Load() == 1 }, time.Second, time.Millisecond)

	close(p.gate)
	assert.ErrorIs(t, <-firstDone, ErrSessionClosed)
	assert.Equal(t, 0, h.registry.Len())
	assert.Empty(t, h.respond.panels)
}

func TestHandleSearchEmptyQueryWithOpenSessionOffersCancel(t *testing.T) {
	h := newHarness(t, &stubProvider{}, ControllerConfig{})
	_, err := h.registry.Acquire(req("").Key(), "held")
	require.NoError(t, err)

	err = h.ctrl.HandleSearch(context.Background(), req(""))
	assert.ErrorIs(t, err, ErrSessionConflict)
	assert.Len(t, h.respond.Affordances(), 1)
	assert.Zero(t, h.respond.argMissing)
}

func TestHandleSearchExclusivity(t *testing.T) {
	p := &stubProvider{page: threeItems(), gate: make(chan struct{})}
	h := newHarness(t, p, ControllerConfig{})

	errs := make(chan error, 2)
	for _, q := range []string{"a", "b"} {
		go func() { errs <- h.ctrl.HandleSearch(context.Background(), req(q)) }()
	}

	// The loser returns right away; the winner is parked in the lookup.
	first := <-errs
	assert.ErrorIs(t, first, ErrSessionConflict)

	close(p.gate)
	require.NoError(t, <-errs)

	assert.Equal(t, int32(1), p.calls.Load())
	assert.Len(t, h.respond.panels, 1)
	assert.Equal(t, 1, h.registry.Len())
}

func TestHandleSearchEmptyResultReleases(t *testing.T) {
	p := &stubProvider{page: rawPage{items: []rawItem{{kind: "playlist", url: "x"}}}}
	h := newHarness(t, p, ControllerConfig{})

	err := h.ctrl.HandleSearch(context.Background(), req("nothing"))
	assert.ErrorIs(t, err, ErrEmptyResult)
	assert.Equal(t, 0, h.registry.Len())
	assert.Equal(t, 1, h.respond.noResults)
}

func TestHandleSearchLookupFailureReleases(t *testing.T) {
	h := newHarness(t, &stubProvider{err: errProviderDown}, ControllerConfig{})

	err := h.ctrl.HandleSearch(context.Background(), req("q"))
	assert.ErrorIs(t, err, ErrLookupFailure)
	assert.ErrorIs(t, err, errProviderDown)

	var lookupErr *LookupError
	require.ErrorAs(t, err, &lookupErr)
	assert.Equal(t, "stub", lookupErr.Provider)

	assert.Equal(t, 0, h.registry.Len())
	assert.Equal(t, 1, h.respond.lookupFail)
}

func TestHandleSearchLookupTimeout(t *testing.T) {
	p := &stubProvider{gate: make(chan struct{})}
	h := newHarness(t, p, ControllerConfig{LookupTimeout: 20 * time.Millisecond})

	err := h.ctrl.HandleSearch(context.Background(), req("slow"))
	assert.ErrorIs(t, err, ErrLookupFailure)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, h.registry.Len())
}

func TestHandleSearchVoiceFailure(t *testing.T) {
	h := newHarness(t, &stubProvider{page: threeItems()}, ControllerConfig{})
	h.ctrl.voice = fakeVoice{err: errors.New("user not in any voice channel")}

	err := h.ctrl.HandleSearch(context.Background(), req("q"))
	assert.ErrorIs(t, err, ErrVoiceUnavailable)
	assert.Equal(t, 1, h.respond.voiceFailed)
	assert.Zero(t, h.provider.calls.Load())
}

func TestHandleSearchPanelDeliveryFailureKeepsBinding(t *testing.T) {
	h := newHarness(t, &stubProvider{page: threeItems()}, ControllerConfig{})
	h.respond.panelErr = errors.New("discord: 500")

	err := h.ctrl.HandleSearch(context.Background(), req("q"))
	require.NoError(t, err)

	s, ok := h.registry.Get(req("").Key())
	require.True(t, ok)
	assert.Equal(t, StateBound, s.State())
}

func TestHandleSearchUsesTransformedQuery(t *testing.T) {
	page := threeItems()
	page.corrected = "night dancer"
	h := newHarness(t, &stubProvider{page: page}, ControllerConfig{})

	require.NoError(t, h.ctrl.HandleSearch(context.Background(), req("nite dancer")))
	s, ok := h.registry.Get(req("").Key())
	require.True(t, ok)
	assert.Equal(t, "night dancer", s.Query())
	assert.Equal(t, "nite dancer", s.RawQuery())
}

func TestHandleSelection(t *testing.T) {
	h := newHarness(t, &stubProvider{page: threeItems()}, ControllerConfig{})
	require.NoError(t, h.ctrl.HandleSearch(context.Background(), req("night dance")))
	s, ok := h.registry.Get(req("").Key())
	require.True(t, ok)

	err := h.ctrl.HandleSelection(context.Background(), req(""), "stale-id", []int{0})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	err = h.ctrl.HandleSelection(context.Background(), req(""), s.ID(), []int{5})
	assert.Error(t, err)
	assert.Equal(t, StateBound, s.State())

	require.NoError(t, h.ctrl.HandleSelection(context.Background(), req(""), s.ID(), []int{1, 0}))

	assert.Equal(t, []enqueueCall{
		{input: "https://youtu.be/2", autoStart: true},
		{input: "https://youtu.be/1", autoStart: false},
	}, h.queue.Calls())
	assert.Equal(t, 0, h.registry.Len())
	assert.Equal(t, ReasonSelected, s.Reason())
	assert.Equal(t, []string{"night dance"}, h.history.queries)
	require.Len(t, h.respond.enqueued, 1)
	assert.Len(t, h.respond.enqueued[0], 2)

	err = h.ctrl.HandleSelection(context.Background(), req(""), s.ID(), []int{0})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestBoundPanelExpires(t *testing.T) {
	h := newHarness(t, &stubProvider{page: threeItems()}, ControllerConfig{PanelTTL: 20 * time.Millisecond})
	require.NoError(t, h.ctrl.HandleSearch(context.Background(), req("q")))

	require.Eventually(t, func() bool { return h.registry.Len() == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, h.ctrl.HandleSearch(context.Background(), req("q")))
}
