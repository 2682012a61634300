package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Request is one search invocation.
type Request struct {
	ScopeID   string
	ChannelID string
	UserID    string
	Username  string
	Query     string
}

func (r Request) Key() Key { return Key{ScopeID: r.ScopeID, UserID: r.UserID} }

// Enqueuer is the playback queue. Busy reports whether the player is
// already connecting or playing in the scope.
type Enqueuer interface {
	Enqueue(ctx context.Context, req Request, input string, autoStart bool) error
	Busy(scopeID string) bool
}

// VoiceBinder makes sure the bot sits in the invoking user's voice channel.
type VoiceBinder interface {
	EnsureJoined(ctx context.Context, req Request) error
}

// Affordance is an interactive element sent to the user that must be
// removed later, e.g. a cancel button on a conflict reply.
type Affordance interface {
	Clear(ctx context.Context) error
}

// Responder is the messaging layer. Every method is a best-effort
// delivery; errors are logged by the controller and never retried.
type Responder interface {
	ArgumentMissing(ctx context.Context, req Request) error
	VoiceFailed(ctx context.Context, req Request, err error) error
	Conflict(ctx context.Context, req Request, existing *Session) (Affordance, error)
	LookupFailed(ctx context.Context, req Request, err error) error
	NoResults(ctx context.Context, req Request, query string) error
	Panel(ctx context.Context, req Request, s *Session) error
	Enqueued(ctx context.Context, req Request, picked []Result) error
}

// HistoryRecorder persists selections made from a panel.
type HistoryRecorder interface {
	RecordSelection(scopeID, userID, query string, picked []Result) error
}

type ControllerConfig struct {
	LookupTimeout time.Duration
	PanelTTL      time.Duration
}

// Controller runs the search command flow for one provider.
type Controller struct {
	searcher Searcher
	registry *Registry
	queue    Enqueuer
	voice    VoiceBinder
	respond  Responder
	history  HistoryRecorder
	cfg      ControllerConfig
	hooks    Hooks
	log      logrus.FieldLogger

	mu     sync.Mutex
	closed bool
	quit   chan struct{}
	wg     sync.WaitGroup
}

type ControllerOption func(*Controller)

func WithHistory(h HistoryRecorder) ControllerOption {
	return func(c *Controller) { c.history = h }
}

func WithControllerHooks(h Hooks) ControllerOption {
	return func(c *Controller) { c.hooks = h }
}

func WithControllerLogger(log logrus.FieldLogger) ControllerOption {
	return func(c *Controller) { c.log = log }
}

func NewController(
	searcher Searcher,
	registry *Registry,
	queue Enqueuer,
	voice VoiceBinder,
	respond Responder,
	cfg ControllerConfig,
	opts ...ControllerOption,
) *Controller {
	c := &Controller{
		searcher: searcher,
		registry: registry,
		queue:    queue,
		voice:    voice,
		respond:  respond,
		cfg:      cfg,
		log:      logrus.StandardLogger(),
		quit:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithField("provider", searcher.Name())
	return c
}

func (c *Controller) Registry() *Registry { return c.registry }

// HandleSearch runs one search command end to end. The returned error
// classifies the outcome; the user has already been told about it.
func (c *Controller) HandleSearch(ctx context.Context, req Request) error {
	req.Query = strings.TrimSpace(req.Query)
	key := req.Key()
	log := c.log.WithFields(logrus.Fields{"guild": req.ScopeID, "user": req.UserID})

	if err := c.voice.EnsureJoined(ctx, req); err != nil {
		c.deliver(log, "voice failure", c.respond.VoiceFailed(ctx, req, err))
		return fmt.Errorf("%w: %w", ErrVoiceUnavailable, err)
	}

	if req.Query != "" && c.searcher.URLCheck(req.Query) {
		if c.hooks.OnBypass != nil {
			c.hooks.OnBypass(c.searcher.Name())
		}
		// Several links separated by whitespace are queued in order.
		autoStart := !c.queue.Busy(req.ScopeID)
		log.WithField("auto_start", autoStart).Info("direct url, skipping search panel")
		inputs := strings.Fields(req.Query)
		queued := make([]Result, 0, len(inputs))
		for i, input := range inputs {
			if err := c.queue.Enqueue(ctx, req, input, autoStart && i == 0); err != nil {
				if len(queued) > 0 {
					c.deliver(log, "enqueued", c.respond.Enqueued(ctx, req, queued))
				}
				return fmt.Errorf("enqueue %q: %w", input, err)
			}
			queued = append(queued, Result{URL: input})
		}
		c.deliver(log, "enqueued", c.respond.Enqueued(ctx, req, queued))
		return nil
	}

	if req.Query == "" {
		if existing, ok := c.registry.Get(key); ok {
			c.offerCancel(ctx, log, req, existing)
			return &ConflictError{Existing: existing}
		}
		c.deliver(log, "argument prompt", c.respond.ArgumentMissing(ctx, req))
		return ErrArgumentMissing
	}

	s, err := c.registry.Acquire(key, req.Query)
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			c.offerCancel(ctx, log, req, conflict.Existing)
		}
		return err
	}
	log = log.WithField("session", s.ID())

	out, err := c.lookup(ctx, req.Query)
	if err != nil {
		c.registry.Destroy(s, ReasonFailed)
		c.deliver(log, "lookup failure", c.respond.LookupFailed(ctx, req, err))
		return err
	}

	state, err := s.Resolve(out)
	if err != nil {
		// Cancelled by the user while the lookup was running.
		log.WithError(err).Debug("session closed before results arrived")
		return err
	}

	if state == StateEmpty {
		c.registry.Destroy(s, ReasonEmpty)
		c.deliver(log, "no results", c.respond.NoResults(ctx, req, out.Query))
		return ErrEmptyResult
	}

	if err := c.registry.Bind(s, c.cfg.PanelTTL); err != nil {
		log.WithError(err).Debug("session closed before binding")
		return err
	}
	c.deliver(log, "panel", c.respond.Panel(ctx, req, s))

	log.WithField("results", len(s.Results())).Info("search panel bound")
	return nil
}

// HandleSelection enqueues the picked results of a bound panel and
// destroys the session. indices refer to Session.Results.
func (c *Controller) HandleSelection(ctx context.Context, req Request, sessionID string, indices []int) error {
	s, ok := c.registry.Get(req.Key())
	if !ok || s.ID() != sessionID {
		return ErrSessionNotFound
	}

	results := s.Results()
	picked := make([]Result, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(results) {
			return fmt.Errorf("selection index %d out of range", i)
		}
		picked = append(picked, results[i])
	}
	if len(picked) == 0 {
		return ErrArgumentMissing
	}

	if _, err := c.registry.Claim(req.Key(), sessionID, ReasonSelected); err != nil {
		return err
	}

	log := c.log.WithFields(logrus.Fields{"guild": req.ScopeID, "user": req.UserID, "session": sessionID})
	for i, r := range picked {
		autoStart := i == 0 && !c.queue.Busy(req.ScopeID)
		if err := c.queue.Enqueue(ctx, req, r.URL, autoStart); err != nil {
			return fmt.Errorf("enqueue %q: %w", r.URL, err)
		}
	}

	if c.history != nil {
		if err := c.history.RecordSelection(req.ScopeID, req.UserID, s.RawQuery(), picked); err != nil {
			log.WithError(err).Warn("failed to record search history")
		}
	}
	c.deliver(log, "enqueued", c.respond.Enqueued(ctx, req, picked))
	return nil
}

// HandleCancel discards the caller's open panel, if any.
func (c *Controller) HandleCancel(key Key) bool {
	return c.registry.Cancel(key)
}

// Close stops the goroutines waiting to clear conflict affordances.
func (c *Controller) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.quit)
	}
	c.mu.Unlock()
	c.wg.Wait()
}

// track registers a goroutine with Close. It reports false once the
// controller is closed.
func (c *Controller) track() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.wg.Add(1)
	return true
}

func (c *Controller) lookup(ctx context.Context, query string) (Outcome, error) {
	lookupCtx := ctx
	if c.cfg.LookupTimeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, c.cfg.LookupTimeout)
		defer cancel()
	}

	start := time.Now()
	out, err := c.searcher.Search(lookupCtx, query)
	if c.hooks.OnLookup != nil {
		c.hooks.OnLookup(c.searcher.Name(), time.Since(start), err)
	}
	if err != nil {
		return Outcome{}, &LookupError{Provider: c.searcher.Name(), Query: query, Err: err}
	}
	return out, nil
}

// offerCancel replies with a cancel affordance and removes it once the
// existing session is destroyed.
func (c *Controller) offerCancel(ctx context.Context, log logrus.FieldLogger, req Request, existing *Session) {
	aff, err := c.respond.Conflict(ctx, req, existing)
	if err != nil {
		c.deliver(log, "conflict reply", err)
		return
	}
	if aff == nil {
		return
	}

	if !c.track() {
		return
	}
	go func() {
		defer c.wg.Done()
		select {
		case <-existing.Done():
		case <-c.quit:
			return
		}
		if err := aff.Clear(context.Background()); err != nil {
			c.deliver(log, "conflict cleanup", err)
		}
	}()
}

func (c *Controller) deliver(log logrus.FieldLogger, what string, err error) {
	if err != nil {
		log.WithError(err).Warnf("failed to deliver %s", what)
	}
}
