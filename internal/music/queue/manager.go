// Package queue keeps the per-guild play queues the search panel feeds.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/keshon/searchpanel/internal/search"
)

// Flags reads per-guild playback settings.
type Flags interface {
	EquallyPlayback(guildID string) (bool, error)
}

type Manager struct {
	mu      sync.Mutex
	players map[string]*Player

	resolver Resolver
	flags    Flags
	onStatus func(Event)
	log      logrus.FieldLogger
	now      func() time.Time
}

type Option func(*Manager)

func WithFlags(f Flags) Option {
	return func(m *Manager) { m.flags = f }
}

// WithStatusListener receives every queue event. It is called outside
// the player lock and must not block for long.
func WithStatusListener(fn func(Event)) Option {
	return func(m *Manager) { m.onStatus = fn }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(m *Manager) { m.log = log }
}

func NewManager(resolver Resolver, opts ...Option) *Manager {
	m := &Manager{
		players:  make(map[string]*Player),
		resolver: resolver,
		log:      logrus.StandardLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var _ search.Enqueuer = (*Manager)(nil)

// GetOrCreatePlayer returns the guild's player.
func (m *Manager) GetOrCreatePlayer(guildID string) *Player {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.players[guildID]; ok {
		return p
	}
	p := newPlayer(guildID, m.emit)
	m.players[guildID] = p
	return p
}

// Busy reports whether the guild's player already has a current track.
func (m *Manager) Busy(guildID string) bool {
	m.mu.Lock()
	p, ok := m.players[guildID]
	m.mu.Unlock()
	return ok && p.IsPlaying()
}

func (m *Manager) Enqueue(ctx context.Context, req search.Request, input string, autoStart bool) error {
	t, err := m.resolver.Resolve(ctx, input)
	if err != nil {
		return err
	}
	t.RequestedBy = req.UserID
	t.Username = req.Username
	t.AddedAt = m.now()

	log := m.log.WithFields(logrus.Fields{"guild": req.ScopeID, "url": t.URL, "auto_start": autoStart})
	if m.flags != nil {
		equally, err := m.flags.EquallyPlayback(req.ScopeID)
		if err != nil {
			log.WithError(err).Warn("failed to read playback flags")
		}
		// Equal playback only changes insertion order, which is not
		// implemented yet; tracks are appended either way.
		log = log.WithField("equally", equally)
	}

	p := m.GetOrCreatePlayer(req.ScopeID)
	if req.ChannelID != "" {
		p.BindChannel(req.ChannelID)
	}
	p.Enqueue(t, autoStart)
	log.Info("track queued")
	return nil
}

func (m *Manager) emit(ev Event) {
	if m.onStatus != nil {
		m.onStatus(ev)
	}
}
