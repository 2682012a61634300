package queue

import (
	"errors"
	"slices"
	"sync"
	"time"
)

type Status string

const (
	StatusPlaying Status = "Playing"
	StatusAdded   Status = "Track(s) Added"
	StatusStopped Status = "Playback Stopped"
)

func (s Status) StringEmoji() string {
	switch s {
	case StatusPlaying:
		return "▶️"
	case StatusAdded:
		return "🎶"
	case StatusStopped:
		return "⏹"
	}
	return ""
}

var (
	ErrNoTrackPlaying  = errors.New("no track is currently playing")
	ErrNoTracksInQueue = errors.New("no tracks in queue")
)

// Track is one queued item.
type Track struct {
	URL         string
	Title       string
	Duration    string
	Author      string
	RequestedBy string
	Username    string
	AddedAt     time.Time
}

// Event is sent to the status listener after the queue changed.
type Event struct {
	GuildID   string
	ChannelID string
	Status    Status
	Track     Track
	QueueLen  int
}

// Player is the per-guild queue. Audio output is not handled here; the
// player only tracks what is current and what comes next.
type Player struct {
	mu        sync.Mutex
	guildID   string
	channelID string
	current   *Track
	queue     []Track
	history   []Track

	notify func(Event)
}

func newPlayer(guildID string, notify func(Event)) *Player {
	return &Player{guildID: guildID, notify: notify}
}

// BindChannel sets the text channel status messages go to.
func (p *Player) BindChannel(channelID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channelID = channelID
}

// Enqueue appends t. With autoStart an idle player starts the head of
// the queue right away.
func (p *Player) Enqueue(t Track, autoStart bool) {
	p.mu.Lock()
	p.queue = append(p.queue, t)
	ev := p.event(StatusAdded, t)

	if autoStart && p.current == nil {
		next := p.queue[0]
		p.queue = p.queue[1:]
		p.current = &next
		p.history = append(p.history, next)
		ev = p.event(StatusPlaying, next)
	}
	p.mu.Unlock()

	p.emit(ev)
}

// Next finishes the current track and starts the following one.
func (p *Player) Next() (Track, error) {
	p.mu.Lock()
	if len(p.queue) == 0 {
		p.current = nil
		ev := p.event(StatusStopped, Track{})
		p.mu.Unlock()
		p.emit(ev)
		return Track{}, ErrNoTracksInQueue
	}

	next := p.queue[0]
	p.queue = p.queue[1:]
	p.current = &next
	p.history = append(p.history, next)
	ev := p.event(StatusPlaying, next)
	p.mu.Unlock()

	p.emit(ev)
	return next, nil
}

// Stop clears the current track and the queue.
func (p *Player) Stop() error {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return ErrNoTrackPlaying
	}
	p.current = nil
	p.queue = nil
	ev := p.event(StatusStopped, Track{})
	p.mu.Unlock()

	p.emit(ev)
	return nil
}

// IsPlaying reports whether a track is current.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil
}

func (p *Player) Current() (Track, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return Track{}, ErrNoTrackPlaying
	}
	return *p.current, nil
}

func (p *Player) Queue() []Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.queue)
}

func (p *Player) History() []Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.history)
}

// event must be called with p.mu held.
func (p *Player) event(st Status, t Track) Event {
	return Event{GuildID: p.guildID, ChannelID: p.channelID, Status: st, Track: t, QueueLen: len(p.queue)}
}

func (p *Player) emit(ev Event) {
	if p.notify != nil {
		p.notify(ev)
	}
}
