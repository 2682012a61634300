package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kkdai/youtube/v2"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/searchpanel/internal/search"
)

type staticResolver struct{ err error }

func (r staticResolver) Resolve(_ context.Context, input string) (Track, error) {
	if r.err != nil {
		return Track{}, r.err
	}
	return Track{URL: input, Title: "title of " + input}, nil
}

type flags struct{ equally bool }

func (f flags) EquallyPlayback(string) (bool, error) { return f.equally, nil }

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) add(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) statuses() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Status, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Status)
	}
	return out
}

func newManager(t *testing.T, res Resolver) (*Manager, *recorder) {
	t.Helper()
	log, _ := test.NewNullLogger()
	rec := &recorder{}
	return NewManager(res, WithLogger(log), WithFlags(flags{equally: true}), WithStatusListener(rec.add)), rec
}

func request() search.Request {
	return search.Request{ScopeID: "g", ChannelID: "text", UserID: "u", Username: "alice"}
}

func TestEnqueueAutoStart(t *testing.T) {
	m, rec := newManager(t, staticResolver{})
	ctx := context.Background()

	assert.False(t, m.Busy("g"))
	require.NoError(t, m.Enqueue(ctx, request(), "https://a", true))
	assert.True(t, m.Busy("g"))

	require.NoError(t, m.Enqueue(ctx, request(), "https://b", false))
	require.NoError(t, m.Enqueue(ctx, request(), "https://c", true))

	p := m.GetOrCreatePlayer("g")
	cur, err := p.Current()
	require.NoError(t, err)
	assert.Equal(t, "https://a", cur.URL)
	assert.Equal(t, "u", cur.RequestedBy)
	assert.Equal(t, "alice", cur.Username)
	assert.False(t, cur.AddedAt.IsZero())

	queued := p.Queue()
	require.Len(t, queued, 2)
	assert.Equal(t, "https://b", queued[0].URL)

	assert.Equal(t, []Status{StatusPlaying, StatusAdded, StatusAdded}, rec.statuses())
	assert.Equal(t, "text", rec.events[0].ChannelID)
}

func TestEnqueueWithoutAutoStartStaysIdle(t *testing.T) {
	m, _ := newManager(t, staticResolver{})
	require.NoError(t, m.Enqueue(context.Background(), request(), "https://a", false))

	assert.False(t, m.Busy("g"))
	assert.Len(t, m.GetOrCreatePlayer("g").Queue(), 1)
}

func TestEnqueueResolveError(t *testing.T) {
	boom := errors.New("unavailable")
	m, rec := newManager(t, staticResolver{err: boom})

	err := m.Enqueue(context.Background(), request(), "https://a", true)
	assert.ErrorIs(t, err, boom)
	assert.False(t, m.Busy("g"))
	assert.Empty(t, rec.statuses())
}

func TestPlayerNextAndStop(t *testing.T) {
	m, rec := newManager(t, staticResolver{})
	ctx := context.Background()
	require.NoError(t, m.Enqueue(ctx, request(), "https://a", true))
	require.NoError(t, m.Enqueue(ctx, request(), "https://b", false))

	p := m.GetOrCreatePlayer("g")
	next, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, "https://b", next.URL)
	assert.Len(t, p.History(), 2)

	_, err = p.Next()
	assert.ErrorIs(t, err, ErrNoTracksInQueue)
	assert.False(t, p.IsPlaying())
	assert.ErrorIs(t, p.Stop(), ErrNoTrackPlaying)

	require.NoError(t, m.Enqueue(ctx, request(), "https://c", true))
	require.NoError(t, p.Stop())
	assert.False(t, m.Busy("g"))
	assert.Equal(t, StatusStopped, rec.statuses()[len(rec.statuses())-1])
}

func TestStatusEmoji(t *testing.T) {
	assert.Equal(t, "▶️", StatusPlaying.StringEmoji())
	assert.Equal(t, "", Status("other").StringEmoji())
}

type fakeVideos struct {
	video *youtube.Video
	err   error
	calls int
}

func (f *fakeVideos) GetVideoContext(context.Context, string) (*youtube.Video, error) {
	f.calls++
	return f.video, f.err
}

func TestKkdaiResolver(t *testing.T) {
	videos := &fakeVideos{video: &youtube.Video{
		ID:       "dQw4w9WgXcQ",
		Title:    "Never Gonna Give You Up",
		Author:   "Rick Astley",
		Duration: 3*time.Minute + 33*time.Second,
	}}
	r := KkdaiResolver{Client: videos}

	tr, err := r.Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", tr.URL)
	assert.Equal(t, "3:33", tr.Duration)
	assert.Equal(t, "Rick Astley", tr.Author)

	tr, err = r.Resolve(context.Background(), "https://radio.example.com/stream.mp3")
	require.NoError(t, err)
	assert.Equal(t, "https://radio.example.com/stream.mp3", tr.Title)
	assert.Equal(t, 1, videos.calls)

	tr, err = r.Resolve(context.Background(), "https://example.com/v1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/v1", tr.URL)
	assert.Equal(t, 1, videos.calls)

	_, err = r.Resolve(context.Background(), "not a link at all")
	assert.Error(t, err)

	videos.err = errors.New("private video")
	_, err = r.Resolve(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	assert.Error(t, err)
}

func TestEnqueueForeignLinkSkipsMetadataFetch(t *testing.T) {
	videos := &fakeVideos{err: errors.New("video unavailable")}
	m, _ := newManager(t, KkdaiResolver{Client: videos})

	require.NoError(t, m.Enqueue(context.Background(), request(), "https://example.com/v1", true))
	assert.Zero(t, videos.calls)

	cur, err := m.GetOrCreatePlayer("g").Current()
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/v1", cur.URL)
}
