package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/searchpanel/internal/command"
	"github.com/keshon/searchpanel/internal/music/queue"
	"github.com/keshon/searchpanel/internal/search"
)

var _ search.Responder = (*Responder)(nil)

type fakeMessenger struct {
	mu           sync.Mutex
	next         int
	followups    []*discordgo.WebhookParams
	followupEdit map[string]*discordgo.WebhookEdit
	channelSends []*discordgo.MessageSend
	channelEdits []*discordgo.MessageEdit
	fail         error
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{followupEdit: make(map[string]*discordgo.WebhookEdit)}
}

func (f *fakeMessenger) id() string {
	f.next++
	return fmt.Sprintf("msg-%d", f.next)
}

func (f *fakeMessenger) FollowupMessageCreate(_ *discordgo.Interaction, _ bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	f.followups = append(f.followups, data)
	return &discordgo.Message{ID: f.id()}, nil
}

func (f *fakeMessenger) FollowupMessageEdit(_ *discordgo.Interaction, messageID string, data *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.followupEdit[messageID] = data
	return &discordgo.Message{ID: messageID}, nil
}

func (f *fakeMessenger) ChannelMessageSendComplex(_ string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	f.channelSends = append(f.channelSends, data)
	return &discordgo.Message{ID: f.id()}, nil
}

func (f *fakeMessenger) ChannelMessageEditComplex(m *discordgo.MessageEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channelEdits = append(f.channelEdits, m)
	return &discordgo.Message{ID: m.ID}, nil
}

func (f *fakeMessenger) edited(messageID string) *discordgo.WebhookEdit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.followupEdit[messageID]
}

func newResponder(t *testing.T, m Messenger) *Responder {
	t.Helper()
	log, _ := test.NewNullLogger()
	r := NewResponder(m, log)
	t.Cleanup(r.Close)
	return r
}

func originCtx(name string) context.Context {
	return command.WithOrigin(context.Background(), command.Origin{
		Interaction: &discordgo.Interaction{ID: "i"},
		Command:     name,
	})
}

var testReq = search.Request{ScopeID: "g", ChannelID: "c", UserID: "u", Username: "alice", Query: "daft punk"}

func boundSession(t *testing.T, reg *search.Registry, results ...search.Result) *search.Session {
	t.Helper()
	s, err := reg.Acquire(testReq.Key(), testReq.Query)
	require.NoError(t, err)
	_, err = s.Resolve(search.Outcome{Results: results, Query: "Daft Punk"})
	require.NoError(t, err)
	require.NoError(t, reg.Bind(s, 0))
	return s
}

func TestPanelRendersAndClosesOnDestroy(t *testing.T) {
	m := newFakeMessenger()
	r := newResponder(t, m)
	reg := search.NewRegistry()

	s := boundSession(t, reg,
		search.Result{URL: "https://x/1", Title: "One", Duration: "3:00", Author: "A", Thumbnail: "https://img/1", Description: "Length: 3:00, Channel: A"},
		search.Result{URL: "https://x/2", Title: "Two"},
	)
	require.NoError(t, r.Panel(originCtx("playlist"), testReq, s))

	require.Len(t, m.followups, 1)
	params := m.followups[0]
	require.Len(t, params.Embeds, 1)
	assert.Contains(t, params.Embeds[0].Title, "Daft Punk")
	assert.Contains(t, params.Embeds[0].Description, "`1.` [One](https://x/1) `3:00` · A")
	assert.Equal(t, "https://img/1", params.Embeds[0].Thumbnail.URL)
	assert.Zero(t, params.Flags)

	require.Len(t, params.Components, 2)
	menu := params.Components[0].(discordgo.ActionsRow).Components[0].(discordgo.SelectMenu)
	assert.Equal(t, command.ComponentID("playlist", command.ActionSelect, s.ID()), menu.CustomID)
	assert.Equal(t, 2, menu.MaxValues)
	require.Len(t, menu.Options, 2)
	assert.Equal(t, "0", menu.Options[0].Value)
	assert.Equal(t, "1. One", menu.Options[0].Label)

	cancel := params.Components[1].(discordgo.ActionsRow).Components[0].(discordgo.Button)
	assert.Equal(t, "playlist:cancel:u", cancel.CustomID)

	reg.Cancel(testReq.Key())

	require.Eventually(t, func() bool { return m.edited("msg-1") != nil }, time.Second, 5*time.Millisecond)
	edit := m.edited("msg-1")
	assert.Empty(t, *edit.Components)
	assert.Contains(t, *edit.Content, "discarded")
}

func TestClosedResponderLeavesPanelUnwatched(t *testing.T) {
	m := newFakeMessenger()
	r := newResponder(t, m)
	reg := search.NewRegistry()
	s := boundSession(t, reg, search.Result{URL: "https://x/1", Title: "One"})

	r.Close()
	require.NoError(t, r.Panel(originCtx("search"), testReq, s))
	require.Len(t, m.followups, 1)

	reg.Cancel(testReq.Key())
	assert.Never(t, func() bool { return m.edited("msg-1") != nil }, 50*time.Millisecond, time.Millisecond)
}

func TestPanelCapsOptions(t *testing.T) {
	m := newFakeMessenger()
	r := newResponder(t, m)

	results := make([]search.Result, 30)
	for i := range results {
		results[i] = search.Result{URL: fmt.Sprintf("https://x/%d", i)}
	}
	s := boundSession(t, search.NewRegistry(), results...)
	require.NoError(t, r.Panel(context.Background(), testReq, s))

	require.Len(t, m.channelSends, 1)
	menu := m.channelSends[0].Components[0].(discordgo.ActionsRow).Components[0].(discordgo.SelectMenu)
	assert.Len(t, menu.Options, 25)
	assert.Equal(t, 25, menu.MaxValues)
	assert.Equal(t, "search:select:"+s.ID(), menu.CustomID)
}

func TestConflictAffordanceClearsOnce(t *testing.T) {
	m := newFakeMessenger()
	r := newResponder(t, m)
	s := boundSession(t, search.NewRegistry(), search.Result{URL: "https://x/1"})

	aff, err := r.Conflict(originCtx("search"), testReq, s)
	require.NoError(t, err)

	params := m.followups[0]
	assert.Equal(t, discordgo.MessageFlagsEphemeral, params.Flags)
	assert.Contains(t, params.Content, "daft punk")
	button := params.Components[0].(discordgo.ActionsRow).Components[0].(discordgo.Button)
	assert.Equal(t, "search:cancel:u", button.CustomID)
	assert.Equal(t, discordgo.DangerButton, button.Style)

	require.NoError(t, aff.Clear(context.Background()))
	require.NoError(t, aff.Clear(context.Background()))
	edit := m.edited("msg-1")
	require.NotNil(t, edit)
	assert.Empty(t, *edit.Components)
	assert.Nil(t, edit.Content)
}

func TestChannelFallback(t *testing.T) {
	m := newFakeMessenger()
	r := newResponder(t, m)

	require.NoError(t, r.NoResults(context.Background(), testReq, "zzz"))
	require.NoError(t, r.VoiceFailed(context.Background(), testReq, ErrNotInVoice))
	require.Len(t, m.channelSends, 2)
	assert.Contains(t, m.channelSends[0].Content, "zzz")
	assert.Contains(t, m.channelSends[1].Content, "Join a voice channel")

	noChannel := testReq
	noChannel.ChannelID = ""
	assert.Error(t, r.ArgumentMissing(context.Background(), noChannel))
}

func TestDeliveryErrorsAreReturned(t *testing.T) {
	m := newFakeMessenger()
	m.fail = errors.New("503")
	r := newResponder(t, m)

	assert.Error(t, r.LookupFailed(originCtx("search"), testReq, errors.New("boom")))
	_, err := r.Conflict(originCtx("search"), testReq, boundSession(t, search.NewRegistry(), search.Result{URL: "u"}))
	assert.Error(t, err)
}

func TestEnqueuedListsTracks(t *testing.T) {
	m := newFakeMessenger()
	r := newResponder(t, m)

	picked := make([]search.Result, 12)
	for i := range picked {
		picked[i] = search.Result{URL: fmt.Sprintf("https://x/%d", i)}
	}
	require.NoError(t, r.Enqueued(originCtx("search"), testReq, picked))

	embed := m.followups[0].Embeds[0]
	assert.Equal(t, "🎶 Added 12 track(s)", embed.Title)
	assert.Contains(t, embed.Description, "and 2 more")
}

func TestAnnounce(t *testing.T) {
	m := newFakeMessenger()
	r := newResponder(t, m)

	r.Announce(queue.Event{GuildID: "g", ChannelID: "c", Status: queue.StatusAdded})
	r.Announce(queue.Event{GuildID: "g", Status: queue.StatusPlaying})
	assert.Empty(t, m.channelSends)

	r.Announce(queue.Event{
		GuildID:   "g",
		ChannelID: "c",
		Status:    queue.StatusPlaying,
		Track:     queue.Track{URL: "https://x/1", Title: "One", Username: "alice"},
		QueueLen:  2,
	})
	require.Len(t, m.channelSends, 1)
	embed := m.channelSends[0].Embeds[0]
	assert.Equal(t, "▶️ Playing", embed.Title)
	assert.Equal(t, "**[One](https://x/1)**", embed.Description)
	assert.Equal(t, "Requested by alice · 2 in queue", embed.Footer.Text)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab…", truncate("abcd", 3))
	assert.Equal(t, "日本…", truncate("日本語です", 3))
}
