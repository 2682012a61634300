package discord

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/keshon/searchpanel/internal/command"
	"github.com/keshon/searchpanel/internal/config"
	"github.com/keshon/searchpanel/internal/search"
)

// Messenger is the part of *discordgo.Session the responder writes with.
type Messenger interface {
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	FollowupMessageEdit(interaction *discordgo.Interaction, messageID string, data *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

const (
	defaultCommand = "search"
	labelLimit     = 100
	enqueuedShown  = 10
)

// Responder renders search flow replies. Replies go to the interaction
// found in the context and fall back to plain channel messages.
type Responder struct {
	m   Messenger
	log logrus.FieldLogger

	mu     sync.Mutex
	closed bool
	quit   chan struct{}
	wg     sync.WaitGroup
}

func NewResponder(m Messenger, log logrus.FieldLogger) *Responder {
	return &Responder{m: m, log: log, quit: make(chan struct{})}
}

// Close stops the panel watchers. Panels still open keep their
// components.
func (r *Responder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.quit)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

// spawn runs fn on a tracked goroutine unless the responder is closed.
func (r *Responder) spawn(fn func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fn()
	}()
	return true
}

// sent points at a delivered message so it can be edited later.
type sent struct {
	interaction *discordgo.Interaction
	channelID   string
	messageID   string
}

type outgoing struct {
	content    string
	embeds     []*discordgo.MessageEmbed
	components []discordgo.MessageComponent
	ephemeral  bool
}

func (r *Responder) send(ctx context.Context, req search.Request, out outgoing) (sent, error) {
	if o, ok := command.OriginFrom(ctx); ok {
		params := &discordgo.WebhookParams{
			Content:    out.content,
			Embeds:     out.embeds,
			Components: out.components,
		}
		if out.ephemeral {
			params.Flags = discordgo.MessageFlagsEphemeral
		}
		msg, err := r.m.FollowupMessageCreate(o.Interaction, true, params)
		if err != nil {
			return sent{}, err
		}
		return sent{interaction: o.Interaction, messageID: msg.ID}, nil
	}

	if req.ChannelID == "" {
		return sent{}, errors.New("no channel to reply in")
	}
	msg, err := r.m.ChannelMessageSendComplex(req.ChannelID, &discordgo.MessageSend{
		Content:    out.content,
		Embeds:     out.embeds,
		Components: out.components,
	})
	if err != nil {
		return sent{}, err
	}
	return sent{channelID: req.ChannelID, messageID: msg.ID}, nil
}

// strip removes every component from a delivered message and optionally
// replaces its content.
func (r *Responder) strip(to sent, content string) error {
	components := []discordgo.MessageComponent{}
	var text *string
	if content != "" {
		text = &content
	}

	if to.interaction != nil {
		_, err := r.m.FollowupMessageEdit(to.interaction, to.messageID, &discordgo.WebhookEdit{
			Content:    text,
			Components: &components,
		})
		return err
	}
	_, err := r.m.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         to.messageID,
		Channel:    to.channelID,
		Content:    text,
		Components: &components,
	})
	return err
}

func commandName(ctx context.Context) string {
	if o, ok := command.OriginFrom(ctx); ok && o.Command != "" {
		return o.Command
	}
	return defaultCommand
}

func (r *Responder) ArgumentMissing(ctx context.Context, req search.Request) error {
	_, err := r.send(ctx, req, outgoing{content: "Please tell me what to search for.", ephemeral: true})
	return err
}

func (r *Responder) VoiceFailed(ctx context.Context, req search.Request, err error) error {
	text := "✘ I could not join your voice channel."
	if errors.Is(err, ErrNotInVoice) {
		text = "✘ Join a voice channel first."
	}
	_, sendErr := r.send(ctx, req, outgoing{content: text, ephemeral: true})
	return sendErr
}

func (r *Responder) Conflict(ctx context.Context, req search.Request, existing *search.Session) (search.Affordance, error) {
	button := discordgo.Button{
		Label:    "Discard previous results",
		Style:    discordgo.DangerButton,
		CustomID: command.ComponentID(commandName(ctx), command.ActionCancel, req.UserID),
	}
	msg, err := r.send(ctx, req, outgoing{
		content:    fmt.Sprintf("✘ You already have an open search panel for **%s**.", existing.RawQuery()),
		components: []discordgo.MessageComponent{discordgo.ActionsRow{Components: []discordgo.MessageComponent{button}}},
		ephemeral:  true,
	})
	if err != nil {
		return nil, err
	}
	return &affordance{r: r, msg: msg}, nil
}

type affordance struct {
	r    *Responder
	msg  sent
	once sync.Once
}

func (a *affordance) Clear(context.Context) error {
	var err error
	a.once.Do(func() { err = a.r.strip(a.msg, "") })
	return err
}

func (r *Responder) LookupFailed(ctx context.Context, req search.Request, _ error) error {
	_, err := r.send(ctx, req, outgoing{content: "✘ The search failed, please try again later.", ephemeral: true})
	return err
}

func (r *Responder) NoResults(ctx context.Context, req search.Request, query string) error {
	_, err := r.send(ctx, req, outgoing{content: fmt.Sprintf("✘ Nothing found for **%s**.", query), ephemeral: true})
	return err
}

// Panel sends the result list with a select menu and a cancel button.
// The components are removed once the session ends.
func (r *Responder) Panel(ctx context.Context, req search.Request, s *search.Session) error {
	results := s.Results()
	if len(results) > config.MaxPanelResults {
		results = results[:config.MaxPanelResults]
	}
	name := commandName(ctx)

	msg, err := r.send(ctx, req, outgoing{
		embeds:     []*discordgo.MessageEmbed{panelEmbed(s.Query(), req.Username, results)},
		components: panelComponents(name, s.ID(), req.UserID, results),
	})
	if err != nil {
		return err
	}

	if !r.spawn(func() { r.watch(s, msg) }) {
		r.log.WithField("session", s.ID()).Debug("responder closed, panel left unwatched")
	}
	return nil
}

func (r *Responder) watch(s *search.Session, msg sent) {
	select {
	case <-r.quit:
		return
	case <-s.Done():
	}

	if err := r.strip(msg, closedText(s.Reason())); err != nil {
		r.log.WithError(err).WithField("session", s.ID()).Warn("failed to close search panel")
	}
}

func closedText(reason search.DestroyReason) string {
	switch reason {
	case search.ReasonSelected:
		return "✅ Selection queued."
	case search.ReasonExpired:
		return "⌛ This search panel expired."
	case search.ReasonCancelled:
		return "🗑️ This search panel was discarded."
	}
	return "This search panel is closed."
}

func panelEmbed(query, username string, results []search.Result) *discordgo.MessageEmbed {
	var b strings.Builder
	for i, res := range results {
		fmt.Fprintf(&b, "`%d.` [%s](%s)", i+1, res.Label(), res.URL)
		if res.Duration != "" {
			fmt.Fprintf(&b, " `%s`", res.Duration)
		}
		if res.Author != "" {
			fmt.Fprintf(&b, " · %s", res.Author)
		}
		b.WriteString("\n")
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("🔍 Results for \"%s\"", query),
		Description: b.String(),
		Color:       command.EmbedColor,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Requested by %s", username)},
	}
	if len(results) > 0 && results[0].Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: results[0].Thumbnail}
	}
	return embed
}

func panelComponents(name, sessionID, userID string, results []search.Result) []discordgo.MessageComponent {
	options := make([]discordgo.SelectMenuOption, 0, len(results))
	for i, res := range results {
		options = append(options, discordgo.SelectMenuOption{
			Label:       truncate(fmt.Sprintf("%d. %s", i+1, res.Label()), labelLimit),
			Value:       strconv.Itoa(i),
			Description: truncate(res.Description, labelLimit),
		})
	}
	minValues := 1

	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    command.ComponentID(name, command.ActionSelect, sessionID),
				Placeholder: "Pick the tracks to queue",
				MinValues:   &minValues,
				MaxValues:   len(options),
				Options:     options,
			},
		}},
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Cancel",
				Style:    discordgo.SecondaryButton,
				CustomID: command.ComponentID(name, command.ActionCancel, userID),
			},
		}},
	}
}

func (r *Responder) Enqueued(ctx context.Context, req search.Request, picked []search.Result) error {
	var b strings.Builder
	for i, res := range picked {
		if i == enqueuedShown {
			fmt.Fprintf(&b, "…and %d more\n", len(picked)-enqueuedShown)
			break
		}
		fmt.Fprintf(&b, "- %s\n", res.Label())
	}

	_, err := r.send(ctx, req, outgoing{embeds: []*discordgo.MessageEmbed{{
		Title:       fmt.Sprintf("🎶 Added %d track(s)", len(picked)),
		Description: b.String(),
		Color:       command.EmbedColor,
	}}})
	return err
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
