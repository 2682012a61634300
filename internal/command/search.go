package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/keshon/searchpanel/internal/search"
)

const (
	ActionSelect = "select"
	ActionCancel = "cancel"
)

// SearchCommand opens a search panel through one controller. The same
// type backs /search and /playlist; only the provider differs.
type SearchCommand struct {
	CommandName string
	Summary     string
	Option      string
	OptionHelp  string
	Controller  *search.Controller
	Log         logrus.FieldLogger
}

func NewSearchCommand(ctrl *search.Controller, log logrus.FieldLogger) *SearchCommand {
	return &SearchCommand{
		CommandName: "search",
		Summary:     "Search YouTube and pick tracks from a panel",
		Option:      "query",
		OptionHelp:  "Search words, or a link to queue directly",
		Controller:  ctrl,
		Log:         log,
	}
}

func NewPlaylistCommand(ctrl *search.Controller, log logrus.FieldLogger) *SearchCommand {
	return &SearchCommand{
		CommandName: "playlist",
		Summary:     "Open a YouTube playlist and pick tracks from it",
		Option:      "url",
		OptionHelp:  "Playlist link or id",
		Controller:  ctrl,
		Log:         log,
	}
}

func (c *SearchCommand) Name() string             { return c.CommandName }
func (c *SearchCommand) Description() string      { return c.Summary }
func (c *SearchCommand) Group() string            { return "music" }
func (c *SearchCommand) Category() string         { return "🎵 Music" }
func (c *SearchCommand) UserPermissions() []int64 { return nil }

func (c *SearchCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.CommandName,
		Description: c.Summary,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        c.Option,
				Description: c.OptionHelp,
			},
		},
	}
}

func (c *SearchCommand) Run(ctx context.Context, data any) error {
	sc, ok := data.(*SlashContext)
	if !ok {
		return nil
	}
	e := sc.Event

	var query string
	for _, opt := range e.ApplicationCommandData().Options {
		if opt.Name == c.Option {
			query = opt.StringValue()
		}
	}

	if err := RespondDeferred(sc.Session, e); err != nil {
		return fmt.Errorf("defer reply: %w", err)
	}

	ctx = WithOrigin(ctx, Origin{Interaction: e.Interaction, Command: c.CommandName})
	err := c.Controller.HandleSearch(ctx, requestFrom(e, query))
	if err == nil || userFacing(err) {
		return nil
	}
	if errors.Is(err, search.ErrSessionClosed) {
		return FollowupEphemeral(sc.Session, e, "Search cancelled.")
	}

	c.Log.WithError(err).WithField("command", c.CommandName).Error("search failed")
	return FollowupEphemeral(sc.Session, e, "Something went wrong while queueing that.")
}

func (c *SearchCommand) Component(ctx context.Context, cc *ComponentContext) error {
	e := cc.Event
	_, action, arg, ok := ParseComponentID(e.MessageComponentData().CustomID)
	if !ok {
		return nil
	}
	user := invoker(e)
	if user == nil {
		return nil
	}

	switch action {
	case ActionCancel:
		if arg != user.ID {
			return RespondEphemeral(cc.Session, e, "Only the person who opened this search can discard it.")
		}
		if !c.Controller.HandleCancel(search.Key{ScopeID: e.GuildID, UserID: user.ID}) {
			return RespondEphemeral(cc.Session, e, "There is no open search panel to discard.")
		}
		return RespondUpdate(cc.Session, e, "🗑️ Search panel discarded.")

	case ActionSelect:
		indices, err := parseIndices(e.MessageComponentData().Values)
		if err != nil {
			return RespondEphemeral(cc.Session, e, "That selection is not valid.")
		}
		if err := RespondDeferredUpdate(cc.Session, e); err != nil {
			return fmt.Errorf("defer update: %w", err)
		}

		ctx = WithOrigin(ctx, Origin{Interaction: e.Interaction, Command: c.CommandName})
		err = c.Controller.HandleSelection(ctx, requestFrom(e, ""), arg, indices)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, search.ErrSessionNotFound):
			return FollowupEphemeral(cc.Session, e, "This search panel is not yours or has already closed.")
		default:
			c.Log.WithError(err).WithField("command", c.CommandName).Error("selection failed")
			return FollowupEphemeral(cc.Session, e, "Something went wrong while queueing your selection.")
		}
	}
	return nil
}

// userFacing reports errors the controller already told the user about.
func userFacing(err error) bool {
	for _, target := range []error{
		search.ErrArgumentMissing,
		search.ErrSessionConflict,
		search.ErrLookupFailure,
		search.ErrEmptyResult,
		search.ErrVoiceUnavailable,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func requestFrom(e *discordgo.InteractionCreate, query string) search.Request {
	req := search.Request{ScopeID: e.GuildID, ChannelID: e.ChannelID, Query: query}
	if u := invoker(e); u != nil {
		req.UserID = u.ID
		req.Username = u.Username
	}
	return req
}

func parseIndices(values []string) ([]int, error) {
	out := make([]int, 0, len(values))
	for _, v := range values {
		i, err := strconv.Atoi(v)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, nil
}
