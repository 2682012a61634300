package command

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Session is the part of *discordgo.Session commands use to reply.
type Session interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// SlashContext is passed as Invocation.Data for slash commands.
type SlashContext struct {
	Session Session
	Event   *discordgo.InteractionCreate
}

// ComponentContext is passed as Invocation.Data for buttons and menus.
type ComponentContext struct {
	Session Session
	Event   *discordgo.InteractionCreate
}

// Origin identifies the interaction a piece of work was started from, so
// replies made further down the stack land in the right place.
type Origin struct {
	Interaction *discordgo.Interaction
	Command     string
}

type originKey struct{}

func WithOrigin(ctx context.Context, o Origin) context.Context {
	return context.WithValue(ctx, originKey{}, o)
}

func OriginFrom(ctx context.Context) (Origin, bool) {
	o, ok := ctx.Value(originKey{}).(Origin)
	return o, ok && o.Interaction != nil
}

// ComponentID builds a custom id of the form "<command>:<action>:<arg>".
// The command prefix routes the interaction back to its command.
func ComponentID(command, action, arg string) string {
	return command + ":" + action + ":" + arg
}

func ParseComponentID(id string) (command, action, arg string, ok bool) {
	parts := strings.SplitN(id, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

// invoker returns the user behind an interaction in a guild or a DM.
func invoker(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

func eventOf(data any) (*discordgo.InteractionCreate, Session) {
	switch v := data.(type) {
	case *SlashContext:
		return v.Event, v.Session
	case *ComponentContext:
		return v.Event, v.Session
	}
	return nil, nil
}
