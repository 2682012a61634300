package command

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/searchpanel/pkg/cmd"
)

// DiscordCommand is implemented by every Discord command.
type DiscordCommand interface {
	Name() string
	Description() string
	Group() string
	Category() string
	UserPermissions() []int64
	Run(ctx context.Context, data any) error
}

type SlashProvider interface {
	SlashDefinition() *discordgo.ApplicationCommand
}

// ComponentHandler receives button and select menu interactions whose
// custom id starts with the command name.
type ComponentHandler interface {
	Component(ctx context.Context, cc *ComponentContext) error
}

// Meta lets middleware read command metadata without knowing the type.
type Meta interface {
	Group() string
	Category() string
	UserPermissions() []int64
}

// Adapter puts a DiscordCommand into the transport-agnostic registry.
type Adapter struct {
	Cmd DiscordCommand
}

func (a *Adapter) Name() string             { return a.Cmd.Name() }
func (a *Adapter) Description() string      { return a.Cmd.Description() }
func (a *Adapter) Group() string            { return a.Cmd.Group() }
func (a *Adapter) Category() string         { return a.Cmd.Category() }
func (a *Adapter) UserPermissions() []int64 { return a.Cmd.UserPermissions() }

// Run dispatches component contexts to Component and everything else to
// the command's Run.
func (a *Adapter) Run(ctx context.Context, inv *cmd.Invocation) error {
	if cc, ok := inv.Data.(*ComponentContext); ok {
		if h, ok := a.Cmd.(ComponentHandler); ok {
			return h.Component(ctx, cc)
		}
		return nil
	}
	return a.Cmd.Run(ctx, inv.Data)
}

func (a *Adapter) SlashDefinition() *discordgo.ApplicationCommand {
	if sp, ok := a.Cmd.(SlashProvider); ok {
		return sp.SlashDefinition()
	}
	return nil
}

// Register wraps c with mws and adds it to reg.
func Register(reg *cmd.Registry, c DiscordCommand, mws ...cmd.Middleware) error {
	return reg.Register(cmd.Apply(&Adapter{Cmd: c}, mws...))
}

// Definition returns the slash command definition of a registered command.
func Definition(c cmd.Command) *discordgo.ApplicationCommand {
	sp, ok := cmd.As[SlashProvider](c)
	if !ok {
		return nil
	}
	def := sp.SlashDefinition()
	if def != nil && def.Type == 0 {
		def.Type = discordgo.ChatApplicationCommand
	}
	return def
}
