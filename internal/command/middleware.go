package command

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/keshon/searchpanel/internal/storage"
	"github.com/keshon/searchpanel/pkg/cmd"
)

// WithGuildOnly drops invocations made outside a guild.
func WithGuildOnly() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			e, s := eventOf(inv.Data)
			if e != nil && e.GuildID == "" {
				return RespondEphemeral(s, e, "This command only works in a server.")
			}
			return c.Run(ctx, inv)
		})
	}
}

// WithUserPermissionCheck allows the command when the member has any of
// the permissions the command lists. Administrators always pass and a
// command listing none is open to everyone.
func WithUserPermissionCheck() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			meta, ok := cmd.As[Meta](c)
			if !ok || len(meta.UserPermissions()) == 0 {
				return c.Run(ctx, inv)
			}

			e, s := eventOf(inv.Data)
			if e == nil || e.Member == nil {
				return c.Run(ctx, inv)
			}

			if hasAnyPermission(e.Member.Permissions, meta.UserPermissions()) {
				return c.Run(ctx, inv)
			}
			return RespondEphemeral(s, e, "You don't have permission to use this command.")
		})
	}
}

func hasAnyPermission(have int64, required []int64) bool {
	if have&discordgo.PermissionAdministrator != 0 {
		return true
	}
	for _, p := range required {
		if have&p != 0 {
			return true
		}
	}
	return false
}

// HistoryStore records executed commands.
type HistoryStore interface {
	AppendCommandToHistory(guildID string, rec storage.CommandHistoryRecord) error
}

// WithCommandLogger logs every slash invocation and stores it in the
// guild's command history.
func WithCommandLogger(store HistoryStore, log logrus.FieldLogger) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			start := time.Now()
			err := c.Run(ctx, inv)

			sc, ok := inv.Data.(*SlashContext)
			if !ok || sc.Event == nil {
				return err
			}

			user := invoker(sc.Event)
			entry := log.WithFields(logrus.Fields{
				"command": c.Name(),
				"guild":   sc.Event.GuildID,
				"took":    time.Since(start).Round(time.Millisecond),
			})
			if user != nil {
				entry = entry.WithField("user", user.ID)
			}
			if err != nil {
				entry.WithError(err).Warn("command failed")
			} else {
				entry.Info("command executed")
			}

			if store != nil && sc.Event.GuildID != "" && user != nil {
				rec := storage.CommandHistoryRecord{
					ChannelID: sc.Event.ChannelID,
					UserID:    user.ID,
					Username:  user.Username,
					Command:   c.Name(),
					Param:     optionSummary(sc.Event),
					Datetime:  start,
				}
				if e := store.AppendCommandToHistory(sc.Event.GuildID, rec); e != nil {
					log.WithError(e).Warn("failed to store command history")
				}
			}
			return err
		})
	}
}

func optionSummary(e *discordgo.InteractionCreate) string {
	if e.Type != discordgo.InteractionApplicationCommand {
		return ""
	}
	opts := e.ApplicationCommandData().Options
	if len(opts) == 0 {
		return ""
	}
	if opts[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		return opts[0].Name
	}
	if s, ok := opts[0].Value.(string); ok {
		return s
	}
	return ""
}
