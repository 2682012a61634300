package command

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// PlaybackFlags toggles per-guild playback settings.
type PlaybackFlags interface {
	ToggleEquallyPlayback(guildID string) (bool, error)
}

// EquallyCommand toggles equal playback: tracks added by different users
// are meant to take turns in the queue.
type EquallyCommand struct {
	Flags PlaybackFlags
}

func (c *EquallyCommand) Name() string        { return "equally" }
func (c *EquallyCommand) Description() string { return "Toggle equal playback between the users adding tracks" }
func (c *EquallyCommand) Group() string       { return "music" }
func (c *EquallyCommand) Category() string    { return "⚙️ Settings" }

func (c *EquallyCommand) UserPermissions() []int64 {
	return []int64{discordgo.PermissionManageGuild, discordgo.PermissionVoiceMoveMembers}
}

func (c *EquallyCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *EquallyCommand) Run(_ context.Context, data any) error {
	sc, ok := data.(*SlashContext)
	if !ok {
		return nil
	}

	enabled, err := c.Flags.ToggleEquallyPlayback(sc.Event.GuildID)
	if err != nil {
		return fmt.Errorf("toggle equal playback: %w", err)
	}
	return RespondEmbed(sc.Session, sc.Event, equallyEmbed(enabled))
}

func equallyEmbed(enabled bool) *discordgo.MessageEmbed {
	if !enabled {
		return &discordgo.MessageEmbed{Title: "❌ Equal playback turned off", Color: EmbedColor}
	}
	return &discordgo.MessageEmbed{
		Title:       "⭕ Equal playback turned on",
		Description: "Tracks added by different users will be played in turns, as evenly as possible.",
		Color:       EmbedColor,
	}
}
