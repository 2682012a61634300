package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/searchpanel/internal/music/queue"
)

const queuePreviewLimit = 10

// Players gives access to per-guild queues.
type Players interface {
	GetOrCreatePlayer(guildID string) *queue.Player
}

// QueueCommand shows and controls the guild queue.
type QueueCommand struct {
	Players Players
}

func (c *QueueCommand) Name() string             { return "queue" }
func (c *QueueCommand) Description() string      { return "Show or control the play queue" }
func (c *QueueCommand) Group() string            { return "music" }
func (c *QueueCommand) Category() string         { return "🎵 Music" }
func (c *QueueCommand) UserPermissions() []int64 { return nil }

func (c *QueueCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "show", Description: "Show the current track and what comes next"},
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "next", Description: "Skip to the next track"},
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "stop", Description: "Stop playback and clear the queue"},
		},
	}
}

func (c *QueueCommand) Run(_ context.Context, data any) error {
	sc, ok := data.(*SlashContext)
	if !ok {
		return nil
	}
	e := sc.Event
	p := c.Players.GetOrCreatePlayer(e.GuildID)

	sub := "show"
	if opts := e.ApplicationCommandData().Options; len(opts) > 0 {
		sub = opts[0].Name
	}

	switch sub {
	case "next":
		t, err := p.Next()
		if errors.Is(err, queue.ErrNoTracksInQueue) {
			return RespondEphemeral(sc.Session, e, "The queue is empty.")
		}
		if err != nil {
			return err
		}
		return RespondEmbed(sc.Session, e, &discordgo.MessageEmbed{
			Description: fmt.Sprintf("%s Now playing [%s](%s)", queue.StatusPlaying.StringEmoji(), t.Title, t.URL),
			Color:       EmbedColor,
		})

	case "stop":
		if err := p.Stop(); errors.Is(err, queue.ErrNoTrackPlaying) {
			return RespondEphemeral(sc.Session, e, "Nothing is playing.")
		} else if err != nil {
			return err
		}
		return RespondEmbed(sc.Session, e, &discordgo.MessageEmbed{
			Description: queue.StatusStopped.StringEmoji() + " Playback stopped and queue cleared.",
			Color:       EmbedColor,
		})

	default:
		return RespondEmbed(sc.Session, e, queueEmbed(p))
	}
}

func queueEmbed(p *queue.Player) *discordgo.MessageEmbed {
	var b strings.Builder
	if cur, err := p.Current(); err == nil {
		fmt.Fprintf(&b, "%s **[%s](%s)**", queue.StatusPlaying.StringEmoji(), cur.Title, cur.URL)
		if cur.Duration != "" {
			fmt.Fprintf(&b, " `%s`", cur.Duration)
		}
		b.WriteString("\n\n")
	}

	next := p.Queue()
	if len(next) == 0 {
		b.WriteString("The queue is empty.")
	}
	for i, t := range next {
		if i == queuePreviewLimit {
			fmt.Fprintf(&b, "…and %d more", len(next)-queuePreviewLimit)
			break
		}
		fmt.Fprintf(&b, "%d. [%s](%s)", i+1, t.Title, t.URL)
		if t.Username != "" {
			fmt.Fprintf(&b, " (%s)", t.Username)
		}
		b.WriteString("\n")
	}

	return &discordgo.MessageEmbed{Title: "Queue", Description: b.String(), Color: EmbedColor}
}
