package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/searchpanel/internal/command"
	"github.com/keshon/searchpanel/internal/music/queue"
)

// Announce posts now-playing and stop notices to the channel the player
// is bound to. Added events are already answered by the search flow.
func (r *Responder) Announce(ev queue.Event) {
	if ev.ChannelID == "" || ev.Status == queue.StatusAdded {
		return
	}

	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("%s %s", ev.Status.StringEmoji(), ev.Status),
		Color: command.EmbedColor,
	}
	if ev.Status == queue.StatusPlaying {
		embed.Description = fmt.Sprintf("**[%s](%s)**", trackLabel(ev.Track), ev.Track.URL)
		if ev.Track.Username != "" {
			embed.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Requested by %s · %d in queue", ev.Track.Username, ev.QueueLen)}
		}
	}

	if _, err := r.m.ChannelMessageSendComplex(ev.ChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
	}); err != nil {
		r.log.WithError(err).WithField("guild", ev.GuildID).Warn("failed to announce playback status")
	}
}

func trackLabel(t queue.Track) string {
	if t.Title != "" {
		return t.Title
	}
	return t.URL
}
