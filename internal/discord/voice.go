package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/keshon/searchpanel/internal/search"
)

var ErrNotInVoice = errors.New("user is not in a voice channel")

// VoiceState is what the binder needs to know about voice connections.
type VoiceState interface {
	// UserChannel returns the voice channel the user sits in, or "".
	UserChannel(guildID, userID string) string
	// BotChannel returns the channel the bot is connected to, or "".
	BotChannel(guildID string) string
	Join(ctx context.Context, guildID, channelID string) error
}

// VoiceBinder joins the invoking user's voice channel before a search
// adds anything to the queue.
type VoiceBinder struct {
	state VoiceState
	log   logrus.FieldLogger
}

func NewVoiceBinder(state VoiceState, log logrus.FieldLogger) *VoiceBinder {
	return &VoiceBinder{state: state, log: log}
}

func (v *VoiceBinder) EnsureJoined(ctx context.Context, req search.Request) error {
	channelID := v.state.UserChannel(req.ScopeID, req.UserID)
	if channelID == "" {
		return ErrNotInVoice
	}
	if v.state.BotChannel(req.ScopeID) == channelID {
		return nil
	}

	if err := v.state.Join(ctx, req.ScopeID, channelID); err != nil {
		return fmt.Errorf("join voice channel %s: %w", channelID, err)
	}
	v.log.WithFields(logrus.Fields{"guild": req.ScopeID, "channel": channelID}).Info("joined voice channel")
	return nil
}

// sessionVoice reads voice state from the gateway cache.
type sessionVoice struct {
	dg *discordgo.Session
}

func (s sessionVoice) UserChannel(guildID, userID string) string {
	vs, err := s.dg.State.VoiceState(guildID, userID)
	if err != nil || vs == nil {
		return ""
	}
	return vs.ChannelID
}

func (s sessionVoice) BotChannel(guildID string) string {
	s.dg.RLock()
	defer s.dg.RUnlock()
	if vc, ok := s.dg.VoiceConnections[guildID]; ok && vc != nil {
		return vc.ChannelID
	}
	return ""
}

func (s sessionVoice) Join(ctx context.Context, guildID, channelID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.dg.ChannelVoiceJoin(guildID, channelID, false, true)
	return err
}
