// Package discord connects the command registry and the search flow to a
// Discord gateway session.
package discord

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/keshon/searchpanel/internal/command"
	"github.com/keshon/searchpanel/pkg/cmd"
)

type Options struct {
	Token          string
	GuildBlacklist []string
	// SyncCommands pushes slash command definitions on guild join.
	SyncCommands bool
}

type Bot struct {
	dg      *discordgo.Session
	reg     *cmd.Registry
	cmdSync *commandSync
	opts    Options
	log     logrus.FieldLogger

	ctx      context.Context
	inflight sync.WaitGroup
}

func New(opts Options, reg *cmd.Registry, hashes HashStore, log logrus.FieldLogger) (*Bot, error) {
	dg, err := discordgo.New("Bot " + opts.Token)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

	b := &Bot{
		dg:      dg,
		reg:     reg,
		cmdSync: newCommandSync(dg, hashes, log.WithField("component", "command-sync")),
		opts:    opts,
		log:     log,
		ctx:     context.Background(),
	}
	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onGuildCreate)
	dg.AddHandler(b.onInteractionCreate)
	return b, nil
}

// Session exposes the gateway session for the responder and voice binder.
func (b *Bot) Session() *discordgo.Session { return b.dg }

func (b *Bot) VoiceBinder() *VoiceBinder {
	return NewVoiceBinder(sessionVoice{dg: b.dg}, b.log.WithField("component", "voice"))
}

// Run opens the gateway and blocks until ctx is done. Interactions still
// being handled are waited for after the gateway closes.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx
	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("open session: %w", err)
	}

	<-ctx.Done()
	b.log.Info("shutdown signal received, closing session")
	err := b.dg.Close()
	b.inflight.Wait()
	return err
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.log.WithFields(logrus.Fields{
		"user":   r.User.Username,
		"guilds": len(r.Guilds),
	}).Info("discord bot is running")
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	log := b.log.WithFields(logrus.Fields{"guild": g.ID, "name": g.Name})

	if slices.Contains(b.opts.GuildBlacklist, g.ID) {
		log.Info("leaving blacklisted guild")
		if err := s.GuildLeave(g.ID); err != nil {
			log.WithError(err).Error("failed to leave guild")
		}
		return
	}
	if !b.opts.SyncCommands {
		return
	}

	if err := b.cmdSync.sync(b.ctx, s.State.User.ID, g.ID, definitions(b.reg)); err != nil {
		log.WithError(err).Error("failed to register slash commands")
	}
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.inflight.Add(1)
	defer b.inflight.Done()
	b.route(b.ctx, s, i)
}

// route finds the command for an interaction. Slash commands match by
// name, components by the command prefix of their custom id.
func (b *Bot) route(ctx context.Context, s command.Session, i *discordgo.InteractionCreate) {
	var (
		name string
		data any
	)
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		name = i.ApplicationCommandData().Name
		data = &command.SlashContext{Session: s, Event: i}
	case discordgo.InteractionMessageComponent:
		customID := i.MessageComponentData().CustomID
		prefix, _, _, ok := command.ParseComponentID(customID)
		if !ok {
			b.log.WithField("custom_id", customID).Debug("ignoring foreign component")
			return
		}
		name = prefix
		data = &command.ComponentContext{Session: s, Event: i}
	default:
		return
	}

	c := b.reg.Get(name)
	if c == nil {
		b.log.WithField("command", name).Warn("unknown command")
		return
	}

	if err := c.Run(ctx, &cmd.Invocation{Data: data}); err != nil {
		b.log.WithError(err).WithField("command", name).Error("command failed")
		if err := command.RespondEphemeral(s, i, "Something went wrong, please try again."); err != nil {
			b.log.WithError(err).Debug("error reply not delivered")
		}
	}
}
