package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/keshon/searchpanel/internal/command"
	"github.com/keshon/searchpanel/pkg/cmd"
)

// commandAPI is the part of *discordgo.Session used to sync definitions.
type commandAPI interface {
	ApplicationCommands(appID, guildID string, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	ApplicationCommandCreate(appID string, guildID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error)
	ApplicationCommandDelete(appID, guildID, cmdID string, options ...discordgo.RequestOption) error
}

// HashStore remembers which definitions were pushed to a guild.
type HashStore interface {
	CommandHashes(guildID string) (map[string]string, error)
	SetCommandHashes(guildID string, hashes map[string]string) error
}

// commandSync pushes slash command definitions to guilds. Only commands
// whose definition hash changed are recreated.
type commandSync struct {
	api     commandAPI
	hashes  HashStore
	limiter *rate.Limiter
	log     logrus.FieldLogger
}

func newCommandSync(api commandAPI, hashes HashStore, log logrus.FieldLogger) *commandSync {
	return &commandSync{
		api:    api,
		hashes: hashes,
		// Creates are paced below the per-route rate limit.
		limiter: rate.NewLimiter(rate.Limit(5), 1),
		log:     log,
	}
}

func definitions(reg *cmd.Registry) []*discordgo.ApplicationCommand {
	var defs []*discordgo.ApplicationCommand
	for _, c := range reg.All() {
		if def := command.Definition(c); def != nil {
			defs = append(defs, def)
		}
	}
	return defs
}

func (cs *commandSync) sync(ctx context.Context, appID, guildID string, defs []*discordgo.ApplicationCommand) error {
	log := cs.log.WithField("guild", guildID)

	existing, err := cs.api.ApplicationCommands(appID, guildID)
	if err != nil {
		return fmt.Errorf("list commands: %w", err)
	}
	stored, err := cs.hashes.CommandHashes(guildID)
	if err != nil {
		return fmt.Errorf("load command hashes: %w", err)
	}

	wanted := make(map[string]string, len(defs))
	for _, def := range defs {
		wanted[def.Name] = hashCommand(def)
	}
	remote := make(map[string]bool, len(existing))
	for _, old := range existing {
		remote[old.Name] = true
		if _, ok := wanted[old.Name]; ok {
			continue
		}
		log.WithField("command", old.Name).Info("deleting obsolete command")
		if err := cs.api.ApplicationCommandDelete(appID, guildID, old.ID); err != nil {
			log.WithError(err).WithField("command", old.Name).Error("failed to delete command")
		}
	}

	next := make(map[string]string, len(defs))
	for _, def := range defs {
		h := wanted[def.Name]
		if stored[def.Name] == h && remote[def.Name] {
			next[def.Name] = h
			continue
		}
		if err := cs.limiter.Wait(ctx); err != nil {
			return err
		}
		if _, err := cs.api.ApplicationCommandCreate(appID, guildID, def); err != nil {
			log.WithError(err).WithField("command", def.Name).Error("failed to create command")
			continue
		}
		log.WithField("command", def.Name).Info("command registered")
		next[def.Name] = h
	}

	return cs.hashes.SetCommandHashes(guildID, next)
}
