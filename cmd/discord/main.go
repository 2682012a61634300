// cmd/discord/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	kkdai "github.com/kkdai/youtube/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/keshon/searchpanel/internal/command"
	"github.com/keshon/searchpanel/internal/config"
	"github.com/keshon/searchpanel/internal/discord"
	"github.com/keshon/searchpanel/internal/logging"
	"github.com/keshon/searchpanel/internal/metrics"
	"github.com/keshon/searchpanel/internal/music/queue"
	"github.com/keshon/searchpanel/internal/netutil"
	"github.com/keshon/searchpanel/internal/provider/cache"
	"github.com/keshon/searchpanel/internal/provider/playlist"
	"github.com/keshon/searchpanel/internal/provider/youtube"
	"github.com/keshon/searchpanel/internal/search"
	"github.com/keshon/searchpanel/internal/storage"
	"github.com/keshon/searchpanel/pkg/cmd"
	"github.com/keshon/searchpanel/pkg/retrylimit"
)

func main() {
	cfg, dotenv, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	if !dotenv {
		log.Debug("no .env file found, using the process environment")
	}
	if err := cfg.RequireDiscord(); err != nil {
		log.WithError(err).Fatal("invalid config")
	}

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("discord bot exited")
	}
	log.Info("bye")
}

func run(cfg *config.Config, log logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.StoragePath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Error("failed to flush storage")
		}
	}()

	collector := metrics.New()
	if cfg.MetricsAddr != "" {
		go collector.Serve(ctx, cfg.MetricsAddr, logging.Component(log, "metrics"))
	}

	httpClient, err := netutil.NewHTTPClient(cfg.ProxyURL, cfg.LookupTimeout)
	if err != nil {
		return err
	}
	ytClient := &kkdai.Client{HTTPClient: httpClient}

	limiter := retrylimit.NewAdaptiveLimiter(rate.Limit(cfg.SearchRate), 0.5, rate.Limit(cfg.SearchRate*2), 0.1, 0.5)
	cacheOpts := cache.Options{Size: cfg.CacheSize, TTL: cfg.CacheTTL}
	videos := cache.New(
		youtube.New(
			youtube.WithHTTPClient(httpClient),
			youtube.WithLimiter(limiter),
			youtube.WithMaxResults(cfg.SearchMaxResults),
		).Searcher(),
		cacheOpts, collector.CacheHooks(),
	)
	playlists := cache.New(playlist.New(ytClient, config.MaxPanelResults).Searcher(), cacheOpts, collector.CacheHooks())

	registry := cmd.NewRegistry()
	bot, err := discord.New(discord.Options{
		Token:          cfg.DiscordToken,
		GuildBlacklist: cfg.DiscordGuildBlacklist,
		SyncCommands:   cfg.InitSlashCommands,
	}, registry, store, logging.Component(log, "discord"))
	if err != nil {
		return err
	}

	responder := discord.NewResponder(bot.Session(), logging.Component(log, "responder"))
	defer responder.Close()

	players := queue.NewManager(
		queue.KkdaiResolver{Client: ytClient},
		queue.WithFlags(store),
		queue.WithStatusListener(responder.Announce),
		queue.WithLogger(logging.Component(log, "queue")),
	)

	// Both commands share one session registry so a user has at most one
	// open panel per guild.
	sessions := search.NewRegistry(
		search.WithHooks(collector.Hooks()),
		search.WithRegistryLogger(logging.Component(log, "sessions")),
	)
	ctrlCfg := search.ControllerConfig{LookupTimeout: cfg.LookupTimeout, PanelTTL: cfg.PanelTTL}
	newController := func(s search.Searcher) *search.Controller {
		return search.NewController(s, sessions, players, bot.VoiceBinder(), responder, ctrlCfg,
			search.WithHistory(store),
			search.WithControllerHooks(collector.Hooks()),
			search.WithControllerLogger(logging.Component(log, "search")),
		)
	}
	searchCtrl := newController(videos)
	defer searchCtrl.Close()
	playlistCtrl := newController(playlists)
	defer playlistCtrl.Close()

	cmdLog := logging.Component(log, "command")
	mws := []cmd.Middleware{
		command.WithGuildOnly(),
		command.WithUserPermissionCheck(),
		command.WithCommandLogger(store, cmdLog),
	}
	for _, c := range []command.DiscordCommand{
		command.NewSearchCommand(searchCtrl, cmdLog),
		command.NewPlaylistCommand(playlistCtrl, cmdLog),
		&command.QueueCommand{Players: players},
		&command.EquallyCommand{Flags: store},
	} {
		if err := command.Register(registry, c, mws...); err != nil {
			return err
		}
	}

	log.WithField("commands", len(registry.All())).Info("starting discord bot")
	return bot.Run(ctx)
}
