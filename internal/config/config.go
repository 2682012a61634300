// /internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Discord caps a string select menu at 25 options.
const MaxPanelResults = 25

// Interaction tokens expire after 15 minutes, after which a panel can no
// longer be edited.
const (
	MaxPanelTTL     = 15 * time.Minute
	defaultPanelTTL = 3 * time.Minute
)

type Config struct {
	DiscordToken          string   `env:"DISCORD_TOKEN"`
	DiscordGuildBlacklist []string `env:"DISCORD_GUILD_BLACKLIST" envSeparator:","`
	InitSlashCommands     bool     `env:"INIT_SLASH_COMMANDS" envDefault:"true"`

	StoragePath string `env:"STORAGE_PATH" envDefault:"datastore.json"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	LookupTimeout    time.Duration `env:"LOOKUP_TIMEOUT" envDefault:"10s"`
	PanelTTL         time.Duration `env:"PANEL_TTL" envDefault:"3m"`
	SearchMaxResults int           `env:"SEARCH_MAX_RESULTS" envDefault:"12"`
	SearchRate       float64       `env:"SEARCH_RATE" envDefault:"2"`

	CacheSize int           `env:"CACHE_SIZE" envDefault:"256"`
	CacheTTL  time.Duration `env:"CACHE_TTL" envDefault:"10m"`

	ProxyURL    string `env:"PROXY_URL"`
	MetricsAddr string `env:"METRICS_ADDR"`
}

// Load reads an optional .env file, then the process environment.
// DotenvLoaded reports whether a .env file was found.
func Load(files ...string) (*Config, bool, error) {
	dotenv := godotenv.Load(files...) == nil

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, dotenv, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, dotenv, err
	}
	return &cfg, dotenv, nil
}

// RequireDiscord checks the settings only the bot binary needs.
func (c *Config) RequireDiscord() error {
	if c.DiscordToken == "" {
		return errors.New("DISCORD_TOKEN is not set")
	}
	return nil
}

func (c *Config) normalize() error {
	if c.SearchMaxResults <= 0 || c.SearchMaxResults > MaxPanelResults {
		c.SearchMaxResults = MaxPanelResults
	}
	if c.SearchRate < 1 {
		c.SearchRate = 1
	}
	if c.LookupTimeout < 0 || c.PanelTTL < 0 || c.CacheTTL < 0 {
		return errors.New("durations must not be negative")
	}
	switch {
	case c.PanelTTL == 0:
		c.PanelTTL = defaultPanelTTL
	case c.PanelTTL > MaxPanelTTL:
		c.PanelTTL = MaxPanelTTL
	}
	return nil
}
