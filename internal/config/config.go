package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/DoyleJ11/turnsync/internal/tier"
)

// Config holds the client settings. With the default limits, game ids up to
// 1000 go to development, up to 100000 to beta, and the rest to live.
type Config struct {
	DevURL    string `env:"SYNC_API_URL_DEV" envDefault:"http://127.0.0.1/game/"`
	BetaURL   string `env:"SYNC_API_URL_BETA" envDefault:"http://127.0.0.1/beta/"`
	LiveURL   string `env:"SYNC_API_URL_LIVE" envDefault:"http://127.0.0.1/live/"`
	BetaLimit int    `env:"SYNC_GAME_LIMIT_BETA" envDefault:"1000"`
	LiveLimit int    `env:"SYNC_GAME_LIMIT_LIVE" envDefault:"100000"`
	Ext       string `env:"SYNC_ENDPOINT_EXT" envDefault:"php"`

	PollInterval time.Duration `env:"SYNC_POLL_INTERVAL" envDefault:"2s"`
	HTTPTimeout  time.Duration `env:"SYNC_HTTP_TIMEOUT" envDefault:"60s"`
	SingleInput  bool          `env:"SYNC_SINGLE_INPUT" envDefault:"true"`

	ListenAddr  string `env:"SYNC_LISTEN_ADDR" envDefault:":8080"`
	LogLevel    string `env:"SYNC_LOG_LEVEL" envDefault:"info"`
	LogDev      bool   `env:"SYNC_LOG_DEVELOPMENT" envDefault:"false"`
	DatabaseURL string `env:"DATABASE_URL"`
}

func (c Config) Router() tier.Router {
	return tier.Router{
		DevURL:    c.DevURL,
		BetaURL:   c.BetaURL,
		LiveURL:   c.LiveURL,
		BetaLimit: c.BetaLimit,
		LiveLimit: c.LiveLimit,
	}
}

// Load reads the optional dotenv files, then the environment. Variables
// already set in the environment win over dotenv values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Router().Validate(); err != nil {
		return Config{}, fmt.Errorf("routing: %w", err)
	}
	if cfg.PollInterval <= 0 {
		return Config{}, fmt.Errorf("poll interval must be positive, got %s", cfg.PollInterval)
	}
	return cfg, nil
}
