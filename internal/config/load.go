package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

var ErrMissingToken = errors.New("TOKEN is required")

type Config struct {
	Bot         BotConfig
	Roles       RoleConfig
	Enforcement EnforcementConfig
	Logging     LoggingConfig
	Metrics     MetricsConfig
}

type BotConfig struct {
	Token        string `env:"TOKEN"`
	GuildID      string `env:"GUILD_ID" validate:"required,numeric"`
	AppID        string `env:"APP_ID" validate:"required,numeric"`
	LogChannelID string `env:"LOG_CHANNEL_ID" validate:"required,numeric"`
}

type RoleConfig struct {
	Owner  string `env:"OWNER_ROLE" validate:"required,numeric"`
	Editor string `env:"EDITOR_ROLE" validate:"required,numeric"`
	Leader string `env:"LEADER_ROLE" validate:"required,numeric"`
}

// EnforcementConfig durations are in milliseconds, matching the env contract.
type EnforcementConfig struct {
	ExemptChannels       []string `env:"EXEMPT_CHANNELS" validate:"dive,numeric"`
	ExemptKeyword        string   `env:"EXEMPT_KEYWORD" default:"afk"`
	TimeoutMs            int      `env:"TIMEOUT" default:"10000" validate:"gt=0"`
	CooldownMs           int      `env:"COOLDOWN_TIME" default:"5000" validate:"gte=0"`
	LogBatchDelayMs      int      `env:"LOG_BATCH_DELAY" default:"3000" validate:"gt=0"`
	CacheRefreshInterval int      `env:"CACHE_REFRESH_INTERVAL" default:"60000" validate:"gt=0"`
}

type LoggingConfig struct {
	Level     string        `env:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format    string        `env:"LOG_FORMAT" default:"text" validate:"oneof=text json"`
	File      string        `env:"LOG_FILE" default:"logs/bot.log"`
	MaxSizeMB int           `env:"LOG_MAX_SIZE_MB" default:"10" validate:"gt=0"`
	MaxAge    time.Duration `env:"LOG_MAX_AGE" default:"168h"`
}

type MetricsConfig struct {
	Addr string `env:"METRICS_ADDR"`
}

var validate = validator.New()

// Load reads an optional .env file, decodes the environment and validates the result.
// A missing TOKEN is reported as ErrMissingToken so callers can treat it as fatal.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	cfg := DefaultConfig()
	if err := env.Load(cfg, &env.Options{SliceSep: ","}); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if cfg.Bot.Token == "" {
		return nil, ErrMissingToken
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Enforcement: EnforcementConfig{
			ExemptKeyword:        "afk",
			TimeoutMs:            10000,
			CooldownMs:           5000,
			LogBatchDelayMs:      3000,
			CacheRefreshInterval: 60000,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "text",
			File:      "logs/bot.log",
			MaxSizeMB: 10,
			MaxAge:    7 * 24 * time.Hour,
		},
	}
}

// AllowedRoles may toggle enforcement.
func (c *Config) AllowedRoles() []string {
	return []string{c.Roles.Owner, c.Roles.Editor}
}

// IgnoredRoles are never enforced.
func (c *Config) IgnoredRoles() []string {
	return []string{c.Roles.Owner, c.Roles.Leader, c.Roles.Editor}
}

func (c *Config) OwnerRoles() []string {
	return []string{c.Roles.Owner}
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Enforcement.TimeoutMs) * time.Millisecond
}

func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Enforcement.CooldownMs) * time.Millisecond
}

func (c *Config) LogBatchDelay() time.Duration {
	return time.Duration(c.Enforcement.LogBatchDelayMs) * time.Millisecond
}

func (c *Config) CacheRefreshInterval() time.Duration {
	return time.Duration(c.Enforcement.CacheRefreshInterval) * time.Millisecond
}
