package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go-mutekick/internal/bot"
	"go-mutekick/internal/commands"
	"go-mutekick/internal/config"
	"go-mutekick/internal/decision"
	"go-mutekick/internal/logging"
	"go-mutekick/internal/metrics"
	"go-mutekick/internal/notifier"
	"go-mutekick/internal/state"
	"go-mutekick/internal/watchdog"
)

var (
	ErrGuildUnavailable  = errors.New("configured guild is unavailable")
	ErrLogChannelInvalid = errors.New("log channel is missing or not text-based")
)

// readyTimeout bounds how long Start waits for the configured guild to arrive.
const readyTimeout = 30 * time.Second

type Bootstrap struct {
	Config      *config.Config
	Components  *Components
	initialized bool

	readyOnce sync.Once
	ready     chan error
}

type Components struct {
	Session   *bot.Session
	Gateway   *bot.Gateway
	Router    *bot.Router
	Cache     *state.Cache
	Engine    *decision.Engine
	Cooldowns *decision.CooldownManager
	Batcher   *notifier.Batcher
	Notifier  *notifier.Discord
	Commands  *commands.Handler
	Metrics   *metrics.Exporter
	Watchdog  *watchdog.Watchdog
}

func New() *Bootstrap {
	return &Bootstrap{ready: make(chan error, 1)}
}

// Initialize loads configuration, sets up logging and wires every component.
// A missing token or invalid configuration is returned as a fatal error.
func (b *Bootstrap) Initialize(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	b.Config = cfg

	logging.Init(logging.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		File:      cfg.Logging.File,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxAge:    cfg.Logging.MaxAge,
	})

	if err := Wire(ctx, b); err != nil {
		return fmt.Errorf("component wiring failed: %w", err)
	}

	b.initialized = true
	slog.Info("Bootstrap complete")
	return nil
}

// Start connects to Discord and blocks until the guild has been validated and
// the engine is accepting events.
func (b *Bootstrap) Start(ctx context.Context) error {
	if !b.initialized {
		return fmt.Errorf("bootstrap not initialized")
	}
	return StartAll(ctx, b)
}

func (b *Bootstrap) Shutdown(ctx context.Context) error {
	return Shutdown(ctx, b.Components)
}

// signalReady reports the outcome of the first readiness attempt.
func (b *Bootstrap) signalReady(err error) {
	b.readyOnce.Do(func() {
		b.ready <- err
	})
}
