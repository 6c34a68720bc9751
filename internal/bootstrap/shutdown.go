package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go-mutekick/internal/logging"
)

// StartAll opens the metrics endpoint and the gateway connection, then waits
// for the configured guild to be validated.
func StartAll(ctx context.Context, b *Bootstrap) error {
	c := b.Components

	if c.Metrics != nil {
		c.Metrics.Start()
	}

	if err := c.Session.Connect(); err != nil {
		return err
	}

	if c.Watchdog != nil {
		go c.Watchdog.Run(ctx)
	}

	timer := time.NewTimer(readyTimeout)
	defer timer.Stop()

	select {
	case err := <-b.ready:
		if err != nil {
			return fmt.Errorf("ready validation failed: %w", err)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: guild %s not received within %s", ErrGuildUnavailable, b.Config.Bot.GuildID, readyTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown cancels pending disconnects and waits for the ones already under way
// before the connection goes away, then drains the log batch and closes I/O.
func Shutdown(ctx context.Context, c *Components) error {
	slog.Info("Shutting down...")

	if c == nil {
		return logging.Close()
	}

	var errs []error

	if c.Engine != nil {
		c.Engine.SetReady(false)
		if n := c.Engine.CancelAll(); n > 0 {
			slog.Info("Cancelled pending mute timers", "count", n)
		}
		if err := c.Engine.Wait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("wait for in-flight disconnects: %w", err))
		}
	}

	if c.Cooldowns != nil {
		c.Cooldowns.ClearAll()
	}

	if c.Batcher != nil {
		c.Batcher.Close(ctx)
	}

	if c.Session != nil {
		if err := c.Session.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close session: %w", err))
		}
	}

	if c.Metrics != nil {
		if err := c.Metrics.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop metrics: %w", err))
		}
	}

	slog.Info("Shutdown complete")
	if err := logging.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close log file: %w", err))
	}

	return errors.Join(errs...)
}
