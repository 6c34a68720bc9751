package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-mutekick/internal/bootstrap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b := bootstrap.New()

	if err := b.Initialize(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Startup failed: %v\n", err)
		os.Exit(1)
	}

	if err := b.Start(ctx); err != nil {
		slog.Error("Failed to start", "error", err)
		shutdown(b)
		os.Exit(1)
	}

	slog.Info("Mute kick enforcement running")

	<-ctx.Done()
	slog.Info("Shutdown signal received")

	if err := shutdown(b); err != nil {
		fmt.Fprintf(os.Stderr, "Shutdown error: %v\n", err)
		os.Exit(1)
	}
}

func shutdown(b *bootstrap.Bootstrap) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return b.Shutdown(ctx)
}
