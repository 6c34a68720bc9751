package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter serves the default prometheus registry on /metrics.
type Exporter struct {
	server *http.Server
}

func NewExporter(addr string) *Exporter {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &Exporter{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves in the background. Listen errors are logged; metrics are never fatal.
func (e *Exporter) Start() {
	go func() {
		if err := e.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics endpoint stopped", "addr", e.server.Addr, "error", err)
		}
	}()
	slog.Info("Metrics endpoint started", "addr", e.server.Addr)
}

func (e *Exporter) Stop(ctx context.Context) error {
	return e.server.Shutdown(ctx)
}
