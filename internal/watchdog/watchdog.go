package watchdog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go-mutekick/internal/metrics"

	"github.com/jonboulle/clockwork"
)

// Probe reports the last time a component showed signs of life.
type Probe func() time.Time

type Watchdog struct {
	clock         clockwork.Clock
	checkInterval time.Duration

	mu         sync.Mutex
	components map[string]*ComponentHealth
}

type ComponentHealth struct {
	Name      string
	Threshold time.Duration
	Healthy   bool
	probe     Probe
}

func NewWatchdog(clock clockwork.Clock, checkInterval time.Duration) *Watchdog {
	return &Watchdog{
		clock:         clock,
		checkInterval: checkInterval,
		components:    make(map[string]*ComponentHealth),
	}
}

// RegisterComponent watches a component that is unhealthy once its probe is
// older than threshold. A zero probe time means the component has not started yet.
func (w *Watchdog) RegisterComponent(name string, threshold time.Duration, probe Probe) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.components[name] = &ComponentHealth{
		Name:      name,
		Threshold: threshold,
		Healthy:   true,
		probe:     probe,
	}
	metrics.ComponentHealthy.WithLabelValues(name).Set(1)
}

// Run checks every component until ctx is cancelled.
func (w *Watchdog) Run(ctx context.Context) {
	ticker := w.clock.NewTicker(w.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			w.CheckAll()
		}
	}
}

func (w *Watchdog) CheckAll() {
	now := w.clock.Now()

	w.mu.Lock()
	defer w.mu.Unlock()

	for name, comp := range w.components {
		last := comp.probe()
		if last.IsZero() {
			continue
		}

		elapsed := now.Sub(last)
		healthy := elapsed <= comp.Threshold
		if healthy != comp.Healthy {
			if healthy {
				slog.Info("Watchdog: component recovered", "component", name)
			} else {
				slog.Error("Watchdog: component unhealthy", "component", name, "silentFor", elapsed)
			}
		}
		comp.Healthy = healthy
		metrics.ComponentHealthy.WithLabelValues(name).Set(metrics.BoolGauge(healthy))
	}
}

func (w *Watchdog) IsHealthy(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if comp, exists := w.components[name]; exists {
		return comp.Healthy
	}
	return false
}

func (w *Watchdog) GetStatus() map[string]bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	status := make(map[string]bool, len(w.components))
	for name, comp := range w.components {
		status[name] = comp.Healthy
	}
	return status
}
