package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Enforcement Metrics
var (
	// WarningsIssued counts members moved into the warned state
	WarningsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mutekick_warnings_total",
			Help: "Members warned for joining voice muted or deafened",
		},
	)

	// Disconnects counts enforcement disconnects by status
	Disconnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mutekick_disconnects_total",
			Help: "Enforcement disconnects by status (success/error)",
		},
		[]string{"status"},
	)

	// TimerOutcomes counts how pending timers ended
	TimerOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mutekick_timer_outcomes_total",
			Help: "Pending timer outcomes (cancelled/fired/skipped)",
		},
		[]string{"outcome"},
	)

	// PendingTimers tracks the number of live pending-disconnect timers
	PendingTimers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mutekick_pending_timers",
			Help: "Number of live pending-disconnect timers",
		},
	)

	// NoticeFailures counts failed direct notices and channel messages
	NoticeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mutekick_notice_failures_total",
			Help: "Failed outbound notices by kind (direct/channel)",
		},
		[]string{"kind"},
	)

	// EnforcementEnabled is 1 while enforcement is on
	EnforcementEnabled = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mutekick_enforcement_enabled",
			Help: "1 when enforcement is enabled, 0 otherwise",
		},
	)
)

// Cache Metrics
var (
	// CacheRefreshes counts roster pulls by status
	CacheRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mutekick_cache_refreshes_total",
			Help: "Snapshot cache refreshes by status (success/error)",
		},
		[]string{"status"},
	)
)

// Log Batch Metrics
var (
	// LogLinesQueued counts lines handed to the log batcher
	LogLinesQueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mutekick_log_lines_queued_total",
			Help: "Log lines enqueued for batching",
		},
	)

	// LogFlushes counts batch flushes by status
	LogFlushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mutekick_log_flushes_total",
			Help: "Log batch flushes by status (sent/empty/error)",
		},
		[]string{"status"},
	)
)

// Command Metrics
var (
	// CommandInvocations counts slash command invocations by command and outcome
	CommandInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mutekick_command_invocations_total",
			Help: "Command invocations by command and outcome (ok/cooldown/denied/error)",
		},
		[]string{"command", "outcome"},
	)
)

// Health Metrics
var (
	// ComponentHealthy is 1 while the watchdog considers a component alive
	ComponentHealthy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mutekick_component_healthy",
			Help: "Watchdog health by component (1 healthy, 0 silent)",
		},
		[]string{"component"},
	)
)

// BoolGauge converts a flag to a gauge value.
func BoolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
