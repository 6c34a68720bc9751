package decision

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type cooldownKey struct {
	subject string
	action  string
}

// CooldownManager rate-limits repeated (subject, action) executions.
type CooldownManager struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	entries map[cooldownKey]time.Time
}

func NewCooldownManager(clock clockwork.Clock) *CooldownManager {
	return &CooldownManager{
		clock:   clock,
		entries: make(map[cooldownKey]time.Time),
	}
}

// Set records a cooldown ending duration from now and schedules its removal.
func (cm *CooldownManager) Set(subject, action string, duration time.Duration) {
	key := cooldownKey{subject: subject, action: action}
	expiry := cm.clock.Now().Add(duration)

	cm.mu.Lock()
	cm.entries[key] = expiry
	cm.mu.Unlock()

	cm.clock.AfterFunc(duration, func() {
		defer recoverCallback("cooldown expiry")

		cm.mu.Lock()
		defer cm.mu.Unlock()
		// A later Set for the same key owns the entry now.
		if current, ok := cm.entries[key]; ok && current.Equal(expiry) {
			delete(cm.entries, key)
		}
	})

	slog.Debug("Cooldown set", "subject", subject, "action", action, "duration", duration)
}

// IsActive evicts an expired entry on read.
func (cm *CooldownManager) IsActive(subject, action string) bool {
	key := cooldownKey{subject: subject, action: action}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	expiry, ok := cm.entries[key]
	if !ok {
		return false
	}
	if !cm.clock.Now().Before(expiry) {
		delete(cm.entries, key)
		return false
	}
	return true
}

// Remaining is zero for absent or expired entries.
func (cm *CooldownManager) Remaining(subject, action string) time.Duration {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	expiry, ok := cm.entries[cooldownKey{subject: subject, action: action}]
	if !ok {
		return 0
	}

	remaining := expiry.Sub(cm.clock.Now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (cm *CooldownManager) Clear(subject, action string) {
	cm.mu.Lock()
	delete(cm.entries, cooldownKey{subject: subject, action: action})
	cm.mu.Unlock()
	slog.Debug("Cooldown cleared", "subject", subject, "action", action)
}

func (cm *CooldownManager) ClearAll() {
	cm.mu.Lock()
	cm.entries = make(map[cooldownKey]time.Time)
	cm.mu.Unlock()
	slog.Debug("All cooldowns cleared")
}

// ActiveCount counts unexpired entries.
func (cm *CooldownManager) ActiveCount() int {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	now := cm.clock.Now()
	count := 0
	for _, expiry := range cm.entries {
		if now.Before(expiry) {
			count++
		}
	}
	return count
}
