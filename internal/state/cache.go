package state

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go-mutekick/internal/metrics"
	"go-mutekick/internal/models"

	"github.com/jonboulle/clockwork"
	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"
)

const DefaultRefreshInterval = 60 * time.Second

// RosterSource returns the complete current roster of a guild.
type RosterSource interface {
	FetchRoster(ctx context.Context, guildID string) (models.Roster, error)
}

// Cache is a read-through snapshot of one guild's roles, channels and active members.
// Refreshes replace all three maps at once; lookups never observe a partial pull.
type Cache struct {
	source        RosterSource
	guildID       string
	clock         clockwork.Clock
	interval      time.Duration
	exemptKeyword string
	group         singleflight.Group

	mu          sync.RWMutex
	guildName   string
	roles       map[string]models.Role
	channels    map[string]models.Channel
	members     map[string]models.Member
	lastRefresh time.Time
}

type Options struct {
	GuildID         string
	RefreshInterval time.Duration
	ExemptKeyword   string
}

func NewCache(source RosterSource, clock clockwork.Clock, opts Options) *Cache {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	return &Cache{
		source:        source,
		guildID:       opts.GuildID,
		clock:         clock,
		interval:      opts.RefreshInterval,
		exemptKeyword: opts.ExemptKeyword,
		roles:         make(map[string]models.Role),
		channels:      make(map[string]models.Channel),
		members:       make(map[string]models.Member),
	}
}

// Refresh pulls the roster and swaps it in. A failed pull keeps the previous
// snapshot; the error is logged and not returned.
func (c *Cache) Refresh(ctx context.Context) {
	_ = c.TryRefresh(ctx)
}

// TryRefresh behaves like Refresh but also reports the failure to the caller.
// Concurrent callers share a single pull.
func (c *Cache) TryRefresh(ctx context.Context) error {
	_, err, _ := c.group.Do(c.guildID, func() (any, error) {
		return nil, c.pull(ctx)
	})
	return err
}

func (c *Cache) pull(ctx context.Context) error {
	slog.DebugContext(ctx, "Updating cache", "guild", c.guildID)

	roster, err := c.source.FetchRoster(ctx, c.guildID)
	if err != nil {
		metrics.CacheRefreshes.WithLabelValues("error").Inc()
		slog.ErrorContext(ctx, "Failed to update cache", "guild", c.guildID, "error", err)
		return fmt.Errorf("fetch roster for guild %s: %w", c.guildID, err)
	}

	roles := make(map[string]models.Role, len(roster.Roles))
	for _, r := range roster.Roles {
		roles[r.ID] = r
	}

	channels := make(map[string]models.Channel, len(roster.Channels))
	for _, ch := range roster.Channels {
		channels[ch.ID] = ch
	}

	members := make(map[string]models.Member)
	for _, m := range roster.Members {
		if !m.Active() {
			continue
		}
		m.RoleIDs = slices.Clone(m.RoleIDs)
		members[m.ID] = m
	}

	c.mu.Lock()
	c.guildName = roster.GuildName
	c.roles = roles
	c.channels = channels
	c.members = members
	c.lastRefresh = c.clock.Now()
	c.mu.Unlock()

	metrics.CacheRefreshes.WithLabelValues("success").Inc()
	slog.DebugContext(ctx, "Cache updated successfully",
		"roles", len(roles),
		"channels", len(channels),
		"members", len(members))
	return nil
}

// IsStale reports whether the last successful refresh is older than the refresh interval.
func (c *Cache) IsStale() bool {
	c.mu.RLock()
	last := c.lastRefresh
	c.mu.RUnlock()

	if last.IsZero() {
		return true
	}
	return c.clock.Since(last) > c.interval
}

func (c *Cache) Role(id string) (models.Role, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.roles[id]
	return r, ok
}

func (c *Cache) Channel(id string) (models.Channel, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ch, ok := c.channels[id]
	return ch, ok
}

func (c *Cache) Member(id string) (models.Member, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.members[id]
	if ok {
		m.RoleIDs = slices.Clone(m.RoleIDs)
	}
	return m, ok
}

// MemberHasAnyRole is false for unknown members.
func (c *Cache) MemberHasAnyRole(memberID string, roleIDs []string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.members[memberID]
	if !ok {
		return false
	}
	return lo.Some(m.RoleIDs, roleIDs)
}

// IsExemptChannel reports whether a known channel's name carries the exempt keyword.
func (c *Cache) IsExemptChannel(channelID string) bool {
	ch, ok := c.Channel(channelID)
	return ok && ch.NameContains(c.exemptKeyword)
}

func (c *Cache) GuildName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.guildName
}

type Stats struct {
	Roles       int
	Channels    int
	Members     int
	LastRefresh time.Time
}

func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Roles:       len(c.roles),
		Channels:    len(c.channels),
		Members:     len(c.members),
		LastRefresh: c.lastRefresh,
	}
}

// Clear drops every snapshot and marks the cache stale.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.guildName = ""
	c.roles = make(map[string]models.Role)
	c.channels = make(map[string]models.Channel)
	c.members = make(map[string]models.Member)
	c.lastRefresh = time.Time{}
	c.mu.Unlock()
	slog.Debug("Cache cleared")
}
