package state

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go-mutekick/internal/models"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRosterSource struct {
	mu     sync.Mutex
	roster models.Roster
	err    error
	calls  atomic.Int32
	gate   chan struct{}
}

func (m *mockRosterSource) FetchRoster(_ context.Context, _ string) (models.Roster, error) {
	m.calls.Add(1)
	if m.gate != nil {
		<-m.gate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roster, m.err
}

func (m *mockRosterSource) set(roster models.Roster, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roster = roster
	m.err = err
}

func testRoster() models.Roster {
	return models.Roster{
		GuildName: "Arena",
		Roles: []models.Role{
			{ID: "r-owner", Name: "Owner"},
			{ID: "r-member", Name: "Member"},
		},
		Channels: []models.Channel{
			{ID: "vc-1", Name: "Squad One"},
			{ID: "vc-afk", Name: "AFK Lounge"},
			{ID: "log", Name: "mod-log", TextBase: true},
		},
		Members: []models.Member{
			{ID: "m-voice", Tag: "voice#1", Presence: models.Presence{ChannelID: "vc-1"}},
			{ID: "m-owner", Tag: "owner#1", RoleIDs: []string{"r-owner"}},
			{ID: "m-idle", Tag: "idle#1"},
		},
	}
}

func newTestCache(src RosterSource, clock clockwork.Clock) *Cache {
	return NewCache(src, clock, Options{GuildID: "g1", RefreshInterval: time.Minute, ExemptKeyword: "afk"})
}

func TestCache_RefreshPopulatesMaps(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &mockRosterSource{roster: testRoster()}
	c := newTestCache(src, clock)

	assert.True(t, c.IsStale(), "never refreshed")

	c.Refresh(context.Background())

	stats := c.Stats()
	assert.Equal(t, 2, stats.Roles)
	assert.Equal(t, 3, stats.Channels)
	assert.Equal(t, 2, stats.Members, "idle member without roles is not cached")
	assert.Equal(t, "Arena", c.GuildName())
	assert.False(t, c.IsStale())

	_, ok := c.Member("m-idle")
	assert.False(t, ok)

	role, ok := c.Role("r-owner")
	require.True(t, ok)
	assert.Equal(t, "Owner", role.Name)
}

func TestCache_Staleness(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newTestCache(&mockRosterSource{roster: testRoster()}, clock)
	c.Refresh(context.Background())

	clock.Advance(time.Minute)
	assert.False(t, c.IsStale(), "exactly at the interval is still fresh")

	clock.Advance(time.Millisecond)
	assert.True(t, c.IsStale())
}

func TestCache_FailedRefreshKeepsSnapshot(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &mockRosterSource{roster: testRoster()}
	c := newTestCache(src, clock)
	c.Refresh(context.Background())

	src.set(models.Roster{}, errors.New("gateway down"))
	clock.Advance(2 * time.Minute)

	err := c.TryRefresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gateway down")

	_, ok := c.Channel("vc-1")
	assert.True(t, ok, "previous snapshot retained")
	assert.True(t, c.IsStale(), "failed pull does not bump the timestamp")
}

func TestCache_MemberHasAnyRole(t *testing.T) {
	c := newTestCache(&mockRosterSource{roster: testRoster()}, clockwork.NewFakeClock())
	c.Refresh(context.Background())

	assert.True(t, c.MemberHasAnyRole("m-owner", []string{"r-x", "r-owner"}))
	assert.False(t, c.MemberHasAnyRole("m-owner", []string{"r-member"}))
	assert.False(t, c.MemberHasAnyRole("m-voice", []string{"r-owner"}))
	assert.False(t, c.MemberHasAnyRole("unknown", []string{"r-owner"}))
}

func TestCache_IsExemptChannel(t *testing.T) {
	c := newTestCache(&mockRosterSource{roster: testRoster()}, clockwork.NewFakeClock())
	c.Refresh(context.Background())

	assert.True(t, c.IsExemptChannel("vc-afk"), "case-insensitive keyword match")
	assert.False(t, c.IsExemptChannel("vc-1"))
	assert.False(t, c.IsExemptChannel("missing"))
}

func TestCache_ReturnedMembersAreCopies(t *testing.T) {
	c := newTestCache(&mockRosterSource{roster: testRoster()}, clockwork.NewFakeClock())
	c.Refresh(context.Background())

	m, ok := c.Member("m-owner")
	require.True(t, ok)
	m.RoleIDs[0] = "tampered"

	assert.True(t, c.MemberHasAnyRole("m-owner", []string{"r-owner"}))
}

func TestCache_ConcurrentRefreshesShareOnePull(t *testing.T) {
	src := &mockRosterSource{roster: testRoster(), gate: make(chan struct{})}
	c := newTestCache(src, clockwork.NewFakeClock())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Refresh(context.Background())
		}()
	}

	assert.Eventually(t, func() bool { return src.calls.Load() >= 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
	assert.Equal(t, 3, c.Stats().Channels)
}

func TestCache_Clear(t *testing.T) {
	c := newTestCache(&mockRosterSource{roster: testRoster()}, clockwork.NewFakeClock())
	c.Refresh(context.Background())

	c.Clear()

	assert.Equal(t, Stats{}, c.Stats())
	assert.True(t, c.IsStale())
}
