package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-mutekick/internal/config"
	"go-mutekick/internal/decision"
	"go-mutekick/internal/metrics"
	"go-mutekick/internal/models"
	"go-mutekick/internal/state"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockResponder struct {
	deferred  int
	responses []Reply
	followUps []Reply
	deferErr  error
}

func (m *mockResponder) Defer(_ context.Context, _ bool) error {
	m.deferred++
	return m.deferErr
}

func (m *mockResponder) Respond(_ context.Context, reply Reply) error {
	m.responses = append(m.responses, reply)
	return nil
}

func (m *mockResponder) FollowUp(_ context.Context, reply Reply) error {
	m.followUps = append(m.followUps, reply)
	return nil
}

type mockEnforcer struct {
	enabled bool
	ready   bool
	pending int
}

func (m *mockEnforcer) SetEnabled(v bool) { m.enabled = v }
func (m *mockEnforcer) Enabled() bool { return m.enabled }
func (m *mockEnforcer) Ready() bool { return m.ready }
func (m *mockEnforcer) PendingCount() int { return m.pending }
func (m *mockEnforcer) Timeout() time.Duration { return 10 * time.Second }

type mockRoster struct {
	refreshErr error
	refreshes  int
	channels   map[string]models.Channel
}

func (m *mockRoster) TryRefresh(_ context.Context) error {
	m.refreshes++
	return m.refreshErr
}

func (m *mockRoster) Stats() state.Stats {
	return state.Stats{Roles: 4, Channels: len(m.channels), Members: 7}
}

func (m *mockRoster) GuildName() string { return "Arena" }

func (m *mockRoster) Channel(id string) (models.Channel, bool) {
	ch, ok := m.channels[id]
	return ch, ok
}

type mockBacklog struct{ n int }

func (m mockBacklog) Len() int { return m.n }

type mockHealth map[string]bool

func (m mockHealth) GetStatus() map[string]bool { return m }

type handlerFixture struct {
	clock   *clockwork.FakeClock
	engine  *mockEnforcer
	roster  *mockRoster
	handler *Handler
}

func newHandlerFixture() *handlerFixture {
	cfg := config.DefaultConfig()
	cfg.Bot.LogChannelID = "900"
	cfg.Roles = config.RoleConfig{Owner: "1", Editor: "2", Leader: "3"}
	cfg.Enforcement.ExemptChannels = []string{"500", "501"}

	clock := clockwork.NewFakeClock()
	f := &handlerFixture{
		clock:  clock,
		engine: &mockEnforcer{enabled: true, ready: true},
		roster: &mockRoster{channels: map[string]models.Channel{"500": {ID: "500", Name: "AFK"}}},
	}
	f.handler = NewHandler(Deps{
		Config:    cfg,
		Engine:    f.engine,
		Cache:     f.roster,
		Cooldowns: decision.NewCooldownManager(clock),
		Logs:      mockBacklog{n: 2},
		Health:    mockHealth{"gateway": false, "cache": true},
		Clock:     clock,
	})
	return f
}

func invocation(subject, command, sub string, roles ...string) Invocation {
	return Invocation{SubjectID: subject, SubjectTag: subject + "#0001", RoleIDs: roles, Command: command, Subcommand: sub}
}

func TestDispatch_ToggleRequiresOperatorRole(t *testing.T) {
	tests := []struct {
		name        string
		sub         string
		roles       []string
		wantEnabled bool
		wantDenied  bool
	}{
		{"owner turns off", "off", []string{"1"}, false, false},
		{"editor turns off", "off", []string{"2"}, false, false},
		{"leader cannot toggle", "off", []string{"3"}, true, true},
		{"no role cannot toggle", "off", nil, true, true},
		{"anyone reads status", "status", nil, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandlerFixture()
			r := &mockResponder{}

			err := f.handler.Dispatch(context.Background(), invocation("u1", CommandMuteKick, tt.sub, tt.roles...), r)
			require.NoError(t, err)

			assert.Equal(t, 1, r.deferred)
			assert.Equal(t, tt.wantEnabled, f.engine.enabled)
			require.Len(t, r.responses, 1)
			if tt.wantDenied {
				assert.Equal(t, denyOperator, r.responses[0].Content)
				assert.False(t, f.handler.Cooldowns.IsActive("u1", CommandMuteKick), "denied calls do not consume a cooldown")
			} else {
				require.NotNil(t, r.responses[0].Embed)
				assert.True(t, f.handler.Cooldowns.IsActive("u1", CommandMuteKick))
			}
		})
	}
}

func TestDispatch_OnReportsNewState(t *testing.T) {
	f := newHandlerFixture()
	f.engine.enabled = false
	r := &mockResponder{}

	require.NoError(t, f.handler.Dispatch(context.Background(), invocation("u1", CommandMuteKick, "on", "1"), r))

	assert.True(t, f.engine.enabled)
	embed := r.responses[0].Embed
	assert.Equal(t, "🟢 Enforcement is now **ON**", embed.Description)
	assert.Equal(t, colorGreen, embed.Color)
	assert.Equal(t, "10s", embed.Fields[1].Value)
	assert.Equal(t, "5s", embed.Fields[2].Value)
	assert.Equal(t, "Requested by u1#0001", embed.Footer.Text)
}

func TestDispatch_CooldownRejectsWithoutExtending(t *testing.T) {
	f := newHandlerFixture()
	ctx := context.Background()

	require.NoError(t, f.handler.Dispatch(ctx, invocation("u1", CommandMuteKick, "status"), &mockResponder{}))

	f.clock.Advance(1500 * time.Millisecond)
	first := f.handler.Cooldowns.Remaining("u1", CommandMuteKick)

	r := &mockResponder{}
	require.NoError(t, f.handler.Dispatch(ctx, invocation("u1", CommandMuteKick, "status"), r))

	assert.Zero(t, r.deferred, "cooldown replies are immediate")
	require.Len(t, r.responses, 1)
	assert.Equal(t, "⏱️ Please wait 4s before using this command again.", r.responses[0].Content)
	assert.True(t, r.responses[0].Ephemeral)

	f.clock.Advance(500 * time.Millisecond)
	second := f.handler.Cooldowns.Remaining("u1", CommandMuteKick)
	assert.Less(t, second, first)
	assert.Equal(t, 3*time.Second, second)

	assert.NoError(t, f.handler.Dispatch(ctx, invocation("u1", CommandConfig, "stats", "1"), &mockResponder{}),
		"cooldowns are per command")
}

func TestDispatch_CooldownMetric(t *testing.T) {
	f := newHandlerFixture()
	ctx := context.Background()
	counter := metrics.CommandInvocations.WithLabelValues(CommandMuteKick, "cooldown")
	before := testutil.ToFloat64(counter)

	_ = f.handler.Dispatch(ctx, invocation("u9", CommandMuteKick, "status"), &mockResponder{})
	_ = f.handler.Dispatch(ctx, invocation("u9", CommandMuteKick, "status"), &mockResponder{})

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestDispatch_ConfigIsOwnerOnly(t *testing.T) {
	f := newHandlerFixture()
	r := &mockResponder{}

	require.NoError(t, f.handler.Dispatch(context.Background(), invocation("u1", CommandConfig, "stats", "2"), r))

	require.Len(t, r.responses, 1)
	assert.Equal(t, denyOwner, r.responses[0].Content)
	assert.False(t, f.handler.Cooldowns.IsActive("u1", CommandConfig))
}

func TestDispatch_ConfigReload(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newHandlerFixture()
		r := &mockResponder{}

		require.NoError(t, f.handler.Dispatch(context.Background(), invocation("u1", CommandConfig, "reload", "1"), r))

		assert.Equal(t, 1, f.roster.refreshes)
		assert.Empty(t, r.followUps, "the deferred reply is edited in place")
		require.Len(t, r.responses, 1)
		embed := r.responses[0].Embed
		require.NotNil(t, embed)
		assert.Equal(t, "Roles: 4\nChannels: 1\nMembers: 7", embed.Fields[0].Value)
	})

	t.Run("failure is reported", func(t *testing.T) {
		f := newHandlerFixture()
		f.roster.refreshErr = errors.New("gateway unavailable")
		r := &mockResponder{}

		require.NoError(t, f.handler.Dispatch(context.Background(), invocation("u1", CommandConfig, "reload", "1"), r))

		assert.Empty(t, r.followUps)
		require.Len(t, r.responses, 1)
		assert.Contains(t, r.responses[0].Content, "Failed to reload configuration")
	})
}

func TestDispatch_ConfigStats(t *testing.T) {
	f := newHandlerFixture()
	f.engine.pending = 3
	r := &mockResponder{}

	require.NoError(t, f.handler.Dispatch(context.Background(), invocation("u1", CommandConfig, "stats", "1"), r))

	require.Len(t, r.responses, 1)
	embed := r.responses[0].Embed
	require.NotNil(t, embed)
	assert.Contains(t, embed.Fields[0].Value, "Guild: Arena")
	assert.Contains(t, embed.Fields[0].Value, "Health (cache): ✅\nHealth (gateway): ❌")
	assert.Contains(t, embed.Fields[1].Value, "Active Timers: 3")
	assert.Contains(t, embed.Fields[3].Value, "Log Queue: 2")
	assert.Contains(t, embed.Fields[4].Value, "Exempt Channels: 2\nLog Channel: <#900>")
}

func TestDispatch_ConfigExempt(t *testing.T) {
	f := newHandlerFixture()
	r := &mockResponder{}

	require.NoError(t, f.handler.Dispatch(context.Background(), invocation("u1", CommandConfig, "exempt", "1"), r))

	embed := r.responses[0].Embed
	require.NotNil(t, embed)
	assert.Contains(t, embed.Description, "• <#500> - **AFK**")
	assert.Contains(t, embed.Description, "• `501` - *Channel not found*")
	assert.Equal(t, "2 channels", embed.Fields[0].Value)
}

func TestDispatch_UnknownCommandReportsError(t *testing.T) {
	f := newHandlerFixture()
	r := &mockResponder{}

	err := f.handler.Dispatch(context.Background(), invocation("u1", "nope", ""), r)

	require.Error(t, err)
	require.Len(t, r.followUps, 1)
	assert.Contains(t, r.followUps[0].Content, "An error occurred")
	assert.False(t, f.handler.Cooldowns.IsActive("u1", "nope"))
}

func TestDispatch_DeferFailure(t *testing.T) {
	f := newHandlerFixture()
	r := &mockResponder{deferErr: errors.New("interaction expired")}

	err := f.handler.Dispatch(context.Background(), invocation("u1", CommandMuteKick, "status"), r)

	require.Error(t, err)
	assert.Empty(t, r.responses)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KiB", formatBytes(1536))
	assert.Equal(t, "2.0 GiB", formatBytes(2<<30))
}
