package bootstrap

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go-mutekick/internal/decision"
	"go-mutekick/internal/notifier"

	"github.com/bwmarrin/discordgo"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLookup struct {
	guild    *discordgo.Guild
	guildErr error
	channels map[string]*discordgo.Channel
}

func (m *mockLookup) Guild(_ context.Context, _ string) (*discordgo.Guild, error) {
	return m.guild, m.guildErr
}

func (m *mockLookup) Channel(_ context.Context, id string) (*discordgo.Channel, error) {
	ch, ok := m.channels[id]
	if !ok {
		return nil, errors.New("HTTP 404 Not Found")
	}
	return ch, nil
}

func validLookup() *mockLookup {
	return &mockLookup{
		guild: &discordgo.Guild{
			ID:    "1",
			Name:  "Arena",
			Roles: []*discordgo.Role{{ID: "10"}, {ID: "11"}},
		},
		channels: map[string]*discordgo.Channel{
			"100": {ID: "100", Name: "mod-log", Type: discordgo.ChannelTypeGuildText},
			"200": {ID: "200", Name: "Info", Type: discordgo.ChannelTypeGuildCategory},
		},
	}
}

func TestValidateGuild(t *testing.T) {
	tests := []struct {
		name         string
		mutate       func(m *mockLookup)
		logChannelID string
		wantErr      error
	}{
		{name: "valid", logChannelID: "100"},
		{
			name:         "guild unreachable",
			mutate:       func(m *mockLookup) { m.guild, m.guildErr = nil, errors.New("HTTP 403 Forbidden") },
			logChannelID: "100",
			wantErr:      ErrGuildUnavailable,
		},
		{name: "log channel missing", logChannelID: "999", wantErr: ErrLogChannelInvalid},
		{name: "log channel not text", logChannelID: "200", wantErr: ErrLogChannelInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := validLookup()
			if tt.mutate != nil {
				tt.mutate(lookup)
			}

			err := validateGuild(context.Background(), lookup, "1", tt.logChannelID, []string{"10", "12"})

			if tt.wantErr == nil {
				assert.NoError(t, err, "missing roles only warn")
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

type recordingSender struct {
	mu   sync.Mutex
	sent []string
}

func (r *recordingSender) SendChannelMessage(_ context.Context, _, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, text)
	return nil
}

func TestShutdown_FlushesBatchAndClosesEngine(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sender := &recordingSender{}
	batcher := notifier.NewBatcher(sender, "log", clock, time.Minute)
	engine := decision.NewEngine(decision.Settings{Timeout: time.Second}, clock, nil, nil, nil, batcher)
	engine.SetReady(true)

	batcher.Enqueue("⚠️ **a** joined **b** muted/deafened.")

	require.NoError(t, Shutdown(context.Background(), &Components{Engine: engine, Batcher: batcher}))

	assert.False(t, engine.Ready())
	assert.Zero(t, engine.PendingCount())
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "joined **b** muted/deafened.")
}

func TestShutdown_NilComponents(t *testing.T) {
	assert.NoError(t, Shutdown(context.Background(), nil))
}

func TestSignalReadyOnlyOnce(t *testing.T) {
	b := New()

	b.signalReady(ErrGuildUnavailable)
	b.signalReady(nil)

	assert.ErrorIs(t, <-b.ready, ErrGuildUnavailable)
	select {
	case err := <-b.ready:
		t.Fatalf("unexpected second signal: %v", err)
	default:
	}
}

func TestStart_RequiresInitialize(t *testing.T) {
	assert.Error(t, New().Start(context.Background()))
}
