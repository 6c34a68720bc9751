package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TOKEN", "test-token")
	t.Setenv("GUILD_ID", "100")
	t.Setenv("APP_ID", "200")
	t.Setenv("LOG_CHANNEL_ID", "300")
	t.Setenv("OWNER_ROLE", "1")
	t.Setenv("EDITOR_ROLE", "2")
	t.Setenv("LEADER_ROLE", "3")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-token", cfg.Bot.Token)
	assert.Equal(t, "100", cfg.Bot.GuildID)
	assert.Equal(t, 10*time.Second, cfg.Timeout())
	assert.Equal(t, 5*time.Second, cfg.Cooldown())
	assert.Equal(t, 3*time.Second, cfg.LogBatchDelay())
	assert.Equal(t, time.Minute, cfg.CacheRefreshInterval())
	assert.Equal(t, "afk", cfg.Enforcement.ExemptKeyword)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Enforcement.ExemptChannels)
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("EXEMPT_CHANNELS", "11,12,13")
	t.Setenv("TIMEOUT", "2500")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"11", "12", "13"}, cfg.Enforcement.ExemptChannels)
	assert.Equal(t, 2500*time.Millisecond, cfg.Timeout())
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_MissingToken(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TOKEN", "")

	_, err := Load()
	require.ErrorIs(t, err, ErrMissingToken)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"missing guild", "GUILD_ID", ""},
		{"non numeric log channel", "LOG_CHANNEL_ID", "general"},
		{"zero timeout", "TIMEOUT", "0"},
		{"unknown log level", "LOG_LEVEL", "verbose"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
		})
	}
}

func TestRoleSets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Roles = RoleConfig{Owner: "1", Editor: "2", Leader: "3"}

	assert.Equal(t, []string{"1", "2"}, cfg.AllowedRoles())
	assert.Equal(t, []string{"1", "3", "2"}, cfg.IgnoredRoles())
	assert.Equal(t, []string{"1"}, cfg.OwnerRoles())
}
