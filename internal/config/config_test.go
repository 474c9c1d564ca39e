package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DATABASE_PATH", "SERVER_ADDR", "GAME_DURATION_MINUTES", "SESSION_LIFETIME", "RNG_SEED", "GUEST_LOGIN"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "tcg_tournament.db", cfg.DatabasePath)
	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, 30*time.Minute, cfg.GameDuration)
	assert.Equal(t, 24*time.Hour, cfg.SessionLifetime)
	assert.Zero(t, cfg.RNGSeed)
	assert.False(t, cfg.GuestLogin)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_PATH", "/tmp/test.db")
	t.Setenv("GAME_DURATION_MINUTES", "45")
	t.Setenv("SESSION_LIFETIME", "2h")
	t.Setenv("RNG_SEED", "42")
	t.Setenv("GUEST_LOGIN", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/test.db", cfg.DatabasePath)
	assert.Equal(t, 45*time.Minute, cfg.GameDuration)
	assert.Equal(t, 2*time.Hour, cfg.SessionLifetime)
	assert.Equal(t, uint64(42), cfg.RNGSeed)
	assert.True(t, cfg.GuestLogin)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	testCases := []struct {
		key   string
		value string
	}{
		{"GAME_DURATION_MINUTES", "abc"},
		{"GAME_DURATION_MINUTES", "0"},
		{"SESSION_LIFETIME", "forever"},
		{"RNG_SEED", "-1"},
		{"GUEST_LOGIN", "maybe"},
	}

	for _, tc := range testCases {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
