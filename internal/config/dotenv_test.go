package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverridesDefaults(t *testing.T) {
	t.Setenv("MAX_PLAYERS", "4")
	t.Setenv("MAX_TURNS", "abc")
	t.Setenv("START_POLICY", "all_ready")
	t.Setenv("REJOIN_RESETS_JOINED_AT", "false")
	t.Setenv("ALLOWED_EMAIL_DOMAIN", "@Example.com")
	t.Setenv("ADMIN_UIDS", "u1, u2,,")

	cfg := Load()
	assert.Equal(t, 4, cfg.MaxPlayers)
	assert.Equal(t, 10, cfg.MaxTurns)
	assert.Equal(t, StartPolicyAllReady, cfg.StartPolicy)
	assert.False(t, cfg.RejoinResetsJoinedAt)
	assert.Equal(t, "example.com", cfg.AllowedEmailDomain)
	assert.Equal(t, []string{"u1", "u2"}, cfg.AdminUIDs)
	assert.True(t, cfg.IsAdmin("u2"))
	assert.False(t, cfg.IsAdmin("u3"))
}

func TestLoadIgnoresUnknownStartPolicy(t *testing.T) {
	t.Setenv("START_POLICY", "anyone")
	assert.Equal(t, StartPolicyFirst, Load().StartPolicy)
}

func TestLoadAllowedOrigins(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", " https://a.example ,,https://b.example")
	t.Setenv("TIMEZONE", "Nowhere/Unknown")

	cfg := Load()
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestDifficultyTable(t *testing.T) {
	cfg := Default()
	tests := []struct {
		name     string
		seconds  int
		maxTurns int
	}{
		{name: "easy", seconds: 90, maxTurns: 15},
		{name: "normal", seconds: 60, maxTurns: 10},
		{name: "hard", seconds: 30, maxTurns: 7},
		{name: "nightmare", seconds: 60, maxTurns: 10},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := cfg.Difficulty(tc.name)
			if got.TurnTimeLimitSeconds != tc.seconds || got.MaxTurns != tc.maxTurns {
				t.Fatalf("expected %d/%d got %d/%d", tc.seconds, tc.maxTurns, got.TurnTimeLimitSeconds, got.MaxTurns)
			}
		})
	}
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestLoadDotEnvKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("OPENAI_MODEL=from-file\nDAVINCI_TEST_ONLY=1\n"), 0o644))
	t.Setenv("OPENAI_MODEL", "from-env")
	t.Cleanup(func() { os.Unsetenv("DAVINCI_TEST_ONLY") })

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-env", os.Getenv("OPENAI_MODEL"))
	assert.Equal(t, "1", os.Getenv("DAVINCI_TEST_ONLY"))
}
