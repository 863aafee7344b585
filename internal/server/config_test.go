package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultServerConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultServerConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "localhost:8080", cfg.GetServerAddress())

	gc := cfg.GameConfig()
	assert.Equal(t, 30*time.Second, gc.ChallengeWindow)
	assert.Equal(t, 1500*time.Millisecond, gc.RoundAdvanceDelay)
	assert.Equal(t, 8*time.Second, gc.DealLoadingWindow)
	assert.Equal(t, 12, gc.MaxPlayersPerRoom)
}

func TestLoadServerConfigMissingFile(t *testing.T) {
	t.Parallel()

	cfg, err := LoadServerConfig(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)
	assert.Equal(t, DefaultServerConfig(), cfg)
}

func TestLoadServerConfigFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "server.hcl")
	content := `
server {
  address   = "0.0.0.0"
  port      = 9000
  log_level = "debug"
}

game {
  challenge_window_seconds = 45
  max_players_per_room     = 8
}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadServerConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0:9000", cfg.GetServerAddress())
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 45*time.Second, cfg.GameConfig().ChallengeWindow)
	assert.Equal(t, 8, cfg.GameConfig().MaxPlayersPerRoom)

	// Unset values keep their defaults.
	assert.Equal(t, 1500*time.Millisecond, cfg.GameConfig().RoundAdvanceDelay)
	assert.Equal(t, 8*time.Second, cfg.GameConfig().DealLoadingWindow)
}

func TestLoadServerConfigParseError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.hcl")
	require.NoError(t, os.WriteFile(path, []byte("server {"), 0o644))

	_, err := LoadServerConfig(path)
	assert.Error(t, err)
}

func TestServerConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*ServerConfig)
	}{
		{"port too low", func(c *ServerConfig) { c.Server.Port = 0 }},
		{"port too high", func(c *ServerConfig) { c.Server.Port = 70000 }},
		{"challenge window too short", func(c *ServerConfig) { c.Game.ChallengeWindowSeconds = 10 }},
		{"challenge window too long", func(c *ServerConfig) { c.Game.ChallengeWindowSeconds = 60 }},
		{"negative advance delay", func(c *ServerConfig) { c.Game.RoundAdvanceDelayMs = -1 }},
		{"single-player room", func(c *ServerConfig) { c.Game.MaxPlayersPerRoom = 1 }},
		{"more players than the deck seats", func(c *ServerConfig) { c.Game.MaxPlayersPerRoom = 13 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultServerConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
