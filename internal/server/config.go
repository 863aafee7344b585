package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/cartculus/server/internal/game"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server ServerSettings `hcl:"server,block"`
	Game   GameSettings   `hcl:"game,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// GameSettings tunes the room lifecycle timers and limits
type GameSettings struct {
	ChallengeWindowSeconds int `hcl:"challenge_window_seconds,optional"`
	RoundAdvanceDelayMs    int `hcl:"round_advance_delay_ms,optional"`
	DealLoadingSeconds     int `hcl:"deal_loading_seconds,optional"`
	MaxPlayersPerRoom      int `hcl:"max_players_per_room,optional"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	gc := game.DefaultConfig()
	return &ServerConfig{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Game: GameSettings{
			ChallengeWindowSeconds: int(gc.ChallengeWindow / time.Second),
			RoundAdvanceDelayMs:    int(gc.RoundAdvanceDelay / time.Millisecond),
			DealLoadingSeconds:     int(gc.DealLoadingWindow / time.Second),
			MaxPlayersPerRoom:      gc.MaxPlayersPerRoom,
		},
	}
}

// LoadServerConfig loads server configuration from HCL file
func LoadServerConfig(filename string) (*ServerConfig, error) {
	// Check if file exists
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	defaults := DefaultServerConfig()
	if config.Server.Address == "" {
		config.Server.Address = defaults.Server.Address
	}
	if config.Server.Port == 0 {
		config.Server.Port = defaults.Server.Port
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = defaults.Server.LogLevel
	}
	if config.Game.ChallengeWindowSeconds == 0 {
		config.Game.ChallengeWindowSeconds = defaults.Game.ChallengeWindowSeconds
	}
	if config.Game.RoundAdvanceDelayMs == 0 {
		config.Game.RoundAdvanceDelayMs = defaults.Game.RoundAdvanceDelayMs
	}
	if config.Game.DealLoadingSeconds == 0 {
		config.Game.DealLoadingSeconds = defaults.Game.DealLoadingSeconds
	}
	if config.Game.MaxPlayersPerRoom == 0 {
		config.Game.MaxPlayersPerRoom = defaults.Game.MaxPlayersPerRoom
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.Game.ChallengeWindowSeconds < 30 || c.Game.ChallengeWindowSeconds > 45 {
		return fmt.Errorf("challenge window must be between 30 and 45 seconds, got %d", c.Game.ChallengeWindowSeconds)
	}
	if c.Game.RoundAdvanceDelayMs <= 0 {
		return fmt.Errorf("round advance delay must be positive, got %d", c.Game.RoundAdvanceDelayMs)
	}
	if c.Game.DealLoadingSeconds <= 0 {
		return fmt.Errorf("deal loading window must be positive, got %d", c.Game.DealLoadingSeconds)
	}
	if c.Game.MaxPlayersPerRoom < 2 {
		return fmt.Errorf("max players per room must be at least 2, got %d", c.Game.MaxPlayersPerRoom)
	}
	// Each player takes a hand of 4 plus one shared target card.
	if game.HandSize*c.Game.MaxPlayersPerRoom+1 > game.DeckSize {
		return fmt.Errorf("max players per room %d exceeds what a %d-card deck can deal", c.Game.MaxPlayersPerRoom, game.DeckSize)
	}

	return nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// GameConfig converts the decoded settings into the room core's tuning.
func (c *ServerConfig) GameConfig() game.Config {
	return game.Config{
		ChallengeWindow:   time.Duration(c.Game.ChallengeWindowSeconds) * time.Second,
		RoundAdvanceDelay: time.Duration(c.Game.RoundAdvanceDelayMs) * time.Millisecond,
		DealLoadingWindow: time.Duration(c.Game.DealLoadingSeconds) * time.Second,
		MaxPlayersPerRoom: c.Game.MaxPlayersPerRoom,
	}
}
