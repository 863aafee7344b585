package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	rand "math/rand/v2"

	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/cartculus/server/cmd/cartculus/shared"
	"github.com/cartculus/server/internal/game"
	"github.com/cartculus/server/internal/randutil"
	"github.com/cartculus/server/internal/server"
)

// ServerCmd contains core server configuration
type ServerCmd struct {
	Addr   string `kong:"help='Server address, overrides the config file'"`
	Config string `kong:"default='cartculus.hcl',help='Path to HCL config file'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
	Seed   *int64 `kong:"help='Deterministic RNG seed for dealing (optional)'"`
}

func (c *ServerCmd) Run() error {
	cfg, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := shared.SetupLogger(c.Debug)
	if !c.Debug {
		logger = logger.Level(shared.ParseLevel(cfg.Server.LogLevel))
	}

	var rng *rand.Rand
	var seed int64
	if c.Seed != nil {
		seed = *c.Seed
		logger.Info().Int64("seed", seed).Msg("Using deterministic seed")
		rng = randutil.New(seed)
	} else {
		seed = time.Now().UnixNano()
		logger.Info().Int64("seed", seed).Msg("Using random seed")
		rng = randutil.New(seed)
	}

	addr := cfg.GetServerAddress()
	if c.Addr != "" {
		addr = c.Addr
	}

	gameCfg := cfg.GameConfig()
	srv := server.NewServer(addr, logger)
	store := game.NewRoomStore()
	rooms := game.NewRooms(logger, store, srv, quartz.NewReal(), rng, gameCfg)
	srv.SetRooms(rooms)

	logger.Info().
		Str("address", addr).
		Dur("challenge_window", gameCfg.ChallengeWindow).
		Dur("round_advance_delay", gameCfg.RoundAdvanceDelay).
		Dur("deal_loading_window", gameCfg.DealLoadingWindow).
		Int("max_players_per_room", gameCfg.MaxPlayersPerRoom).
		Msg("Starting Cartculus server")

	ctx := shared.SetupSignalHandlerWithLogger(logger)

	var g errgroup.Group
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
