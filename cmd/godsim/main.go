// Command godsim runs a divine-lands world: it loads or generates the
// terrain, founds the first civilizations, and serves the HTTP API while
// the frame clock advances the settlement simulation.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/talgya/divine-lands/internal/api"
	"github.com/talgya/divine-lands/internal/config"
	"github.com/talgya/divine-lands/internal/engine"
	"github.com/talgya/divine-lands/internal/persistence"
	"github.com/talgya/divine-lands/internal/session"
	"github.com/talgya/divine-lands/internal/world"
)

func main() {
	configPath := flag.String("config", envOrDefault("GODSIM_CONFIG", "godsim.toml"), "path to the TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel(),
	}))
	slog.SetDefault(logger)

	if err := run(cfg); err != nil {
		slog.Error("godsim failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	seed := cfg.ResolveSeed()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	slog.Info("Divine Lands starting", "seed", seed, "width", cfg.World.Width, "height", cfg.World.Height)

	// ── Database ──────────────────────────────────────────────────────
	if dir := filepath.Dir(cfg.Storage.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := persistence.Open(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.Storage.Path)

	// ── Load or Generate World ───────────────────────────────────────
	clock := engine.NewEngine()
	clock.Interval = time.Duration(cfg.Clock.IntervalMillis) * time.Millisecond
	clock.AutosaveFrames = cfg.Clock.AutosaveFrames
	if err := clock.SetSpeed(cfg.Clock.Speed); err != nil {
		return err
	}

	var sess *session.Session
	if db.HasWorldState() {
		slog.Info("found saved world state, loading...")
		sim, err := db.LoadWorldState(cfg.Simulation)
		if err != nil {
			return fmt.Errorf("load world: %w", err)
		}
		seed = sim.Grid().Config().Seed
		sess = session.New(sim, clock, db, seed)
		slog.Info("world state restored",
			"seed", seed,
			"tick", sim.CurrentTick(),
			"walkers", len(sim.Walkers()),
			"civilizations", len(sim.Civilizations),
		)
	} else {
		slog.Info("no saved state found, generating new world...")
		grid, err := world.Generate(cfg.World.Width, cfg.World.Height, cfg.Terrain)
		if err != nil {
			return fmt.Errorf("generate world: %w", err)
		}
		logTerrain(grid)

		sess = session.New(engine.NewSimulation(grid, cfg.Simulation), clock, db, seed)
		if _, err := sess.FoundCivilizations(cfg.Spawn); err != nil {
			return err
		}
		if err := sess.Save(); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.Server.AdminKey == "" {
		slog.Warn("GODSIM_ADMIN_KEY not set, divine powers are disabled")
	}
	hub := api.NewHub(sess, time.Duration(cfg.Server.StreamMillis)*time.Millisecond)
	server := &api.Server{
		Session:  sess,
		Port:     cfg.Server.Port,
		AdminKey: cfg.Server.AdminKey,
		Spawn:    cfg.Spawn,
		Powers:   api.NewRateLimiter(cfg.Server.PowerCasts, time.Duration(cfg.Server.PowerWindowSecs)*time.Second),
		Hub:      hub,
	}

	// ── Start ─────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		clock.Run(ctx)
		return nil
	})
	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		return server.Run(ctx)
	})

	st := sess.Status()
	fmt.Printf("\nDivine Lands is alive: %s people in %d civilizations on a %dx%d world.\n",
		humanize.Comma(int64(st.Stats.Population)), st.Civilizations, st.Width, st.Height)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.Server.Port)
	if st.Tick > 0 {
		fmt.Printf("Resuming from tick %s\n", humanize.Comma(int64(st.Tick)))
	}
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	runErr := g.Wait()
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("shutting down after error", "error", runErr)
	}

	// Final save on shutdown.
	slog.Info("final save...")
	if err := sess.Save(); err != nil {
		return fmt.Errorf("final save: %w", err)
	}
	fmt.Println("Simulation stopped. World state saved.")
	return runErr
}

func logTerrain(g *world.Grid) {
	counts := world.TerrainCounts(g)
	total := g.Width() * g.Height()
	for t := world.TerrainWater; t <= world.TerrainBuilding; t++ {
		if n := counts[t]; n > 0 {
			slog.Info("terrain", "type", world.TerrainName(t), "count", humanize.Comma(int64(n)),
				"share", fmt.Sprintf("%.1f%%", 100*float64(n)/float64(total)))
		}
	}
	slog.Info("rivers carved", "cells", len(g.Rivers()))
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
