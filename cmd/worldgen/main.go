// Command worldgen generates a world from a seed and prints its terrain
// distribution and the sites civilizations would be founded on.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/talgya/divine-lands/internal/config"
	"github.com/talgya/divine-lands/internal/social"
	"github.com/talgya/divine-lands/internal/world"
)

func main() {
	configPath := flag.String("config", "godsim.toml", "path to the TOML config file")
	seed := flag.Int64("seed", 0, "world seed (overrides config; 0 keeps the configured seed)")
	width := flag.Int("width", 0, "grid width (overrides config)")
	height := flag.Int("height", 0, "grid height (overrides config)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *seed != 0 {
		cfg.World.Seed = *seed
	}
	if *width > 0 {
		cfg.World.Width = *width
	}
	if *height > 0 {
		cfg.World.Height = *height
	}
	cfg.ResolveSeed()

	if err := report(cfg); err != nil {
		slog.Error("worldgen failed", "error", err)
		os.Exit(1)
	}
}

func report(cfg config.Config) error {
	g, err := world.Generate(cfg.World.Width, cfg.World.Height, cfg.Terrain)
	if err != nil {
		return err
	}

	total := g.Width() * g.Height()
	fmt.Printf("World %dx%d, seed %d (%s cells)\n\n", g.Width(), g.Height(), cfg.World.Seed, humanize.Comma(int64(total)))

	counts := world.TerrainCounts(g)
	types := make([]world.Terrain, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return counts[types[i]] > counts[types[j]] })

	fmt.Println("Terrain")
	for _, t := range types {
		n := counts[t]
		fmt.Printf("  %-10s %8s  %5.1f%%\n", world.TerrainName(t), humanize.Comma(int64(n)), 100*float64(n)/float64(total))
	}
	fmt.Printf("  %-10s %8s\n\n", "River", humanize.Comma(int64(len(g.Rivers()))))

	sites, err := social.FindSpawnLocations(g, cfg.Spawn)
	if err != nil {
		return err
	}
	fmt.Printf("Spawn sites (%d)\n", len(sites))
	for _, s := range sites {
		fmt.Printf("  (%d,%d) %-8s quality %.2f\n", s.Position.X, s.Position.Y, world.TerrainName(s.Terrain), s.Quality)
	}

	seeds, err := social.SpawnCivilizations(g, cfg.Spawn, nil)
	if err != nil {
		return err
	}
	fmt.Printf("\nCivilizations (%d)\n", len(seeds))
	for _, s := range seeds {
		fmt.Printf("  %-24s %-8s %s at (%d,%d), %s people\n",
			s.Name, s.Alignment, s.Color, s.Position.X, s.Position.Y, humanize.Comma(int64(s.Population)))
	}
	return nil
}
