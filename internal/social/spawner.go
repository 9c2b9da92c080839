package social

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/talgya/divine-lands/internal/entropy"
	"github.com/talgya/divine-lands/internal/noise"
	"github.com/talgya/divine-lands/internal/world"
)

// ErrInvalidSpawnConfig is returned for spawn parameters that cannot be
// satisfied.
var ErrInvalidSpawnConfig = errors.New("invalid spawn config")

// spawnSeedOffset separates the spawner RNG stream from terrain streams.
const spawnSeedOffset = 200

// SpawnConfig controls civilization placement.
type SpawnConfig struct {
	Seed               int64            `toml:"seed" json:"seed"`
	MinDistance        float64          `toml:"min_distance" json:"min_distance"`
	MaxCivilizations   int              `toml:"max_civilizations" json:"max_civilizations"`
	StartingPopulation int              `toml:"starting_population" json:"starting_population"`
	AlignmentWeights   AlignmentWeights `toml:"alignment_weights" json:"alignment_weights"`

	LatticeSize      int     `toml:"lattice_size" json:"lattice_size"`           // side of a coarse search block
	QualityThreshold float64 `toml:"quality_threshold" json:"quality_threshold"` // block average a block must exceed
	FlatRadius       int     `toml:"flat_radius" json:"flat_radius"`
	FlatFraction     float64 `toml:"flat_fraction" json:"flat_fraction"` // share of the flat radius that must be usable
	SlopeLimit       float64 `toml:"slope_limit" json:"slope_limit"`     // normalized slope counted as usable
	SlopeScale       float64 `toml:"slope_scale" json:"slope_scale"`     // height difference that normalizes to slope 1
	IdealHeight      float64 `toml:"ideal_height" json:"ideal_height"`   // between water (0) and mountain (1) level
}

// DefaultSpawnConfig returns the standard placement parameters.
func DefaultSpawnConfig() SpawnConfig {
	return SpawnConfig{
		MinDistance:        50,
		MaxCivilizations:   4,
		StartingPopulation: 20,
		AlignmentWeights:   AlignmentWeights{Good: 0.3, Neutral: 0.5, Evil: 0.2},
		LatticeSize:        10,
		QualityThreshold:   0.6,
		FlatRadius:         5,
		FlatFraction:       0.6,
		SlopeLimit:         0.3,
		SlopeScale:         4,
		IdealHeight:        0.5,
	}
}

// Validate checks the configuration.
func (c SpawnConfig) Validate() error {
	w := c.AlignmentWeights
	switch {
	case c.MinDistance < 0:
		return fmt.Errorf("%w: min distance %v", ErrInvalidSpawnConfig, c.MinDistance)
	case c.MaxCivilizations < 0:
		return fmt.Errorf("%w: max civilizations %d", ErrInvalidSpawnConfig, c.MaxCivilizations)
	case c.StartingPopulation < 0:
		return fmt.Errorf("%w: starting population %d", ErrInvalidSpawnConfig, c.StartingPopulation)
	case w.Good < 0 || w.Neutral < 0 || w.Evil < 0:
		return fmt.Errorf("%w: negative alignment weight", ErrInvalidSpawnConfig)
	case w.total() <= 0:
		return fmt.Errorf("%w: alignment weights sum to zero", ErrInvalidSpawnConfig)
	case c.LatticeSize <= 0:
		return fmt.Errorf("%w: lattice size %d", ErrInvalidSpawnConfig, c.LatticeSize)
	case c.FlatRadius < 0:
		return fmt.Errorf("%w: flat radius %d", ErrInvalidSpawnConfig, c.FlatRadius)
	case c.FlatFraction < 0 || c.FlatFraction > 1:
		return fmt.Errorf("%w: flat fraction %v", ErrInvalidSpawnConfig, c.FlatFraction)
	case c.SlopeScale <= 0:
		return fmt.Errorf("%w: slope scale %v", ErrInvalidSpawnConfig, c.SlopeScale)
	}
	return nil
}

// FindSpawnLocations returns up to MaxCivilizations habitable sites, best
// first, each at least MinDistance from the others.
func FindSpawnLocations(g *world.Grid, cfg SpawnConfig) ([]SpawnSite, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sites := separate(candidates(g, cfg), nil, cfg.MinDistance, cfg.MaxCivilizations)
	return sites, nil
}

// SpawnCivilizations places new civilizations on g. Sites keep MinDistance
// from each other and from existing seeds; names stay unique across both.
func SpawnCivilizations(g *world.Grid, cfg SpawnConfig, existing []SettlementSeed) ([]SettlementSeed, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	taken := make([]world.Point, 0, len(existing))
	used := make(map[string]bool, len(existing))
	for _, s := range existing {
		taken = append(taken, s.Position)
		used[s.Name] = true
	}

	sites := separate(candidates(g, cfg), taken, cfg.MinDistance, cfg.MaxCivilizations)
	rng := entropy.New(cfg.Seed + spawnSeedOffset + int64(len(existing)))

	seeds := make([]SettlementSeed, 0, len(sites))
	for _, site := range sites {
		align := drawAlignment(rng.Float64(), cfg.AlignmentWeights)
		name := civilizationName(rng, align, site.Terrain, used)
		seeds = append(seeds, SettlementSeed{
			ID:         seedID(cfg.Seed, site.Position, name),
			Name:       name,
			Alignment:  align,
			Color:      civilizationColor(rng, align),
			Position:   site.Position,
			Terrain:    site.Terrain,
			Quality:    site.Quality,
			Population: cfg.StartingPopulation,
		})
	}

	slog.Debug("civilizations spawned", "count", len(seeds), "existing", len(existing))
	return seeds, nil
}

// drawAlignment performs a cumulative-weight draw with u in [0, 1).
func drawAlignment(u float64, w AlignmentWeights) Alignment {
	r := u * w.total()
	for _, opt := range []struct {
		a      Alignment
		weight float64
	}{
		{AlignGood, w.Good},
		{AlignNeutral, w.Neutral},
		{AlignEvil, w.Evil},
	} {
		r -= opt.weight
		if r <= 0 && opt.weight > 0 {
			return opt.a
		}
	}
	return AlignNeutral
}

// candidates scans the coarse lattice and returns the best flat site of
// every block whose mean quality exceeds the threshold, sorted by quality
// descending. Ties keep lattice (row-major) order.
func candidates(g *world.Grid, cfg SpawnConfig) []SpawnSite {
	var sites []SpawnSite
	step := cfg.LatticeSize
	for by := 0; by < g.Height(); by += step {
		for bx := 0; bx < g.Width(); bx += step {
			if blockQuality(g, cfg, bx, by) <= cfg.QualityThreshold {
				continue
			}
			if site, ok := bestInBlock(g, cfg, bx, by); ok {
				sites = append(sites, site)
			}
		}
	}
	sort.SliceStable(sites, func(i, j int) bool {
		return sites[i].Quality > sites[j].Quality
	})
	return sites
}

func blockQuality(g *world.Grid, cfg SpawnConfig, bx, by int) float64 {
	total, count := 0.0, 0
	for y := by; y < min(by+cfg.LatticeSize, g.Height()); y++ {
		for x := bx; x < min(bx+cfg.LatticeSize, g.Width()); x++ {
			total += CellQuality(g, cfg, x, y)
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

func bestInBlock(g *world.Grid, cfg SpawnConfig, bx, by int) (SpawnSite, bool) {
	var best SpawnSite
	found := false
	for y := by; y < min(by+cfg.LatticeSize, g.Height()); y++ {
		for x := bx; x < min(bx+cfg.LatticeSize, g.Width()); x++ {
			q := CellQuality(g, cfg, x, y)
			if q <= best.Quality || !hasFlatLand(g, cfg, x, y) {
				continue
			}
			c, _ := g.At(x, y)
			best = SpawnSite{Position: world.Point{X: x, Y: y}, Quality: q, Terrain: c.Type}
			found = true
		}
	}
	return best, found
}

// CellQuality scores a single cell's habitability in [0, 1]. Water and
// settled cells score zero.
func CellQuality(g *world.Grid, cfg SpawnConfig, x, y int) float64 {
	c, ok := g.At(x, y)
	if !ok || c.HasWater || c.IsBuilding() {
		return 0
	}

	q := 0.0
	switch c.Type {
	case world.TerrainGrass:
		q += 0.4
	case world.TerrainForest:
		q += 0.3
	case world.TerrainDesert:
		q += 0.1
	case world.TerrainTundra, world.TerrainSnow:
		q += 0.05
	}

	gc := g.Config()
	hn := noise.InverseLerp(gc.WaterLevel, gc.MountainLevel, c.Height)
	q += (1 - math.Abs(hn-cfg.IdealHeight)) * 0.3
	q += (1 - slope(g, cfg, x, y)) * 0.3

	return noise.Clamp01(q)
}

func slope(g *world.Grid, cfg SpawnConfig, x, y int) float64 {
	return noise.Clamp01(g.Slope(x, y) / cfg.SlopeScale)
}

// hasFlatLand reports whether at least FlatFraction of the in-bounds cells
// within FlatRadius of (x, y) are dry and gently sloped.
func hasFlatLand(g *world.Grid, cfg SpawnConfig, x, y int) bool {
	r := cfg.FlatRadius
	usable, total := 0, 0
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy > r*r {
				continue
			}
			c, ok := g.At(x+dx, y+dy)
			if !ok {
				continue
			}
			total++
			if !c.HasWater && slope(g, cfg, x+dx, y+dy) < cfg.SlopeLimit {
				usable++
			}
		}
	}
	return total > 0 && float64(usable) >= cfg.FlatFraction*float64(total)
}

// separate greedily accepts sites at least minDist from every accepted site
// and every taken point, stopping at limit.
func separate(sites []SpawnSite, taken []world.Point, minDist float64, limit int) []SpawnSite {
	accepted := make([]SpawnSite, 0, min(limit, len(sites)))
	for _, s := range sites {
		if len(accepted) >= limit {
			break
		}
		if tooClose(s.Position, taken, minDist) {
			continue
		}
		accepted = append(accepted, s)
		taken = append(taken, s.Position)
	}
	return accepted
}

func tooClose(p world.Point, others []world.Point, minDist float64) bool {
	for _, o := range others {
		if distance(p, o) < minDist {
			return true
		}
	}
	return false
}

func distance(a, b world.Point) float64 {
	return noise.Dist(float64(a.X), float64(a.Y), float64(b.X), float64(b.Y))
}
