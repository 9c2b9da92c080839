package world

import (
	"math"

	"github.com/talgya/divine-lands/internal/entropy"
)

// riverSeedOffset separates the river RNG stream from other consumers of
// the world seed.
const riverSeedOffset = 100

// carveRivers runs steepest-descent rivers from high sources and returns
// the number of rivers carved.
func carveRivers(g *Grid) int {
	rc := g.cfg.Rivers
	if rc.SourceChance <= 0 {
		return 0
	}
	rng := entropy.New(g.cfg.Seed + riverSeedOffset)
	threshold := g.cfg.MountainLevel * rc.SourceLevel

	var sources []Point
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			if g.cell(x, y).Height > threshold && rng.Float64() < rc.SourceChance {
				sources = append(sources, Point{X: x, Y: y})
			}
		}
	}

	for _, src := range sources {
		path := g.descend(src, rc.MaxSteps)
		for _, p := range path {
			c := g.cell(p.X, p.Y)
			c.Type = TerrainWater
			c.Moisture = 1
			c.derive()
			c.River = true
			g.wetBanks(p, rc.MoistureRadius, rc.MoistureBoost)
		}
	}
	return len(sources)
}

// descend follows the strictly lowest 8-neighbour from start. It stops when
// no neighbour is lower, when the next step would drop below water level,
// or after maxSteps steps.
func (g *Grid) descend(start Point, maxSteps int) []Point {
	path := []Point{start}
	cur := start
	for step := 0; step < maxSteps; step++ {
		lowest := g.cell(cur.X, cur.Y).Height
		next, found := Point{}, false
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := cur.X+dx, cur.Y+dy
				if (dx == 0 && dy == 0) || !g.InBounds(nx, ny) {
					continue
				}
				if h := g.cell(nx, ny).Height; h < lowest {
					lowest = h
					next, found = Point{X: nx, Y: ny}, true
				}
			}
		}
		if !found || lowest < g.cfg.WaterLevel {
			break
		}
		cur = next
		path = append(path, cur)
	}
	return path
}

// wetBanks raises moisture around a river cell, decaying linearly with
// distance and capped at 1.
func (g *Grid) wetBanks(p Point, radius int, boost float64) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			nx, ny := p.X+dx, p.Y+dy
			if !g.InBounds(nx, ny) {
				continue
			}
			bonus := (1 - math.Hypot(float64(dx), float64(dy))/float64(radius+1)) * boost
			if bonus <= 0 {
				continue
			}
			c := g.cell(nx, ny)
			c.Moisture = math.Min(1, c.Moisture+bonus)
		}
	}
}
