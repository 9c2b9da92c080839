// Building growth: population accumulates in building cells at a rate set
// by their farms, and a full building emits half its people as a walker.
package engine

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/talgya/divine-lands/internal/social"
	"github.com/talgya/divine-lands/internal/world"
)

// MaxFarms is the farm count at which capacity peaks.
const MaxFarms = 48

// Capacity returns the population a building with the given farms holds.
// Non-decreasing in farms and 4500 at MaxFarms and beyond.
func Capacity(farms int) float64 {
	switch {
	case farms >= MaxFarms:
		return 4500
	case farms > 24:
		return float64(100*farms - 650)
	case farms > 8:
		return float64(75*farms + 50)
	case farms < 0:
		farms = 0
	}
	return float64(50 * (farms + 3))
}

// GrowthRate returns population gained per second.
func GrowthRate(farms int) float64 {
	return Capacity(farms) / 25
}

// updateBuildings grows every building by dt seconds. A building that
// reaches capacity emits a walker carrying half its population.
func (s *Simulation) updateBuildings(dt float64) {
	s.grid.EachBuilding(func(c world.Cell) {
		capacity := Capacity(c.Farms)
		amount := math.Min(c.Amount+GrowthRate(c.Farms)*dt, capacity)
		if amount >= capacity {
			half := amount / 2
			w := s.spawner.Spawn(world.Point{X: c.X, Y: c.Y}, half)
			s.walkers = append(s.walkers, w)
			amount = half
			s.Stats.WalkersSpawned++
			s.EmitEvent(Event{
				Tick:        s.LastTick,
				Description: fmt.Sprintf("%s settlers leave the building at (%d,%d)", humanize.Comma(int64(half)), c.X, c.Y),
				Category:    "emigration",
			})
		}
		s.grid.SetAmount(c.X, c.Y, amount)
	})
}

// isVacant reports whether a walker may build on (x, y): flat, buildable,
// unsettled dry land above sea level.
func (s *Simulation) isVacant(x, y int) bool {
	c, ok := s.grid.At(x, y)
	if !ok {
		return false
	}
	return c.Type.IsLand() && c.Buildable && c.Height > 0 &&
		s.grid.IsFlat(x, y, s.cfg.FlatTolerance)
}

// findVacancy returns the nearest vacant cell within VacancyRadius of from.
// Ties go to the first cell in row-major order.
func (s *Simulation) findVacancy(from world.Point) (world.Point, bool) {
	r := s.cfg.VacancyRadius
	best := math.Inf(1)
	var found world.Point
	ok := false
	for y := from.Y - r; y <= from.Y+r; y++ {
		for x := from.X - r; x <= from.X+r; x++ {
			if !s.isVacant(x, y) {
				continue
			}
			if d := math.Hypot(float64(x-from.X), float64(y-from.Y)); d < best {
				best = d
				found = world.Point{X: x, Y: y}
				ok = true
			}
		}
	}
	return found, ok
}

// countFarms counts flat, buildable, unsettled land within FarmRadius of p.
func (s *Simulation) countFarms(p world.Point) int {
	r := s.cfg.FarmRadius
	farms := 0
	for y := p.Y - r; y <= p.Y+r; y++ {
		for x := p.X - r; x <= p.X+r; x++ {
			if x == p.X && y == p.Y {
				continue
			}
			c, ok := s.grid.At(x, y)
			if !ok || !c.Type.IsLand() || !c.Buildable {
				continue
			}
			if s.grid.IsFlat(x, y, s.cfg.FlatTolerance) {
				farms++
			}
		}
	}
	return farms
}

// build converts p into a building holding amount and counts its farms.
func (s *Simulation) build(p world.Point, amount float64) int {
	// The cell must already be a building when farms are counted so it
	// does not count itself.
	s.grid.Build(p.X, p.Y, amount, 0)
	farms := s.countFarms(p)
	s.grid.Build(p.X, p.Y, amount, farms)
	s.Stats.BuildingsFounded++
	return farms
}

// FoundSettlement turns a spawner seed into a building at its site, or at
// the nearest vacancy when the site itself cannot be built on. The seed is
// recorded with its final position.
func (s *Simulation) FoundSettlement(seed social.SettlementSeed) (world.Point, error) {
	site := seed.Position
	c, ok := s.grid.At(site.X, site.Y)
	if !ok || !c.Type.IsLand() || !c.Buildable {
		v, found := s.findVacancy(site)
		if !found {
			return world.Point{}, fmt.Errorf("found %s at (%d,%d): %w", seed.Name, site.X, site.Y, ErrNoVacancy)
		}
		site = v
	}

	farms := s.build(site, float64(seed.Population))
	seed.Position = site
	s.Civilizations = append(s.Civilizations, seed)
	s.EmitEvent(Event{
		Tick:        s.LastTick,
		Description: fmt.Sprintf("%s (%s) founded with %d people and %d farms", seed.Name, seed.Alignment, seed.Population, farms),
		Category:    "settlement",
	})
	slog.Info("settlement founded",
		"name", seed.Name,
		"alignment", seed.Alignment.String(),
		"x", site.X, "y", site.Y,
		"farms", farms,
	)
	s.updateStats()
	return site, nil
}
