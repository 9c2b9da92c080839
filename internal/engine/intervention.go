// Divine powers: brush-shaped terrain edits paid for in faith.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/talgya/divine-lands/internal/world"
)

var (
	// ErrInsufficientFaith is returned when a power costs more than the
	// faith available.
	ErrInsufficientFaith = errors.New("insufficient faith")
	// ErrUnknownPower is returned when a power name matches nothing.
	ErrUnknownPower = errors.New("unknown power")
)

// Power is a divine intervention on the terrain.
type Power uint8

const (
	PowerRaiseLand Power = iota
	PowerLowerLand
	PowerCreateWater
	PowerCreateForest
	PowerCreateMountain
	PowerFlatten
	PowerRain
	PowerDrought
)

var powerKeys = [...]string{
	PowerRaiseLand:      "raise_land",
	PowerLowerLand:      "lower_land",
	PowerCreateWater:    "create_water",
	PowerCreateForest:   "create_forest",
	PowerCreateMountain: "create_mountain",
	PowerFlatten:        "flatten",
	PowerRain:           "rain",
	PowerDrought:        "drought",
}

var powerCosts = [...]float64{
	PowerRaiseLand:      10,
	PowerLowerLand:      10,
	PowerCreateWater:    15,
	PowerCreateForest:   20,
	PowerCreateMountain: 25,
	PowerFlatten:        15,
	PowerRain:           20,
	PowerDrought:        25,
}

// Effect sizes at the brush centre.
const (
	landStep       = 10.0
	mountainMargin = 5.0
	moistureStep   = 0.2
	forestMoisture = 0.7

	// maxPowerTypo is the edit distance a power name may be off by.
	maxPowerTypo = 2
)

func (p Power) String() string {
	if int(p) < len(powerKeys) {
		return powerKeys[p]
	}
	return fmt.Sprintf("power(%d)", uint8(p))
}

// MarshalText encodes the power as its key.
func (p Power) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes an exact power key.
func (p *Power) UnmarshalText(b []byte) error {
	for i, k := range powerKeys {
		if k == string(b) {
			*p = Power(i)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownPower, b)
}

// Cost returns the faith a cast consumes.
func (p Power) Cost() float64 {
	if int(p) < len(powerCosts) {
		return powerCosts[p]
	}
	return 0
}

// Powers lists every power in declaration order.
func Powers() []Power {
	out := make([]Power, len(powerKeys))
	for i := range powerKeys {
		out[i] = Power(i)
	}
	return out
}

// ParsePower resolves a power name. Case, spaces and hyphens are ignored,
// and a name within a small edit distance of exactly one power matches it.
func ParsePower(name string) (Power, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)

	best, bestDist, ties := Power(0), math.MaxInt, 0
	for i, k := range powerKeys {
		if k == key {
			return Power(i), nil
		}
		d := levenshtein.ComputeDistance(key, k)
		switch {
		case d < bestDist:
			best, bestDist, ties = Power(i), d, 1
		case d == bestDist:
			ties++
		}
	}
	if bestDist > maxPowerTypo || ties > 1 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPower, name)
	}
	return best, nil
}

// CastResult describes the outcome of a power.
type CastResult struct {
	Power    Power   `json:"power"`
	Affected int     `json:"affected"`
	Faith    float64 `json:"faith"` // remaining after the cast
}

// ApplyPower casts p centred on (x, y) with the given brush radius. Brush
// cells off the grid are skipped. Faith is charged even when every brush
// cell falls off the map.
func (s *Simulation) ApplyPower(p Power, x, y, radius int) (CastResult, error) {
	if int(p) >= len(powerKeys) {
		return CastResult{}, fmt.Errorf("%w: %d", ErrUnknownPower, p)
	}
	radius = max(radius, 0)
	cost := p.Cost()
	if s.Faith < cost {
		return CastResult{}, fmt.Errorf("%s needs %.0f faith, have %.0f: %w", p, cost, s.Faith, ErrInsufficientFaith)
	}
	s.Faith -= cost

	center, _ := s.grid.At(x, y)
	gc := s.grid.Config()
	affected := 0

	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			d := math.Hypot(float64(dx), float64(dy))
			if d > float64(radius) {
				continue
			}
			cx, cy := x+dx, y+dy
			c, ok := s.grid.At(cx, cy)
			if !ok {
				continue
			}
			falloff := 1 - d/float64(radius+1)

			var patch world.Patch
			switch p {
			case PowerRaiseLand:
				patch.Height = world.Float(c.Height + landStep*falloff)
			case PowerLowerLand:
				patch.Height = world.Float(c.Height - landStep*falloff)
			case PowerCreateWater:
				if c.Height >= gc.WaterLevel {
					patch.Height = world.Float(gc.WaterLevel - 1)
				}
			case PowerCreateForest:
				if !c.Type.IsLand() || !c.Buildable || s.rng.Float64() >= gc.ForestDensity {
					continue
				}
				patch.Type = world.TerrainPtr(world.TerrainForest)
				patch.Moisture = world.Float(math.Max(c.Moisture, forestMoisture))
			case PowerCreateMountain:
				peak := gc.MountainLevel + mountainMargin*falloff
				if c.Height < peak {
					patch.Height = world.Float(peak)
				}
			case PowerFlatten:
				patch.Height = world.Float(center.Height)
			case PowerRain:
				patch.Moisture = world.Float(c.Moisture + moistureStep*falloff)
			case PowerDrought:
				patch.Moisture = world.Float(c.Moisture - moistureStep*falloff)
			}

			if patch == (world.Patch{}) {
				continue
			}
			if s.grid.Modify(cx, cy, patch) {
				affected++
			}
		}
	}

	s.Stats.PowersCast++
	s.EmitEvent(Event{
		Tick:        s.LastTick,
		Description: fmt.Sprintf("%s cast at (%d,%d) reshapes %d cells", p, x, y, affected),
		Category:    "power",
	})
	slog.Info("power cast", "power", p.String(), "x", x, "y", y, "radius", radius, "affected", affected, "faith", s.Faith)
	s.updateStats()

	return CastResult{Power: p, Affected: affected, Faith: s.Faith}, nil
}
