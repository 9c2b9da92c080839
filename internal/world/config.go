package world

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSize is returned when a grid dimension is not positive.
	ErrInvalidSize = errors.New("invalid grid size")
	// ErrInvalidConfig is returned for contradictory or out-of-range parameters.
	ErrInvalidConfig = errors.New("invalid terrain config")
)

// GenConfig holds terrain generation parameters.
type GenConfig struct {
	Seed          int64   `toml:"seed" json:"seed"`
	Octaves       int     `toml:"octaves" json:"octaves"`
	Frequency     float64 `toml:"frequency" json:"frequency"`
	Amplitude     float64 `toml:"amplitude" json:"amplitude"`
	Persistence   float64 `toml:"persistence" json:"persistence"`
	WaterLevel    float64 `toml:"water_level" json:"water_level"`
	MountainLevel float64 `toml:"mountain_level" json:"mountain_level"`

	// ForestDensity is the share of cells a forest-growing power converts.
	ForestDensity float64 `toml:"forest_density" json:"forest_density"`

	Island IslandConfig `toml:"island" json:"island"`
	Rivers RiverConfig  `toml:"rivers" json:"rivers"`
}

// IslandConfig controls the radial falloff that lowers land near the edges.
// A zero Radius centers the falloff on the grid with radius min(w, h)/2.
type IslandConfig struct {
	Enabled bool    `toml:"enabled" json:"enabled"`
	CenterX float64 `toml:"center_x" json:"center_x"`
	CenterY float64 `toml:"center_y" json:"center_y"`
	Radius  float64 `toml:"radius" json:"radius"`
}

// RiverConfig holds the river carving constants.
type RiverConfig struct {
	SourceLevel    float64 `toml:"source_level" json:"source_level"`       // fraction of MountainLevel a source must exceed
	SourceChance   float64 `toml:"source_chance" json:"source_chance"`     // per-candidate selection probability
	MaxSteps       int     `toml:"max_steps" json:"max_steps"`             // descent budget per river
	MoistureRadius int     `toml:"moisture_radius" json:"moisture_radius"` // reach of the bank moisture boost
	MoistureBoost  float64 `toml:"moisture_boost" json:"moisture_boost"`   // boost at distance 0
}

// DefaultGenConfig returns the standard world parameters.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Seed:          0,
		Octaves:       6,
		Frequency:     0.02,
		Amplitude:     40,
		Persistence:   0.5,
		WaterLevel:    -5,
		MountainLevel: 20,
		ForestDensity: 0.3,
		Island: IslandConfig{
			Enabled: true,
		},
		Rivers: RiverConfig{
			SourceLevel:    0.8,
			SourceChance:   0.1,
			MaxSteps:       100,
			MoistureRadius: 2,
			MoistureBoost:  0.3,
		},
	}
}

// SmallTestConfig returns a fixed-seed configuration for tests and demos.
func SmallTestConfig() GenConfig {
	cfg := DefaultGenConfig()
	cfg.Seed = 42
	return cfg
}

// Validate checks the configuration against a grid size.
func (c GenConfig) Validate(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	switch {
	case c.WaterLevel > c.MountainLevel:
		return fmt.Errorf("%w: water level %.2f above mountain level %.2f", ErrInvalidConfig, c.WaterLevel, c.MountainLevel)
	case c.Octaves < 1:
		return fmt.Errorf("%w: octaves %d", ErrInvalidConfig, c.Octaves)
	case c.Frequency <= 0:
		return fmt.Errorf("%w: frequency %v", ErrInvalidConfig, c.Frequency)
	case c.Persistence <= 0:
		return fmt.Errorf("%w: persistence %v", ErrInvalidConfig, c.Persistence)
	case c.ForestDensity < 0 || c.ForestDensity > 1:
		return fmt.Errorf("%w: forest density %v", ErrInvalidConfig, c.ForestDensity)
	case c.Island.Radius < 0:
		return fmt.Errorf("%w: island radius %v", ErrInvalidConfig, c.Island.Radius)
	case c.Rivers.SourceChance < 0 || c.Rivers.SourceChance > 1:
		return fmt.Errorf("%w: river source chance %v", ErrInvalidConfig, c.Rivers.SourceChance)
	case c.Rivers.MaxSteps < 0 || c.Rivers.MoistureRadius < 0:
		return fmt.Errorf("%w: negative river budget", ErrInvalidConfig)
	}
	return nil
}

// resolve returns the island center and radius resolved for a grid size.
func (ic IslandConfig) resolve(width, height int) (cx, cy, radius float64) {
	if ic.Radius == 0 {
		cx = float64(width) / 2
		cy = float64(height) / 2
		radius = float64(min(width, height)) / 2
		return cx, cy, radius
	}
	return ic.CenterX, ic.CenterY, ic.Radius
}
