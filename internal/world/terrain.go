package world

import "fmt"

// Terrain is the categorical type of a grid cell.
type Terrain uint8

const (
	TerrainWater        Terrain = iota // Deep water, impassable
	TerrainShallowWater                // Wadeable but not buildable
	TerrainSand                        // Beaches and dry lowland
	TerrainGrass
	TerrainForest
	TerrainMountain // Impassable peaks
	TerrainRock
	TerrainSnow
	TerrainDesert
	TerrainTundra
	TerrainSwamp
	TerrainVolcanic
	TerrainBuilding // Settled cell hosting population
)

var terrainKeys = [...]string{
	TerrainWater:        "water",
	TerrainShallowWater: "shallow_water",
	TerrainSand:         "sand",
	TerrainGrass:        "grass",
	TerrainForest:       "forest",
	TerrainMountain:     "mountain",
	TerrainRock:         "rock",
	TerrainSnow:         "snow",
	TerrainDesert:       "desert",
	TerrainTundra:       "tundra",
	TerrainSwamp:        "swamp",
	TerrainVolcanic:     "volcanic",
	TerrainBuilding:     "building",
}

// String returns the wire key of the terrain type.
func (t Terrain) String() string {
	if int(t) < len(terrainKeys) {
		return terrainKeys[t]
	}
	return fmt.Sprintf("terrain(%d)", uint8(t))
}

// MarshalText encodes the terrain as its wire key.
func (t Terrain) MarshalText() ([]byte, error) {
	if int(t) >= len(terrainKeys) {
		return nil, fmt.Errorf("unknown terrain %d", uint8(t))
	}
	return []byte(terrainKeys[t]), nil
}

// UnmarshalText decodes a wire key.
func (t *Terrain) UnmarshalText(b []byte) error {
	v, ok := ParseTerrain(string(b))
	if !ok {
		return fmt.Errorf("unknown terrain %q", b)
	}
	*t = v
	return nil
}

// ParseTerrain resolves a wire key. "beach" is accepted as sand.
func ParseTerrain(s string) (Terrain, bool) {
	if s == "beach" {
		return TerrainSand, true
	}
	for i, k := range terrainKeys {
		if k == s {
			return Terrain(i), true
		}
	}
	return 0, false
}

// IsWater reports whether the terrain is deep or shallow water.
func (t Terrain) IsWater() bool {
	return t == TerrainWater || t == TerrainShallowWater
}

// IsLand reports whether the terrain is dry, unsettled ground.
func (t Terrain) IsLand() bool {
	return !t.IsWater() && t != TerrainBuilding
}

// Walkable reports whether walkers may stand on the terrain.
func (t Terrain) Walkable() bool {
	return t != TerrainWater && t != TerrainMountain
}

// Buildable reports whether the terrain can host a structure.
func (t Terrain) Buildable() bool {
	switch t {
	case TerrainWater, TerrainShallowWater, TerrainMountain, TerrainSnow:
		return false
	}
	return true
}

// TerrainName returns a human-readable name for a terrain type.
func TerrainName(t Terrain) string {
	switch t {
	case TerrainWater:
		return "Water"
	case TerrainShallowWater:
		return "Shallows"
	case TerrainSand:
		return "Sand"
	case TerrainGrass:
		return "Grass"
	case TerrainForest:
		return "Forest"
	case TerrainMountain:
		return "Mountain"
	case TerrainRock:
		return "Rock"
	case TerrainSnow:
		return "Snow"
	case TerrainDesert:
		return "Desert"
	case TerrainTundra:
		return "Tundra"
	case TerrainSwamp:
		return "Swamp"
	case TerrainVolcanic:
		return "Volcanic"
	case TerrainBuilding:
		return "Building"
	default:
		return "Unknown"
	}
}
