package world

import (
	"math"

	"github.com/talgya/divine-lands/internal/noise"
)

// Fertility optimums.
const (
	idealFertileHeight = 5.0
	idealFertileTemp   = 0.6
	fertileHeightSpan  = 50.0
)

// Classify determines terrain type from height, moisture and temperature.
// Rules are evaluated in priority order; the first match wins.
func Classify(h, moisture, temp float64, cfg GenConfig) Terrain {
	switch {
	case h < cfg.WaterLevel:
		return TerrainWater
	case h < cfg.WaterLevel+2:
		return TerrainShallowWater
	case h > cfg.MountainLevel:
		if temp < 0.2 {
			return TerrainSnow
		}
		return TerrainMountain
	case h > cfg.MountainLevel*0.7:
		return TerrainRock
	case temp > 0.8 && moisture < 0.2:
		return TerrainDesert
	case h < cfg.WaterLevel+5 || moisture < 0.3:
		return TerrainSand
	case temp < 0.1:
		return TerrainSnow
	case moisture > 0.6 && temp > 0.3 && temp < 0.7:
		return TerrainForest
	}
	return TerrainGrass
}

// Fertility scores how well a cell supports farming, 0 to 100.
func Fertility(h, moisture, temp float64) float64 {
	heightFactor := 1 - math.Abs(h-idealFertileHeight)/fertileHeightSpan
	tempFactor := 1 - math.Abs(temp-idealFertileTemp)
	f := (heightFactor + moisture + tempFactor) / 3
	return noise.Clamp(f*100, 0, 100)
}
