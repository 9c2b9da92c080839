// Terrain generation using layered simplex noise.
// Builds height, moisture and temperature fields, classifies biomes, then
// smooths the height field and carves rivers.
package world

import (
	"log/slog"
	"math"

	"github.com/talgya/divine-lands/internal/noise"
)

// Coordinate offsets that decorrelate the climate fields from height.
const (
	moistureOffset  = 1000.0
	moistureFreqMul = 1.5
	tempOffset      = 2000.0
	tempFreqMul     = 2.0
	tempNoiseScale  = 0.1

	smoothKeep      = 0.7
	reclassifyDelta = 1.0
)

// Generate creates a width×height terrain grid. Identical arguments always
// produce identical grids.
func Generate(width, height int, cfg GenConfig) (*Grid, error) {
	if err := cfg.Validate(width, height); err != nil {
		return nil, err
	}

	field := noise.New(cfg.Seed)
	g := newGrid(width, height, cfg)
	cx, cy, radius := cfg.Island.resolve(width, height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			fx, fy := float64(x), float64(y)

			h := field.Fractal(fx, fy, noise.Octaves{
				Count:       cfg.Octaves,
				Frequency:   cfg.Frequency,
				Amplitude:   cfg.Amplitude,
				Persistence: cfg.Persistence,
			})
			if cfg.Island.Enabled {
				island := 1 - noise.Clamp01(noise.Dist(fx, fy, cx, cy)/radius)
				h *= 0.7 + island*0.3
			}

			moisture := noise.Unit(field.Eval2(
				fx*cfg.Frequency*moistureFreqMul+moistureOffset,
				fy*cfg.Frequency*moistureFreqMul+moistureOffset,
			))
			temp := temperatureAt(field, fx, fy, height, cfg)

			c := g.cell(x, y)
			c.Height = h
			c.Moisture = moisture
			c.Temperature = temp
			c.Type = Classify(h, moisture, temp, cfg)
			c.Fertility = Fertility(h, moisture, temp)
			c.derive()
		}
	}

	smoothTerrain(g)
	rivers := carveRivers(g)

	slog.Debug("terrain generated",
		"width", width,
		"height", height,
		"seed", cfg.Seed,
		"rivers", rivers,
	)
	return g, nil
}

// temperatureAt peaks at the middle row and falls linearly toward the top
// and bottom edges, with a small noise perturbation.
func temperatureAt(field *noise.Field, x, y float64, rows int, cfg GenConfig) float64 {
	half := float64(rows) / 2
	latitude := math.Abs(y-half) / half
	base := 1 - latitude
	perturb := field.Eval2(
		x*cfg.Frequency*tempFreqMul+tempOffset,
		y*cfg.Frequency*tempFreqMul+tempOffset,
	) * tempNoiseScale
	return noise.Clamp01(base + perturb)
}

// smoothTerrain blends every height 70/30 with its in-bounds 3×3 average,
// computed from the pre-smoothing field.
func smoothTerrain(g *Grid) {
	avg := make([]float64, len(g.cells))
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			total, count := 0.0, 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if g.InBounds(nx, ny) {
						total += g.cell(nx, ny).Height
						count++
					}
				}
			}
			avg[y*g.width+x] = total / float64(count)
		}
	}

	for i := range g.cells {
		c := &g.cells[i]
		old := c.Height
		c.Height = old*smoothKeep + avg[i]*(1-smoothKeep)

		// Large moves always reclassify; small ones do when they cross a
		// class boundary so the type never lags the height.
		next := Classify(c.Height, c.Moisture, c.Temperature, g.cfg)
		if math.Abs(c.Height-old) > reclassifyDelta || next != c.Type {
			c.Type = next
		}
		c.Fertility = Fertility(c.Height, c.Moisture, c.Temperature)
		c.derive()
	}
}
