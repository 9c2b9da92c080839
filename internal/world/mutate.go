package world

import "github.com/talgya/divine-lands/internal/noise"

// Patch is a partial cell update. Nil fields are left unchanged.
type Patch struct {
	Height      *float64
	Type        *Terrain
	Moisture    *float64
	Temperature *float64
}

// Modify applies p to the cell at (x, y) and re-derives everything that
// depends on the changed fields. Off-grid coordinates are a silent no-op
// and report false.
//
// When only the height changes and the new height falls in a different
// class than the old one, the type follows the height. Buildings survive
// reshaping unless the new height floods them.
func (g *Grid) Modify(x, y int, p Patch) bool {
	if !g.InBounds(x, y) {
		return false
	}
	c := g.cell(x, y)
	oldHeight := c.Height

	if p.Moisture != nil {
		c.Moisture = noise.Clamp01(*p.Moisture)
	}
	if p.Temperature != nil {
		c.Temperature = noise.Clamp01(*p.Temperature)
	}
	if p.Height != nil {
		c.Height = *p.Height
	}

	switch {
	case p.Type != nil:
		c.Type = *p.Type
	case p.Height != nil:
		before := Classify(oldHeight, c.Moisture, c.Temperature, g.cfg)
		after := Classify(c.Height, c.Moisture, c.Temperature, g.cfg)
		if before != after {
			if c.Type != TerrainBuilding || after.IsWater() {
				c.Type = after
			}
		}
	}

	c.Fertility = Fertility(c.Height, c.Moisture, c.Temperature)
	c.derive()
	return true
}

// Float returns a pointer to v, for building patches.
func Float(v float64) *float64 { return &v }

// TerrainPtr returns a pointer to t, for building patches.
func TerrainPtr(t Terrain) *Terrain { return &t }
