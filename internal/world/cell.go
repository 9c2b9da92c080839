// Package world provides the terrain grid, its generator, and the
// mutation entry points that keep derived cell state consistent.
package world

// Point is an integer grid coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Cell is a single grid element. Values handed out by Grid are copies;
// changes go through Grid.Modify or the settlement accessors.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`

	Height float64 `json:"height"`
	Type   Terrain `json:"type"`

	Moisture    float64 `json:"moisture"`    // 0.0 (arid) to 1.0 (saturated)
	Temperature float64 `json:"temperature"` // 0.0 (frozen) to 1.0 (hot)
	Fertility   float64 `json:"fertility"`   // 0 to 100

	// Derived from Type; see derive.
	HasWater  bool `json:"has_water"`
	Walkable  bool `json:"walkable"`
	Buildable bool `json:"buildable"`

	// River marks cells carved by the river pass.
	River bool `json:"river,omitempty"`

	// Settlement state, only meaningful on building cells.
	Farms  int     `json:"farms,omitempty"`
	Amount float64 `json:"amount,omitempty"`
}

// derive recomputes the flags that are a pure function of Type. Every path
// that touches Height or Type calls it before returning.
func (c *Cell) derive() {
	c.HasWater = c.Type.IsWater()
	c.Walkable = c.Type.Walkable()
	c.Buildable = c.Type.Buildable()
	if !c.Type.IsWater() {
		c.River = false
	}
	if c.Type != TerrainBuilding {
		c.Farms = 0
		c.Amount = 0
	}
}

// IsBuilding reports whether the cell hosts a structure.
func (c Cell) IsBuilding() bool {
	return c.Type == TerrainBuilding
}
