package world

import (
	"fmt"
	"math"
)

// Grid holds the complete terrain state in a row-major buffer. It is owned
// by a single session; concurrent readers take a Snapshot.
type Grid struct {
	width  int
	height int
	cfg    GenConfig
	cells  []Cell
}

func newGrid(width, height int, cfg GenConfig) *Grid {
	g := &Grid{
		width:  width,
		height: height,
		cfg:    cfg,
		cells:  make([]Cell, width*height),
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := &g.cells[y*width+x]
			c.X, c.Y = x, y
		}
	}
	return g
}

// Blank creates a grid of uniform height with temperate climate, classified
// with cfg. Useful for sandbox worlds and tests.
func Blank(width, height int, cfg GenConfig, h float64) (*Grid, error) {
	if err := cfg.Validate(width, height); err != nil {
		return nil, err
	}
	g := newGrid(width, height, cfg)
	for i := range g.cells {
		c := &g.cells[i]
		c.Height = h
		c.Moisture = 0.5
		c.Temperature = 0.5
		c.Type = Classify(c.Height, c.Moisture, c.Temperature, cfg)
		c.Fertility = Fertility(c.Height, c.Moisture, c.Temperature)
		c.derive()
	}
	return g, nil
}

// Restore rebuilds a grid from stored cells (row-major). Coordinates and
// derived flags are recomputed rather than trusted.
func Restore(width, height int, cfg GenConfig, cells []Cell) (*Grid, error) {
	if err := cfg.Validate(width, height); err != nil {
		return nil, err
	}
	if len(cells) != width*height {
		return nil, fmt.Errorf("restore grid: %d cells for %dx%d", len(cells), width, height)
	}
	g := newGrid(width, height, cfg)
	for i, src := range cells {
		c := &g.cells[i]
		x, y := c.X, c.Y
		*c = src
		c.X, c.Y = x, y
		c.derive()
	}
	return g, nil
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// Config returns the generation parameters the grid classifies with.
func (g *Grid) Config() GenConfig { return g.cfg }

// InBounds reports whether (x, y) is on the grid.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.width && y < g.height
}

func (g *Grid) cell(x, y int) *Cell {
	return &g.cells[y*g.width+x]
}

// At returns a copy of the cell at (x, y), or false if out of bounds.
func (g *Grid) At(x, y int) (Cell, bool) {
	if !g.InBounds(x, y) {
		return Cell{}, false
	}
	return *g.cell(x, y), true
}

// IsFlat reports whether none of the 8 neighbours of (x, y) differ in height
// by more than tolerance. Cells without a full neighbour ring are never flat.
func (g *Grid) IsFlat(x, y int, tolerance float64) bool {
	if x < 1 || y < 1 || x >= g.width-1 || y >= g.height-1 {
		return false
	}
	center := g.cell(x, y).Height
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if math.Abs(g.cell(x+dx, y+dy).Height-center) > tolerance {
				return false
			}
		}
	}
	return true
}

// Slope returns the largest absolute height difference between (x, y) and
// its in-bounds 8-neighbours.
func (g *Grid) Slope(x, y int) float64 {
	if !g.InBounds(x, y) {
		return 0
	}
	center := g.cell(x, y).Height
	maxDiff := 0.0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			nx, ny := x+dx, y+dy
			if (dx == 0 && dy == 0) || !g.InBounds(nx, ny) {
				continue
			}
			if d := math.Abs(g.cell(nx, ny).Height - center); d > maxDiff {
				maxDiff = d
			}
		}
	}
	return maxDiff
}

// EachCell calls fn for every cell in row-major order.
func (g *Grid) EachCell(fn func(c Cell)) {
	for i := range g.cells {
		fn(g.cells[i])
	}
}

// EachBuilding calls fn for every building cell in row-major order.
func (g *Grid) EachBuilding(fn func(c Cell)) {
	for i := range g.cells {
		if g.cells[i].Type == TerrainBuilding {
			fn(g.cells[i])
		}
	}
}

// Rivers returns the coordinates of carved river cells.
func (g *Grid) Rivers() []Point {
	var pts []Point
	for i := range g.cells {
		if g.cells[i].River {
			pts = append(pts, Point{X: g.cells[i].X, Y: g.cells[i].Y})
		}
	}
	return pts
}

// Build converts (x, y) into a building holding amount population fed by
// farms. Returns false if the cell is off the grid.
func (g *Grid) Build(x, y int, amount float64, farms int) bool {
	if !g.InBounds(x, y) {
		return false
	}
	c := g.cell(x, y)
	c.Type = TerrainBuilding
	c.derive()
	c.Amount = amount
	c.Farms = farms
	return true
}

// SetAmount updates the population of a building cell. Non-building and
// off-grid cells are left untouched.
func (g *Grid) SetAmount(x, y int, amount float64) bool {
	if !g.InBounds(x, y) {
		return false
	}
	c := g.cell(x, y)
	if c.Type != TerrainBuilding {
		return false
	}
	c.Amount = amount
	return true
}

// String returns a summary of the grid.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(%dx%d, seed=%d)", g.width, g.height, g.cfg.Seed)
}

// Snapshot is a read-only copy of the grid handed to renderers.
type Snapshot struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Cells  []Cell `json:"cells"`
}

// Snapshot copies the current cell state.
func (g *Grid) Snapshot() Snapshot {
	cells := make([]Cell, len(g.cells))
	copy(cells, g.cells)
	return Snapshot{Width: g.width, Height: g.height, Cells: cells}
}

// At returns the snapshot cell at (x, y), or false if out of bounds.
func (s Snapshot) At(x, y int) (Cell, bool) {
	if x < 0 || y < 0 || x >= s.Width || y >= s.Height {
		return Cell{}, false
	}
	return s.Cells[y*s.Width+x], true
}

// TerrainCounts returns a summary of terrain type distribution.
func TerrainCounts(g *Grid) map[Terrain]int {
	counts := make(map[Terrain]int)
	for i := range g.cells {
		counts[g.cells[i].Type]++
	}
	return counts
}
