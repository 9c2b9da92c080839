package world

import (
	"errors"
	"math"
	"testing"
)

func TestGenerateRejectsInvalidSize(t *testing.T) {
	for _, size := range [][2]int{{0, 10}, {10, 0}, {-1, 5}} {
		_, err := Generate(size[0], size[1], SmallTestConfig())
		if !errors.Is(err, ErrInvalidSize) {
			t.Errorf("Generate(%d, %d) err = %v, want ErrInvalidSize", size[0], size[1], err)
		}
	}
}

func TestGenerateRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*GenConfig)
	}{
		{"water above mountain", func(c *GenConfig) { c.WaterLevel = 30 }},
		{"no octaves", func(c *GenConfig) { c.Octaves = 0 }},
		{"zero frequency", func(c *GenConfig) { c.Frequency = 0 }},
		{"zero persistence", func(c *GenConfig) { c.Persistence = 0 }},
		{"negative island radius", func(c *GenConfig) { c.Island.Radius = -1 }},
		{"river chance above one", func(c *GenConfig) { c.Rivers.SourceChance = 2 }},
		{"negative river steps", func(c *GenConfig) { c.Rivers.MaxSteps = -1 }},
	}
	for _, tc := range tests {
		cfg := SmallTestConfig()
		tc.mut(&cfg)
		if _, err := Generate(16, 16, cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: err = %v, want ErrInvalidConfig", tc.name, err)
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a, err := Generate(48, 40, SmallTestConfig())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := Generate(48, 40, SmallTestConfig())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	sa, sb := a.Snapshot(), b.Snapshot()
	for i := range sa.Cells {
		if sa.Cells[i] != sb.Cells[i] {
			t.Fatalf("cell %d differs: %+v vs %+v", i, sa.Cells[i], sb.Cells[i])
		}
	}
}

func TestGenerateSeedSensitivity(t *testing.T) {
	cfgA := SmallTestConfig()
	cfgB := SmallTestConfig()
	cfgB.Seed = 7

	a, err := Generate(64, 64, cfgA)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := Generate(64, 64, cfgB)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	for _, p := range []Point{{3, 7}, {10, 20}, {25, 5}, {40, 33}, {17, 44}} {
		ca, _ := a.At(p.X, p.Y)
		cb, _ := b.At(p.X, p.Y)
		if ca.Height == cb.Height {
			t.Errorf("height at %v identical across seeds: %v", p, ca.Height)
		}
	}
}

func TestGeneratedFlagsMatchType(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		cfg := DefaultGenConfig()
		cfg.Seed = seed
		g, err := Generate(64, 64, cfg)
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		g.EachCell(func(c Cell) {
			walkable := c.Type != TerrainWater && c.Type != TerrainMountain
			buildable := c.Type != TerrainWater && c.Type != TerrainShallowWater &&
				c.Type != TerrainMountain && c.Type != TerrainSnow
			if c.Walkable != walkable || c.Buildable != buildable {
				t.Fatalf("seed %d cell (%d,%d) %s: walkable=%v buildable=%v", seed, c.X, c.Y, c.Type, c.Walkable, c.Buildable)
			}
			if c.Moisture < 0 || c.Moisture > 1 || c.Temperature < 0 || c.Temperature > 1 {
				t.Fatalf("seed %d cell (%d,%d) climate out of range: %+v", seed, c.X, c.Y, c)
			}
			if c.Fertility < 0 || c.Fertility > 100 {
				t.Fatalf("seed %d cell (%d,%d) fertility %v", seed, c.X, c.Y, c.Fertility)
			}
		})
	}
}

func TestGeneratedRiversAreWater(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		cfg := DefaultGenConfig()
		cfg.Seed = seed
		g, err := Generate(64, 64, cfg)
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		for _, p := range g.Rivers() {
			assertRiverCell(t, g, p)
		}
	}
}

func TestCarveRiversDescendsSlope(t *testing.T) {
	cfg := SmallTestConfig()
	cfg.Rivers.SourceChance = 1
	g, err := Blank(10, 10, cfg, 5)
	if err != nil {
		t.Fatalf("blank: %v", err)
	}
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			g.Modify(x, y, Patch{Height: Float(30 - 3*float64(x))})
		}
	}

	if n := carveRivers(g); n == 0 {
		t.Fatal("expected rivers from the high western columns")
	}
	rivers := g.Rivers()
	if len(rivers) == 0 {
		t.Fatal("no river cells marked")
	}
	reachedLowland := false
	for _, p := range rivers {
		assertRiverCell(t, g, p)
		if p.X == 9 {
			reachedLowland = true
		}
	}
	if !reachedLowland {
		t.Error("no river reached the eastern edge")
	}
}

func assertRiverCell(t *testing.T, g *Grid, p Point) {
	t.Helper()
	c, ok := g.At(p.X, p.Y)
	if !ok {
		t.Fatalf("river point %v off grid", p)
	}
	if c.Type != TerrainWater || c.Walkable || c.Buildable || c.Moisture != 1 {
		t.Fatalf("river cell %v = %+v", p, c)
	}
}

func TestClassify(t *testing.T) {
	cfg := DefaultGenConfig() // water -5, mountain 20
	tests := []struct {
		name           string
		h, moist, temp float64
		want           Terrain
	}{
		{"deep", -6, 0.5, 0.5, TerrainWater},
		{"shallows", -4, 0.5, 0.5, TerrainShallowWater},
		{"peak", 25, 0.5, 0.5, TerrainMountain},
		{"frozen peak", 25, 0.5, 0.1, TerrainSnow},
		{"highland", 15, 0.5, 0.5, TerrainRock},
		{"hot and dry", 5, 0.1, 0.9, TerrainDesert},
		{"beach", -1, 0.5, 0.5, TerrainSand},
		{"dry", 5, 0.2, 0.5, TerrainSand},
		{"cold", 5, 0.5, 0.05, TerrainSnow},
		{"wet temperate", 5, 0.7, 0.5, TerrainForest},
		{"plain", 5, 0.5, 0.5, TerrainGrass},
		{"wet but hot", 5, 0.7, 0.75, TerrainGrass},
	}
	for _, tc := range tests {
		if got := Classify(tc.h, tc.moist, tc.temp, cfg); got != tc.want {
			t.Errorf("%s: Classify(%v, %v, %v) = %s, want %s", tc.name, tc.h, tc.moist, tc.temp, got, tc.want)
		}
	}
}

func TestFertilityRange(t *testing.T) {
	if f := Fertility(5, 1, 0.6); f != 100 {
		t.Errorf("ideal fertility = %v, want 100", f)
	}
	if f := Fertility(500, 0, 0); f != 0 {
		t.Errorf("hostile fertility = %v, want 0", f)
	}
}

func TestSmoothTerrain(t *testing.T) {
	g := blankGrid(t, 4, 4)
	g.Modify(0, 0, Patch{Height: Float(22)})
	if c, _ := g.At(0, 0); c.Type != TerrainMountain {
		t.Fatalf("spike = %s, want mountain", c.Type)
	}

	smoothTerrain(g)

	tests := []struct {
		name string
		x, y int
		want float64
	}{
		// 70% of the old height plus 30% of the in-bounds 3x3 mean.
		{"corner", 0, 0, 0.7*22 + 0.3*(22+3*5)/4},
		{"top edge", 1, 0, 0.7*5 + 0.3*(22+5*5)/6},
		{"left edge", 0, 1, 0.7*5 + 0.3*(22+5*5)/6},
		{"interior", 1, 1, 0.7*5 + 0.3*(22+8*5)/9},
		{"untouched interior", 2, 2, 5},
		{"far corner", 3, 3, 5},
	}
	for _, tc := range tests {
		c, _ := g.At(tc.x, tc.y)
		if math.Abs(c.Height-tc.want) > 1e-9 {
			t.Errorf("%s: height = %v, want %v", tc.name, c.Height, tc.want)
		}
	}

	g.EachCell(func(c Cell) {
		if want := Classify(c.Height, c.Moisture, c.Temperature, g.Config()); c.Type != want {
			t.Errorf("cell (%d,%d) type = %s at height %v, want %s", c.X, c.Y, c.Type, c.Height, want)
		}
	})
	if c, _ := g.At(0, 0); c.Type != TerrainRock || !c.Walkable {
		t.Errorf("smoothed spike = %+v, want walkable rock", c)
	}
}

func TestWetBanks(t *testing.T) {
	g := blankGrid(t, 7, 7)
	g.cell(3, 3).Moisture = 0.9
	g.wetBanks(Point{X: 3, Y: 3}, 2, 0.3)

	tests := []struct {
		name string
		x, y int
		want float64
	}{
		{"source capped", 3, 3, 1},
		{"distance 1", 4, 3, 0.5 + 0.2},
		{"distance 1 north", 3, 2, 0.5 + 0.2},
		{"diagonal", 4, 4, 0.5 + (1-math.Sqrt2/3)*0.3},
		{"distance 2", 3, 5, 0.5 + 0.1},
		{"far diagonal", 5, 5, 0.5 + (1-2*math.Sqrt2/3)*0.3},
		{"outside radius", 6, 3, 0.5},
	}
	for _, tc := range tests {
		c, _ := g.At(tc.x, tc.y)
		if math.Abs(c.Moisture-tc.want) > 1e-9 {
			t.Errorf("%s: moisture = %v, want %v", tc.name, c.Moisture, tc.want)
		}
	}

	// Bank cells off the grid are skipped.
	edge := blankGrid(t, 3, 3)
	edge.wetBanks(Point{X: 0, Y: 0}, 2, 0.3)
	if c, _ := edge.At(0, 0); math.Abs(c.Moisture-0.8) > 1e-9 {
		t.Errorf("corner moisture = %v, want 0.8", c.Moisture)
	}
}
