package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/talgya/divine-lands/internal/agents"
	"github.com/talgya/divine-lands/internal/engine"
	"github.com/talgya/divine-lands/internal/social"
	"github.com/talgya/divine-lands/internal/world"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "world.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testSim(t *testing.T) *engine.Simulation {
	t.Helper()
	g, err := world.Blank(12, 8, world.SmallTestConfig(), 5)
	if err != nil {
		t.Fatalf("blank: %v", err)
	}
	g.Modify(0, 0, world.Patch{Height: world.Float(-20)})
	g.Build(6, 4, 320, 5)

	sim := engine.NewSimulation(g, engine.DefaultSimConfig())
	w := sim.AddWalker(world.Point{X: 2, Y: 3}, 75)
	w.Destination = &world.Point{X: 10, Y: 1}
	w.Direction = agents.DirRight
	sim.AddWalker(world.Point{X: 9, Y: 7}, 12)

	sim.Civilizations = append(sim.Civilizations, social.SettlementSeed{
		ID:         "a1",
		Name:       "Aurelia",
		Alignment:  social.AlignGood,
		Color:      "#ffd700",
		Position:   world.Point{X: 6, Y: 4},
		Terrain:    world.TerrainGrass,
		Quality:    0.8,
		Population: 320,
	}, social.SettlementSeed{
		ID:        "b2",
		Name:      "Grimhold",
		Alignment: social.AlignEvil,
		Color:     "#8b0000",
		Position:  world.Point{X: 3, Y: 6},
		Terrain:   world.TerrainForest,
	})
	return sim
}

func TestHasWorldState(t *testing.T) {
	db := openTestDB(t)
	if db.HasWorldState() {
		t.Fatal("empty database reports saved world")
	}
	if err := db.SaveWorldState(testSim(t)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !db.HasWorldState() {
		t.Fatal("saved world not detected")
	}
}

func TestGridRoundTrip(t *testing.T) {
	db := openTestDB(t)
	g := testSim(t).Grid()
	if err := db.SaveGrid(g); err != nil {
		t.Fatalf("save grid: %v", err)
	}

	got, err := db.LoadGrid()
	if err != nil {
		t.Fatalf("load grid: %v", err)
	}
	if got.Width() != g.Width() || got.Height() != g.Height() {
		t.Fatalf("size = %dx%d, want %dx%d", got.Width(), got.Height(), g.Width(), g.Height())
	}
	if got.Config() != g.Config() {
		t.Fatalf("config = %+v, want %+v", got.Config(), g.Config())
	}
	g.EachCell(func(want world.Cell) {
		c, _ := got.At(want.X, want.Y)
		if c != want {
			t.Errorf("cell (%d,%d) = %+v, want %+v", want.X, want.Y, c, want)
		}
	})
}

func TestWalkersRoundTrip(t *testing.T) {
	db := openTestDB(t)
	want := testSim(t).WalkerValues()
	if err := db.SaveWalkers(want); err != nil {
		t.Fatalf("save walkers: %v", err)
	}
	got, err := db.LoadWalkers()
	if err != nil {
		t.Fatalf("load walkers: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("loaded %d walkers, want %d", len(got), len(want))
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.ID != w.ID || g.Position != w.Position || g.Health != w.Health || g.Direction != w.Direction {
			t.Errorf("walker %d = %+v, want %+v", i, g, w)
		}
		if (g.Destination == nil) != (w.Destination == nil) {
			t.Errorf("walker %d destination = %v, want %v", i, g.Destination, w.Destination)
		} else if g.Destination != nil && *g.Destination != *w.Destination {
			t.Errorf("walker %d destination = %v, want %v", i, *g.Destination, *w.Destination)
		}
	}
}

func TestCivilizationsKeepOrder(t *testing.T) {
	db := openTestDB(t)
	want := testSim(t).Civilizations
	if err := db.SaveCivilizations(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := db.LoadCivilizations()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("loaded %d civilizations, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("civilization %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestWorldStateRoundTrip(t *testing.T) {
	db := openTestDB(t)
	sim := testSim(t)
	sim.LastTick = 7
	sim.Faith = 42.5
	sim.EmitEvent(engine.Event{Tick: 7, Description: "Aurelia founded", Category: "settlement"})

	if err := db.SaveWorldState(sim); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := db.LoadWorldState(sim.Config())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if got.LastTick != sim.LastTick || got.Faith != sim.Faith {
		t.Errorf("tick/faith = %d/%v, want %d/%v", got.LastTick, got.Faith, sim.LastTick, sim.Faith)
	}
	if len(got.Walkers()) != len(sim.Walkers()) {
		t.Errorf("walkers = %d, want %d", len(got.Walkers()), len(sim.Walkers()))
	}
	if len(got.Civilizations) != 2 || got.Civilizations[0].Name != "Aurelia" {
		t.Errorf("civilizations = %+v", got.Civilizations)
	}
	if got.Stats.Buildings != 1 || got.Stats.Walkers != 2 {
		t.Errorf("stats = %+v", got.Stats)
	}
	if len(got.Events) != 1 || got.Events[0].Description != "Aurelia founded" {
		t.Errorf("events = %+v", got.Events)
	}

	next := got.AddWalker(world.Point{X: 1, Y: 1}, 1)
	if next.ID != sim.State().NextWalkerID {
		t.Errorf("next walker id = %d, want %d", next.ID, sim.State().NextWalkerID)
	}
}

func TestEventsAppendedOnce(t *testing.T) {
	db := openTestDB(t)
	sim := testSim(t)

	sim.LastTick = 1
	sim.EmitEvent(engine.Event{Tick: sim.LastTick, Description: "first", Category: "building"})
	if err := db.SaveWorldState(sim); err != nil {
		t.Fatalf("save: %v", err)
	}

	sim.LastTick = 2
	sim.EmitEvent(engine.Event{Tick: sim.LastTick, Description: "second", Category: "building"})
	if err := db.SaveWorldState(sim); err != nil {
		t.Fatalf("second save: %v", err)
	}

	events, err := db.RecentEvents(10)
	if err != nil {
		t.Fatalf("recent events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("stored %d events, want 2: %+v", len(events), events)
	}
	if events[0].Description != "second" || events[1].Description != "first" {
		t.Errorf("events not newest first: %+v", events)
	}
}

func TestFoundingBeforeFirstTickIsSaved(t *testing.T) {
	db := openTestDB(t)
	sim := testSim(t)

	seed := social.SettlementSeed{ID: "c3", Name: "Vellmoor", Position: world.Point{X: 2, Y: 2}, Population: 40}
	if _, err := sim.FoundSettlement(seed); err != nil {
		t.Fatalf("found: %v", err)
	}
	if sim.LastTick != 0 {
		t.Fatalf("tick = %d, want 0", sim.LastTick)
	}
	if err := db.SaveWorldState(sim); err != nil {
		t.Fatalf("save: %v", err)
	}

	events, err := db.RecentEvents(10)
	if err != nil {
		t.Fatalf("recent events: %v", err)
	}
	if len(events) != 1 || events[0].Category != "settlement" || events[0].Tick != 0 {
		t.Fatalf("events = %+v, want one settlement event at tick 0", events)
	}

	got, err := db.LoadWorldState(sim.Config())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Events) != 1 || got.Events[0].Seq != events[0].Seq {
		t.Errorf("restored events = %+v", got.Events)
	}
}

func TestCastBetweenSavesIsSaved(t *testing.T) {
	db := openTestDB(t)
	sim := testSim(t)

	sim.LastTick = 1
	if err := db.SaveWorldState(sim); err != nil {
		t.Fatalf("save: %v", err)
	}

	// The cast carries the tick that was just saved.
	if _, err := sim.ApplyPower(engine.PowerRain, 4, 4, 1); err != nil {
		t.Fatalf("cast: %v", err)
	}
	sim.Tick(16 * time.Millisecond)
	if err := db.SaveWorldState(sim); err != nil {
		t.Fatalf("second save: %v", err)
	}

	events, err := db.RecentEvents(50)
	if err != nil {
		t.Fatalf("recent events: %v", err)
	}
	var casts []engine.Event
	for _, e := range events {
		if e.Category == "power" {
			casts = append(casts, e)
		}
	}
	if len(casts) != 1 || casts[0].Tick != 1 {
		t.Fatalf("stored power events = %+v, want one at tick 1", casts)
	}

	// A third save with nothing new must not duplicate anything.
	if err := db.SaveWorldState(sim); err != nil {
		t.Fatalf("third save: %v", err)
	}
	again, err := db.RecentEvents(50)
	if err != nil {
		t.Fatalf("recent events: %v", err)
	}
	if len(again) != len(events) {
		t.Errorf("stored %d events after idle save, want %d", len(again), len(events))
	}
}
