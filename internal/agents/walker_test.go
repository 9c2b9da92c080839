package agents

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/talgya/divine-lands/internal/world"
)

func TestSpawnerIssuesSequentialIDs(t *testing.T) {
	s := NewSpawner()
	a := s.Spawn(world.Point{X: 2, Y: 3}, 10)
	b := s.Spawn(world.Point{X: 2, Y: 3}, 10)
	if a.ID != 1 || b.ID != 2 {
		t.Fatalf("ids = %d, %d; want 1, 2", a.ID, b.ID)
	}
	if got := a.GridPosition(); got != (world.Point{X: 2, Y: 3}) {
		t.Fatalf("GridPosition = %v", got)
	}
	s.SetNextID(40)
	if c := s.Spawn(world.Point{}, 1); c.ID != 40 {
		t.Fatalf("id after SetNextID = %d", c.ID)
	}
}

func TestAttritionDamage(t *testing.T) {
	a := Attrition{Flat: 5, Threshold: 500, Divisor: 100}
	tests := []struct {
		health, want float64
	}{
		{10, 5},
		{499, 5},
		{500, 5},
		{1000, 10},
	}
	for _, tc := range tests {
		if got := a.Damage(tc.health); got != tc.want {
			t.Errorf("Damage(%v) = %v, want %v", tc.health, got, tc.want)
		}
	}
}

func TestDecayKillsAtZero(t *testing.T) {
	a := Attrition{Flat: 5, Threshold: 500, Divisor: 100}
	w := &Walker{Health: 1}
	if w.Decay(a, 1) {
		t.Fatalf("walker with %v health should have died", w.Health)
	}
	w = &Walker{Health: 100}
	if !w.Decay(a, 1) || w.Health != 95 {
		t.Fatalf("health after one second = %v, want 95", w.Health)
	}
}

func TestStepMovesTowardDestination(t *testing.T) {
	w := &Walker{Position: mgl64.Vec2{0.5, 0.5}, Destination: &world.Point{X: 3, Y: 0}}
	w.Step(1, 1)
	if math.Abs(w.Position.X()-1.5) > 1e-9 || w.Position.Y() != 0.5 {
		t.Fatalf("position = %v, want [1.5 0.5]", w.Position)
	}
	if w.Direction != DirRight {
		t.Fatalf("direction = %v, want right", w.Direction)
	}

	// Overshooting steps land on the centre instead of passing it.
	w.Step(1, 10)
	if w.Position != (mgl64.Vec2{3.5, 0.5}) {
		t.Fatalf("position = %v, want [3.5 0.5]", w.Position)
	}
	w.Step(1, 0.016)
	if w.Destination != nil {
		t.Fatal("destination should clear on arrival")
	}
}

func TestFacing(t *testing.T) {
	tests := []struct {
		delta mgl64.Vec2
		want  Direction
	}{
		{mgl64.Vec2{-2, 1}, DirLeft},
		{mgl64.Vec2{0.5, 3}, DirForward},
		{mgl64.Vec2{0.5, -3}, DirBack},
	}
	for _, tc := range tests {
		if got := facing(tc.delta); got != tc.want {
			t.Errorf("facing(%v) = %v, want %v", tc.delta, got, tc.want)
		}
	}
}
