// Package agents provides the walker model: emigrants that leave a full
// building, wander the terrain, and settle where the land allows.
package agents

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/talgya/divine-lands/internal/world"
)

// WalkerID is a unique identifier for a walker within a session.
type WalkerID uint64

// Direction is the facing a renderer draws a walker with.
type Direction uint8

const (
	DirStand Direction = iota
	DirForward
	DirBack
	DirLeft
	DirRight
)

var directionNames = [...]string{"stand", "forward", "back", "left", "right"}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return "stand"
}

// MarshalText encodes the facing as its name.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a facing name. Unknown names decode as stand.
func (d *Direction) UnmarshalText(b []byte) error {
	*d = DirStand
	for i, n := range directionNames {
		if n == string(b) {
			*d = Direction(i)
		}
	}
	return nil
}

// Walker is a mobile population group. Health is both its life budget and
// the population it carries into a new building.
type Walker struct {
	ID          WalkerID     `json:"id"`
	Position    mgl64.Vec2   `json:"position"`
	Destination *world.Point `json:"destination,omitempty"`
	Health      float64      `json:"health"`
	Direction   Direction    `json:"direction"`
}

// CellCenter returns the continuous coordinate at the middle of a cell.
func CellCenter(p world.Point) mgl64.Vec2 {
	return mgl64.Vec2{float64(p.X) + 0.5, float64(p.Y) + 0.5}
}

// GridPosition returns the cell the walker stands on.
func (w *Walker) GridPosition() world.Point {
	return world.Point{
		X: int(math.Floor(w.Position.X())),
		Y: int(math.Floor(w.Position.Y())),
	}
}

// Attrition describes how walkers lose health over time.
type Attrition struct {
	Flat      float64 // damage per second below Threshold
	Threshold float64
	Divisor   float64 // above Threshold, damage per second is health/Divisor
}

// Damage returns the per-second health loss for a walker with health h.
func (a Attrition) Damage(h float64) float64 {
	if h < a.Threshold || a.Divisor <= 0 {
		return a.Flat
	}
	return h / a.Divisor
}

// Decay applies dt seconds of attrition and reports whether the walker
// is still alive.
func (w *Walker) Decay(a Attrition, dt float64) bool {
	w.Health -= a.Damage(w.Health) * dt
	return w.Health > 0
}

// Arrived reports whether the walker stands on its destination cell.
func (w *Walker) Arrived() bool {
	return w.Destination != nil && w.GridPosition() == *w.Destination
}

// Step moves the walker toward the centre of its destination cell by at
// most speed*dt and updates its facing from the dominant axis of travel.
// On arrival the destination is cleared.
func (w *Walker) Step(speed, dt float64) {
	if w.Destination == nil {
		return
	}
	if w.Arrived() {
		w.Destination = nil
		return
	}

	delta := CellCenter(*w.Destination).Sub(w.Position)
	dist := delta.Len()
	if dist == 0 {
		w.Destination = nil
		return
	}

	step := speed * dt
	if step >= dist {
		w.Position = CellCenter(*w.Destination)
	} else {
		w.Position = w.Position.Add(delta.Mul(step / dist))
	}
	w.Direction = facing(delta)
}

func facing(delta mgl64.Vec2) Direction {
	if math.Abs(delta.X()) > math.Abs(delta.Y()) {
		if delta.X() > 0 {
			return DirRight
		}
		return DirLeft
	}
	if delta.Y() > 0 {
		return DirForward
	}
	return DirBack
}
