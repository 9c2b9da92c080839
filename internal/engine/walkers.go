package engine

import (
	"fmt"
	"math"

	"github.com/talgya/divine-lands/internal/agents"
	"github.com/talgya/divine-lands/internal/world"
)

// updateWalkers runs one tick for every walker and compacts the list in
// place. Per walker the order is merge, attrition, movement, construction.
func (s *Simulation) updateWalkers(dt float64) {
	absorbed := s.mergeWalkers()

	kept := s.walkers[:0]
	for i, w := range s.walkers {
		if absorbed[i] {
			continue
		}
		if s.tickWalker(w, dt) {
			kept = append(kept, w)
		}
	}
	clear(s.walkers[len(kept):])
	s.walkers = kept
}

// mergeWalkers folds walkers that share a cell into the earliest walker on
// that cell and returns the indices of the absorbed ones.
func (s *Simulation) mergeWalkers() map[int]bool {
	if len(s.walkers) < 2 {
		return nil
	}
	owner := make(map[world.Point]int, len(s.walkers))
	var absorbed map[int]bool
	for i, w := range s.walkers {
		p := w.GridPosition()
		j, taken := owner[p]
		if !taken {
			owner[p] = i
			continue
		}
		s.walkers[j].Health += w.Health
		if absorbed == nil {
			absorbed = make(map[int]bool)
		}
		absorbed[i] = true
		s.Stats.Merges++
		s.EmitEvent(Event{
			Tick:        s.LastTick,
			Description: fmt.Sprintf("walker %d joins walker %d at (%d,%d)", w.ID, s.walkers[j].ID, p.X, p.Y),
			Category:    "merge",
		})
	}
	return absorbed
}

// tickWalker applies attrition, movement and construction to w and reports
// whether it stays in the list.
func (s *Simulation) tickWalker(w *agents.Walker, dt float64) bool {
	if !w.Decay(s.cfg.attrition(), dt) {
		s.Stats.WalkerDeaths++
		p := w.GridPosition()
		s.EmitEvent(Event{
			Tick:        s.LastTick,
			Description: fmt.Sprintf("walker %d perished at (%d,%d)", w.ID, p.X, p.Y),
			Category:    "death",
		})
		return false
	}

	if w.Destination != nil {
		w.Step(s.cfg.WalkerSpeed, dt)
	} else {
		s.chooseDestination(w)
	}

	p := w.GridPosition()
	if s.isVacant(p.X, p.Y) {
		farms := s.build(p, w.Health)
		s.EmitEvent(Event{
			Tick:        s.LastTick,
			Description: fmt.Sprintf("walker %d builds at (%d,%d) with %d farms", w.ID, p.X, p.Y, farms),
			Category:    "building",
		})
		return false
	}
	return true
}

// chooseDestination targets the nearest vacancy, or else a random nearby
// walkable cell. A walker with no valid target waits for the next tick.
func (s *Simulation) chooseDestination(w *agents.Walker) {
	from := w.GridPosition()
	if v, ok := s.findVacancy(from); ok {
		w.Destination = &v
		return
	}

	j := s.cfg.JitterRange
	tx := int(math.Floor(w.Position.X() + (2*s.rng.Float64()-1)*j))
	ty := int(math.Floor(w.Position.Y() + (2*s.rng.Float64()-1)*j))
	tx = min(max(tx, 0), s.grid.Width()-1)
	ty = min(max(ty, 0), s.grid.Height()-1)

	c, _ := s.grid.At(tx, ty)
	if !c.Walkable {
		return
	}
	w.Destination = &world.Point{X: tx, Y: ty}
}
