// Package session owns a running world. The clock goroutine ticks the
// simulation while API handlers read snapshots and cast powers; every
// access goes through the session lock.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/divine-lands/internal/engine"
	"github.com/talgya/divine-lands/internal/social"
	"github.com/talgya/divine-lands/internal/world"
)

// Store persists a simulation. *persistence.DB satisfies it.
type Store interface {
	SaveWorldState(sim *engine.Simulation) error
}

// Session guards one simulation and its clock.
type Session struct {
	mu    sync.RWMutex
	sim   *engine.Simulation
	clock *engine.Engine
	store Store
	seed  int64
}

// New binds sim to clock. The clock's OnFrame and OnAutosave callbacks are
// replaced. store may be nil, in which case Save is a no-op.
func New(sim *engine.Simulation, clock *engine.Engine, store Store, seed int64) *Session {
	s := &Session{sim: sim, clock: clock, store: store, seed: seed}
	clock.OnFrame = s.Advance
	clock.OnAutosave = s.autosave
	return s
}

// Seed returns the master seed of the world.
func (s *Session) Seed() int64 { return s.seed }

// Clock returns the frame clock.
func (s *Session) Clock() *engine.Engine { return s.clock }

// Advance runs one simulation tick of dt.
func (s *Session) Advance(dt time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sim.Tick(dt)
}

// Snapshot copies the whole world.
func (s *Session) Snapshot() engine.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sim.Snapshot()
}

// Read runs fn with shared access to the simulation. fn must not retain
// the simulation or mutate it.
func (s *Session) Read(fn func(sim *engine.Simulation)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.sim)
}

// Cell returns a copy of the cell at (x, y).
func (s *Session) Cell(x, y int) (world.Cell, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sim.Grid().At(x, y)
}

// Status is a small summary of the running world.
type Status struct {
	Seed          int64           `json:"seed"`
	Width         int             `json:"width"`
	Height        int             `json:"height"`
	Tick          uint64          `json:"tick"`
	Frame         uint64          `json:"frame"`
	Elapsed       float64         `json:"elapsed"`
	Faith         float64         `json:"faith"`
	MaxFaith      float64         `json:"max_faith"`
	Paused        bool            `json:"paused"`
	Speed         float64         `json:"speed"`
	Civilizations int             `json:"civilizations"`
	Stats         engine.SimStats `json:"stats"`
}

// Status summarizes the world.
func (s *Session) Status() Status {
	s.mu.RLock()
	st := Status{
		Seed:          s.seed,
		Width:         s.sim.Grid().Width(),
		Height:        s.sim.Grid().Height(),
		Tick:          s.sim.CurrentTick(),
		Elapsed:       s.sim.Elapsed,
		Faith:         s.sim.Faith,
		MaxFaith:      s.sim.Config().MaxFaith,
		Civilizations: len(s.sim.Civilizations),
		Stats:         s.sim.Stats,
	}
	s.mu.RUnlock()

	st.Frame = s.clock.Frame()
	st.Paused = s.clock.Paused()
	st.Speed = s.clock.Speed()
	return st
}

// Events returns up to limit of the most recent events, oldest first.
func (s *Session) Events(limit int) []engine.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev := s.sim.Events
	if limit > 0 && len(ev) > limit {
		ev = ev[len(ev)-limit:]
	}
	return append([]engine.Event(nil), ev...)
}

// Cast resolves a power by name and applies it centred on (x, y).
func (s *Session) Cast(name string, x, y, radius int) (engine.CastResult, error) {
	p, err := engine.ParsePower(name)
	if err != nil {
		return engine.CastResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.ApplyPower(p, x, y, radius)
}

// FoundCivilizations spawns new civilizations away from existing ones and
// founds a settlement for each. Seeds with no buildable land nearby are
// skipped with a warning.
func (s *Session) FoundCivilizations(cfg social.SpawnConfig) ([]social.SettlementSeed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seeds, err := social.SpawnCivilizations(s.sim.Grid(), cfg, s.sim.Civilizations)
	if err != nil {
		return nil, fmt.Errorf("spawn civilizations: %w", err)
	}
	founded := make([]social.SettlementSeed, 0, len(seeds))
	for _, seed := range seeds {
		p, err := s.sim.FoundSettlement(seed)
		if errors.Is(err, engine.ErrNoVacancy) {
			slog.Warn("civilization has no land to settle", "name", seed.Name, "x", seed.Position.X, "y", seed.Position.Y)
			continue
		}
		if err != nil {
			return founded, err
		}
		seed.Position = p
		founded = append(founded, seed)
	}
	slog.Info("civilizations founded",
		"count", len(founded),
		"total", len(s.sim.Civilizations),
		"population", humanize.Comma(int64(s.sim.Stats.Population)),
	)
	return founded, nil
}

// Save writes the world to the store.
func (s *Session) Save() error {
	if s.store == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.SaveWorldState(s.sim)
}

func (s *Session) autosave(frame uint64) {
	if err := s.Save(); err != nil {
		slog.Error("autosave failed", "frame", frame, "error", err)
	}
}
