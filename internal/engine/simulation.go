// Simulation owns the grid and walker list and advances the settlement
// automaton one tick at a time.
package engine

import (
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/talgya/divine-lands/internal/agents"
	"github.com/talgya/divine-lands/internal/entropy"
	"github.com/talgya/divine-lands/internal/social"
	"github.com/talgya/divine-lands/internal/world"
)

const (
	// maxEvents bounds the recent event log.
	maxEvents = 1000
	// walkerSeedOffset separates the jitter stream from terrain streams.
	walkerSeedOffset = 300
)

// ErrNoVacancy is returned when a settlement cannot be founded near its site.
var ErrNoVacancy = errors.New("no buildable land near site")

// SimConfig holds the automaton constants.
type SimConfig struct {
	Seed          int64   `toml:"seed" json:"seed"`
	FlatTolerance float64 `toml:"flat_tolerance" json:"flat_tolerance"`
	FarmRadius    int     `toml:"farm_radius" json:"farm_radius"`
	VacancyRadius int     `toml:"vacancy_radius" json:"vacancy_radius"`
	WalkerSpeed   float64 `toml:"walker_speed" json:"walker_speed"` // cells per second
	JitterRange   float64 `toml:"jitter_range" json:"jitter_range"`

	AttritionFlat      float64 `toml:"attrition_flat" json:"attrition_flat"`
	AttritionThreshold float64 `toml:"attrition_threshold" json:"attrition_threshold"`
	AttritionDivisor   float64 `toml:"attrition_divisor" json:"attrition_divisor"`

	StartingFaith float64 `toml:"starting_faith" json:"starting_faith"`
	FaithRate     float64 `toml:"faith_rate" json:"faith_rate"` // per second
	MaxFaith      float64 `toml:"max_faith" json:"max_faith"`   // 0 means unbounded
}

// DefaultSimConfig returns the standard automaton constants.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		FlatTolerance:      0.1,
		FarmRadius:         3,
		VacancyRadius:      6,
		WalkerSpeed:        1,
		JitterRange:        1,
		AttritionFlat:      5,
		AttritionThreshold: 500,
		AttritionDivisor:   100,
		StartingFaith:      100,
		FaithRate:          1,
		MaxFaith:           500,
	}
}

func (c SimConfig) attrition() agents.Attrition {
	return agents.Attrition{
		Flat:      c.AttritionFlat,
		Threshold: c.AttritionThreshold,
		Divisor:   c.AttritionDivisor,
	}
}

// Event is a notable occurrence in the world.
type Event struct {
	Seq         uint64 `json:"seq"` // unique, increasing across the world's lifetime
	Tick        uint64 `json:"tick"`
	Description string `json:"description"`
	Category    string `json:"category"` // "emigration", "death", "merge", "building", "settlement", "power"
}

// SimStats tracks aggregate world statistics.
type SimStats struct {
	Buildings        int     `json:"buildings"`
	Walkers          int     `json:"walkers"`
	Population       float64 `json:"population"` // building amounts plus walker health
	WalkersSpawned   int     `json:"walkers_spawned"`
	WalkerDeaths     int     `json:"walker_deaths"`
	Merges           int     `json:"merges"`
	BuildingsFounded int     `json:"buildings_founded"`
	PowersCast       int     `json:"powers_cast"`
}

// Simulation holds the world state the automaton evolves. It is not safe
// for concurrent use; a session serializes access.
type Simulation struct {
	cfg     SimConfig
	grid    *world.Grid
	walkers []*agents.Walker
	spawner *agents.Spawner
	rng     *rand.Rand

	// eventSeq is the Seq of the last emitted event.
	eventSeq uint64

	Civilizations []social.SettlementSeed
	Events        []Event
	Stats         SimStats
	LastTick      uint64
	Elapsed       float64 // simulated seconds
	Faith         float64
}

// NewSimulation creates a simulation over grid with no walkers.
func NewSimulation(grid *world.Grid, cfg SimConfig) *Simulation {
	return &Simulation{
		cfg:     cfg,
		grid:    grid,
		spawner: agents.NewSpawner(),
		rng:     entropy.New(cfg.Seed + walkerSeedOffset),
		Faith:   cfg.StartingFaith,
	}
}

// Grid returns the terrain grid. Callers outside a tick treat it as read-only.
func (s *Simulation) Grid() *world.Grid { return s.grid }

// Config returns the automaton constants.
func (s *Simulation) Config() SimConfig { return s.cfg }

// Walkers returns the live walker list. The slice is owned by the
// simulation and must not be modified.
func (s *Simulation) Walkers() []*agents.Walker { return s.walkers }

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 { return s.LastTick }

// EmitEvent records an event, dropping the oldest past maxEvents. Events
// without a Seq are numbered; restored events keep theirs.
func (s *Simulation) EmitEvent(e Event) {
	if e.Seq == 0 {
		s.eventSeq++
		e.Seq = s.eventSeq
	} else if e.Seq > s.eventSeq {
		s.eventSeq = e.Seq
	}
	s.Events = append(s.Events, e)
	if len(s.Events) > maxEvents {
		s.Events = s.Events[len(s.Events)-maxEvents:]
	}
}

// Tick advances the world by dt: every building grows or emits a walker,
// then every walker merges, decays, moves and possibly builds.
func (s *Simulation) Tick(dt time.Duration) {
	s.LastTick++
	secs := dt.Seconds()
	s.Elapsed += secs

	s.Faith += s.cfg.FaithRate * secs
	if s.cfg.MaxFaith > 0 && s.Faith > s.cfg.MaxFaith {
		s.Faith = s.cfg.MaxFaith
	}

	s.updateBuildings(secs)
	s.updateWalkers(secs)
	s.updateStats()
}

// AddWalker places a walker at the centre of cell. Used for restores and
// scripted scenarios.
func (s *Simulation) AddWalker(cell world.Point, health float64) *agents.Walker {
	w := s.spawner.Spawn(cell, health)
	s.walkers = append(s.walkers, w)
	return w
}

func (s *Simulation) updateStats() {
	st := &s.Stats
	st.Buildings = 0
	st.Population = 0
	s.grid.EachBuilding(func(c world.Cell) {
		st.Buildings++
		st.Population += c.Amount
	})
	st.Walkers = len(s.walkers)
	for _, w := range s.walkers {
		st.Population += w.Health
	}
}

// Snapshot is an immutable copy of the simulation for renderers.
type Snapshot struct {
	Tick          uint64                  `json:"tick"`
	Elapsed       float64                 `json:"elapsed"`
	Faith         float64                 `json:"faith"`
	Grid          world.Snapshot          `json:"grid"`
	Walkers       []agents.Walker         `json:"walkers"`
	Civilizations []social.SettlementSeed `json:"civilizations"`
	Stats         SimStats                `json:"stats"`
}

// Snapshot copies the current state.
func (s *Simulation) Snapshot() Snapshot {
	return Snapshot{
		Tick:          s.LastTick,
		Elapsed:       s.Elapsed,
		Faith:         s.Faith,
		Grid:          s.grid.Snapshot(),
		Walkers:       s.WalkerValues(),
		Civilizations: append([]social.SettlementSeed(nil), s.Civilizations...),
		Stats:         s.Stats,
	}
}

// WalkerValues returns copies of the live walkers.
func (s *Simulation) WalkerValues() []agents.Walker {
	out := make([]agents.Walker, len(s.walkers))
	for i, w := range s.walkers {
		out[i] = *w
		if w.Destination != nil {
			d := *w.Destination
			out[i].Destination = &d
		}
	}
	return out
}

// State is the persistent part of a simulation.
type State struct {
	Tick          uint64
	Elapsed       float64
	Faith         float64
	NextWalkerID  agents.WalkerID
	EventSeq      uint64 // Seq of the last emitted event
	Walkers       []agents.Walker
	Civilizations []social.SettlementSeed
	Stats         SimStats
}

// State returns a copy of the persistent state.
func (s *Simulation) State() State {
	return State{
		Tick:          s.LastTick,
		Elapsed:       s.Elapsed,
		Faith:         s.Faith,
		NextWalkerID:  s.spawner.NextID(),
		EventSeq:      s.eventSeq,
		Walkers:       s.WalkerValues(),
		Civilizations: append([]social.SettlementSeed(nil), s.Civilizations...),
		Stats:         s.Stats,
	}
}

// Restore rebuilds a simulation from a grid and saved state.
func Restore(grid *world.Grid, cfg SimConfig, st State) *Simulation {
	s := NewSimulation(grid, cfg)
	s.LastTick = st.Tick
	s.Elapsed = st.Elapsed
	s.Faith = st.Faith
	s.eventSeq = st.EventSeq
	s.Civilizations = append([]social.SettlementSeed(nil), st.Civilizations...)
	s.Stats = st.Stats

	var maxID agents.WalkerID
	for i := range st.Walkers {
		w := st.Walkers[i]
		s.walkers = append(s.walkers, &w)
		maxID = max(maxID, w.ID)
	}
	s.spawner.SetNextID(max(st.NextWalkerID, maxID+1))
	// Reseed so a restored world does not replay the jitter of tick zero.
	s.rng = entropy.New(cfg.Seed + walkerSeedOffset + int64(st.Tick))
	s.updateStats()

	slog.Info("simulation restored",
		"tick", st.Tick,
		"walkers", len(s.walkers),
		"civilizations", len(s.Civilizations),
	)
	return s
}
