// Package persistence provides SQLite-based world state storage.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/divine-lands/internal/agents"
	"github.com/talgya/divine-lands/internal/engine"
)

// DB wraps a SQLite connection for world state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cells (
		idx INTEGER PRIMARY KEY,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		height REAL NOT NULL,
		type TEXT NOT NULL,
		moisture REAL NOT NULL,
		temperature REAL NOT NULL,
		fertility REAL NOT NULL,
		river INTEGER NOT NULL,
		farms INTEGER NOT NULL,
		amount REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS walkers (
		id INTEGER PRIMARY KEY,
		pos_x REAL NOT NULL,
		pos_y REAL NOT NULL,
		dest_x INTEGER,
		dest_y INTEGER,
		health REAL NOT NULL,
		direction TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS civilizations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		alignment TEXT NOT NULL,
		color TEXT NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		terrain TEXT NOT NULL,
		quality REAL NOT NULL,
		population INTEGER NOT NULL,
		seq INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seq INTEGER NOT NULL,
		tick INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_events_seq ON events(seq);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveEvents appends events to the database. Events whose Seq is already
// stored are skipped.
func (db *DB) SaveEvents(events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT OR IGNORE INTO events (seq, tick, description, category) VALUES (?, ?, ?, ?)",
			e.Seq, e.Tick, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

func (db *DB) saveJSONMeta(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return db.SaveMeta(key, string(b))
}

func (db *DB) loadJSONMeta(key string, v any) error {
	s, err := db.GetMeta(key)
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// HasWorldState reports whether a saved world exists.
func (db *DB) HasWorldState() bool {
	_, err := db.GetMeta("grid_width")
	return err == nil
}

// SaveWorldState performs a full save of all world state. Only events
// emitted since the previous save are appended, whatever tick they carry.
func (db *DB) SaveWorldState(sim *engine.Simulation) error {
	st := sim.State()
	g := sim.Grid()
	slog.Info("saving world state",
		"cells", humanize.Comma(int64(g.Width()*g.Height())),
		"walkers", len(st.Walkers),
		"civilizations", len(st.Civilizations),
	)

	if err := db.SaveGrid(g); err != nil {
		return fmt.Errorf("save grid: %w", err)
	}
	if err := db.SaveWalkers(st.Walkers); err != nil {
		return fmt.Errorf("save walkers: %w", err)
	}
	if err := db.SaveCivilizations(st.Civilizations); err != nil {
		return fmt.Errorf("save civilizations: %w", err)
	}

	lastSaved := uint64(0)
	if v, err := db.GetMeta("last_event_seq"); err == nil {
		lastSaved, _ = strconv.ParseUint(v, 10, 64)
	}
	var fresh []engine.Event
	for _, e := range sim.Events {
		if e.Seq > lastSaved {
			fresh = append(fresh, e)
		}
	}
	if err := db.SaveEvents(fresh); err != nil {
		return fmt.Errorf("save events: %w", err)
	}

	meta := simMeta{
		Tick:         st.Tick,
		Elapsed:      st.Elapsed,
		Faith:        st.Faith,
		NextWalkerID: uint64(st.NextWalkerID),
		EventSeq:     st.EventSeq,
		Stats:        st.Stats,
	}
	if err := db.saveJSONMeta("sim_state", meta); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	if err := db.SaveMeta("last_event_seq", strconv.FormatUint(st.EventSeq, 10)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	if err := db.SaveMeta("last_tick", strconv.FormatUint(st.Tick, 10)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	slog.Info("world state saved", "tick", st.Tick)
	return nil
}

// LoadWorldState rebuilds a simulation from the saved world.
func (db *DB) LoadWorldState(cfg engine.SimConfig) (*engine.Simulation, error) {
	g, err := db.LoadGrid()
	if err != nil {
		return nil, fmt.Errorf("load grid: %w", err)
	}
	// The walker stream follows the seed the world was generated with.
	cfg.Seed = g.Config().Seed
	walkers, err := db.LoadWalkers()
	if err != nil {
		return nil, fmt.Errorf("load walkers: %w", err)
	}
	civs, err := db.LoadCivilizations()
	if err != nil {
		return nil, fmt.Errorf("load civilizations: %w", err)
	}

	var meta simMeta
	if err := db.loadJSONMeta("sim_state", &meta); err != nil {
		return nil, err
	}

	sim := engine.Restore(g, cfg, engine.State{
		Tick:          meta.Tick,
		Elapsed:       meta.Elapsed,
		Faith:         meta.Faith,
		NextWalkerID:  agents.WalkerID(meta.NextWalkerID),
		EventSeq:      meta.EventSeq,
		Walkers:       walkers,
		Civilizations: civs,
		Stats:         meta.Stats,
	})

	events, err := db.RecentEvents(100)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load events: %w", err)
	}
	// RecentEvents is newest first. Stored events keep their Seq.
	for i := len(events) - 1; i >= 0; i-- {
		sim.EmitEvent(events[i])
	}

	return sim, nil
}

// simMeta is the scalar simulation state stored as JSON in world_meta.
type simMeta struct {
	Tick         uint64          `json:"tick"`
	Elapsed      float64         `json:"elapsed"`
	Faith        float64         `json:"faith"`
	NextWalkerID uint64          `json:"next_walker_id"`
	EventSeq     uint64          `json:"event_seq"`
	Stats        engine.SimStats `json:"stats"`
}

// RecentEvents returns the most recent N events.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT seq, tick, description, category FROM events ORDER BY seq DESC LIMIT ?",
		limit,
	)
	return events, err
}
