package persistence

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/talgya/divine-lands/internal/agents"
	"github.com/talgya/divine-lands/internal/social"
	"github.com/talgya/divine-lands/internal/world"
)

type cellRow struct {
	Idx         int     `db:"idx"`
	X           int     `db:"x"`
	Y           int     `db:"y"`
	Height      float64 `db:"height"`
	Type        string  `db:"type"`
	Moisture    float64 `db:"moisture"`
	Temperature float64 `db:"temperature"`
	Fertility   float64 `db:"fertility"`
	River       bool    `db:"river"`
	Farms       int     `db:"farms"`
	Amount      float64 `db:"amount"`
}

type walkerRow struct {
	ID        uint64        `db:"id"`
	PosX      float64       `db:"pos_x"`
	PosY      float64       `db:"pos_y"`
	DestX     sql.NullInt64 `db:"dest_x"`
	DestY     sql.NullInt64 `db:"dest_y"`
	Health    float64       `db:"health"`
	Direction string        `db:"direction"`
}

type civilizationRow struct {
	ID         string  `db:"id"`
	Name       string  `db:"name"`
	Alignment  string  `db:"alignment"`
	Color      string  `db:"color"`
	X          int     `db:"x"`
	Y          int     `db:"y"`
	Terrain    string  `db:"terrain"`
	Quality    float64 `db:"quality"`
	Population int     `db:"population"`
	Seq        int     `db:"seq"`
}

// SaveGrid writes every cell and the grid dimensions (full replace).
func (db *DB) SaveGrid(g *world.Grid) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM cells"); err != nil {
		return err
	}

	stmt, err := tx.PrepareNamed(`INSERT INTO cells
		(idx, x, y, height, type, moisture, temperature, fertility, river, farms, amount)
		VALUES (:idx, :x, :y, :height, :type, :moisture, :temperature, :fertility, :river, :farms, :amount)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	var insertErr error
	g.EachCell(func(c world.Cell) {
		if insertErr != nil {
			return
		}
		row := cellRow{
			Idx:         c.Y*g.Width() + c.X,
			X:           c.X,
			Y:           c.Y,
			Height:      c.Height,
			Type:        c.Type.String(),
			Moisture:    c.Moisture,
			Temperature: c.Temperature,
			Fertility:   c.Fertility,
			River:       c.River,
			Farms:       c.Farms,
			Amount:      c.Amount,
		}
		if _, err := stmt.Exec(row); err != nil {
			insertErr = fmt.Errorf("insert cell (%d,%d): %w", c.X, c.Y, err)
		}
	})
	if insertErr != nil {
		return insertErr
	}

	if _, err := tx.Exec("INSERT OR REPLACE INTO world_meta (key, value) VALUES ('grid_width', ?), ('grid_height', ?)",
		strconv.Itoa(g.Width()), strconv.Itoa(g.Height())); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	return db.saveJSONMeta("gen_config", g.Config())
}

// LoadGrid rebuilds the saved grid. Derived flags are recomputed.
func (db *DB) LoadGrid() (*world.Grid, error) {
	w, err := db.metaInt("grid_width")
	if err != nil {
		return nil, err
	}
	h, err := db.metaInt("grid_height")
	if err != nil {
		return nil, err
	}
	var cfg world.GenConfig
	if err := db.loadJSONMeta("gen_config", &cfg); err != nil {
		return nil, err
	}

	var rows []cellRow
	if err := db.conn.Select(&rows, "SELECT * FROM cells ORDER BY idx"); err != nil {
		return nil, err
	}
	cells := make([]world.Cell, len(rows))
	for i, r := range rows {
		t, ok := world.ParseTerrain(r.Type)
		if !ok {
			return nil, fmt.Errorf("cell %d: unknown terrain %q", r.Idx, r.Type)
		}
		cells[i] = world.Cell{
			X:           r.X,
			Y:           r.Y,
			Height:      r.Height,
			Type:        t,
			Moisture:    r.Moisture,
			Temperature: r.Temperature,
			Fertility:   r.Fertility,
			River:       r.River,
			Farms:       r.Farms,
			Amount:      r.Amount,
		}
	}
	return world.Restore(w, h, cfg, cells)
}

func (db *DB) metaInt(key string) (int, error) {
	v, err := db.GetMeta(key)
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", key, err)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

// SaveWalkers writes all walkers to the database (full replace).
func (db *DB) SaveWalkers(walkers []agents.Walker) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM walkers"); err != nil {
		return err
	}

	for _, w := range walkers {
		row := walkerRow{
			ID:        uint64(w.ID),
			PosX:      w.Position.X(),
			PosY:      w.Position.Y(),
			Health:    w.Health,
			Direction: w.Direction.String(),
		}
		if w.Destination != nil {
			row.DestX = sql.NullInt64{Int64: int64(w.Destination.X), Valid: true}
			row.DestY = sql.NullInt64{Int64: int64(w.Destination.Y), Valid: true}
		}
		_, err := tx.NamedExec(`INSERT INTO walkers
			(id, pos_x, pos_y, dest_x, dest_y, health, direction)
			VALUES (:id, :pos_x, :pos_y, :dest_x, :dest_y, :health, :direction)`, row)
		if err != nil {
			return fmt.Errorf("insert walker %d: %w", w.ID, err)
		}
	}

	return tx.Commit()
}

// LoadWalkers reads all saved walkers in ID order.
func (db *DB) LoadWalkers() ([]agents.Walker, error) {
	var rows []walkerRow
	if err := db.conn.Select(&rows, "SELECT * FROM walkers ORDER BY id"); err != nil {
		return nil, err
	}
	out := make([]agents.Walker, len(rows))
	for i, r := range rows {
		w := agents.Walker{
			ID:       agents.WalkerID(r.ID),
			Position: mgl64.Vec2{r.PosX, r.PosY},
			Health:   r.Health,
		}
		_ = w.Direction.UnmarshalText([]byte(r.Direction))
		if r.DestX.Valid && r.DestY.Valid {
			w.Destination = &world.Point{X: int(r.DestX.Int64), Y: int(r.DestY.Int64)}
		}
		out[i] = w
	}
	return out, nil
}

// SaveCivilizations writes all founded civilizations (full replace).
func (db *DB) SaveCivilizations(civs []social.SettlementSeed) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM civilizations"); err != nil {
		return err
	}

	for i, c := range civs {
		row := civilizationRow{
			ID:         c.ID,
			Name:       c.Name,
			Alignment:  c.Alignment.String(),
			Color:      c.Color,
			X:          c.Position.X,
			Y:          c.Position.Y,
			Terrain:    c.Terrain.String(),
			Quality:    c.Quality,
			Population: c.Population,
			Seq:        i,
		}
		_, err := tx.NamedExec(`INSERT INTO civilizations
			(id, name, alignment, color, x, y, terrain, quality, population, seq)
			VALUES (:id, :name, :alignment, :color, :x, :y, :terrain, :quality, :population, :seq)`, row)
		if err != nil {
			return fmt.Errorf("insert civilization %s: %w", c.Name, err)
		}
	}

	return tx.Commit()
}

// LoadCivilizations reads founded civilizations in founding order.
func (db *DB) LoadCivilizations() ([]social.SettlementSeed, error) {
	var rows []civilizationRow
	if err := db.conn.Select(&rows, "SELECT * FROM civilizations ORDER BY seq"); err != nil {
		return nil, err
	}
	out := make([]social.SettlementSeed, 0, len(rows))
	for _, r := range rows {
		var align social.Alignment
		if err := align.UnmarshalText([]byte(r.Alignment)); err != nil {
			return nil, fmt.Errorf("civilization %s: %w", r.Name, err)
		}
		t, _ := world.ParseTerrain(r.Terrain)
		out = append(out, social.SettlementSeed{
			ID:         r.ID,
			Name:       r.Name,
			Alignment:  align,
			Color:      r.Color,
			Position:   world.Point{X: r.X, Y: r.Y},
			Terrain:    t,
			Quality:    r.Quality,
			Population: r.Population,
		})
	}
	return out, nil
}
