// Package config loads the divine-lands TOML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"

	"github.com/talgya/divine-lands/internal/engine"
	"github.com/talgya/divine-lands/internal/entropy"
	"github.com/talgya/divine-lands/internal/social"
	"github.com/talgya/divine-lands/internal/world"
)

// Config is the full server configuration.
type Config struct {
	World      WorldConfig        `toml:"world"`
	Terrain    world.GenConfig    `toml:"terrain"`
	Simulation engine.SimConfig   `toml:"simulation"`
	Spawn      social.SpawnConfig `toml:"spawn"`
	Clock      ClockConfig        `toml:"clock"`
	Server     ServerConfig       `toml:"server"`
	Storage    StorageConfig      `toml:"storage"`
	Log        LogConfig          `toml:"log"`
}

// WorldConfig sizes the map and carries the master seed. Seed 0 asks for
// a random seed.
type WorldConfig struct {
	Width  int   `toml:"width"`
	Height int   `toml:"height"`
	Seed   int64 `toml:"seed"`
}

// ClockConfig drives the frame loop.
type ClockConfig struct {
	IntervalMillis int     `toml:"interval_ms"`
	Speed          float64 `toml:"speed"`
	AutosaveFrames uint64  `toml:"autosave_frames"` // 0 disables autosave
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	Port            int    `toml:"port"`
	AdminKey        string `toml:"admin_key"` // empty disables admin endpoints
	PowerCasts      int    `toml:"power_casts"`      // casts allowed per IP per window
	PowerWindowSecs int    `toml:"power_window_secs"`
	StreamMillis    int    `toml:"stream_ms"` // websocket snapshot interval
}

// StorageConfig locates the world database.
type StorageConfig struct {
	Path string `toml:"path"`
}

// LogConfig sets the default logger.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		World:      WorldConfig{Width: 256, Height: 256},
		Terrain:    world.DefaultGenConfig(),
		Simulation: engine.DefaultSimConfig(),
		Spawn:      social.DefaultSpawnConfig(),
		Clock: ClockConfig{
			IntervalMillis: 16,
			Speed:          1,
			AutosaveFrames: 3750, // about a minute at 16ms
		},
		Server: ServerConfig{
			Port:            8080,
			PowerCasts:      30,
			PowerWindowSecs: 60,
			StreamMillis:    250,
		},
		Storage: StorageConfig{Path: "data/divine-lands.db"},
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults. A missing file yields the defaults;
// malformed TOML is an error. Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			slog.Info("config file not found, using defaults", "path", path)
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = p
	}
	if v := getenv("GODSIM_ADMIN_KEY"); v != "" {
		c.Server.AdminKey = v
	}
	if v := getenv("GODSIM_DB"); v != "" {
		c.Storage.Path = v
	}
	if v := getenv("GODSIM_SEED"); v != "" {
		s, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("GODSIM_SEED: %w", err)
		}
		c.World.Seed = s
	}
	return nil
}

// ResolveSeed replaces a zero master seed with a random one and hands the
// master seed to every stream. It returns the seed in use.
func (c *Config) ResolveSeed() int64 {
	if c.World.Seed == 0 {
		c.World.Seed = entropy.RandomSeed()
	}
	c.Terrain.Seed = c.World.Seed
	c.Simulation.Seed = c.World.Seed
	c.Spawn.Seed = c.World.Seed
	return c.World.Seed
}

// LogLevel parses the configured level, defaulting to info.
func (c Config) LogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Validate checks the sections that have their own validators.
func (c Config) Validate() error {
	if err := c.Terrain.Validate(c.World.Width, c.World.Height); err != nil {
		return err
	}
	if err := c.Spawn.Validate(); err != nil {
		return err
	}
	if c.Clock.IntervalMillis <= 0 {
		return fmt.Errorf("clock interval %dms must be positive", c.Clock.IntervalMillis)
	}
	if c.Clock.Speed <= 0 {
		return fmt.Errorf("%w: %v", engine.ErrInvalidSpeed, c.Clock.Speed)
	}
	return nil
}
