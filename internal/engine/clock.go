// Package engine provides the settlement automaton, divine powers, and the
// frame clock that drives them.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is one frame at roughly 60 frames per second.
const DefaultInterval = 16 * time.Millisecond

// ErrInvalidSpeed is returned for non-positive speed multipliers.
var ErrInvalidSpeed = errors.New("speed must be positive")

// Engine is the frame clock. Each unpaused frame it hands the callbacks a
// simulated duration of Interval scaled by the speed multiplier; while
// paused it withholds frames entirely.
type Engine struct {
	Interval       time.Duration // Wall-clock time between frames
	AutosaveFrames uint64        // Frames between OnAutosave calls; 0 disables

	// Callbacks populated during setup.
	OnFrame    func(dt time.Duration) // Every unpaused frame
	OnAutosave func(frame uint64)     // Every AutosaveFrames frames

	mu     sync.Mutex
	frame  uint64
	speed  float64
	paused bool

	stopOnce sync.Once
	stop     chan struct{}
}

// NewEngine creates a clock with default settings.
func NewEngine() *Engine {
	return &Engine{
		Interval: DefaultInterval,
		speed:    1.0,
		stop:     make(chan struct{}),
	}
}

// Run drives frames until ctx is cancelled or Stop is called.
func (e *Engine) Run(ctx context.Context) {
	slog.Info("simulation clock started", "interval", e.Interval, "speed", e.Speed())

	ticker := time.NewTicker(e.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("simulation clock stopped", "frame", e.Frame(), "reason", ctx.Err())
			return
		case <-e.stop:
			slog.Info("simulation clock stopped", "frame", e.Frame())
			return
		case <-ticker.C:
			e.Step()
		}
	}
}

// Stop halts Run. Safe to call more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stop) })
}

// Step advances one frame unless paused, and reports whether it did.
func (e *Engine) Step() bool {
	e.mu.Lock()
	if e.paused {
		e.mu.Unlock()
		return false
	}
	e.frame++
	frame := e.frame
	dt := time.Duration(float64(e.Interval) * e.speed)
	e.mu.Unlock()

	if e.OnFrame != nil {
		e.OnFrame(dt)
	}
	if e.AutosaveFrames > 0 && frame%e.AutosaveFrames == 0 && e.OnAutosave != nil {
		e.OnAutosave(frame)
	}
	return true
}

// Pause withholds frames until Resume.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.paused {
		slog.Info("simulation paused", "frame", e.frame)
	}
	e.paused = true
}

// Resume restarts frame delivery.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.paused {
		slog.Info("simulation resumed", "frame", e.frame)
	}
	e.paused = false
}

// Paused reports whether frames are withheld.
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// SetSpeed sets the simulated-time multiplier.
func (e *Engine) SetSpeed(speed float64) error {
	if speed <= 0 {
		return ErrInvalidSpeed
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speed = speed
	return nil
}

// Speed returns the simulated-time multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// Frame returns the number of frames delivered.
func (e *Engine) Frame() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frame
}
