// Package api provides the HTTP API for observing and steering the world.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (the divine control plane).
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/talgya/divine-lands/internal/engine"
	"github.com/talgya/divine-lands/internal/session"
	"github.com/talgya/divine-lands/internal/social"
	"github.com/talgya/divine-lands/internal/world"
)

const (
	maxSpeed     = 1000
	maxRadius    = 32
	defaultLimit = 50
	maxLimit     = 1000
)

// Server serves the world over HTTP and websocket.
type Server struct {
	Session  *session.Session
	Port     int
	AdminKey string             // Bearer token for POST endpoints. Empty = POST disabled.
	Spawn    social.SpawnConfig // Used when new civilizations are requested.

	Powers *RateLimiter // Per-IP limit on power casts. Nil = unlimited.
	Hub    *Hub
}

// Router builds the gin engine with every route installed.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), corsMiddleware())

	v1 := r.Group("/api/v1")

	// Public endpoints (GET, read-only).
	v1.GET("/status", s.handleStatus)
	v1.GET("/map", s.handleMap)
	v1.GET("/map/:x/:y", s.handleCell)
	v1.GET("/walkers", s.handleWalkers)
	v1.GET("/civilizations", s.handleCivilizations)
	v1.GET("/events", s.handleEvents)
	v1.GET("/powers", s.handlePowers)
	if s.Hub != nil {
		v1.GET("/stream", s.Hub.handleStream)
	}

	// Admin endpoints (POST, require bearer token).
	admin := v1.Group("", s.adminOnly())
	cast := []gin.HandlerFunc{s.handlePower}
	if s.Powers != nil {
		cast = append([]gin.HandlerFunc{s.Powers.Middleware()}, cast...)
	}
	admin.POST("/power", cast...)
	admin.POST("/pause", s.handlePause)
	admin.POST("/resume", s.handleResume)
	admin.POST("/speed", s.handleSpeed)
	admin.POST("/snapshot", s.handleSnapshot)
	admin.POST("/civilizations", s.handleFound)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", srv.Addr, "admin_auth", s.AdminKey != "")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	slog.Info("HTTP API stopped")
	return nil
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra origins.
// Localhost dev servers are always allowed.
func corsMiddleware() gin.HandlerFunc {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if allowedOrigins[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"took", time.Since(start),
		)
	}
}

// adminOnly requires the admin bearer token.
func (s *Server) adminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.AdminKey == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin endpoints disabled (no GODSIM_ADMIN_KEY set)"})
			return
		}
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.AdminKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.Session.Status())
}

func (s *Server) handleMap(c *gin.Context) {
	type buildingEntry struct {
		X      int     `json:"x"`
		Y      int     `json:"y"`
		Amount float64 `json:"amount"`
		Farms  int     `json:"farms"`
	}

	var (
		width, height int
		types         []world.Terrain
		heights       []float64
		rivers        []world.Point
		buildings     = []buildingEntry{}
		gen           world.GenConfig
	)
	s.Session.Read(func(sim *engine.Simulation) {
		g := sim.Grid()
		width, height, gen = g.Width(), g.Height(), g.Config()
		types = make([]world.Terrain, 0, width*height)
		heights = make([]float64, 0, width*height)
		g.EachCell(func(cell world.Cell) {
			types = append(types, cell.Type)
			heights = append(heights, cell.Height)
			if cell.IsBuilding() {
				buildings = append(buildings, buildingEntry{X: cell.X, Y: cell.Y, Amount: cell.Amount, Farms: cell.Farms})
			}
		})
		rivers = g.Rivers()
	})

	c.JSON(http.StatusOK, gin.H{
		"width":          width,
		"height":         height,
		"water_level":    gen.WaterLevel,
		"mountain_level": gen.MountainLevel,
		"types":          types,
		"heights":        heights,
		"rivers":         rivers,
		"buildings":      buildings,
	})
}

func (s *Server) handleCell(c *gin.Context) {
	x, err1 := strconv.Atoi(c.Param("x"))
	y, err2 := strconv.Atoi(c.Param("y"))
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid coordinates"})
		return
	}

	var (
		cell    world.Cell
		ok      bool
		walkers = []any{}
		civ     *social.SettlementSeed
	)
	s.Session.Read(func(sim *engine.Simulation) {
		cell, ok = sim.Grid().At(x, y)
		if !ok {
			return
		}
		here := world.Point{X: x, Y: y}
		for _, w := range sim.Walkers() {
			if w.GridPosition() == here {
				walkers = append(walkers, *w)
			}
		}
		for i := range sim.Civilizations {
			if sim.Civilizations[i].Position == here {
				seed := sim.Civilizations[i]
				civ = &seed
			}
		}
	})
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "cell not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cell":         cell,
		"name":         world.TerrainName(cell.Type),
		"walkers":      walkers,
		"civilization": civ,
	})
}

func (s *Server) handleWalkers(c *gin.Context) {
	var out any
	s.Session.Read(func(sim *engine.Simulation) {
		out = sim.WalkerValues()
	})
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleCivilizations(c *gin.Context) {
	out := []social.SettlementSeed{}
	s.Session.Read(func(sim *engine.Simulation) {
		out = append(out, sim.Civilizations...)
	})
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleEvents(c *gin.Context) {
	limit := defaultLimit
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= maxLimit {
			limit = n
		}
	}

	events := s.Session.Events(0)

	if cat := c.Query("category"); cat != "" {
		filtered := []engine.Event{}
		for _, e := range events {
			if e.Category == cat {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}
	c.JSON(http.StatusOK, events[start:])
}

func (s *Server) handlePowers(c *gin.Context) {
	type powerEntry struct {
		Name engine.Power `json:"name"`
		Cost float64      `json:"cost"`
	}
	var out []powerEntry
	for _, p := range engine.Powers() {
		out = append(out, powerEntry{Name: p, Cost: p.Cost()})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handlePower(c *gin.Context) {
	var req struct {
		Power  string `json:"power" binding:"required"`
		X      int    `json:"x"`
		Y      int    `json:"y"`
		Radius int    `json:"radius"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Radius < 0 || req.Radius > maxRadius {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("radius must be 0-%d", maxRadius)})
		return
	}

	res, err := s.Session.Cast(req.Power, req.X, req.Y, req.Radius)
	switch {
	case errors.Is(err, engine.ErrUnknownPower):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, engine.ErrInsufficientFaith):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if res.Affected > 0 && s.Hub != nil {
		s.Hub.MarkMapDirty()
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handlePause(c *gin.Context) {
	s.Session.Clock().Pause()
	c.JSON(http.StatusOK, gin.H{"paused": true})
}

func (s *Server) handleResume(c *gin.Context) {
	s.Session.Clock().Resume()
	c.JSON(http.StatusOK, gin.H{"paused": false})
}

func (s *Server) handleSpeed(c *gin.Context) {
	var req struct {
		Speed float64 `json:"speed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Speed > maxSpeed {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("speed must be at most %d", maxSpeed)})
		return
	}
	if err := s.Session.Clock().SetSpeed(req.Speed); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	slog.Info("speed changed", "speed", req.Speed)
	c.JSON(http.StatusOK, gin.H{"speed": s.Session.Clock().Speed()})
}

func (s *Server) handleSnapshot(c *gin.Context) {
	if err := s.Session.Save(); err != nil {
		slog.Error("snapshot save failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "snapshot failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tick":    s.Session.Status().Tick,
		"message": "snapshot saved",
	})
}

func (s *Server) handleFound(c *gin.Context) {
	var req struct {
		Count int `json:"count"`
	}
	// An empty body founds the configured number.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}
	cfg := s.Spawn
	if req.Count > 0 {
		cfg.MaxCivilizations = req.Count
	}

	founded, err := s.Session.FoundCivilizations(cfg)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(founded) > 0 && s.Hub != nil {
		s.Hub.MarkMapDirty()
	}
	if founded == nil {
		founded = []social.SettlementSeed{}
	}
	c.JSON(http.StatusOK, founded)
}
