package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/talgya/divine-lands/internal/agents"
	"github.com/talgya/divine-lands/internal/engine"
	"github.com/talgya/divine-lands/internal/session"
	"github.com/talgya/divine-lands/internal/world"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// mapMessage carries the full terrain. Sent on connect and after any
// power changes the land.
type mapMessage struct {
	Type   string          `json:"type"` // "map"
	Width  int             `json:"width"`
	Height int             `json:"height"`
	Cells  []world.Terrain `json:"cells"`
	Elev   []float64       `json:"elevation"`
}

// frameMessage carries the moving parts of the world.
type frameMessage struct {
	Type      string          `json:"type"` // "frame"
	Tick      uint64          `json:"tick"`
	Faith     float64         `json:"faith"`
	Paused    bool            `json:"paused"`
	Speed     float64         `json:"speed"`
	Walkers   []agents.Walker `json:"walkers"`
	Buildings []building      `json:"buildings"`
	Stats     engine.SimStats `json:"stats"`
}

type building struct {
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Amount float64 `json:"amount"`
	Farms  int     `json:"farms"`
}

// inspectRequest is the only message clients send.
type inspectRequest struct {
	Action string `json:"action"` // "inspect"
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

// Hub pushes world frames to websocket clients.
type Hub struct {
	sess     *session.Session
	interval time.Duration

	mu      sync.Mutex
	clients map[*websocket.Conn]*sync.Mutex // per-conn write locks

	mapDirty atomic.Bool
}

// NewHub creates a hub that broadcasts every interval.
func NewHub(sess *session.Session, interval time.Duration) *Hub {
	return &Hub{
		sess:     sess,
		interval: interval,
		clients:  make(map[*websocket.Conn]*sync.Mutex),
	}
}

// Run broadcasts frames until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			if h.Clients() == 0 {
				continue
			}
			if h.mapDirty.Swap(false) {
				h.broadcast(h.mapMessage())
			}
			h.broadcast(h.frameMessage())
		}
	}
}

// MarkMapDirty schedules a full map broadcast with the next frame.
func (h *Hub) MarkMapDirty() { h.mapDirty.Store(true) }

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) register(conn *websocket.Conn) *sync.Mutex {
	wmu := &sync.Mutex{}
	h.mu.Lock()
	h.clients[conn] = wmu
	n := len(h.clients)
	h.mu.Unlock()
	slog.Info("stream client connected", "remote", conn.RemoteAddr().String(), "clients", n)
	return wmu
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()
	if ok {
		conn.Close()
		slog.Info("stream client disconnected", "remote", conn.RemoteAddr().String())
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()
	for _, c := range conns {
		h.unregister(c)
	}
}

func (h *Hub) broadcast(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("stream marshal failed", "error", err)
		return
	}

	h.mu.Lock()
	targets := make(map[*websocket.Conn]*sync.Mutex, len(h.clients))
	for c, wmu := range h.clients {
		targets[c] = wmu
	}
	h.mu.Unlock()

	for c, wmu := range targets {
		if err := send(c, wmu, data); err != nil {
			slog.Debug("stream write failed", "error", err)
			h.unregister(c)
		}
	}
}

func send(c *websocket.Conn, wmu *sync.Mutex, data []byte) error {
	wmu.Lock()
	defer wmu.Unlock()
	c.SetWriteDeadline(time.Now().Add(writeWait))
	return c.WriteMessage(websocket.TextMessage, data)
}

func sendJSON(c *websocket.Conn, wmu *sync.Mutex, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return send(c, wmu, data)
}

func (h *Hub) mapMessage() mapMessage {
	var msg mapMessage
	h.sess.Read(func(sim *engine.Simulation) {
		g := sim.Grid()
		msg = mapMessage{
			Type:   "map",
			Width:  g.Width(),
			Height: g.Height(),
			Cells:  make([]world.Terrain, 0, g.Width()*g.Height()),
			Elev:   make([]float64, 0, g.Width()*g.Height()),
		}
		g.EachCell(func(c world.Cell) {
			msg.Cells = append(msg.Cells, c.Type)
			msg.Elev = append(msg.Elev, c.Height)
		})
	})
	return msg
}

func (h *Hub) frameMessage() frameMessage {
	var msg frameMessage
	h.sess.Read(func(sim *engine.Simulation) {
		msg = frameMessage{
			Type:      "frame",
			Tick:      sim.CurrentTick(),
			Faith:     sim.Faith,
			Walkers:   sim.WalkerValues(),
			Buildings: []building{},
			Stats:     sim.Stats,
		}
		sim.Grid().EachBuilding(func(c world.Cell) {
			msg.Buildings = append(msg.Buildings, building{X: c.X, Y: c.Y, Amount: c.Amount, Farms: c.Farms})
		})
	})
	clock := h.sess.Clock()
	msg.Paused = clock.Paused()
	msg.Speed = clock.Speed()
	return msg
}

// handleStream upgrades to a websocket, sends the map and a first frame,
// then answers inspect requests until the client goes away.
func (h *Hub) handleStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	wmu := h.register(conn)
	defer h.unregister(conn)

	if err := sendJSON(conn, wmu, h.mapMessage()); err != nil {
		return
	}
	if err := sendJSON(conn, wmu, h.frameMessage()); err != nil {
		return
	}

	for {
		var req inspectRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		if req.Action != "inspect" {
			continue
		}
		cell, ok := h.sess.Cell(req.X, req.Y)
		resp := gin.H{"type": "inspect", "x": req.X, "y": req.Y, "found": ok}
		if ok {
			resp["cell"] = cell
		}
		if err := sendJSON(conn, wmu, resp); err != nil {
			return
		}
	}
}
