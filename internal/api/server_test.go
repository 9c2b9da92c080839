package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/talgya/divine-lands/internal/engine"
	"github.com/talgya/divine-lands/internal/session"
	"github.com/talgya/divine-lands/internal/social"
	"github.com/talgya/divine-lands/internal/world"
)

const testKey = "let-there-be-light"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	g, err := world.Blank(10, 10, world.SmallTestConfig(), 5)
	if err != nil {
		t.Fatalf("blank: %v", err)
	}
	sim := engine.NewSimulation(g, engine.DefaultSimConfig())
	sess := session.New(sim, engine.NewEngine(), nil, 42)
	return &Server{
		Session:  sess,
		AdminKey: testKey,
		Spawn:    social.DefaultSpawnConfig(),
		Hub:      NewHub(sess, 10*time.Millisecond),
	}
}

func do(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestStatus(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s.Router(), http.MethodGet, "/api/v1/status", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	var st session.Status
	decode(t, rec, &st)
	if st.Width != 10 || st.Height != 10 || st.Seed != 42 || st.Faith != 100 {
		t.Fatalf("status = %+v", st)
	}
}

func TestMap(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s.Router(), http.MethodGet, "/api/v1/map", "", "")
	var body struct {
		Width   int             `json:"width"`
		Types   []world.Terrain `json:"types"`
		Heights []float64       `json:"heights"`
	}
	decode(t, rec, &body)
	if body.Width != 10 || len(body.Types) != 100 || len(body.Heights) != 100 {
		t.Fatalf("map = width %d, %d types, %d heights", body.Width, len(body.Types), len(body.Heights))
	}
	if body.Types[0] != world.TerrainGrass || body.Heights[0] != 5 {
		t.Fatalf("cell 0 = %v at %v", body.Types[0], body.Heights[0])
	}
}

func TestCellDetail(t *testing.T) {
	s := newTestServer(t)
	r := s.Router()

	rec := do(t, r, http.MethodGet, "/api/v1/map/3/4", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var body struct {
		Cell world.Cell `json:"cell"`
		Name string     `json:"name"`
	}
	decode(t, rec, &body)
	if body.Cell.X != 3 || body.Cell.Y != 4 || body.Name != "Grass" {
		t.Fatalf("cell = %+v (%s)", body.Cell, body.Name)
	}

	if rec := do(t, r, http.MethodGet, "/api/v1/map/30/4", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("off-grid code = %d, want 404", rec.Code)
	}
	if rec := do(t, r, http.MethodGet, "/api/v1/map/x/4", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad coordinate code = %d, want 400", rec.Code)
	}
}

func TestAdminAuth(t *testing.T) {
	s := newTestServer(t)
	r := s.Router()
	body := `{"power":"raise_land","x":1,"y":1}`

	if rec := do(t, r, http.MethodPost, "/api/v1/power", "", body); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token code = %d, want 401", rec.Code)
	}
	if rec := do(t, r, http.MethodPost, "/api/v1/power", "wrong", body); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token code = %d, want 401", rec.Code)
	}

	s.AdminKey = ""
	if rec := do(t, s.Router(), http.MethodPost, "/api/v1/power", testKey, body); rec.Code != http.StatusForbidden {
		t.Errorf("disabled admin code = %d, want 403", rec.Code)
	}
}

func TestCastPower(t *testing.T) {
	s := newTestServer(t)
	r := s.Router()

	rec := do(t, r, http.MethodPost, "/api/v1/power", testKey, `{"power":"raise land","x":5,"y":5,"radius":1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("cast code = %d: %s", rec.Code, rec.Body.String())
	}
	var res engine.CastResult
	decode(t, rec, &res)
	if res.Power != engine.PowerRaiseLand || res.Affected != 5 || res.Faith != 90 {
		t.Fatalf("result = %+v", res)
	}
	if c, _ := s.Session.Cell(5, 5); c.Height != 15 {
		t.Fatalf("centre height = %v, want 15", c.Height)
	}
	if !s.Hub.mapDirty.Load() {
		t.Error("map not marked dirty after cast")
	}

	if rec := do(t, r, http.MethodPost, "/api/v1/power", testKey, `{"power":"smite","x":5,"y":5}`); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown power code = %d, want 400", rec.Code)
	}
	if rec := do(t, r, http.MethodPost, "/api/v1/power", testKey, `{"power":"flatten","x":5,"y":5,"radius":99}`); rec.Code != http.StatusBadRequest {
		t.Errorf("huge radius code = %d, want 400", rec.Code)
	}

	// 90 faith buys three mountains.
	for i := range 3 {
		if rec := do(t, r, http.MethodPost, "/api/v1/power", testKey, `{"power":"create_mountain","x":1,"y":1}`); rec.Code != http.StatusOK {
			t.Fatalf("mountain %d code = %d", i, rec.Code)
		}
	}
	if rec := do(t, r, http.MethodPost, "/api/v1/power", testKey, `{"power":"create_mountain","x":1,"y":1}`); rec.Code != http.StatusConflict {
		t.Fatalf("broke cast code = %d, want 409", rec.Code)
	}
}

func TestPowerRateLimit(t *testing.T) {
	s := newTestServer(t)
	s.Powers = NewRateLimiter(2, time.Minute)
	r := s.Router()
	body := `{"power":"rain","x":2,"y":2}`

	for i := range 2 {
		if rec := do(t, r, http.MethodPost, "/api/v1/power", testKey, body); rec.Code != http.StatusOK {
			t.Fatalf("cast %d code = %d", i, rec.Code)
		}
	}
	rec := do(t, r, http.MethodPost, "/api/v1/power", testKey, body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third cast code = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
}

func TestClockControl(t *testing.T) {
	s := newTestServer(t)
	r := s.Router()

	if rec := do(t, r, http.MethodPost, "/api/v1/pause", testKey, ""); rec.Code != http.StatusOK || !s.Session.Clock().Paused() {
		t.Fatalf("pause code = %d, paused = %v", rec.Code, s.Session.Clock().Paused())
	}
	if rec := do(t, r, http.MethodPost, "/api/v1/resume", testKey, ""); rec.Code != http.StatusOK || s.Session.Clock().Paused() {
		t.Fatalf("resume code = %d, paused = %v", rec.Code, s.Session.Clock().Paused())
	}

	if rec := do(t, r, http.MethodPost, "/api/v1/speed", testKey, `{"speed":4}`); rec.Code != http.StatusOK {
		t.Fatalf("speed code = %d", rec.Code)
	}
	if got := s.Session.Clock().Speed(); got != 4 {
		t.Fatalf("speed = %v, want 4", got)
	}
	for _, bad := range []string{`{"speed":0}`, `{"speed":-1}`, `{"speed":5000}`, `nope`} {
		if rec := do(t, r, http.MethodPost, "/api/v1/speed", testKey, bad); rec.Code != http.StatusBadRequest {
			t.Errorf("speed %s code = %d, want 400", bad, rec.Code)
		}
	}
}

func TestEventsLimitAndCategory(t *testing.T) {
	s := newTestServer(t)
	r := s.Router()
	for _, p := range []string{"rain", "drought", "rain"} {
		do(t, r, http.MethodPost, "/api/v1/power", testKey, `{"power":"`+p+`","x":1,"y":1}`)
	}

	var events []engine.Event
	decode(t, do(t, r, http.MethodGet, "/api/v1/events?limit=2", "", ""), &events)
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}

	decode(t, do(t, r, http.MethodGet, "/api/v1/events?category=settlement", "", ""), &events)
	if len(events) != 0 {
		t.Fatalf("settlement events = %+v", events)
	}
}

func TestStream(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var m mapMessage
	if err := conn.ReadJSON(&m); err != nil {
		t.Fatalf("read map: %v", err)
	}
	if m.Type != "map" || len(m.Cells) != 100 {
		t.Fatalf("map message = %s with %d cells", m.Type, len(m.Cells))
	}

	var f frameMessage
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if f.Type != "frame" || f.Faith != 100 {
		t.Fatalf("frame = %+v", f)
	}

	if err := conn.WriteJSON(inspectRequest{Action: "inspect", X: 2, Y: 3}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var resp struct {
		Type  string     `json:"type"`
		Found bool       `json:"found"`
		Cell  world.Cell `json:"cell"`
	}
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read inspect: %v", err)
	}
	if resp.Type != "inspect" || !resp.Found || resp.Cell.X != 2 || resp.Cell.Y != 3 {
		t.Fatalf("inspect = %+v", resp)
	}
}
