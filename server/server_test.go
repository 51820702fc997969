package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/o0olele/breadcrumbs-go/capture"
	"github.com/o0olele/breadcrumbs-go/math64"
	"github.com/o0olele/breadcrumbs-go/route"
)

const overworld = "minecraft:overworld"

type memPersister struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func (m *memPersister) Load(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blobs[key], nil
}

func (m *memPersister) Save(key string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = blob
	return nil
}

func (m *memPersister) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[key]
	return ok
}

func newTestServer(t *testing.T, maxSessions int) (*Server, *httptest.Server, *memPersister) {
	t.Helper()
	p := &memPersister{blobs: map[string][]byte{}}
	s := New(Config{MaxSessions: maxSessions}, route.DefaultOptions(), p, zaptest.NewLogger(t))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts, p
}

func do(t *testing.T, method, url string, body interface{}, out interface{}) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func createSession(t *testing.T, base string, body interface{}) CreateSessionResponse {
	t.Helper()
	var created CreateSessionResponse
	require.Equal(t, http.StatusCreated, do(t, "POST", base+"/api/sessions", body, &created))
	require.NotEmpty(t, created.ID)
	return created
}

func tick(t *testing.T, base, id string, obs route.Observation) TickResponse {
	t.Helper()
	var resp TickResponse
	require.Equal(t, http.StatusOK, do(t, "POST", base+"/api/sessions/"+id+"/tick", obs, &resp))
	return resp
}

func at(x, y, z float64) *math64.Vector3 {
	return &math64.Vector3{X: x, Y: y, Z: z}
}

func TestSessionLifecycle(t *testing.T) {
	_, ts, _ := newTestServer(t, 8)
	created := createSession(t, ts.URL, nil)
	assert.Equal(t, route.DefaultPersistKey, created.PersistKey)
	id := created.ID

	tick(t, ts.URL, id, route.Observation{Position: at(0, 0, 0), Tick: 0, Context: overworld, Alive: true})
	tick(t, ts.URL, id, route.Observation{Position: at(10, 0, 0), Tick: 1, Context: overworld, Alive: true})
	resp := tick(t, ts.URL, id, route.Observation{
		Position: at(20, 0, 0),
		Tick:     2,
		Context:  overworld,
		Goal:     &capture.Goal{Pos: math64.Vector3{X: 20}, Context: overworld},
	})
	assert.Empty(t, resp.Waypoints)
	assert.Equal(t, "active", resp.Status.State)
	assert.Equal(t, 3, resp.Status.RoutePoints)

	resp = tick(t, ts.URL, id, route.Observation{Position: at(0, 0, 3), Tick: 3, Context: overworld, Alive: true})
	require.Len(t, resp.Waypoints, 3)
	assert.Equal(t, math64.Vector3{X: 0}, resp.Waypoints[0].Pos)
	assert.True(t, resp.Waypoints[2].Goal)
	assert.Equal(t, overworld, resp.Status.RouteContext)

	var status route.Status
	require.Equal(t, http.StatusOK, do(t, "GET", ts.URL+"/api/sessions/"+id+"/status", nil, &status))
	assert.Equal(t, resp.Status, status)

	require.Equal(t, http.StatusOK, do(t, "POST", ts.URL+"/api/sessions/"+id+"/clear", nil, &status))
	assert.Equal(t, "recording", status.State)
	assert.Equal(t, 0, status.TrailPoints)
	assert.Equal(t, "none", status.RouteContext)

	assert.Equal(t, http.StatusNoContent, do(t, "DELETE", ts.URL+"/api/sessions/"+id, nil, nil))
	assert.Equal(t, http.StatusNotFound, do(t, "GET", ts.URL+"/api/sessions/"+id+"/status", nil, nil))
}

func TestEmptyWaypointsEncodeAsArray(t *testing.T) {
	_, ts, _ := newTestServer(t, 8)
	id := createSession(t, ts.URL, nil).ID

	var raw map[string]json.RawMessage
	obs := route.Observation{Position: at(0, 0, 0), Tick: 0, Context: overworld, Alive: true}
	require.Equal(t, http.StatusOK, do(t, "POST", ts.URL+"/api/sessions/"+id+"/tick", obs, &raw))
	assert.JSONEq(t, `[]`, string(raw["waypoints"]))
	assert.NotContains(t, raw, "overlay")
}

func TestDebugOverlay(t *testing.T) {
	_, ts, _ := newTestServer(t, 8)
	id := createSession(t, ts.URL, nil).ID

	for i := 0; i < 4; i++ {
		tick(t, ts.URL, id, route.Observation{Position: at(float64(i*10), 0, 0), Tick: int64(i), Context: overworld, Alive: true})
	}

	var overlay struct {
		Points []math64.Vector3 `json:"points"`
		Count  int              `json:"count"`
	}
	require.Equal(t, http.StatusOK, do(t, "GET", ts.URL+"/api/sessions/"+id+"/overlay", nil, &overlay))
	assert.Equal(t, 0, overlay.Count)
	assert.Empty(t, overlay.Points)

	var toggled map[string]bool
	require.Equal(t, http.StatusOK, do(t, "POST", ts.URL+"/api/sessions/"+id+"/debug", nil, &toggled))
	assert.True(t, toggled["debug"])

	require.Equal(t, http.StatusOK, do(t, "GET", ts.URL+"/api/sessions/"+id+"/overlay", nil, &overlay))
	assert.Equal(t, 4, overlay.Count)

	resp := tick(t, ts.URL, id, route.Observation{Position: at(40, 0, 0), Tick: 4, Context: overworld, Alive: true})
	assert.Len(t, resp.Overlay, 5)
	assert.True(t, resp.Status.Debug)
}

func TestServerKeySelectsPersistKey(t *testing.T) {
	_, ts, p := newTestServer(t, 8)
	created := createSession(t, ts.URL, CreateSessionRequest{Server: "play.example.com:25565"})
	assert.Equal(t, "play.example.com_25565", created.PersistKey)

	tick(t, ts.URL, created.ID, route.Observation{Position: at(0, 0, 0), Context: overworld, Alive: true})
	assert.Equal(t, http.StatusNoContent, do(t, "DELETE", ts.URL+"/api/sessions/"+created.ID, nil, nil))
	assert.True(t, p.has("play.example.com_25565"))
}

func TestEvictionSavesSession(t *testing.T) {
	s, ts, p := newTestServer(t, 1)

	first := createSession(t, ts.URL, CreateSessionRequest{Server: "first"})
	tick(t, ts.URL, first.ID, route.Observation{Position: at(0, 0, 0), Context: overworld, Alive: true})
	assert.False(t, p.has("first"))

	second := createSession(t, ts.URL, nil)
	assert.True(t, p.has("first"), "evicted session is saved")
	assert.Equal(t, 1, s.sessions.len())

	assert.Equal(t, http.StatusNotFound, do(t, "GET", ts.URL+"/api/sessions/"+first.ID+"/status", nil, nil))
	assert.Equal(t, http.StatusOK, do(t, "GET", ts.URL+"/api/sessions/"+second.ID+"/status", nil, nil))
}

func TestClosedSessionRejectsRequests(t *testing.T) {
	s, ts, p := newTestServer(t, 1)
	first := createSession(t, ts.URL, CreateSessionRequest{Server: "late"})
	tick(t, ts.URL, first.ID, route.Observation{Position: at(0, 0, 0), Context: overworld, Alive: true})

	// a request that looked the session up just before it was evicted
	sess, ok := s.sessions.get(first.ID)
	require.True(t, ok)
	createSession(t, ts.URL, nil)
	require.True(t, p.has("late"))
	assert.False(t, sess.acquire())

	// closed while still reachable through the table
	second := createSession(t, ts.URL, nil)
	sess, ok = s.sessions.get(second.ID)
	require.True(t, ok)
	require.NoError(t, s.close(sess))

	obs := route.Observation{Position: at(0, 0, 0), Context: overworld, Alive: true}
	assert.Equal(t, http.StatusNotFound, do(t, "POST", ts.URL+"/api/sessions/"+second.ID+"/tick", obs, nil))
	assert.Equal(t, http.StatusNotFound, do(t, "GET", ts.URL+"/api/sessions/"+second.ID+"/status", nil, nil))
	assert.Equal(t, http.StatusNotFound, do(t, "POST", ts.URL+"/api/sessions/"+second.ID+"/clear", nil, nil))
}

func TestCloseFlushesSessions(t *testing.T) {
	s, ts, p := newTestServer(t, 8)
	created := createSession(t, ts.URL, CreateSessionRequest{Server: "flush"})
	tick(t, ts.URL, created.ID, route.Observation{Position: at(0, 0, 0), Context: overworld, Alive: true})

	require.NoError(t, s.Close())
	assert.True(t, p.has("flush"))
	assert.Equal(t, 0, s.sessions.len())
}

func TestBadRequests(t *testing.T) {
	_, ts, _ := newTestServer(t, 8)
	id := createSession(t, ts.URL, nil).ID

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown session tick", "POST", "/api/sessions/nope/tick", `{}`, http.StatusNotFound},
		{"unknown session delete", "DELETE", "/api/sessions/nope", "", http.StatusNotFound},
		{"malformed tick", "POST", "/api/sessions/" + id + "/tick", `{"position":`, http.StatusBadRequest},
		{"malformed create", "POST", "/api/sessions", `[1,`, http.StatusBadRequest},
		{"wrong method", "GET", "/api/sessions/" + id + "/tick", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.URL+tt.path, bytes.NewBufferString(tt.body))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts, _ := newTestServer(t, 8)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "breadcrumbs_goal_reached_total")
}

func TestCORSPreflight(t *testing.T) {
	s := New(Config{MaxSessions: 1, AllowedOrigins: []string{"http://localhost:3000"}}, route.DefaultOptions(), nil, nil)

	req := httptest.NewRequest("OPTIONS", "/api/sessions", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSessionTableOrder(t *testing.T) {
	var evicted []string
	table := newSessionTable(2, func(s *session) { evicted = append(evicted, s.id) })

	table.put(&session{id: "a"})
	table.put(&session{id: "b"})
	_, ok := table.get("a")
	require.True(t, ok)
	table.put(&session{id: "c"})

	assert.Equal(t, []string{"b"}, evicted)
	_, ok = table.get("b")
	assert.False(t, ok)

	_, ok = table.remove("a")
	assert.True(t, ok)
	assert.Equal(t, []string{"b"}, evicted, "remove does not evict")

	drained := table.drain()
	require.Len(t, drained, 1)
	assert.Equal(t, "c", drained[0].id)
	assert.Equal(t, 0, table.len())
}
