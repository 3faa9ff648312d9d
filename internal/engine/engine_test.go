package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemetry_dashboard/internal/config"
	"telemetry_dashboard/internal/coordinator"
	"telemetry_dashboard/internal/logger"
	"telemetry_dashboard/internal/models"
	"telemetry_dashboard/internal/store"
	"telemetry_dashboard/internal/transport"
)

const waitFor = 3 * time.Second

// telemetryServer serves the HTTP resources and the /events socket.
type telemetryServer struct {
	srv      *httptest.Server
	controls chan models.ControlMessage
	accepted atomic.Int32

	mu   sync.Mutex
	conn *websocket.Conn
}

func newTelemetryServer(t *testing.T) *telemetryServer {
	t.Helper()
	ts := &telemetryServer{controls: make(chan models.ControlMessage, 32)}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/map/config", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"minZoom":10,"maxZoom":18,"type":"PNG","withGeoJson":true}`))
	})
	mux.HandleFunc("/api/map/geojson", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
	})
	mux.HandleFunc("/api/gps", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"position":{"latitude":1,"longitude":2},"meta":{"numSatellites":4}}`))
	})
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"cpuTemperature":40,"memTotal":100,"memFree":80,"discTotal":100,"discFree":80}`))
	})
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ts.mu.Lock()
		ts.conn = conn
		ts.mu.Unlock()
		ts.accepted.Add(1)
		for {
			var msg models.ControlMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			ts.controls <- msg
		}
	})
	ts.srv = httptest.NewServer(mux)
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *telemetryServer) push(t *testing.T, typ string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	ts.mu.Lock()
	defer ts.mu.Unlock()
	require.NoError(t, ts.conn.WriteJSON(models.EventEnvelope{Type: typ, Event: raw}))
}

func (ts *telemetryServer) dropConnection() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	_ = ts.conn.Close()
}

func (ts *telemetryServer) nextControls(t *testing.T, n int) []models.ControlMessage {
	t.Helper()
	out := make([]models.ControlMessage, 0, n)
	for len(out) < n {
		select {
		case msg := <-ts.controls:
			out = append(out, msg)
		case <-time.After(waitFor):
			t.Fatalf("got %d control messages, want %d", len(out), n)
		}
	}
	return out
}

func testConfig(baseURL string) config.Dashboard {
	return config.Dashboard{
		BaseURL:        baseURL,
		EventsPath:     "/events",
		PollInterval:   30 * time.Millisecond,
		DialTimeout:    time.Second,
		RequestTimeout: time.Second,
	}
}

func startEngine(t *testing.T, e *Engine) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	return func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(waitFor):
			t.Fatal("engine did not stop")
		}
	}
}

func TestEngine_MountLoadsConnectsAndSubscribes(t *testing.T) {
	ts := newTelemetryServer(t)
	cfg := testConfig(ts.srv.URL)
	// a poll reload must not race the pushed position below
	cfg.PollInterval = time.Minute
	e, err := New(cfg, Options{Log: logger.Nop(), Registerer: prometheus.NewRegistry()})
	require.NoError(t, err)
	stop := startEngine(t, e)

	require.True(t, e.Mount(coordinator.GPS))
	require.Eventually(t, func() bool {
		st := e.State()
		return store.IsConnected(st) && store.MapConfig(st) != nil &&
			store.GeoJSON(st) != nil && store.Position(st) != nil
	}, waitFor, 10*time.Millisecond)
	assert.False(t, store.ShowNoConnection(e.State()))
	assert.Equal(t, 4, store.MetaInfo(e.State()).NumSatellites)

	assert.Equal(t, []models.ControlMessage{
		models.SubscribeMessage(models.GPSPositionChangeEvent),
		models.SubscribeMessage(models.GPSMetaInfoChangeEvent),
	}, ts.nextControls(t, 2))

	ts.push(t, models.GPSPositionChangeEvent, map[string]any{"location": map[string]any{"latitude": 10.5}})
	require.Eventually(t, func() bool {
		p := store.Position(e.State())
		return p != nil && p.Latitude == 10.5
	}, waitFor, 10*time.Millisecond)
	assert.Equal(t, 4, store.MetaInfo(e.State()).NumSatellites, "meta untouched by position update")

	require.True(t, e.SwitchScreen(coordinator.Health))
	assert.ElementsMatch(t, []models.ControlMessage{
		models.SubscribeMessage(models.HealthStatusChangeEvent),
		models.UnsubscribeMessage(models.GPSPositionChangeEvent),
		models.UnsubscribeMessage(models.GPSMetaInfoChangeEvent),
	}, ts.nextControls(t, 3))
	require.Eventually(t, func() bool { return store.IsHealthOK(e.State()) }, waitFor, 10*time.Millisecond)

	stop()
	assert.Equal(t, []models.ControlMessage{
		models.UnsubscribeMessage(models.HealthStatusChangeEvent),
	}, ts.nextControls(t, 1))
	assert.False(t, store.IsConnected(e.State()))
}

func TestEngine_ReconnectsAfterConnectionLoss(t *testing.T) {
	ts := newTelemetryServer(t)
	e, err := New(testConfig(ts.srv.URL), Options{})
	require.NoError(t, err)
	stop := startEngine(t, e)
	defer stop()

	e.Mount(coordinator.Health)
	require.Eventually(t, func() bool { return store.IsConnected(e.State()) }, waitFor, 10*time.Millisecond)
	ts.nextControls(t, 1)

	ts.dropConnection()
	require.Eventually(t, func() bool {
		return ts.accepted.Load() >= 2 && store.IsConnected(e.State())
	}, waitFor, 10*time.Millisecond)

	assert.Equal(t, []models.ControlMessage{
		models.SubscribeMessage(models.HealthStatusChangeEvent),
	}, ts.nextControls(t, 1))
}

// countingScheduler counts armed poll timers.
type countingScheduler struct {
	armed atomic.Int32
	inner coordinator.RealScheduler
}

func (s *countingScheduler) AfterFunc(d time.Duration, fn func()) coordinator.Timer {
	s.armed.Add(1)
	return s.inner.AfterFunc(d, fn)
}

func TestEngine_PollsWhileServerIsDown(t *testing.T) {
	ts := newTelemetryServer(t)
	base := ts.srv.URL
	ts.srv.Close()

	sched := &countingScheduler{}
	e, err := New(testConfig(base), Options{Scheduler: sched})
	require.NoError(t, err)
	sched.inner.Post = func(fn func()) { e.Do(fn) }
	stop := startEngine(t, e)
	defer stop()

	e.Mount(coordinator.Map)
	require.Eventually(t, func() bool { return sched.armed.Load() >= 3 }, waitFor, 10*time.Millisecond)
	assert.True(t, store.ShowNoConnection(e.State()))
	assert.Nil(t, store.MapConfig(e.State()))
}

func TestEngine_IgnoresStaleTransportEvents(t *testing.T) {
	e, err := New(testConfig("http://127.0.0.1:1"), Options{})
	require.NoError(t, err)

	e.onTransport(transport.Event{Kind: transport.EventConnected, Generation: 7})
	e.onTransport(transport.Event{Kind: transport.EventDisconnected, Generation: 3})
	e.onTransport(transport.Event{
		Kind:       transport.EventEnvelope,
		Generation: 7,
		Envelope: models.EventEnvelope{
			Type:  models.GPSMetaInfoChangeEvent,
			Event: json.RawMessage(`{"metaInfo":{"numSatellites":9}}`),
		},
	})

	st := e.State()
	assert.Equal(t, uint64(0), st.Version)
	assert.Equal(t, models.Disconnected, store.ConnectionStatus(st))
}

func TestEngine_SupersededSocketCloseKeepsConnection(t *testing.T) {
	ts := newTelemetryServer(t)
	cfg := testConfig(ts.srv.URL)
	cfg.PollInterval = time.Minute
	sched := &countingScheduler{}
	e, err := New(cfg, Options{Scheduler: sched})
	require.NoError(t, err)
	sched.inner.Post = func(fn func()) { e.Do(fn) }
	stop := startEngine(t, e)
	defer stop()

	e.Mount(coordinator.Health)
	require.Eventually(t, func() bool { return store.IsConnected(e.State()) }, waitFor, 10*time.Millisecond)

	require.True(t, e.Do(e.transport.Connect))
	require.Eventually(t, func() bool {
		return ts.accepted.Load() >= 2 && e.transport.Generation() == 2 && store.IsConnected(e.State())
	}, waitFor, 10*time.Millisecond)

	type result struct {
		status  models.ConnectionStatus
		polling bool
		armed   int32
	}
	results := make(chan [2]result, 1)
	require.True(t, e.Do(func() {
		before := result{store.ConnectionStatus(e.State()), e.coord.Polling(), sched.armed.Load()}
		e.onTransport(transport.Event{Kind: transport.EventDisconnected, Generation: 1})
		after := result{store.ConnectionStatus(e.State()), e.coord.Polling(), sched.armed.Load()}
		results <- [2]result{before, after}
	}))

	select {
	case r := <-results:
		assert.Equal(t, models.Connected, r[0].status)
		assert.Equal(t, models.Connected, r[1].status, "late close of generation 1 must not demote generation 2")
		assert.False(t, r[1].polling)
		assert.Equal(t, r[0].armed, r[1].armed, "no poll timer armed")
	case <-time.After(waitFor):
		t.Fatal("loop did not run the check")
	}
}

func TestEngine_RunOnce(t *testing.T) {
	e, err := New(testConfig("http://127.0.0.1:1"), Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, e.Run(ctx))
	assert.ErrorIs(t, e.Run(context.Background()), ErrAlreadyRunning)
	assert.False(t, e.Do(func() {}), "stopped engine rejects tasks")
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	_, err := New(config.Dashboard{BaseURL: "ftp://host"}, Options{})
	assert.Error(t, err)
}
