package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "telemetry"

// Engine instruments the dashboard's synchronization engine. A nil *Engine
// is valid and records nothing.
type Engine struct {
	frames          *prometheus.CounterVec
	decodeFailures  prometheus.Counter
	connects        prometheus.Counter
	disconnects     prometheus.Counter
	polls           prometheus.Counter
	requestFailures *prometheus.CounterVec
	connected       prometheus.Gauge
	up              atomic.Bool
}

// NewEngine creates and registers the engine collectors on reg.
func NewEngine(reg prometheus.Registerer) *Engine {
	m := &Engine{
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "engine", Name: "frames_total",
			Help: "Inbound event envelopes by type.",
		}, []string{"type"}),
		decodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "engine", Name: "decode_failures_total",
			Help: "Inbound frames or payloads that could not be decoded.",
		}),
		connects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "engine", Name: "connect_attempts_total",
			Help: "Socket connect attempts.",
		}),
		disconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "engine", Name: "disconnects_total",
			Help: "Drops of an established socket connection.",
		}),
		polls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "engine", Name: "polls_total",
			Help: "Poll fallback ticks while disconnected.",
		}),
		requestFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "engine", Name: "request_failures_total",
			Help: "Failed HTTP requests by resource.",
		}, []string{"resource"}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "engine", Name: "connected",
			Help: "1 while the socket is connected.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.frames, m.decodeFailures, m.connects, m.disconnects,
			m.polls, m.requestFailures, m.connected)
	}
	return m
}

// FrameReceived counts one inbound envelope.
func (m *Engine) FrameReceived(eventType string) {
	if m != nil {
		m.frames.WithLabelValues(eventType).Inc()
	}
}

// DecodeFailed counts an undecodable frame or payload.
func (m *Engine) DecodeFailed() {
	if m != nil {
		m.decodeFailures.Inc()
	}
}

// ConnectAttempted counts a socket dial.
func (m *Engine) ConnectAttempted() {
	if m != nil {
		m.connects.Inc()
	}
}

// Polled counts one poll tick.
func (m *Engine) Polled() {
	if m != nil {
		m.polls.Inc()
	}
}

// RequestFailed counts a failed request for resource.
func (m *Engine) RequestFailed(resource string) {
	if m != nil {
		m.requestFailures.WithLabelValues(resource).Inc()
	}
}

// SetConnected tracks the connection gauge. Only a connected socket going
// down counts as a drop; failed dials do not.
func (m *Engine) SetConnected(up bool) {
	if m == nil {
		return
	}
	wasUp := m.up.Swap(up)
	if up {
		m.connected.Set(1)
		return
	}
	m.connected.Set(0)
	if wasUp {
		m.disconnects.Inc()
	}
}

// Server instruments telemetryd's event hub. A nil *Server records nothing.
type Server struct {
	clients       prometheus.Gauge
	published     *prometheus.CounterVec
	subscriptions *prometheus.GaugeVec
}

// NewServer creates and registers the server collectors on reg.
func NewServer(reg prometheus.Registerer) *Server {
	m := &Server{
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "hub", Name: "clients",
			Help: "Connected event socket clients.",
		}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "hub", Name: "events_published_total",
			Help: "Events delivered to subscribers, by type.",
		}, []string{"type"}),
		subscriptions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "hub", Name: "subscriptions",
			Help: "Active subscriptions by event type.",
		}, []string{"type"}),
	}
	if reg != nil {
		reg.MustRegister(m.clients, m.published, m.subscriptions)
	}
	return m
}

// ClientConnected counts a new socket client.
func (m *Server) ClientConnected() {
	if m != nil {
		m.clients.Inc()
	}
}

// ClientDisconnected counts a client going away.
func (m *Server) ClientDisconnected() {
	if m != nil {
		m.clients.Dec()
	}
}

// Published counts one event delivered to n clients.
func (m *Server) Published(eventType string, n int) {
	if m != nil && n > 0 {
		m.published.WithLabelValues(eventType).Add(float64(n))
	}
}

// SetSubscriptions sets the subscriber gauge for eventType.
func (m *Server) SetSubscriptions(eventType string, n int) {
	if m != nil {
		m.subscriptions.WithLabelValues(eventType).Set(float64(n))
	}
}

// Handler exposes the collectors gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
