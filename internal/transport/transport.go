package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"telemetry_dashboard/internal/logger"
	"telemetry_dashboard/internal/metrics"
	"telemetry_dashboard/internal/models"
)

// Socket timing and message size limits.
const (
	writeWait          = 10 * time.Second
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 9) / 10
	maxMsgSize         = 1 << 20 // tracks can be large
	defaultDialTimeout = 5 * time.Second
)

// EventKind classifies a transport event.
type EventKind int

const (
	EventConnecting EventKind = iota
	EventConnected
	EventDisconnected
	EventEnvelope
)

func (k EventKind) String() string {
	switch k {
	case EventConnecting:
		return "connecting"
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventEnvelope:
		return "envelope"
	default:
		return "unknown"
	}
}

// Event is emitted for every socket lifecycle change and every decoded frame.
// Generation identifies the socket instance it belongs to.
type Event struct {
	Kind       EventKind
	Generation uint64
	Envelope   models.EventEnvelope
}

// Listener receives transport events. Events raised by Connect and Disconnect
// are delivered synchronously on the caller's goroutine; events raised by the
// socket itself go through the Executor.
type Listener func(Event)

// Executor runs fn, typically by posting it onto the owner's event loop.
type Executor func(fn func())

// Options configure a Transport.
type Options struct {
	URL         string
	Header      http.Header
	DialTimeout time.Duration
	Executor    Executor
	Log         *logger.Logger
	Metrics     *metrics.Engine
}

// Transport owns at most one live socket to the telemetry endpoint.
type Transport struct {
	url      string
	header   http.Header
	dialer   *websocket.Dialer
	listener Listener
	exec     Executor
	log      *logger.Logger
	metrics  *metrics.Engine

	mu  sync.Mutex
	gen uint64
	cur *socket
}

// socket is one connection attempt. It reports disconnected exactly once.
type socket struct {
	gen       uint64
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	writeMu sync.Mutex
}

// New creates a transport that reports to l.
func New(opts Options, l Listener) *Transport {
	timeout := opts.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	exec := opts.Executor
	if exec == nil {
		exec = func(fn func()) { fn() }
	}
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Transport{
		url:      opts.URL,
		header:   opts.Header,
		dialer:   &websocket.Dialer{HandshakeTimeout: timeout, Proxy: http.ProxyFromEnvironment},
		listener: l,
		exec:     exec,
		log:      log,
		metrics:  opts.Metrics,
	}
}

// Generation returns the generation of the most recent socket.
func (t *Transport) Generation() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen
}

// Live reports whether gen is the current socket and it has not been closed.
func (t *Transport) Live(gen uint64) bool {
	t.mu.Lock()
	sock := t.cur
	t.mu.Unlock()
	if sock == nil || sock.gen != gen {
		return false
	}
	sock.mu.Lock()
	defer sock.mu.Unlock()
	return !sock.closed
}

// Status reports the state of the current socket.
func (t *Transport) Status() models.ConnectionStatus {
	t.mu.Lock()
	sock := t.cur
	t.mu.Unlock()
	if sock == nil {
		return models.Disconnected
	}
	sock.mu.Lock()
	defer sock.mu.Unlock()
	switch {
	case sock.closed:
		return models.Disconnected
	case sock.conn == nil:
		return models.Connecting
	default:
		return models.Connected
	}
}

// Connect opens a new socket. A current socket is closed first and its
// disconnected event is emitted before the new dial starts.
func (t *Transport) Connect() {
	t.mu.Lock()
	old := t.cur
	t.cur = nil
	t.mu.Unlock()

	if old != nil && old.shutdown() {
		t.listener(Event{Kind: EventDisconnected, Generation: old.gen})
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.mu.Lock()
	t.gen++
	sock := &socket{gen: t.gen, cancel: cancel, done: make(chan struct{})}
	t.cur = sock
	t.mu.Unlock()

	t.metrics.ConnectAttempted()
	t.listener(Event{Kind: EventConnecting, Generation: sock.gen})
	go t.dial(ctx, sock)
}

// Disconnect closes the current socket, if any, and emits disconnected.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	sock := t.cur
	t.cur = nil
	t.mu.Unlock()

	if sock == nil {
		return
	}
	if sock.shutdown() {
		t.listener(Event{Kind: EventDisconnected, Generation: sock.gen})
	}
}

// Send writes msg as JSON on the open socket. Without an open socket the
// message is dropped and Send returns false.
func (t *Transport) Send(msg any) bool {
	t.mu.Lock()
	sock := t.cur
	t.mu.Unlock()
	if sock == nil {
		t.log.Debugw("ws_send_dropped", "reason", "no socket")
		return false
	}

	sock.mu.Lock()
	conn, closed := sock.conn, sock.closed
	sock.mu.Unlock()
	if conn == nil || closed {
		t.log.Debugw("ws_send_dropped", "reason", "socket not open", "generation", sock.gen)
		return false
	}

	b, err := json.Marshal(msg)
	if err != nil {
		t.log.Errorw("ws_send_encode_failed", "err", err)
		return false
	}

	sock.writeMu.Lock()
	defer sock.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		// teardown is left to the read loop
		t.log.Warnw("ws_write_failed", "err", err, "generation", sock.gen)
		return false
	}
	return true
}

func (t *Transport) emitAsync(ev Event) {
	t.exec(func() { t.listener(ev) })
}

func (t *Transport) dial(ctx context.Context, sock *socket) {
	conn, _, err := t.dialer.DialContext(ctx, t.url, t.header)
	if err != nil {
		t.log.Warnw("ws_dial_failed", "err", err, "url", t.url, "generation", sock.gen)
		if sock.shutdown() {
			t.emitAsync(Event{Kind: EventDisconnected, Generation: sock.gen})
		}
		return
	}

	sock.mu.Lock()
	if sock.closed {
		sock.mu.Unlock()
		_ = conn.Close()
		return
	}
	sock.conn = conn
	sock.mu.Unlock()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	t.log.Infow("ws_connected", "url", t.url, "generation", sock.gen)
	t.emitAsync(Event{Kind: EventConnected, Generation: sock.gen})

	go t.pingLoop(sock, conn)
	t.readLoop(sock, conn)
}

// readLoop decodes frames until the connection fails.
func (t *Transport) readLoop(sock *socket, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if sock.shutdown() {
				t.log.Infow("ws_read_closed", "err", err, "generation", sock.gen)
				t.emitAsync(Event{Kind: EventDisconnected, Generation: sock.gen})
			}
			return
		}

		var env models.EventEnvelope
		if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
			t.metrics.DecodeFailed()
			t.log.Warnw("ws_decode_failed", "err", err, "frame_bytes", len(data))
			continue
		}
		t.emitAsync(Event{Kind: EventEnvelope, Generation: sock.gen, Envelope: env})
	}
}

func (t *Transport) pingLoop(sock *socket, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-sock.done:
			return
		case <-ticker.C:
			sock.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			sock.writeMu.Unlock()
			if err != nil {
				t.log.Infow("ws_ping_failed", "err", err, "generation", sock.gen)
			}
		}
	}
}

// shutdown closes the socket and reports whether this call did it.
func (s *socket) shutdown() bool {
	first := false
	s.closeOnce.Do(func() {
		first = true
		s.cancel()
		close(s.done)

		s.mu.Lock()
		s.closed = true
		conn := s.conn
		s.mu.Unlock()

		if conn != nil {
			s.writeMu.Lock()
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			s.writeMu.Unlock()
			_ = conn.Close()
		}
	})
	return first
}
