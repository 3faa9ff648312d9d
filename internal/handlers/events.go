package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"telemetry_dashboard/internal/logger"
	"telemetry_dashboard/internal/metrics"
	"telemetry_dashboard/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = (pongWait * 9) / 10
	maxMsgSize  = 1 << 12 // 4 KB
	sendBufSize = 64
)

// eventFrame is the outbound frame, {"type": name, "event": payload}.
type eventFrame struct {
	Type  string `json:"type"`
	Event any    `json:"event"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type client struct {
	id   string
	send chan []byte
	subs map[string]bool
}

// Hub fans published events out to the socket clients subscribed to their
// type. It implements service.Publisher.
type Hub struct {
	log *logger.Logger
	m   *metrics.Server

	mu      sync.RWMutex
	clients map[string]*client
}

// NewHub constructs an empty event hub.
func NewHub(log *logger.Logger, m *metrics.Server) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{log: log, m: m, clients: make(map[string]*client)}
}

// Publish delivers event to every subscriber of eventType. Clients whose
// buffer is full miss the event.
func (hub *Hub) Publish(eventType string, event any) {
	data, err := json.Marshal(eventFrame{Type: eventType, Event: event})
	if err != nil {
		hub.log.Errorw("hub_marshal_failed", "err", err, "type", eventType)
		return
	}

	delivered := 0
	hub.mu.RLock()
	for _, cl := range hub.clients {
		if !cl.subs[eventType] {
			continue
		}
		select {
		case cl.send <- data:
			delivered++
		default:
			hub.log.Warnw("hub_client_slow", "client", cl.id, "type", eventType)
		}
	}
	hub.mu.RUnlock()

	hub.m.Published(eventType, delivered)
}

// Clients returns the number of connected clients.
func (hub *Hub) Clients() int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.clients)
}

// Subscribers returns the number of clients subscribed to eventType.
func (hub *Hub) Subscribers(eventType string) int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return hub.countLocked(eventType)
}

func (hub *Hub) countLocked(eventType string) int {
	n := 0
	for _, cl := range hub.clients {
		if cl.subs[eventType] {
			n++
		}
	}
	return n
}

func (hub *Hub) register() *client {
	cl := &client{
		id:   uuid.NewString(),
		send: make(chan []byte, sendBufSize),
		subs: make(map[string]bool),
	}
	hub.mu.Lock()
	hub.clients[cl.id] = cl
	hub.m.ClientConnected()
	hub.mu.Unlock()
	return cl
}

// unregister drops cl and closes its send channel. Publish never sends to a
// removed client because both run under mu.
func (hub *Hub) unregister(cl *client) {
	hub.mu.Lock()
	delete(hub.clients, cl.id)
	close(cl.send)
	for t := range cl.subs {
		hub.m.SetSubscriptions(t, hub.countLocked(t))
	}
	hub.m.ClientDisconnected()
	hub.mu.Unlock()
}

func (hub *Hub) setSubscribed(cl *client, eventType string, on bool) {
	hub.mu.Lock()
	if on {
		cl.subs[eventType] = true
	} else {
		delete(cl.subs, eventType)
	}
	hub.m.SetSubscriptions(eventType, hub.countLocked(eventType))
	hub.mu.Unlock()
}

// Serve upgrades the request and runs the client until either side closes.
func (hub *Hub) Serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.log.Errorw("ws_upgrade_failed", "err", err)
		return
	}

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	cl := hub.register()
	hub.log.Infow("ws_client_connected", "client", cl.id, "remote", c.Request.RemoteAddr)

	done := make(chan struct{})
	go hub.writeLoop(conn, cl, done)

	hub.readLoop(conn, cl)
	hub.unregister(cl)
	<-done
	_ = conn.Close()
	hub.log.Infow("ws_client_disconnected", "client", cl.id)
}

// readLoop applies SUBSCRIBE/UNSUBSCRIBE requests until the socket fails.
func (hub *Hub) readLoop(conn *websocket.Conn, cl *client) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			hub.log.Infow("ws_read_closed", "client", cl.id, "err", err)
			return
		}

		var msg models.ControlMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			hub.log.Warnw("ws_bad_control_message", "client", cl.id, "err", err)
			continue
		}
		switch {
		case msg.Subscribe != "":
			hub.apply(cl, msg.Subscribe, true)
		case msg.Unsubscribe != "":
			hub.apply(cl, msg.Unsubscribe, false)
		default:
			hub.log.Warnw("ws_empty_control_message", "client", cl.id)
		}
	}
}

func (hub *Hub) apply(cl *client, eventType string, on bool) {
	if !models.IsEventType(eventType) {
		hub.log.Warnw("ws_unknown_event_type", "client", cl.id, "type", eventType)
		return
	}
	hub.setSubscribed(cl, eventType, on)
	hub.log.Debugw("ws_subscription", "client", cl.id, "type", eventType, "subscribed", on)
}

// writeLoop drains the send channel and keeps the connection alive with pings.
func (hub *Hub) writeLoop(conn *websocket.Conn, cl *client, done chan<- struct{}) {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		close(done)
	}()

	for {
		select {
		case data, ok := <-cl.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				hub.log.Infow("ws_write_failed", "client", cl.id, "err", err)
				// unblock the reader
				_ = conn.Close()
				hub.drain(cl)
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				hub.log.Infow("ws_ping_failed", "client", cl.id, "err", err)
				_ = conn.Close()
				hub.drain(cl)
				return
			}
		}
	}
}

// drain discards frames until unregister closes the channel.
func (hub *Hub) drain(cl *client) {
	for range cl.send {
	}
}
