package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quietmark/quietmark/server/internal/alerts"
	"github.com/quietmark/quietmark/server/internal/api"
	"github.com/quietmark/quietmark/server/internal/store"
)

const (
	// writeWait is the deadline for a single write to a subscriber.
	writeWait = 10 * time.Second

	// pongWait is how long a subscriber may go without answering a ping
	// before its connection is considered dead. pingEvery must stay below it.
	pongWait  = 60 * time.Second
	pingEvery = 45 * time.Second

	// outboxSize is the per-subscriber outgoing buffer depth. A subscriber
	// that falls this many broadcasts behind is dropped.
	outboxSize = 8
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Origin checks belong at the reverse proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the envelope pushed to every subscriber on each broadcast.
// Alerts carries the currently firing alerts so a dashboard can flag slow
// pages without a second request.
type Message struct {
	Event  string               `json:"event"`
	Data   api.SnapshotResponse `json:"data"`
	Alerts []*alerts.Alert      `json:"alerts"`
}

// Hub pushes the live audit snapshot to WebSocket subscribers on a fixed
// interval. Dashboards connect once and stay current without polling.
type Hub struct {
	store    *store.Store
	alerts   *alerts.Engine
	interval time.Duration

	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

type subscriber struct {
	conn   *websocket.Conn
	outbox chan []byte
}

// New creates a Hub reading page scores from st and firing alerts from al.
func New(st *store.Store, al *alerts.Engine, interval time.Duration) *Hub {
	return &Hub{
		store:    st,
		alerts:   al,
		interval: interval,
		subs:     make(map[*subscriber]struct{}),
	}
}

// Run drives the broadcast ticker until ctx is cancelled, then disconnects
// every subscriber.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for s := range h.subs {
				close(s.outbox)
				delete(h.subs, s)
			}
			h.mu.Unlock()
			return
		case <-t.C:
			if payload, err := h.snapshot(); err == nil {
				h.broadcast(payload)
			}
		}
	}
}

// ServeHTTP upgrades the request and serves the subscriber until it
// disconnects. The current snapshot is sent immediately on connect so the
// client does not wait out the first tick.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader already wrote the error response.
		return
	}

	s := &subscriber{conn: conn, outbox: make(chan []byte, outboxSize)}
	if payload, err := h.snapshot(); err == nil {
		s.offer(payload)
	}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	defer h.drop(s)

	go s.writeLoop()
	s.readLoop() // blocks until the connection closes
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) snapshot() ([]byte, error) {
	return json.Marshal(Message{
		Event:  "audit_snapshot",
		Data:   api.BuildSnapshot(h.store),
		Alerts: h.alerts.Active(),
	})
}

func (h *Hub) broadcast(payload []byte) {
	h.mu.RLock()
	stale := make([]*subscriber, 0)
	for s := range h.subs {
		if !s.offer(payload) {
			stale = append(stale, s)
		}
	}
	h.mu.RUnlock()

	// Subscribers whose outbox filled up are not keeping pace. Drop them
	// rather than block the broadcast.
	for _, s := range stale {
		h.drop(s)
	}
}

func (h *Hub) drop(s *subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.outbox)
	}
	h.mu.Unlock()
}

// offer enqueues payload without blocking and reports whether it fit.
func (s *subscriber) offer(payload []byte) bool {
	select {
	case s.outbox <- payload:
		return true
	default:
		return false
	}
}

// writeLoop forwards queued payloads to the connection and keeps it alive
// with pings. One goroutine per subscriber.
func (s *subscriber) writeLoop() {
	pinger := time.NewTicker(pingEvery)
	defer func() {
		pinger.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-s.outbox:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-pinger.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop consumes control frames (pong, close) and detects disconnects.
// Inbound data frames are ignored; the stream is one-way.
func (s *subscriber) readLoop() {
	defer s.conn.Close()
	s.conn.SetReadLimit(512)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}
