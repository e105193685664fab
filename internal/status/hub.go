package status

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const writeTimeout = 5 * time.Second

// Hub fans availability snapshots out to websocket subscribers.
type Hub struct {
	allowedOrigins []string
	isDev          bool

	mu   sync.Mutex
	subs map[chan Snapshot]struct{}
	last Snapshot
}

// NewHub creates a hub accepting connections from allowedOrigins. "*" allows
// any origin.
func NewHub(allowedOrigins []string, isDev bool) *Hub {
	return &Hub{
		allowedOrigins: allowedOrigins,
		isDev:          isDev,
		subs:           make(map[chan Snapshot]struct{}),
	}
}

// Publish records snap and delivers it to every subscriber. A slow subscriber
// only ever sees the newest snapshot.
func (h *Hub) Publish(snap Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.last = snap
	for ch := range h.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) subscribe() (chan Snapshot, Snapshot) {
	ch := make(chan Snapshot, 1)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[ch] = struct{}{}
	return ch, h.last
}

func (h *Hub) unsubscribe(ch chan Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, ch)
}

// ServeHTTP upgrades to a websocket and streams snapshots until the client
// goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept status websocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "bye"); closeErr != nil {
			slog.Debug("Failed to close status websocket", "error", closeErr)
		}
	}()

	// Clients never send; CloseRead cancels ctx once they disconnect.
	ctx := ws.CloseRead(r.Context())

	ch, last := h.subscribe()
	defer h.unsubscribe(ch)

	if last.Checked {
		if err := writeJSON(ctx, ws, last); err != nil {
			slog.Debug("Failed to send initial status", "error", err)
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-ch:
			if err := writeJSON(ctx, ws, snap); err != nil {
				slog.Debug("Failed to push status", "error", err)
				return
			}
		}
	}
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	slog.Warn("Status websocket origin rejected", "origin", origin)
	return false
}

func writeJSON(ctx context.Context, ws *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}
