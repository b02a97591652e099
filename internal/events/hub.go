// Package events broadcasts record lifecycle transitions to websocket
// subscribers. Delivery is best-effort; a slow or dead subscriber is dropped,
// never waited on.
package events

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type Type string

const (
	RequestCreated  Type = "payment_request.created"
	RequestPaid     Type = "payment_request.paid"
	ChargeCreated   Type = "scheduled_charge.created"
	ChargeExecuted  Type = "scheduled_charge.executed"
	ChargeCancelled Type = "scheduled_charge.cancelled"
)

type Event struct {
	ID     uuid.UUID `json:"id"`
	Type   Type      `json:"type"`
	Ref    string    `json:"ref"`
	At     int64     `json:"at"`
	Amount string    `json:"amount,omitempty"`
	Asset  string    `json:"asset,omitempty"`
	Status string    `json:"status,omitempty"`
}

type Hub struct {
	mu   sync.Mutex
	subs map[*websocket.Conn]struct{}

	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Publish fans the event out to all subscribers. A nil hub is a no-op so
// callers don't have to guard every publish site.
func (h *Hub) Publish(ev Event) {
	if h == nil {
		return
	}
	if ev.ID == (uuid.UUID{}) {
		ev.ID = uuid.New()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.subs {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(ev); err != nil {
			delete(h.subs, conn)
			_ = conn.Close()
		}
	}
}

// Handle upgrades the request and keeps the subscription open until the peer
// goes away. Inbound frames are read and discarded to service control frames.
func (h *Hub) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.subs[conn] = struct{}{}
	h.mu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.subs, conn)
	h.mu.Unlock()
	_ = conn.Close()
}
