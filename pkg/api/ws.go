package api

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"autopeer/pkg/auth"
)

// Event is a lifecycle notification pushed to a peer's subscribed
// connections: status transitions (verified, deployed, inactive, deleted)
// the peer's own dashboard can react to without polling.
type Event struct {
	Type   string `json:"type"`
	ASN    uint32 `json:"asn"`
	Status string `json:"status,omitempty"`
}

// EventHub fans lifecycle events out to the websocket connections a peer
// has open, keyed by the ASN its token authenticated as.
type EventHub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	conns    map[uint32]map[*websocket.Conn]struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: map[uint32]map[*websocket.Conn]struct{}{},
	}
}

// HandleWS upgrades the connection and subscribes it to events for the
// ASN the caller's token authenticates as.
func (h *EventHub) HandleWS(jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := auth.Parse(extractToken(r), jwtSecret)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("ws upgrade failed asn=%d err=%v", claims.ASN, err)
			return
		}
		h.subscribe(claims.ASN, conn)
		go h.readLoop(claims.ASN, conn)
	}
}

func (h *EventHub) subscribe(asn uint32, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[asn] == nil {
		h.conns[asn] = map[*websocket.Conn]struct{}{}
	}
	h.conns[asn][conn] = struct{}{}
}

func (h *EventHub) readLoop(asn uint32, conn *websocket.Conn) {
	defer h.unsubscribe(asn, conn)
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *EventHub) unsubscribe(asn uint32, conn *websocket.Conn) {
	conn.Close()
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.conns[asn]; ok {
		delete(subs, conn)
		if len(subs) == 0 {
			delete(h.conns, asn)
		}
	}
}

// Publish sends event to every connection subscribed to its ASN.
func (h *EventHub) Publish(event Event) {
	h.mu.RLock()
	subs := h.conns[event.ASN]
	h.mu.RUnlock()
	for conn := range subs {
		if err := conn.WriteJSON(event); err != nil {
			go h.unsubscribe(event.ASN, conn)
		}
	}
}
