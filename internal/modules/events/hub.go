package events

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 16
)

// client owns one websocket connection. Only its writer goroutine touches
// conn for writes.
type client struct {
	userID string
	conn   *websocket.Conn
	send   chan Event
	once   sync.Once
}

func (cl *client) close() {
	cl.once.Do(func() {
		close(cl.send)
	})
}

// Hub fans events out to every connection of a user. A user may hold
// several connections (tabs, devices).
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
	log     zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*client]struct{}),
		log:     log,
	}
}

func (h *Hub) register(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[cl.userID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[cl.userID] = set
	}
	set[cl] = struct{}{}
}

func (h *Hub) unregister(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.clients[cl.userID]; ok {
		if _, present := set[cl]; present {
			delete(set, cl)
			cl.close()
		}
		if len(set) == 0 {
			delete(h.clients, cl.userID)
		}
	}
}

// Publish queues e for every connection of userID. A connection whose buffer
// is full is dropped rather than waited on.
func (h *Hub) Publish(userID string, e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	h.mu.RLock()
	var stalled []*client
	for cl := range h.clients[userID] {
		select {
		case cl.send <- e:
		default:
			stalled = append(stalled, cl)
		}
	}
	h.mu.RUnlock()

	for _, cl := range stalled {
		h.log.Warn().Str("user_id", userID).Msg("dropping slow event subscriber")
		h.unregister(cl)
	}
}

// Connections returns the number of live connections for userID.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, set := range h.clients {
		for cl := range set {
			cl.close()
		}
		delete(h.clients, userID)
	}
}

func (h *Hub) writeLoop(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()

	for {
		select {
		case e, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteJSON(e); err != nil {
				h.log.Debug().Err(err).Str("user_id", cl.userID).Msg("event write failed")
				h.unregister(cl)
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(cl)
				return
			}
		}
	}
}

// readLoop only services control frames; clients have nothing to say.
func (h *Hub) readLoop(cl *client) {
	defer h.unregister(cl)

	cl.conn.SetReadLimit(512)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug().Err(err).Str("user_id", cl.userID).Msg("event socket closed")
			}
			return
		}
	}
}
