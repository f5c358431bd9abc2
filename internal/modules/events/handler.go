package events

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"filevault/internal/middleware"
)

type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandler accepts upgrades from allowedOrigins, or from the request's own
// host when the list is empty.
func NewHandler(hub *Hub, allowedOrigins []string) *Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}

	up := websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024}
	if len(allowed) > 0 {
		up.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if _, ok := allowed[origin]; ok {
				return true
			}
			u, err := url.Parse(origin)
			return err == nil && u.Host == r.Host
		}
	}
	return &Handler{hub: hub, upgrader: up}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/events", h.Stream)
}

// Stream upgrades the request and subscribes it to the caller's events.
// RequireSession must run before it.
func (h *Handler) Stream(c *gin.Context) {
	sess := middleware.CurrentSession(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		_ = c.Error(err)
		return
	}

	cl := &client{userID: sess.UserID(), conn: conn, send: make(chan Event, sendBuffer)}
	h.hub.register(cl)
	h.hub.log.Debug().Str("user_id", cl.userID).Msg("event subscriber connected")

	go h.hub.writeLoop(cl)
	h.hub.readLoop(cl)
}
