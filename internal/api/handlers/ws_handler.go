package handlers

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/couchly/sofa-advisor/internal/agent"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WSHandler serves the chat event stream over a WebSocket: each client text
// message is one turn request, answered by the ordered event sequence and a
// transport-level end marker.
type WSHandler struct {
	agent    *agent.Agent
	upgrader websocket.Upgrader
}

func NewWSHandler(a *agent.Agent) *WSHandler {
	return &WSHandler{
		agent: a,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteJSON(v)
}

type wsEndMsg struct {
	Type    string `json:"type"` // "end" | "error"
	Message string `json:"message,omitempty"`
}

func (h *WSHandler) ChatWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote the response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx := c.Request.Context()

	for {
		var req agent.Request
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		if strings.TrimSpace(req.Input) == "" {
			if err := wc.writeJSON(wsEndMsg{Type: "error", Message: "input is required"}); err != nil {
				return
			}
			continue
		}

		for ev := range h.agent.ChatStream(ctx, req) {
			if err := wc.writeJSON(ev); err != nil {
				return
			}
		}
		if err := wc.writeJSON(wsEndMsg{Type: "end"}); err != nil {
			return
		}
	}
}
