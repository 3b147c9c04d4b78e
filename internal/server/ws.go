package server

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/tikgrab/tikgrab/internal/model"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // origin policy is enforced by the CORS layer
	},
}

// progressUpdate is pushed to every websocket subscriber on each job change.
type progressUpdate struct {
	JobID    string          `json:"job_id"`
	Status   model.JobStatus `json:"status"`
	Progress float64         `json:"progress"`
}

// hub fans job updates out to connected websocket clients. Broadcasting is
// non blocking: a full queue drops updates rather than stalling a download
// worker, since pollers remain the authoritative channel.
type hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	queue   chan progressUpdate
}

func newHub() *hub {
	h := &hub{
		clients: make(map[*websocket.Conn]bool),
		queue:   make(chan progressUpdate, 256),
	}
	go h.run()
	return h
}

func (h *hub) run() {
	for msg := range h.queue {
		h.mu.Lock()
		for client := range h.clients {
			if err := client.WriteJSON(msg); err != nil {
				client.Close()
				delete(h.clients, client)
			}
		}
		h.mu.Unlock()
	}
}

func (h *hub) broadcastUpdate(u progressUpdate) {
	select {
	case h.queue <- u:
	default:
	}
}

func (h *hub) handle(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "err", err)
		return
	}
	h.mu.Lock()
	h.clients[ws] = true
	h.mu.Unlock()
}
