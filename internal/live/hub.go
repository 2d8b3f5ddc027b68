// Package live pushes time-slot changes to open calendars over websockets.
package live

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"permisconnect/internal/events"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// safeConn wraps a websocket.Conn with a write mutex.
// gorilla/websocket allows one concurrent writer; this enforces that.
type safeConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *safeConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

func (c *safeConn) close() { c.ws.Close() }

// Hub manages websocket connections per auto-école.
type Hub struct {
	mu    sync.RWMutex
	conns map[int64][]*safeConn
	log   *zap.Logger
}

// NewHub creates a hub.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{conns: make(map[int64][]*safeConn), log: log.Named("ws")}
}

// Routes returns a chi.Router for the /ws mount point.
func (h *Hub) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/auto-ecoles/{id}", h.HandleWS)
	return r
}

// HandleWS upgrades the connection and subscribes it to an auto-école.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, `{"message":"invalid auto-école id"}`, http.StatusBadRequest)
		return
	}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade error", zap.Error(err))
		return
	}

	conn := &safeConn{ws: ws}

	h.mu.Lock()
	h.conns[id] = append(h.conns[id], conn)
	h.mu.Unlock()

	h.log.Debug("client connected", zap.Int64("autoEcoleId", id))

	// Block until the client disconnects
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	h.removeConn(id, conn)
	conn.close()
	h.log.Debug("client disconnected", zap.Int64("autoEcoleId", id))
}

// Subscribers counts the open connections of an auto-école.
func (h *Hub) Subscribers(autoEcoleID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[autoEcoleID])
}

// Broadcast pushes ev to every subscriber of its auto-école.
func (h *Hub) Broadcast(ev events.SlotStatusChanged) {
	h.mu.RLock()
	conns := append([]*safeConn(nil), h.conns[ev.AutoEcoleID]...)
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.writeJSON(ev); err != nil {
			h.log.Warn("write error", zap.Int64("autoEcoleId", ev.AutoEcoleID), zap.Error(err))
		}
	}
}

func (h *Hub) removeConn(id int64, conn *safeConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.conns[id]
	for i, c := range conns {
		if c == conn {
			h.conns[id] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.conns[id]) == 0 {
		delete(h.conns, id)
	}
}
