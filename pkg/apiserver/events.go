package apiserver

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Event is a single queue lifecycle notification relayed to stream
// observers: a push, a dequeue, or a split.
type Event struct {
	Kind      string    `json:"kind"`
	SlotIndex int       `json:"slot_index,omitempty"`
	CacheID   string    `json:"cache_id,omitempty"`
	Time      time.Time `json:"time"`
}

// eventHub fans out Events to any number of connected websocket observers,
// the way the teacher's pkg/api websocket hub broadcasts task/node status
// changes to dashboard clients.
type eventHub struct {
	mu        sync.Mutex
	observers map[chan Event]struct{}
	logger    *slog.Logger
	upgrader  websocket.Upgrader
}

func newEventHub(logger *slog.Logger) *eventHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &eventHub{
		observers: make(map[chan Event]struct{}),
		logger:    logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Publish delivers ev to every currently connected observer. Slow
// observers are dropped rather than allowed to block the publisher.
func (h *eventHub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.observers {
		select {
		case ch <- ev:
		default:
			h.logger.Warn("dropping slow event stream observer")
			delete(h.observers, ch)
			close(ch)
		}
	}
}

func (h *eventHub) subscribe() chan Event {
	ch := make(chan Event, 32)
	h.mu.Lock()
	h.observers[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *eventHub) unsubscribe(ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.observers[ch]; ok {
		delete(h.observers, ch)
		close(ch)
	}
}

func (s *Server) handleStream(c *gin.Context) {
	conn, err := s.events.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ch := s.events.subscribe()
	defer s.events.unsubscribe(ch)

	for ev := range ch {
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}
}
