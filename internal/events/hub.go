// Package events fans workflow notifications and state changes out to
// connected clients.
package events

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"ui2sql-backend/internal/workflow"
)

const (
	EventNotification = "notification"
	EventState        = "state"

	clientBuffer = 16
)

type Event struct {
	ID        uint64      `json:"id"`
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub broadcasts events to subscribers. Slow subscribers miss events rather
// than blocking the workflow.
type Hub struct {
	mu      sync.RWMutex
	clients map[chan Event]struct{}
	seq     atomic.Uint64
	logger  *slog.Logger
}

var (
	_ workflow.Notifier = (*Hub)(nil)
	_ workflow.Observer = (*Hub)(nil)
)

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Hub{
		clients: make(map[chan Event]struct{}),
		logger:  logger,
	}
}

// Subscribe returns a channel of future events. Call Unsubscribe when done.
func (h *Hub) Subscribe() chan Event {
	ch := make(chan Event, clientBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("event subscriber added", "subscribers", n)
	return ch
}

func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	_, ok := h.clients[ch]
	delete(h.clients, ch)
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		close(ch)
		h.logger.Debug("event subscriber removed", "subscribers", n)
	}
}

func (h *Hub) Publish(eventType string, data interface{}) {
	ev := Event{
		ID:        h.seq.Add(1),
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.clients {
		select {
		case ch <- ev:
		default:
			h.logger.Warn("event subscriber full, dropping event", "type", eventType, "id", ev.ID)
		}
	}
}

func (h *Hub) Notify(kind workflow.NotificationKind, text string) {
	h.Publish(EventNotification, NotificationPayload(kind, text))
}

func (h *Hub) StateChanged(snapshot workflow.Snapshot) {
	h.Publish(EventState, snapshot)
}

// Event payloads
func NotificationPayload(kind workflow.NotificationKind, text string) map[string]interface{} {
	return map[string]interface{}{
		"kind": string(kind),
		"text": text,
	}
}
