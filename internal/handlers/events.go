package handlers

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"ui2sql-backend/internal/events"
	"ui2sql-backend/internal/workflow"
)

const keepAliveInterval = 15 * time.Second

type EventsHandler struct {
	hub          *events.Hub
	orchestrator *workflow.Orchestrator
}

func NewEventsHandler(hub *events.Hub, orchestrator *workflow.Orchestrator) *EventsHandler {
	return &EventsHandler{
		hub:          hub,
		orchestrator: orchestrator,
	}
}

// Stream godoc
// @Summary     Server-sent workflow events
// @Description Emits a "state" event with the current snapshot on connect, then
// @Description "state" on every transition and "notification" for user messages.
// @Tags        events
// @Produce     text/event-stream
// @Router      /events [get]
func (h *EventsHandler) Stream(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ch := h.hub.Subscribe()
	defer h.hub.Unsubscribe(ch)

	c.SSEvent(events.EventState, h.orchestrator.Snapshot())
	c.Writer.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Type, ev.Data)
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"time": time.Now().UTC()})
			return true
		}
	})
}
