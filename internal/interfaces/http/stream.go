package http

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/garyjia/facturas-review/internal/domain/event"
	"github.com/garyjia/facturas-review/internal/realtime"
)

const wsWriteWait = 10 * time.Second

// Events handles GET /api/events as a server-sent event stream. The first
// event is "connected"; every feed message follows under its own name.
func (h *Handlers) Events(c *gin.Context) {
	messages, cancel := h.feed.Subscribe()
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.Render(-1, sse.Event{
		Event: event.TypeConnected.String(),
		Data:  gin.H{"time": time.Now().UTC()},
	})
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case msg, ok := <-messages:
			if !ok {
				return false
			}
			c.Render(-1, sse.Event{Id: msg.ID, Event: msg.Event, Data: msg})
			return true
		}
	})
}

// WebSocket handles GET /ws. Feed messages are pushed as JSON; frames sent by
// the client are treated as ingestion messages.
func (h *Handlers) WebSocket(c *gin.Context) {
	upgrader := websocket.Upgrader{CheckOrigin: h.checkOrigin}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	messages, cancel := h.feed.Subscribe()
	defer cancel()

	ctx := c.Request.Context()
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if !json.Valid(data) {
				h.logger.Error("Skipping invalid WebSocket frame", "bytes", len(data))
				continue
			}
			if err := h.ingestion.HandleSocketMessage(ctx, json.RawMessage(data)); err != nil {
				h.logger.Error("Failed to ingest WebSocket frame", "error", err)
			}
		}
	}()

	hello := realtime.Message{Event: event.TypeConnected.String(), Time: time.Now().UTC()}
	if err := h.writeJSON(conn, hello); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case msg, ok := <-messages:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(wsWriteWait))
				return
			}
			if err := h.writeJSON(conn, msg); err != nil {
				return
			}
		}
	}
}

func (h *Handlers) writeJSON(conn *websocket.Conn, v interface{}) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(v); err != nil {
		h.logger.Error("WebSocket write failed", "error", err)
		return err
	}
	return nil
}

// checkOrigin allows every origin when none are configured
func (h *Handlers) checkOrigin(r *http.Request) bool {
	if len(h.origins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range h.origins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
