// Package realtime fans live events out to browser subscribers (SSE and
// WebSocket) and keeps a short log of recent events.
package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/garyjia/facturas-review/internal/domain/event"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultLogSize    = 50
	DefaultBufferSize = 16
)

// Message is one event as delivered to subscribers
type Message struct {
	ID    string      `json:"id"`
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
	Time  time.Time   `json:"time"`
}

// Hub broadcasts messages to subscribers. Slow subscribers lose messages
// instead of blocking publishers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]chan Message
	log         []Message
	logSize     int
	bufferSize  int
	closed      bool
	logger      *zap.Logger
}

// NewHub creates a hub keeping the last logSize messages
func NewHub(logSize int, logger *zap.Logger) *Hub {
	if logSize <= 0 {
		logSize = DefaultLogSize
	}
	return &Hub{
		subscribers: make(map[string]chan Message),
		logSize:     logSize,
		bufferSize:  DefaultBufferSize,
		logger:      logger.Named("hub"),
	}
}

// Subscribe registers a subscriber. The returned cancel func unregisters it
// and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe() (<-chan Message, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Message, h.bufferSize)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := uuid.NewString()
	h.subscribers[id] = ch
	h.logger.Debug("Subscriber added", zap.String("subscriber", id), zap.Int("total", len(h.subscribers)))

	var once sync.Once
	return ch, func() {
		once.Do(func() { h.unsubscribe(id) })
	}
}

func (h *Hub) unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subscribers[id]; ok {
		delete(h.subscribers, id)
		close(ch)
	}
}

// Publish records a message and delivers it to every subscriber. It returns
// the message id.
func (h *Hub) Publish(name string, data interface{}) string {
	msg := Message{
		ID:    uuid.NewString(),
		Event: name,
		Data:  data,
		Time:  time.Now().UTC(),
	}
	h.publish(msg)
	return msg.ID
}

func (h *Hub) publish(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	h.log = append([]Message{msg}, h.log...)
	if len(h.log) > h.logSize {
		h.log = h.log[:h.logSize]
	}

	for id, ch := range h.subscribers {
		select {
		case ch <- msg:
		default:
			h.logger.Warn("Dropping message for slow subscriber",
				zap.String("subscriber", id),
				zap.String("event", msg.Event))
		}
	}
}

// HandleEvent forwards a domain event; it is registered on the dispatcher.
func (h *Hub) HandleEvent(_ context.Context, evt *event.Event) error {
	h.publish(Message{
		ID:    evt.ID,
		Event: evt.Type.String(),
		Data:  evt.Payload,
		Time:  evt.Timestamp.UTC(),
	})
	return nil
}

// Log returns the recent messages, newest first
func (h *Hub) Log() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Message, len(h.log))
	copy(out, h.log)
	return out
}

// SubscriberCount returns the number of active subscribers
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close disconnects every subscriber; later publishes are ignored
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subscribers {
		delete(h.subscribers, id)
		close(ch)
	}
}
