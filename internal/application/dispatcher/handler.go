package dispatcher

import (
	"context"

	"github.com/garyjia/facturas-review/internal/domain/event"
)

// Handler processes domain events
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo contains handler metadata for debugging
type HandlerInfo struct {
	Name      string
	EventType event.Type
	Handler   Handler
}

// anyType is the key of handlers subscribed to every event type
const anyType event.Type = "*"
