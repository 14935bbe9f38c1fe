// Package websocket connects to the upstream extraction socket and feeds its
// messages into ingestion.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// DefaultReconnectDelay is the pause between a closed connection and the next dial.
const DefaultReconnectDelay = 5 * time.Second

// MessageHandler receives one JSON frame from the upstream socket.
type MessageHandler func(ctx context.Context, msg json.RawMessage) error

// UpstreamConfig holds configuration for the upstream socket client.
type UpstreamConfig struct {
	URL            string
	ReconnectDelay time.Duration
}

// UpstreamClient keeps a connection to the upstream socket open, redialing
// after every close. Frames that are not valid JSON are logged and skipped.
type UpstreamClient struct {
	url     string
	delay   time.Duration
	handler MessageHandler
	dialer  *websocket.Dialer
	logger  *zap.Logger

	mu       sync.Mutex
	started  bool
	cancel   context.CancelFunc
	done     chan struct{}
	conn     *websocket.Conn
	received int
}

// NewUpstreamClient creates a client for cfg.URL.
func NewUpstreamClient(cfg UpstreamConfig, handler MessageHandler, logger *zap.Logger) *UpstreamClient {
	delay := cfg.ReconnectDelay
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	return &UpstreamClient{
		url:     cfg.URL,
		delay:   delay,
		handler: handler,
		dialer:  websocket.DefaultDialer,
		logger:  logger.Named("upstream"),
	}
}

// Name returns the worker name for identification
func (c *UpstreamClient) Name() string {
	return "UpstreamSocket"
}

// Start launches the connect/read loop in the background.
func (c *UpstreamClient) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return fmt.Errorf("upstream client already started")
	}
	if c.url == "" {
		return fmt.Errorf("upstream url is required")
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.started = true

	go c.run(runCtx, c.done)

	c.logger.Info("Upstream client started", zap.String("url", c.url))
	return nil
}

// Stop closes the connection and waits for the loop to exit.
func (c *UpstreamClient) Stop() error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = false
	cancel, done, conn := c.cancel, c.done, c.conn
	c.mu.Unlock()

	cancel()
	if conn != nil {
		_ = conn.Close()
	}
	<-done

	c.logger.Info("Upstream client stopped")
	return nil
}

// Received returns how many valid frames were handed to the handler.
func (c *UpstreamClient) Received() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.received
}

func (c *UpstreamClient) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		if err := c.session(ctx); err != nil && ctx.Err() == nil {
			c.logger.Warn("Upstream connection ended", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.delay):
			c.logger.Info("Reconnecting to upstream", zap.String("url", c.url))
		}
	}
}

// session dials once and reads until the connection fails or ctx is done.
func (c *UpstreamClient) session(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial upstream: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		stop()
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()
	}()

	c.logger.Info("Connected to upstream", zap.String("url", c.url))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read upstream: %w", err)
		}

		if !json.Valid(data) {
			c.logger.Warn("Skipping invalid upstream frame", zap.Int("bytes", len(data)))
			continue
		}

		c.mu.Lock()
		c.received++
		c.mu.Unlock()

		if err := c.handler(ctx, json.RawMessage(data)); err != nil {
			c.logger.Error("Failed to handle upstream message", zap.Error(err))
		}
	}
}
