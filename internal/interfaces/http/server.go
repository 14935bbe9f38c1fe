// Package http provides HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application service calls.
package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/facturas-review/internal/application/service"
	"github.com/garyjia/facturas-review/internal/realtime"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// SyncRunner runs one remote fetch/decrypt/ingest cycle
type SyncRunner interface {
	Run(ctx context.Context) (*service.IngestResult, error)
}

// Feed is the live event feed served over SSE and WebSocket
type Feed interface {
	Subscribe() (<-chan realtime.Message, func())
	Publish(name string, data interface{}) string
	Log() []realtime.Message
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	handlers   *Handlers
	logger     Logger

	// cancels request contexts so open streams end on shutdown
	cancelStreams context.CancelFunc
}

// NewServer creates a new HTTP server with the given services
func NewServer(
	config ServerConfig,
	review service.ReviewService,
	ingestion service.IngestionService,
	sync SyncRunner,
	feed Feed,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	server := &Server{
		config:   config,
		router:   router,
		handlers: NewHandlers(review, ingestion, sync, feed, config.AllowedOrigins, logger),
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.GET("/health", h.HealthCheck)
	s.router.GET("/ws", h.WebSocket)

	api := s.router.Group("/api")
	{
		api.GET("/invoices", h.ListInvoices)
		api.GET("/invoices/export", h.ExportInvoices)
		api.GET("/invoices/:id", h.GetInvoice)
		api.PUT("/invoices/:id", h.UpdateInvoice)
		api.POST("/invoices/:id/validate", h.ValidateInvoice)
		api.POST("/invoices/:id/accept", h.AcceptInvoice)
		api.POST("/invoices/:id/discard", h.DiscardInvoice)

		api.GET("/pages", h.TotalPages)
		api.GET("/count", h.PendingCount)
		api.GET("/username", h.Username)
		api.PUT("/users/:id", h.SetUsername)
		api.GET("/fields", h.ResolveFields)

		api.POST("/ingest", h.Ingest)
		api.POST("/sync", h.Sync)

		api.GET("/events", h.Events)
		api.GET("/events/log", h.EventLog)
		api.POST("/events", h.PublishEvent)
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	baseCtx, cancel := context.WithCancel(context.Background())
	s.cancelStreams = cancel
	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: s.config.ReadTimeout,
		// streaming endpoints keep responses open, so WriteTimeout stays 0 by default
		WriteTimeout: s.config.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")
	if s.cancelStreams != nil {
		s.cancelStreams()
	}

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	srv := s.httpServer
	s.httpServer = nil
	if err := srv.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
