// Package container provides dependency injection and lifecycle management
// for the invoice review service.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/facturas-review/internal/config"
	"github.com/garyjia/facturas-review/internal/infrastructure/external/remote"
	"github.com/garyjia/facturas-review/internal/interfaces/websocket"
	httpAdapter "github.com/garyjia/facturas-review/internal/interfaces/http"
	"github.com/garyjia/facturas-review/internal/realtime"
	"github.com/garyjia/facturas-review/pkg/database"
)

// Config holds the per-component settings the container wires together.
// It is derived from the application configuration by FromAppConfig.
type Config struct {
	Database database.Config
	Remote   remote.Config
	Server   httpAdapter.ServerConfig
	Upstream websocket.UpstreamConfig
	Sync     SyncConfig

	// FeedLogSize is the number of live events kept for late subscribers
	FeedLogSize int
}

// SyncConfig holds the remote sync poller settings
type SyncConfig struct {
	// Interval between polls; zero disables the poller
	Interval  time.Duration
	ClientID  string
	InvoiceID string
}

// FromAppConfig maps the loaded application configuration onto component
// configurations.
func FromAppConfig(cfg *config.Config) *Config {
	return &Config{
		Database: database.Config{
			Path:            cfg.Database.Path,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		},
		Remote: remote.Config{
			APIURL:     cfg.Remote.APIURL,
			InvoiceURL: cfg.Remote.InvoiceURL,
			DiscardURL: cfg.Remote.DiscardURL,
			Passphrase: cfg.Remote.Passphrase,
			Timeout:    cfg.Remote.Timeout,
		},
		Server: httpAdapter.ServerConfig{
			Host:            cfg.Server.Host,
			Port:            cfg.Server.Port,
			ReadTimeout:     cfg.Server.ReadTimeout,
			WriteTimeout:    cfg.Server.WriteTimeout,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
			AllowedOrigins:  cfg.Server.AllowedOrigins,
		},
		Upstream: websocket.UpstreamConfig{
			URL:            cfg.Upstream.URL,
			ReconnectDelay: cfg.Upstream.ReconnectDelay,
		},
		Sync: SyncConfig{
			Interval:  cfg.Sync.Interval,
			ClientID:  cfg.Sync.ClientID,
			InvoiceID: cfg.Sync.InvoiceID,
		},
		FeedLogSize: cfg.Feed.LogSize,
	}
}

// Validate checks the settings the container cannot start without.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server port must be positive")
	}
	if c.FeedLogSize <= 0 {
		c.FeedLogSize = realtime.DefaultLogSize
	}
	return nil
}
