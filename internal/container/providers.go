package container

import (
	"context"
	"fmt"

	"github.com/garyjia/facturas-review/internal/application/dispatcher"
	"github.com/garyjia/facturas-review/internal/application/port"
	"github.com/garyjia/facturas-review/internal/application/service"
	"github.com/garyjia/facturas-review/internal/infrastructure/external/remote"
	"github.com/garyjia/facturas-review/internal/infrastructure/persistence/repository"
	"github.com/garyjia/facturas-review/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/facturas-review/internal/infrastructure/worker"
	httpAdapter "github.com/garyjia/facturas-review/internal/interfaces/http"
	"github.com/garyjia/facturas-review/internal/interfaces/websocket"
	"github.com/garyjia/facturas-review/internal/realtime"
	"github.com/garyjia/facturas-review/pkg/database"
	"github.com/garyjia/facturas-review/pkg/utils"
	"go.uber.org/zap"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB        *database.DB
	TxManager port.TransactionManager
}

// RepositoryBundle holds all repositories.
type RepositoryBundle struct {
	Invoices port.InvoiceRepository
	Users    port.UserRepository
}

// ServiceBundle holds all application services.
type ServiceBundle struct {
	Review    service.ReviewService
	Ingestion service.IngestionService
	Sync      *service.SyncService
}

// ProvideDatabase opens the database and applies the embedded migrations.
func ProvideDatabase(ctx context.Context, cfg database.Config, logger *zap.Logger) (*DatabaseBundle, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).Run(ctx, database.Migrations()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:        db,
		TxManager: sqlite.NewTxManager(db),
	}, nil
}

// ProvideRepositories creates the sqlite-backed repositories.
func ProvideRepositories(db *database.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}

	return &RepositoryBundle{
		Invoices: repository.NewInvoiceRepository(db.DB, logger),
		Users:    repository.NewUserRepository(db.DB, logger),
	}, nil
}

// ProvideRemoteClient creates the remote invoice API client.
func ProvideRemoteClient(cfg remote.Config, logger *zap.Logger) port.RemoteInvoiceAPI {
	if cfg.Passphrase == "" {
		logger.Warn("Remote passphrase is empty, remote payloads will not decrypt")
	}
	return remote.NewClient(cfg, logger)
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) dispatcher.Dispatcher {
	return dispatcher.NewDispatcher(dispatcher.WithLogger(utils.KV(logger.Named("dispatcher"))))
}

// ProvideHub creates the live feed and forwards every domain event to it.
func ProvideHub(logSize int, d dispatcher.Dispatcher, logger *zap.Logger) *realtime.Hub {
	hub := realtime.NewHub(logSize, logger)
	d.SubscribeAll("realtime-hub", hub.HandleEvent)
	return hub
}

// ServiceDeps holds dependencies for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Remote     port.RemoteInvoiceAPI
	Dispatcher dispatcher.Dispatcher
	Sync       SyncConfig
	Logger     *zap.Logger
}

// ProvideServices creates the application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.Remote == nil {
		return nil, fmt.Errorf("remote client is required")
	}

	review := service.NewReviewService(
		deps.Repos.Invoices,
		deps.Repos.Users,
		deps.Remote,
		deps.Dispatcher,
		utils.KV(deps.Logger.Named("review")),
	)

	ingestion := service.NewIngestionService(
		deps.Repos.Invoices,
		deps.Repos.Users,
		deps.TxManager,
		deps.Dispatcher,
		utils.KV(deps.Logger.Named("ingestion")),
	)

	sync := service.NewSyncService(
		deps.Remote,
		ingestion,
		deps.Sync.ClientID,
		deps.Sync.InvoiceID,
		utils.KV(deps.Logger.Named("sync")),
	)

	return &ServiceBundle{
		Review:    review,
		Ingestion: ingestion,
		Sync:      sync,
	}, nil
}

// WorkerDeps holds dependencies for creating workers.
type WorkerDeps struct {
	Services *ServiceBundle
	Upstream websocket.UpstreamConfig
	Sync     SyncConfig
	Logger   *zap.Logger
}

// ProvideWorkers registers the background workers. The upstream socket is
// only registered when a URL is configured; the poller disables itself on a
// zero interval.
func ProvideWorkers(deps *WorkerDeps) (*worker.Manager, error) {
	if deps == nil || deps.Services == nil {
		return nil, fmt.Errorf("services are required")
	}

	manager := worker.NewManager(deps.Logger)

	if deps.Upstream.URL != "" {
		manager.Register(websocket.NewUpstreamClient(
			deps.Upstream,
			deps.Services.Ingestion.HandleSocketMessage,
			deps.Logger,
		))
	} else {
		deps.Logger.Info("Upstream socket not configured")
	}

	manager.Register(worker.NewSyncPoller(deps.Services.Sync, deps.Sync.Interval, deps.Logger))

	return manager, nil
}

// ProvideServer creates the HTTP server.
func ProvideServer(cfg httpAdapter.ServerConfig, services *ServiceBundle, hub *realtime.Hub, logger *zap.Logger) *httpAdapter.Server {
	return httpAdapter.NewServer(
		cfg,
		services.Review,
		services.Ingestion,
		services.Sync,
		hub,
		utils.KV(logger.Named("http")),
	)
}
