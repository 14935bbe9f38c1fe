package service

import (
	"context"
	"fmt"

	"github.com/garyjia/facturas-review/internal/application/port"
)

// SyncService pulls invoice rows from the remote service into the local store
type SyncService struct {
	remote    port.RemoteInvoiceAPI
	ingestion IngestionService
	clientID  string
	invoiceID string
	logger    Logger
}

// NewSyncService creates a sync service for one remote client/invoice scope
func NewSyncService(remote port.RemoteInvoiceAPI, ingestion IngestionService, clientID, invoiceID string, logger Logger) *SyncService {
	return &SyncService{
		remote:    remote,
		ingestion: ingestion,
		clientID:  clientID,
		invoiceID: invoiceID,
		logger:    logger,
	}
}

// Run fetches, decrypts and ingests one batch of rows
func (s *SyncService) Run(ctx context.Context) (*IngestResult, error) {
	rows, err := s.remote.FetchInvoices(ctx, s.clientID, s.invoiceID)
	if err != nil {
		s.logger.Error("Failed to fetch remote invoices", "error", err, "client_id", s.clientID)
		return nil, fmt.Errorf("fetch remote invoices: %w", err)
	}

	return s.ingestion.IngestRows(ctx, rows, SourceSync)
}

// Sync runs one cycle and reports how many rows were stored
func (s *SyncService) Sync(ctx context.Context) (int, error) {
	res, err := s.Run(ctx)
	if err != nil {
		return 0, err
	}
	return res.Stored, nil
}
