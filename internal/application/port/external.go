package port

import (
	"context"
	"errors"

	"github.com/garyjia/facturas-review/internal/domain/entity"
)

// ErrUndecryptable is returned when the remote service answers with a payload
// that cannot be decrypted with the configured passphrase
var ErrUndecryptable = errors.New("remote payload could not be decrypted")

// SubmitResult is the remote acknowledgement of a submission
type SubmitResult struct {
	CurrentCount *int `json:"currentCount,omitempty"`
}

// RemoteInvoiceAPI is the remote service that owns the invoice records
type RemoteInvoiceAPI interface {
	// FetchInvoices downloads and decrypts invoice rows
	FetchInvoices(ctx context.Context, clientID, invoiceID string) ([]map[string]interface{}, error)

	// CorrectedStatus returns the review state the remote service holds for
	// the invoice identified by its timestamp and owner
	CorrectedStatus(ctx context.Context, timestamp string, userID int64) (entity.CorrectedStatus, error)

	SubmitCompleted(ctx context.Context, submission *entity.Submission) (*SubmitResult, error)
	SubmitDiscarded(ctx context.Context, submission *entity.Submission) (*SubmitResult, error)

	// Counter refreshes the remote per-user correction counter
	Counter(ctx context.Context, userID string, timestamp string) (*SubmitResult, error)
}
