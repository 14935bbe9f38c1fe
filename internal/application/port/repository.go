package port

import (
	"context"
	"errors"

	"github.com/garyjia/facturas-review/internal/domain/entity"
)

var (
	// ErrInvoiceNotFound is returned when no invoice has the requested id
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrUserNotFound is returned when no user has the requested id
	ErrUserNotFound = errors.New("user not found")
)

// InvoiceFilter narrows an invoice listing. A nil UserID matches every user.
type InvoiceFilter struct {
	UserID          *int64
	IncludeReviewed bool
	Limit           int
	Offset          int
}

// InvoiceRepository persists invoices under review
type InvoiceRepository interface {
	// Upsert inserts the record or replaces the invoice of an existing id,
	// keeping its creation time.
	Upsert(ctx context.Context, rec *entity.StoredInvoice) error

	// InsertNew inserts the record unless its id or dedup key is already
	// stored. It reports whether a row was written.
	InsertNew(ctx context.Context, rec *entity.StoredInvoice) (bool, error)

	Get(ctx context.Context, id string) (*entity.StoredInvoice, error)
	List(ctx context.Context, filter InvoiceFilter) ([]*entity.StoredInvoice, error)

	// SetCorrected updates the review state of an invoice.
	SetCorrected(ctx context.Context, id string, status entity.CorrectedStatus) error

	// Count returns how many invoices a user owns, reviewed or not.
	Count(ctx context.Context, userID *int64) (int, error)

	// PendingByUser returns the number of pending invoices per user id.
	PendingByUser(ctx context.Context) (map[int64]int, error)
}

// UserRepository persists operator names
type UserRepository interface {
	Get(ctx context.Context, id int64) (*entity.User, error)
	Upsert(ctx context.Context, user *entity.User) error
	List(ctx context.Context) ([]*entity.User, error)
}

// TransactionManager runs fn in a single database transaction. Repositories
// called with the ctx passed to fn join that transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
