package sqlite

import (
	"context"
	"database/sql"

	"github.com/garyjia/facturas-review/internal/application/port"
	"github.com/garyjia/facturas-review/pkg/database"
)

// TxManager implements port.TransactionManager on top of database.DB
type TxManager struct {
	db *database.DB
}

var _ port.TransactionManager = (*TxManager)(nil)

// NewTxManager creates a transaction manager for db
func NewTxManager(db *database.DB) *TxManager {
	return &TxManager{db: db}
}

// WithTransaction runs fn in a transaction. A ctx that already carries a
// transaction is reused, so nested calls commit once.
func (m *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := database.TxFromContext(ctx); ok {
		return fn(ctx)
	}
	return m.db.WithTransaction(ctx, func(txCtx context.Context, _ *sql.Tx) error {
		return fn(txCtx)
	})
}
