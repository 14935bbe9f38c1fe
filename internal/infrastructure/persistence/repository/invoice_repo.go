package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/facturas-review/internal/application/port"
	"github.com/garyjia/facturas-review/internal/domain/entity"
	"github.com/garyjia/facturas-review/pkg/database"
	"go.uber.org/zap"
)

// InvoiceRepository implements port.InvoiceRepository on sqlite. The invoice
// itself is stored as a JSON document; owner, review state and dedup key are
// mirrored into columns for filtering.
type InvoiceRepository struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *sql.DB, logger *zap.Logger) *InvoiceRepository {
	return &InvoiceRepository{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

const invoiceColumns = `id, payload, corregido, dedup_key, created_at, updated_at`

// Upsert inserts the record or replaces the stored invoice for its id
func (r *InvoiceRepository) Upsert(ctx context.Context, rec *entity.StoredInvoice) error {
	args, err := r.insertArgs(rec)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO invoices (
			id, id_user, corregido, dedup_key, received_at, client_ip,
			error_code, payload, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			id_user = excluded.id_user,
			corregido = excluded.corregido,
			dedup_key = COALESCE(invoices.dedup_key, excluded.dedup_key),
			received_at = excluded.received_at,
			client_ip = excluded.client_ip,
			error_code = excluded.error_code,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`

	if _, err := r.getExecutor(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("Failed to upsert invoice", zap.String("id", rec.ID), zap.Error(err))
		return fmt.Errorf("failed to upsert invoice: %w", err)
	}
	return nil
}

// InsertNew inserts the record unless its id or dedup key already exists
func (r *InvoiceRepository) InsertNew(ctx context.Context, rec *entity.StoredInvoice) (bool, error) {
	args, err := r.insertArgs(rec)
	if err != nil {
		return false, err
	}

	query := `
		INSERT OR IGNORE INTO invoices (
			id, id_user, corregido, dedup_key, received_at, client_ip,
			error_code, payload, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to insert invoice", zap.String("id", rec.ID), zap.Error(err))
		return false, fmt.Errorf("failed to insert invoice: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// Get retrieves an invoice by id
func (r *InvoiceRepository) Get(ctx context.Context, id string) (*entity.StoredInvoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = ?`

	rec, err := r.scan(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", port.ErrInvoiceNotFound, id)
	}
	if err != nil {
		r.logger.Error("Failed to get invoice", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return rec, nil
}

// List returns invoices oldest first
func (r *InvoiceRepository) List(ctx context.Context, filter port.InvoiceFilter) ([]*entity.StoredInvoice, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.UserID != nil {
		where = append(where, "id_user = ?")
		args = append(args, *filter.UserID)
	}
	if !filter.IncludeReviewed {
		where = append(where, "corregido = 0")
	}

	query := `SELECT ` + invoiceColumns + ` FROM invoices`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at ASC, id ASC`

	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list invoices", zap.Error(err))
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var out []*entity.StoredInvoice
	for rows.Next() {
		rec, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SetCorrected updates the review state column and the stored document
func (r *InvoiceRepository) SetCorrected(ctx context.Context, id string, status entity.CorrectedStatus) error {
	query := `
		UPDATE invoices
		SET corregido = ?, payload = json_set(payload, '$.corregido', ?), updated_at = ?
		WHERE id = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, int(status), int(status), r.now(), id)
	if err != nil {
		r.logger.Error("Failed to set corrected status",
			zap.String("id", id),
			zap.Int("corregido", int(status)),
			zap.Error(err))
		return fmt.Errorf("failed to set corrected status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", port.ErrInvoiceNotFound, id)
	}
	return nil
}

// Count returns the number of invoices owned by userID, or all when nil
func (r *InvoiceRepository) Count(ctx context.Context, userID *int64) (int, error) {
	query := `SELECT COUNT(*) FROM invoices`
	var args []interface{}
	if userID != nil {
		query += ` WHERE id_user = ?`
		args = append(args, *userID)
	}

	var count int
	if err := r.getExecutor(ctx).QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count invoices: %w", err)
	}
	return count, nil
}

// PendingByUser counts pending invoices per owner; unowned rows count as user 0
func (r *InvoiceRepository) PendingByUser(ctx context.Context) (map[int64]int, error) {
	query := `
		SELECT COALESCE(id_user, 0), COUNT(*)
		FROM invoices
		WHERE corregido = 0
		GROUP BY COALESCE(id_user, 0)
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending invoices: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]int)
	for rows.Next() {
		var (
			userID int64
			count  int
		)
		if err := rows.Scan(&userID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan pending count: %w", err)
		}
		out[userID] = count
	}
	return out, rows.Err()
}

func (r *InvoiceRepository) insertArgs(rec *entity.StoredInvoice) ([]interface{}, error) {
	if rec == nil || rec.Invoice == nil {
		return nil, errors.New("invoice is required")
	}
	if rec.ID == "" {
		return nil, errors.New("invoice id is required")
	}

	payload, err := json.Marshal(rec.Invoice)
	if err != nil {
		return nil, fmt.Errorf("failed to encode invoice: %w", err)
	}

	now := r.now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	inv := rec.Invoice
	return []interface{}{
		rec.ID,
		nullInt(inv.UserID),
		int(inv.Corrected),
		nullString(rec.DedupKey),
		nullString(inv.ReceivedAt),
		nullString(inv.ClientIP),
		nullString(entity.Deref(inv.ErrorCode)),
		string(payload),
		rec.CreatedAt,
		rec.UpdatedAt,
	}, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func (r *InvoiceRepository) scan(row scanner) (*entity.StoredInvoice, error) {
	var (
		rec       entity.StoredInvoice
		payload   string
		corrected int
		dedupKey  sql.NullString
	)

	if err := row.Scan(&rec.ID, &payload, &corrected, &dedupKey, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}

	var inv entity.Invoice
	if err := json.Unmarshal([]byte(payload), &inv); err != nil {
		return nil, fmt.Errorf("failed to decode invoice %s: %w", rec.ID, err)
	}
	inv.Corrected = entity.CorrectedStatus(corrected)

	rec.Invoice = &inv
	rec.DedupKey = dedupKey.String
	return &rec, nil
}

// getExecutor returns the transaction carried by ctx, or the database
func (r *InvoiceRepository) getExecutor(ctx context.Context) executor {
	if tx, ok := database.TxFromContext(ctx); ok {
		return tx
	}
	return r.db
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}

// Verify interface compliance
var _ port.InvoiceRepository = (*InvoiceRepository)(nil)
