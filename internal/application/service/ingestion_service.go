package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/garyjia/facturas-review/internal/application/dispatcher"
	"github.com/garyjia/facturas-review/internal/application/port"
	"github.com/garyjia/facturas-review/internal/domain/entity"
	"github.com/garyjia/facturas-review/internal/domain/event"
	"github.com/garyjia/facturas-review/internal/invoice"
	"github.com/garyjia/facturas-review/pkg/utils"
	"github.com/google/uuid"
)

// Sources reported on invoice.ingested events
const (
	SourceEnvelope = "envelope"
	SourceUpstream = "upstream"
	SourceSync     = "sync"
)

// Envelope is a batch of extracted rows pushed by the extraction pipeline
type Envelope struct {
	ReceivedAt string `json:"received_at"`
	ClientIP   string `json:"client_ip"`
	Payload    struct {
		Data []map[string]interface{} `json:"data"`
	} `json:"payload"`
}

// IngestResult reports what an ingestion stored
type IngestResult struct {
	Stored  int      `json:"stored"`
	Skipped int      `json:"skipped"`
	IDs     []string `json:"ids"`
}

// IngestionService stores rows arriving from the extraction pipeline
type IngestionService interface {
	// IngestEnvelope stores every row not seen before; repeated rows are skipped
	IngestEnvelope(ctx context.Context, env *Envelope) (*IngestResult, error)

	// IngestUpstream upserts the rows of one upstream socket message
	IngestUpstream(ctx context.Context, msg map[string]interface{}) (*IngestResult, error)

	// IngestRows stores rows fetched from the remote service, skipping known ones
	IngestRows(ctx context.Context, rows []map[string]interface{}, source string) (*IngestResult, error)

	// HandleSocketMessage routes a raw socket frame to the matching ingestion
	HandleSocketMessage(ctx context.Context, raw json.RawMessage) error
}

type ingestionServiceImpl struct {
	invoices   port.InvoiceRepository
	users      port.UserRepository
	txManager  port.TransactionManager
	dispatcher dispatcher.Dispatcher
	logger     Logger
	now        func() time.Time
}

// NewIngestionService creates a new IngestionService
func NewIngestionService(
	invoices port.InvoiceRepository,
	users port.UserRepository,
	txManager port.TransactionManager,
	d dispatcher.Dispatcher,
	logger Logger,
) IngestionService {
	return &ingestionServiceImpl{
		invoices:   invoices,
		users:      users,
		txManager:  txManager,
		dispatcher: d,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *ingestionServiceImpl) IngestEnvelope(ctx context.Context, env *Envelope) (*IngestResult, error) {
	if env == nil {
		return &IngestResult{IDs: []string{}}, nil
	}

	rows := make([]map[string]interface{}, 0, len(env.Payload.Data))
	for _, row := range env.Payload.Data {
		if row == nil {
			continue
		}
		row["received_at"] = env.ReceivedAt
		row["client_ip"] = env.ClientIP
		rows = append(rows, row)
	}

	return s.store(ctx, rows, SourceEnvelope, false)
}

func (s *ingestionServiceImpl) IngestRows(ctx context.Context, rows []map[string]interface{}, source string) (*IngestResult, error) {
	return s.store(ctx, rows, source, false)
}

func (s *ingestionServiceImpl) IngestUpstream(ctx context.Context, msg map[string]interface{}) (*IngestResult, error) {
	rows := upstreamRows(msg)
	if len(rows) == 0 {
		return &IngestResult{IDs: []string{}}, nil
	}
	return s.store(ctx, rows, SourceUpstream, true)
}

func (s *ingestionServiceImpl) HandleSocketMessage(ctx context.Context, raw json.RawMessage) error {
	var msg map[string]interface{}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("decode socket message: %w", err)
	}

	var (
		res *IngestResult
		err error
	)
	if _, ok := msg["payload"].(map[string]interface{}); ok {
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return fmt.Errorf("decode envelope: %w", err)
		}
		res, err = s.IngestEnvelope(ctx, &env)
	} else {
		res, err = s.IngestUpstream(ctx, msg)
	}
	if err != nil {
		return err
	}

	s.logger.Info("Socket message ingested", "stored", res.Stored, "skipped", res.Skipped)
	return nil
}

// store writes rows in one transaction. Upserts replace existing rows;
// otherwise rows whose id or dedup key is known are skipped.
func (s *ingestionServiceImpl) store(ctx context.Context, rows []map[string]interface{}, source string, upsert bool) (*IngestResult, error) {
	result := &IngestResult{IDs: []string{}}
	if len(rows) == 0 {
		return result, nil
	}

	now := s.now().UTC()
	stored := make([]*entity.StoredInvoice, 0, len(rows))
	seen := make(map[string]int, len(rows))

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		for _, row := range rows {
			inv := invoice.FromRaw(row)
			rec := &entity.StoredInvoice{
				ID:        uniqueID(rowID(inv), seen),
				Invoice:   inv,
				DedupKey:  DedupKey(row),
				CreatedAt: now,
				UpdatedAt: now,
			}

			if upsert {
				if err := s.invoices.Upsert(ctx, rec); err != nil {
					return fmt.Errorf("upsert invoice %s: %w", rec.ID, err)
				}
			} else {
				inserted, err := s.invoices.InsertNew(ctx, rec)
				if err != nil {
					return fmt.Errorf("insert invoice %s: %w", rec.ID, err)
				}
				if !inserted {
					result.Skipped++
					continue
				}
			}

			if err := s.rememberUser(ctx, inv, row); err != nil {
				return err
			}
			stored = append(stored, rec)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to ingest rows", "error", err, "source", source, "rows", len(rows))
		return nil, err
	}

	for _, rec := range stored {
		result.Stored++
		result.IDs = append(result.IDs, rec.ID)
		s.publish(ctx, rec, source)
	}

	s.logger.Info("Rows ingested", "source", source, "stored", result.Stored, "skipped", result.Skipped)
	return result, nil
}

// rememberUser records the operator name carried by a row, if any
func (s *ingestionServiceImpl) rememberUser(ctx context.Context, inv *entity.Invoice, row map[string]interface{}) error {
	if inv.UserID == nil || s.users == nil {
		return nil
	}
	raw, _ := row["username"].(string)
	name, err := utils.ValidateUsername(raw)
	if err != nil {
		return nil
	}
	if err := s.users.Upsert(ctx, &entity.User{ID: *inv.UserID, Username: name, CreatedAt: s.now().UTC()}); err != nil {
		return fmt.Errorf("store user %d: %w", *inv.UserID, err)
	}
	return nil
}

func (s *ingestionServiceImpl) publish(ctx context.Context, rec *entity.StoredInvoice, source string) {
	if s.dispatcher == nil {
		return
	}
	evt := event.NewEvent(event.TypeInvoiceIngested, rec.ID, map[string]interface{}{
		event.KeyInvoice: rec.Invoice,
		event.KeySource:  source,
	})
	if rec.Invoice.ClientIP != "" {
		evt.WithPayload(event.KeyClientIP, rec.Invoice.ClientIP)
	}
	if err := s.dispatcher.Dispatch(ctx, evt); err != nil {
		s.logger.Error("Failed to publish event", "error", err, "id", rec.ID)
	}
}

// DedupKey hashes the fields that identify one extracted row of a delivery
func DedupKey(row map[string]interface{}) string {
	parts := []string{
		scalar(row["received_at"]),
		scalar(row["nif_emision"]),
		scalar(row["nif_receptor"]),
		scalar(row["importe_total"]),
		scalar(row["numero_factura"]),
	}
	return strconv.FormatUint(xxhash.Sum64String(strings.Join(parts, "|")), 16)
}

// upstreamRows extracts the rows of an upstream message and stamps them with
// the message metadata. The rows come from "data", then "value", then the
// message itself.
func upstreamRows(msg map[string]interface{}) []map[string]interface{} {
	if msg == nil {
		return nil
	}

	payload := msg["data"]
	if payload == nil {
		payload = msg["value"]
	}
	if payload == nil {
		payload = msg
	}

	url := msg["url"]
	if url == nil {
		if obj, ok := payload.(map[string]interface{}); ok {
			url = obj["url"]
		}
	}
	timestamp := msg["timestamp"]
	if timestamp == nil {
		if data, ok := msg["data"].(map[string]interface{}); ok {
			timestamp = data["timestamp"]
		}
	}

	meta := map[string]interface{}{
		"url":          url,
		"num_doc":      msg["num_doc"],
		"code_error":   msg["code_error"],
		"id_doc_drive": msg["id_doc_drive"],
		"tipo":         msg["tipo"],
		"timestamp":    timestamp,
	}

	var rows []map[string]interface{}
	switch p := payload.(type) {
	case []interface{}:
		for _, item := range p {
			if row, ok := item.(map[string]interface{}); ok {
				rows = append(rows, stamp(clone(row), meta))
			}
		}
	case map[string]interface{}:
		row := stamp(clone(p), meta)
		if name := scalar(msg["nombre_factura"]); name != "" {
			row["nombre_factura"] = name
		}
		rows = append(rows, row)
	}
	return rows
}

// stamp copies the non-empty metadata values onto row
func stamp(row, meta map[string]interface{}) map[string]interface{} {
	for k, v := range meta {
		if scalar(v) != "" {
			row[k] = v
		}
	}
	return row
}

func clone(row map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

func rowID(inv *entity.Invoice) string {
	if id := inv.ResolveID(); id != "" {
		return id
	}
	return uuid.NewString()
}

// uniqueID suffixes ids repeated within one batch with their occurrence number
func uniqueID(id string, seen map[string]int) string {
	seen[id]++
	if n := seen[id]; n > 1 {
		return fmt.Sprintf("%s-%d", id, n)
	}
	return id
}

func scalar(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
