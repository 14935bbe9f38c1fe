// Package remote talks to the remote invoice service: encrypted invoice
// downloads, review-state lookups and submission of operator decisions.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/garyjia/facturas-review/internal/application/port"
	"github.com/garyjia/facturas-review/internal/domain/entity"
	"github.com/garyjia/facturas-review/internal/payload"
	"go.uber.org/zap"
)

// Config holds the remote endpoints and credentials
type Config struct {
	// APIURL is the base of the getFacturas, saveFactura and contador
	// endpoints; it is concatenated with the endpoint name.
	APIURL     string
	InvoiceURL string
	DiscardURL string
	Passphrase string
	Timeout    time.Duration
}

// Client implements port.RemoteInvoiceAPI over HTTP
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// NewClient creates a remote API client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logger.Named("remote"),
	}
}

// FetchInvoices downloads the encrypted invoice document and returns its rows.
// A single object document is returned as one row; an empty document as none.
func (c *Client) FetchInvoices(ctx context.Context, clientID, invoiceID string) ([]map[string]interface{}, error) {
	params := url.Values{}
	params.Set("action", "invoice")
	params.Set("client_id", clientID)
	params.Set("invoice_id", invoiceID)

	var resp struct {
		Invoice string `json:"invoice"`
	}
	if err := c.getJSON(ctx, withQuery(c.cfg.InvoiceURL, params), &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch invoices: %w", err)
	}
	if resp.Invoice == "" {
		return nil, nil
	}

	plain, err := payload.Decrypt(resp.Invoice, c.cfg.Passphrase)
	if err != nil {
		c.logger.Error("Failed to decrypt invoice payload", zap.String("client_id", clientID))
		return nil, port.ErrUndecryptable
	}

	rows, err := decodeRows([]byte(plain))
	if err != nil {
		return nil, fmt.Errorf("failed to decode invoice rows: %w", err)
	}

	c.logger.Info("Fetched remote invoices", zap.Int("rows", len(rows)))
	return rows, nil
}

// CorrectedStatus returns the corregido value the remote service holds
func (c *Client) CorrectedStatus(ctx context.Context, timestamp string, userID int64) (entity.CorrectedStatus, error) {
	params := url.Values{}
	params.Set("timestamp", timestamp)
	params.Set("id_user", strconv.FormatInt(userID, 10))

	var resp struct {
		Data []struct {
			Corrected entity.CorrectedStatus `json:"corregido"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, withQuery(c.cfg.APIURL+"getFacturas", params), &resp); err != nil {
		return 0, fmt.Errorf("failed to get corrected status: %w", err)
	}
	if len(resp.Data) == 0 {
		return 0, errors.New("remote service returned no invoice")
	}
	return resp.Data[0].Corrected, nil
}

// SubmitCompleted posts an accepted correction
func (c *Client) SubmitCompleted(ctx context.Context, submission *entity.Submission) (*port.SubmitResult, error) {
	params := url.Values{}
	params.Set("action", "update")
	params.Set("id_user", submission.UserID)

	var result port.SubmitResult
	if err := c.postJSON(ctx, withQuery(c.cfg.APIURL+"saveFactura", params), submission, &result); err != nil {
		return nil, fmt.Errorf("failed to submit completed invoice: %w", err)
	}
	return &result, nil
}

// SubmitDiscarded posts a discarded invoice to the discard hook
func (c *Client) SubmitDiscarded(ctx context.Context, submission *entity.Submission) (*port.SubmitResult, error) {
	body := map[string]interface{}{"data": submission}

	var result port.SubmitResult
	if err := c.postJSON(ctx, c.cfg.DiscardURL, body, &result); err != nil {
		return nil, fmt.Errorf("failed to submit discarded invoice: %w", err)
	}
	return &result, nil
}

// Counter refreshes the remote correction counter of a user
func (c *Client) Counter(ctx context.Context, userID string, timestamp string) (*port.SubmitResult, error) {
	params := url.Values{}
	params.Set("id_user", userID)
	params.Set("timestamp", timestamp)

	var result port.SubmitResult
	if err := c.getJSON(ctx, withQuery(c.cfg.APIURL+"contador", params), &result); err != nil {
		return nil, fmt.Errorf("failed to refresh counter: %w", err)
	}
	return &result, nil
}

func (c *Client) getJSON(ctx context.Context, target string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, target string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("Remote request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("Remote request completed",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeRows accepts either a JSON array of rows or a single row object.
func decodeRows(data []byte) ([]map[string]interface{}, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	if data[0] == '{' {
		var row map[string]interface{}
		if err := json.Unmarshal(data, &row); err != nil {
			return nil, err
		}
		return []map[string]interface{}{row}, nil
	}

	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func withQuery(base string, params url.Values) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + params.Encode()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Verify interface compliance
var _ port.RemoteInvoiceAPI = (*Client)(nil)
