package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/facturas-review/internal/application/port"
	"github.com/garyjia/facturas-review/internal/application/service"
	"github.com/garyjia/facturas-review/internal/domain/entity"
	"github.com/garyjia/facturas-review/internal/domain/workflow"
	"github.com/garyjia/facturas-review/internal/export"
	"github.com/garyjia/facturas-review/internal/invoice"
	"github.com/garyjia/facturas-review/internal/realtime"
)

type fakeReview struct {
	listFunc     func(ctx context.Context, filter port.InvoiceFilter) ([]*entity.ReviewItem, error)
	getFunc      func(ctx context.Context, id string) (*service.InvoiceDetail, error)
	updateFunc   func(ctx context.Context, id string, patch *entity.Patch) (*entity.ReviewItem, error)
	validateFunc func(ctx context.Context, id string, patch *entity.Patch) (*service.ValidationResult, error)
	acceptFunc   func(ctx context.Context, id string, patch *entity.Patch, userID string) (*service.Outcome, error)
	discardFunc  func(ctx context.Context, id string, patch *entity.Patch, userID string) (*service.Outcome, error)
	totalFunc    func(ctx context.Context, userID *int64) (int, error)
	names        map[int64]string
}

func (f *fakeReview) List(ctx context.Context, filter port.InvoiceFilter) ([]*entity.ReviewItem, error) {
	if f.listFunc != nil {
		return f.listFunc(ctx, filter)
	}
	return []*entity.ReviewItem{}, nil
}

func (f *fakeReview) Get(ctx context.Context, id string) (*service.InvoiceDetail, error) {
	if f.getFunc != nil {
		return f.getFunc(ctx, id)
	}
	return nil, port.ErrInvoiceNotFound
}

func (f *fakeReview) Update(ctx context.Context, id string, patch *entity.Patch) (*entity.ReviewItem, error) {
	if f.updateFunc != nil {
		return f.updateFunc(ctx, id, patch)
	}
	return &entity.ReviewItem{ID: id}, nil
}

func (f *fakeReview) Validate(ctx context.Context, id string, patch *entity.Patch) (*service.ValidationResult, error) {
	if f.validateFunc != nil {
		return f.validateFunc(ctx, id, patch)
	}
	return &service.ValidationResult{Valid: true, Codes: []invoice.ErrorCode{}}, nil
}

func (f *fakeReview) Accept(ctx context.Context, id string, patch *entity.Patch, userID string) (*service.Outcome, error) {
	if f.acceptFunc != nil {
		return f.acceptFunc(ctx, id, patch, userID)
	}
	return &service.Outcome{ID: id, State: workflow.StateAccepted}, nil
}

func (f *fakeReview) Discard(ctx context.Context, id string, patch *entity.Patch, userID string) (*service.Outcome, error) {
	if f.discardFunc != nil {
		return f.discardFunc(ctx, id, patch, userID)
	}
	return &service.Outcome{ID: id, State: workflow.StateDiscarded}, nil
}

func (f *fakeReview) TotalForUser(ctx context.Context, userID *int64) (int, error) {
	if f.totalFunc != nil {
		return f.totalFunc(ctx, userID)
	}
	return 0, nil
}

func (f *fakeReview) PendingByUser(context.Context) ([]entity.ClientSummary, error) {
	return []entity.ClientSummary{{UserID: 7, Username: "ana", Pending: 2}}, nil
}

func (f *fakeReview) Username(_ context.Context, userID int64) string {
	if name, ok := f.names[userID]; ok {
		return name
	}
	return fmt.Sprintf("Usuario %d", userID)
}

func (f *fakeReview) SetUsername(_ context.Context, userID int64, username string) error {
	if f.names == nil {
		f.names = map[int64]string{}
	}
	f.names[userID] = username
	return nil
}

type fakeIngestion struct {
	envelopes chan *service.Envelope
	frames    chan json.RawMessage
}

func newFakeIngestion() *fakeIngestion {
	return &fakeIngestion{envelopes: make(chan *service.Envelope, 4), frames: make(chan json.RawMessage, 4)}
}

func (f *fakeIngestion) IngestEnvelope(_ context.Context, env *service.Envelope) (*service.IngestResult, error) {
	f.envelopes <- env
	return &service.IngestResult{Stored: len(env.Payload.Data), IDs: []string{}}, nil
}

func (f *fakeIngestion) IngestUpstream(context.Context, map[string]interface{}) (*service.IngestResult, error) {
	return &service.IngestResult{IDs: []string{}}, nil
}

func (f *fakeIngestion) IngestRows(context.Context, []map[string]interface{}, string) (*service.IngestResult, error) {
	return &service.IngestResult{IDs: []string{}}, nil
}

func (f *fakeIngestion) HandleSocketMessage(_ context.Context, raw json.RawMessage) error {
	f.frames <- raw
	return nil
}

type syncFunc func(ctx context.Context) (*service.IngestResult, error)

func (f syncFunc) Run(ctx context.Context) (*service.IngestResult, error) { return f(ctx) }

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type fixture struct {
	server    *Server
	review    *fakeReview
	ingestion *fakeIngestion
	hub       *realtime.Hub
	syncErr   error
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		review:    &fakeReview{},
		ingestion: newFakeIngestion(),
		hub:       realtime.NewHub(0, zap.NewNop()),
	}
	t.Cleanup(f.hub.Close)

	runner := syncFunc(func(context.Context) (*service.IngestResult, error) {
		if f.syncErr != nil {
			return nil, f.syncErr
		}
		return &service.IngestResult{Stored: 3, IDs: []string{}}, nil
	})
	f.server = NewServer(DefaultServerConfig(), f.review, f.ingestion, runner, f.hub, nopLogger{})
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.server.Router().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "healthy", resp["data"].(map[string]interface{})["status"])
}

func TestListInvoices_Filter(t *testing.T) {
	f := newFixture(t)
	var got port.InvoiceFilter
	f.review.listFunc = func(_ context.Context, filter port.InvoiceFilter) ([]*entity.ReviewItem, error) {
		got = filter
		return []*entity.ReviewItem{{ID: "a", FileName: "a.pdf"}}, nil
	}

	w := f.do(http.MethodGet, "/api/invoices?user_id=7&all=true&limit=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got.UserID)
	assert.Equal(t, int64(7), *got.UserID)
	assert.True(t, got.IncludeReviewed)
	assert.Equal(t, 10, got.Limit)

	data := decode(t, w)["data"].([]interface{})
	assert.Equal(t, "a.pdf", data[0].(map[string]interface{})["file_name"])

	w = f.do(http.MethodGet, "/api/invoices?user_id=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetInvoice_NotFound(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/invoices/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "invoice not found", decode(t, w)["error"])
}

func TestUpdateInvoice_BindsPatch(t *testing.T) {
	f := newFixture(t)
	var got *entity.Patch
	f.review.updateFunc = func(_ context.Context, id string, patch *entity.Patch) (*entity.ReviewItem, error) {
		got = patch
		return &entity.ReviewItem{ID: id}, nil
	}

	w := f.do(http.MethodPut, "/api/invoices/a", `{"nombre_cliente":"ACME","importe_total":121}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got)
	assert.Equal(t, "ACME", entity.Deref(got.ClientName))
	assert.Equal(t, 121.0, *got.Total)

	w = f.do(http.MethodPut, "/api/invoices/a", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidateInvoice_EmptyBody(t *testing.T) {
	f := newFixture(t)
	called := false
	f.review.validateFunc = func(_ context.Context, _ string, patch *entity.Patch) (*service.ValidationResult, error) {
		called = true
		assert.Nil(t, patch)
		return &service.ValidationResult{Valid: true, Codes: []invoice.ErrorCode{}}, nil
	}

	w := f.do(http.MethodPost, "/api/invoices/a/validate", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, called)
}

func TestAcceptInvoice(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		f := newFixture(t)
		f.review.acceptFunc = func(_ context.Context, id string, patch *entity.Patch, userID string) (*service.Outcome, error) {
			assert.Equal(t, "a", id)
			assert.Equal(t, "7", userID)
			assert.Equal(t, "B1", entity.Deref(patch.IssuerTaxID))
			return &service.Outcome{ID: id, State: workflow.StateAccepted}, nil
		}

		w := f.do(http.MethodPost, "/api/invoices/a/accept?user_id=7", `{"nif_emision":"B1"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ACCEPTED", decode(t, w)["data"].(map[string]interface{})["state"])
	})

	t.Run("validation failure", func(t *testing.T) {
		f := newFixture(t)
		codes := []invoice.ErrorCode{invoice.CodeTotalMismatch, invoice.CodeInvalidDate}
		f.review.acceptFunc = func(context.Context, string, *entity.Patch, string) (*service.Outcome, error) {
			return nil, &service.ValidationError{Codes: codes, Fields: invoice.Resolve(codes, nil)}
		}

		w := f.do(http.MethodPost, "/api/invoices/a/accept", "")
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decode(t, w)
		assert.Equal(t, false, resp["success"])
		data := resp["data"].(map[string]interface{})
		assert.Equal(t, []interface{}{"305", "307"}, data["codes"])
		assert.Len(t, data["fields"], 2)
	})

	t.Run("already corrected", func(t *testing.T) {
		f := newFixture(t)
		f.review.acceptFunc = func(context.Context, string, *entity.Patch, string) (*service.Outcome, error) {
			return nil, service.ErrAlreadyCorrected
		}

		w := f.do(http.MethodPost, "/api/invoices/a/accept", "")
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("unexpected error", func(t *testing.T) {
		f := newFixture(t)
		f.review.acceptFunc = func(context.Context, string, *entity.Patch, string) (*service.Outcome, error) {
			return nil, errors.New("boom")
		}

		w := f.do(http.MethodPost, "/api/invoices/a/accept", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "failed to accept invoice", decode(t, w)["error"])
	})
}

func TestDiscardInvoice(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/invoices/a/discard?user_id=7", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DISCARDED", decode(t, w)["data"].(map[string]interface{})["state"])
}

func TestExportInvoices(t *testing.T) {
	f := newFixture(t)
	f.review.listFunc = func(_ context.Context, filter port.InvoiceFilter) ([]*entity.ReviewItem, error) {
		assert.True(t, filter.IncludeReviewed)
		return []*entity.ReviewItem{{ID: "a", Row: &entity.Invoice{DocumentID: "a", Number: entity.String("F-1")}}}, nil
	}

	w := f.do(http.MethodGet, "/api/invoices/export?all=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")

	book, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows(export.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"a", "F-1"}, rows[1])
}

func TestTotalPages(t *testing.T) {
	f := newFixture(t)
	f.review.totalFunc = func(_ context.Context, userID *int64) (int, error) {
		if userID == nil {
			return 10, nil
		}
		return int(*userID), nil
	}

	w := f.do(http.MethodGet, "/api/pages?user_id=4", "")
	assert.Equal(t, 4.0, decode(t, w)["data"].(map[string]interface{})["total"])

	w = f.do(http.MethodGet, "/api/pages?user_id=0", "")
	assert.Equal(t, 10.0, decode(t, w)["data"].(map[string]interface{})["total"])
}

func TestUsernames(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/username?user_id=12", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Usuario 12", decode(t, w)["data"].(map[string]interface{})["username"])

	w = f.do(http.MethodPut, "/api/users/12", `{"username":"luis"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/api/username?user_id=12", "")
	assert.Equal(t, "luis", decode(t, w)["data"].(map[string]interface{})["username"])

	w = f.do(http.MethodPut, "/api/users/12", `{"username":" \t "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodGet, "/api/username", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodGet, "/api/count", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["data"], 1)
}

func TestResolveFields(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/fields?codes=305;;999", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].([]interface{})
	require.Len(t, data, 2)
	assert.Equal(t, "Importe Total (€)", data[0].(map[string]interface{})["label"])
	assert.Equal(t, "Código 999 desconocido", data[1].(map[string]interface{})["label"])

	for _, query := range []string{"codes=305;307", "codes=305%3B307", "lang=es&codes=305;+307"} {
		w = f.do(http.MethodGet, "/api/fields?"+query, "")
		require.Equal(t, http.StatusOK, w.Code, query)
		data = decode(t, w)["data"].([]interface{})
		require.Len(t, data, 2, query)
		assert.Equal(t, "305", data[0].(map[string]interface{})["key"], query)
		assert.Equal(t, "307", data[1].(map[string]interface{})["key"], query)
	}

	w = f.do(http.MethodGet, "/api/fields", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["data"])
}

func TestRawQueryValue(t *testing.T) {
	tests := []struct {
		raw, expected string
	}{
		{"codes=305;307", "305;307"},
		{"a=1&codes=305%3B309&codes=310", "305;309"},
		{"codes=305%zz", "305%zz"},
		{"other=1", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.expected, rawQueryValue(tt.raw, "codes"))
		})
	}
}

func TestIngest_FillsDefaults(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/ingest", `{"payload":{"data":[{"numero_factura":"F-1"}]}}`)
	require.Equal(t, http.StatusOK, w.Code)

	env := <-f.ingestion.envelopes
	assert.NotEmpty(t, env.ReceivedAt)
	assert.Equal(t, "192.0.2.1", env.ClientIP)
	assert.Equal(t, 1.0, decode(t, w)["data"].(map[string]interface{})["stored"])
}

func TestSync(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/sync", "")
	require.Equal(t, http.StatusOK, w.Code)

	f.syncErr = fmt.Errorf("fetch: %w", port.ErrUndecryptable)
	w = f.do(http.MethodPost, "/api/sync", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestEvents_PublishAndLog(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/events", `{"message":"hola","alert":true}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	w = f.do(http.MethodPost, "/api/events", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodGet, "/api/events/log", "")
	data := decode(t, w)["data"].([]interface{})
	require.Len(t, data, 1)
	entry := data[0].(map[string]interface{})
	assert.Equal(t, "alert", entry["event"])
	assert.Equal(t, "hola", entry["data"].(map[string]interface{})["message"])
}

func TestEvents_ServerSentStream(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.server.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() string {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "event:") {
				return strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			}
		}
	}

	assert.Equal(t, "connected", readEvent())

	require.Eventually(t, func() bool { return f.hub.SubscriberCount() == 1 }, time.Second, 10*time.Millisecond)
	f.hub.Publish("notification", map[string]string{"message": "hola"})
	assert.Equal(t, "notification", readEvent())
}

func TestWebSocket(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.server.Router())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	var hello realtime.Message
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "connected", hello.Event)

	f.hub.Publish("invoice.ingested", map[string]string{"id": "a"})
	var msg realtime.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "invoice.ingested", msg.Event)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"payload":{"data":[]}}`)))
	select {
	case frame := <-f.ingestion.frames:
		assert.JSONEq(t, `{"payload":{"data":[]}}`, string(frame))
	case <-time.After(time.Second):
		t.Fatal("frame was not ingested")
	}
}
