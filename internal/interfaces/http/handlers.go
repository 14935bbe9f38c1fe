package http

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/facturas-review/internal/application/port"
	"github.com/garyjia/facturas-review/internal/application/service"
	"github.com/garyjia/facturas-review/internal/domain/entity"
	"github.com/garyjia/facturas-review/internal/domain/event"
	"github.com/garyjia/facturas-review/internal/export"
	"github.com/garyjia/facturas-review/internal/invoice"
	"github.com/garyjia/facturas-review/pkg/utils"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	review    service.ReviewService
	ingestion service.IngestionService
	sync      SyncRunner
	feed      Feed
	origins   []string
	logger    Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	review service.ReviewService,
	ingestion service.IngestionService,
	sync SyncRunner,
	feed Feed,
	origins []string,
	logger Logger,
) *Handlers {
	return &Handlers{
		review:    review,
		ingestion: ingestion,
		sync:      sync,
		feed:      feed,
		origins:   origins,
		logger:    logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// ListInvoicesRequest represents query parameters for listing invoices
type ListInvoicesRequest struct {
	UserID *int64 `form:"user_id"`
	All    bool   `form:"all"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// UsernameRequest holds a username update
type UsernameRequest struct {
	Username string `json:"username" binding:"required"`
}

// NotificationRequest is an operator test notification
type NotificationRequest struct {
	Message string `json:"message" binding:"required"`
	Alert   bool   `json:"alert"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// ListInvoices handles GET /api/invoices
func (h *Handlers) ListInvoices(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}

	items, err := h.review.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err, "failed to retrieve invoices")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: items})
}

// GetInvoice handles GET /api/invoices/:id
func (h *Handlers) GetInvoice(c *gin.Context) {
	detail, err := h.review.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to retrieve invoice")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: detail})
}

// UpdateInvoice handles PUT /api/invoices/:id
func (h *Handlers) UpdateInvoice(c *gin.Context) {
	patch, ok := h.bindPatch(c)
	if !ok {
		return
	}

	item, err := h.review.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.fail(c, err, "failed to update invoice")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: item})
}

// ValidateInvoice handles POST /api/invoices/:id/validate
func (h *Handlers) ValidateInvoice(c *gin.Context) {
	patch, ok := h.bindPatch(c)
	if !ok {
		return
	}

	result, err := h.review.Validate(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.fail(c, err, "failed to validate invoice")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// AcceptInvoice handles POST /api/invoices/:id/accept
func (h *Handlers) AcceptInvoice(c *gin.Context) {
	patch, ok := h.bindPatch(c)
	if !ok {
		return
	}

	id := c.Param("id")
	h.logger.Info("Accepting invoice", "id", id, "user_id", c.Query("user_id"))

	outcome, err := h.review.Accept(c.Request.Context(), id, patch, c.Query("user_id"))
	if err != nil {
		h.fail(c, err, "failed to accept invoice")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: outcome})
}

// DiscardInvoice handles POST /api/invoices/:id/discard
func (h *Handlers) DiscardInvoice(c *gin.Context) {
	patch, ok := h.bindPatch(c)
	if !ok {
		return
	}

	id := c.Param("id")
	h.logger.Info("Discarding invoice", "id", id, "user_id", c.Query("user_id"))

	outcome, err := h.review.Discard(c.Request.Context(), id, patch, c.Query("user_id"))
	if err != nil {
		h.fail(c, err, "failed to discard invoice")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: outcome})
}

// ExportInvoices handles GET /api/invoices/export
func (h *Handlers) ExportInvoices(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}

	items, err := h.review.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err, "failed to retrieve invoices")
		return
	}

	rows := make([]*entity.Invoice, 0, len(items))
	for _, item := range items {
		rows = append(rows, item.Row)
	}

	filename := "facturas-" + time.Now().Format("20060102-150405") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", export.ContentType)
	c.Status(http.StatusOK)

	if err := export.Write(c.Writer, rows); err != nil {
		h.logger.Error("Failed to write workbook", "error", err)
	}
}

// TotalPages handles GET /api/pages
func (h *Handlers) TotalPages(c *gin.Context) {
	userID, ok := h.optionalUserID(c)
	if !ok {
		return
	}
	// user 0 is the "all users" selection
	if userID != nil && *userID == 0 {
		userID = nil
	}

	total, err := h.review.TotalForUser(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err, "failed to count invoices")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"total": total}})
}

// PendingCount handles GET /api/count
func (h *Handlers) PendingCount(c *gin.Context) {
	summaries, err := h.review.PendingByUser(c.Request.Context())
	if err != nil {
		h.fail(c, err, "failed to count pending invoices")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: summaries})
}

// Username handles GET /api/username
func (h *Handlers) Username(c *gin.Context) {
	userID, ok := h.optionalUserID(c)
	if !ok {
		return
	}
	if userID == nil {
		h.badRequest(c, "user_id is required")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"id_user":  *userID,
			"username": h.review.Username(c.Request.Context(), *userID),
		},
	})
}

// SetUsername handles PUT /api/users/:id
func (h *Handlers) SetUsername(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.badRequest(c, "invalid user ID")
		return
	}

	var req UsernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	username, err := utils.ValidateUsername(req.Username)
	if err != nil {
		h.badRequest(c, err.Error())
		return
	}

	if err := h.review.SetUsername(c.Request.Context(), id, username); err != nil {
		h.fail(c, err, "failed to store username")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"id_user": id, "username": username}})
}

// ResolveFields handles GET /api/fields
func (h *Handlers) ResolveFields(c *gin.Context) {
	codes := invoice.ParseCodes(rawQueryValue(c.Request.URL.RawQuery, "codes"))
	c.JSON(http.StatusOK, Response{Success: true, Data: invoice.Resolve(codes, nil)})
}

// rawQueryValue returns the first value of key without going through
// url.ParseQuery, which drops any pair holding an unescaped ';'. Error codes
// arrive ';'-joined, e.g. codes=305;307.
func rawQueryValue(rawQuery, key string) string {
	for _, pair := range strings.Split(rawQuery, "&") {
		k, v, _ := strings.Cut(pair, "=")
		if k != key {
			continue
		}
		if unescaped, err := url.QueryUnescape(v); err == nil {
			return unescaped
		}
		return v
	}
	return ""
}

// Ingest handles POST /api/ingest
func (h *Handlers) Ingest(c *gin.Context) {
	var env service.Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		h.badRequest(c, "invalid envelope")
		return
	}
	if env.ReceivedAt == "" {
		env.ReceivedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if env.ClientIP == "" {
		env.ClientIP = c.ClientIP()
	}

	result, err := h.ingestion.IngestEnvelope(c.Request.Context(), &env)
	if err != nil {
		h.fail(c, err, "failed to ingest invoices")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// Sync handles POST /api/sync
func (h *Handlers) Sync(c *gin.Context) {
	result, err := h.sync.Run(c.Request.Context())
	if err != nil {
		h.fail(c, err, "failed to sync invoices")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// EventLog handles GET /api/events/log
func (h *Handlers) EventLog(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true, Data: h.feed.Log()})
}

// PublishEvent handles POST /api/events
func (h *Handlers) PublishEvent(c *gin.Context) {
	var req NotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "message is required")
		return
	}

	name := event.TypeNotification
	if req.Alert {
		name = event.TypeAlert
	}
	id := h.feed.Publish(name.String(), gin.H{
		event.KeyMessage: req.Message,
		event.KeySource:  "operator",
	})

	c.JSON(http.StatusAccepted, Response{Success: true, Data: gin.H{"id": id, "event": name}})
}

func (h *Handlers) bindFilter(c *gin.Context) (port.InvoiceFilter, bool) {
	var req ListInvoicesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", "error", err)
		h.badRequest(c, "invalid query parameters")
		return port.InvoiceFilter{}, false
	}
	if req.Limit < 0 {
		req.Limit = 0
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	return port.InvoiceFilter{
		UserID:          req.UserID,
		IncludeReviewed: req.All,
		Limit:           req.Limit,
		Offset:          req.Offset,
	}, true
}

// bindPatch decodes an optional patch body. An empty body is a nil patch.
func (h *Handlers) bindPatch(c *gin.Context) (*entity.Patch, bool) {
	var patch entity.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, true
		}
		h.badRequest(c, "invalid invoice body")
		return nil, false
	}
	return &patch, true
}

// optionalUserID reads the user_id query parameter; nil when absent
func (h *Handlers) optionalUserID(c *gin.Context) (*int64, bool) {
	raw := c.Query("user_id")
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.badRequest(c, "invalid user_id")
		return nil, false
	}
	return &id, true
}

func (h *Handlers) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// fail maps service errors to status codes
func (h *Handlers) fail(c *gin.Context, err error, msg string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, Response{
			Success: false,
			Data:    gin.H{"codes": verr.Codes, "fields": verr.Fields},
			Error:   verr.Error(),
		})
	case errors.Is(err, port.ErrInvoiceNotFound):
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "invoice not found"})
	case errors.Is(err, service.ErrAlreadyCorrected):
		c.JSON(http.StatusConflict, Response{Success: false, Error: err.Error()})
	case errors.Is(err, port.ErrUndecryptable):
		h.logger.Error(msg, "error", err)
		c.JSON(http.StatusBadGateway, Response{Success: false, Error: msg + ": " + err.Error()})
	default:
		h.logger.Error(msg, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: msg})
	}
}
