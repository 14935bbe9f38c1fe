package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/garyjia/facturas-review/internal/application/dispatcher"
	"github.com/garyjia/facturas-review/internal/application/port"
	"github.com/garyjia/facturas-review/internal/domain/entity"
	"github.com/garyjia/facturas-review/internal/domain/event"
	"github.com/garyjia/facturas-review/internal/domain/workflow"
	"github.com/garyjia/facturas-review/internal/invoice"
	"golang.org/x/sync/errgroup"
)

// InvoiceDetail is a review item together with the form fields flagged by
// its stored error codes
type InvoiceDetail struct {
	*entity.ReviewItem
	State  workflow.State      `json:"state"`
	Fields []invoice.FieldSpec `json:"fields"`
}

// ValidationResult is the outcome of running the rules on an invoice
type ValidationResult struct {
	Valid  bool                `json:"valid"`
	Codes  []invoice.ErrorCode `json:"codes"`
	Fields []invoice.FieldSpec `json:"fields"`
}

// Outcome is the result of an accept or discard
type Outcome struct {
	ID           string         `json:"id"`
	State        workflow.State `json:"state"`
	CurrentCount *int           `json:"current_count,omitempty"`
}

// ReviewService drives the operator review of stored invoices
type ReviewService interface {
	List(ctx context.Context, filter port.InvoiceFilter) ([]*entity.ReviewItem, error)
	Get(ctx context.Context, id string) (*InvoiceDetail, error)
	Update(ctx context.Context, id string, patch *entity.Patch) (*entity.ReviewItem, error)
	Validate(ctx context.Context, id string, patch *entity.Patch) (*ValidationResult, error)

	// Accept validates the patched invoice, submits it to the remote service
	// and marks it accepted. Invalid invoices fail with *ValidationError.
	Accept(ctx context.Context, id string, patch *entity.Patch, userID string) (*Outcome, error)

	// Discard submits the invoice as discarded without validating it.
	Discard(ctx context.Context, id string, patch *entity.Patch, userID string) (*Outcome, error)

	TotalForUser(ctx context.Context, userID *int64) (int, error)
	PendingByUser(ctx context.Context) ([]entity.ClientSummary, error)
	Username(ctx context.Context, userID int64) string
	SetUsername(ctx context.Context, userID int64, username string) error
}

type reviewServiceImpl struct {
	invoices   port.InvoiceRepository
	users      port.UserRepository
	remote     port.RemoteInvoiceAPI
	dispatcher dispatcher.Dispatcher
	logger     Logger
	now        func() time.Time

	mu    sync.Mutex
	names map[int64]string
}

// NewReviewService creates a new ReviewService
func NewReviewService(
	invoices port.InvoiceRepository,
	users port.UserRepository,
	remote port.RemoteInvoiceAPI,
	d dispatcher.Dispatcher,
	logger Logger,
) ReviewService {
	return &reviewServiceImpl{
		invoices:   invoices,
		users:      users,
		remote:     remote,
		dispatcher: d,
		logger:     logger,
		now:        time.Now,
		names:      make(map[int64]string),
	}
}

// List returns review items, pending only unless filter.IncludeReviewed
func (s *reviewServiceImpl) List(ctx context.Context, filter port.InvoiceFilter) ([]*entity.ReviewItem, error) {
	recs, err := s.invoices.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list invoices", "error", err)
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	now := s.now()
	items := make([]*entity.ReviewItem, 0, len(recs))
	for _, rec := range recs {
		items = append(items, s.item(ctx, rec, now))
	}
	return items, nil
}

// Get returns one invoice with the fields its error codes point at
func (s *reviewServiceImpl) Get(ctx context.Context, id string) (*InvoiceDetail, error) {
	rec, err := s.invoices.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	codes := invoice.ParseCodes(entity.Deref(rec.Invoice.ErrorCode))
	return &InvoiceDetail{
		ReviewItem: s.item(ctx, rec, s.now()),
		State:      workflow.StateFor(rec.Invoice.Corrected),
		Fields:     invoice.Resolve(codes, nil),
	}, nil
}

// Update merges patch into the stored invoice
func (s *reviewServiceImpl) Update(ctx context.Context, id string, patch *entity.Patch) (*entity.ReviewItem, error) {
	rec, err := s.invoices.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	rec.Invoice = rec.Invoice.Merge(patch)
	if err := s.invoices.Upsert(ctx, rec); err != nil {
		s.logger.Error("Failed to update invoice", "error", err, "id", id)
		return nil, fmt.Errorf("update invoice: %w", err)
	}

	s.publish(ctx, event.TypeInvoiceUpdated, rec.ID, map[string]interface{}{
		event.KeyInvoice: rec.Invoice,
	})
	return s.item(ctx, rec, s.now()), nil
}

// Validate runs the rules on the stored invoice with patch applied. Nothing
// is persisted.
func (s *reviewServiceImpl) Validate(ctx context.Context, id string, patch *entity.Patch) (*ValidationResult, error) {
	rec, err := s.invoices.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	codes := invoice.Validate(rec.Invoice.Merge(patch))
	if codes == nil {
		codes = []invoice.ErrorCode{}
	}
	return &ValidationResult{
		Valid:  len(codes) == 0,
		Codes:  codes,
		Fields: invoice.Resolve(codes, nil),
	}, nil
}

func (s *reviewServiceImpl) Accept(ctx context.Context, id string, patch *entity.Patch, userID string) (*Outcome, error) {
	rec, err := s.invoices.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := rec.Invoice.Merge(patch)
	if codes := invoice.Validate(merged); len(codes) > 0 {
		s.logger.Info("Accept rejected by validation", "id", id, "codes", invoice.JoinCodes(codes))
		return nil, &ValidationError{Codes: codes, Fields: invoice.Resolve(codes, nil)}
	}

	return s.finish(ctx, rec, merged, workflow.TriggerAccept, userID)
}

func (s *reviewServiceImpl) Discard(ctx context.Context, id string, patch *entity.Patch, userID string) (*Outcome, error) {
	rec, err := s.invoices.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	return s.finish(ctx, rec, rec.Invoice.Merge(patch), workflow.TriggerDiscard, userID)
}

// finish fires trigger, submits the result to the remote service and stores
// the new review state.
func (s *reviewServiceImpl) finish(ctx context.Context, rec *entity.StoredInvoice, merged *entity.Invoice, trigger workflow.Trigger, userID string) (*Outcome, error) {
	state, err := s.transition(ctx, rec, merged, trigger, userID)
	if err != nil {
		return nil, err
	}

	total, err := s.invoices.Count(ctx, merged.UserID)
	if err != nil {
		return nil, fmt.Errorf("count invoices: %w", err)
	}

	submission := entity.NewSubmission(merged, userID, total)
	var result *port.SubmitResult
	if trigger == workflow.TriggerAccept {
		result, err = s.remote.SubmitCompleted(ctx, submission.Completed())
	} else {
		result, err = s.remote.SubmitDiscarded(ctx, submission.Discarded())
	}
	if err != nil {
		s.logger.Error("Failed to submit review", "error", err, "id", rec.ID, "trigger", trigger.String())
		return nil, fmt.Errorf("submit %s: %w", trigger, err)
	}

	merged.Corrected = workflow.CorrectedFor(state)
	rec.Invoice = merged
	if err := s.invoices.Upsert(ctx, rec); err != nil {
		s.logger.Error("Failed to store review", "error", err, "id", rec.ID)
		return nil, fmt.Errorf("store review: %w", err)
	}

	outcome := &Outcome{ID: rec.ID, State: state}
	if result != nil {
		outcome.CurrentCount = result.CurrentCount
	}
	counter, err := s.remote.Counter(ctx, submission.UserID, entity.Deref(merged.Timestamp))
	if err != nil {
		s.logger.Error("Failed to refresh counter", "error", err, "user_id", submission.UserID)
	} else if counter != nil && counter.CurrentCount != nil {
		outcome.CurrentCount = counter.CurrentCount
	}

	evtType := event.TypeInvoiceAccepted
	if state == workflow.StateDiscarded {
		evtType = event.TypeInvoiceDiscarded
	}
	s.publish(ctx, evtType, rec.ID, map[string]interface{}{
		event.KeyInvoice: merged,
		event.KeyUserID:  submission.UserID,
	})

	s.logger.Info("Invoice reviewed", "id", rec.ID, "state", state.String(), "user_id", submission.UserID)
	return outcome, nil
}

// transition fires trigger on the review machine of rec, guarded by the
// remote review state. When the remote service already holds a decision the
// local record is aligned with it.
func (s *reviewServiceImpl) transition(ctx context.Context, rec *entity.StoredInvoice, inv *entity.Invoice, trigger workflow.Trigger, userID string) (workflow.State, error) {
	var (
		remote    entity.CorrectedStatus
		remoteErr error
	)
	owner := ownerOf(inv, userID)
	machine := workflow.NewReviewMachine(workflow.StateFor(rec.Invoice.Corrected), func(ctx context.Context) bool {
		remote, remoteErr = s.remote.CorrectedStatus(ctx, entity.Deref(inv.Timestamp), owner)
		return remoteErr == nil && remote.IsPending()
	})

	err := machine.Fire(ctx, trigger)
	switch {
	case err == nil:
		return machine.State(), nil
	case remoteErr != nil:
		s.logger.Error("Failed to check remote status", "error", remoteErr, "id", rec.ID)
		return "", fmt.Errorf("check remote status: %w", remoteErr)
	case errors.Is(err, workflow.ErrGuardFailed):
		if serr := s.invoices.SetCorrected(ctx, rec.ID, remote); serr != nil {
			s.logger.Error("Failed to align local status", "error", serr, "id", rec.ID)
		}
		s.logger.Info("Invoice already corrected remotely", "id", rec.ID, "corregido", remote.String())
		return "", ErrAlreadyCorrected
	case errors.Is(err, workflow.ErrInvalidTransition):
		return "", ErrAlreadyCorrected
	default:
		return "", err
	}
}

func (s *reviewServiceImpl) TotalForUser(ctx context.Context, userID *int64) (int, error) {
	return s.invoices.Count(ctx, userID)
}

// PendingByUser returns the pending count of every user with pending
// invoices, ordered by user id
func (s *reviewServiceImpl) PendingByUser(ctx context.Context) ([]entity.ClientSummary, error) {
	counts, err := s.invoices.PendingByUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("count pending invoices: %w", err)
	}

	summaries := make([]entity.ClientSummary, 0, len(counts))
	for id, pending := range counts {
		summaries = append(summaries, entity.ClientSummary{UserID: id, Pending: pending})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].UserID < summaries[j].UserID })

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i := range summaries {
		i := i
		g.Go(func() error {
			summaries[i].Username = s.Username(gctx, summaries[i].UserID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

// Username returns the stored name of a user, or "Usuario N" when unknown.
// Lookups that reach the store are cached.
func (s *reviewServiceImpl) Username(ctx context.Context, userID int64) string {
	s.mu.Lock()
	name, ok := s.names[userID]
	s.mu.Unlock()
	if ok {
		return name
	}

	fallback := "Usuario " + strconv.FormatInt(userID, 10)
	user, err := s.users.Get(ctx, userID)
	switch {
	case errors.Is(err, port.ErrUserNotFound):
		name = fallback
	case err != nil:
		s.logger.Error("Failed to load user", "error", err, "user_id", userID)
		return fallback
	case user.Username == "":
		name = fallback
	default:
		name = user.Username
	}

	s.mu.Lock()
	s.names[userID] = name
	s.mu.Unlock()
	return name
}

func (s *reviewServiceImpl) SetUsername(ctx context.Context, userID int64, username string) error {
	if err := s.users.Upsert(ctx, &entity.User{ID: userID, Username: username, CreatedAt: s.now().UTC()}); err != nil {
		return fmt.Errorf("store user: %w", err)
	}

	s.mu.Lock()
	s.names[userID] = username
	s.mu.Unlock()
	return nil
}

func (s *reviewServiceImpl) item(ctx context.Context, rec *entity.StoredInvoice, now time.Time) *entity.ReviewItem {
	created := rec.CreatedAt.UTC().Format(time.RFC3339)
	item := &entity.ReviewItem{
		ID:        rec.ID,
		FileName:  rec.Invoice.DisplayName(),
		CreatedAt: created,
		EntryTime: rec.CreatedAt.Local().Format("15:04:05"),
		Elapsed:   invoice.ElapsedTime(created, now),
		Row:       rec.Invoice,
	}
	if rec.Invoice.UserID != nil {
		item.UserName = s.Username(ctx, *rec.Invoice.UserID)
	}
	return item
}

func (s *reviewServiceImpl) publish(ctx context.Context, t event.Type, id string, payload map[string]interface{}) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Dispatch(ctx, event.NewEvent(t, id, payload)); err != nil {
		s.logger.Error("Failed to publish event", "error", err, "type", t.String(), "id", id)
	}
}

// ownerOf returns the invoice owner, falling back to the acting user
func ownerOf(inv *entity.Invoice, userID string) int64 {
	if inv.UserID != nil {
		return *inv.UserID
	}
	id, _ := strconv.ParseInt(userID, 10, 64)
	return id
}
