package service

import (
	"context"
	"sort"
	"sync"

	"github.com/garyjia/facturas-review/internal/application/dispatcher"
	"github.com/garyjia/facturas-review/internal/application/port"
	"github.com/garyjia/facturas-review/internal/domain/entity"
	"github.com/garyjia/facturas-review/internal/domain/event"
)

// mockInvoiceRepo keeps invoices in memory; the func fields override single
// methods.
type mockInvoiceRepo struct {
	mu      sync.Mutex
	records map[string]*entity.StoredInvoice
	keys    map[string]bool

	upsertFunc       func(ctx context.Context, rec *entity.StoredInvoice) error
	countFunc        func(ctx context.Context, userID *int64) (int, error)
	setCorrectedFunc func(ctx context.Context, id string, status entity.CorrectedStatus) error
}

func newMockInvoiceRepo(recs ...*entity.StoredInvoice) *mockInvoiceRepo {
	m := &mockInvoiceRepo{records: map[string]*entity.StoredInvoice{}, keys: map[string]bool{}}
	for _, rec := range recs {
		m.records[rec.ID] = rec
		if rec.DedupKey != "" {
			m.keys[rec.DedupKey] = true
		}
	}
	return m
}

func (m *mockInvoiceRepo) Upsert(ctx context.Context, rec *entity.StoredInvoice) error {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	cp.Invoice = rec.Invoice.Clone()
	m.records[rec.ID] = &cp
	return nil
}

func (m *mockInvoiceRepo) InsertNew(_ context.Context, rec *entity.StoredInvoice) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.ID]; ok {
		return false, nil
	}
	if rec.DedupKey != "" && m.keys[rec.DedupKey] {
		return false, nil
	}
	cp := *rec
	cp.Invoice = rec.Invoice.Clone()
	m.records[rec.ID] = &cp
	if rec.DedupKey != "" {
		m.keys[rec.DedupKey] = true
	}
	return true, nil
}

func (m *mockInvoiceRepo) Get(_ context.Context, id string) (*entity.StoredInvoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, port.ErrInvoiceNotFound
	}
	cp := *rec
	cp.Invoice = rec.Invoice.Clone()
	return &cp, nil
}

func (m *mockInvoiceRepo) List(_ context.Context, filter port.InvoiceFilter) ([]*entity.StoredInvoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.StoredInvoice
	for _, rec := range m.records {
		if !filter.IncludeReviewed && !rec.Invoice.Corrected.IsPending() {
			continue
		}
		if filter.UserID != nil && (rec.Invoice.UserID == nil || *rec.Invoice.UserID != *filter.UserID) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockInvoiceRepo) SetCorrected(ctx context.Context, id string, status entity.CorrectedStatus) error {
	if m.setCorrectedFunc != nil {
		return m.setCorrectedFunc(ctx, id, status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return port.ErrInvoiceNotFound
	}
	rec.Invoice.Corrected = status
	return nil
}

func (m *mockInvoiceRepo) Count(ctx context.Context, userID *int64) (int, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, rec := range m.records {
		if userID == nil || (rec.Invoice.UserID != nil && *rec.Invoice.UserID == *userID) {
			n++
		}
	}
	return n, nil
}

func (m *mockInvoiceRepo) PendingByUser(context.Context) (map[int64]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[int64]int{}
	for _, rec := range m.records {
		if !rec.Invoice.Corrected.IsPending() {
			continue
		}
		var id int64
		if rec.Invoice.UserID != nil {
			id = *rec.Invoice.UserID
		}
		out[id]++
	}
	return out, nil
}

func (m *mockInvoiceRepo) stored(id string) *entity.StoredInvoice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[id]
}

type mockUserRepo struct {
	mu    sync.Mutex
	users map[int64]*entity.User
	gets  int

	getFunc func(ctx context.Context, id int64) (*entity.User, error)
}

func newMockUserRepo(users ...*entity.User) *mockUserRepo {
	m := &mockUserRepo{users: map[int64]*entity.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserRepo) Get(ctx context.Context, id int64) (*entity.User, error) {
	m.mu.Lock()
	m.gets++
	m.mu.Unlock()
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, port.ErrUserNotFound
	}
	return u, nil
}

func (m *mockUserRepo) Upsert(_ context.Context, user *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) List(context.Context) ([]*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*entity.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

type mockRemote struct {
	mu          sync.Mutex
	completed   []*entity.Submission
	discarded   []*entity.Submission
	counterHits int

	fetchFunc     func(ctx context.Context, clientID, invoiceID string) ([]map[string]interface{}, error)
	statusFunc    func(ctx context.Context, timestamp string, userID int64) (entity.CorrectedStatus, error)
	completedFunc func(ctx context.Context, s *entity.Submission) (*port.SubmitResult, error)
	counterFunc   func(ctx context.Context, userID, timestamp string) (*port.SubmitResult, error)
}

func (m *mockRemote) FetchInvoices(ctx context.Context, clientID, invoiceID string) ([]map[string]interface{}, error) {
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, clientID, invoiceID)
	}
	return nil, nil
}

func (m *mockRemote) CorrectedStatus(ctx context.Context, timestamp string, userID int64) (entity.CorrectedStatus, error) {
	if m.statusFunc != nil {
		return m.statusFunc(ctx, timestamp, userID)
	}
	return entity.CorrectedPending, nil
}

func (m *mockRemote) SubmitCompleted(ctx context.Context, s *entity.Submission) (*port.SubmitResult, error) {
	if m.completedFunc != nil {
		return m.completedFunc(ctx, s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed = append(m.completed, s)
	return &port.SubmitResult{}, nil
}

func (m *mockRemote) SubmitDiscarded(_ context.Context, s *entity.Submission) (*port.SubmitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discarded = append(m.discarded, s)
	return &port.SubmitResult{}, nil
}

func (m *mockRemote) Counter(ctx context.Context, userID, timestamp string) (*port.SubmitResult, error) {
	m.mu.Lock()
	m.counterHits++
	m.mu.Unlock()
	if m.counterFunc != nil {
		return m.counterFunc(ctx, userID, timestamp)
	}
	return nil, nil
}

type passthroughTx struct{}

func (passthroughTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// recorder captures every dispatched event
type recorder struct {
	mu     sync.Mutex
	events []*event.Event
}

func newRecorder() (dispatcher.Dispatcher, *recorder) {
	r := &recorder{}
	d := dispatcher.NewDispatcher()
	d.SubscribeAll("recorder", func(_ context.Context, evt *event.Event) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, evt)
		return nil
	})
	return d, r
}

func (r *recorder) types() []event.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
