package registration_test

import (
	"context"
	"sync"

	"github.com/robertarktes/event-registrations/internal/domain"
	"github.com/robertarktes/event-registrations/internal/payment"
	"github.com/robertarktes/event-registrations/internal/registration"
	"github.com/stretchr/testify/mock"
)

type mockOrders struct {
	mock.Mock
}

func (m *mockOrders) CreateOrder(ctx context.Context, req payment.OrderRequest) (payment.Order, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(payment.Order), args.Error(1)
}

type mockHosted struct {
	mock.Mock
}

func (m *mockHosted) Configured() bool {
	return true
}

func (m *mockHosted) CreatePaymentRequest(ctx context.Context, req payment.PaymentRequest) (payment.HostedPayment, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(payment.HostedPayment), args.Error(1)
}

func (m *mockHosted) PaymentStatus(ctx context.Context, requestID, paymentID string) (string, error) {
	args := m.Called(ctx, requestID, paymentID)
	return args.String(0), args.Error(1)
}

type mockAudit struct {
	mock.Mock
}

func (m *mockAudit) Record(ctx context.Context, action, actor string, data map[string]interface{}) error {
	args := m.Called(ctx, action, actor, data)
	return args.Error(0)
}

func (m *mockAudit) Recent(ctx context.Context, limit int64) ([]domain.AuditEntry, error) {
	args := m.Called(ctx, limit)
	entries, _ := args.Get(0).([]domain.AuditEntry)
	return entries, args.Error(1)
}

// recordingExporter captures enqueued registrations; capacity < 0 means unbounded.
type recordingExporter struct {
	mu       sync.Mutex
	capacity int
	got      []domain.Registration
}

func (e *recordingExporter) Enqueue(reg domain.Registration) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.capacity >= 0 && len(e.got) >= e.capacity {
		return false
	}
	e.got = append(e.got, reg)
	return true
}

func (e *recordingExporter) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.got)
}

// racingStore hides existing records from FindByTicket until after the first
// Create attempt, forcing the duplicate-key path a concurrent insert takes.
type racingStore struct {
	registration.Store
	mu      sync.Mutex
	blinded bool
}

func (s *racingStore) FindByTicket(ctx context.Context, ticketID string) (domain.Registration, error) {
	s.mu.Lock()
	blind := s.blinded
	s.mu.Unlock()
	if blind {
		return domain.Registration{}, domain.ErrNotFound
	}
	return s.Store.FindByTicket(ctx, ticketID)
}

func (s *racingStore) Create(ctx context.Context, reg domain.Registration) error {
	s.mu.Lock()
	s.blinded = false
	s.mu.Unlock()
	return s.Store.Create(ctx, reg)
}

// failingStore fails every call.
type failingStore struct {
	registration.Store
	err error
}

func (s failingStore) FindByTicket(ctx context.Context, ticketID string) (domain.Registration, error) {
	return domain.Registration{}, s.err
}

func (s failingStore) Create(ctx context.Context, reg domain.Registration) error {
	return s.err
}
