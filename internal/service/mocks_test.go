package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/suhailma1ik/KinCashBackend/internal/domain"
	kcerrors "github.com/suhailma1ik/KinCashBackend/pkg/errors"
)

type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) GetByID(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) UpdateStatus(ctx context.Context, loan *domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) HasSchedule(ctx context.Context, loanID uuid.UUID) (bool, error) {
	args := m.Called(ctx, loanID)
	return args.Bool(0), args.Error(1)
}

func (m *MockLoanRepository) ActivateWithSchedule(ctx context.Context, loan *domain.Loan, installments []*domain.Installment, disbursement *domain.Transaction) error {
	args := m.Called(ctx, loan, installments, disbursement)
	return args.Error(0)
}

func (m *MockLoanRepository) GetInstallments(ctx context.Context, loanID uuid.UUID) ([]*domain.Installment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Installment), args.Error(1)
}

func (m *MockLoanRepository) SaveAccruals(ctx context.Context, installments []*domain.Installment, transactions []*domain.Transaction) error {
	args := m.Called(ctx, installments, transactions)
	return args.Error(0)
}

func (m *MockLoanRepository) ListActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockLoanRepository) ListUpcomingInstallments(ctx context.Context, from, to time.Time) ([]*domain.Installment, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Installment), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) RecordAllocation(ctx context.Context, payment *domain.Payment, installments []*domain.Installment, transactions []*domain.Transaction, loan *domain.Loan) error {
	args := m.Called(ctx, payment, installments, transactions, loan)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Record(ctx context.Context, txn *domain.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) ListByRelatedID(ctx context.Context, relatedID string) ([]*domain.Transaction, error) {
	args := m.Called(ctx, relatedID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Transaction), args.Error(1)
}

// fakeLocker hands out locks in-process; setting held simulates a loan already
// locked by a concurrent writer.
type fakeLocker struct {
	held     map[string]bool
	acquired []string
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (l *fakeLocker) Acquire(_ context.Context, loanID string) (func(), error) {
	if l.held[loanID] {
		return nil, kcerrors.WrapLoanBusy(loanID)
	}
	l.held[loanID] = true
	l.acquired = append(l.acquired, loanID)
	return func() { delete(l.held, loanID) }, nil
}

// fakeIdempotencyStore is a map-backed stand-in for the Redis store, keyed
// loan-scoped the same way.
type fakeIdempotencyStore struct {
	results map[string]*domain.PaymentResult
	puts    int
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{results: make(map[string]*domain.PaymentResult)}
}

func (s *fakeIdempotencyStore) Get(_ context.Context, loanID, key string) (*domain.PaymentResult, error) {
	return s.results[loanID+":"+key], nil
}

func (s *fakeIdempotencyStore) Put(_ context.Context, loanID, key string, result *domain.PaymentResult) error {
	s.results[loanID+":"+key] = result
	s.puts++
	return nil
}

// captureNotifier records emitted events for assertions.
type captureNotifier struct {
	events []domain.Event
}

func (n *captureNotifier) Notify(_ context.Context, event domain.Event) {
	n.events = append(n.events, event)
}

func (n *captureNotifier) ofType(eventType string) []domain.Event {
	var out []domain.Event
	for _, e := range n.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
