package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/suhailma1ik/KinCashBackend/internal/domain"
)

// LoanRepository defines the interface for loan and schedule data operations
type LoanRepository interface {
	// Create persists a new loan in pending state
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByID retrieves a loan by its ID
	GetByID(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error)

	// UpdateStatus persists a loan state transition
	UpdateStatus(ctx context.Context, loan *domain.Loan) error

	// HasSchedule reports whether any installments exist for the loan
	HasSchedule(ctx context.Context, loanID uuid.UUID) (bool, error)

	// ActivateWithSchedule persists activation atomically: the loan's new
	// state, its full schedule, and the disbursement ledger row
	ActivateWithSchedule(ctx context.Context, loan *domain.Loan, installments []*domain.Installment, disbursement *domain.Transaction) error

	// GetInstallments retrieves a loan's installments ordered by due date
	GetInstallments(ctx context.Context, loanID uuid.UUID) ([]*domain.Installment, error)

	// SaveAccruals persists late-fee accrual updates plus their ledger rows
	// in one transaction (overdue sweep)
	SaveAccruals(ctx context.Context, installments []*domain.Installment, transactions []*domain.Transaction) error

	// ListActiveIDs returns the IDs of all active loans
	ListActiveIDs(ctx context.Context) ([]uuid.UUID, error)

	// ListUpcomingInstallments returns unpaid installments of active loans
	// due within the window (payment reminders)
	ListUpcomingInstallments(ctx context.Context, from, to time.Time) ([]*domain.Installment, error)
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// RecordAllocation persists one payment's full allocation atomically:
	// the payment row, the touched installments, the ledger rows, and the
	// loan's status when allocation completed it. All-or-nothing.
	RecordAllocation(ctx context.Context, payment *domain.Payment, installments []*domain.Installment, transactions []*domain.Transaction, loan *domain.Loan) error

	// GetByLoanID retrieves all payments for a loan
	GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error)
}

// TransactionRepository defines the interface for the append-only ledger.
// There is deliberately no update or delete operation.
type TransactionRepository interface {
	// Record appends one ledger row
	Record(ctx context.Context, txn *domain.Transaction) error

	// ListByRelatedID retrieves ledger rows referencing a loan or payment
	ListByRelatedID(ctx context.Context, relatedID string) ([]*domain.Transaction, error)
}
