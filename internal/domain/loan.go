package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	kcerrors "github.com/suhailma1ik/KinCashBackend/pkg/errors"
)

const (
	LoanStatusPending   = "pending"
	LoanStatusActive    = "active"
	LoanStatusPaid      = "paid"
	LoanStatusDefaulted = "defaulted"
	LoanStatusCancelled = "cancelled"
)

const (
	CadenceMonthly = "monthly"
	CadenceWeekly  = "weekly"
)

// Loan represents a peer-to-peer loan between a lender and a borrower.
// Roles are explicit: LenderID pays out the principal, BorrowerID repays it.
type Loan struct {
	ID              uuid.UUID           `json:"id" db:"id"`
	LenderID        uuid.UUID           `json:"lender_id" db:"lender_id"`
	BorrowerID      uuid.UUID           `json:"borrower_id" db:"borrower_id"`
	CreatedBy       uuid.UUID           `json:"created_by" db:"created_by"`
	Principal       decimal.Decimal     `json:"principal" db:"principal"`
	InterestRatePct decimal.Decimal     `json:"interest_rate_pct" db:"interest_rate_pct"`
	Term            int                 `json:"term" db:"term"`
	Cadence         string              `json:"cadence" db:"cadence"`
	LateFeePct      decimal.NullDecimal `json:"late_fee_pct" db:"late_fee_pct"`
	StartDate       time.Time           `json:"start_date" db:"start_date"`
	Status          string              `json:"status" db:"status"`
	CreatedAt       time.Time           `json:"created_at" db:"created_at"`
	ApprovedAt      *time.Time          `json:"approved_at,omitempty" db:"approved_at"`
	ClosedAt        *time.Time          `json:"closed_at,omitempty" db:"closed_at"`
}

// Activate moves the loan from pending to active. The schedule is generated
// by the caller exactly once as part of the same activation.
func (l *Loan) Activate(now time.Time) error {
	if l.Status != LoanStatusPending {
		return kcerrors.WrapInvalidStateTransition(l.ID.String(), l.Status, LoanStatusActive)
	}
	l.Status = LoanStatusActive
	l.ApprovedAt = &now
	return nil
}

// MarkPaid closes the loan once every installment is settled.
func (l *Loan) MarkPaid(now time.Time) error {
	if l.Status != LoanStatusActive {
		return kcerrors.WrapInvalidStateTransition(l.ID.String(), l.Status, LoanStatusPaid)
	}
	l.Status = LoanStatusPaid
	l.ClosedAt = &now
	return nil
}

// MarkDefaulted is triggered by an external delinquency decision. Irreversible;
// a defaulted loan accepts no further payments.
func (l *Loan) MarkDefaulted() error {
	if l.Status != LoanStatusActive {
		return kcerrors.WrapInvalidStateTransition(l.ID.String(), l.Status, LoanStatusDefaulted)
	}
	l.Status = LoanStatusDefaulted
	return nil
}

// Cancel withdraws a loan before acceptance. No schedule exists yet.
func (l *Loan) Cancel() error {
	if l.Status != LoanStatusPending {
		return kcerrors.WrapInvalidStateTransition(l.ID.String(), l.Status, LoanStatusCancelled)
	}
	l.Status = LoanStatusCancelled
	return nil
}

// IsTerminal reports whether the loan reached a final state.
func (l *Loan) IsTerminal() bool {
	switch l.Status {
	case LoanStatusPaid, LoanStatusDefaulted, LoanStatusCancelled:
		return true
	}
	return false
}

// LateFee returns the configured late-fee rate, zero when none is set.
func (l *Loan) LateFee() decimal.Decimal {
	if !l.LateFeePct.Valid {
		return decimal.Zero
	}
	return l.LateFeePct.Decimal
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	LenderID        uuid.UUID           `json:"lender_id" validate:"required"`
	BorrowerID      uuid.UUID           `json:"borrower_id" validate:"required"`
	CreatedBy       uuid.UUID           `json:"created_by" validate:"required"`
	Principal       decimal.Decimal     `json:"principal" validate:"decimal_gt=0"`
	InterestRatePct decimal.Decimal     `json:"interest_rate_pct" validate:"decimal_gte=0"`
	Term            int                 `json:"term" validate:"required,gt=0"`
	Cadence         string              `json:"cadence" validate:"required,oneof=monthly weekly"`
	LateFeePct      decimal.NullDecimal `json:"late_fee_pct"`
	StartDate       time.Time           `json:"start_date" validate:"required"`
}

type AcceptLoanRequest struct {
	AcceptorID uuid.UUID `json:"acceptor_id" validate:"required"`
}

type CancelLoanRequest struct {
	RequestedBy uuid.UUID `json:"requested_by" validate:"required"`
}

type LoanResponse struct {
	Loan         *Loan          `json:"loan"`
	Installments []*Installment `json:"installments,omitempty"`
}
