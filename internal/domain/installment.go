package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	InstallmentStatusDue  = "due"
	InstallmentStatusPaid = "paid"
	InstallmentStatusLate = "late"
)

// Installment is a single repayment-schedule entry (EMI) of a loan.
// Due date, principal and interest components are fixed at activation; only
// amount paid, late-fee accrual and status mutate afterwards.
type Installment struct {
	ID                 uuid.UUID       `json:"id" db:"id"`
	LoanID             uuid.UUID       `json:"loan_id" db:"loan_id"`
	Sequence           int             `json:"sequence" db:"sequence"`
	DueDate            time.Time       `json:"due_date" db:"due_date"`
	PrincipalComponent decimal.Decimal `json:"principal_component" db:"principal_component"`
	InterestComponent  decimal.Decimal `json:"interest_component" db:"interest_component"`
	AmountDue          decimal.Decimal `json:"amount_due" db:"amount_due"`
	AmountPaid         decimal.Decimal `json:"amount_paid" db:"amount_paid"`
	LateFeeAccrued     decimal.Decimal `json:"late_fee_accrued" db:"late_fee_accrued"`
	LastAccruedAt      *time.Time      `json:"last_accrued_at,omitempty" db:"last_accrued_at"`
	Status             string          `json:"status" db:"status"`
	PaidAt             *time.Time      `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
}

// Outstanding is the amount still owed on this installment, late fees included.
func (i *Installment) Outstanding() decimal.Decimal {
	out := i.AmountDue.Add(i.LateFeeAccrued).Sub(i.AmountPaid)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// IsSettled reports whether amount due plus accrued fees is fully covered.
func (i *Installment) IsSettled() bool {
	return i.AmountPaid.GreaterThanOrEqual(i.AmountDue.Add(i.LateFeeAccrued))
}

// IsOverdue reports whether the installment is unpaid past its due date.
func (i *Installment) IsOverdue(asOf time.Time) bool {
	return i.Status != InstallmentStatusPaid && asOf.After(i.DueDate)
}

type ScheduleResponse struct {
	LoanID       uuid.UUID      `json:"loan_id"`
	Installments []*Installment `json:"installments"`
}
