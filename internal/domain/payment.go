package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is a single declared repayment event. Payments are recorded after
// the fact (out-of-band transfer) and are immutable once created.
type Payment struct {
	ID      uuid.UUID       `json:"id" db:"id"`
	LoanID  uuid.UUID       `json:"loan_id" db:"loan_id"`
	PayerID uuid.UUID       `json:"payer_id" db:"payer_id"`
	Amount  decimal.Decimal `json:"amount" db:"amount"`
	Remarks string          `json:"remarks,omitempty" db:"remarks"`
	PaidAt  time.Time       `json:"paid_at" db:"paid_at"`
}

type RecordPaymentRequest struct {
	PayerID uuid.UUID       `json:"payer_id" validate:"required"`
	Amount  decimal.Decimal `json:"amount" validate:"decimal_gt=0"`
	Remarks string          `json:"remarks" validate:"max=500"`
	PaidAt  *time.Time      `json:"paid_at"`

	// IdempotencyKey is supplied by the caller (Idempotency-Key header);
	// a retried request with the same key returns the prior result.
	IdempotencyKey string `json:"-" validate:"required,max=128"`
}

// PaymentResult is what a successful allocation produced: the payment record,
// every installment it touched, the ledger rows written, and any unapplied
// remainder. The remainder's disposition is the caller's decision.
type PaymentResult struct {
	Payment      *Payment        `json:"payment"`
	Installments []*Installment  `json:"installments"`
	Transactions []*Transaction  `json:"transactions"`
	Remainder    decimal.Decimal `json:"remainder"`
	LoanStatus   string          `json:"loan_status"`
}
