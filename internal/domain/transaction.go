package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TransactionTypeDisbursement = "loan_disbursement"
	TransactionTypeRepayment    = "repayment"
	TransactionTypeLateFee      = "late_fee"
	TransactionTypeRefund       = "refund"
)

// Transaction is one immutable ledger row. The ledger is append-only: no code
// path updates or deletes a transaction after it is written. A nil FromUserID
// means the system itself originated the movement.
type Transaction struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	FromUserID *uuid.UUID      `json:"from_user_id,omitempty" db:"from_user_id"`
	ToUserID   uuid.UUID       `json:"to_user_id" db:"to_user_id"`
	Amount     decimal.Decimal `json:"amount" db:"amount"`
	Type       string          `json:"type" db:"type"`
	RelatedID  string          `json:"related_id" db:"related_id"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// NewTransaction builds a ledger row for a money-moving event.
func NewTransaction(txType string, from *uuid.UUID, to uuid.UUID, amount decimal.Decimal, relatedID string, at time.Time) *Transaction {
	return &Transaction{
		ID:         uuid.New(),
		FromUserID: from,
		ToUserID:   to,
		Amount:     amount,
		Type:       txType,
		RelatedID:  relatedID,
		CreatedAt:  at,
	}
}
