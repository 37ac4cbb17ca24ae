package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventLoanActivated       = "loan_activated"
	EventInstallmentPaid     = "installment_paid"
	EventLoanCompleted       = "loan_completed"
	EventInstallmentUpcoming = "installment_upcoming"
)

// Event is an abstract notification emitted by the core after a successful
// allocation or state transition. How it is delivered is not this service's
// concern; a notifier consumes these fire-and-forget.
type Event struct {
	Type        string            `json:"type"`
	LoanID      uuid.UUID         `json:"loan_id"`
	RecipientID uuid.UUID         `json:"recipient_id"`
	OccurredAt  time.Time         `json:"occurred_at"`
	Data        map[string]string `json:"data,omitempty"`
}
