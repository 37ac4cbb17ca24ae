package engine

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/suhailma1ik/KinCashBackend/internal/domain"
	kcerrors "github.com/suhailma1ik/KinCashBackend/pkg/errors"
)

// Application records what allocation did to one installment: the slice of the
// payment applied to it and any late fee freshly accrued while touching it.
type Application struct {
	Installment *domain.Installment
	Applied     decimal.Decimal
	AccruedFee  decimal.Decimal
	Settled     bool
}

// AllocationResult is the outcome of distributing one payment.
type AllocationResult struct {
	Applications []Application
	// Remainder is the unapplied overpayment. Never discarded; its
	// disposition (refund, credit, reject) is the caller's decision.
	Remainder decimal.Decimal
	// AllPaid reports that every installment of the loan is now settled,
	// which drives the loan's completion transition.
	AllPaid bool
}

// Allocate distributes a payment across a loan's outstanding installments,
// earliest due date first. Oldest debt is always served first; the ordering is
// fixed for determinism and fairness. Each installment is brought up to date
// on late fees before the payment touches it.
//
// Allocate mutates the passed installments in place; callers persist the whole
// result atomically or not at all.
func Allocate(loanID uuid.UUID, installments []*domain.Installment, amount decimal.Decimal, asOf time.Time, lateFeePct decimal.Decimal) (*AllocationResult, error) {
	unpaid := make([]*domain.Installment, 0, len(installments))
	for _, inst := range installments {
		if inst.Status != domain.InstallmentStatusPaid {
			unpaid = append(unpaid, inst)
		}
	}
	if len(unpaid) == 0 {
		return nil, kcerrors.WrapNoOutstandingDebt(loanID.String())
	}

	sort.SliceStable(unpaid, func(i, j int) bool {
		return unpaid[i].DueDate.Before(unpaid[j].DueDate)
	})

	result := &AllocationResult{Remainder: amount}

	for _, inst := range unpaid {
		fee := Accrue(inst, asOf, lateFeePct)

		outstanding := inst.Outstanding()
		applied := decimal.Min(result.Remainder, outstanding)

		if applied.IsPositive() {
			inst.AmountPaid = inst.AmountPaid.Add(applied)
			result.Remainder = result.Remainder.Sub(applied)
		}

		settled := inst.IsSettled()
		if settled {
			inst.Status = domain.InstallmentStatusPaid
			paidAt := asOf
			inst.PaidAt = &paidAt
		}

		if applied.IsPositive() || fee.IsPositive() {
			result.Applications = append(result.Applications, Application{
				Installment: inst,
				Applied:     applied,
				AccruedFee:  fee,
				Settled:     settled,
			})
		}

		if result.Remainder.IsZero() {
			break
		}
	}

	result.AllPaid = true
	for _, inst := range installments {
		if inst.Status != domain.InstallmentStatusPaid {
			result.AllPaid = false
			break
		}
	}

	return result, nil
}
