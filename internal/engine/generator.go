package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/suhailma1ik/KinCashBackend/internal/domain"
	kcerrors "github.com/suhailma1ik/KinCashBackend/pkg/errors"
	"github.com/suhailma1ik/KinCashBackend/pkg/utils"
)

// Schedule math uses a simple (non-amortizing, non-compounding) policy:
// every installment carries an equal principal slice plus a flat per-period
// interest component of (principal * rate / 100) / periodsPerYear. This is
// deliberately not an actuarial amortization table.
//
// Weekly terms are expressed in months and converted as weeks = term * 4,
// a lossy approximation kept for compatibility with the books already issued
// under it; it is not a calendar-accurate week count.

const (
	monthsPerYear = 12
	weeksPerYear  = 52
	weeksPerMonth = 4
)

var hundred = decimal.NewFromInt(100)

// Generate produces the full repayment schedule for a loan: an ordered
// sequence of installments whose amounts due sum exactly to principal plus
// total interest. The last installment absorbs any rounding remainder.
//
// Generate is pure; it must be invoked exactly once per loan, at activation.
// The generate-once guard lives in the service layer.
func Generate(loanID uuid.UUID, principal, annualRatePct decimal.Decimal, term int, cadence string, startDate time.Time) ([]*domain.Installment, error) {
	if !principal.IsPositive() {
		return nil, kcerrors.WrapInvalidScheduleParameters("principal must be greater than zero")
	}
	if term <= 0 {
		return nil, kcerrors.WrapInvalidScheduleParameters("term must be greater than zero")
	}
	if annualRatePct.IsNegative() {
		return nil, kcerrors.WrapInvalidScheduleParameters("interest rate must not be negative")
	}

	var count, periodsPerYear int
	switch cadence {
	case domain.CadenceMonthly:
		count = term
		periodsPerYear = monthsPerYear
	case domain.CadenceWeekly:
		count = term * weeksPerMonth
		periodsPerYear = weeksPerYear
	default:
		return nil, kcerrors.WrapInvalidScheduleParameters(fmt.Sprintf("unknown cadence %q", cadence))
	}

	countDec := decimal.NewFromInt(int64(count))
	annualInterest := principal.Mul(annualRatePct).Div(hundred)

	// Per-period slices round down so the final installment absorbs a
	// nonnegative remainder. Half-up rounding can overshoot on small
	// principals over many periods and push the last row below zero.
	perInterest := annualInterest.Div(decimal.NewFromInt(int64(periodsPerYear))).RoundDown(2)
	perPrincipal := principal.Div(countDec).RoundDown(2)
	totalInterest := annualInterest.Div(decimal.NewFromInt(int64(periodsPerYear))).Mul(countDec).Round(2)

	start := utils.DateOnly(startDate)
	now := time.Now()

	installments := make([]*domain.Installment, 0, count)
	for i := 0; i < count; i++ {
		var dueDate time.Time
		if cadence == domain.CadenceMonthly {
			dueDate = utils.AddMonthsClamped(start, i)
		} else {
			dueDate = start.AddDate(0, 0, 7*i)
		}

		principalComponent := perPrincipal
		interestComponent := perInterest
		if i == count-1 {
			// Rounding remainder lands here so the schedule sums exactly.
			already := decimal.NewFromInt(int64(count - 1))
			principalComponent = principal.Sub(perPrincipal.Mul(already))
			interestComponent = totalInterest.Sub(perInterest.Mul(already))
		}

		installments = append(installments, &domain.Installment{
			ID:                 uuid.New(),
			LoanID:             loanID,
			Sequence:           i + 1,
			DueDate:            dueDate,
			PrincipalComponent: principalComponent,
			InterestComponent:  interestComponent,
			AmountDue:          principalComponent.Add(interestComponent),
			AmountPaid:         decimal.Zero,
			LateFeeAccrued:     decimal.Zero,
			Status:             domain.InstallmentStatusDue,
			CreatedAt:          now,
		})
	}

	return installments, nil
}
