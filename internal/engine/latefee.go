package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/suhailma1ik/KinCashBackend/internal/domain"
	"github.com/suhailma1ik/KinCashBackend/pkg/utils"
)

// Accrue brings an installment's late-fee accrual up to asOf and returns the
// newly accrued fee, zero when nothing accrued. Idempotent for the same as-of
// date: LastAccruedAt records the last accrual touch so repeated reads or
// payments on the same day never double-charge a period.
//
// The fee base is the unpaid portion of the amount due. An installment whose
// amount due is covered but whose earlier fee is not stays late until the fee
// itself is paid.
func Accrue(inst *domain.Installment, asOf time.Time, lateFeePct decimal.Decimal) decimal.Decimal {
	if inst.Status == domain.InstallmentStatusPaid {
		return decimal.Zero
	}

	asOfDay := utils.DateOnly(asOf)
	if !asOfDay.After(utils.DateOnly(inst.DueDate)) {
		return decimal.Zero
	}

	// Overdue regardless of whether a fee applies.
	inst.Status = domain.InstallmentStatusLate

	if !lateFeePct.IsPositive() {
		return decimal.Zero
	}
	if inst.LastAccruedAt != nil && !asOfDay.After(utils.DateOnly(*inst.LastAccruedAt)) {
		return decimal.Zero
	}

	base := inst.AmountDue.Sub(inst.AmountPaid)
	if base.IsNegative() {
		base = decimal.Zero
	}

	fee := lateFeePct.Div(hundred).Mul(base).Round(2)
	if !fee.IsPositive() {
		return decimal.Zero
	}

	inst.LateFeeAccrued = inst.LateFeeAccrued.Add(fee)
	inst.LastAccruedAt = &asOfDay
	return fee
}
