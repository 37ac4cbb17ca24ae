package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/suhailma1ik/KinCashBackend/internal/domain"
)

func overdueInstallment(due time.Time) *domain.Installment {
	return &domain.Installment{
		ID:             uuid.New(),
		LoanID:         uuid.New(),
		Sequence:       1,
		DueDate:        due,
		AmountDue:      decimal.NewFromInt(100),
		AmountPaid:     decimal.Zero,
		LateFeeAccrued: decimal.Zero,
		Status:         domain.InstallmentStatusDue,
	}
}

func TestAccrue_AddsFeeOnOverdueInstallment(t *testing.T) {
	inst := overdueInstallment(date(2024, time.March, 1))

	fee := Accrue(inst, date(2024, time.March, 10), decimal.NewFromInt(5))

	assert.True(t, fee.Equal(decimal.NewFromInt(5)), "5%% of 100 outstanding")
	assert.True(t, inst.LateFeeAccrued.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, domain.InstallmentStatusLate, inst.Status)
	assert.NotNil(t, inst.LastAccruedAt)
}

func TestAccrue_IdempotentForSameAsOfDate(t *testing.T) {
	inst := overdueInstallment(date(2024, time.March, 1))
	asOf := date(2024, time.March, 10)
	pct := decimal.NewFromInt(5)

	first := Accrue(inst, asOf, pct)
	second := Accrue(inst, asOf, pct)

	assert.True(t, first.Equal(decimal.NewFromInt(5)))
	assert.True(t, second.IsZero(), "same as-of date must not double-charge")
	assert.True(t, inst.LateFeeAccrued.Equal(decimal.NewFromInt(5)))
}

func TestAccrue_AccumulatesAcrossDates(t *testing.T) {
	inst := overdueInstallment(date(2024, time.March, 1))
	pct := decimal.NewFromInt(5)

	Accrue(inst, date(2024, time.March, 10), pct)
	fee := Accrue(inst, date(2024, time.March, 11), pct)

	// Fee base stays the unpaid amount due, not due plus earlier fees.
	assert.True(t, fee.Equal(decimal.NewFromInt(5)))
	assert.True(t, inst.LateFeeAccrued.Equal(decimal.NewFromInt(10)))
}

func TestAccrue_NoOps(t *testing.T) {
	pct := decimal.NewFromInt(5)

	t.Run("not yet due", func(t *testing.T) {
		inst := overdueInstallment(date(2024, time.March, 20))
		fee := Accrue(inst, date(2024, time.March, 10), pct)
		assert.True(t, fee.IsZero())
		assert.Equal(t, domain.InstallmentStatusDue, inst.Status)
	})

	t.Run("due today", func(t *testing.T) {
		inst := overdueInstallment(date(2024, time.March, 10))
		fee := Accrue(inst, date(2024, time.March, 10), pct)
		assert.True(t, fee.IsZero())
		assert.Equal(t, domain.InstallmentStatusDue, inst.Status)
	})

	t.Run("already paid", func(t *testing.T) {
		inst := overdueInstallment(date(2024, time.March, 1))
		inst.Status = domain.InstallmentStatusPaid
		fee := Accrue(inst, date(2024, time.March, 10), pct)
		assert.True(t, fee.IsZero())
	})

	t.Run("no fee configured", func(t *testing.T) {
		inst := overdueInstallment(date(2024, time.March, 1))
		fee := Accrue(inst, date(2024, time.March, 10), decimal.Zero)
		assert.True(t, fee.IsZero())
		// Still flips to late even without a fee.
		assert.Equal(t, domain.InstallmentStatusLate, inst.Status)
	})
}

func TestAccrue_FeeBaseExcludesPaidPortion(t *testing.T) {
	inst := overdueInstallment(date(2024, time.March, 1))
	inst.AmountPaid = decimal.NewFromInt(60)

	fee := Accrue(inst, date(2024, time.March, 10), decimal.NewFromInt(5))

	assert.True(t, fee.Equal(decimal.NewFromInt(2)), "5%% of the 40 unpaid")
}

func TestAccrue_CoveredDueWithOutstandingFeeStaysLate(t *testing.T) {
	inst := overdueInstallment(date(2024, time.March, 1))
	pct := decimal.NewFromInt(5)

	Accrue(inst, date(2024, time.March, 10), pct)
	inst.AmountPaid = decimal.NewFromInt(100) // covers amount due, not the fee

	fee := Accrue(inst, date(2024, time.March, 11), pct)

	assert.True(t, fee.IsZero(), "no unpaid amount due, no new fee")
	assert.Equal(t, domain.InstallmentStatusLate, inst.Status)
	assert.False(t, inst.IsSettled(), "fee itself is still owed")
	assert.True(t, inst.Outstanding().Equal(decimal.NewFromInt(5)))
}
