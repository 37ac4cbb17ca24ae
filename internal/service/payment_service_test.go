package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/suhailma1ik/KinCashBackend/internal/domain"
	kcerrors "github.com/suhailma1ik/KinCashBackend/pkg/errors"
)

func scheduleFor(loanID uuid.UUID) []*domain.Installment {
	installments := make([]*domain.Installment, 0, 3)
	for i := 0; i < 3; i++ {
		installments = append(installments, &domain.Installment{
			ID: uuid.New(), LoanID: loanID, Sequence: i + 1,
			DueDate:   date(2024, time.January, 15).AddDate(0, i, 0),
			AmountDue: decimal.NewFromInt(100), AmountPaid: decimal.Zero,
			LateFeeAccrued: decimal.Zero, Status: domain.InstallmentStatusDue,
		})
	}
	return installments
}

func paymentRequest(payerID uuid.UUID, amount int64, paidAt time.Time) *domain.RecordPaymentRequest {
	return &domain.RecordPaymentRequest{
		PayerID:        payerID,
		Amount:         decimal.NewFromInt(amount),
		PaidAt:         &paidAt,
		IdempotencyKey: uuid.NewString(),
	}
}

func TestRecordPayment_AllocatesEarliestFirst(t *testing.T) {
	f := newFixture()
	loan := testLoan(domain.LoanStatusActive)
	installments := scheduleFor(loan.ID)

	f.loanRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
	f.loanRepo.On("GetInstallments", mock.Anything, loan.ID).Return(installments, nil)
	f.paymentRepo.On("RecordAllocation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, loan).Return(nil)

	result, err := f.service.RecordPayment(context.Background(), loan.ID,
		paymentRequest(loan.BorrowerID, 150, date(2024, time.January, 15)))
	require.NoError(t, err)

	assert.Equal(t, domain.InstallmentStatusPaid, installments[0].Status)
	assert.True(t, installments[1].AmountPaid.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, domain.InstallmentStatusDue, installments[1].Status)
	assert.Equal(t, domain.InstallmentStatusDue, installments[2].Status)

	assert.True(t, result.Remainder.IsZero())
	assert.Equal(t, domain.LoanStatusActive, result.LoanStatus)
	require.Len(t, result.Installments, 2)

	// One repayment row per installment slice, both payer -> lender.
	require.Len(t, result.Transactions, 2)
	for _, txn := range result.Transactions {
		assert.Equal(t, domain.TransactionTypeRepayment, txn.Type)
		require.NotNil(t, txn.FromUserID)
		assert.Equal(t, loan.BorrowerID, *txn.FromUserID)
		assert.Equal(t, loan.LenderID, txn.ToUserID)
		assert.Equal(t, loan.ID.String(), txn.RelatedID)
	}

	events := f.notifier.ofType(domain.EventInstallmentPaid)
	require.Len(t, events, 1, "only the settled installment notifies")
	assert.Empty(t, f.notifier.ofType(domain.EventLoanCompleted))
	assert.Empty(t, f.locker.held)
	f.paymentRepo.AssertExpectations(t)
}

func TestRecordPayment_CompletesLoan(t *testing.T) {
	f := newFixture()
	loan := testLoan(domain.LoanStatusActive)
	loan.LateFeePct = decimal.NullDecimal{} // keep the arithmetic to principal only
	installments := scheduleFor(loan.ID)

	f.loanRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
	f.loanRepo.On("GetInstallments", mock.Anything, loan.ID).Return(installments, nil)
	f.paymentRepo.On("RecordAllocation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, loan).Return(nil)

	paidAt := date(2024, time.March, 15)
	result, err := f.service.RecordPayment(context.Background(), loan.ID,
		paymentRequest(loan.BorrowerID, 300, paidAt))
	require.NoError(t, err)

	assert.Equal(t, domain.LoanStatusPaid, result.LoanStatus)
	assert.Equal(t, domain.LoanStatusPaid, loan.Status)
	require.NotNil(t, loan.ClosedAt)
	assert.Equal(t, paidAt, *loan.ClosedAt)

	assert.Len(t, f.notifier.ofType(domain.EventInstallmentPaid), 3)
	assert.Len(t, f.notifier.ofType(domain.EventLoanCompleted), 1)
}

func TestRecordPayment_OverpaymentReportsRemainder(t *testing.T) {
	f := newFixture()
	loan := testLoan(domain.LoanStatusActive)
	loan.LateFeePct = decimal.NullDecimal{}
	installments := scheduleFor(loan.ID)

	f.loanRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
	f.loanRepo.On("GetInstallments", mock.Anything, loan.ID).Return(installments, nil)
	f.paymentRepo.On("RecordAllocation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, loan).Return(nil)

	result, err := f.service.RecordPayment(context.Background(), loan.ID,
		paymentRequest(loan.BorrowerID, 350, date(2024, time.March, 15)))
	require.NoError(t, err)

	assert.True(t, result.Remainder.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, domain.LoanStatusPaid, result.LoanStatus)
}

func TestRecordPayment_IdempotentReplay(t *testing.T) {
	f := newFixture()
	loan := testLoan(domain.LoanStatusActive)
	installments := scheduleFor(loan.ID)

	f.loanRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
	f.loanRepo.On("GetInstallments", mock.Anything, loan.ID).Return(installments, nil)
	f.paymentRepo.On("RecordAllocation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, loan).Return(nil)

	request := paymentRequest(loan.BorrowerID, 100, date(2024, time.January, 15))

	first, err := f.service.RecordPayment(context.Background(), loan.ID, request)
	require.NoError(t, err)

	second, err := f.service.RecordPayment(context.Background(), loan.ID, request)
	require.NoError(t, err)

	assert.Same(t, first, second, "replay returns the stored result")
	assert.Equal(t, 1, f.idempotency.puts)
	f.paymentRepo.AssertNumberOfCalls(t, "RecordAllocation", 1)
}

func TestRecordPayment_IdempotencyKeyScopedPerLoan(t *testing.T) {
	f := newFixture()
	loanA := testLoan(domain.LoanStatusActive)
	loanB := testLoan(domain.LoanStatusActive)

	f.loanRepo.On("GetByID", mock.Anything, loanA.ID).Return(loanA, nil)
	f.loanRepo.On("GetByID", mock.Anything, loanB.ID).Return(loanB, nil)
	f.loanRepo.On("GetInstallments", mock.Anything, loanA.ID).Return(scheduleFor(loanA.ID), nil)
	f.loanRepo.On("GetInstallments", mock.Anything, loanB.ID).Return(scheduleFor(loanB.ID), nil)
	f.paymentRepo.On("RecordAllocation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	// Same Idempotency-Key against two different loans: the second call is a
	// fresh payment, not a replay of the first loan's result.
	key := uuid.NewString()
	paidAt := date(2024, time.January, 15)

	requestA := paymentRequest(loanA.BorrowerID, 100, paidAt)
	requestA.IdempotencyKey = key
	requestB := paymentRequest(loanB.BorrowerID, 100, paidAt)
	requestB.IdempotencyKey = key

	resultA, err := f.service.RecordPayment(context.Background(), loanA.ID, requestA)
	require.NoError(t, err)

	resultB, err := f.service.RecordPayment(context.Background(), loanB.ID, requestB)
	require.NoError(t, err)

	assert.Equal(t, loanA.ID, resultA.Payment.LoanID)
	assert.Equal(t, loanB.ID, resultB.Payment.LoanID)
	f.paymentRepo.AssertNumberOfCalls(t, "RecordAllocation", 2)
	assert.Equal(t, 2, f.idempotency.puts)

	// Retrying against the same loan still replays.
	replay, err := f.service.RecordPayment(context.Background(), loanB.ID, requestB)
	require.NoError(t, err)
	assert.Same(t, resultB, replay)
	f.paymentRepo.AssertNumberOfCalls(t, "RecordAllocation", 2)
}

func TestRecordPayment_RejectsNonActiveLoan(t *testing.T) {
	for _, status := range []string{
		domain.LoanStatusPending,
		domain.LoanStatusCancelled,
		domain.LoanStatusDefaulted,
		domain.LoanStatusPaid,
	} {
		t.Run(status, func(t *testing.T) {
			f := newFixture()
			loan := testLoan(status)

			f.loanRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)

			result, err := f.service.RecordPayment(context.Background(), loan.ID,
				paymentRequest(loan.BorrowerID, 100, date(2024, time.January, 15)))
			assert.Nil(t, result)
			assert.True(t, errors.Is(err, kcerrors.ErrInvalidStateTransition))
			f.paymentRepo.AssertNotCalled(t, "RecordAllocation",
				mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRecordPayment_NoOutstandingDebt(t *testing.T) {
	f := newFixture()
	loan := testLoan(domain.LoanStatusActive)
	installments := scheduleFor(loan.ID)
	for _, inst := range installments {
		inst.Status = domain.InstallmentStatusPaid
		inst.AmountPaid = inst.AmountDue
	}

	f.loanRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
	f.loanRepo.On("GetInstallments", mock.Anything, loan.ID).Return(installments, nil)

	result, err := f.service.RecordPayment(context.Background(), loan.ID,
		paymentRequest(loan.BorrowerID, 100, date(2024, time.April, 15)))
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, kcerrors.ErrNoOutstandingDebt))
}

func TestRecordPayment_LoanLocked(t *testing.T) {
	f := newFixture()
	loan := testLoan(domain.LoanStatusActive)
	f.locker.held[loan.ID.String()] = true

	result, err := f.service.RecordPayment(context.Background(), loan.ID,
		paymentRequest(loan.BorrowerID, 100, date(2024, time.January, 15)))
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, kcerrors.ErrLoanBusy))
}

func TestRecordPayment_LateFeeLedgerRows(t *testing.T) {
	f := newFixture()
	loan := testLoan(domain.LoanStatusActive) // 5% late fee
	installments := scheduleFor(loan.ID)[:1]

	f.loanRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
	f.loanRepo.On("GetInstallments", mock.Anything, loan.ID).Return(installments, nil)
	f.paymentRepo.On("RecordAllocation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, loan).Return(nil)

	// Overdue by a month: one period of fee accrues during allocation.
	result, err := f.service.RecordPayment(context.Background(), loan.ID,
		paymentRequest(loan.BorrowerID, 105, date(2024, time.February, 20)))
	require.NoError(t, err)

	require.Len(t, result.Transactions, 2)
	assert.Equal(t, domain.TransactionTypeLateFee, result.Transactions[0].Type)
	assert.True(t, result.Transactions[0].Amount.Equal(decimal.NewFromInt(5)))
	require.NotNil(t, result.Transactions[0].FromUserID)
	assert.Equal(t, loan.BorrowerID, *result.Transactions[0].FromUserID)
	assert.Equal(t, loan.LenderID, result.Transactions[0].ToUserID)

	assert.Equal(t, domain.TransactionTypeRepayment, result.Transactions[1].Type)
	assert.True(t, result.Transactions[1].Amount.Equal(decimal.NewFromInt(105)))
}

func TestSweepOverdue_PersistsAccrualsAndFees(t *testing.T) {
	f := newFixture()
	loan := testLoan(domain.LoanStatusActive)
	installments := scheduleFor(loan.ID)

	f.loanRepo.On("ListActiveIDs", mock.Anything).Return([]uuid.UUID{loan.ID}, nil)
	f.loanRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
	f.loanRepo.On("GetInstallments", mock.Anything, loan.ID).Return(installments, nil)

	var savedInstallments []*domain.Installment
	var savedTxns []*domain.Transaction
	f.loanRepo.On("SaveAccruals", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			savedInstallments = args.Get(1).([]*domain.Installment)
			savedTxns = args.Get(2).([]*domain.Transaction)
		}).
		Return(nil)

	// As of Feb 20, the first two installments (Jan 15, Feb 15) are overdue.
	swept, err := f.service.SweepOverdue(context.Background(), date(2024, time.February, 20))
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	require.Len(t, savedInstallments, 2)
	for _, inst := range savedInstallments {
		assert.Equal(t, domain.InstallmentStatusLate, inst.Status)
		assert.True(t, inst.LateFeeAccrued.Equal(decimal.NewFromInt(5)))
	}

	require.Len(t, savedTxns, 2)
	for _, txn := range savedTxns {
		assert.Equal(t, domain.TransactionTypeLateFee, txn.Type)
		assert.True(t, txn.Amount.Equal(decimal.NewFromInt(5)))
	}

	assert.Equal(t, domain.InstallmentStatusDue, installments[2].Status, "future installment untouched")
}

func TestSweepOverdue_SkipsLockedLoans(t *testing.T) {
	f := newFixture()
	loan := testLoan(domain.LoanStatusActive)
	f.locker.held[loan.ID.String()] = true

	f.loanRepo.On("ListActiveIDs", mock.Anything).Return([]uuid.UUID{loan.ID}, nil)

	swept, err := f.service.SweepOverdue(context.Background(), date(2024, time.February, 20))
	require.NoError(t, err)
	assert.Zero(t, swept, "locked loan is skipped, not failed")
	f.loanRepo.AssertNotCalled(t, "SaveAccruals", mock.Anything, mock.Anything, mock.Anything)
}

func TestSweepOverdue_NothingToDo(t *testing.T) {
	f := newFixture()
	loan := testLoan(domain.LoanStatusActive)
	installments := scheduleFor(loan.ID)

	f.loanRepo.On("ListActiveIDs", mock.Anything).Return([]uuid.UUID{loan.ID}, nil)
	f.loanRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
	f.loanRepo.On("GetInstallments", mock.Anything, loan.ID).Return(installments, nil)

	// Day before the first due date: nothing overdue, nothing written.
	swept, err := f.service.SweepOverdue(context.Background(), date(2024, time.January, 14))
	require.NoError(t, err)
	assert.Equal(t, 1, swept)
	f.loanRepo.AssertNotCalled(t, "SaveAccruals", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendReminders(t *testing.T) {
	f := newFixture()
	loan := testLoan(domain.LoanStatusActive)
	installments := scheduleFor(loan.ID)

	asOf := date(2024, time.January, 13)
	window := 72 * time.Hour

	f.loanRepo.On("ListUpcomingInstallments", mock.Anything, asOf, asOf.Add(window)).
		Return(installments[:1], nil)
	f.loanRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)

	sent, err := f.service.SendReminders(context.Background(), asOf, window)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	events := f.notifier.ofType(domain.EventInstallmentUpcoming)
	require.Len(t, events, 1)
	assert.Equal(t, loan.BorrowerID, events[0].RecipientID)
	assert.Equal(t, "2024-01-15", events[0].Data["due_date"])
	assert.Equal(t, "100", events[0].Data["amount_due"])
}
