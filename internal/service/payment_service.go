package service

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/suhailma1ik/KinCashBackend/internal/domain"
	"github.com/suhailma1ik/KinCashBackend/internal/engine"
	kcerrors "github.com/suhailma1ik/KinCashBackend/pkg/errors"
)

// RecordPayment declares an out-of-band payment and allocates it across the
// loan's outstanding installments, earliest due first. The whole distribution
// (payment row, installment updates, ledger rows, possible loan completion)
// commits atomically. Replays with the same idempotency key return the stored
// result without re-allocating.
func (s *LoanService) RecordPayment(ctx context.Context, loanID uuid.UUID, request *domain.RecordPaymentRequest) (*domain.PaymentResult, error) {
	if prior, err := s.idempotency.Get(ctx, loanID.String(), request.IdempotencyKey); err != nil {
		return nil, err
	} else if prior != nil {
		s.logger.Info().
			Str("loan_id", loanID.String()).
			Str("idempotency_key", request.IdempotencyKey).
			Msg("payment replayed from idempotency store")
		return prior, nil
	}

	release, err := s.locker.Acquire(ctx, loanID.String())
	if err != nil {
		return nil, err
	}
	defer release()

	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	// Payments are only accepted on active loans; paying a pending,
	// cancelled, defaulted or already-paid loan is a state violation.
	if loan.Status != domain.LoanStatusActive {
		return nil, kcerrors.WrapInvalidStateTransition(loanID.String(), loan.Status, domain.LoanStatusActive)
	}

	if !request.Amount.IsPositive() {
		return nil, kcerrors.WrapValidationFailed(errInvalidAmount)
	}

	installments, err := s.loanRepo.GetInstallments(ctx, loanID)
	if err != nil {
		return nil, kcerrors.WrapDatabaseError(err)
	}

	paidAt := time.Now()
	if request.PaidAt != nil {
		paidAt = *request.PaidAt
	}

	allocation, err := engine.Allocate(loanID, installments, request.Amount, paidAt, loan.LateFee())
	if err != nil {
		return nil, err
	}

	payment := &domain.Payment{
		ID:      uuid.New(),
		LoanID:  loanID,
		PayerID: request.PayerID,
		Amount:  request.Amount,
		Remarks: request.Remarks,
		PaidAt:  paidAt,
	}

	touched := make([]*domain.Installment, 0, len(allocation.Applications))
	transactions := make([]*domain.Transaction, 0, len(allocation.Applications))
	payer := request.PayerID
	borrower := loan.BorrowerID

	for _, app := range allocation.Applications {
		touched = append(touched, app.Installment)

		if app.AccruedFee.IsPositive() {
			transactions = append(transactions, domain.NewTransaction(
				domain.TransactionTypeLateFee, &borrower, loan.LenderID, app.AccruedFee, loan.ID.String(), paidAt))
		}
		if app.Applied.IsPositive() {
			transactions = append(transactions, domain.NewTransaction(
				domain.TransactionTypeRepayment, &payer, loan.LenderID, app.Applied, loan.ID.String(), paidAt))
		}
	}

	if allocation.AllPaid {
		if err := loan.MarkPaid(paidAt); err != nil {
			return nil, err
		}
	}

	if err := s.paymentRepo.RecordAllocation(ctx, payment, touched, transactions, loan); err != nil {
		return nil, kcerrors.WrapDatabaseError(err)
	}

	result := &domain.PaymentResult{
		Payment:      payment,
		Installments: touched,
		Transactions: transactions,
		Remainder:    allocation.Remainder,
		LoanStatus:   loan.Status,
	}

	if err := s.idempotency.Put(ctx, loanID.String(), request.IdempotencyKey, result); err != nil {
		// The allocation is committed; a failed idempotency write only
		// weakens replay protection, it must not fail the payment.
		s.logger.Error().Err(err).
			Str("idempotency_key", request.IdempotencyKey).
			Msg("store idempotent payment result")
	}

	s.emitPaymentEvents(ctx, loan, allocation, paidAt)

	s.logger.Info().
		Str("loan_id", loanID.String()).
		Str("payment_id", payment.ID.String()).
		Str("amount", request.Amount.String()).
		Str("remainder", allocation.Remainder.String()).
		Bool("loan_completed", allocation.AllPaid).
		Msg("payment recorded")

	return result, nil
}

func (s *LoanService) emitPaymentEvents(ctx context.Context, loan *domain.Loan, allocation *engine.AllocationResult, at time.Time) {
	for _, app := range allocation.Applications {
		if !app.Settled {
			continue
		}
		s.notifier.Notify(ctx, domain.Event{
			Type:        domain.EventInstallmentPaid,
			LoanID:      loan.ID,
			RecipientID: loan.LenderID,
			OccurredAt:  at,
			Data: map[string]string{
				"installment_id": app.Installment.ID.String(),
				"sequence":       strconv.Itoa(app.Installment.Sequence),
			},
		})
	}

	if allocation.AllPaid {
		s.notifier.Notify(ctx, domain.Event{
			Type:        domain.EventLoanCompleted,
			LoanID:      loan.ID,
			RecipientID: loan.LenderID,
			OccurredAt:  at,
		})
	}
}

// SweepOverdue walks every active loan, marks overdue installments late, and
// persists one period of late-fee accrual per installment together with the
// matching ledger rows. Invoked by the scheduler daemon; loans already locked
// by a concurrent writer are skipped and picked up on the next run.
func (s *LoanService) SweepOverdue(ctx context.Context, asOf time.Time) (int, error) {
	loanIDs, err := s.loanRepo.ListActiveIDs(ctx)
	if err != nil {
		return 0, kcerrors.WrapDatabaseError(err)
	}

	swept := 0
	for _, loanID := range loanIDs {
		if err := s.sweepLoan(ctx, loanID, asOf); err != nil {
			s.logger.Error().Err(err).Str("loan_id", loanID.String()).Msg("sweep loan")
			continue
		}
		swept++
	}

	return swept, nil
}

func (s *LoanService) sweepLoan(ctx context.Context, loanID uuid.UUID, asOf time.Time) error {
	release, err := s.locker.Acquire(ctx, loanID.String())
	if err != nil {
		return err
	}
	defer release()

	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return err
	}

	installments, err := s.loanRepo.GetInstallments(ctx, loanID)
	if err != nil {
		return kcerrors.WrapDatabaseError(err)
	}

	borrower := loan.BorrowerID
	var changed []*domain.Installment
	var transactions []*domain.Transaction

	for _, inst := range installments {
		wasStatus := inst.Status
		fee := engine.Accrue(inst, asOf, loan.LateFee())

		if fee.IsPositive() {
			transactions = append(transactions, domain.NewTransaction(
				domain.TransactionTypeLateFee, &borrower, loan.LenderID, fee, loan.ID.String(), asOf))
		}
		if fee.IsPositive() || inst.Status != wasStatus {
			changed = append(changed, inst)
		}
	}

	if len(changed) == 0 {
		return nil
	}

	if err := s.loanRepo.SaveAccruals(ctx, changed, transactions); err != nil {
		return kcerrors.WrapDatabaseError(err)
	}

	s.logger.Info().
		Str("loan_id", loanID.String()).
		Int("installments", len(changed)).
		Int("late_fees", len(transactions)).
		Msg("overdue sweep applied")
	return nil
}

// SendReminders emits installment_upcoming events for unpaid installments due
// within the window. Delivery is the notifier's problem.
func (s *LoanService) SendReminders(ctx context.Context, asOf time.Time, window time.Duration) (int, error) {
	upcoming, err := s.loanRepo.ListUpcomingInstallments(ctx, asOf, asOf.Add(window))
	if err != nil {
		return 0, kcerrors.WrapDatabaseError(err)
	}

	loans := make(map[uuid.UUID]*domain.Loan)
	sent := 0
	for _, inst := range upcoming {
		loan, ok := loans[inst.LoanID]
		if !ok {
			loan, err = s.getLoan(ctx, inst.LoanID)
			if err != nil {
				s.logger.Error().Err(err).Str("loan_id", inst.LoanID.String()).Msg("load loan for reminder")
				continue
			}
			loans[inst.LoanID] = loan
		}

		s.notifier.Notify(ctx, domain.Event{
			Type:        domain.EventInstallmentUpcoming,
			LoanID:      loan.ID,
			RecipientID: loan.BorrowerID,
			OccurredAt:  asOf,
			Data: map[string]string{
				"installment_id": inst.ID.String(),
				"due_date":       inst.DueDate.Format(time.DateOnly),
				"amount_due":     inst.Outstanding().String(),
			},
		})
		sent++
	}

	return sent, nil
}
