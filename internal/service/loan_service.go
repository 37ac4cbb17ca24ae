package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/suhailma1ik/KinCashBackend/internal/cache"
	"github.com/suhailma1ik/KinCashBackend/internal/domain"
	"github.com/suhailma1ik/KinCashBackend/internal/engine"
	"github.com/suhailma1ik/KinCashBackend/internal/notify"
	"github.com/suhailma1ik/KinCashBackend/internal/repository"
	kcerrors "github.com/suhailma1ik/KinCashBackend/pkg/errors"
)

var (
	errNotAParty      = errors.New("user is not a party to this loan")
	errInvalidAmount  = errors.New("payment amount must be greater than zero")
	errCreatorAccepts = errors.New("the creating party cannot accept its own loan")
)

// LoanService orchestrates the loan lifecycle: creation, acceptance with
// schedule generation, payment allocation, and the ledger writes each of
// those produces. Every mutation runs under the per-loan lock.
type LoanService struct {
	loanRepo    repository.LoanRepository
	paymentRepo repository.PaymentRepository
	txnRepo     repository.TransactionRepository
	locker      cache.LoanLocker
	idempotency cache.IdempotencyStore
	notifier    notify.Notifier
	logger      zerolog.Logger
}

func NewLoanService(
	loanRepo repository.LoanRepository,
	paymentRepo repository.PaymentRepository,
	txnRepo repository.TransactionRepository,
	locker cache.LoanLocker,
	idempotency cache.IdempotencyStore,
	notifier notify.Notifier,
	logger zerolog.Logger,
) *LoanService {
	return &LoanService{
		loanRepo:    loanRepo,
		paymentRepo: paymentRepo,
		txnRepo:     txnRepo,
		locker:      locker,
		idempotency: idempotency,
		notifier:    notifier,
		logger:      logger,
	}
}

// CreateLoan records a new loan in pending state. No schedule exists until the
// counterparty accepts. Parameter validation happens here, before any write.
func (s *LoanService) CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.Loan, error) {
	if !request.Principal.IsPositive() {
		return nil, kcerrors.WrapInvalidScheduleParameters("principal must be greater than zero")
	}
	if request.InterestRatePct.IsNegative() {
		return nil, kcerrors.WrapInvalidScheduleParameters("interest rate must not be negative")
	}
	if request.Term <= 0 {
		return nil, kcerrors.WrapInvalidScheduleParameters("term must be greater than zero")
	}
	if request.Cadence != domain.CadenceMonthly && request.Cadence != domain.CadenceWeekly {
		return nil, kcerrors.WrapInvalidScheduleParameters(fmt.Sprintf("unknown cadence %q", request.Cadence))
	}
	if request.LateFeePct.Valid && request.LateFeePct.Decimal.IsNegative() {
		return nil, kcerrors.WrapInvalidScheduleParameters("late fee rate must not be negative")
	}
	if request.LenderID == request.BorrowerID {
		return nil, kcerrors.WrapValidationFailed(errNotAParty)
	}

	loan := &domain.Loan{
		ID:              uuid.New(),
		LenderID:        request.LenderID,
		BorrowerID:      request.BorrowerID,
		CreatedBy:       request.CreatedBy,
		Principal:       request.Principal,
		InterestRatePct: request.InterestRatePct,
		Term:            request.Term,
		Cadence:         request.Cadence,
		LateFeePct:      request.LateFeePct,
		StartDate:       request.StartDate,
		Status:          domain.LoanStatusPending,
		CreatedAt:       time.Now(),
	}

	if err := s.loanRepo.Create(ctx, loan); err != nil {
		return nil, kcerrors.WrapDatabaseError(err)
	}

	s.logger.Info().Str("loan_id", loan.ID.String()).Msg("loan created")
	return loan, nil
}

// AcceptLoan activates a pending loan: the state transition, the one-time
// schedule generation, and the disbursement ledger row commit atomically.
func (s *LoanService) AcceptLoan(ctx context.Context, loanID, acceptorID uuid.UUID) (*domain.LoanResponse, error) {
	release, err := s.locker.Acquire(ctx, loanID.String())
	if err != nil {
		return nil, err
	}
	defer release()

	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	if acceptorID != loan.LenderID && acceptorID != loan.BorrowerID {
		return nil, kcerrors.WrapValidationFailed(errNotAParty)
	}
	if acceptorID == loan.CreatedBy {
		return nil, kcerrors.WrapValidationFailed(errCreatorAccepts)
	}

	now := time.Now()
	if err := loan.Activate(now); err != nil {
		return nil, err
	}

	// Generate-once invariant: a second activation attempt is a programming
	// error, not something to silently absorb.
	exists, err := s.loanRepo.HasSchedule(ctx, loanID)
	if err != nil {
		return nil, kcerrors.WrapDatabaseError(err)
	}
	if exists {
		return nil, kcerrors.WrapScheduleAlreadyExists(loanID.String())
	}

	installments, err := engine.Generate(loan.ID, loan.Principal, loan.InterestRatePct, loan.Term, loan.Cadence, loan.StartDate)
	if err != nil {
		return nil, err
	}

	lender := loan.LenderID
	disbursement := domain.NewTransaction(
		domain.TransactionTypeDisbursement,
		&lender,
		loan.BorrowerID,
		loan.Principal,
		loan.ID.String(),
		now,
	)

	if err := s.loanRepo.ActivateWithSchedule(ctx, loan, installments, disbursement); err != nil {
		return nil, kcerrors.WrapDatabaseError(err)
	}

	s.notifier.Notify(ctx, domain.Event{
		Type:        domain.EventLoanActivated,
		LoanID:      loan.ID,
		RecipientID: loan.BorrowerID,
		OccurredAt:  now,
	})

	s.logger.Info().
		Str("loan_id", loan.ID.String()).
		Int("installments", len(installments)).
		Msg("loan activated")

	return &domain.LoanResponse{Loan: loan, Installments: installments}, nil
}

// CancelLoan withdraws a pending loan. Either party may cancel before
// acceptance; no schedule exists yet, so installments are untouched.
func (s *LoanService) CancelLoan(ctx context.Context, loanID, requestedBy uuid.UUID) (*domain.Loan, error) {
	release, err := s.locker.Acquire(ctx, loanID.String())
	if err != nil {
		return nil, err
	}
	defer release()

	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	if requestedBy != loan.LenderID && requestedBy != loan.BorrowerID {
		return nil, kcerrors.WrapValidationFailed(errNotAParty)
	}

	if err := loan.Cancel(); err != nil {
		return nil, err
	}

	if err := s.loanRepo.UpdateStatus(ctx, loan); err != nil {
		return nil, kcerrors.WrapDatabaseError(err)
	}

	s.logger.Info().Str("loan_id", loan.ID.String()).Msg("loan cancelled")
	return loan, nil
}

// MarkDefaulted executes the active→defaulted transition. Whether a loan
// qualifies (e.g. N consecutive missed periods) is an external policy
// decision; this only enforces the transition's invariants.
func (s *LoanService) MarkDefaulted(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	release, err := s.locker.Acquire(ctx, loanID.String())
	if err != nil {
		return nil, err
	}
	defer release()

	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	if err := loan.MarkDefaulted(); err != nil {
		return nil, err
	}

	if err := s.loanRepo.UpdateStatus(ctx, loan); err != nil {
		return nil, kcerrors.WrapDatabaseError(err)
	}

	s.logger.Warn().Str("loan_id", loan.ID.String()).Msg("loan defaulted")
	return loan, nil
}

// GetLoan returns loan detail.
func (s *LoanService) GetLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	return s.getLoan(ctx, loanID)
}

// GetSchedule returns the loan's installments with late-fee accrual projected
// as of now. The read path is side-effect-free: projected accrual is not
// persisted and emits no ledger rows; the overdue sweep owns persistence.
func (s *LoanService) GetSchedule(ctx context.Context, loanID uuid.UUID) (*domain.ScheduleResponse, error) {
	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	installments, err := s.loanRepo.GetInstallments(ctx, loanID)
	if err != nil {
		return nil, kcerrors.WrapDatabaseError(err)
	}

	now := time.Now()
	for _, inst := range installments {
		engine.Accrue(inst, now, loan.LateFee())
	}

	return &domain.ScheduleResponse{LoanID: loanID, Installments: installments}, nil
}

// ListTransactions returns the ledger rows referencing a loan.
func (s *LoanService) ListTransactions(ctx context.Context, loanID uuid.UUID) ([]*domain.Transaction, error) {
	if _, err := s.getLoan(ctx, loanID); err != nil {
		return nil, err
	}

	txns, err := s.txnRepo.ListByRelatedID(ctx, loanID.String())
	if err != nil {
		return nil, kcerrors.WrapDatabaseError(err)
	}
	return txns, nil
}

// ListPayments returns the declared payments of a loan, newest first.
func (s *LoanService) ListPayments(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error) {
	if _, err := s.getLoan(ctx, loanID); err != nil {
		return nil, err
	}

	payments, err := s.paymentRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, kcerrors.WrapDatabaseError(err)
	}
	return payments, nil
}

func (s *LoanService) getLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kcerrors.WrapLoanNotFound(loanID.String())
	}
	if err != nil {
		return nil, kcerrors.WrapDatabaseError(err)
	}
	return loan, nil
}
