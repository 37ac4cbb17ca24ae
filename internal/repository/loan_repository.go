package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/suhailma1ik/KinCashBackend/internal/domain"
)

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (id, lender_id, borrower_id, created_by, principal, interest_rate_pct,
			term, cadence, late_fee_pct, start_date, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		loan.ID,
		loan.LenderID,
		loan.BorrowerID,
		loan.CreatedBy,
		loan.Principal,
		loan.InterestRatePct,
		loan.Term,
		loan.Cadence,
		loan.LateFeePct,
		loan.StartDate,
		loan.Status,
		loan.CreatedAt,
	)

	return err
}

func (r *loanRepository) GetByID(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	query := `
		SELECT id, lender_id, borrower_id, created_by, principal, interest_rate_pct,
			term, cadence, late_fee_pct, start_date, status, created_at, approved_at, closed_at
		FROM loans
		WHERE id = $1
	`

	var loan domain.Loan
	if err := r.db.GetContext(ctx, &loan, query, loanID); err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) UpdateStatus(ctx context.Context, loan *domain.Loan) error {
	query := `
		UPDATE loans
		SET status = $2, approved_at = $3, closed_at = $4
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, loan.ID, loan.Status, loan.ApprovedAt, loan.ClosedAt)
	return err
}

func (r *loanRepository) HasSchedule(ctx context.Context, loanID uuid.UUID) (bool, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(1) FROM installments WHERE loan_id = $1`, loanID); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *loanRepository) ActivateWithSchedule(ctx context.Context, loan *domain.Loan, installments []*domain.Installment, disbursement *domain.Transaction) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE loans SET status = $2, approved_at = $3 WHERE id = $1`,
		loan.ID, loan.Status, loan.ApprovedAt,
	)
	if err != nil {
		return err
	}

	if err = insertInstallments(ctx, tx, installments); err != nil {
		return err
	}

	if err = insertTransaction(ctx, tx, disbursement); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *loanRepository) GetInstallments(ctx context.Context, loanID uuid.UUID) ([]*domain.Installment, error) {
	query := `
		SELECT id, loan_id, sequence, due_date, principal_component, interest_component,
			amount_due, amount_paid, late_fee_accrued, last_accrued_at, status, paid_at, created_at
		FROM installments
		WHERE loan_id = $1
		ORDER BY due_date, sequence
	`

	var installments []*domain.Installment
	if err := r.db.SelectContext(ctx, &installments, query, loanID); err != nil {
		return nil, err
	}

	return installments, nil
}

func (r *loanRepository) SaveAccruals(ctx context.Context, installments []*domain.Installment, transactions []*domain.Transaction) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err = updateInstallments(ctx, tx, installments); err != nil {
		return err
	}

	for _, txn := range transactions {
		if err = insertTransaction(ctx, tx, txn); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *loanRepository) ListActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM loans WHERE status = $1`, domain.LoanStatusActive); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *loanRepository) ListUpcomingInstallments(ctx context.Context, from, to time.Time) ([]*domain.Installment, error) {
	query := `
		SELECT i.id, i.loan_id, i.sequence, i.due_date, i.principal_component, i.interest_component,
			i.amount_due, i.amount_paid, i.late_fee_accrued, i.last_accrued_at, i.status, i.paid_at, i.created_at
		FROM installments i
		JOIN loans l ON l.id = i.loan_id
		WHERE l.status = $1 AND i.status <> $2 AND i.due_date >= $3 AND i.due_date < $4
		ORDER BY i.due_date, i.sequence
	`

	var installments []*domain.Installment
	err := r.db.SelectContext(ctx, &installments, query,
		domain.LoanStatusActive, domain.InstallmentStatusPaid, from, to)
	if err != nil {
		return nil, err
	}

	return installments, nil
}

// insertInstallments writes a full schedule inside an open transaction.
func insertInstallments(ctx context.Context, tx *sqlx.Tx, installments []*domain.Installment) error {
	query := `
		INSERT INTO installments (id, loan_id, sequence, due_date, principal_component, interest_component,
			amount_due, amount_paid, late_fee_accrued, last_accrued_at, status, paid_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	for _, inst := range installments {
		_, err := tx.ExecContext(ctx, query,
			inst.ID,
			inst.LoanID,
			inst.Sequence,
			inst.DueDate,
			inst.PrincipalComponent,
			inst.InterestComponent,
			inst.AmountDue,
			inst.AmountPaid,
			inst.LateFeeAccrued,
			inst.LastAccruedAt,
			inst.Status,
			inst.PaidAt,
			inst.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// updateInstallments persists the mutable installment fields only; due dates
// and amount components are immutable after activation.
func updateInstallments(ctx context.Context, tx *sqlx.Tx, installments []*domain.Installment) error {
	query := `
		UPDATE installments
		SET amount_paid = $2, late_fee_accrued = $3, last_accrued_at = $4, status = $5, paid_at = $6
		WHERE id = $1
	`

	for _, inst := range installments {
		_, err := tx.ExecContext(ctx, query,
			inst.ID,
			inst.AmountPaid,
			inst.LateFeeAccrued,
			inst.LastAccruedAt,
			inst.Status,
			inst.PaidAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func insertTransaction(ctx context.Context, tx *sqlx.Tx, txn *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, from_user_id, to_user_id, amount, type, related_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := tx.ExecContext(ctx, query,
		txn.ID,
		txn.FromUserID,
		txn.ToUserID,
		txn.Amount,
		txn.Type,
		txn.RelatedID,
		txn.CreatedAt,
	)
	return err
}
