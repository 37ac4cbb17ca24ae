package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/suhailma1ik/KinCashBackend/internal/domain"
)

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) RecordAllocation(ctx context.Context, payment *domain.Payment, installments []*domain.Installment, transactions []*domain.Transaction, loan *domain.Loan) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO payments (id, loan_id, payer_id, amount, remarks, paid_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		payment.ID,
		payment.LoanID,
		payment.PayerID,
		payment.Amount,
		payment.Remarks,
		payment.PaidAt,
	)
	if err != nil {
		return err
	}

	if err = updateInstallments(ctx, tx, installments); err != nil {
		return err
	}

	for _, txn := range transactions {
		if err = insertTransaction(ctx, tx, txn); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE loans SET status = $2, closed_at = $3 WHERE id = $1`,
		loan.ID, loan.Status, loan.ClosedAt,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *paymentRepository) GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error) {
	query := `
		SELECT id, loan_id, payer_id, amount, remarks, paid_at
		FROM payments
		WHERE loan_id = $1
		ORDER BY paid_at DESC
	`

	var payments []*domain.Payment
	if err := r.db.SelectContext(ctx, &payments, query, loanID); err != nil {
		return nil, err
	}

	return payments, nil
}
