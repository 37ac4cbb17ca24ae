package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/suhailma1ik/KinCashBackend/internal/domain"
)

type transactionRepository struct {
	db *sqlx.DB
}

func NewTransactionRepository(db *sqlx.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

// Record appends one ledger row. The ledger has no update or delete path.
func (r *transactionRepository) Record(ctx context.Context, txn *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, from_user_id, to_user_id, amount, type, related_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
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

func (r *transactionRepository) ListByRelatedID(ctx context.Context, relatedID string) ([]*domain.Transaction, error) {
	query := `
		SELECT id, from_user_id, to_user_id, amount, type, related_id, created_at
		FROM transactions
		WHERE related_id = $1
		ORDER BY created_at DESC
	`

	var txns []*domain.Transaction
	if err := r.db.SelectContext(ctx, &txns, query, relatedID); err != nil {
		return nil, err
	}

	return txns, nil
}
