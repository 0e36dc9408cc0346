package store

import (
	"context"
	"time"

	"backoffice/internal/models"
)

type TransactionStore struct {
	db DB
}

type TransactionInput struct {
	ID            string
	FromAccountID string
	Type          models.TransactionType
	Status        models.TransactionStatus
	Amount        int64
	Description   string
	CreatedAt     time.Time
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func (s *TransactionStore) Create(ctx context.Context, tx Execer, input TransactionInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, from_account_id, type, amount, status, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, input.ID, input.FromAccountID, input.Type, input.Amount, input.Status, input.Description, input.CreatedAt)
	return err
}

func (s *TransactionStore) CreateInternal(ctx context.Context, tx Execer, transactionID, toAccountID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO internal_transfers (transaction_id, to_account_id)
		VALUES ($1, $2)
	`, transactionID, toAccountID)
	return err
}

func (s *TransactionStore) CreateExternal(ctx context.Context, tx Execer, transactionID, targetBank, targetAccountNo string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO external_transfers (transaction_id, target_bank, target_account_no)
		VALUES ($1, $2, $3)
	`, transactionID, targetBank, targetAccountNo)
	return err
}

func (s *TransactionStore) CreateBillPayment(ctx context.Context, tx Execer, transactionID, billerID, consumerNumber string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO bill_payments (transaction_id, biller_id, consumer_number)
		VALUES ($1, $2, $3)
	`, transactionID, billerID, consumerNumber)
	return err
}

// HasBillPaymentBetween reports whether the account already completed a
// payment to the biller for the consumer number within [from, to).
func (s *TransactionStore) HasBillPaymentBetween(ctx context.Context, q Getter, billerID, consumerNumber, accountID string, from, to time.Time) (bool, error) {
	var exists bool
	err := q.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1
			FROM bill_payments bp
			JOIN transactions t ON t.id = bp.transaction_id
			WHERE bp.biller_id = $1
			  AND bp.consumer_number = $2
			  AND t.from_account_id = $3
			  AND t.status = 'completed'
			  AND t.created_at >= $4
			  AND t.created_at < $5
		)
	`, billerID, consumerNumber, accountID, from, to)
	if err != nil {
		return false, err
	}
	return exists, nil
}
