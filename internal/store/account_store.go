package store

import (
	"context"
	"time"

	"backoffice/internal/models"
)

type AccountStore struct {
	db DB
}

type Account struct {
	ID            string               `db:"id"`
	UserID        string               `db:"user_id"`
	AccountNumber string               `db:"account_number"`
	Balance       int64                `db:"balance"`
	Status        models.AccountStatus `db:"status"`
	CreatedAt     time.Time            `db:"created_at"`
	UpdatedAt     time.Time            `db:"updated_at"`
}

type AccountWithOwner struct {
	Account
	FullName   string            `db:"full_name"`
	Email      string            `db:"email"`
	UserStatus models.UserStatus `db:"user_status"`
}

// AccountHolder is the public view of a destination account.
type AccountHolder struct {
	AccountNumber string               `db:"account_number"`
	FullName      string               `db:"full_name"`
	Status        models.AccountStatus `db:"status"`
}

const accountColumns = `id, user_id, account_number, balance, status, created_at, updated_at`

// accountSequenceLock is the advisory lock key serialising account number
// allocation.
const accountSequenceLock = 7301

func NewAccountStore(db DB) *AccountStore {
	return &AccountStore{db: db}
}

// Create inserts the account unless the user already has one. It reports
// whether a row was written.
func (s *AccountStore) Create(ctx context.Context, tx Execer, id, userID, accountNumber string) (bool, error) {
	n, err := rowsAffected(tx.ExecContext(ctx, `
		INSERT INTO accounts (id, user_id, account_number, balance, status)
		VALUES ($1, $2, $3, 0, 'active')
		ON CONFLICT (user_id) DO NOTHING
	`, id, userID, accountNumber))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// NextSequence allocates the next account number sequence, continuing the
// highest suffix already issued. The advisory lock is held until the
// surrounding transaction ends. tx must run at read committed: the MAX query
// is a new statement after the lock wait, so it sees every number committed
// by the previous holder.
func (s *AccountStore) NextSequence(ctx context.Context, tx Tx) (int64, error) {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, accountSequenceLock); err != nil {
		return 0, err
	}
	var next int64
	err := tx.GetContext(ctx, &next, `
		SELECT COALESCE(MAX(CAST(split_part(account_number, '-', 3) AS BIGINT)), 0) + 1
		FROM accounts
		WHERE account_number ~ '^ACC-[0-9]+-[0-9]+$'
	`)
	return next, err
}

func (s *AccountStore) GetByUser(ctx context.Context, q Getter, userID string) (Account, error) {
	var row Account
	err := q.GetContext(ctx, &row, `SELECT `+accountColumns+` FROM accounts WHERE user_id = $1`, userID)
	if err != nil {
		return Account{}, err
	}
	return row, nil
}

func (s *AccountStore) GetByNumber(ctx context.Context, q Getter, accountNumber string) (Account, error) {
	var row Account
	err := q.GetContext(ctx, &row, `SELECT `+accountColumns+` FROM accounts WHERE account_number = $1`, accountNumber)
	if err != nil {
		return Account{}, err
	}
	return row, nil
}

func (s *AccountStore) GetForUpdate(ctx context.Context, tx Getter, accountID string) (Account, error) {
	var row Account
	err := tx.GetContext(ctx, &row, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`, accountID)
	if err != nil {
		return Account{}, err
	}
	return row, nil
}

func (s *AccountStore) UpdateBalance(ctx context.Context, tx Execer, accountID string, balance int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET balance = $1, updated_at = NOW()
		WHERE id = $2
	`, balance, accountID)
	return err
}

func (s *AccountStore) UpdateStatus(ctx context.Context, tx Execer, accountID string, status models.AccountStatus) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, accountID)
	return err
}

func (s *AccountStore) GetHolder(ctx context.Context, accountNumber string) (AccountHolder, error) {
	var row AccountHolder
	err := s.db.GetContext(ctx, &row, `
		SELECT a.account_number, u.full_name, a.status
		FROM accounts a
		JOIN users u ON u.id = a.user_id
		WHERE a.account_number = $1
	`, accountNumber)
	if err != nil {
		return AccountHolder{}, err
	}
	return row, nil
}

func (s *AccountStore) ListWithOwners(ctx context.Context) ([]AccountWithOwner, error) {
	var rows []AccountWithOwner
	err := s.db.SelectContext(ctx, &rows, `
		SELECT a.id, a.user_id, a.account_number, a.balance, a.status, a.created_at, a.updated_at,
		       u.full_name, u.email, u.status AS user_status
		FROM accounts a
		JOIN users u ON u.id = a.user_id
		ORDER BY a.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
