package store

import (
	"context"
	"time"

	"backoffice/internal/models"
)

type UserStore struct {
	db DB
}

type User struct {
	ID           string            `db:"id"`
	FullName     string            `db:"full_name"`
	Email        string            `db:"email"`
	NationalID   string            `db:"national_id"`
	Phone        string            `db:"phone"`
	PasswordHash string            `db:"password_hash"`
	Role         models.Role       `db:"role"`
	Status       models.UserStatus `db:"status"`
	CreatedAt    time.Time         `db:"created_at"`
	UpdatedAt    time.Time         `db:"updated_at"`
}

type UserInput struct {
	ID           string
	FullName     string
	Email        string
	NationalID   string
	Phone        string
	PasswordHash string
	Role         models.Role
	Status       models.UserStatus
}

const userColumns = `id, full_name, email, national_id, phone, password_hash, role, status, created_at, updated_at`

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, tx Execer, input UserInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO users (id, full_name, email, national_id, phone, password_hash, role, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, input.ID, input.FullName, input.Email, input.NationalID, input.Phone, input.PasswordHash, input.Role, input.Status)
	return err
}

func (s *UserStore) GetByID(ctx context.Context, userID string) (User, error) {
	var row User
	err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	if err != nil {
		return User{}, err
	}
	return row, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (User, error) {
	var row User
	err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
	if err != nil {
		return User{}, err
	}
	return row, nil
}

// GetForUpdate locks the user row for the rest of the transaction.
func (s *UserStore) GetForUpdate(ctx context.Context, tx Getter, userID string) (User, error) {
	var row User
	err := tx.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, userID)
	if err != nil {
		return User{}, err
	}
	return row, nil
}

func (s *UserStore) UpdateStatus(ctx context.Context, tx Execer, userID string, status models.UserStatus) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE users
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, userID)
	return err
}

// ListCustomers returns customers, optionally filtered by status, newest first.
func (s *UserStore) ListCustomers(ctx context.Context, status models.UserStatus) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = 'customer'`
	args := []any{}
	if status != "" {
		query += ` AND status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`
	var rows []User
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// ApprovedCustomerIDs lists broadcast recipients.
func (s *UserStore) ApprovedCustomerIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids, `
		SELECT id FROM users
		WHERE role = 'customer' AND status = 'approved'
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	return ids, nil
}
