package store

import (
	"context"
	"time"

	"backoffice/internal/models"
)

type BillerStore struct {
	db DB
}

type Biller struct {
	ID        string                `db:"id"`
	Name      string                `db:"name"`
	Category  models.BillerCategory `db:"category"`
	Status    models.BillerStatus   `db:"status"`
	CreatedAt time.Time             `db:"created_at"`
}

const billerColumns = `id, name, category, status, created_at`

func NewBillerStore(db DB) *BillerStore {
	return &BillerStore{db: db}
}

func (s *BillerStore) Create(ctx context.Context, tx Execer, id, name string, category models.BillerCategory) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO billers (id, name, category, status)
		VALUES ($1, $2, $3, 'active')
	`, id, name, category)
	return err
}

func (s *BillerStore) GetByID(ctx context.Context, q Getter, billerID string) (Biller, error) {
	var row Biller
	err := q.GetContext(ctx, &row, `SELECT `+billerColumns+` FROM billers WHERE id = $1`, billerID)
	if err != nil {
		return Biller{}, err
	}
	return row, nil
}

// UpdateStatus reports how many rows changed; zero means the biller is gone.
func (s *BillerStore) UpdateStatus(ctx context.Context, tx Execer, billerID string, status models.BillerStatus) (int64, error) {
	return rowsAffected(tx.ExecContext(ctx, `UPDATE billers SET status = $1 WHERE id = $2`, status, billerID))
}

func (s *BillerStore) Delete(ctx context.Context, tx Execer, billerID string) (int64, error) {
	return rowsAffected(tx.ExecContext(ctx, `DELETE FROM billers WHERE id = $1`, billerID))
}

func (s *BillerStore) HasPayments(ctx context.Context, q Getter, billerID string) (bool, error) {
	var exists bool
	err := q.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM bill_payments WHERE biller_id = $1)`, billerID)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// List returns billers ordered by name, optionally only the active ones.
func (s *BillerStore) List(ctx context.Context, activeOnly bool) ([]Biller, error) {
	query := `SELECT ` + billerColumns + ` FROM billers`
	if activeOnly {
		query += ` WHERE status = 'active'`
	}
	query += ` ORDER BY name ASC`
	var rows []Biller
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	return rows, nil
}
