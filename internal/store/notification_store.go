package store

import (
	"context"
	"time"

	"backoffice/internal/models"
)

type NotificationStore struct {
	db DB
}

type Notification struct {
	ID        string                  `db:"id"`
	UserID    string                  `db:"user_id"`
	Type      models.NotificationType `db:"type"`
	Message   string                  `db:"message"`
	IsRead    bool                    `db:"is_read"`
	CreatedAt time.Time               `db:"created_at"`
}

func NewNotificationStore(db DB) *NotificationStore {
	return &NotificationStore{db: db}
}

func (s *NotificationStore) Create(ctx context.Context, tx Execer, n Notification) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, type, message, is_read, created_at)
		VALUES ($1, $2, $3, $4, FALSE, $5)
	`, n.ID, n.UserID, n.Type, n.Message, n.CreatedAt)
	return err
}

// ListByUser returns the newest notifications first. A limit of zero or less
// returns all of them.
func (s *NotificationStore) ListByUser(ctx context.Context, userID string, limit int) ([]Notification, error) {
	query := `
		SELECT id, user_id, type, message, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	var rows []Notification
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkRead only touches notifications owned by userID.
func (s *NotificationStore) MarkRead(ctx context.Context, userID, notificationID string) (int64, error) {
	return rowsAffected(s.db.ExecContext(ctx, `
		UPDATE notifications
		SET is_read = TRUE
		WHERE id = $1 AND user_id = $2
	`, notificationID, userID))
}
