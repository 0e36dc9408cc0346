package store

import (
	"context"
	"time"

	"backoffice/internal/models"
)

type SupportStore struct {
	db DB
}

type Ticket struct {
	ID        string              `db:"id"`
	UserID    string              `db:"user_id"`
	Subject   string              `db:"subject"`
	Message   string              `db:"message"`
	Status    models.TicketStatus `db:"status"`
	CreatedAt time.Time           `db:"created_at"`
	UpdatedAt time.Time           `db:"updated_at"`
}

// TicketWithOwner is the admin view of a ticket.
type TicketWithOwner struct {
	Ticket
	FullName string `db:"full_name"`
	Email    string `db:"email"`
}

type TicketResponse struct {
	ID        string    `db:"id"`
	TicketID  string    `db:"ticket_id"`
	AdminID   string    `db:"admin_id"`
	AdminName string    `db:"admin_name"`
	Message   string    `db:"message"`
	CreatedAt time.Time `db:"created_at"`
}

const ticketColumns = `t.id, t.user_id, t.subject, t.message, t.status, t.created_at, t.updated_at`

func NewSupportStore(db DB) *SupportStore {
	return &SupportStore{db: db}
}

func (s *SupportStore) CreateTicket(ctx context.Context, tx Execer, ticket Ticket) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO support_tickets (id, user_id, subject, message, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`, ticket.ID, ticket.UserID, ticket.Subject, ticket.Message, ticket.Status, ticket.CreatedAt)
	return err
}

func (s *SupportStore) GetTicket(ctx context.Context, q Getter, ticketID string) (Ticket, error) {
	var row Ticket
	err := q.GetContext(ctx, &row, `SELECT `+ticketColumns+` FROM support_tickets t WHERE t.id = $1`, ticketID)
	if err != nil {
		return Ticket{}, err
	}
	return row, nil
}

func (s *SupportStore) ListByUser(ctx context.Context, userID string) ([]Ticket, error) {
	var rows []Ticket
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+ticketColumns+`
		FROM support_tickets t
		WHERE t.user_id = $1
		ORDER BY t.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *SupportStore) ListAll(ctx context.Context) ([]TicketWithOwner, error) {
	var rows []TicketWithOwner
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+ticketColumns+`, u.full_name, u.email
		FROM support_tickets t
		JOIN users u ON u.id = t.user_id
		ORDER BY t.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *SupportStore) UpdateStatus(ctx context.Context, tx Execer, ticketID string, status models.TicketStatus) (int64, error) {
	return rowsAffected(tx.ExecContext(ctx, `
		UPDATE support_tickets
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, ticketID))
}

func (s *SupportStore) CreateResponse(ctx context.Context, tx Execer, response TicketResponse) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ticket_responses (id, ticket_id, admin_id, message, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, response.ID, response.TicketID, response.AdminID, response.Message, response.CreatedAt)
	return err
}

func (s *SupportStore) ListResponses(ctx context.Context, ticketID string) ([]TicketResponse, error) {
	var rows []TicketResponse
	err := s.db.SelectContext(ctx, &rows, `
		SELECT r.id, r.ticket_id, r.admin_id, u.full_name AS admin_name, r.message, r.created_at
		FROM ticket_responses r
		JOIN users u ON u.id = r.admin_id
		WHERE r.ticket_id = $1
		ORDER BY r.created_at ASC
	`, ticketID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
