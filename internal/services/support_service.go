package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"backoffice/internal/db"
	"backoffice/internal/models"
	"backoffice/internal/notify"
	"backoffice/internal/store"
)

type SupportStore interface {
	CreateTicket(ctx context.Context, tx store.Execer, ticket store.Ticket) error
	GetTicket(ctx context.Context, q store.Getter, ticketID string) (store.Ticket, error)
	ListByUser(ctx context.Context, userID string) ([]store.Ticket, error)
	ListAll(ctx context.Context) ([]store.TicketWithOwner, error)
	UpdateStatus(ctx context.Context, tx store.Execer, ticketID string, status models.TicketStatus) (int64, error)
	CreateResponse(ctx context.Context, tx store.Execer, response store.TicketResponse) error
	ListResponses(ctx context.Context, ticketID string) ([]store.TicketResponse, error)
}

type SupportService struct {
	txRunner db.TxRunner
	tickets  SupportStore
	notifier *Notifier
	lookup   store.Getter
	now      func() time.Time
}

func NewSupportService(txRunner db.TxRunner, tickets SupportStore, notifier *Notifier, lookup store.Getter) *SupportService {
	return &SupportService{
		txRunner: txRunner,
		tickets:  tickets,
		notifier: notifier,
		lookup:   lookup,
		now:      time.Now,
	}
}

func (s *SupportService) OpenTicket(ctx context.Context, userID, subject, message string) (store.Ticket, error) {
	subject, message = strings.TrimSpace(subject), strings.TrimSpace(message)
	if subject == "" || message == "" {
		return store.Ticket{}, ErrMissingField
	}
	now := s.now()
	ticket := store.Ticket{
		ID:        uuid.NewString(),
		UserID:    userID,
		Subject:   subject,
		Message:   message,
		Status:    models.TicketOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.tickets.CreateTicket(ctx, tx, ticket)
	})
	if err != nil {
		return store.Ticket{}, fmt.Errorf("open ticket: %w", err)
	}
	return ticket, nil
}

func (s *SupportService) MyTickets(ctx context.Context, userID string) ([]store.Ticket, error) {
	rows, err := s.tickets.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	if rows == nil {
		rows = []store.Ticket{}
	}
	return rows, nil
}

// Responses lists the replies to a ticket owned by userID. Tickets of other
// users are reported as missing.
func (s *SupportService) Responses(ctx context.Context, userID, ticketID string) ([]store.TicketResponse, error) {
	ticket, err := s.tickets.GetTicket(ctx, s.lookup, ticketID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("load ticket: %w", err)
	}
	if ticket.UserID != userID {
		return nil, ErrTicketNotFound
	}
	rows, err := s.tickets.ListResponses(ctx, ticket.ID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	if rows == nil {
		rows = []store.TicketResponse{}
	}
	return rows, nil
}

func (s *SupportService) AllTickets(ctx context.Context) ([]store.TicketWithOwner, error) {
	rows, err := s.tickets.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	if rows == nil {
		rows = []store.TicketWithOwner{}
	}
	return rows, nil
}

// Respond adds an admin reply, optionally moving the ticket to status, and
// notifies the ticket owner.
func (s *SupportService) Respond(ctx context.Context, adminID, ticketID, message, status string) (store.TicketResponse, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return store.TicketResponse{}, ErrMissingField
	}
	requested := models.TicketStatus(strings.TrimSpace(status))
	if requested != "" && !requested.Valid() {
		return store.TicketResponse{}, ErrInvalidStatus
	}

	var (
		response store.TicketResponse
		pending  []notify.Message
	)
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		pending = nil
		ticket, err := s.tickets.GetTicket(ctx, tx, ticketID)
		if err != nil {
			if store.IsNotFound(err) {
				return ErrTicketNotFound
			}
			return fmt.Errorf("load ticket: %w", err)
		}
		if requested != "" && requested != ticket.Status {
			if _, err := s.tickets.UpdateStatus(ctx, tx, ticket.ID, requested); err != nil {
				return fmt.Errorf("update ticket status: %w", err)
			}
		}
		at := s.now()
		response = store.TicketResponse{
			ID:        uuid.NewString(),
			TicketID:  ticket.ID,
			AdminID:   adminID,
			Message:   message,
			CreatedAt: at,
		}
		if err := s.tickets.CreateResponse(ctx, tx, response); err != nil {
			return fmt.Errorf("create response: %w", err)
		}
		msg, err := s.notifier.Record(ctx, tx, ticket.UserID, models.NotificationSystem,
			fmt.Sprintf("Admin responded to your ticket %s", ticket.Subject), at)
		if err != nil {
			return err
		}
		pending = append(pending, msg)
		return nil
	})
	if err != nil {
		return store.TicketResponse{}, err
	}
	s.notifier.Dispatch(pending)
	return response, nil
}

func (s *SupportService) SetTicketStatus(ctx context.Context, ticketID, status string) error {
	requested := models.TicketStatus(strings.TrimSpace(status))
	if !requested.Valid() {
		return ErrInvalidStatus
	}
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		updated, err := s.tickets.UpdateStatus(ctx, tx, ticketID, requested)
		if err != nil {
			return fmt.Errorf("update ticket status: %w", err)
		}
		if updated == 0 {
			return ErrTicketNotFound
		}
		return nil
	})
}
