package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"backoffice/internal/db"
	"backoffice/internal/events"
	"backoffice/internal/models"
	"backoffice/internal/notify"
	"backoffice/internal/store"
)

const (
	latestNotifications = 5
	dispatchTimeout     = 10 * time.Second
)

type NotificationStore interface {
	Create(ctx context.Context, tx store.Execer, n store.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]store.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) (int64, error)
}

type RecipientDirectory interface {
	GetByID(ctx context.Context, userID string) (store.User, error)
	ApprovedCustomerIDs(ctx context.Context) ([]string, error)
}

// Notifier writes notification rows as part of the caller's transaction and
// delivers pushes and ledger events once that transaction has committed.
type Notifier struct {
	txRunner  db.TxRunner
	store     NotificationStore
	users     RecipientDirectory
	transport notify.Transport
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
	wg        sync.WaitGroup
}

func NewNotifier(txRunner db.TxRunner, notifications NotificationStore, users RecipientDirectory, transport notify.Transport, publisher events.Publisher, logger *zap.Logger) *Notifier {
	if transport == nil {
		transport = notify.Nop{}
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		txRunner:  txRunner,
		store:     notifications,
		users:     users,
		transport: transport,
		publisher: publisher,
		logger:    logger.Named("notifier"),
		now:       time.Now,
	}
}

// Record inserts a notification with tx and returns the push to send after
// commit. A failed insert must abort the surrounding transaction.
func (n *Notifier) Record(ctx context.Context, tx store.Execer, userID string, kind models.NotificationType, message string, at time.Time) (notify.Message, error) {
	row := store.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      kind,
		Message:   message,
		CreatedAt: at,
	}
	if err := n.store.Create(ctx, tx, row); err != nil {
		return notify.Message{}, fmt.Errorf("record notification: %w", err)
	}
	return notify.Message{
		ID:        row.ID,
		UserID:    row.UserID,
		Type:      row.Type,
		Message:   row.Message,
		CreatedAt: row.CreatedAt,
	}, nil
}

// Dispatch delivers pushes and events in the background. Failures are logged
// and never reach the caller.
func (n *Notifier) Dispatch(msgs []notify.Message, evts ...events.TransactionEvent) {
	if len(msgs) == 0 && len(evts) == 0 {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				n.logger.Error("dispatch panicked", zap.Any("panic", r))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()

		for _, msg := range msgs {
			if err := n.transport.Push(ctx, msg); err != nil {
				n.logger.Warn("push failed",
					zap.String("user_id", msg.UserID),
					zap.String("notification_id", msg.ID),
					zap.Error(err),
				)
			}
		}
		for _, evt := range evts {
			if err := n.publisher.PublishTransaction(ctx, evt); err != nil {
				n.logger.Warn("event publish failed",
					zap.String("transaction_id", evt.TransactionID),
					zap.String("routing_key", evt.RoutingKey()),
					zap.Error(err),
				)
			}
		}
	}()
}

// Wait blocks until every in-flight dispatch has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) Latest(ctx context.Context, userID string) ([]store.Notification, error) {
	return n.list(ctx, userID, latestNotifications)
}

func (n *Notifier) List(ctx context.Context, userID string) ([]store.Notification, error) {
	return n.list(ctx, userID, 0)
}

func (n *Notifier) list(ctx context.Context, userID string, limit int) ([]store.Notification, error) {
	rows, err := n.store.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	if rows == nil {
		rows = []store.Notification{}
	}
	return rows, nil
}

func (n *Notifier) MarkRead(ctx context.Context, userID, notificationID string) error {
	updated, err := n.store.MarkRead(ctx, userID, notificationID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if updated == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

type BroadcastRequest struct {
	// UserID targets one user; empty means every approved customer.
	UserID  string
	Message string
}

// Broadcast stores one broadcast notification per recipient and pushes them.
// It returns how many users were notified.
func (n *Notifier) Broadcast(ctx context.Context, req BroadcastRequest) (int, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return 0, ErrMissingField
	}

	var recipients []string
	if req.UserID != "" {
		user, err := n.users.GetByID(ctx, req.UserID)
		if err != nil {
			if store.IsNotFound(err) {
				return 0, ErrUserNotFound
			}
			return 0, fmt.Errorf("load user: %w", err)
		}
		recipients = []string{user.ID}
	} else {
		ids, err := n.users.ApprovedCustomerIDs(ctx)
		if err != nil {
			return 0, fmt.Errorf("list recipients: %w", err)
		}
		recipients = ids
	}
	if len(recipients) == 0 {
		return 0, nil
	}

	var pending []notify.Message
	at := n.now()
	err := n.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		pending = pending[:0]
		for _, userID := range recipients {
			msg, err := n.Record(ctx, tx, userID, models.NotificationBroadcast, message, at)
			if err != nil {
				return err
			}
			pending = append(pending, msg)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	n.Dispatch(pending)
	return len(pending), nil
}
