// Package events publishes committed ledger transactions for downstream
// consumers. Publishing happens after commit and never affects the outcome
// of the command that produced the event.
package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"backoffice/internal/models"
)

const (
	RoutingCompleted = "ledger.transaction.completed"
	RoutingFailed    = "ledger.transaction.failed"
)

type TransactionEvent struct {
	TransactionID string                   `json:"transaction_id"`
	Type          models.TransactionType   `json:"type"`
	Status        models.TransactionStatus `json:"status"`
	FromAccountID string                   `json:"from_account_id"`
	ToAccountID   string                   `json:"to_account_id,omitempty"`
	BillerID      string                   `json:"biller_id,omitempty"`
	Amount        int64                    `json:"amount"`
	OccurredAt    time.Time                `json:"occurred_at"`
}

// RoutingKey picks the topic for the event's outcome.
func (e TransactionEvent) RoutingKey() string {
	if e.Status == models.TxFailed {
		return RoutingFailed
	}
	return RoutingCompleted
}

type Publisher interface {
	PublishTransaction(ctx context.Context, event TransactionEvent) error
	Close()
}

// Nop is used when no broker is configured or it was unreachable at startup.
type Nop struct {
	Logger *zap.Logger
}

func (n Nop) PublishTransaction(_ context.Context, event TransactionEvent) error {
	if n.Logger != nil {
		n.Logger.Debug("event publish skipped",
			zap.String("routing_key", event.RoutingKey()),
			zap.String("transaction_id", event.TransactionID),
		)
	}
	return nil
}

func (Nop) Close() {}
