// Package notify delivers realtime notification pushes. Delivery is best
// effort: the notification row is the durable record, a push only tells a
// connected client that something new is there.
package notify

import (
	"context"
	"errors"
	"time"

	"backoffice/internal/models"
)

type Message struct {
	ID        string                  `json:"id"`
	UserID    string                  `json:"userId"`
	Type      models.NotificationType `json:"type"`
	Message   string                  `json:"message"`
	CreatedAt time.Time               `json:"createdAt"`
}

type Transport interface {
	Push(ctx context.Context, msg Message) error
}

// Nop drops every message.
type Nop struct{}

func (Nop) Push(context.Context, Message) error { return nil }

// Multi pushes to every transport and joins their errors.
type Multi []Transport

func (m Multi) Push(ctx context.Context, msg Message) error {
	var errs []error
	for _, t := range m {
		if err := t.Push(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Fallback uses Secondary whenever Primary fails.
type Fallback struct {
	Primary   Transport
	Secondary Transport
}

func (f Fallback) Push(ctx context.Context, msg Message) error {
	err := f.Primary.Push(ctx, msg)
	if err == nil {
		return nil
	}
	if fallbackErr := f.Secondary.Push(ctx, msg); fallbackErr != nil {
		return errors.Join(err, fallbackErr)
	}
	return nil
}
