package services

import (
	"errors"
	"fmt"

	"backoffice/internal/lifecycle"
	"backoffice/internal/models"
)

var (
	ErrInvalidAmount   = errors.New("amount must be greater than zero")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidCategory = errors.New("invalid biller category")
	ErrMissingField    = errors.New("missing required field")
	ErrInvalidKind     = errors.New("invalid recipient kind")

	ErrNoActiveAccount      = errors.New("account not found or inactive")
	ErrRecipientNotFound    = errors.New("recipient account not found")
	ErrBillerNotFound       = errors.New("biller not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrAccountNotFound      = errors.New("account not found")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrTicketNotFound       = errors.New("ticket not found")

	ErrInsufficientFunds    = errors.New("insufficient balance")
	ErrSameAccount          = errors.New("cannot transfer to the same account")
	ErrAlreadyPaidThisCycle = errors.New("bill already paid for this billing cycle")
	ErrBillerInactive       = errors.New("biller is deactivated and cannot receive payments")
	ErrBillerExists         = errors.New("biller already exists")
	ErrBillerHasPayments    = errors.New("biller has payments and cannot be deleted")
	ErrRecipientUnavailable = errors.New("recipient account is not active")
	ErrEmailTaken           = errors.New("email or national id already registered")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserBlocked        = errors.New("user is not allowed to sign in")
	ErrInvalidAdminKey    = errors.New("invalid admin registration key")
)

// RecipientUnavailableError reports a transfer that was recorded as failed
// because the destination account is frozen or closed.
type RecipientUnavailableError struct {
	TransactionID string
	Status        models.AccountStatus
}

func (e *RecipientUnavailableError) Error() string {
	return fmt.Sprintf("recipient account is %s; transfer failed and recorded", e.Status)
}

func (e *RecipientUnavailableError) Unwrap() error { return ErrRecipientUnavailable }

// AlreadyPaidError names the billing month that already has a payment.
type AlreadyPaidError struct {
	Month string
}

func (e *AlreadyPaidError) Error() string {
	return fmt.Sprintf("bill for this consumer number has already been paid for %s", e.Month)
}

func (e *AlreadyPaidError) Unwrap() error { return ErrAlreadyPaidThisCycle }

type Kind int

const (
	KindSystem Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindAuth
	KindForbidden
)

// KindOf classifies err for callers that translate errors into responses.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindSystem
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrInvalidCategory),
		errors.Is(err, ErrMissingField),
		errors.Is(err, ErrInvalidKind),
		errors.Is(err, lifecycle.ErrUnknownStatus):
		return KindValidation
	case errors.Is(err, ErrNoActiveAccount),
		errors.Is(err, ErrRecipientNotFound),
		errors.Is(err, ErrBillerNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrTransactionNotFound),
		errors.Is(err, ErrNotificationNotFound),
		errors.Is(err, ErrTicketNotFound):
		return KindNotFound
	case errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrSameAccount),
		errors.Is(err, ErrAlreadyPaidThisCycle),
		errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, ErrBillerInactive),
		errors.Is(err, ErrBillerExists),
		errors.Is(err, ErrBillerHasPayments),
		errors.Is(err, ErrRecipientUnavailable),
		errors.Is(err, ErrEmailTaken):
		return KindConflict
	case errors.Is(err, ErrInvalidCredentials):
		return KindAuth
	case errors.Is(err, ErrUserBlocked), errors.Is(err, ErrInvalidAdminKey):
		return KindForbidden
	}
	return KindSystem
}
