// Package lifecycle defines the status transition tables for users and
// accounts. It is pure: no storage, no clock.
package lifecycle

import (
	"errors"
	"fmt"

	"backoffice/internal/models"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnknownStatus     = errors.New("unknown status")
)

type Kind string

const (
	KindUser    Kind = "user"
	KindAccount Kind = "account"
)

// Outcome classifies an allowed request.
type Outcome int

const (
	// Unchanged means the entity is already in the requested status.
	Unchanged Outcome = iota
	Changed
)

type machine[S ~string] map[S][]S

func (m machine[S]) known(status S) bool {
	_, ok := m[status]
	return ok
}

func (m machine[S]) allows(current, requested S) bool {
	for _, next := range m[current] {
		if next == requested {
			return true
		}
	}
	return false
}

func (m machine[S]) check(kind Kind, current, requested S) (Outcome, error) {
	if !m.known(requested) {
		return Unchanged, fmt.Errorf("%w: %q", ErrUnknownStatus, requested)
	}
	if !m.known(current) {
		return Unchanged, fmt.Errorf("%w: %q", ErrUnknownStatus, current)
	}
	if current == requested {
		return Unchanged, nil
	}
	if !CanTransition(kind, string(current), string(requested)) {
		return Unchanged, &TransitionError{From: string(current), To: string(requested)}
	}
	return Changed, nil
}

var users = machine[models.UserStatus]{
	models.UserPending:  {models.UserApproved, models.UserRejected},
	models.UserApproved: {models.UserDeleted},
	models.UserRejected: {},
	models.UserDeleted:  {},
}

var accounts = machine[models.AccountStatus]{
	models.AccountActive: {models.AccountFrozen, models.AccountClosed},
	models.AccountFrozen: {models.AccountActive, models.AccountClosed},
	models.AccountClosed: {},
}

// TransitionError names the refused move; it matches ErrInvalidTransition.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change status from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// CanTransition reports whether requested is reachable from current in one
// step. Staying in the same status is not a transition.
func CanTransition(kind Kind, current, requested string) bool {
	switch kind {
	case KindUser:
		return users.allows(models.UserStatus(current), models.UserStatus(requested))
	case KindAccount:
		return accounts.allows(models.AccountStatus(current), models.AccountStatus(requested))
	}
	return false
}

// CheckUser classifies a user status request. Both statuses must be known;
// the move itself is decided by CanTransition.
func CheckUser(current, requested models.UserStatus) (Outcome, error) {
	return users.check(KindUser, current, requested)
}

func CheckAccount(current, requested models.AccountStatus) (Outcome, error) {
	return accounts.check(KindAccount, current, requested)
}
