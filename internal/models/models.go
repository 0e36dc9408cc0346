// Package models holds the closed value sets shared by the store, service
// and handler layers.
package models

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

type UserStatus string

const (
	UserPending  UserStatus = "pending"
	UserApproved UserStatus = "approved"
	UserRejected UserStatus = "rejected"
	UserDeleted  UserStatus = "deleted"
)

func (s UserStatus) Valid() bool {
	switch s {
	case UserPending, UserApproved, UserRejected, UserDeleted:
		return true
	}
	return false
}

// CanAuthenticate is false for users whose registration was refused or
// whose access was revoked.
func (s UserStatus) CanAuthenticate() bool {
	return s != UserRejected && s != UserDeleted
}

type AccountStatus string

const (
	AccountActive AccountStatus = "active"
	AccountFrozen AccountStatus = "frozen"
	AccountClosed AccountStatus = "closed"
)

func (s AccountStatus) Valid() bool {
	switch s {
	case AccountActive, AccountFrozen, AccountClosed:
		return true
	}
	return false
}

type TransactionType string

const (
	TxInternalTransfer TransactionType = "internal_transfer"
	TxExternalTransfer TransactionType = "external_transfer"
	TxBillPayment      TransactionType = "bill_payment"
)

type TransactionStatus string

const (
	TxCompleted TransactionStatus = "completed"
	TxFailed    TransactionStatus = "failed"
)

type BillerCategory string

const (
	CategoryElectricity BillerCategory = "electricity"
	CategoryGas         BillerCategory = "gas"
	CategoryWater       BillerCategory = "water"
	CategoryInternet    BillerCategory = "internet"
	CategoryOther       BillerCategory = "other"
)

func (c BillerCategory) Valid() bool {
	switch c {
	case CategoryElectricity, CategoryGas, CategoryWater, CategoryInternet, CategoryOther:
		return true
	}
	return false
}

type BillerStatus string

const (
	BillerActive      BillerStatus = "active"
	BillerDeactivated BillerStatus = "deactivated"
)

func (s BillerStatus) Valid() bool {
	return s == BillerActive || s == BillerDeactivated
}

type NotificationType string

const (
	NotificationTransfer  NotificationType = "transfer"
	NotificationBill      NotificationType = "bill"
	NotificationSystem    NotificationType = "system_noti"
	NotificationBroadcast NotificationType = "broadcast"
)

type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketClosed     TicketStatus = "closed"
)

func (s TicketStatus) Valid() bool {
	switch s {
	case TicketOpen, TicketInProgress, TicketClosed:
		return true
	}
	return false
}

// RecipientKind selects the frequent-recipient ranking.
type RecipientKind string

const (
	RecipientInternal RecipientKind = "internal"
	RecipientExternal RecipientKind = "external"
)
