package handlers

import (
	"context"

	"backoffice/internal/services"
	"backoffice/internal/store"
)

type UserService interface {
	Register(ctx context.Context, input services.RegisterInput) (store.User, error)
	RegisterAdmin(ctx context.Context, key string, input services.RegisterInput) (store.User, error)
	Login(ctx context.Context, email, password string) (services.LoginResult, error)
	Me(ctx context.Context, userID string) (store.User, error)
	Active(ctx context.Context, userID string) (store.User, error)
}

type LedgerService interface {
	TransferInternal(ctx context.Context, req services.InternalTransferRequest) (services.TransferResult, error)
	TransferExternal(ctx context.Context, req services.ExternalTransferRequest) (services.TransferResult, error)
	PayBill(ctx context.Context, req services.BillPaymentRequest) (services.BillPaymentResult, error)
	BillAmountEstimate(ctx context.Context, billerID, consumerNumber string) (services.BillEstimate, error)
}

type ReportService interface {
	Account(ctx context.Context, userID string) (*store.Account, error)
	FinancialSummary(ctx context.Context, userID string, months int) ([]services.MonthSummary, error)
	History(ctx context.Context, userID string, page, limit int) (services.HistoryPage, error)
	Receipt(ctx context.Context, userID, transactionID string) (services.Receipt, error)
	FrequentRecipients(ctx context.Context, userID, kind string) (services.FrequentRecipients, error)
	Statement(ctx context.Context, userID string) (services.Statement, error)
	BillHistory(ctx context.Context, userID string) ([]store.BillHistoryLine, error)
	RecipientPreview(ctx context.Context, accountNumber string) (store.AccountHolder, error)
	Dashboard(ctx context.Context) (services.Dashboard, error)
}

type AdminService interface {
	SetUserStatus(ctx context.Context, actorID, userID, status string) (services.StatusResult, error)
	SetAccountStatus(ctx context.Context, actorID, accountID, status string) (services.StatusResult, error)
	AddBiller(ctx context.Context, actorID, name, category string) (store.Biller, error)
	SetBillerStatus(ctx context.Context, actorID, billerID, status string) error
	DeleteBiller(ctx context.Context, actorID, billerID string) error
	ListBillers(ctx context.Context, activeOnly bool) ([]store.Biller, error)
	ListUsers(ctx context.Context, status string) ([]store.User, error)
	ListAccounts(ctx context.Context) ([]store.AccountWithOwner, error)
	AuditLog(ctx context.Context, limit, offset int) ([]store.AuditEntry, error)
}

type NotificationService interface {
	Latest(ctx context.Context, userID string) ([]store.Notification, error)
	List(ctx context.Context, userID string) ([]store.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	Broadcast(ctx context.Context, req services.BroadcastRequest) (int, error)
}

type SupportService interface {
	OpenTicket(ctx context.Context, userID, subject, message string) (store.Ticket, error)
	MyTickets(ctx context.Context, userID string) ([]store.Ticket, error)
	Responses(ctx context.Context, userID, ticketID string) ([]store.TicketResponse, error)
	AllTickets(ctx context.Context) ([]store.TicketWithOwner, error)
	Respond(ctx context.Context, adminID, ticketID, message, status string) (store.TicketResponse, error)
	SetTicketStatus(ctx context.Context, ticketID, status string) error
}
