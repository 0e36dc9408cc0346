package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"backoffice/internal/auth"
	"backoffice/internal/config"
	"backoffice/internal/models"
	"backoffice/internal/services"
	"backoffice/internal/store"
)

const testSecret = "test-secret"

type stubUsers struct {
	registerFn      func(ctx context.Context, input services.RegisterInput) (store.User, error)
	registerAdminFn func(ctx context.Context, key string, input services.RegisterInput) (store.User, error)
	loginFn         func(ctx context.Context, email, password string) (services.LoginResult, error)
	meFn            func(ctx context.Context, userID string) (store.User, error)
	activeFn        func(ctx context.Context, userID string) (store.User, error)
}

func (s stubUsers) Register(ctx context.Context, input services.RegisterInput) (store.User, error) {
	return s.registerFn(ctx, input)
}

func (s stubUsers) RegisterAdmin(ctx context.Context, key string, input services.RegisterInput) (store.User, error) {
	return s.registerAdminFn(ctx, key, input)
}

func (s stubUsers) Login(ctx context.Context, email, password string) (services.LoginResult, error) {
	return s.loginFn(ctx, email, password)
}

func (s stubUsers) Me(ctx context.Context, userID string) (store.User, error) {
	return s.meFn(ctx, userID)
}

// Active treats ids starting with "admin" as admins and everyone else as
// approved customers unless activeFn says otherwise.
func (s stubUsers) Active(ctx context.Context, userID string) (store.User, error) {
	if s.activeFn != nil {
		return s.activeFn(ctx, userID)
	}
	role := models.RoleCustomer
	if strings.HasPrefix(userID, "admin") {
		role = models.RoleAdmin
	}
	return store.User{ID: userID, Role: role, Status: models.UserApproved}, nil
}

type stubLedger struct {
	internalFn func(ctx context.Context, req services.InternalTransferRequest) (services.TransferResult, error)
	externalFn func(ctx context.Context, req services.ExternalTransferRequest) (services.TransferResult, error)
	payBillFn  func(ctx context.Context, req services.BillPaymentRequest) (services.BillPaymentResult, error)
	estimateFn func(ctx context.Context, billerID, consumerNumber string) (services.BillEstimate, error)
}

func (s stubLedger) TransferInternal(ctx context.Context, req services.InternalTransferRequest) (services.TransferResult, error) {
	return s.internalFn(ctx, req)
}

func (s stubLedger) TransferExternal(ctx context.Context, req services.ExternalTransferRequest) (services.TransferResult, error) {
	return s.externalFn(ctx, req)
}

func (s stubLedger) PayBill(ctx context.Context, req services.BillPaymentRequest) (services.BillPaymentResult, error) {
	return s.payBillFn(ctx, req)
}

func (s stubLedger) BillAmountEstimate(ctx context.Context, billerID, consumerNumber string) (services.BillEstimate, error) {
	return s.estimateFn(ctx, billerID, consumerNumber)
}

type stubReports struct {
	accountFn   func(ctx context.Context, userID string) (*store.Account, error)
	summaryFn   func(ctx context.Context, userID string, months int) ([]services.MonthSummary, error)
	historyFn   func(ctx context.Context, userID string, page, limit int) (services.HistoryPage, error)
	receiptFn   func(ctx context.Context, userID, transactionID string) (services.Receipt, error)
	frequentFn  func(ctx context.Context, userID, kind string) (services.FrequentRecipients, error)
	statementFn func(ctx context.Context, userID string) (services.Statement, error)
	billsFn     func(ctx context.Context, userID string) ([]store.BillHistoryLine, error)
	previewFn   func(ctx context.Context, accountNumber string) (store.AccountHolder, error)
	dashboardFn func(ctx context.Context) (services.Dashboard, error)
}

func (s stubReports) Account(ctx context.Context, userID string) (*store.Account, error) {
	return s.accountFn(ctx, userID)
}

func (s stubReports) FinancialSummary(ctx context.Context, userID string, months int) ([]services.MonthSummary, error) {
	return s.summaryFn(ctx, userID, months)
}

func (s stubReports) History(ctx context.Context, userID string, page, limit int) (services.HistoryPage, error) {
	return s.historyFn(ctx, userID, page, limit)
}

func (s stubReports) Receipt(ctx context.Context, userID, transactionID string) (services.Receipt, error) {
	return s.receiptFn(ctx, userID, transactionID)
}

func (s stubReports) FrequentRecipients(ctx context.Context, userID, kind string) (services.FrequentRecipients, error) {
	return s.frequentFn(ctx, userID, kind)
}

func (s stubReports) Statement(ctx context.Context, userID string) (services.Statement, error) {
	return s.statementFn(ctx, userID)
}

func (s stubReports) BillHistory(ctx context.Context, userID string) ([]store.BillHistoryLine, error) {
	return s.billsFn(ctx, userID)
}

func (s stubReports) RecipientPreview(ctx context.Context, accountNumber string) (store.AccountHolder, error) {
	return s.previewFn(ctx, accountNumber)
}

func (s stubReports) Dashboard(ctx context.Context) (services.Dashboard, error) {
	return s.dashboardFn(ctx)
}

type stubAdmin struct {
	setUserStatusFn    func(ctx context.Context, actorID, userID, status string) (services.StatusResult, error)
	setAccountStatusFn func(ctx context.Context, actorID, accountID, status string) (services.StatusResult, error)
	addBillerFn        func(ctx context.Context, actorID, name, category string) (store.Biller, error)
	setBillerStatusFn  func(ctx context.Context, actorID, billerID, status string) error
	deleteBillerFn     func(ctx context.Context, actorID, billerID string) error
	listBillersFn      func(ctx context.Context, activeOnly bool) ([]store.Biller, error)
	listUsersFn        func(ctx context.Context, status string) ([]store.User, error)
	listAccountsFn     func(ctx context.Context) ([]store.AccountWithOwner, error)
	auditLogFn         func(ctx context.Context, limit, offset int) ([]store.AuditEntry, error)
}

func (s stubAdmin) SetUserStatus(ctx context.Context, actorID, userID, status string) (services.StatusResult, error) {
	return s.setUserStatusFn(ctx, actorID, userID, status)
}

func (s stubAdmin) SetAccountStatus(ctx context.Context, actorID, accountID, status string) (services.StatusResult, error) {
	return s.setAccountStatusFn(ctx, actorID, accountID, status)
}

func (s stubAdmin) AddBiller(ctx context.Context, actorID, name, category string) (store.Biller, error) {
	return s.addBillerFn(ctx, actorID, name, category)
}

func (s stubAdmin) SetBillerStatus(ctx context.Context, actorID, billerID, status string) error {
	return s.setBillerStatusFn(ctx, actorID, billerID, status)
}

func (s stubAdmin) DeleteBiller(ctx context.Context, actorID, billerID string) error {
	return s.deleteBillerFn(ctx, actorID, billerID)
}

func (s stubAdmin) ListBillers(ctx context.Context, activeOnly bool) ([]store.Biller, error) {
	return s.listBillersFn(ctx, activeOnly)
}

func (s stubAdmin) ListUsers(ctx context.Context, status string) ([]store.User, error) {
	return s.listUsersFn(ctx, status)
}

func (s stubAdmin) ListAccounts(ctx context.Context) ([]store.AccountWithOwner, error) {
	return s.listAccountsFn(ctx)
}

func (s stubAdmin) AuditLog(ctx context.Context, limit, offset int) ([]store.AuditEntry, error) {
	return s.auditLogFn(ctx, limit, offset)
}

type stubNotifications struct {
	latestFn    func(ctx context.Context, userID string) ([]store.Notification, error)
	listFn      func(ctx context.Context, userID string) ([]store.Notification, error)
	markReadFn  func(ctx context.Context, userID, notificationID string) error
	broadcastFn func(ctx context.Context, req services.BroadcastRequest) (int, error)
}

func (s stubNotifications) Latest(ctx context.Context, userID string) ([]store.Notification, error) {
	return s.latestFn(ctx, userID)
}

func (s stubNotifications) List(ctx context.Context, userID string) ([]store.Notification, error) {
	return s.listFn(ctx, userID)
}

func (s stubNotifications) MarkRead(ctx context.Context, userID, notificationID string) error {
	return s.markReadFn(ctx, userID, notificationID)
}

func (s stubNotifications) Broadcast(ctx context.Context, req services.BroadcastRequest) (int, error) {
	return s.broadcastFn(ctx, req)
}

type stubSupport struct {
	openFn      func(ctx context.Context, userID, subject, message string) (store.Ticket, error)
	mineFn      func(ctx context.Context, userID string) ([]store.Ticket, error)
	responsesFn func(ctx context.Context, userID, ticketID string) ([]store.TicketResponse, error)
	allFn       func(ctx context.Context) ([]store.TicketWithOwner, error)
	respondFn   func(ctx context.Context, adminID, ticketID, message, status string) (store.TicketResponse, error)
	setStatusFn func(ctx context.Context, ticketID, status string) error
}

func (s stubSupport) OpenTicket(ctx context.Context, userID, subject, message string) (store.Ticket, error) {
	return s.openFn(ctx, userID, subject, message)
}

func (s stubSupport) MyTickets(ctx context.Context, userID string) ([]store.Ticket, error) {
	return s.mineFn(ctx, userID)
}

func (s stubSupport) Responses(ctx context.Context, userID, ticketID string) ([]store.TicketResponse, error) {
	return s.responsesFn(ctx, userID, ticketID)
}

func (s stubSupport) AllTickets(ctx context.Context) ([]store.TicketWithOwner, error) {
	return s.allFn(ctx)
}

func (s stubSupport) Respond(ctx context.Context, adminID, ticketID, message, status string) (store.TicketResponse, error) {
	return s.respondFn(ctx, adminID, ticketID, message, status)
}

func (s stubSupport) SetTicketStatus(ctx context.Context, ticketID, status string) error {
	return s.setStatusFn(ctx, ticketID, status)
}

type testDeps struct {
	users         stubUsers
	ledger        stubLedger
	reports       stubReports
	admin         stubAdmin
	notifications stubNotifications
	support       stubSupport
}

func newTestHandler(deps testDeps) http.Handler {
	cfg := config.Config{JWTSecret: testSecret, AllowedOrigins: "*"}
	return New(cfg, nil, deps.users, deps.ledger, deps.reports, deps.admin, deps.notifications, deps.support, nil).Routes()
}

func tokenFor(t *testing.T, userID, role string) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, userID, role, time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return token
}

// do sends the request, authenticated as userID unless it is empty, and
// decodes the body when it is JSON. Middleware rejections are plain text.
func do(t *testing.T, handler http.Handler, method, path, userID, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		role := "customer"
		if strings.HasPrefix(userID, "admin") {
			role = "admin"
		}
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, userID, role))
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	payload := map[string]any{}
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode %q: %v", rr.Body.String(), err)
		}
	}
	return rr.Code, payload
}
