package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"backoffice/internal/events"
	"backoffice/internal/models"
	"backoffice/internal/notify"
	"backoffice/internal/store"
)

// fakeBank is an in-memory database behind the store interfaces. WithTx
// serialises units of work and restores a snapshot when one fails, which
// gives the same all-or-nothing behaviour as a serializable transaction.
type fakeBank struct {
	txMu sync.Mutex
	mu   sync.Mutex

	users         map[string]store.User
	accounts      map[string]store.Account
	transactions  []store.TransactionInput
	internal      map[string]string
	external      map[string][2]string
	billPayments  map[string][2]string
	billers       map[string]store.Biller
	notifications []store.Notification
	tickets       map[string]store.Ticket
	responses     []store.TicketResponse
	audit         []store.AuditEntry

	failNotification  error
	failAccountCreate error
	failBillPayment   error
	commits           int
}

type bankState struct {
	users         map[string]store.User
	accounts      map[string]store.Account
	transactions  []store.TransactionInput
	internal      map[string]string
	external      map[string][2]string
	billPayments  map[string][2]string
	billers       map[string]store.Biller
	notifications []store.Notification
	tickets       map[string]store.Ticket
	responses     []store.TicketResponse
	audit         []store.AuditEntry
}

func newFakeBank() *fakeBank {
	return &fakeBank{
		users:        map[string]store.User{},
		accounts:     map[string]store.Account{},
		internal:     map[string]string{},
		external:     map[string][2]string{},
		billPayments: map[string][2]string{},
		billers:      map[string]store.Biller{},
		tickets:      map[string]store.Ticket{},
	}
}

func (b *fakeBank) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.txMu.Lock()
	defer b.txMu.Unlock()

	snapshot := b.snapshot()
	if err := fn(nil); err != nil {
		b.restore(snapshot)
		return err
	}
	b.mu.Lock()
	b.commits++
	b.mu.Unlock()
	return nil
}

func (b *fakeBank) snapshot() bankState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bankState{
		users:         cloneMap(b.users),
		accounts:      cloneMap(b.accounts),
		transactions:  append([]store.TransactionInput(nil), b.transactions...),
		internal:      cloneMap(b.internal),
		external:      cloneMap(b.external),
		billPayments:  cloneMap(b.billPayments),
		billers:       cloneMap(b.billers),
		notifications: append([]store.Notification(nil), b.notifications...),
		tickets:       cloneMap(b.tickets),
		responses:     append([]store.TicketResponse(nil), b.responses...),
		audit:         append([]store.AuditEntry(nil), b.audit...),
	}
}

func (b *fakeBank) restore(s bankState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users = s.users
	b.accounts = s.accounts
	b.transactions = s.transactions
	b.internal = s.internal
	b.external = s.external
	b.billPayments = s.billPayments
	b.billers = s.billers
	b.notifications = s.notifications
	b.tickets = s.tickets
	b.responses = s.responses
	b.audit = s.audit
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// seeding helpers

func (b *fakeBank) addCustomer(id string, status models.UserStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[id] = store.User{ID: id, FullName: "User " + id, Email: id + "@example.com", Role: models.RoleCustomer, Status: status}
}

func (b *fakeBank) addAdmin(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[id] = store.User{ID: id, FullName: "Admin " + id, Role: models.RoleAdmin, Status: models.UserApproved}
}

func (b *fakeBank) addAccount(id, userID, number string, balance int64, status models.AccountStatus) {
	if _, ok := b.user(userID); !ok {
		b.addCustomer(userID, models.UserApproved)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[id] = store.Account{ID: id, UserID: userID, AccountNumber: number, Balance: balance, Status: status}
}

func (b *fakeBank) addBiller(id, name string, status models.BillerStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.billers[id] = store.Biller{ID: id, Name: name, Category: models.CategoryElectricity, Status: status}
}

// inspection helpers

func (b *fakeBank) account(id string) store.Account {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accounts[id]
}

func (b *fakeBank) user(id string) (store.User, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[id]
	return u, ok
}

func (b *fakeBank) totalBalance() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	var total int64
	for _, a := range b.accounts {
		total += a.Balance
	}
	return total
}

func (b *fakeBank) allTransactions() []store.TransactionInput {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]store.TransactionInput(nil), b.transactions...)
}

func (b *fakeBank) allNotifications() []store.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]store.Notification(nil), b.notifications...)
}

func (b *fakeBank) accountsOf(userID string) []store.Account {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []store.Account
	for _, a := range b.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out
}

// account store view

type fakeAccounts struct{ *fakeBank }

func (f fakeAccounts) GetByUser(_ context.Context, _ store.Getter, userID string) (store.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.UserID == userID {
			return a, nil
		}
	}
	return store.Account{}, sql.ErrNoRows
}

func (f fakeAccounts) GetByNumber(_ context.Context, _ store.Getter, number string) (store.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.AccountNumber == number {
			return a, nil
		}
	}
	return store.Account{}, sql.ErrNoRows
}

func (f fakeAccounts) GetForUpdate(_ context.Context, _ store.Getter, id string) (store.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return store.Account{}, sql.ErrNoRows
	}
	return a, nil
}

func (f fakeAccounts) UpdateBalance(_ context.Context, _ store.Execer, id string, balance int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if balance < 0 {
		return &pq.Error{Code: "23514", Constraint: "accounts_balance_check"}
	}
	a := f.accounts[id]
	a.Balance = balance
	f.accounts[id] = a
	return nil
}

func (f fakeAccounts) UpdateStatus(_ context.Context, _ store.Execer, id string, status models.AccountStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.accounts[id]
	a.Status = status
	f.accounts[id] = a
	return nil
}

func (f fakeAccounts) NextSequence(context.Context, store.Tx) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.accounts) + 1), nil
}

func (f fakeAccounts) Create(_ context.Context, _ store.Execer, id, userID, number string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAccountCreate != nil {
		return false, f.failAccountCreate
	}
	for _, a := range f.accounts {
		if a.UserID == userID {
			return false, nil
		}
		if a.AccountNumber == number {
			return false, &pq.Error{Code: "23505", Constraint: "accounts_account_number_key"}
		}
	}
	f.accounts[id] = store.Account{ID: id, UserID: userID, AccountNumber: number, Status: models.AccountActive}
	return true, nil
}

func (f fakeAccounts) ListWithOwners(context.Context) ([]store.AccountWithOwner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.AccountWithOwner
	for _, a := range f.accounts {
		u := f.users[a.UserID]
		out = append(out, store.AccountWithOwner{Account: a, FullName: u.FullName, Email: u.Email, UserStatus: u.Status})
	}
	return out, nil
}

func (f fakeAccounts) GetHolder(_ context.Context, number string) (store.AccountHolder, error) {
	a, err := f.GetByNumber(context.Background(), nil, number)
	if err != nil {
		return store.AccountHolder{}, err
	}
	u, _ := f.user(a.UserID)
	return store.AccountHolder{AccountNumber: a.AccountNumber, FullName: u.FullName, Status: a.Status}, nil
}

// transaction store view

type fakeTransactions struct{ *fakeBank }

func (f fakeTransactions) Create(_ context.Context, _ store.Execer, input store.TransactionInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if input.Amount <= 0 {
		return &pq.Error{Code: "23514", Constraint: "transactions_amount_check"}
	}
	f.transactions = append(f.transactions, input)
	return nil
}

func (f fakeTransactions) CreateInternal(_ context.Context, _ store.Execer, txID, toAccountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.internal[txID] = toAccountID
	return nil
}

func (f fakeTransactions) CreateExternal(_ context.Context, _ store.Execer, txID, bank, accountNo string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.external[txID] = [2]string{bank, accountNo}
	return nil
}

func (f fakeTransactions) CreateBillPayment(_ context.Context, _ store.Execer, txID, billerID, consumer string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failBillPayment != nil {
		return f.failBillPayment
	}
	f.billPayments[txID] = [2]string{billerID, consumer}
	return nil
}

func (f fakeTransactions) HasBillPaymentBetween(_ context.Context, _ store.Getter, billerID, consumer, accountID string, from, to time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.transactions {
		payment, ok := f.billPayments[t.ID]
		if !ok || t.Status != models.TxCompleted || t.FromAccountID != accountID {
			continue
		}
		if payment[0] != billerID || payment[1] != consumer {
			continue
		}
		if !t.CreatedAt.Before(from) && t.CreatedAt.Before(to) {
			return true, nil
		}
	}
	return false, nil
}

// biller store view

type fakeBillers struct{ *fakeBank }

func (f fakeBillers) Create(_ context.Context, _ store.Execer, id, name string, category models.BillerCategory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.billers {
		if b.Name == name {
			return &pq.Error{Code: "23505", Constraint: "billers_name_key"}
		}
	}
	f.billers[id] = store.Biller{ID: id, Name: name, Category: category, Status: models.BillerActive}
	return nil
}

func (f fakeBillers) GetByID(_ context.Context, _ store.Getter, id string) (store.Biller, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.billers[id]
	if !ok {
		return store.Biller{}, sql.ErrNoRows
	}
	return b, nil
}

func (f fakeBillers) UpdateStatus(_ context.Context, _ store.Execer, id string, status models.BillerStatus) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.billers[id]
	if !ok {
		return 0, nil
	}
	b.Status = status
	f.billers[id] = b
	return 1, nil
}

func (f fakeBillers) Delete(_ context.Context, _ store.Execer, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.billers[id]; !ok {
		return 0, nil
	}
	delete(f.billers, id)
	return 1, nil
}

func (f fakeBillers) HasPayments(_ context.Context, _ store.Getter, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.billPayments {
		if p[0] == id {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeBillers) List(_ context.Context, activeOnly bool) ([]store.Biller, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Biller
	for _, b := range f.billers {
		if activeOnly && b.Status != models.BillerActive {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// notification store view

type fakeNotifications struct{ *fakeBank }

func (f fakeNotifications) Create(_ context.Context, _ store.Execer, n store.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNotification != nil {
		return f.failNotification
	}
	f.notifications = append(f.notifications, n)
	return nil
}

func (f fakeNotifications) ListByUser(_ context.Context, userID string, limit int) ([]store.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Notification
	for i := len(f.notifications) - 1; i >= 0; i-- {
		if f.notifications[i].UserID == userID {
			out = append(out, f.notifications[i])
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f fakeNotifications) MarkRead(_ context.Context, userID, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, n := range f.notifications {
		if n.ID == id && n.UserID == userID {
			f.notifications[i].IsRead = true
			return 1, nil
		}
	}
	return 0, nil
}

// user store view

type fakeUsers struct{ *fakeBank }

func (f fakeUsers) Create(_ context.Context, _ store.Execer, input store.UserInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == input.Email || (u.NationalID != "" && u.NationalID == input.NationalID) {
			return &pq.Error{Code: "23505", Constraint: "users_email_key"}
		}
	}
	f.users[input.ID] = store.User{
		ID: input.ID, FullName: input.FullName, Email: input.Email, NationalID: input.NationalID,
		Phone: input.Phone, PasswordHash: input.PasswordHash, Role: input.Role, Status: input.Status,
	}
	return nil
}

func (f fakeUsers) GetByID(_ context.Context, id string) (store.User, error) {
	u, ok := f.user(id)
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (f fakeUsers) GetByEmail(_ context.Context, email string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return store.User{}, sql.ErrNoRows
}

func (f fakeUsers) GetForUpdate(ctx context.Context, _ store.Getter, id string) (store.User, error) {
	return f.GetByID(ctx, id)
}

func (f fakeUsers) UpdateStatus(_ context.Context, _ store.Execer, id string, status models.UserStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[id]
	u.Status = status
	f.users[id] = u
	return nil
}

func (f fakeUsers) ListCustomers(_ context.Context, status models.UserStatus) ([]store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.User
	for _, u := range f.users {
		if u.Role == models.RoleCustomer && (status == "" || u.Status == status) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f fakeUsers) ApprovedCustomerIDs(context.Context) ([]string, error) {
	rows, _ := f.ListCustomers(context.Background(), models.UserApproved)
	ids := make([]string, 0, len(rows))
	for _, u := range rows {
		ids = append(ids, u.ID)
	}
	sort.Strings(ids)
	return ids, nil
}

// audit store view

type fakeAudit struct{ *fakeBank }

func (f fakeAudit) Log(_ context.Context, _ store.Execer, actorID, action, entityType, entityID string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	actor := actorID
	f.audit = append(f.audit, store.AuditEntry{ActorUserID: &actor, Action: action, EntityType: entityType, EntityID: entityID})
	return nil
}

func (f fakeAudit) List(_ context.Context, limit, offset int) ([]store.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if offset >= len(f.audit) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.audit) {
		end = len(f.audit)
	}
	return append([]store.AuditEntry(nil), f.audit[offset:end]...), nil
}

// support store view

type fakeSupport struct{ *fakeBank }

func (f fakeSupport) CreateTicket(_ context.Context, _ store.Execer, ticket store.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tickets[ticket.ID] = ticket
	return nil
}

func (f fakeSupport) GetTicket(_ context.Context, _ store.Getter, id string) (store.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return store.Ticket{}, sql.ErrNoRows
	}
	return t, nil
}

func (f fakeSupport) ListByUser(_ context.Context, userID string) ([]store.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Ticket
	for _, t := range f.tickets {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f fakeSupport) ListAll(context.Context) ([]store.TicketWithOwner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.TicketWithOwner
	for _, t := range f.tickets {
		out = append(out, store.TicketWithOwner{Ticket: t, FullName: f.users[t.UserID].FullName})
	}
	return out, nil
}

func (f fakeSupport) UpdateStatus(_ context.Context, _ store.Execer, id string, status models.TicketStatus) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return 0, nil
	}
	t.Status = status
	f.tickets[id] = t
	return 1, nil
}

func (f fakeSupport) CreateResponse(_ context.Context, _ store.Execer, response store.TicketResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, response)
	return nil
}

func (f fakeSupport) ListResponses(_ context.Context, ticketID string) ([]store.TicketResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.TicketResponse
	for _, r := range f.responses {
		if r.TicketID == ticketID {
			out = append(out, r)
		}
	}
	return out, nil
}

// push and event recorders

type recordingTransport struct {
	mu    sync.Mutex
	msgs  []notify.Message
	err   error
	panic bool
}

func (r *recordingTransport) Push(_ context.Context, msg notify.Message) error {
	if r.panic {
		panic("transport exploded")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recordingTransport) pushed() []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Message(nil), r.msgs...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.TransactionEvent
}

func (r *recordingPublisher) PublishTransaction(_ context.Context, event events.TransactionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) Close() {}

func (r *recordingPublisher) published() []events.TransactionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.TransactionEvent(nil), r.events...)
}

var errBoom = errors.New("boom")

// harness wires every service to one fake bank.
type harness struct {
	bank      *fakeBank
	transport *recordingTransport
	publisher *recordingPublisher
	notifier  *Notifier
	ledger    *LedgerService
	admin     *AdminService
	clock     *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newHarness() *harness {
	bank := newFakeBank()
	clock := &fakeClock{now: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)}
	transport := &recordingTransport{}
	publisher := &recordingPublisher{}
	notifier := NewNotifier(bank, fakeNotifications{bank}, fakeUsers{bank}, transport, publisher, nil)
	notifier.now = clock.Now
	ledger := NewLedgerService(bank, fakeAccounts{bank}, fakeTransactions{bank}, fakeBillers{bank}, notifier, nil, time.UTC, nil, WithClock(clock.Now))
	admin := NewAdminService(bank, fakeUsers{bank}, fakeAccounts{bank}, fakeBillers{bank}, fakeAudit{bank}, nil)
	admin.now = clock.Now
	return &harness{
		bank:      bank,
		transport: transport,
		publisher: publisher,
		notifier:  notifier,
		ledger:    ledger,
		admin:     admin,
		clock:     clock,
	}
}
