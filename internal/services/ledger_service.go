package services

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"backoffice/internal/db"
	"backoffice/internal/events"
	"backoffice/internal/models"
	"backoffice/internal/money"
	"backoffice/internal/notify"
	"backoffice/internal/store"
)

type AccountStore interface {
	GetByUser(ctx context.Context, q store.Getter, userID string) (store.Account, error)
	GetByNumber(ctx context.Context, q store.Getter, accountNumber string) (store.Account, error)
	GetForUpdate(ctx context.Context, tx store.Getter, accountID string) (store.Account, error)
	UpdateBalance(ctx context.Context, tx store.Execer, accountID string, balance int64) error
}

type TransactionStore interface {
	Create(ctx context.Context, tx store.Execer, input store.TransactionInput) error
	CreateInternal(ctx context.Context, tx store.Execer, transactionID, toAccountID string) error
	CreateExternal(ctx context.Context, tx store.Execer, transactionID, targetBank, targetAccountNo string) error
	CreateBillPayment(ctx context.Context, tx store.Execer, transactionID, billerID, consumerNumber string) error
	HasBillPaymentBetween(ctx context.Context, q store.Getter, billerID, consumerNumber, accountID string, from, to time.Time) (bool, error)
}

type BillerLookup interface {
	GetByID(ctx context.Context, q store.Getter, billerID string) (store.Biller, error)
}

// LedgerService moves money. Every command is one transaction that locks the
// accounts it touches with SELECT ... FOR UPDATE in id order, so it expects a
// read committed runner (db.NewLockingTxRunner). Balances are only trusted
// after the lock. Pushes and events go out only after commit.
type LedgerService struct {
	txRunner     db.TxRunner
	accounts     AccountStore
	transactions TransactionStore
	billers      BillerLookup
	notifier     *Notifier
	lookup       store.Getter
	loc          *time.Location
	now          func() time.Time
	logger       *zap.Logger

	randMu sync.Mutex
	rand   *rand.Rand
}

type LedgerOption func(*LedgerService)

// WithClock replaces time.Now for transaction timestamps and billing cycles.
func WithClock(now func() time.Time) LedgerOption {
	return func(s *LedgerService) { s.now = now }
}

// WithRandSource seeds the bill estimate perturbation.
func WithRandSource(src rand.Source) LedgerOption {
	return func(s *LedgerService) { s.rand = rand.New(src) }
}

// NewLedgerService wires the ledger. lookup serves reads made outside a
// transaction, such as bill estimates. loc defines calendar months.
func NewLedgerService(txRunner db.TxRunner, accounts AccountStore, transactions TransactionStore, billers BillerLookup, notifier *Notifier, lookup store.Getter, loc *time.Location, logger *zap.Logger, opts ...LedgerOption) *LedgerService {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &LedgerService{
		txRunner:     txRunner,
		accounts:     accounts,
		transactions: transactions,
		billers:      billers,
		notifier:     notifier,
		lookup:       lookup,
		loc:          loc,
		now:          time.Now,
		logger:       logger.Named("ledger"),
		rand:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type InternalTransferRequest struct {
	UserID          string
	ToAccountNumber string
	Amount          int64
	Description     string
}

type ExternalTransferRequest struct {
	UserID          string
	TargetBank      string
	TargetAccountNo string
	Amount          int64
	Description     string
}

type TransferResult struct {
	TransactionID string
	Status        models.TransactionStatus
	Amount        int64
	FromAccount   string
	ToAccount     string
	BalanceAfter  int64
	CreatedAt     time.Time
}

func (s *LedgerService) TransferInternal(ctx context.Context, req InternalTransferRequest) (TransferResult, error) {
	var (
		result  TransferResult
		failure *RecipientUnavailableError
		pending []notify.Message
		event   events.TransactionEvent
	)
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, failure, pending = TransferResult{}, nil, nil

		source, err := s.activeAccount(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		if req.Amount <= 0 {
			return ErrInvalidAmount
		}

		destination, err := s.accounts.GetByNumber(ctx, tx, strings.TrimSpace(req.ToAccountNumber))
		destinationFound := err == nil
		if err != nil && !store.IsNotFound(err) {
			return fmt.Errorf("load recipient: %w", err)
		}

		if destinationFound && destination.ID != source.ID {
			source, destination, err = lockTwoAccounts(ctx, tx, s.accounts, source.ID, destination.ID)
		} else {
			source, err = s.accounts.GetForUpdate(ctx, tx, source.ID)
		}
		if err != nil {
			return fmt.Errorf("lock accounts: %w", err)
		}
		if source.Status != models.AccountActive {
			return ErrNoActiveAccount
		}
		if source.Balance < req.Amount {
			return ErrInsufficientFunds
		}
		if !destinationFound {
			return ErrRecipientNotFound
		}
		if destination.ID == source.ID {
			return ErrSameAccount
		}

		at := s.now()
		result = TransferResult{
			TransactionID: uuid.NewString(),
			Amount:        req.Amount,
			FromAccount:   source.AccountNumber,
			ToAccount:     destination.AccountNumber,
			BalanceAfter:  source.Balance,
			CreatedAt:     at,
		}

		if destination.Status != models.AccountActive {
			description := req.Description
			if description == "" {
				description = fmt.Sprintf("Transfer failed: recipient account is %s", destination.Status)
			}
			result.Status = models.TxFailed
			if err := s.writeTransaction(ctx, tx, result, source.ID, models.TxInternalTransfer, description); err != nil {
				return err
			}
			if err := s.transactions.CreateInternal(ctx, tx, result.TransactionID, destination.ID); err != nil {
				return fmt.Errorf("record internal transfer: %w", err)
			}
			failure = &RecipientUnavailableError{TransactionID: result.TransactionID, Status: destination.Status}
			event = transactionEvent(result, models.TxInternalTransfer, source.ID)
			event.ToAccountID = destination.ID
			return nil
		}

		result.Status = models.TxCompleted
		result.BalanceAfter = source.Balance - req.Amount
		if err := s.writeTransaction(ctx, tx, result, source.ID, models.TxInternalTransfer, req.Description); err != nil {
			return err
		}
		if err := s.transactions.CreateInternal(ctx, tx, result.TransactionID, destination.ID); err != nil {
			return fmt.Errorf("record internal transfer: %w", err)
		}
		if err := s.accounts.UpdateBalance(ctx, tx, source.ID, source.Balance-req.Amount); err != nil {
			return fmt.Errorf("debit source: %w", err)
		}
		if err := s.accounts.UpdateBalance(ctx, tx, destination.ID, destination.Balance+req.Amount); err != nil {
			return fmt.Errorf("credit destination: %w", err)
		}
		message := fmt.Sprintf("You received $%s from %s", money.FormatMinor(req.Amount), source.AccountNumber)
		msg, err := s.notifier.Record(ctx, tx, destination.UserID, models.NotificationTransfer, message, at)
		if err != nil {
			return err
		}
		pending = append(pending, msg)
		event = transactionEvent(result, models.TxInternalTransfer, source.ID)
		event.ToAccountID = destination.ID
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}
	s.notifier.Dispatch(pending, event)
	if failure != nil {
		s.logger.Info("internal transfer recorded as failed",
			zap.String("transaction_id", result.TransactionID),
			zap.String("recipient_status", string(failure.Status)),
		)
		return result, failure
	}
	return result, nil
}

func (s *LedgerService) TransferExternal(ctx context.Context, req ExternalTransferRequest) (TransferResult, error) {
	bank := strings.TrimSpace(req.TargetBank)
	accountNo := strings.TrimSpace(req.TargetAccountNo)
	var (
		result TransferResult
		event  events.TransactionEvent
	)
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		result = TransferResult{}

		source, err := s.activeAccount(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		if req.Amount <= 0 {
			return ErrInvalidAmount
		}
		if bank == "" || accountNo == "" {
			return ErrMissingField
		}
		source, err = s.accounts.GetForUpdate(ctx, tx, source.ID)
		if err != nil {
			return fmt.Errorf("lock account: %w", err)
		}
		if source.Status != models.AccountActive {
			return ErrNoActiveAccount
		}
		if source.Balance < req.Amount {
			return ErrInsufficientFunds
		}

		result = TransferResult{
			TransactionID: uuid.NewString(),
			Status:        models.TxCompleted,
			Amount:        req.Amount,
			FromAccount:   source.AccountNumber,
			ToAccount:     accountNo,
			BalanceAfter:  source.Balance - req.Amount,
			CreatedAt:     s.now(),
		}
		if err := s.writeTransaction(ctx, tx, result, source.ID, models.TxExternalTransfer, req.Description); err != nil {
			return err
		}
		if err := s.transactions.CreateExternal(ctx, tx, result.TransactionID, bank, accountNo); err != nil {
			return fmt.Errorf("record external transfer: %w", err)
		}
		if err := s.accounts.UpdateBalance(ctx, tx, source.ID, result.BalanceAfter); err != nil {
			return fmt.Errorf("debit source: %w", err)
		}
		event = transactionEvent(result, models.TxExternalTransfer, source.ID)
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}
	s.notifier.Dispatch(nil, event)
	return result, nil
}

type BillPaymentRequest struct {
	UserID         string
	BillerID       string
	ConsumerNumber string
	Amount         int64
}

type BillPaymentResult struct {
	TransactionID  string
	BillerName     string
	ConsumerNumber string
	Amount         int64
	BillingMonth   string
	BalanceAfter   int64
	CreatedAt      time.Time
}

func (s *LedgerService) PayBill(ctx context.Context, req BillPaymentRequest) (BillPaymentResult, error) {
	consumer := strings.TrimSpace(req.ConsumerNumber)
	var (
		result  BillPaymentResult
		pending []notify.Message
		event   events.TransactionEvent
	)
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, pending = BillPaymentResult{}, nil

		source, err := s.activeAccount(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		if req.Amount <= 0 {
			return ErrInvalidAmount
		}
		if consumer == "" {
			return ErrMissingField
		}
		// The row lock serialises payments from this account, which makes
		// the billing cycle check and the insert below atomic.
		source, err = s.accounts.GetForUpdate(ctx, tx, source.ID)
		if err != nil {
			return fmt.Errorf("lock account: %w", err)
		}
		if source.Status != models.AccountActive {
			return ErrNoActiveAccount
		}
		if source.Balance < req.Amount {
			return ErrInsufficientFunds
		}

		biller, err := s.billers.GetByID(ctx, tx, req.BillerID)
		if err != nil {
			if store.IsNotFound(err) {
				return ErrBillerNotFound
			}
			return fmt.Errorf("load biller: %w", err)
		}
		if biller.Status != models.BillerActive {
			return ErrBillerInactive
		}

		at := s.now()
		start, end := billingCycle(at, s.loc)
		paid, err := s.transactions.HasBillPaymentBetween(ctx, tx, biller.ID, consumer, source.ID, start, end)
		if err != nil {
			return fmt.Errorf("check billing cycle: %w", err)
		}
		if paid {
			return &AlreadyPaidError{Month: MonthLabel(at, s.loc)}
		}

		result = BillPaymentResult{
			TransactionID:  uuid.NewString(),
			BillerName:     biller.Name,
			ConsumerNumber: consumer,
			Amount:         req.Amount,
			BillingMonth:   MonthLabel(at, s.loc),
			BalanceAfter:   source.Balance - req.Amount,
			CreatedAt:      at,
		}
		if err := s.transactions.Create(ctx, tx, store.TransactionInput{
			ID:            result.TransactionID,
			FromAccountID: source.ID,
			Type:          models.TxBillPayment,
			Status:        models.TxCompleted,
			Amount:        req.Amount,
			Description:   "Bill payment to " + biller.Name,
			CreatedAt:     at,
		}); err != nil {
			return fmt.Errorf("record transaction: %w", err)
		}
		if err := s.transactions.CreateBillPayment(ctx, tx, result.TransactionID, biller.ID, consumer); err != nil {
			if db.IsForeignKeyViolation(err) {
				// Deleted since it was loaded.
				return ErrBillerNotFound
			}
			return fmt.Errorf("record bill payment: %w", err)
		}
		if err := s.accounts.UpdateBalance(ctx, tx, source.ID, result.BalanceAfter); err != nil {
			return fmt.Errorf("debit source: %w", err)
		}
		message := fmt.Sprintf("Bill payment of $%s to %s for %s completed", money.FormatMinor(req.Amount), biller.Name, result.BillingMonth)
		msg, err := s.notifier.Record(ctx, tx, source.UserID, models.NotificationBill, message, at)
		if err != nil {
			return err
		}
		pending = append(pending, msg)
		event = events.TransactionEvent{
			TransactionID: result.TransactionID,
			Type:          models.TxBillPayment,
			Status:        models.TxCompleted,
			FromAccountID: source.ID,
			BillerID:      biller.ID,
			Amount:        req.Amount,
			OccurredAt:    at,
		}
		return nil
	})
	if err != nil {
		return BillPaymentResult{}, err
	}
	s.notifier.Dispatch(pending, event)
	return result, nil
}

type BillEstimate struct {
	BillerID       string
	BillerName     string
	ConsumerNumber string
	Amount         int64
}

// BillAmountEstimate suggests an amount for a consumer number. It is derived
// from the number with a small random perturbation and has no authority.
func (s *LedgerService) BillAmountEstimate(ctx context.Context, billerID, consumerNumber string) (BillEstimate, error) {
	consumer := strings.TrimSpace(consumerNumber)
	if consumer == "" {
		return BillEstimate{}, ErrMissingField
	}
	biller, err := s.billers.GetByID(ctx, s.lookup, billerID)
	if err != nil {
		if store.IsNotFound(err) {
			return BillEstimate{}, ErrBillerNotFound
		}
		return BillEstimate{}, fmt.Errorf("load biller: %w", err)
	}
	if biller.Status != models.BillerActive {
		return BillEstimate{}, ErrBillerInactive
	}

	var sum int64
	for i := 0; i < len(consumer); i++ {
		sum += int64(consumer[i])
	}
	s.randMu.Lock()
	jitter := s.rand.Int63n(500)
	s.randMu.Unlock()

	return BillEstimate{
		BillerID:       biller.ID,
		BillerName:     biller.Name,
		ConsumerNumber: consumer,
		Amount:         money.FromUnits(sum%5000 + 1000 + jitter),
	}, nil
}

// activeAccount resolves the acting user's account. A missing or non-active
// account is reported the same way.
func (s *LedgerService) activeAccount(ctx context.Context, q store.Getter, userID string) (store.Account, error) {
	account, err := s.accounts.GetByUser(ctx, q, userID)
	if err != nil {
		if store.IsNotFound(err) {
			return store.Account{}, ErrNoActiveAccount
		}
		return store.Account{}, fmt.Errorf("load account: %w", err)
	}
	if account.Status != models.AccountActive {
		return store.Account{}, ErrNoActiveAccount
	}
	return account, nil
}

func (s *LedgerService) writeTransaction(ctx context.Context, tx store.Execer, result TransferResult, fromAccountID string, kind models.TransactionType, description string) error {
	err := s.transactions.Create(ctx, tx, store.TransactionInput{
		ID:            result.TransactionID,
		FromAccountID: fromAccountID,
		Type:          kind,
		Status:        result.Status,
		Amount:        result.Amount,
		Description:   description,
		CreatedAt:     result.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("record transaction: %w", err)
	}
	return nil
}

func transactionEvent(result TransferResult, kind models.TransactionType, fromAccountID string) events.TransactionEvent {
	return events.TransactionEvent{
		TransactionID: result.TransactionID,
		Type:          kind,
		Status:        result.Status,
		FromAccountID: fromAccountID,
		Amount:        result.Amount,
		OccurredAt:    result.CreatedAt,
	}
}

// billingCycle returns the calendar month containing at, as [start, end).
func billingCycle(at time.Time, loc *time.Location) (time.Time, time.Time) {
	local := at.In(loc)
	start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

// MonthLabel renders the billing month, e.g. "January 2026".
func MonthLabel(at time.Time, loc *time.Location) string {
	return at.In(loc).Format("January 2006")
}

// lockTwoAccounts takes row locks in ascending id order so that two
// transfers between the same pair of accounts cannot deadlock.
func lockTwoAccounts(ctx context.Context, tx store.Getter, accounts AccountStore, firstID, secondID string) (store.Account, store.Account, error) {
	leftID, rightID := orderedIDs(firstID, secondID)
	left, err := accounts.GetForUpdate(ctx, tx, leftID)
	if err != nil {
		return store.Account{}, store.Account{}, err
	}
	right, err := accounts.GetForUpdate(ctx, tx, rightID)
	if err != nil {
		return store.Account{}, store.Account{}, err
	}
	if firstID == leftID {
		return left, right, nil
	}
	return right, left, nil
}

func orderedIDs(firstID, secondID string) (string, string) {
	if firstID <= secondID {
		return firstID, secondID
	}
	return secondID, firstID
}
