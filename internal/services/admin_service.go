package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"backoffice/internal/db"
	"backoffice/internal/lifecycle"
	"backoffice/internal/models"
	"backoffice/internal/store"
)

type AdminUserStore interface {
	GetForUpdate(ctx context.Context, tx store.Getter, userID string) (store.User, error)
	UpdateStatus(ctx context.Context, tx store.Execer, userID string, status models.UserStatus) error
	ListCustomers(ctx context.Context, status models.UserStatus) ([]store.User, error)
}

type AdminAccountStore interface {
	GetByUser(ctx context.Context, q store.Getter, userID string) (store.Account, error)
	GetForUpdate(ctx context.Context, tx store.Getter, accountID string) (store.Account, error)
	UpdateStatus(ctx context.Context, tx store.Execer, accountID string, status models.AccountStatus) error
	NextSequence(ctx context.Context, tx store.Tx) (int64, error)
	Create(ctx context.Context, tx store.Execer, id, userID, accountNumber string) (bool, error)
	ListWithOwners(ctx context.Context) ([]store.AccountWithOwner, error)
}

type BillerStore interface {
	Create(ctx context.Context, tx store.Execer, id, name string, category models.BillerCategory) error
	GetByID(ctx context.Context, q store.Getter, billerID string) (store.Biller, error)
	UpdateStatus(ctx context.Context, tx store.Execer, billerID string, status models.BillerStatus) (int64, error)
	Delete(ctx context.Context, tx store.Execer, billerID string) (int64, error)
	HasPayments(ctx context.Context, q store.Getter, billerID string) (bool, error)
	List(ctx context.Context, activeOnly bool) ([]store.Biller, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID string, data any) error
	List(ctx context.Context, limit, offset int) ([]store.AuditEntry, error)
}

type AdminService struct {
	txRunner db.TxRunner
	users    AdminUserStore
	accounts AdminAccountStore
	billers  BillerStore
	audit    AuditStore
	now      func() time.Time
	logger   *zap.Logger
}

func NewAdminService(txRunner db.TxRunner, users AdminUserStore, accounts AdminAccountStore, billers BillerStore, audit AuditStore, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{
		txRunner: txRunner,
		users:    users,
		accounts: accounts,
		billers:  billers,
		audit:    audit,
		now:      time.Now,
		logger:   logger.Named("admin"),
	}
}

// StatusResult describes the outcome of a status request.
type StatusResult struct {
	Changed bool
	Message string
	// AccountNumber is set when approving a user provisioned an account.
	AccountNumber string
}

// FormatAccountNumber renders the customer facing account number.
func FormatAccountNumber(year int, sequence int64) string {
	return fmt.Sprintf("ACC-%d-%04d", year, sequence)
}

// SetUserStatus moves a customer through its lifecycle. Approving a customer
// opens their account; the user row lock and the unique user_id on accounts
// keep concurrent approvals from opening two. Like the ledger, the service
// expects a read committed runner so that account number allocation sees
// numbers committed while it waited on the sequence lock.
func (s *AdminService) SetUserStatus(ctx context.Context, actorID, userID, status string) (StatusResult, error) {
	requested := models.UserStatus(strings.TrimSpace(status))
	if !requested.Valid() {
		return StatusResult{}, ErrInvalidStatus
	}
	var result StatusResult
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		result = StatusResult{}

		user, err := s.users.GetForUpdate(ctx, tx, userID)
		if err != nil {
			if store.IsNotFound(err) {
				return ErrUserNotFound
			}
			return fmt.Errorf("load user: %w", err)
		}
		if user.Role != models.RoleCustomer {
			return ErrUserNotFound
		}
		outcome, err := lifecycle.CheckUser(user.Status, requested)
		if err != nil {
			return err
		}
		if outcome == lifecycle.Unchanged {
			result.Message = fmt.Sprintf("User already %s", requested)
			return nil
		}
		if err := s.users.UpdateStatus(ctx, tx, user.ID, requested); err != nil {
			return fmt.Errorf("update user status: %w", err)
		}
		if requested == models.UserApproved {
			number, err := s.provisionAccount(ctx, tx, user.ID)
			if err != nil {
				return err
			}
			result.AccountNumber = number
		}
		if err := s.audit.Log(ctx, tx, actorID, "user.status", "user", user.ID, map[string]string{
			"from": string(user.Status),
			"to":   string(requested),
		}); err != nil {
			return fmt.Errorf("audit: %w", err)
		}
		result.Changed = true
		result.Message = fmt.Sprintf("User status updated to %s", requested)
		return nil
	})
	if err != nil {
		return StatusResult{}, err
	}
	if result.Changed {
		s.logger.Info("user status changed",
			zap.String("actor_id", actorID),
			zap.String("user_id", userID),
			zap.String("status", string(requested)),
		)
	}
	return result, nil
}

// provisionAccount opens the user's account unless one already exists and
// returns its number.
func (s *AdminService) provisionAccount(ctx context.Context, tx *sqlx.Tx, userID string) (string, error) {
	existing, err := s.accounts.GetByUser(ctx, tx, userID)
	if err == nil {
		return existing.AccountNumber, nil
	}
	if !store.IsNotFound(err) {
		return "", fmt.Errorf("load account: %w", err)
	}
	sequence, err := s.accounts.NextSequence(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("allocate account number: %w", err)
	}
	number := FormatAccountNumber(s.now().Year(), sequence)
	created, err := s.accounts.Create(ctx, tx, uuid.NewString(), userID, number)
	if err != nil {
		if db.IsUniqueViolation(err, "accounts_account_number_key") {
			// A concurrent approval took this number; start over.
			return "", db.Retryable(err)
		}
		return "", fmt.Errorf("create account: %w", err)
	}
	if created {
		return number, nil
	}
	existing, err = s.accounts.GetByUser(ctx, tx, userID)
	if err != nil {
		return "", fmt.Errorf("load account: %w", err)
	}
	return existing.AccountNumber, nil
}

func (s *AdminService) SetAccountStatus(ctx context.Context, actorID, accountID, status string) (StatusResult, error) {
	requested := models.AccountStatus(strings.TrimSpace(status))
	if !requested.Valid() {
		return StatusResult{}, ErrInvalidStatus
	}
	var result StatusResult
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		result = StatusResult{}

		account, err := s.accounts.GetForUpdate(ctx, tx, accountID)
		if err != nil {
			if store.IsNotFound(err) {
				return ErrAccountNotFound
			}
			return fmt.Errorf("load account: %w", err)
		}
		outcome, err := lifecycle.CheckAccount(account.Status, requested)
		if err != nil {
			return err
		}
		if outcome == lifecycle.Unchanged {
			result.Message = fmt.Sprintf("Account already %s", requested)
			return nil
		}
		if err := s.accounts.UpdateStatus(ctx, tx, account.ID, requested); err != nil {
			return fmt.Errorf("update account status: %w", err)
		}
		if err := s.audit.Log(ctx, tx, actorID, "account.status", "account", account.ID, map[string]string{
			"from": string(account.Status),
			"to":   string(requested),
		}); err != nil {
			return fmt.Errorf("audit: %w", err)
		}
		result.Changed = true
		result.Message = fmt.Sprintf("Account status updated to %s", requested)
		return nil
	})
	if err != nil {
		return StatusResult{}, err
	}
	return result, nil
}

func (s *AdminService) AddBiller(ctx context.Context, actorID, name, category string) (store.Biller, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Biller{}, ErrMissingField
	}
	cat := models.BillerCategory(strings.ToLower(strings.TrimSpace(category)))
	if !cat.Valid() {
		return store.Biller{}, ErrInvalidCategory
	}
	biller := store.Biller{
		ID:        uuid.NewString(),
		Name:      name,
		Category:  cat,
		Status:    models.BillerActive,
		CreatedAt: s.now(),
	}
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.billers.Create(ctx, tx, biller.ID, biller.Name, biller.Category); err != nil {
			if db.IsUniqueViolation(err, "") {
				return ErrBillerExists
			}
			return fmt.Errorf("create biller: %w", err)
		}
		if err := s.audit.Log(ctx, tx, actorID, "biller.create", "biller", biller.ID, map[string]string{
			"name":     biller.Name,
			"category": string(biller.Category),
		}); err != nil {
			return fmt.Errorf("audit: %w", err)
		}
		return nil
	})
	if err != nil {
		return store.Biller{}, err
	}
	return biller, nil
}

func (s *AdminService) SetBillerStatus(ctx context.Context, actorID, billerID, status string) error {
	requested := models.BillerStatus(strings.TrimSpace(status))
	if !requested.Valid() {
		return ErrInvalidStatus
	}
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		updated, err := s.billers.UpdateStatus(ctx, tx, billerID, requested)
		if err != nil {
			return fmt.Errorf("update biller status: %w", err)
		}
		if updated == 0 {
			return ErrBillerNotFound
		}
		if err := s.audit.Log(ctx, tx, actorID, "biller.status", "biller", billerID, map[string]string{
			"to": string(requested),
		}); err != nil {
			return fmt.Errorf("audit: %w", err)
		}
		return nil
	})
}

// DeleteBiller removes a biller that has never been paid. Billers with
// history can only be deactivated.
func (s *AdminService) DeleteBiller(ctx context.Context, actorID, billerID string) error {
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		biller, err := s.billers.GetByID(ctx, tx, billerID)
		if err != nil {
			if store.IsNotFound(err) {
				return ErrBillerNotFound
			}
			return fmt.Errorf("load biller: %w", err)
		}
		paid, err := s.billers.HasPayments(ctx, tx, biller.ID)
		if err != nil {
			return fmt.Errorf("check biller payments: %w", err)
		}
		if paid {
			return ErrBillerHasPayments
		}
		deleted, err := s.billers.Delete(ctx, tx, biller.ID)
		if err != nil {
			if db.IsForeignKeyViolation(err) {
				return ErrBillerHasPayments
			}
			return fmt.Errorf("delete biller: %w", err)
		}
		if deleted == 0 {
			return ErrBillerNotFound
		}
		if err := s.audit.Log(ctx, tx, actorID, "biller.delete", "biller", biller.ID, map[string]string{
			"name": biller.Name,
		}); err != nil {
			return fmt.Errorf("audit: %w", err)
		}
		return nil
	})
}

func (s *AdminService) ListBillers(ctx context.Context, activeOnly bool) ([]store.Biller, error) {
	rows, err := s.billers.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list billers: %w", err)
	}
	if rows == nil {
		rows = []store.Biller{}
	}
	return rows, nil
}

// ListUsers returns customers with the given status, or all when empty.
func (s *AdminService) ListUsers(ctx context.Context, status string) ([]store.User, error) {
	filter := models.UserStatus(strings.TrimSpace(status))
	if filter != "" && !filter.Valid() {
		return nil, ErrInvalidStatus
	}
	rows, err := s.users.ListCustomers(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if rows == nil {
		rows = []store.User{}
	}
	return rows, nil
}

func (s *AdminService) ListAccounts(ctx context.Context) ([]store.AccountWithOwner, error) {
	rows, err := s.accounts.ListWithOwners(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	if rows == nil {
		rows = []store.AccountWithOwner{}
	}
	return rows, nil
}

func (s *AdminService) AuditLog(ctx context.Context, limit, offset int) ([]store.AuditEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.audit.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list audit log: %w", err)
	}
	if rows == nil {
		rows = []store.AuditEntry{}
	}
	return rows, nil
}
