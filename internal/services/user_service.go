package services

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"backoffice/internal/auth"
	"backoffice/internal/db"
	"backoffice/internal/models"
	"backoffice/internal/store"
)

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, input store.UserInput) error
	GetByID(ctx context.Context, userID string) (store.User, error)
	GetByEmail(ctx context.Context, email string) (store.User, error)
}

// UserService registers users and issues tokens.
type UserService struct {
	txRunner db.TxRunner
	users    UserStore
	secret   string
	ttl      time.Duration
	adminKey string
}

func NewUserService(txRunner db.TxRunner, users UserStore, secret string, ttl time.Duration, adminKey string) *UserService {
	return &UserService{
		txRunner: txRunner,
		users:    users,
		secret:   secret,
		ttl:      ttl,
		adminKey: adminKey,
	}
}

type RegisterInput struct {
	FullName   string
	Email      string
	NationalID string
	Phone      string
	Password   string
}

// Register creates a customer awaiting approval.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (store.User, error) {
	return s.create(ctx, input, models.RoleCustomer, models.UserPending)
}

// RegisterAdmin creates an approved admin when key matches the configured
// registration key. An unset key disables admin registration.
func (s *UserService) RegisterAdmin(ctx context.Context, key string, input RegisterInput) (store.User, error) {
	if s.adminKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.adminKey)) != 1 {
		return store.User{}, ErrInvalidAdminKey
	}
	return s.create(ctx, input, models.RoleAdmin, models.UserApproved)
}

func (s *UserService) create(ctx context.Context, input RegisterInput, role models.Role, status models.UserStatus) (store.User, error) {
	fullName := strings.TrimSpace(input.FullName)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	nationalID := strings.TrimSpace(input.NationalID)
	if fullName == "" || email == "" || nationalID == "" || input.Password == "" {
		return store.User{}, ErrMissingField
	}
	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return store.User{}, fmt.Errorf("hash password: %w", err)
	}
	row := store.UserInput{
		ID:           uuid.NewString(),
		FullName:     fullName,
		Email:        email,
		NationalID:   nationalID,
		Phone:        strings.TrimSpace(input.Phone),
		PasswordHash: hash,
		Role:         role,
		Status:       status,
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.users.Create(ctx, tx, row)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return store.User{}, ErrEmailTaken
		}
		return store.User{}, fmt.Errorf("create user: %w", err)
	}
	return store.User{
		ID:         row.ID,
		FullName:   row.FullName,
		Email:      row.Email,
		NationalID: row.NationalID,
		Phone:      row.Phone,
		Role:       row.Role,
		Status:     row.Status,
	}, nil
}

type LoginResult struct {
	Token string
	User  store.User
}

// Login checks credentials. Rejected and deleted users are refused even with
// the right password.
func (s *UserService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if store.IsNotFound(err) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("load user: %w", err)
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if !user.Status.CanAuthenticate() {
		return LoginResult{}, ErrUserBlocked
	}
	token, err := auth.GenerateToken(s.secret, user.ID, string(user.Role), s.ttl)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}
	return LoginResult{Token: token, User: user}, nil
}

func (s *UserService) Me(ctx context.Context, userID string) (store.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if store.IsNotFound(err) {
			return store.User{}, ErrUserNotFound
		}
		return store.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// Active returns the user if they may still act, so that a token issued
// before a rejection or deletion stops working.
func (s *UserService) Active(ctx context.Context, userID string) (store.User, error) {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return store.User{}, err
	}
	if !user.Status.CanAuthenticate() {
		return store.User{}, ErrUserBlocked
	}
	return user, nil
}
