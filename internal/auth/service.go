// Package auth implements account registration, credential checks and the
// bearer-token middleware that puts an owner identity on request contexts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"outgo/internal/core"
)

const minPasswordLength = 8

// UserStore is the slice of the repository the auth service needs.
type UserStore interface {
	CreateUser(ctx context.Context, email string, passwordHash []byte) (core.User, error)
	UserByEmail(ctx context.Context, email string) (core.User, error)
	UserByID(ctx context.Context, id string) (core.User, error)
	UpdateUserPassword(ctx context.Context, userID string, passwordHash []byte) error
}

type Service struct {
	store  UserStore
	tokens *TokenIssuer
}

func NewService(store UserStore, tokens *TokenIssuer) *Service {
	return &Service{store: store, tokens: tokens}
}

// Register creates an account and returns it. The email is lowercased and
// must be well formed; passwords carry a minimum length only.
func (s *Service) Register(ctx context.Context, email, password string) (core.User, error) {
	var errs core.FieldErrors

	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		errs = errs.Add("email", "email must be a valid address")
	}
	if len(password) < minPasswordLength {
		errs = errs.Add("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if err := errs.OrNil(); err != nil {
		return core.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.store.CreateUser(ctx, email, hash)
	if errors.Is(err, core.ErrEmailTaken) {
		return core.User{}, core.FieldErrors{}.Add("email", "email already registered")
	}
	if err != nil {
		return core.User{}, core.NewStorageError("create user", err)
	}

	slog.InfoContext(ctx, "Account registered", "user_id", u.ID)
	return u, nil
}

// Login verifies credentials and issues a signed token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		return "", core.ErrInvalidCredentials
	}
	if err != nil {
		return "", core.NewStorageError("load user", err)
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return "", core.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	slog.InfoContext(ctx, "Login succeeded", "user_id", u.ID)
	return token, nil
}

// ChangePassword verifies the current password before storing a new hash.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	u, err := s.store.UserByID(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return core.ErrInvalidCredentials
	}
	if err != nil {
		return core.NewStorageError("load user", err)
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(current)); err != nil {
		return core.ErrInvalidCredentials
	}
	if len(next) < minPasswordLength {
		return core.FieldErrors{}.Add("new_password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdateUserPassword(ctx, userID, hash); err != nil {
		return core.NewStorageError("update password", err)
	}

	slog.InfoContext(ctx, "Password changed", "user_id", userID)
	return nil
}
