package auth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/fibra-studio/fibra-core/internal/platform/httpx"
	"github.com/fibra-studio/fibra-core/internal/users"
)

// ErrInvalidCredentials is returned for any unverifiable login attempt. The
// message never distinguishes a missing account from a wrong password.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// Accounts looks up login candidates.
type Accounts interface {
	FindByEmail(ctx context.Context, email string) (*users.User, error)
}

// Service verifies credentials.
type Service struct {
	accounts Accounts
}

// NewService constructs a Service.
func NewService(accounts Accounts) *Service {
	return &Service{accounts: accounts}
}

// Login verifies email and password and returns the matching account.
func (s *Service) Login(ctx context.Context, email, password string) (*users.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !account.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return account, nil
}
