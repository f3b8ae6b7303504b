package auth

import (
	"context"
	"time"

	"github.com/pictor-board/pictor/internal/shared"
)

// Accounts looks up credential records. Implemented by the users repository.
type Accounts interface {
	FindAccountByName(ctx context.Context, name string) (*Account, error)
}

// Service wraps authentication business rules.
type Service struct {
	accounts Accounts
	tokens   *TokenStore
	ttl      time.Duration
}

// NewService constructs a new Service.
func NewService(accounts Accounts, tokens *TokenStore, ttl time.Duration) *Service {
	return &Service{accounts: accounts, tokens: tokens, ttl: ttl}
}

// Authenticate validates name/password credentials.
func (s *Service) Authenticate(ctx context.Context, name, password string) (*Account, error) {
	account, err := s.accounts.FindAccountByName(ctx, name)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !VerifyPassword(account.PasswordHash, password) {
		return nil, shared.ErrInvalidCredentials
	}
	return account, nil
}

// Login authenticates and issues a bearer token for subsequent requests.
func (s *Service) Login(ctx context.Context, name, password string) (string, *Account, error) {
	account, err := s.Authenticate(ctx, name, password)
	if err != nil {
		return "", nil, err
	}
	token, err := s.tokens.Issue(ctx, account.Context(), s.ttl)
	if err != nil {
		return "", nil, err
	}
	return token, account, nil
}

// Logout revokes a bearer token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}

// Identify resolves a bearer token to a caller identity. An empty or unknown
// token yields the anonymous context rather than an error: authentication
// requirements are enforced per job, not per connection.
func (s *Service) Identify(ctx context.Context, token string) *Context {
	if token == "" {
		return AnonymousContext()
	}
	ac, err := s.tokens.Lookup(ctx, token)
	if err != nil || ac == nil {
		return AnonymousContext()
	}
	return ac
}
