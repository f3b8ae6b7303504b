package auth

import "github.com/pictor-board/pictor/internal/access"

// Account is the credential view of a user account, as needed to
// authenticate a caller and derive its request context.
type Account struct {
	ID             int64
	Name           string
	PasswordHash   string
	Rank           access.Rank
	EmailConfirmed bool
}

// Context derives the request identity for an authenticated account.
func (a *Account) Context() *Context {
	return &Context{
		UserID:         a.ID,
		UserName:       a.Name,
		Rank:           a.Rank,
		Authenticated:  true,
		EmailConfirmed: a.EmailConfirmed,
	}
}
