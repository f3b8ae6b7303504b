package auth

import (
	"context"

	"github.com/pictor-board/pictor/internal/access"
)

// Context describes the caller of a single request. It is built fresh per
// request and never outlives it.
type Context struct {
	UserID         int64
	UserName       string
	Rank           access.Rank
	Authenticated  bool
	EmailConfirmed bool
}

// AnonymousContext is the caller identity for unauthenticated requests.
func AnonymousContext() *Context {
	return &Context{Rank: access.Anonymous}
}

// ActorName renders the caller for audit entries.
func (c *Context) ActorName() string {
	if c == nil || !c.Authenticated {
		return "anonymous"
	}
	return c.UserName
}

type authContextKey struct{}

// WithContext stores the caller identity in ctx.
func WithContext(ctx context.Context, ac *Context) context.Context {
	return context.WithValue(ctx, authContextKey{}, ac)
}

// FromContext extracts the caller identity, defaulting to anonymous.
func FromContext(ctx context.Context) *Context {
	if ac, ok := ctx.Value(authContextKey{}).(*Context); ok && ac != nil {
		return ac
	}
	return AnonymousContext()
}
