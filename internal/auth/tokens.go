package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pictor-board/pictor/internal/access"
)

const tokenKeyPrefix = "pictor:token:"

// TokenStore keeps issued bearer tokens in Redis with a TTL.
type TokenStore struct {
	client *redis.Client
}

// NewTokenStore constructs a TokenStore.
func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client}
}

type tokenPayload struct {
	UserID         int64  `json:"user_id"`
	UserName       string `json:"user_name"`
	Rank           int    `json:"rank"`
	EmailConfirmed bool   `json:"email_confirmed"`
}

// Issue stores a fresh token for the given identity.
func (s *TokenStore) Issue(ctx context.Context, ac *Context, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	payload, err := json.Marshal(tokenPayload{
		UserID:         ac.UserID,
		UserName:       ac.UserName,
		Rank:           int(ac.Rank),
		EmailConfirmed: ac.EmailConfirmed,
	})
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, tokenKeyPrefix+token, payload, ttl).Err(); err != nil {
		return "", fmt.Errorf("auth: store token: %w", err)
	}
	return token, nil
}

// Lookup resolves a token. Unknown tokens yield (nil, nil).
func (s *TokenStore) Lookup(ctx context.Context, token string) (*Context, error) {
	raw, err := s.client.Get(ctx, tokenKeyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("auth: load token: %w", err)
	}
	var payload tokenPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("auth: decode token: %w", err)
	}
	return &Context{
		UserID:         payload.UserID,
		UserName:       payload.UserName,
		Rank:           access.Rank(payload.Rank),
		Authenticated:  true,
		EmailConfirmed: payload.EmailConfirmed,
	}, nil
}

// Revoke deletes a token.
func (s *TokenStore) Revoke(ctx context.Context, token string) error {
	return s.client.Del(ctx, tokenKeyPrefix+token).Err()
}
