// Package session keeps the backend tokens of signed-in console users on
// the server. The browser only ever sees the session id.
package session

import (
	"context"
	"errors"
	"time"

	"catalog-admin/internal/domain"

	"github.com/google/uuid"
)

// DefaultTTL is how long a session lives without signing out
const DefaultTTL = 24 * time.Hour

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNoAccessToken   = errors.New("session has no access token")
)

// Store defines session persistence
type Store interface {
	Create(ctx context.Context, tokens domain.Tokens, email string) (*domain.Session, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	UpdateAccessToken(ctx context.Context, id uuid.UUID, token string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Sweeper is implemented by stores that do not expire sessions on their own
type Sweeper interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// newSession builds a session for tokens. Expiry is capped by the refresh
// token's own exp claim when the token carries one.
func newSession(tokens domain.Tokens, email string, ttl time.Duration, now time.Time) (*domain.Session, error) {
	if tokens.AccessToken == "" {
		return nil, ErrNoAccessToken
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	expires := now.Add(ttl)
	if exp, ok := TokenExpiry(tokens.RefreshToken); ok && exp.After(now) && exp.Before(expires) {
		expires = exp
	}
	if email == "" {
		email = TokenEmail(tokens.AccessToken)
	}

	return &domain.Session{
		ID:        uuid.New(),
		Tokens:    tokens,
		Email:     email,
		CreatedAt: now.UTC(),
		ExpiresAt: expires.UTC(),
	}, nil
}
