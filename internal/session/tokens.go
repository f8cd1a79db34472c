package session

import (
	"context"
	"sync"

	"catalog-admin/internal/domain"

	"github.com/google/uuid"
)

// Tokens is the client.TokenSource of one stored session. A refreshed
// access token is written back to the store; clearing deletes the session.
type Tokens struct {
	store Store
	id    uuid.UUID

	mu      sync.RWMutex
	tokens  domain.Tokens
	cleared bool
}

// NewTokens binds sess to store
func NewTokens(store Store, sess *domain.Session) *Tokens {
	return &Tokens{store: store, id: sess.ID, tokens: sess.Tokens}
}

// Tokens returns the current pair
func (t *Tokens) Tokens() domain.Tokens {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tokens
}

// SetAccessToken persists a refreshed access token
func (t *Tokens) SetAccessToken(ctx context.Context, token string) error {
	if err := t.store.UpdateAccessToken(ctx, t.id, token); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tokens.AccessToken = token
	return nil
}

// Clear drops both tokens and deletes the session
func (t *Tokens) Clear(ctx context.Context) error {
	t.mu.Lock()
	t.tokens = domain.Tokens{}
	t.cleared = true
	t.mu.Unlock()

	return t.store.Delete(ctx, t.id)
}

// Cleared reports whether the session was cleared, typically after a
// failed refresh
func (t *Tokens) Cleared() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cleared
}
