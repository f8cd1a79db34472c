package client

import (
	"context"
	"sync"

	"catalog-admin/internal/domain"
)

// MemoryTokens is a TokenSource held in process memory
type MemoryTokens struct {
	mu     sync.RWMutex
	tokens domain.Tokens
}

// NewMemoryTokens returns a TokenSource seeded with tokens
func NewMemoryTokens(tokens domain.Tokens) *MemoryTokens {
	return &MemoryTokens{tokens: tokens}
}

func (m *MemoryTokens) Tokens() domain.Tokens {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tokens
}

func (m *MemoryTokens) SetAccessToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens.AccessToken = token
	return nil
}

func (m *MemoryTokens) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = domain.Tokens{}
	return nil
}
