package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/portalsync/internal/infrastructure/netsuite"
)

// InMemoryTokenStore keeps the token in process memory. It is used when
// Redis is not configured and in tests; replicas do not share it.
type InMemoryTokenStore struct {
	mu    sync.RWMutex
	token *netsuite.Token
	now   func() time.Time
}

// NewInMemoryTokenStore creates an empty store.
func NewInMemoryTokenStore() *InMemoryTokenStore {
	return &InMemoryTokenStore{now: time.Now}
}

// Load returns the stored token unless it has expired.
func (s *InMemoryTokenStore) Load(_ context.Context) (*netsuite.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == nil || !s.now().Before(s.token.ExpiresAt) {
		return nil, nil
	}
	tok := *s.token
	return &tok, nil
}

// Store replaces the stored token.
func (s *InMemoryTokenStore) Store(_ context.Context, token *netsuite.Token) error {
	if token == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tok := *token
	s.token = &tok
	return nil
}

// Clear drops the stored token.
func (s *InMemoryTokenStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = nil
	return nil
}

// Close is a no-op.
func (s *InMemoryTokenStore) Close() error {
	return nil
}

var _ netsuite.TokenStore = (*InMemoryTokenStore)(nil)
