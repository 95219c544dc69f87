package netsuite

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/erp/portalsync/internal/domain/erpsync"
)

// DefaultTokenSkew is how long before expiry a token is treated as stale.
const DefaultTokenSkew = 60 * time.Second

// Token is a bearer token and its absolute expiry.
type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// TokenFetcher obtains a fresh token from the authorization server.
type TokenFetcher interface {
	FetchToken(ctx context.Context) (*Token, error)
}

// TokenStore shares tokens between processes. Load returns (nil, nil) when
// nothing is stored.
type TokenStore interface {
	Load(ctx context.Context) (*Token, error)
	Store(ctx context.Context, token *Token) error
	Clear(ctx context.Context) error
}

// TokenCache is the process-wide credential cache. It is safe for
// concurrent use; at most one refresh runs at a time.
type TokenCache struct {
	mu      sync.Mutex
	fetcher TokenFetcher
	store   TokenStore
	token   *Token
	now     func() time.Time
	skew    time.Duration
	logger  *zap.Logger
}

// TokenCacheOption configures a TokenCache.
type TokenCacheOption func(*TokenCache)

// WithClock injects the time source.
func WithClock(now func() time.Time) TokenCacheOption {
	return func(c *TokenCache) { c.now = now }
}

// WithSkew sets the refresh margin before expiry.
func WithSkew(d time.Duration) TokenCacheOption {
	return func(c *TokenCache) { c.skew = d }
}

// WithTokenStore shares tokens through store.
func WithTokenStore(s TokenStore) TokenCacheOption {
	return func(c *TokenCache) { c.store = s }
}

// WithTokenLogger sets the logger.
func WithTokenLogger(l *zap.Logger) TokenCacheOption {
	return func(c *TokenCache) { c.logger = l }
}

// NewTokenCache creates a cache that refreshes through fetcher.
func NewTokenCache(fetcher TokenFetcher, opts ...TokenCacheOption) *TokenCache {
	c := &TokenCache{
		fetcher: fetcher,
		now:     time.Now,
		skew:    DefaultTokenSkew,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetValidToken returns a token that will not expire within the skew,
// refreshing it when needed.
func (c *TokenCache) GetValidToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid(c.token) {
		return c.token.AccessToken, nil
	}

	if c.store != nil {
		shared, err := c.store.Load(ctx)
		if err != nil {
			c.logger.Warn("Shared token store unavailable", zap.Error(err))
		} else if c.valid(shared) {
			c.token = shared
			return shared.AccessToken, nil
		}
	}

	tok, err := c.fetcher.FetchToken(ctx)
	if err != nil {
		return "", &erpsync.SyncError{
			Kind:    erpsync.KindUnauthorized,
			Code:    "TOKEN_REFRESH_FAILED",
			Message: "could not obtain an ERP access token",
			Err:     err,
		}
	}
	if tok == nil || tok.AccessToken == "" {
		return "", &erpsync.SyncError{
			Kind:    erpsync.KindUnauthorized,
			Code:    "TOKEN_REFRESH_FAILED",
			Message: "authorization server returned an empty token",
		}
	}
	c.token = tok
	c.logger.Debug("Access token refreshed", zap.Time("expires_at", tok.ExpiresAt))

	if c.store != nil {
		if err := c.store.Store(ctx, tok); err != nil {
			c.logger.Warn("Failed to share access token", zap.Error(err))
		}
	}
	return tok.AccessToken, nil
}

// Invalidate drops the cached token so the next call refreshes.
func (c *TokenCache) Invalidate(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = nil
	if c.store != nil {
		if err := c.store.Clear(ctx); err != nil {
			c.logger.Warn("Failed to clear shared access token", zap.Error(err))
		}
	}
}

func (c *TokenCache) valid(t *Token) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	return c.now().Add(c.skew).Before(t.ExpiresAt)
}

// StaticToken is a fetcher for a long-lived token supplied by configuration.
type StaticToken string

// FetchToken returns the configured token with a far expiry.
func (s StaticToken) FetchToken(context.Context) (*Token, error) {
	return &Token{AccessToken: string(s), ExpiresAt: time.Now().Add(100 * 365 * 24 * time.Hour)}, nil
}
