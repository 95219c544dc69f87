package netsuite

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/portalsync/internal/domain/erpsync"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type countingFetcher struct {
	clock *fakeClock
	ttl   time.Duration
	calls int32
	err   error
}

func (f *countingFetcher) FetchToken(context.Context) (*Token, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return &Token{
		AccessToken: "tok-" + string(rune('0'+n)),
		ExpiresAt:   f.clock.Now().Add(f.ttl),
	}, nil
}

type memoryStore struct {
	token   *Token
	cleared int
}

func (m *memoryStore) Load(context.Context) (*Token, error) { return m.token, nil }
func (m *memoryStore) Store(_ context.Context, t *Token) error {
	m.token = t
	return nil
}
func (m *memoryStore) Clear(context.Context) error {
	m.token = nil
	m.cleared++
	return nil
}

func TestTokenCache_GetValidToken(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}

	t.Run("reuses token until skew window", func(t *testing.T) {
		fetcher := &countingFetcher{clock: clock, ttl: time.Hour}
		cache := NewTokenCache(fetcher, WithClock(clock.Now), WithSkew(time.Minute))

		tok, err := cache.GetValidToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tok-1", tok)

		clock.Advance(58 * time.Minute)
		tok, err = cache.GetValidToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tok-1", tok)
		assert.EqualValues(t, 1, atomic.LoadInt32(&fetcher.calls))

		clock.Advance(90 * time.Second)
		tok, err = cache.GetValidToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tok-2", tok)
		assert.EqualValues(t, 2, atomic.LoadInt32(&fetcher.calls))
	})

	t.Run("invalidate forces refresh", func(t *testing.T) {
		fetcher := &countingFetcher{clock: clock, ttl: time.Hour}
		cache := NewTokenCache(fetcher, WithClock(clock.Now))

		_, err := cache.GetValidToken(context.Background())
		require.NoError(t, err)
		cache.Invalidate(context.Background())
		tok, err := cache.GetValidToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tok-2", tok)
	})

	t.Run("concurrent callers share one refresh", func(t *testing.T) {
		fetcher := &countingFetcher{clock: clock, ttl: time.Hour}
		cache := NewTokenCache(fetcher, WithClock(clock.Now))

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				tok, err := cache.GetValidToken(context.Background())
				assert.NoError(t, err)
				assert.Equal(t, "tok-1", tok)
			}()
		}
		wg.Wait()
		assert.EqualValues(t, 1, atomic.LoadInt32(&fetcher.calls))
	})

	t.Run("fetch failure is unauthorized", func(t *testing.T) {
		fetcher := &countingFetcher{clock: clock, err: errors.New("invalid_client")}
		cache := NewTokenCache(fetcher, WithClock(clock.Now))

		_, err := cache.GetValidToken(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, erpsync.ErrUnauthorized)
	})

	t.Run("shared store is consulted before fetching", func(t *testing.T) {
		store := &memoryStore{token: &Token{AccessToken: "shared", ExpiresAt: clock.Now().Add(time.Hour)}}
		fetcher := &countingFetcher{clock: clock, ttl: time.Hour}
		cache := NewTokenCache(fetcher, WithClock(clock.Now), WithTokenStore(store))

		tok, err := cache.GetValidToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "shared", tok)
		assert.EqualValues(t, 0, atomic.LoadInt32(&fetcher.calls))

		cache.Invalidate(context.Background())
		assert.Equal(t, 1, store.cleared)

		tok, err = cache.GetValidToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tok-1", tok)
		require.NotNil(t, store.token)
		assert.Equal(t, "tok-1", store.token.AccessToken)
	})

	t.Run("expired shared token is ignored", func(t *testing.T) {
		store := &memoryStore{token: &Token{AccessToken: "stale", ExpiresAt: clock.Now().Add(10 * time.Second)}}
		fetcher := &countingFetcher{clock: clock, ttl: time.Hour}
		cache := NewTokenCache(fetcher, WithClock(clock.Now), WithTokenStore(store))

		tok, err := cache.GetValidToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tok-1", tok)
	})
}

func TestStaticToken(t *testing.T) {
	cache := NewTokenCache(StaticToken("abc"))
	tok, err := cache.GetValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)
}
