package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/erp/portalsync/internal/infrastructure/config"
	"github.com/erp/portalsync/internal/infrastructure/netsuite"
)

func TestInMemoryTokenStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewInMemoryTokenStore()
	store.now = func() time.Time { return now }

	t.Run("empty store loads nil", func(t *testing.T) {
		tok, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, tok)
	})

	t.Run("stores a copy", func(t *testing.T) {
		in := &netsuite.Token{AccessToken: "abc", ExpiresAt: now.Add(time.Hour)}
		require.NoError(t, store.Store(ctx, in))
		in.AccessToken = "mutated"

		tok, err := store.Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, tok)
		assert.Equal(t, "abc", tok.AccessToken)
	})

	t.Run("expired token is not returned", func(t *testing.T) {
		require.NoError(t, store.Store(ctx, &netsuite.Token{AccessToken: "old", ExpiresAt: now}))
		tok, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, tok)
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, store.Store(ctx, &netsuite.Token{AccessToken: "abc", ExpiresAt: now.Add(time.Hour)}))
		require.NoError(t, store.Clear(ctx))
		tok, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, tok)
	})
}

func TestTokenEncoding(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("ttl follows expiry", func(t *testing.T) {
		raw, ttl, err := encodeToken(&netsuite.Token{AccessToken: "abc", ExpiresAt: now.Add(50 * time.Minute)}, now)
		require.NoError(t, err)
		assert.Equal(t, 50*time.Minute, ttl)

		tok, err := decodeToken(raw)
		require.NoError(t, err)
		require.NotNil(t, tok)
		assert.Equal(t, "abc", tok.AccessToken)
		assert.True(t, tok.ExpiresAt.Equal(now.Add(50*time.Minute)))
	})

	t.Run("empty token is rejected", func(t *testing.T) {
		_, _, err := encodeToken(&netsuite.Token{}, now)
		assert.Error(t, err)
		_, _, err = encodeToken(nil, now)
		assert.Error(t, err)
	})

	t.Run("garbage does not decode", func(t *testing.T) {
		_, err := decodeToken([]byte("not json"))
		assert.Error(t, err)
	})

	t.Run("blank access token decodes to nil", func(t *testing.T) {
		tok, err := decodeToken([]byte(`{"access_token":""}`))
		require.NoError(t, err)
		assert.Nil(t, tok)
	})
}

func TestRedisTokenStore_Key(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	store := NewRedisTokenStoreWithClient(client, "1234567_SB1")
	assert.Equal(t, "portalsync:netsuite:token:1234567_SB1", store.Key())
}

func TestTokenStoreFactory(t *testing.T) {
	t.Run("redis disabled uses memory", func(t *testing.T) {
		f := NewTokenStoreFactory(config.RedisConfig{}, "acct")
		store, err := f.CreateStore()
		require.NoError(t, err)
		assert.IsType(t, &InMemoryTokenStore{}, store)
	})

	t.Run("unreachable redis falls back with a warning", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		f := NewTokenStoreFactory(config.RedisConfig{Host: "127.0.0.1", Port: 1}, "acct", WithLogger(zap.New(core)))

		store, err := f.CreateStore()
		require.NoError(t, err)
		assert.IsType(t, &InMemoryTokenStore{}, store)
		assert.Equal(t, 1, logs.Len())
	})

	t.Run("fallback can be disabled", func(t *testing.T) {
		f := NewTokenStoreFactory(config.RedisConfig{Host: "127.0.0.1", Port: 1}, "acct", WithInMemoryFallback(false))
		_, err := f.CreateStore()
		assert.Error(t, err)
	})
}
