package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/erp/portalsync/internal/infrastructure/netsuite"
)

const defaultTokenKeyPrefix = "portalsync:netsuite:token:"

// RedisTokenStore shares the ERP access token between replicas so that
// only one of them has to run the client-credentials exchange.
type RedisTokenStore struct {
	client *redis.Client
	key    string
	now    func() time.Time
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisTokenStore connects to Redis and returns a store keyed by account.
func NewRedisTokenStore(cfg RedisConfig, account string) (*RedisTokenStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisTokenStoreWithClient(client, account), nil
}

// NewRedisTokenStoreWithClient creates a store with an existing Redis client.
func NewRedisTokenStoreWithClient(client *redis.Client, account string) *RedisTokenStore {
	return &RedisTokenStore{
		client: client,
		key:    defaultTokenKeyPrefix + account,
		now:    time.Now,
	}
}

// Key returns the Redis key holding the token.
func (s *RedisTokenStore) Key() string {
	return s.key
}

// Load returns the shared token, or nil when none is stored.
func (s *RedisTokenStore) Load(ctx context.Context) (*netsuite.Token, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load shared token: %w", err)
	}
	return decodeToken(raw)
}

// Store saves the token until it expires.
func (s *RedisTokenStore) Store(ctx context.Context, token *netsuite.Token) error {
	raw, ttl, err := encodeToken(token, s.now())
	if err != nil {
		return err
	}
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, s.key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store shared token: %w", err)
	}
	return nil
}

// Clear removes the shared token.
func (s *RedisTokenStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear shared token: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisTokenStore) Close() error {
	return s.client.Close()
}

func encodeToken(token *netsuite.Token, now time.Time) ([]byte, time.Duration, error) {
	if token == nil || token.AccessToken == "" {
		return nil, 0, errors.New("refusing to share an empty token")
	}
	raw, err := json.Marshal(token)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode token: %w", err)
	}
	return raw, token.ExpiresAt.Sub(now), nil
}

func decodeToken(raw []byte) (*netsuite.Token, error) {
	var tok netsuite.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("failed to decode shared token: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, nil
	}
	return &tok, nil
}

var _ netsuite.TokenStore = (*RedisTokenStore)(nil)
