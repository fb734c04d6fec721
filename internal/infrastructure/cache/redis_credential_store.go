package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shoply/backend/internal/domain/payment"
)

// RedisCredentialStore implements payment.CredentialStore using Redis.
// Suitable for distributed deployments where multiple instances share
// provider auth tokens; TTL expiry is the refresh signal.
type RedisCredentialStore struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisCredentialStore creates a new Redis-based credential store
func NewRedisCredentialStore(cfg RedisConfig) (*RedisCredentialStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCredentialStore{
		client:    client,
		keyPrefix: "payment:credentials:",
	}, nil
}

// NewRedisCredentialStoreWithClient creates a store with an existing Redis
// client. Useful for testing or when sharing a client across components.
func NewRedisCredentialStoreWithClient(client *redis.Client, keyPrefix string) *RedisCredentialStore {
	if keyPrefix == "" {
		keyPrefix = "payment:credentials:"
	}
	return &RedisCredentialStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Get returns the cached credentials for a provider. A missing or expired
// key returns a nil map and no error; callers treat that as "refresh needed".
func (s *RedisCredentialStore) Get(ctx context.Context, provider payment.Provider) (map[string]string, error) {
	raw, err := s.client.Get(ctx, s.keyPrefix+provider.String()).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var credentials map[string]string
	if err := json.Unmarshal([]byte(raw), &credentials); err != nil {
		return nil, fmt.Errorf("failed to decode credentials: %w", err)
	}
	return credentials, nil
}

// Save stores the credentials for a provider with a TTL
func (s *RedisCredentialStore) Save(ctx context.Context, provider payment.Provider, credentials map[string]string, ttl time.Duration) error {
	raw, err := json.Marshal(credentials)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	if err := s.client.Set(ctx, s.keyPrefix+provider.String(), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// Delete removes the cached credentials for a provider
func (s *RedisCredentialStore) Delete(ctx context.Context, provider payment.Provider) error {
	if err := s.client.Del(ctx, s.keyPrefix+provider.String()).Err(); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisCredentialStore) Close() error {
	return s.client.Close()
}

// Ensure RedisCredentialStore implements payment.CredentialStore
var _ payment.CredentialStore = (*RedisCredentialStore)(nil)
