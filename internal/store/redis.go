package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eldtechnologies/messenger/internal/models"
)

// NonceStore records request nonces so a signed request cannot be replayed.
type NonceStore interface {
	// ClaimNonce marks nonce as used by signer. It returns false if the
	// nonce was already claimed within ttl.
	ClaimNonce(ctx context.Context, signer models.Address, nonce string, ttl time.Duration) (bool, error)
}

// RedisStore handles Redis operations for replay protection, rate limiting
// and notification fan-out. It never holds ledger state.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Client exposes the underlying client for the rate limiter and publishers.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// nonceKey returns the key for nonce tracking.
func nonceKey(signer models.Address, nonce string) string {
	return fmt.Sprintf("nonce:%s:%s", signer, nonce)
}

// ClaimNonce atomically marks a nonce as used.
func (s *RedisStore) ClaimNonce(ctx context.Context, signer models.Address, nonce string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, nonceKey(signer, nonce), "1", ttl).Result()
}

// MemoryNonceStore is a process-local NonceStore for single-node and
// development setups.
type MemoryNonceStore struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	now    func() time.Time
	sweeps int
}

// NewMemoryNonceStore creates an empty nonce cache.
func NewMemoryNonceStore() *MemoryNonceStore {
	return &MemoryNonceStore{seen: make(map[string]time.Time), now: time.Now}
}

func (s *MemoryNonceStore) ClaimNonce(ctx context.Context, signer models.Address, nonce string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	key := nonceKey(signer, nonce)
	if expiry, ok := s.seen[key]; ok && now.Before(expiry) {
		return false, nil
	}
	s.seen[key] = now.Add(ttl)

	// Sweep expired entries every so often to bound memory.
	s.sweeps++
	if s.sweeps%1024 == 0 {
		for k, expiry := range s.seen {
			if !now.Before(expiry) {
				delete(s.seen, k)
			}
		}
	}
	return true, nil
}
