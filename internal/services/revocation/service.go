// Package revocation tracks refresh tokens that have been rotated out of
// circulation. Honoring a superseded refresh token would defeat rotation, so
// every successful refresh records the old token here and lookups gate the
// refresh path.
package revocation

import (
	"context"
	"sync"
	"time"

	"github.com/budgetwise/budgetwise/internal/infrastructure/redis"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "revoked-refresh:"

type Store interface {
	Revoke(ctx context.Context, tokenHash string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenHash string) (bool, error)
}

type RedisStore struct {
	redisService *redis.Service
}

type MemoryStore struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
}

type Service struct {
	store Store
}

// NewService builds a revocation service backed by Redis when available,
// falling back to process-local memory otherwise.
func NewService(redisService *redis.Service) *Service {
	var store Store
	if redisService != nil {
		if err := redisService.Ping(context.Background()); err != nil {
			store = newMemoryStore()
		} else {
			store = &RedisStore{redisService: redisService}
		}
	} else {
		store = newMemoryStore()
	}

	return &Service{store: store}
}

func newMemoryStore() *MemoryStore {
	return &MemoryStore{
		revoked: make(map[string]time.Time),
	}
}

// Revoke marks a rotated refresh token hash as dead for ttl.
func (s *Service) Revoke(ctx context.Context, tokenHash string, ttl time.Duration) error {
	return s.store.Revoke(ctx, tokenHash, ttl)
}

// IsRevoked reports whether a refresh token hash has been rotated out.
func (s *Service) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	return s.store.IsRevoked(ctx, tokenHash)
}

// Redis Store implementation
func (rs *RedisStore) Revoke(ctx context.Context, tokenHash string, ttl time.Duration) error {
	return rs.redisService.Set(ctx, keyPrefix+tokenHash, "1", ttl)
}

func (rs *RedisStore) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	_, err := rs.redisService.Get(ctx, keyPrefix+tokenHash)
	if err == goredis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Memory Store implementation
func (ms *MemoryStore) Revoke(ctx context.Context, tokenHash string, ttl time.Duration) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.revoked[tokenHash] = time.Now().Add(ttl)
	return nil
}

func (ms *MemoryStore) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	deadline, exists := ms.revoked[tokenHash]
	if !exists {
		return false, nil
	}
	return time.Now().Before(deadline), nil
}
