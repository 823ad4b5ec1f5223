package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/prepdeck/interview-api/internal/repository"
)

const revocationKeyPrefix = "session:revoked:"

// RedisRevocationStore implements RevocationStore backed by Redis.
// Entries expire with the credential, so the denylist never grows
// beyond the set of live-but-revoked sessions.
type RedisRevocationStore struct {
	client redis.UniversalClient
}

var _ repository.RevocationStore = (*RedisRevocationStore)(nil)

// NewRedisRevocationStore constructs a Redis-backed revocation store.
func NewRedisRevocationStore(client redis.UniversalClient) *RedisRevocationStore {
	return &RedisRevocationStore{client: client}
}

// Revoke marks the session id revoked for the remaining credential lifetime.
func (s *RedisRevocationStore) Revoke(ctx context.Context, sessionID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, revocationKeyPrefix+sessionID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("persist revocation: %w", err)
	}
	return nil
}

// IsRevoked reports whether the session id has been revoked.
func (s *RedisRevocationStore) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	err := s.client.Get(ctx, revocationKeyPrefix+sessionID).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load revocation: %w", err)
	}
	return true, nil
}
