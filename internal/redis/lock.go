package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// releaseScript deletes the lock only while it still holds the caller's token,
// so an expired holder cannot release a lock taken over by another run.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// AcquireRunLock attempts to acquire the named run lock for token.
// Returns true if the lock was acquired, false if already held.
func (s *LockStore) AcquireRunLock(ctx context.Context, name, token string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:settlement:%s", name)

	ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseRunLock releases the named run lock if token still holds it.
func (s *LockStore) ReleaseRunLock(ctx context.Context, name, token string) error {
	key := fmt.Sprintf("lock:settlement:%s", name)

	return releaseScript.Run(ctx, s.client, []string{key}, token).Err()
}
