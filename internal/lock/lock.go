// Package lock provides the best-effort mutual exclusion guard for image
// edits. It rides on the history store's atomic create-if-absent primitive;
// the TTL means a stalled edit loses the lock rather than wedging the bot.
// That makes it a coordination hint, not a true mutex, which is accepted.
package lock

import (
	"context"
	"log"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	lockKey = "edit:in_progress"
	lockTTL = 60 * time.Second
)

type locker interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type EditLock struct {
	client locker
}

// New builds the lock over a connected redis client. A nil client disables
// locking entirely: edits proceed unguarded, matching the stateless mode.
func New(client *redis.Client) *EditLock {
	if client == nil {
		return &EditLock{}
	}
	return &EditLock{client: client}
}

// Acquire attempts to take the lock. False means another edit holds it and
// the caller must back off without releasing. Store errors degrade to
// acquired, the same as running without a store.
func (l *EditLock) Acquire(ctx context.Context) bool {
	if l.client == nil {
		log.Printf("no lock backend available, proceeding without edit lock")
		return true
	}
	ok, err := l.client.SetNX(ctx, lockKey, "1", lockTTL).Result()
	if err != nil {
		log.Printf("edit lock acquire failed, proceeding without lock: %v", err)
		return true
	}
	return ok
}

// Release drops the lock unconditionally. Callers must not release a lock
// they failed to acquire.
func (l *EditLock) Release(ctx context.Context) {
	if l.client == nil {
		return
	}
	if err := l.client.Del(ctx, lockKey).Err(); err != nil {
		log.Printf("edit lock release failed: %v", err)
	}
}
