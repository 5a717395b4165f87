package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SubmitLock guards against two near-simultaneous submit calls for the same
// user and problem both dispatching to the judge. Acquire is a SET NX with a
// short TTL so a crashed request cannot hold the lock forever.
type SubmitLock struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSubmitLock(client *redis.Client, ttl time.Duration) *SubmitLock {
	return &SubmitLock{client: client, ttl: ttl}
}

func (l *SubmitLock) key(userID, problemID int) string {
	return fmt.Sprintf("submit_lock:%d:%d", userID, problemID)
}

// Acquire returns false when another submit for the same user and problem is
// already in flight.
func (l *SubmitLock) Acquire(ctx context.Context, userID, problemID int) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key(userID, problemID), 1, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire submit lock: %w", err)
	}
	return ok, nil
}

func (l *SubmitLock) Release(ctx context.Context, userID, problemID int) {
	_ = l.client.Del(ctx, l.key(userID, problemID)).Err()
}
