package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"ms-invitations/internal/logger"
)

const DefaultLockTTL = 36 * time.Hour

// RunLock records in Redis that the reminder job ran for a given day.
type RunLock struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger

	// owner identifies this process so it only releases its own lock.
	owner string
}

func NewRunLock(client *redis.Client, ttl time.Duration, log *logger.Logger) *RunLock {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RunLock{
		Client: client,
		TTL:    ttl,
		Logger: log,
		owner:  uuid.NewString(),
	}
}

func key(day string) string {
	return "reminders:run:" + day
}

// Acquire claims the run for day. It returns false when another run
// already holds it.
func (l *RunLock) Acquire(ctx context.Context, day string) (bool, error) {
	ok, err := l.Client.SetNX(ctx, key(day), l.owner, l.TTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire reminder lock: %w", err)
	}
	if !ok {
		l.Logger.Info("REDIS", fmt.Sprintf("Reminder run for %s already claimed", day))
	}
	return ok, nil
}

// Release gives up a claim so a failed run can be retried the same day.
func (l *RunLock) Release(ctx context.Context, day string) error {
	val, err := l.Client.Get(ctx, key(day)).Result()
	if err == redis.Nil {
		return nil // already released
	}
	if err != nil {
		return err
	}
	if val == l.owner {
		return l.Client.Del(ctx, key(day)).Err()
	}
	return nil
}
