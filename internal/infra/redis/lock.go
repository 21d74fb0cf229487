package redis

import (
	"context"
	"errors"
	"time"

	"telegram-prediction-backend/internal/usecase"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrLockBusy is returned when another holder owns the lock after all
// acquisition attempts are exhausted.
var ErrLockBusy = errors.New("redis: lock busy")

const (
	lockRetries    = 5
	lockRetryDelay = 50 * time.Millisecond
)

// unlockScript deletes the key only if it still carries our token, so an
// expired lock re-acquired by someone else is never released by us.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`)

var _ usecase.Locker = (*RedisLocker)(nil)

// RedisLocker is a best-effort distributed mutex over SET NX. The database
// constraints stay authoritative; the locker only keeps concurrent invoice
// requests from racing each other into conflict retries.
type RedisLocker struct {
	cli *redis.Client
}

func NewLocker(c *redClient) *RedisLocker {
	return &RedisLocker{cli: c.raw()}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	for i := 0; i < lockRetries; i++ {
		ok, err := l.cli.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}
	return "", ErrLockBusy
}

func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	return unlockScript.Run(ctx, l.cli, []string{key}, token).Err()
}
