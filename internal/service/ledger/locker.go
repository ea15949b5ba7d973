package ledger

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/krobus00/satoshi/internal/constant"
	"github.com/krobus00/satoshi/internal/entity"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
)

const (
	defaultLockTimeout       = 10 * time.Second
	defaultLockTTL           = 2 * time.Minute
	defaultLockRetryInterval = 50 * time.Millisecond
	redisUnlockTimeout       = 3 * time.Second
)

var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
else
    return 0
end
`)

func lockBackoff(timeout time.Duration) retry.Backoff {
	if timeout <= 0 {
		timeout = defaultLockTimeout
	}

	backoff := retry.NewConstant(defaultLockRetryInterval)
	backoff = retry.WithJitter(defaultLockRetryInterval/2, backoff)
	return retry.WithMaxDuration(timeout, backoff)
}

// FileLocker guards a ledger with an advisory lock on a sibling {path}.lock file.
// The OS drops the lock when the holding process exits.
type FileLocker struct {
	timeout time.Duration
	logger  *logrus.Entry
}

func NewFileLocker(timeout time.Duration, logger *logrus.Entry) *FileLocker {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &FileLocker{
		timeout: timeout,
		logger:  logger,
	}
}

func (l *FileLocker) Lock(ctx context.Context, key string) (func(), error) {
	lockPath := filepath.Clean(key) + constant.LedgerLockSuffix
	fileLock := flock.New(lockPath)

	err := retry.Do(ctx, lockBackoff(l.timeout), func(ctx context.Context) error {
		locked, err := fileLock.TryLock()
		if err != nil {
			return err
		}
		if !locked {
			return retry.RetryableError(entity.ErrLedgerLocked)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", lockPath, err)
	}

	return func() {
		if err := fileLock.Unlock(); err != nil {
			l.logger.WithField("lock", lockPath).WithError(err).Warn("failed to release ledger lock")
		}
	}, nil
}

// RedisLocker guards a ledger with SET NX PX and releases with compare-and-delete,
// for runs sharing a ledger directory across hosts.
type RedisLocker struct {
	client  *redis.Client
	timeout time.Duration
	ttl     time.Duration
	logger  *logrus.Entry
}

func NewRedisLocker(client *redis.Client, timeout time.Duration, ttl time.Duration, logger *logrus.Entry) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &RedisLocker{
		client:  client,
		timeout: timeout,
		ttl:     ttl,
		logger:  logger,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := constant.LedgerLockPrefix + filepath.Base(key)
	owner := uuid.NewString()

	err := retry.Do(ctx, lockBackoff(l.timeout), func(ctx context.Context) error {
		acquired, err := l.client.SetNX(ctx, lockKey, owner, l.ttl).Result()
		if err != nil {
			return err
		}
		if !acquired {
			return retry.RetryableError(entity.ErrLedgerLocked)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", lockKey, err)
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), redisUnlockTimeout)
		defer cancel()

		_, err := releaseLockScript.Run(releaseCtx, l.client, []string{lockKey}, owner).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			l.logger.WithField("lock", lockKey).WithError(err).Warn("failed to release ledger lock")
		}
	}, nil
}
