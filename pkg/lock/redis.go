package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/labfunds-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

const (
	defaultRedisTTL  = 30 * time.Second
	defaultRedisWait = 10 * time.Second
	defaultRedisPoll = 50 * time.Millisecond
	releaseTimeout   = 2 * time.Second
	redisLockScope   = "finance"
)

// redisStore defines the operations used by Redis.
type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)
	LockKey(scope, id string) string
}

// RedisOptions tunes lock lifetime and acquisition wait.
type RedisOptions struct {
	TTL          time.Duration
	WaitTimeout  time.Duration
	PollInterval time.Duration
	Logger       *logger.Logger
}

// Redis implements Locker using SETNX with an owner token and TTL.
type Redis struct {
	client redisStore
	ttl    time.Duration
	wait   time.Duration
	poll   time.Duration
	logg   *logger.Logger
}

// NewRedis constructs a Redis-backed locker.
func NewRedis(client redisStore, opts RedisOptions) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	r := &Redis{
		client: client,
		ttl:    opts.TTL,
		wait:   opts.WaitTimeout,
		poll:   opts.PollInterval,
		logg:   opts.Logger,
	}
	if r.ttl <= 0 {
		r.ttl = defaultRedisTTL
	}
	if r.wait <= 0 {
		r.wait = defaultRedisWait
	}
	if r.poll <= 0 {
		r.poll = defaultRedisPoll
	}
	return r, nil
}

func (r *Redis) Lock(ctx context.Context, key string) (Unlock, error) {
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	redisKey := r.client.LockKey(redisLockScope, key)
	owner := uuid.NewString()

	backoff := retry.WithMaxDuration(r.wait, retry.NewConstant(r.poll))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		ok, err := r.client.SetNX(ctx, redisKey, owner, r.ttl)
		if err != nil {
			return fmt.Errorf("setnx: %w", err)
		}
		if !ok {
			return retry.RetryableError(ErrNotAcquired)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotAcquired) {
			return nil, fmt.Errorf("%w: %s", ErrNotAcquired, key)
		}
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()
			if _, err := r.client.CompareAndDelete(releaseCtx, redisKey, owner); err != nil && r.logg != nil {
				r.logg.Error(r.logg.WithField(ctx, "lock_key", redisKey), "failed to release lock", err)
			}
		})
	}, nil
}
