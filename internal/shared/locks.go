package shared

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// PlanLockKey builds redis keys for plan refresh critical sections.
func PlanLockKey(planID string) string {
	return fmt.Sprintf("plan:%s:refresh:lock", planID)
}

// Unlocker releases a held lock.
type Unlocker interface {
	Release(ctx context.Context) error
}

// Locker serialises critical sections per key.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Unlocker, error)
}

// RedisLocker implements Locker over redislock.
type RedisLocker struct {
	client *redislock.Client
	retry  time.Duration
}

// NewRedisLocker wraps a redis client for distributed locking.
func NewRedisLocker(client redis.UniversalClient, retry time.Duration) *RedisLocker {
	if retry <= 0 {
		retry = 250 * time.Millisecond
	}
	return &RedisLocker{client: redislock.New(client), retry: retry}
}

// Acquire obtains the lock, retrying with linear backoff until ctx expires.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Unlocker, error) {
	lock, err := l.client.Obtain(ctx, key, ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(l.retry), 20),
	})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, ErrLockHeld
		}
		return nil, err
	}
	return redisUnlock{lock: lock}, nil
}

type redisUnlock struct {
	lock *redislock.Lock
}

func (u redisUnlock) Release(ctx context.Context) error {
	if err := u.lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
		return err
	}
	return nil
}

// LocalLocker serialises per key within a single process. Used in tests and
// deployments without redis.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocalLocker constructs an in-process locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*sync.Mutex)}
}

// Acquire blocks until the per-key mutex is held or ctx is done.
func (l *LocalLocker) Acquire(ctx context.Context, key string, _ time.Duration) (Unlocker, error) {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	acquired := make(chan struct{})
	go func() {
		m.Lock()
		close(acquired)
	}()
	select {
	case <-acquired:
		return localUnlock{m: m}, nil
	case <-ctx.Done():
		go func() {
			<-acquired
			m.Unlock()
		}()
		return nil, ctx.Err()
	}
}

type localUnlock struct {
	m *sync.Mutex
}

func (u localUnlock) Release(context.Context) error {
	u.m.Unlock()
	return nil
}
