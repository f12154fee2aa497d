package data

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ngaut/NexusCRM-sub002/internal/conversation/biz"
	"github.com/ngaut/NexusCRM-sub002/internal/pkg/logger"
	"github.com/ngaut/NexusCRM-sub002/internal/pkg/redis"
	"go.uber.org/zap"
)

// RedisLocker is a biz.Locker shared across replicas
type RedisLocker struct {
	client *redis.Client
	logger *logger.Logger
}

// NewRedisLocker creates a Redis-backed locker
func NewRedisLocker(client *redis.Client, log *logger.Logger) *RedisLocker {
	return &RedisLocker{client: client, logger: log.Named("locker")}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	full := l.client.Key(key)
	token, err := l.client.Lock(ctx, full, ttl)
	if err != nil {
		if errors.Is(err, redis.ErrLockNotHeld) {
			return nil, biz.ErrLockHeld
		}
		return nil, err
	}
	return func() {
		// release even if the request context is already canceled
		if err := l.client.Unlock(context.WithoutCancel(ctx), full, token); err != nil {
			l.logger.Warn("lock release failed", zap.String("key", full), zap.Error(err))
		}
	}, nil
}

// LocalLocker is a biz.Locker for a single process. Entries expire after
// their ttl so a lost release cannot wedge a key forever.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]localLock
	seq  uint64
	now  func() time.Time
}

type localLock struct {
	id      uint64
	expires time.Time
}

// NewLocalLocker creates an in-process locker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]localLock), now: time.Now}
}

func (l *LocalLocker) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if cur, ok := l.held[key]; ok && now.Before(cur.expires) {
		return nil, biz.ErrLockHeld
	}
	l.seq++
	id := l.seq
	l.held[key] = localLock{id: id, expires: now.Add(ttl)}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			// a newer holder may own the key after expiry
			if cur, ok := l.held[key]; ok && cur.id == id {
				delete(l.held, key)
			}
		})
	}, nil
}
