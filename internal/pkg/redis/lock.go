package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// 只有持有者的 token 匹配时才删除
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Lock 获取分布式锁，返回释放时需要的 token。锁已被持有时返回 ErrLockNotHeld。
func (c *Client) Lock(ctx context.Context, key string, expiration time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := c.rdb.SetNX(ctx, key, token, expiration).Result()
	if err != nil {
		c.logger.Error("redis lock failed", zap.String("key", key), zap.Error(err))
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrLockNotHeld, key)
	}
	c.logger.Debug("redis lock acquired", zap.String("key", key), zap.Duration("expiration", expiration))
	return token, nil
}

// Unlock 释放分布式锁
func (c *Client) Unlock(ctx context.Context, key, token string) error {
	n, err := unlockScript.Run(ctx, c.rdb, []string{key}, token).Int64()
	if err != nil {
		c.logger.Error("redis unlock failed", zap.String("key", key), zap.Error(err))
		return err
	}
	if n == 0 {
		return ErrLockMismatch
	}
	c.logger.Debug("redis lock released", zap.String("key", key))
	return nil
}

// TryLock 带重试地获取锁
func (c *Client) TryLock(ctx context.Context, key string, expiration time.Duration, maxRetries int, retryDelay time.Duration) (string, error) {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		token, err := c.Lock(ctx, key, expiration)
		if err == nil {
			return token, nil
		}
		lastErr = err
		if i == maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return "", fmt.Errorf("failed to acquire lock after %d retries: %w", maxRetries, lastErr)
}

// WithLock 持有锁执行 fn
func (c *Client) WithLock(ctx context.Context, key string, expiration time.Duration, fn func() error) error {
	token, err := c.Lock(ctx, key, expiration)
	if err != nil {
		return err
	}
	defer func() {
		// 释放不受调用方 ctx 取消影响
		if err := c.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			c.logger.Warn("redis lock release failed", zap.String("key", key), zap.Error(err))
		}
	}()
	return fn()
}
