package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apperrors "github.com/ngaut/NexusCRM-sub002/internal/pkg/errors"
	"github.com/ngaut/NexusCRM-sub002/internal/pkg/logger"
	"github.com/ngaut/NexusCRM-sub002/internal/pkg/redis"
	"github.com/ngaut/NexusCRM-sub002/internal/pkg/response"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiterConfig 限流配置
type RateLimiterConfig struct {
	// 时间窗口内允许的最大请求数，<= 0 表示不限流
	MaxRequests int `mapstructure:"max_requests"`
	// 时间窗口
	Window time.Duration `mapstructure:"window"`
}

// 滑动窗口：有序集合按毫秒时间戳打分
var slidingWindowScript = goredis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local current = redis.call('ZCARD', key)
if current < limit then
	redis.call('ZADD', key, now, ARGV[4])
	redis.call('PEXPIRE', key, window)
	return {1, limit - current - 1, now + window}
end
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')[2]
return {0, 0, tonumber(oldest) + window}
`)

// RateLimiter 基于 Redis 的按用户滑动窗口限流，需在 JWTAuth 之后挂载。
// Redis 不可用时放行。
func RateLimiter(client *redis.Client, scope string, cfg RateLimiterConfig, log *logger.Logger) gin.HandlerFunc {
	if client == nil || cfg.MaxRequests <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}

	return func(c *gin.Context) {
		key := client.Key("rate_limit", scope, rateLimitSubject(c))
		allowed, remaining, resetAt, err := checkRateLimit(c.Request.Context(), client, key, cfg)
		if err != nil {
			log.WithContext(c.Request.Context()).Error("rate limiter error", zap.Error(err), zap.String("key", key))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetAt/1000, 10))

		if !allowed {
			retry := time.Until(time.UnixMilli(resetAt)).Round(time.Second)
			if retry < time.Second {
				retry = time.Second
			}
			c.Header("Retry-After", strconv.Itoa(int(retry.Seconds())))
			response.ErrorWithCode(c, apperrors.ErrTooManyRequests, fmt.Sprintf("try again in %s", retry))
			c.Abort()
			return
		}

		c.Next()
	}
}

func rateLimitSubject(c *gin.Context) string {
	if userID := c.GetString("user_id"); userID != "" {
		return "user:" + userID
	}
	return "ip:" + c.ClientIP()
}

func checkRateLimit(ctx context.Context, client *redis.Client, key string, cfg RateLimiterConfig) (allowed bool, remaining int, resetAt int64, err error) {
	now := time.Now().UnixMilli()
	res, err := slidingWindowScript.Run(ctx, client.Raw(), []string{key},
		now, cfg.Window.Milliseconds(), cfg.MaxRequests, uuid.NewString()).Int64Slice()
	if err != nil {
		return false, 0, 0, err
	}
	if len(res) != 3 {
		return false, 0, 0, fmt.Errorf("invalid rate limit result: %v", res)
	}
	return res[0] == 1, int(res[1]), res[2], nil
}
