package router

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dujiao-next/checkout/internal/http/response"
	"github.com/dujiao-next/checkout/internal/i18n"
	"github.com/dujiao-next/checkout/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 固定窗口限流规则
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	MessageKey    string
}

func (r RateLimitRule) window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

func (r RateLimitRule) enabled() bool {
	return r.WindowSeconds > 0 && r.MaxRequests > 0
}

// RateLimitDecision 单次计数结果
type RateLimitDecision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter 基于 Redis 计数器的固定窗口限流
type RateLimiter struct {
	client *redis.Client
	rule   RateLimitRule
}

// NewRateLimiter 创建限流器，client 为空或规则无效时放行所有请求
func NewRateLimiter(client *redis.Client, rule RateLimitRule) *RateLimiter {
	return &RateLimiter{client: client, rule: rule}
}

// Allow 为 key 计数一次
func (l *RateLimiter) Allow(ctx context.Context, key string) (RateLimitDecision, error) {
	if l == nil || l.client == nil || !l.rule.enabled() {
		return RateLimitDecision{Allowed: true}, nil
	}
	if l.rule.Prefix != "" {
		key = fmt.Sprintf("%s:%s", l.rule.Prefix, key)
	}

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	if _, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.TTL(ctx, key)
		return nil
	}); err != nil {
		return RateLimitDecision{}, err
	}

	count := incr.Val()
	remainingTTL := ttl.Val()
	// 新 key 或上次设置过期时间失败时补上窗口
	if remainingTTL < 0 {
		if err := l.client.Expire(ctx, key, l.rule.window()).Err(); err != nil {
			return RateLimitDecision{}, err
		}
		remainingTTL = l.rule.window()
	}

	remaining := l.rule.MaxRequests - int(count)
	if remaining < 0 {
		remaining = 0
	}
	decision := RateLimitDecision{
		Allowed:   count <= int64(l.rule.MaxRequests),
		Remaining: remaining,
	}
	if !decision.Allowed {
		decision.RetryAfter = remainingTTL
		if decision.RetryAfter < time.Second {
			decision.RetryAfter = time.Second
		}
	}
	return decision, nil
}

// RateLimitMiddleware 限流中间件。
// Redis 异常时放行并记录日志，限流器故障不应阻断下单。
func RateLimitMiddleware(limiter *RateLimiter, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limiter.client == nil || !limiter.rule.enabled() {
			c.Next()
			return
		}

		key := ""
		if keyFunc != nil {
			key = strings.TrimSpace(keyFunc(c))
		}
		if key == "" {
			key = c.ClientIP()
		}

		decision, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.Warnw("rate_limit_check_failed", "prefix", limiter.rule.Prefix, "key", key, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.rule.MaxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if decision.Allowed {
			c.Next()
			return
		}

		waitSeconds := int(decision.RetryAfter / time.Second)
		c.Header("Retry-After", strconv.Itoa(waitSeconds))
		msgKey := strings.TrimSpace(limiter.rule.MessageKey)
		if msgKey == "" {
			msgKey = "error.rate_limited"
		}
		msg := i18n.Sprintf(i18n.ResolveLocale(c), msgKey, waitSeconds)
		response.Error(c, response.CodeTooManyRequests, msg)
		c.Abort()
	}
}

// KeyByIP 使用 IP 作为限流 key
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByParam 使用路径参数作为限流 key，参数为空时回退到 IP
func KeyByParam(name string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		value := strings.TrimSpace(c.Param(name))
		if value == "" {
			return c.ClientIP()
		}
		return value
	}
}
