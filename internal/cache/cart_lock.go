package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dujiao-next/checkout/internal/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultCartLockTTL = 60 * time.Second

// 仅在令牌一致时释放，避免过期后误删他人持有的锁
var releaseCartLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func cartLockKey(cartID string) string {
	return "checkout:busy:" + strings.TrimSpace(cartID)
}

// CartLocker 购物车忙碌标记
// Redis 启用时跨实例生效，否则退化为进程内互斥
type CartLocker struct {
	ttl    time.Duration
	mu     sync.Mutex
	locals map[string]time.Time
}

// NewCartLocker 创建购物车忙碌标记，ttl 为锁的最长持有时间
func NewCartLocker(ttl time.Duration) *CartLocker {
	if ttl <= 0 {
		ttl = defaultCartLockTTL
	}
	return &CartLocker{ttl: ttl, locals: make(map[string]time.Time)}
}

// TryLock 尝试占用购物车，已被占用时 ok 为 false
func (l *CartLocker) TryLock(ctx context.Context, cartID string) (func(), bool, error) {
	if client := Client(); client != nil {
		return l.tryLockRedis(ctx, client, cartID)
	}
	return l.tryLockLocal(cartID)
}

func (l *CartLocker) tryLockRedis(ctx context.Context, client *redis.Client, cartID string) (func(), bool, error) {
	key := buildKey(cartLockKey(cartID))
	token := uuid.NewString()
	ok, err := client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	unlock := func() {
		// 请求上下文可能已取消，释放锁使用独立上下文
		releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := releaseCartLockScript.Run(releaseCtx, client, []string{key}, token).Err(); err != nil {
			logger.Warnw("cart_lock_release_failed", "cart_id", cartID, "error", err)
		}
	}
	return unlock, true, nil
}

func (l *CartLocker) tryLockLocal(cartID string) (func(), bool, error) {
	key := strings.TrimSpace(cartID)
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()
	if expiresAt, ok := l.locals[key]; ok && now.Before(expiresAt) {
		return nil, false, nil
	}
	expiresAt := now.Add(l.ttl)
	l.locals[key] = expiresAt

	var once sync.Once
	unlock := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if current, ok := l.locals[key]; ok && current.Equal(expiresAt) {
				delete(l.locals, key)
			}
		})
	}
	return unlock, true, nil
}
