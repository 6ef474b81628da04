package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dujiao-next/checkout/internal/config"
	"github.com/dujiao-next/checkout/internal/constants"

	"github.com/redis/go-redis/v9"
)

// 结账请求链路短，连接与读写超时都压得比较紧
const (
	dialTimeout  = 3 * time.Second
	ioTimeout    = 2 * time.Second
	poolSize     = 20
	minIdleConns = 2
)

// backend 进程内共享的 Redis 连接与键前缀
type backend struct {
	mu     sync.RWMutex
	client *redis.Client
	prefix string
}

var shared backend

// InitRedis 初始化 Redis 客户端，未启用时保持禁用状态，所有存储退化为进程内实现
func InitRedis(cfg *config.RedisConfig) error {
	if cfg == nil || !cfg.Enabled {
		return Close()
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = constants.RedisPrefixDefault
	}

	client := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(host, strconv.Itoa(port)),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
		PoolSize:     poolSize,
		MinIdleConns: minIdleConns,
	})

	shared.mu.Lock()
	previous := shared.client
	shared.client, shared.prefix = client, prefix
	shared.mu.Unlock()
	if previous != nil {
		_ = previous.Close()
	}
	return nil
}

// Close 关闭 Redis 客户端并回到禁用状态
func Close() error {
	shared.mu.Lock()
	client := shared.client
	shared.client = nil
	shared.mu.Unlock()
	if client == nil {
		return nil
	}
	return client.Close()
}

// Enabled 判断缓存是否启用
func Enabled() bool {
	return Client() != nil
}

// Client 获取 Redis 客户端，未启用时为 nil
func Client() *redis.Client {
	shared.mu.RLock()
	defer shared.mu.RUnlock()
	return shared.client
}

// Ping 检查 Redis 连通性，未启用时直接返回
func Ping(ctx context.Context) error {
	client := Client()
	if client == nil {
		return nil
	}
	return client.Ping(ctx).Err()
}

// GetJSON 读取 JSON 值，键不存在时 hit 为 false
func GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	client := Client()
	if client == nil {
		return false, nil
	}
	raw, err := client.Get(ctx, buildKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON 写入 JSON 值
func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	client := Client()
	if client == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return client.Set(ctx, buildKey(key), payload, ttl).Err()
}

func Del(ctx context.Context, key string) error {
	client := Client()
	if client == nil {
		return nil
	}
	return client.Del(ctx, buildKey(key)).Err()
}

// buildKey 拼接全局前缀，例如 ck:checkout:busy:cart_1
func buildKey(key string) string {
	shared.mu.RLock()
	prefix := shared.prefix
	shared.mu.RUnlock()
	if key = strings.TrimSpace(key); key == "" {
		return prefix
	}
	return prefix + ":" + key
}
