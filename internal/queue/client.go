package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dujiao-next/checkout/internal/config"
	"github.com/dujiao-next/checkout/internal/constants"
	"github.com/dujiao-next/checkout/internal/logger"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault
	// CriticalQueue 下单收尾等不可丢的任务
	CriticalQueue = constants.QueueCritical

	orderPlacedMaxRetry    = 5
	sessionCleanupMaxRetry = 3
	taskRetention          = 24 * time.Hour
	defaultShutdownTimeout = 8 * time.Second
)

// Client 队列客户端封装，未启用时所有投递均为空操作
type Client struct {
	client *asynq.Client
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{}, nil
	}
	return &Client{client: asynq.NewClient(buildRedisOpt(cfg))}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

// OrderPlacedTaskID 同一订单只投递一次
func OrderPlacedTaskID(orderID string) string {
	return "order_placed:" + strings.TrimSpace(orderID)
}

// SessionCleanupTaskID 同一支付会话只保留一个清理任务
func SessionCleanupTaskID(cartID, sessionID string) string {
	return fmt.Sprintf("session_cleanup:%s:%s", strings.TrimSpace(cartID), strings.TrimSpace(sessionID))
}

// EnqueueOrderPlaced 推送下单成功任务
func (c *Client) EnqueueOrderPlaced(payload OrderPlacedPayload, opts ...asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewOrderPlacedTask(payload)
	if err != nil {
		return err
	}
	options := append([]asynq.Option{
		asynq.Queue(CriticalQueue),
		asynq.MaxRetry(orderPlacedMaxRetry),
		asynq.TaskID(OrderPlacedTaskID(payload.OrderID)),
		asynq.Retention(taskRetention),
	}, opts...)
	return ignoreDuplicate(c.client.Enqueue(task, options...))
}

// EnqueueSessionCleanup 在 delay 后清理支付确认标记
func (c *Client) EnqueueSessionCleanup(payload SessionCleanupPayload, delay time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	if delay < 0 {
		delay = 0
	}
	task, err := NewSessionCleanupTask(payload)
	if err != nil {
		return err
	}
	return ignoreDuplicate(c.client.Enqueue(task,
		asynq.Queue(DefaultQueue),
		asynq.ProcessIn(delay),
		asynq.MaxRetry(sessionCleanupMaxRetry),
		asynq.TaskID(SessionCleanupTaskID(payload.CartID, payload.SessionID)),
	))
}

func ignoreDuplicate(_ *asynq.TaskInfo, err error) error {
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

// BuildServerConfig 生成队列服务配置；结账用到的队列即使未配置也会被消费
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	concurrency := 10
	queues := map[string]int{}
	if cfg != nil {
		if cfg.Concurrency > 0 {
			concurrency = cfg.Concurrency
		}
		for name, weight := range cfg.Queues {
			if strings.TrimSpace(name) != "" && weight > 0 {
				queues[name] = weight
			}
		}
	}
	if _, ok := queues[CriticalQueue]; !ok {
		queues[CriticalQueue] = 5
	}
	if _, ok := queues[DefaultQueue]; !ok {
		queues[DefaultQueue] = 1
	}
	return buildRedisOpt(cfg), asynq.Config{
		Concurrency:     concurrency,
		Queues:          queues,
		ShutdownTimeout: defaultShutdownTimeout,
		Logger:          logger.Named("asynq"),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			logger.Warnw("queue_task_failed", "task", task.Type(), "retried", retried, "error", err)
		}),
	}
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	opt := asynq.RedisClientOpt{Addr: "127.0.0.1:6379"}
	if cfg == nil {
		return opt
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	opt.Addr = fmt.Sprintf("%s:%d", host, port)
	opt.Password = cfg.Password
	opt.DB = cfg.DB
	return opt
}
