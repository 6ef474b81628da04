package worker

import (
	"context"
	"errors"

	"github.com/dujiao-next/checkout/internal/config"
	"github.com/dujiao-next/checkout/internal/logger"
	"github.com/dujiao-next/checkout/internal/queue"

	"github.com/hibiken/asynq"
)

// ErrQueueDisabled 队列未启用
var ErrQueueDisabled = errors.New("queue disabled")

// Service 异步任务消费服务。
// 使用 Start/Shutdown 而非 Run，信号统一由 app.Runner 处理。
type Service struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, ErrQueueDisabled
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		server: asynq.NewServer(opt, serverCfg),
		mux:    mux,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	return "worker"
}

// Start 启动消费并阻塞到 ctx 结束
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	logger.Infow("worker_started", "tasks", []string{queue.TaskOrderPlaced, queue.TaskSessionCleanup})
	<-ctx.Done()
	return nil
}

// Stop 等待在途任务完成后退出
func (s *Service) Stop(_ context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	s.server.Shutdown()
	return nil
}
