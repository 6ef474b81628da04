package app

import (
	"context"
	"errors"
	"os/signal"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Service 服务接口
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// errServiceExited 任一服务退出即触发整体停机
var errServiceExited = errors.New("service exited")

// Runner 统一管理 HTTP 与 Worker 的生命周期
type Runner struct {
	services []Service
	closers  []func() error
}

// NewRunner 创建服务运行器
func NewRunner(services ...Service) *Runner {
	return &Runner{services: services}
}

// OnShutdown 注册所有服务停止后执行的清理函数（关闭队列客户端、Redis 连接等）
func (r *Runner) OnShutdown(fn func() error) {
	if r == nil || fn == nil {
		return
	}
	r.closers = append(r.closers, fn)
}

// RunWithOptions 运行服务并处理系统信号
func RunWithOptions(runner *Runner, opts Options) error {
	if runner == nil {
		return errors.New("runner is nil")
	}
	opts = normalizeOptions(opts)
	ctx := context.Background()
	if len(opts.Signals) > 0 {
		var cancel context.CancelFunc
		ctx, cancel = signal.NotifyContext(ctx, opts.Signals...)
		defer cancel()
	}
	return runner.Run(ctx, opts.ShutdownTimeout, opts.Logger)
}

// Run 启动全部服务，收到信号或任一服务退出后按超时停止其余服务
func (r *Runner) Run(ctx context.Context, stopTimeout time.Duration, log *zap.SugaredLogger) error {
	if r == nil || len(r.services) == 0 {
		return errors.New("no services to run")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	for _, svc := range r.services {
		if svc == nil {
			return errors.New("service is nil")
		}
	}
	if stopTimeout <= 0 {
		stopTimeout = 10 * time.Second
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, svc := range r.services {
		svc := svc
		group.Go(func() error {
			log.Infow("service_start", "service", svc.Name())
			err := svc.Start(groupCtx)
			log.Infow("service_exit", "service", svc.Name(), "error", err)
			if err == nil {
				return errServiceExited
			}
			return err
		})
	}
	group.Go(func() error {
		<-groupCtx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		for _, svc := range r.services {
			if err := svc.Stop(stopCtx); err != nil {
				log.Errorw("service_stop_failed", "service", svc.Name(), "error", err)
			}
		}
		return nil
	})

	runErr := group.Wait()
	for _, closeFn := range r.closers {
		if err := closeFn(); err != nil {
			log.Warnw("service_cleanup_failed", "error", err)
		}
	}
	if errors.Is(runErr, errServiceExited) || errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}
