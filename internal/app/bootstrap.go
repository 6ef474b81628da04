package app

import (
	"errors"
	"time"

	"github.com/dujiao-next/checkout/internal/config"
	"github.com/dujiao-next/checkout/internal/logger"
	"github.com/dujiao-next/checkout/internal/provider"
	"github.com/dujiao-next/checkout/internal/router"
	"github.com/dujiao-next/checkout/internal/worker"
)

// BuildRunner 按运行模式组装服务
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	mode, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}

	container := provider.NewContainer(cfg)
	var services []Service

	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		backendTimeout := time.Duration(cfg.Commerce.TimeoutSeconds) * time.Second
		services = append(services, NewHTTPService(addr, engine, backendTimeout))
	}

	if mode == ModeAll || mode == ModeWorker {
		workerService, err := worker.NewService(&cfg.Queue, worker.NewConsumer(container))
		switch {
		case err == nil:
			services = append(services, workerService)
		case mode == ModeWorker:
			_ = container.Close()
			return nil, err
		default:
			// all 模式下队列关闭时只跑 API，确认标记依赖 TTL 自然过期
			logger.Warnw("app_worker_skipped", "error", err)
		}
	}

	if len(services) == 0 {
		_ = container.Close()
		return nil, errors.New("no services initialized (check mode and config)")
	}

	runner := NewRunner(services...)
	runner.OnShutdown(container.Close)
	return runner, nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
