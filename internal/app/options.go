package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dujiao-next/checkout/internal/config"
	"github.com/dujiao-next/checkout/internal/logger"

	"go.uber.org/zap"
)

// 进程运行模式
const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

// Options 应用启动选项
type Options struct {
	Config          *config.Config
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            string
}

// ParseMode 校验运行模式，空值视为 all
func ParseMode(raw string) (string, error) {
	mode := strings.ToLower(strings.TrimSpace(raw))
	switch mode {
	case "":
		return ModeAll, nil
	case ModeAll, ModeAPI, ModeWorker:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want all, api or worker)", raw)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = logger.S()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if mode, err := ParseMode(opts.Mode); err == nil {
		opts.Mode = mode
	}
	return opts
}
