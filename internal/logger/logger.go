package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logDirName     = "logs"
	logFilename    = "checkout.log"
	rotateSizeMB   = 100
	rotateBackups  = 7
	rotateMaxAgeDs = 30
)

// Options 日志输出配置
type Options struct {
	Level      string
	Dir        string
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	// Console release 模式下同时输出到标准输出，便于容器采集
	Console bool
}

// L 全局结构化日志实例
var L *zap.Logger

var (
	stdoutOnce   sync.Once
	stdoutLogger *zap.Logger
)

// Init 初始化全局日志
func Init(mode string, options Options) *zap.Logger {
	L = New(mode, options)
	zap.ReplaceGlobals(L)
	return L
}

// New 按运行模式创建日志实例。
// debug 模式只输出彩色控制台；其余模式写入滚动文件，文件不可用时退回标准输出。
func New(mode string, options Options) *zap.Logger {
	level := resolveLevel(mode, options.Level)
	if isDebugMode(mode) {
		return build(zapcore.NewCore(consoleEncoder(), zapcore.Lock(os.Stdout), level))
	}

	cores := make([]zapcore.Core, 0, 2)
	sink, err := rotatingSink(options)
	if err != nil {
		fmt.Fprintf(os.Stderr, "checkout logger: %v, writing to stdout\n", err)
		options.Console = true
	} else {
		cores = append(cores, zapcore.NewCore(jsonEncoder(), sink, level))
	}
	if options.Console {
		cores = append(cores, zapcore.NewCore(jsonEncoder(), zapcore.Lock(os.Stdout), level))
	}
	return build(zapcore.NewTee(cores...))
}

// StdLogger 返回兼容标准库 log 的 logger，供启动阶段使用
func StdLogger() *log.Logger {
	return zap.NewStdLog(Z())
}

// Z 返回可用的结构化日志实例
func Z() *zap.Logger {
	if L != nil {
		return L
	}
	stdoutOnce.Do(func() {
		stdoutLogger = build(zapcore.NewCore(consoleEncoder(), zapcore.Lock(os.Stdout), zap.NewAtomicLevelAt(zap.InfoLevel)))
	})
	return stdoutLogger
}

// S 返回可用的 SugaredLogger
func S() *zap.SugaredLogger {
	return Z().Sugar()
}

// SW 返回带上下文字段的 SugaredLogger
func SW(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return S()
	}
	return S().With(kv...)
}

// Named 返回带组件名的 SugaredLogger，例如 "worker"、"payment"
func Named(component string) *zap.SugaredLogger {
	return S().Named(component)
}

// ForCart 返回携带购物车上下文的 SugaredLogger
func ForCart(cartID string, kv ...interface{}) *zap.SugaredLogger {
	return SW(append([]interface{}{"cart_id", cartID}, kv...)...)
}

func Debugw(message string, kv ...interface{}) { S().Debugw(message, kv...) }

func Infow(message string, kv ...interface{}) { S().Infow(message, kv...) }

func Warnw(message string, kv ...interface{}) { S().Warnw(message, kv...) }

func Errorw(message string, kv ...interface{}) { S().Errorw(message, kv...) }

func build(core zapcore.Core) *zap.Logger {
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
}

func isDebugMode(mode string) bool {
	return strings.EqualFold(strings.TrimSpace(mode), "debug")
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.MessageKey = "message"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.MillisDurationEncoder
	cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	return cfg
}

func jsonEncoder() zapcore.Encoder {
	return zapcore.NewJSONEncoder(encoderConfig())
}

func consoleEncoder() zapcore.Encoder {
	cfg := encoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

// resolveLevel 显式配置的级别优先，否则 debug 模式输出 debug 级别
func resolveLevel(mode string, explicit string) zap.AtomicLevel {
	if name := strings.ToLower(strings.TrimSpace(explicit)); name != "" {
		if parsed, err := zapcore.ParseLevel(name); err == nil {
			return zap.NewAtomicLevelAt(parsed)
		}
	}
	if isDebugMode(mode) {
		return zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zap.NewAtomicLevelAt(zap.InfoLevel)
}

func rotatingSink(options Options) (zapcore.WriteSyncer, error) {
	path, err := resolveLogFilePath(options)
	if err != nil {
		return nil, err
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    positiveOr(options.MaxSizeMB, rotateSizeMB),
		MaxBackups: positiveOr(options.MaxBackups, rotateBackups),
		MaxAge:     positiveOr(options.MaxAgeDays, rotateMaxAgeDs),
		Compress:   options.Compress,
	}), nil
}

// resolveLogFilePath 解析日志文件路径并确认可写，目录缺省为工作目录下的 logs
func resolveLogFilePath(options Options) (string, error) {
	dir := strings.TrimSpace(options.Dir)
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve workdir: %w", err)
		}
		dir = filepath.Join(wd, logDirName)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create log dir: %w", err)
	}

	name := strings.TrimSpace(options.Filename)
	if name == "" {
		name = logFilename
	}
	path := filepath.Join(dir, name)

	probe, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("open log file: %w", err)
	}
	if err := probe.Close(); err != nil {
		return "", fmt.Errorf("close log file: %w", err)
	}
	return path, nil
}

func positiveOr(value int, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}
