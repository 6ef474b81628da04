package config

import (
	"fmt"
	"strings"

	"github.com/dujiao-next/checkout/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Security SecurityConfig `mapstructure:"security"`
	Commerce CommerceConfig `mapstructure:"commerce"`
	Checkout CheckoutConfig `mapstructure:"checkout"`
	Payment  PaymentConfig  `mapstructure:"payment"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
	Console    bool   `mapstructure:"console"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Level:      c.Level,
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
		Console:    c.Console,
	}
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	SubmitRateLimit RateLimitConfig `mapstructure:"submit_rate_limit"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxAttempts   int `mapstructure:"max_attempts"`
}

// CommerceConfig 外部电商后端配置
type CommerceConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	PublishableKey string `mapstructure:"publishable_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// CheckoutConfig 结账流程配置
type CheckoutConfig struct {
	BusyTTLSeconds         int                   `mapstructure:"busy_ttl_seconds"`
	ConfirmationTTLMinutes int                   `mapstructure:"confirmation_ttl_minutes"`
	ProviderRules          []PaymentProviderRule `mapstructure:"provider_rules"`
}

// PaymentProviderRule 支付提供方分类规则（按 provider_id 前缀匹配）
type PaymentProviderRule struct {
	Prefix string `mapstructure:"prefix"`
	Flow   string `mapstructure:"flow"`   // interactive / deferred
	Family string `mapstructure:"family"` // stripe / paypal / manual ...
}

// PaymentConfig 支付确认所需的第三方配置
type PaymentConfig struct {
	Stripe StripeConfig `mapstructure:"stripe"`
	Paypal PaypalConfig `mapstructure:"paypal"`
}

// StripeConfig Stripe 配置
type StripeConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	SecretKey  string `mapstructure:"secret_key"`
	APIBaseURL string `mapstructure:"api_base_url"`
}

// PaypalConfig PayPal 配置
type PaypalConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	BaseURL      string `mapstructure:"base_url"`
}

// Load 从 config.yml 加载配置
func Load() *Config {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")     // 从当前目录查找
	v.AddConfigPath("../")   // 如果从 cmd/server 运行
	v.AddConfigPath("./etc") // etc 文件夹

	SetDefaults(v)

	// 环境变量支持
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // server.port -> SERVER_PORT

	if err := v.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	cfg, err := Decode(v)
	if err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(err)
	}
	return cfg
}

// Decode 将 viper 内容解析为配置结构
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("配置解析失败: %w", err)
	}
	cfg.Commerce.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Commerce.BaseURL), "/")
	return &cfg, nil
}

// SetDefaults 写入默认配置
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.level", "")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "checkout.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("log.console", false)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "ck")
	v.SetDefault("queue.enabled", true)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.queues", map[string]int{
		"default":  10,
		"critical": 5,
	})
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Accept-Language",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
	})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("security.submit_rate_limit.window_seconds", 60)
	v.SetDefault("security.submit_rate_limit.max_attempts", 5)
	v.SetDefault("commerce.base_url", "http://127.0.0.1:9000")
	v.SetDefault("commerce.publishable_key", "")
	v.SetDefault("commerce.timeout_seconds", 15)
	v.SetDefault("checkout.busy_ttl_seconds", 60)
	v.SetDefault("checkout.confirmation_ttl_minutes", 30)
	v.SetDefault("payment.stripe.enabled", false)
	v.SetDefault("payment.stripe.secret_key", "")
	v.SetDefault("payment.stripe.api_base_url", "https://api.stripe.com")
	v.SetDefault("payment.paypal.enabled", false)
	v.SetDefault("payment.paypal.client_id", "")
	v.SetDefault("payment.paypal.client_secret", "")
	v.SetDefault("payment.paypal.base_url", "https://api-m.sandbox.paypal.com")
}
