package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/dujiao-next/checkout/internal/app"
	"github.com/dujiao-next/checkout/internal/config"
	"github.com/dujiao-next/checkout/internal/logger"

	"github.com/gin-gonic/gin"
)

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiMag    = "\033[95m"
)

func main() {
	modeFlag := flag.String("mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.Parse()

	mode, err := app.ParseMode(*modeFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg := config.Load()
	release := cfg.Server.Mode == "release"
	printBanner(mode, cfg.Server.Mode)

	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	fatal, warnings := preflight(cfg, release)
	for _, w := range warnings {
		fmt.Println(ansiYellow + "! " + w + ansiReset)
		logger.Warnw("startup_preflight", "warning", w)
	}
	if fatal != "" {
		stdLog.Fatalf("启动检查失败: %s", fatal)
	}

	if release {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

// preflight 检查会导致结账不可用的配置，release 模式下缺少商城密钥直接退出
func preflight(cfg *config.Config, release bool) (string, []string) {
	var warnings []string
	if strings.TrimSpace(cfg.Commerce.PublishableKey) == "" {
		if release {
			return "未配置 commerce.publishable_key，无法访问商城后端", warnings
		}
		warnings = append(warnings, "未配置 commerce.publishable_key，商城后端可能拒绝请求")
	}
	if cfg.Payment.Stripe.Enabled && !looksLikeStripeSecret(cfg.Payment.Stripe.SecretKey) {
		warnings = append(warnings, "Stripe secret key 为空或格式异常，交互式支付确认将失败")
	}
	if cfg.Payment.Paypal.Enabled && (strings.TrimSpace(cfg.Payment.Paypal.ClientID) == "" || strings.TrimSpace(cfg.Payment.Paypal.ClientSecret) == "") {
		warnings = append(warnings, "PayPal 凭证不完整，PayPal 支付确认将不可用")
	}
	if !cfg.Redis.Enabled {
		warnings = append(warnings, "Redis 未启用，购物车锁与限流只在单实例内生效")
	}
	return "", warnings
}

func looksLikeStripeSecret(secret string) bool {
	secret = strings.TrimSpace(secret)
	if len(secret) < 16 {
		return false
	}
	return strings.HasPrefix(secret, "sk_") || strings.HasPrefix(secret, "rk_")
}

func printBanner(mode, serverMode string) {
	line := strings.Repeat("=", 62)
	fmt.Println(ansiMag + line + ansiReset)
	fmt.Println(ansiMag + ansiBold + "  Dujiao-Next Checkout" + ansiReset)
	fmt.Println(ansiMag + line + ansiReset)
	fmt.Printf("%s  mode=%s  server=%s%s\n", ansiGreen, mode, serverMode, ansiReset)
	fmt.Println(ansiDim + strings.Repeat("-", 62) + ansiReset)
}
