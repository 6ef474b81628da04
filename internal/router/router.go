package router

import (
	"fmt"
	"strings"

	"github.com/dujiao-next/checkout/internal/cache"
	"github.com/dujiao-next/checkout/internal/config"
	"github.com/dujiao-next/checkout/internal/constants"
	publichandlers "github.com/dujiao-next/checkout/internal/http/handlers/public"
	"github.com/dujiao-next/checkout/internal/http/response"
	"github.com/dujiao-next/checkout/internal/logger"
	"github.com/dujiao-next/checkout/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = constants.RedisPrefixDefault
	}
	submitRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:submit", redisPrefix),
		WindowSeconds: cfg.Security.SubmitRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.SubmitRateLimit.MaxAttempts,
		MessageKey:    "error.rate_limited",
	}
	submitLimiter := NewRateLimiter(cache.Client(), submitRule)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log, "/health"))
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/health", func(ctx *gin.Context) {
		if err := cache.Ping(ctx.Request.Context()); err != nil {
			logger.Warnw("health_redis_ping_failed", "error", err)
			response.Error(ctx, response.CodeServiceUnavailable, "redis unavailable")
			return
		}
		response.Success(ctx, gin.H{"status": "ok"})
	})

	apiV1 := r.Group("/api/v1")
	{
		checkout := apiV1.Group("/checkout/:cart_id")
		{
			checkout.GET("/summary", publicHandler.GetSummary)
			checkout.GET("/step", publicHandler.GetActiveStep)
			checkout.GET("/steps", publicHandler.GetAllowedSteps)
			checkout.GET("/totals", publicHandler.GetTotals)
			checkout.GET("/items/:item_id/price", publicHandler.GetItemPrice)
			checkout.GET("/payment-flow", publicHandler.GetPaymentFlow)

			checkout.POST("/addresses", publicHandler.SetAddresses)
			checkout.POST("/email", publicHandler.SetEmail)
			checkout.POST("/shipping-methods", publicHandler.SetShippingMethod)
			checkout.POST("/payment-sessions", publicHandler.InitiatePaymentSession)
			checkout.POST("/payment/confirm", publicHandler.ConfirmPayment)
			checkout.POST("/promotions", publicHandler.ApplyPromotion)
			checkout.DELETE("/promotions/:code", publicHandler.RemovePromotion)
			checkout.POST("/submit", RateLimitMiddleware(submitLimiter, KeyByParam("cart_id")), publicHandler.SubmitOrder)
		}
	}

	return r
}
