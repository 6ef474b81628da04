package router

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dujiao-next/checkout/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestIDKey       = "request_id"
	requestIDHeader    = "X-Request-ID"
	maxRequestIDLength = 64
)

var defaultCORSHeaders = []string{
	"Content-Type",
	"Content-Length",
	"Accept-Encoding",
	"Accept-Language",
	"Authorization",
	"Cache-Control",
	"X-Requested-With",
	requestIDHeader,
}

// corsPolicy 预先计算好的跨域策略
type corsPolicy struct {
	anyOrigin        bool
	origins          map[string]struct{}
	allowCredentials bool
	methods          string
	headers          string
	exposeHeaders    string
	maxAge           string
}

func newCORSPolicy(cfg config.CORSConfig) *corsPolicy {
	p := &corsPolicy{
		origins:          make(map[string]struct{}, len(cfg.AllowedOrigins)),
		allowCredentials: cfg.AllowCredentials,
		exposeHeaders:    strings.Join([]string{requestIDHeader, "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"}, ", "),
	}
	for _, origin := range cfg.AllowedOrigins {
		origin = strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
		if origin == "" {
			continue
		}
		if origin == "*" {
			p.anyOrigin = true
			continue
		}
		p.origins[origin] = struct{}{}
	}
	if len(cfg.AllowedOrigins) == 0 {
		p.anyOrigin = true
	}

	methods := cfg.AllowedMethods
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}
	}
	headers := cfg.AllowedHeaders
	if len(headers) == 0 {
		headers = defaultCORSHeaders
	}
	p.methods = strings.Join(methods, ", ")
	p.headers = strings.Join(headers, ", ")
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(cfg.MaxAge)
	}
	return p
}

// allowOrigin 返回应写入 Access-Control-Allow-Origin 的值，空串表示不允许。
// 携带凭证时不能返回 *，需要回显具体来源。
func (p *corsPolicy) allowOrigin(origin string) string {
	if p.anyOrigin {
		if p.allowCredentials && origin != "" {
			return origin
		}
		return "*"
	}
	if origin == "" {
		return ""
	}
	if _, ok := p.origins[strings.ToLower(strings.TrimRight(origin, "/"))]; ok {
		return origin
	}
	return ""
}

// CORSMiddleware 跨域中间件，结账页通常部署在独立的店铺域名下
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	policy := newCORSPolicy(cfg)
	return func(c *gin.Context) {
		header := c.Writer.Header()
		if allowed := policy.allowOrigin(c.GetHeader("Origin")); allowed != "" {
			header.Set("Access-Control-Allow-Origin", allowed)
			if allowed != "*" {
				header.Add("Vary", "Origin")
			}
			if policy.allowCredentials {
				header.Set("Access-Control-Allow-Credentials", "true")
			}
			header.Set("Access-Control-Expose-Headers", policy.exposeHeaders)
		}

		if c.Request.Method == http.MethodOptions {
			header.Set("Access-Control-Allow-Headers", policy.headers)
			header.Set("Access-Control-Allow-Methods", policy.methods)
			if policy.maxAge != "" {
				header.Set("Access-Control-Max-Age", policy.maxAge)
			}
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestIDMiddleware 请求 ID 中间件，沿用上游传入的合法 ID
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := sanitizeRequestID(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

// sanitizeRequestID 只接受长度有限的字母数字与 - _ . 组成的 ID，防止日志注入
func sanitizeRequestID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxRequestIDLength {
		return ""
	}
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return ""
		}
	}
	return raw
}

// LoggerMiddleware 结构化访问日志，5xx 记为 error，4xx 记为 warn
func LoggerMiddleware(logger *zap.Logger, skipPaths ...string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.L()
	}
	sugar := logger.Sugar()
	skip := make(map[string]struct{}, len(skipPaths))
	for _, path := range skipPaths {
		skip[path] = struct{}{}
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if _, ok := skip[c.Request.URL.Path]; ok {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		log := sugar.With(
			"request_id", getRequestID(c),
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		if cartID := c.Param("cart_id"); cartID != "" {
			log = log.With("cart_id", cartID)
		}
		switch {
		case len(c.Errors) > 0 || status >= http.StatusInternalServerError:
			log.Errorw("request", "errors", c.Errors.String())
		case status >= http.StatusBadRequest:
			log.Warnw("request")
		default:
			log.Infow("request")
		}
	}
}

func getRequestID(c *gin.Context) string {
	if requestID, ok := c.Get(requestIDKey); ok {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return ""
}
