package shared

import (
	"github.com/dujiao-next/checkout/internal/http/response"
	"github.com/dujiao-next/checkout/internal/i18n"
	"github.com/dujiao-next/checkout/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回国际化错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, key string, err error) {
	RespondErrorWithData(c, code, key, nil, err)
}

// RespondErrorWithData 返回带附加数据的国际化错误响应。
func RespondErrorWithData(c *gin.Context, code int, key string, data interface{}, err error) {
	locale := i18n.ResolveLocale(c)
	appErr := response.WrapError(code, key, i18n.T(locale, key), err)
	if err != nil {
		log := RequestLog(c).With("code", appErr.Code, "key", appErr.Key, "error", err)
		if appErr.Internal() {
			log.Errorw("handler_error")
		} else {
			log.Warnw("handler_error")
		}
	}
	response.Fail(c, appErr, data)
}
