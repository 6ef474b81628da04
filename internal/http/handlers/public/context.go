package public

import (
	handlershared "github.com/dujiao-next/checkout/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func getCartID(c *gin.Context) (string, bool) {
	return handlershared.GetPathParam(c, "cart_id")
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondErrorWithData(c *gin.Context, code int, key string, data interface{}, err error) {
	handlershared.RespondErrorWithData(c, code, key, data, err)
}

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}
