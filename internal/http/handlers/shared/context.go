package shared

import (
	"strings"

	"github.com/dujiao-next/checkout/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetPathParam 读取必填路径参数，缺失时直接返回 400。
func GetPathParam(c *gin.Context, name string) (string, bool) {
	value := strings.TrimSpace(c.Param(name))
	if value == "" {
		RespondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return "", false
	}
	return value, true
}
