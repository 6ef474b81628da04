package response

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构。
// HTTP 状态恒为 200，业务结果看 status_code；error_code 是不随语言变化的错误标识，
// 结账前端据此决定跳转（例如 step_gated）。
type Response struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code,omitempty"`
	Msg        string      `json:"msg"`
	Data       interface{} `json:"data"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	SuccessWithMsg(c, "success", data)
}

// SuccessWithMsg 成功响应（自定义消息）
func SuccessWithMsg(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		StatusCode: CodeOK,
		Msg:        msg,
		Data:       data,
	})
}

// Error 错误响应
func Error(c *gin.Context, statusCode int, msg string) {
	Fail(c, &AppError{Code: statusCode, Message: msg}, nil)
}

// ErrorWithData 错误响应（带数据）
func ErrorWithData(c *gin.Context, statusCode int, msg string, data interface{}) {
	Fail(c, &AppError{Code: statusCode, Message: msg}, data)
}

// Fail 按 AppError 输出错误响应，data 中会补充 request_id
func Fail(c *gin.Context, appErr *AppError, data interface{}) {
	if appErr == nil {
		appErr = &AppError{Code: CodeInternal}
	}
	c.JSON(http.StatusOK, Response{
		StatusCode: appErr.Code,
		ErrorCode:  errorCodeFromKey(appErr.Key),
		Msg:        appErr.Message,
		Data:       attachRequestID(c, data),
	})
}

// errorCodeFromKey error.step_gated -> step_gated
func errorCodeFromKey(key string) string {
	return strings.TrimPrefix(strings.TrimSpace(key), "error.")
}

func attachRequestID(c *gin.Context, data interface{}) interface{} {
	requestID := ""
	if c != nil {
		requestID = c.GetString("request_id")
	}
	if requestID == "" {
		return data
	}
	switch v := data.(type) {
	case nil:
		return gin.H{"request_id": requestID}
	case gin.H:
		if _, ok := v["request_id"]; !ok {
			v["request_id"] = requestID
		}
		return v
	default:
		return gin.H{
			"request_id": requestID,
			"data":       data,
		}
	}
}
