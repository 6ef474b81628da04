package service

import (
	"errors"

	"github.com/dujiao-next/checkout/internal/commerce"
)

// wrapBackendError 统一包装后端调用错误，保留后端原始信息
func wrapBackendError(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *commerce.APIError
	if errors.As(err, &apiErr) {
		return &BackendError{Op: op, StatusCode: apiErr.StatusCode, Message: apiErr.Message}
	}
	return &BackendError{Op: op, Message: err.Error()}
}
