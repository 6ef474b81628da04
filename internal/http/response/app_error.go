package response

// AppError 接口层错误：业务码、国际化 key、已翻译的消息与原始错误
type AppError struct {
	Code    int
	Key     string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WrapError 包装错误
func WrapError(code int, key, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Key:     key,
		Message: message,
		Err:     err,
	}
}

// Internal 5xx 错误需要保留原始错误用于排查
func (e *AppError) Internal() bool {
	return e.Code >= CodeInternal
}
