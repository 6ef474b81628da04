package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

const (
	defaultReadHeaderTimeout = 10 * time.Second
	defaultIdleTimeout       = 60 * time.Second
	// 写超时需覆盖一次完整的下单调用，在后端超时之上再留余量
	writeTimeoutMargin = 15 * time.Second
)

// HTTPService HTTP 服务封装
type HTTPService struct {
	server *http.Server
}

// NewHTTPService 创建 HTTP 服务，backendTimeout 为电商后端单次请求超时
func NewHTTPService(addr string, handler http.Handler, backendTimeout time.Duration) *HTTPService {
	return &HTTPService{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: defaultReadHeaderTimeout,
			WriteTimeout:      backendTimeout + writeTimeoutMargin,
			IdleTimeout:       defaultIdleTimeout,
		},
	}
}

// Name 服务名称
func (s *HTTPService) Name() string {
	return "http"
}

// Start 先监听端口再对外服务，端口占用时立即返回错误
func (s *HTTPService) Start(ctx context.Context) error {
	if s == nil || s.server == nil {
		return errors.New("http server not initialized")
	}
	listener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", s.server.Addr)
	if err != nil {
		return err
	}
	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 停止服务，等待在途请求（包括下单）结束
func (s *HTTPService) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
