package public

import "github.com/dujiao-next/checkout/internal/provider"

// Handler 前台结账接口处理器入口
// 说明：所有接口都以路径中的 cart_id 定位购物车。
type Handler struct {
	*provider.Container
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
