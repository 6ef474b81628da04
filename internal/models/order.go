package models

import "time"

// Order 下单成功后的只读订单
type Order struct {
	ID           string     `json:"id"`                   // 订单ID
	DisplayID    int64      `json:"display_id"`           // 展示编号
	CartID       string     `json:"cart_id"`              // 来源购物车ID
	Email        string     `json:"email"`                // 联系邮箱
	Status       string     `json:"status"`               // 订单状态
	CurrencyCode string     `json:"currency_code"`        // 币种
	Items        []LineItem `json:"items,omitempty"`      // 商品行
	Total        int64      `json:"total"`                // 实付金额
	CreatedAt    *time.Time `json:"created_at,omitempty"` // 创建时间
}

// PlaceOrderResult 下单命令的返回：成功时为订单，失败时后端退回购物车与错误信息
type PlaceOrderResult struct {
	Type  string `json:"type"`            // order / cart
	Order *Order `json:"order,omitempty"` // 订单
	Cart  *Cart  `json:"cart,omitempty"`  // 下单失败时的购物车
	Error string `json:"error,omitempty"` // 失败原因
}
