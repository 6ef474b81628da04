package service

import (
	"context"

	"github.com/dujiao-next/checkout/internal/models"
)

// CommerceBackend 外部电商后端的购物车命令接口
type CommerceBackend interface {
	// RetrieveCart 购物车不存在时返回 nil, nil
	RetrieveCart(ctx context.Context, cartID string) (*models.Cart, error)
	SetAddresses(ctx context.Context, cartID string, shipping, billing *models.Address, email string) (*models.Cart, error)
	UpdateEmail(ctx context.Context, cartID string, email string) (*models.Cart, error)
	AddShippingMethod(ctx context.Context, cartID string, optionID string) (*models.Cart, error)
	InitiatePaymentSession(ctx context.Context, cart *models.Cart, providerID string) (*models.Cart, error)
	ApplyPromotions(ctx context.Context, cartID string, codes []string) (*models.Cart, error)
	PlaceOrder(ctx context.Context, cartID string) (*models.PlaceOrderResult, error)
}

// CartLocker 购物车忙碌标记，同一购物车同时只允许一个在途请求
type CartLocker interface {
	// TryLock 获取失败（已有在途请求）时 ok 为 false
	TryLock(ctx context.Context, cartID string) (unlock func(), ok bool, err error)
}

// PaymentConfirmationStore 记录交互式支付在本次会话中是否已确认
type PaymentConfirmationStore interface {
	MarkConfirmed(ctx context.Context, cartID, sessionID string) error
	IsConfirmed(ctx context.Context, cartID, sessionID string) (bool, error)
	Clear(ctx context.Context, cartID string) error
}

// PaymentConfirmer 向第三方核实交互式支付状态
type PaymentConfirmer interface {
	Confirm(ctx context.Context, session models.PaymentSession) (*PaymentConfirmation, error)
}

// PaymentConfirmation 第三方核实结果
type PaymentConfirmation struct {
	Status      string // success / pending / declined
	Reason      string
	ProviderRef string
}
