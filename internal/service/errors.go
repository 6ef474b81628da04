package service

import (
	"errors"
	"fmt"
)

var (
	// 配置类错误（不可恢复）
	ErrConfiguration = errors.New("cart configuration invalid")

	// 购物车与后端交互
	ErrCartNotFound          = errors.New("cart not found")
	ErrCartBusy              = errors.New("cart has a request in flight")
	ErrStaleCartResponse     = errors.New("stale cart response discarded")
	ErrBackendRequestFailed  = errors.New("commerce backend request failed")
	ErrCartTotalsMismatch    = errors.New("cart totals mismatch")
	ErrLineItemInvalid       = errors.New("line item invalid")
	ErrLineItemNotFound      = errors.New("line item not found")
	ErrAddressInvalid        = errors.New("address invalid")
	ErrEmailInvalid          = errors.New("email invalid")
	ErrShippingOptionInvalid = errors.New("shipping option invalid")

	// 活动优惠码
	ErrPromotionInvalid   = errors.New("promotion invalid")
	ErrEmptyPromotionCode = fmt.Errorf("%w: code is empty", ErrPromotionInvalid)
	ErrPromotionRejected  = fmt.Errorf("%w: rejected by backend", ErrPromotionInvalid)

	// 结账步骤
	ErrStepGated   = errors.New("checkout step gated")
	ErrStepUnknown = errors.New("checkout step unknown")

	// 支付
	ErrPaymentProviderInvalid    = errors.New("payment provider invalid")
	ErrPaymentDeclined           = errors.New("payment declined")
	ErrPaymentPending            = errors.New("payment confirmation pending")
	ErrPaymentFlowNotInteractive = errors.New("payment flow is not interactive")
	ErrPaymentConfirmerMissing   = errors.New("payment confirmer not configured")
	ErrPaymentConfirmationFailed = errors.New("payment confirmation failed")
	ErrPaymentSessionUnavailable = errors.New("payment session unavailable")
	ErrConfirmationStoreFailed   = errors.New("payment confirmation store failed")

	// 下单
	ErrIncompleteCheckout   = errors.New("checkout incomplete")
	ErrNoPaymentMethod      = errors.New("no payment method selected")
	ErrPaymentNotConfirmed  = errors.New("payment not confirmed")
	ErrOrderPlacementFailed = errors.New("order placement failed")
)

// StepGateError 请求的步骤前置未完成，需要停留在最早未完成的步骤
type StepGateError struct {
	Requested string
	Redirect  string
}

func (e *StepGateError) Error() string {
	return fmt.Sprintf("checkout step %q gated, redirect to %q", e.Requested, e.Redirect)
}

// Is 匹配 ErrStepGated
func (e *StepGateError) Is(target error) bool {
	return target == ErrStepGated
}

// PaymentDeclinedError 第三方拒绝支付，用户可在支付步骤重试
type PaymentDeclinedError struct {
	ProviderID string
	Reason     string
}

func (e *PaymentDeclinedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("payment declined by %s", e.ProviderID)
	}
	return fmt.Sprintf("payment declined by %s: %s", e.ProviderID, e.Reason)
}

// Is 匹配 ErrPaymentDeclined
func (e *PaymentDeclinedError) Is(target error) bool {
	return target == ErrPaymentDeclined
}

// Retryable 拒付始终允许用户重试
func (e *PaymentDeclinedError) Retryable() bool {
	return true
}

// BackendError 外部电商后端返回的错误，保留原始信息
type BackendError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Is 匹配 ErrBackendRequestFailed
func (e *BackendError) Is(target error) bool {
	return target == ErrBackendRequestFailed
}
