package service

import (
	"fmt"
	"strings"

	"github.com/dujiao-next/checkout/internal/constants"
	"github.com/dujiao-next/checkout/internal/models"
)

// checkoutSteps 结账步骤顺序，不允许跳步
var checkoutSteps = []string{
	constants.StepAddress,
	constants.StepDelivery,
	constants.StepPayment,
	constants.StepReview,
}

// CheckoutStepMachine 结账步骤状态机，当前步骤由购物车内容推导，不做存储
type CheckoutStepMachine struct{}

// NewCheckoutStepMachine 创建结账步骤状态机
func NewCheckoutStepMachine() *CheckoutStepMachine {
	return &CheckoutStepMachine{}
}

// Steps 返回全部步骤（有序）
func (m *CheckoutStepMachine) Steps() []string {
	return append([]string(nil), checkoutSteps...)
}

// IsKnownStep 判断步骤名是否合法
func IsKnownStep(step string) bool {
	return stepIndex(step) >= 0
}

// IsComplete 判断步骤是否完成
func (m *CheckoutStepMachine) IsComplete(step string, cart *models.Cart) bool {
	if cart == nil {
		return false
	}
	switch normalizeStep(step) {
	case constants.StepAddress:
		return cart.ShippingAddress != nil
	case constants.StepDelivery:
		return m.IsComplete(constants.StepAddress, cart) && len(cart.ShippingMethods) > 0
	case constants.StepPayment:
		// 礼品卡全额抵扣的购物车无需支付会话
		return m.IsComplete(constants.StepDelivery, cart) &&
			(cart.PaymentCollection != nil || cart.PaidByGiftCards())
	case constants.StepReview:
		return m.IsComplete(constants.StepPayment, cart)
	default:
		return false
	}
}

// AllowedSteps 返回前置步骤全部完成的步骤（有序）
func (m *CheckoutStepMachine) AllowedSteps(cart *models.Cart) []string {
	allowed := []string{checkoutSteps[0]}
	for i := 1; i < len(checkoutSteps); i++ {
		if !m.IsComplete(checkoutSteps[i-1], cart) {
			break
		}
		allowed = append(allowed, checkoutSteps[i])
	}
	return allowed
}

// IsAllowed 判断步骤是否可进入
func (m *CheckoutStepMachine) IsAllowed(step string, cart *models.Cart) bool {
	idx := stepIndex(step)
	if idx < 0 {
		return false
	}
	return idx < len(m.AllowedSteps(cart))
}

// EarliestIncomplete 返回最早未完成的步骤，全部完成时返回 review
func (m *CheckoutStepMachine) EarliestIncomplete(cart *models.Cart) string {
	for _, step := range checkoutSteps[:len(checkoutSteps)-1] {
		if !m.IsComplete(step, cart) {
			return step
		}
	}
	return constants.StepReview
}

// ActiveStep 解析请求的步骤；被拦截时返回 StepGateError，并给出应停留的步骤
func (m *CheckoutStepMachine) ActiveStep(cart *models.Cart, requested string) (string, error) {
	step := normalizeStep(requested)
	if step == "" {
		return m.EarliestIncomplete(cart), nil
	}
	if !IsKnownStep(step) {
		return m.EarliestIncomplete(cart), fmt.Errorf("%w: %q", ErrStepUnknown, requested)
	}
	if m.IsAllowed(step, cart) {
		return step, nil
	}
	redirect := m.EarliestIncomplete(cart)
	return redirect, &StepGateError{Requested: step, Redirect: redirect}
}

func stepIndex(step string) int {
	step = normalizeStep(step)
	for i, item := range checkoutSteps {
		if item == step {
			return i
		}
	}
	return -1
}

func normalizeStep(step string) string {
	return strings.ToLower(strings.TrimSpace(step))
}
