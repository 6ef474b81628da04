package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/dujiao-next/checkout/internal/constants"
	"github.com/dujiao-next/checkout/internal/logger"
	"github.com/dujiao-next/checkout/internal/models"
)

// SetAddressesInput 设置地址参数
type SetAddressesInput struct {
	Shipping       *models.Address
	Billing        *models.Address
	SameAsShipping bool
	Email          string
}

// PaymentFlowView 支付流程与提交按钮状态
type PaymentFlowView struct {
	Flow     PaymentFlow      `json:"flow"`
	Submit   SubmitAffordance `json:"submit"`
	NotReady bool             `json:"not_ready"`
}

// LineItemSummary 商品行展示
type LineItemSummary struct {
	ItemID   string         `json:"item_id"`
	Title    string         `json:"title"`
	Quantity int64          `json:"quantity"`
	Line     *LineItemPrice `json:"line"`
	Unit     *LineItemPrice `json:"unit"`
}

// PromotionView 活动展示
type PromotionView struct {
	ID        string  `json:"id"`
	Code      string  `json:"code,omitempty"`
	Automatic bool    `json:"automatic"`
	Type      string  `json:"type,omitempty"`
	Value     float64 `json:"value,omitempty"`
}

// CheckoutSummary 单次渲染所需的结账信息
type CheckoutSummary struct {
	CartID         string            `json:"cart_id"`
	ActiveStep     string            `json:"active_step"`
	Redirected     bool              `json:"redirected"`
	AllowedSteps   []string          `json:"allowed_steps"`
	CompletedSteps []string          `json:"completed_steps"`
	Totals         *CartTotals       `json:"totals"`
	Items          []LineItemSummary `json:"items"`
	Promotions     []PromotionView   `json:"promotions"`
	Payment        PaymentFlowView   `json:"payment"`
}

// CheckoutService 面向展示层的结账门面，所有操作都以后端最新购物车为准
type CheckoutService struct {
	backend      CommerceBackend
	locker       CartLocker
	pricing      *PricingService
	ledger       *PromotionLedger
	steps        *CheckoutStepMachine
	router       *PaymentRouter
	submission   *OrderSubmissionCoordinator
	confirmation *PaymentConfirmationService
}

// NewCheckoutService 创建结账门面
func NewCheckoutService(
	backend CommerceBackend,
	locker CartLocker,
	pricing *PricingService,
	ledger *PromotionLedger,
	steps *CheckoutStepMachine,
	router *PaymentRouter,
	submission *OrderSubmissionCoordinator,
	confirmation *PaymentConfirmationService,
) *CheckoutService {
	return &CheckoutService{
		backend:      backend,
		locker:       locker,
		pricing:      pricing,
		ledger:       ledger,
		steps:        steps,
		router:       router,
		submission:   submission,
		confirmation: confirmation,
	}
}

// GetActiveStep 解析当前步骤
func (s *CheckoutService) GetActiveStep(ctx context.Context, cartID, requested string) (string, error) {
	cart, err := s.loadCart(ctx, cartID)
	if err != nil {
		return "", err
	}
	return s.steps.ActiveStep(cart, requested)
}

// GetAllowedSteps 返回可进入的步骤
func (s *CheckoutService) GetAllowedSteps(ctx context.Context, cartID string) ([]string, error) {
	cart, err := s.loadCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return s.steps.AllowedSteps(cart), nil
}

// ComputeLineItemPrice 计算商品行价格
func (s *CheckoutService) ComputeLineItemPrice(ctx context.Context, cartID, itemID string) (*LineItemPrice, error) {
	cart, item, err := s.loadItem(ctx, cartID, itemID)
	if err != nil {
		return nil, err
	}
	return s.pricing.PriceOf(*item, cart.CurrencyCode)
}

// ComputeUnitPrice 计算商品单价
func (s *CheckoutService) ComputeUnitPrice(ctx context.Context, cartID, itemID string) (*LineItemPrice, error) {
	cart, item, err := s.loadItem(ctx, cartID, itemID)
	if err != nil {
		return nil, err
	}
	return s.pricing.UnitPriceOf(*item, cart.CurrencyCode)
}

// ComputeCartTotals 计算购物车合计
func (s *CheckoutService) ComputeCartTotals(ctx context.Context, cartID string) (*CartTotals, error) {
	cart, err := s.loadCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return s.pricing.CartTotals(cart)
}

// GetPaymentFlow 返回支付流程
func (s *CheckoutService) GetPaymentFlow(ctx context.Context, cartID string) (*PaymentFlowView, error) {
	cart, err := s.loadCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	view := s.paymentView(cart)
	return &view, nil
}

// SubmitOrder 提交订单，忙碌标记与购物车读取都由协调器负责
func (s *CheckoutService) SubmitOrder(ctx context.Context, cartID string) (*models.Order, error) {
	return s.submission.SubmitCart(ctx, cartID)
}

// SetAddresses 设置收货/账单地址，可选账单地址同收货地址
func (s *CheckoutService) SetAddresses(ctx context.Context, cartID string, input SetAddressesInput) (*models.Cart, error) {
	if err := validateAddress(input.Shipping); err != nil {
		return nil, err
	}
	billing := input.Billing
	if input.SameAsShipping {
		copied := *input.Shipping
		billing = &copied
	}
	if err := validateAddress(billing); err != nil {
		return nil, err
	}
	email := strings.TrimSpace(input.Email)
	if email != "" {
		normalized, err := normalizeEmail(email)
		if err != nil {
			return nil, err
		}
		email = normalized
	}
	return s.mutate(ctx, cartID, "set_addresses", func(cart *models.Cart) (*models.Cart, error) {
		return s.backend.SetAddresses(ctx, cart.ID, input.Shipping, billing, email)
	})
}

// SetEmail 设置联系邮箱
func (s *CheckoutService) SetEmail(ctx context.Context, cartID, email string) (*models.Cart, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, cartID, "update_email", func(cart *models.Cart) (*models.Cart, error) {
		return s.backend.UpdateEmail(ctx, cart.ID, normalized)
	})
}

// SetShippingMethod 选择配送方式，需先完成地址步骤
func (s *CheckoutService) SetShippingMethod(ctx context.Context, cartID, optionID string) (*models.Cart, error) {
	optionID = strings.TrimSpace(optionID)
	if optionID == "" {
		return nil, ErrShippingOptionInvalid
	}
	return s.mutate(ctx, cartID, "add_shipping_method", func(cart *models.Cart) (*models.Cart, error) {
		if !s.steps.IsAllowed(constants.StepDelivery, cart) {
			return nil, &StepGateError{Requested: constants.StepDelivery, Redirect: s.steps.EarliestIncomplete(cart)}
		}
		return s.backend.AddShippingMethod(ctx, cart.ID, optionID)
	})
}

// InitiatePaymentSession 选择支付方式；新会话覆盖旧会话，重复选择当前方式不发请求
func (s *CheckoutService) InitiatePaymentSession(ctx context.Context, cartID, providerID string) (*models.Cart, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return nil, ErrPaymentProviderInvalid
	}
	return s.mutate(ctx, cartID, "initiate_payment_session", func(cart *models.Cart) (*models.Cart, error) {
		if !s.steps.IsAllowed(constants.StepPayment, cart) {
			return nil, &StepGateError{Requested: constants.StepPayment, Redirect: s.steps.EarliestIncomplete(cart)}
		}
		if active := cart.ActivePaymentSession(); active != nil && active.ProviderID == providerID {
			return cart, nil
		}
		return s.backend.InitiatePaymentSession(ctx, cart, providerID)
	})
}

// ApplyPromotionCode 应用优惠码
func (s *CheckoutService) ApplyPromotionCode(ctx context.Context, cartID, code string) (*models.Cart, error) {
	if strings.TrimSpace(code) == "" {
		return nil, ErrEmptyPromotionCode
	}
	return s.mutate(ctx, cartID, "apply_promotions", func(cart *models.Cart) (*models.Cart, error) {
		return s.ledger.ApplyCode(ctx, cart, code)
	})
}

// RemovePromotionCode 移除优惠码
func (s *CheckoutService) RemovePromotionCode(ctx context.Context, cartID, code string) (*models.Cart, error) {
	if strings.TrimSpace(code) == "" {
		return nil, ErrEmptyPromotionCode
	}
	return s.mutate(ctx, cartID, "remove_promotion", func(cart *models.Cart) (*models.Cart, error) {
		return s.ledger.RemoveCode(ctx, cart, code)
	})
}

// ConfirmPayment 向第三方核实交互式支付
func (s *CheckoutService) ConfirmPayment(ctx context.Context, cartID string) (*PaymentConfirmation, error) {
	unlock, err := acquireCart(ctx, s.locker, cartID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cart, err := s.loadCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return s.confirmation.Confirm(ctx, cart)
}

// Summary 汇总步骤、价格与支付信息；步骤被拦截时返回应停留的步骤而非错误
func (s *CheckoutService) Summary(ctx context.Context, cartID, requestedStep string) (*CheckoutSummary, error) {
	cart, err := s.loadCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	totals, err := s.pricing.CartTotals(cart)
	if err != nil {
		return nil, err
	}

	step, stepErr := s.steps.ActiveStep(cart, requestedStep)
	if stepErr != nil && !errors.Is(stepErr, ErrStepGated) && !errors.Is(stepErr, ErrStepUnknown) {
		return nil, stepErr
	}

	summary := &CheckoutSummary{
		CartID:       cart.ID,
		ActiveStep:   step,
		Redirected:   stepErr != nil,
		AllowedSteps: s.steps.AllowedSteps(cart),
		Totals:       totals,
		Payment:      s.paymentView(cart),
	}
	summary.CompletedSteps = make([]string, 0, len(checkoutSteps))
	for _, item := range checkoutSteps {
		if s.steps.IsComplete(item, cart) {
			summary.CompletedSteps = append(summary.CompletedSteps, item)
		}
	}
	summary.Items = make([]LineItemSummary, 0, len(cart.Items))
	for _, item := range cart.Items {
		line, err := s.pricing.PriceOf(item, cart.CurrencyCode)
		if err != nil {
			return nil, err
		}
		entry := LineItemSummary{ItemID: item.ID, Title: item.Title, Quantity: item.Quantity, Line: line}
		if unit, err := s.pricing.UnitPriceOf(item, cart.CurrencyCode); err == nil {
			entry.Unit = unit
		}
		summary.Items = append(summary.Items, entry)
	}
	summary.Promotions = make([]PromotionView, 0, len(cart.Promotions))
	for _, promotion := range cart.Promotions {
		summary.Promotions = append(summary.Promotions, PromotionView{
			ID:        promotion.ID,
			Code:      promotion.CodeValue(),
			Automatic: promotion.IsAutomatic(),
			Type:      promotion.ApplicationMethod.Type,
			Value:     promotion.ApplicationMethod.Value,
		})
	}
	return summary, nil
}

func (s *CheckoutService) paymentView(cart *models.Cart) PaymentFlowView {
	return PaymentFlowView{
		Flow:     s.router.Route(cart),
		Submit:   s.router.SubmitAffordance(cart),
		NotReady: s.router.NotReady(cart),
	}
}

// mutate 持有忙碌标记执行命令，丢弃与请求购物车不一致的响应
func (s *CheckoutService) mutate(ctx context.Context, cartID, op string, fn func(cart *models.Cart) (*models.Cart, error)) (*models.Cart, error) {
	unlock, err := acquireCart(ctx, s.locker, cartID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cart, err := s.loadCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	updated, err := fn(cart)
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, wrapBackendError(op, err)
	}
	if updated == nil {
		return nil, ErrCartNotFound
	}
	if updated.ID != cart.ID {
		logger.ForCart(cart.ID).Warnw("checkout_stale_cart_response", "op", op, "response_cart_id", updated.ID)
		return nil, ErrStaleCartResponse
	}
	return updated, nil
}

func (s *CheckoutService) loadCart(ctx context.Context, cartID string) (*models.Cart, error) {
	if s.backend == nil {
		return nil, fmt.Errorf("%w: commerce backend not configured", ErrConfiguration)
	}
	cartID = strings.TrimSpace(cartID)
	if cartID == "" {
		return nil, ErrCartNotFound
	}
	cart, err := s.backend.RetrieveCart(ctx, cartID)
	if err != nil {
		return nil, wrapBackendError("retrieve_cart", err)
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}
	if cart.ID != cartID {
		logger.ForCart(cartID).Warnw("checkout_stale_cart_response", "op", "retrieve_cart", "response_cart_id", cart.ID)
		return nil, ErrStaleCartResponse
	}
	return cart, nil
}

func (s *CheckoutService) loadItem(ctx context.Context, cartID, itemID string) (*models.Cart, *models.LineItem, error) {
	cart, err := s.loadCart(ctx, cartID)
	if err != nil {
		return nil, nil, err
	}
	itemID = strings.TrimSpace(itemID)
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			return cart, &cart.Items[i], nil
		}
	}
	return nil, nil, ErrLineItemNotFound
}

// isDomainError 已归类的业务错误原样返回，其余视为后端错误
func isDomainError(err error) bool {
	for _, target := range []error{
		ErrCartNotFound,
		ErrBackendRequestFailed,
		ErrPromotionInvalid,
		ErrStepGated,
		ErrPaymentProviderInvalid,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func validateAddress(address *models.Address) error {
	if address == nil {
		return fmt.Errorf("%w: address is required", ErrAddressInvalid)
	}
	fields := []struct {
		name  string
		value string
	}{
		{"first_name", address.FirstName},
		{"last_name", address.LastName},
		{"address_1", address.Address1},
		{"city", address.City},
		{"postal_code", address.PostalCode},
		{"country_code", address.CountryCode},
	}
	for _, field := range fields {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("%w: %s is required", ErrAddressInvalid, field.name)
		}
	}
	return nil
}

func normalizeEmail(raw string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return "", ErrEmailInvalid
	}
	if _, err := mail.ParseAddress(normalized); err != nil {
		return "", ErrEmailInvalid
	}
	return normalized, nil
}
