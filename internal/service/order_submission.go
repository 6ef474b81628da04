package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/dujiao-next/checkout/internal/constants"
	"github.com/dujiao-next/checkout/internal/logger"
	"github.com/dujiao-next/checkout/internal/models"
	"github.com/dujiao-next/checkout/internal/queue"
)

// OrderSubmissionCoordinator 下单协调器，唯一允许把购物车转为订单的入口
type OrderSubmissionCoordinator struct {
	backend       CommerceBackend
	steps         *CheckoutStepMachine
	router        *PaymentRouter
	locker        CartLocker
	confirmations PaymentConfirmationStore
	queueClient   *queue.Client
}

// NewOrderSubmissionCoordinator 创建下单协调器
func NewOrderSubmissionCoordinator(
	backend CommerceBackend,
	steps *CheckoutStepMachine,
	router *PaymentRouter,
	locker CartLocker,
	confirmations PaymentConfirmationStore,
	queueClient *queue.Client,
) *OrderSubmissionCoordinator {
	return &OrderSubmissionCoordinator{
		backend:       backend,
		steps:         steps,
		router:        router,
		locker:        locker,
		confirmations: confirmations,
		queueClient:   queueClient,
	}
}

// Submit 校验前置条件后调用一次下单命令，失败不重试。
// 传入的购物车只提供 ID，持有忙碌标记后重新读取，校验的始终是加锁后的状态。
func (c *OrderSubmissionCoordinator) Submit(ctx context.Context, cart *models.Cart) (*models.Order, error) {
	if cart == nil {
		return nil, ErrCartNotFound
	}
	return c.SubmitCart(ctx, cart.ID)
}

// SubmitCart 先占用忙碌标记，再读取购物车并下单
func (c *OrderSubmissionCoordinator) SubmitCart(ctx context.Context, cartID string) (*models.Order, error) {
	cartID = strings.TrimSpace(cartID)
	if cartID == "" {
		return nil, ErrCartNotFound
	}
	unlock, err := acquireCart(ctx, c.locker, cartID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cart, err := c.retrieveLocked(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if err := c.CheckPreconditions(ctx, cart); err != nil {
		return nil, err
	}

	log := logger.ForCart(cart.ID)
	// 下单请求不随调用方取消而中断
	result, err := c.backend.PlaceOrder(context.WithoutCancel(ctx), cart.ID)
	if err != nil {
		log.Warnw("checkout_place_order_failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrOrderPlacementFailed, wrapBackendError("place_order", err))
	}
	if result == nil || result.Type != constants.PlaceOrderResultOrder || result.Order == nil {
		message := "order was not created"
		if result != nil && strings.TrimSpace(result.Error) != "" {
			message = strings.TrimSpace(result.Error)
		}
		log.Warnw("checkout_place_order_rejected", "message", message)
		return nil, fmt.Errorf("%w: %s", ErrOrderPlacementFailed, message)
	}

	order := result.Order
	log.Infow("checkout_order_placed", "order_id", order.ID, "display_id", order.DisplayID)
	c.afterPlaced(ctx, cart, order)
	return order, nil
}

// CheckPreconditions 依次校验：步骤完成、已选择支付方式、交互式支付已确认
func (c *OrderSubmissionCoordinator) CheckPreconditions(ctx context.Context, cart *models.Cart) error {
	if !c.steps.IsComplete(constants.StepReview, cart) {
		return fmt.Errorf("%w: complete %s first", ErrIncompleteCheckout, c.steps.EarliestIncomplete(cart))
	}
	if missing := c.router.MissingFields(cart); len(missing) > 0 {
		return fmt.Errorf("%w: %s, missing %s", ErrIncompleteCheckout, constants.SubmitDisabledNotReady, strings.Join(missing, ", "))
	}
	flow := c.router.Route(cart)
	if flow.IsUnselected() {
		return ErrNoPaymentMethod
	}
	if !flow.IsInteractive() {
		return nil
	}
	if c.confirmations == nil {
		return ErrPaymentNotConfirmed
	}
	confirmed, err := c.confirmations.IsConfirmed(ctx, cart.ID, flow.SessionID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfirmationStoreFailed, err)
	}
	if !confirmed {
		return ErrPaymentNotConfirmed
	}
	return nil
}

func (c *OrderSubmissionCoordinator) afterPlaced(ctx context.Context, cart *models.Cart, order *models.Order) {
	log := logger.ForCart(cart.ID)
	if c.confirmations != nil {
		if err := c.confirmations.Clear(context.WithoutCancel(ctx), cart.ID); err != nil {
			log.Warnw("checkout_confirmation_clear_failed", "error", err)
		}
	}
	email := order.Email
	if email == "" {
		email = cart.Email
	}
	if err := c.queueClient.EnqueueOrderPlaced(queue.OrderPlacedPayload{
		CartID:    cart.ID,
		OrderID:   order.ID,
		DisplayID: order.DisplayID,
		Email:     email,
	}); err != nil {
		log.Warnw("checkout_order_placed_enqueue_failed", "order_id", order.ID, "error", err)
	}
}

func (c *OrderSubmissionCoordinator) retrieveLocked(ctx context.Context, cartID string) (*models.Cart, error) {
	if c.backend == nil {
		return nil, fmt.Errorf("%w: commerce backend not configured", ErrConfiguration)
	}
	cart, err := c.backend.RetrieveCart(ctx, cartID)
	if err != nil {
		return nil, wrapBackendError("retrieve_cart", err)
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}
	if cart.ID != cartID {
		logger.ForCart(cartID).Warnw("checkout_stale_cart_response", "op", "submit_retrieve_cart", "response_cart_id", cart.ID)
		return nil, ErrStaleCartResponse
	}
	return cart, nil
}

// acquireCart 获取购物车忙碌标记，已有在途请求时返回 ErrCartBusy
func acquireCart(ctx context.Context, locker CartLocker, cartID string) (func(), error) {
	if locker == nil {
		return func() {}, nil
	}
	unlock, ok, err := locker.TryLock(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("acquire cart lock: %w", err)
	}
	if !ok {
		return nil, ErrCartBusy
	}
	if unlock == nil {
		unlock = func() {}
	}
	return unlock, nil
}
