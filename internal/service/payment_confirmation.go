package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dujiao-next/checkout/internal/config"
	"github.com/dujiao-next/checkout/internal/constants"
	"github.com/dujiao-next/checkout/internal/logger"
	"github.com/dujiao-next/checkout/internal/models"
	"github.com/dujiao-next/checkout/internal/payment/paypal"
	"github.com/dujiao-next/checkout/internal/payment/stripe"
	"github.com/dujiao-next/checkout/internal/queue"
)

// PaymentConfirmationService 交互式支付确认：向第三方核实后记录确认标记
type PaymentConfirmationService struct {
	router      *PaymentRouter
	confirmers  map[string]PaymentConfirmer
	store       PaymentConfirmationStore
	queueClient *queue.Client
	ttl         time.Duration
}

// NewPaymentConfirmationService 创建支付确认服务，confirmers 按支付家族索引
func NewPaymentConfirmationService(
	router *PaymentRouter,
	confirmers map[string]PaymentConfirmer,
	store PaymentConfirmationStore,
	queueClient *queue.Client,
	ttl time.Duration,
) *PaymentConfirmationService {
	if confirmers == nil {
		confirmers = map[string]PaymentConfirmer{}
	}
	return &PaymentConfirmationService{
		router:      router,
		confirmers:  confirmers,
		store:       store,
		queueClient: queueClient,
		ttl:         ttl,
	}
}

// Confirm 核实当前交互式支付会话；拒付返回可重试的 PaymentDeclinedError
func (s *PaymentConfirmationService) Confirm(ctx context.Context, cart *models.Cart) (*PaymentConfirmation, error) {
	if cart == nil {
		return nil, ErrCartNotFound
	}
	flow := s.router.Route(cart)
	if !flow.IsInteractive() {
		return nil, ErrPaymentFlowNotInteractive
	}
	session := cart.ActivePaymentSession()
	if session == nil {
		return nil, ErrPaymentSessionUnavailable
	}
	confirmer, ok := s.confirmers[flow.Family]
	if !ok || confirmer == nil {
		return nil, fmt.Errorf("%w: %s", ErrPaymentConfirmerMissing, flow.Family)
	}

	log := logger.ForCart(cart.ID, "provider_id", session.ProviderID, "session_id", session.ID)
	result, err := confirmer.Confirm(ctx, *session)
	if err != nil {
		log.Warnw("payment_confirm_request_failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPaymentConfirmationFailed, err)
	}
	if result == nil {
		return nil, ErrPaymentConfirmationFailed
	}

	switch result.Status {
	case constants.PaymentConfirmSuccess:
		if s.store == nil {
			return nil, ErrConfirmationStoreFailed
		}
		if err := s.store.MarkConfirmed(ctx, cart.ID, session.ID); err != nil {
			log.Errorw("payment_confirm_store_failed", "error", err)
			return nil, fmt.Errorf("%w: %v", ErrConfirmationStoreFailed, err)
		}
		if err := s.queueClient.EnqueueSessionCleanup(queue.SessionCleanupPayload{
			CartID:    cart.ID,
			SessionID: session.ID,
		}, s.ttl); err != nil {
			log.Warnw("payment_confirm_cleanup_enqueue_failed", "error", err)
		}
		log.Infow("payment_confirmed", "provider_ref", result.ProviderRef)
		return result, nil
	case constants.PaymentConfirmPending:
		return nil, ErrPaymentPending
	case constants.PaymentConfirmDeclined:
		log.Infow("payment_declined", "reason", result.Reason)
		return nil, &PaymentDeclinedError{ProviderID: session.ProviderID, Reason: result.Reason}
	default:
		return nil, fmt.Errorf("%w: unexpected status %q", ErrPaymentConfirmationFailed, result.Status)
	}
}

// BuildPaymentConfirmers 按配置创建第三方确认器
func BuildPaymentConfirmers(cfg config.PaymentConfig) map[string]PaymentConfirmer {
	confirmers := make(map[string]PaymentConfirmer)
	if cfg.Stripe.Enabled {
		if c := NewStripeConfirmer(cfg.Stripe); c.err == nil {
			confirmers[constants.PaymentFamilyStripe] = c
		}
	}
	if cfg.Paypal.Enabled {
		if c := NewPaypalConfirmer(cfg.Paypal); c.err == nil {
			confirmers[constants.PaymentFamilyPaypal] = c
		}
	}
	return confirmers
}

// StripeConfirmer 通过 PaymentIntent 状态确认支付
type StripeConfirmer struct {
	client *stripe.Client
	err    error
}

// NewStripeConfirmer 创建 Stripe 确认器，配置错误在确认时返回
func NewStripeConfirmer(cfg config.StripeConfig) *StripeConfirmer {
	client, err := stripe.NewClient(cfg.SecretKey, cfg.APIBaseURL, 0)
	if err != nil {
		logger.Errorw("payment_confirmer_stripe_config_invalid", "error", err)
	}
	return &StripeConfirmer{client: client, err: err}
}

// Confirm 查询 PaymentIntent；会话数据缺少 id 时从 client_secret 中解析
func (c *StripeConfirmer) Confirm(ctx context.Context, session models.PaymentSession) (*PaymentConfirmation, error) {
	if c.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentConfirmerMissing, c.err)
	}
	ref := session.ProviderRef()
	if ref == "" {
		ref = stripe.IntentIDFromClientSecret(session.Secret())
	}
	if ref == "" {
		return nil, fmt.Errorf("%w: payment intent id missing", ErrPaymentSessionUnavailable)
	}
	intent, err := c.client.RetrievePaymentIntent(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &PaymentConfirmation{
		Status:      confirmStatusFrom(intent.Outcome(), stripe.OutcomeSuccess, stripe.OutcomeFailed),
		Reason:      intent.FailureReason(),
		ProviderRef: intent.ID,
	}, nil
}

// PaypalConfirmer 通过 PayPal 订单状态确认支付
type PaypalConfirmer struct {
	client *paypal.Client
	err    error
}

// NewPaypalConfirmer 创建 PayPal 确认器
func NewPaypalConfirmer(cfg config.PaypalConfig) *PaypalConfirmer {
	client, err := paypal.NewClient(cfg.ClientID, cfg.ClientSecret, cfg.BaseURL, 0)
	if err != nil {
		logger.Errorw("payment_confirmer_paypal_config_invalid", "error", err)
	}
	return &PaypalConfirmer{client: client, err: err}
}

// Confirm 查询 PayPal 订单
func (c *PaypalConfirmer) Confirm(ctx context.Context, session models.PaymentSession) (*PaymentConfirmation, error) {
	if c.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentConfirmerMissing, c.err)
	}
	ref := session.ProviderRef()
	if ref == "" {
		return nil, fmt.Errorf("%w: paypal order id missing", ErrPaymentSessionUnavailable)
	}
	order, err := c.client.GetOrder(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &PaymentConfirmation{
		Status:      confirmStatusFrom(order.Outcome(), paypal.OutcomeSuccess, paypal.OutcomeFailed),
		Reason:      order.FailureReason(),
		ProviderRef: order.ID,
	}, nil
}

func confirmStatusFrom(status, success, failed string) string {
	switch status {
	case success:
		return constants.PaymentConfirmSuccess
	case failed:
		return constants.PaymentConfirmDeclined
	default:
		return constants.PaymentConfirmPending
	}
}
