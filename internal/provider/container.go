package provider

import (
	"errors"
	"time"

	"github.com/dujiao-next/checkout/internal/cache"
	"github.com/dujiao-next/checkout/internal/commerce"
	"github.com/dujiao-next/checkout/internal/config"
	"github.com/dujiao-next/checkout/internal/logger"
	"github.com/dujiao-next/checkout/internal/queue"
	"github.com/dujiao-next/checkout/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// 外部依赖
	CommerceClient    service.CommerceBackend
	CartLocker        service.CartLocker
	ConfirmationStore service.PaymentConfirmationStore

	// Services
	PricingService             *service.PricingService
	PromotionLedger            *service.PromotionLedger
	CheckoutStepMachine        *service.CheckoutStepMachine
	PaymentRouter              *service.PaymentRouter
	OrderSubmissionCoordinator *service.OrderSubmissionCoordinator
	PaymentConfirmationService *service.PaymentConfirmationService
	CheckoutService            *service.CheckoutService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端，失败时退化为不投递
	queueClient, _ := queue.NewClient(nil)
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}
	c.initBackends()
	c.initServices()
	return c
}

func (c *Container) initBackends() {
	client, err := commerce.NewClient(c.Config.Commerce)
	if err != nil {
		// 配置错误不可恢复，仍然启动以便健康检查暴露问题
		logger.Errorw("provider_init_commerce_client_failed", "error", err)
	} else {
		c.CommerceClient = client
	}
	busyTTL := time.Duration(c.Config.Checkout.BusyTTLSeconds) * time.Second
	confirmationTTL := time.Duration(c.Config.Checkout.ConfirmationTTLMinutes) * time.Minute
	c.CartLocker = cache.NewCartLocker(busyTTL)
	c.ConfirmationStore = cache.NewPaymentConfirmationStore(confirmationTTL)
}

func (c *Container) initServices() {
	confirmationTTL := time.Duration(c.Config.Checkout.ConfirmationTTLMinutes) * time.Minute

	c.PricingService = service.NewPricingService()
	c.PromotionLedger = service.NewPromotionLedger(c.CommerceClient)
	c.CheckoutStepMachine = service.NewCheckoutStepMachine()
	c.PaymentRouter = service.NewPaymentRouter(c.Config.Checkout.ProviderRules)
	c.OrderSubmissionCoordinator = service.NewOrderSubmissionCoordinator(
		c.CommerceClient,
		c.CheckoutStepMachine,
		c.PaymentRouter,
		c.CartLocker,
		c.ConfirmationStore,
		c.QueueClient,
	)
	c.PaymentConfirmationService = service.NewPaymentConfirmationService(
		c.PaymentRouter,
		service.BuildPaymentConfirmers(c.Config.Payment),
		c.ConfirmationStore,
		c.QueueClient,
		confirmationTTL,
	)
	c.CheckoutService = service.NewCheckoutService(
		c.CommerceClient,
		c.CartLocker,
		c.PricingService,
		c.PromotionLedger,
		c.CheckoutStepMachine,
		c.PaymentRouter,
		c.OrderSubmissionCoordinator,
		c.PaymentConfirmationService,
	)
}

// Close 释放队列客户端与 Redis 连接
func (c *Container) Close() error {
	var errs []error
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := cache.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
