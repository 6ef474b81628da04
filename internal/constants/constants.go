package constants

// 结账步骤常量（有序）
const (
	StepAddress  = "address"
	StepDelivery = "delivery"
	StepPayment  = "payment"
	StepReview   = "review"
)

// 支付会话状态常量
const (
	PaymentSessionStatusPending      = "pending"
	PaymentSessionStatusAuthorized   = "authorized"
	PaymentSessionStatusRequiresMore = "requires_more"
	PaymentSessionStatusError        = "error"
	PaymentSessionStatusCanceled     = "canceled"
)

// 支付流程类型常量
const (
	PaymentFlowInteractive = "interactive"
	PaymentFlowDeferred    = "deferred"
	PaymentFlowUnselected  = "unselected"
)

// 支付提供方家族常量
const (
	PaymentFamilyStripe       = "stripe"
	PaymentFamilyPaypal       = "paypal"
	PaymentFamilyManual       = "manual"
	PaymentFamilyBankTransfer = "bank_transfer"
	PaymentFamilyCrypto       = "crypto"
	PaymentFamilyGiftCard     = "gift_card"
)

// 支付提供方 ID 前缀常量
const (
	ProviderPrefixStripe       = "pp_stripe"
	ProviderPrefixPaypal       = "pp_paypal"
	ProviderPrefixSystem       = "pp_system_default"
	ProviderPrefixBankTransfer = "pp_bank_transfer"
	ProviderPrefixCrypto       = "pp_crypto"
	ProviderPrefixEpusdt       = "pp_epusdt"
	ProviderIDGiftCard         = "gift_card"
)

// 支付确认结果常量
const (
	PaymentConfirmSuccess  = "success"
	PaymentConfirmPending  = "pending"
	PaymentConfirmDeclined = "declined"
)

// 活动优惠应用方式常量
const (
	PromotionApplicationPercentage = "percentage"
	PromotionApplicationFixed      = "fixed"
)

// 提交按钮禁用原因常量
const (
	SubmitDisabledNotReady           = "not_ready"
	SubmitDisabledNoPaymentMethod    = "no_payment_method"
	SubmitDisabledClientSecretAbsent = "client_secret_missing"
)

// 订单下单结果类型常量
const (
	PlaceOrderResultOrder = "order"
	PlaceOrderResultCart  = "cart"
)

// 队列常量
const (
	QueueDefault              = "default"
	QueueCritical             = "critical"
	TaskCheckoutOrderPlaced   = "checkout:order_placed"
	TaskCheckoutSessionExpire = "checkout:session_cleanup"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "ck"
)
