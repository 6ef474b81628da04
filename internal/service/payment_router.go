package service

import (
	"sort"
	"strings"

	"github.com/dujiao-next/checkout/internal/config"
	"github.com/dujiao-next/checkout/internal/constants"
	"github.com/dujiao-next/checkout/internal/logger"
	"github.com/dujiao-next/checkout/internal/models"
)

// PaymentFlow 支付流程（interactive / deferred / unselected 三选一）
type PaymentFlow struct {
	Kind         string `json:"kind"`
	ProviderID   string `json:"provider_id,omitempty"`
	Family       string `json:"family,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
}

// IsInteractive 是否需要客户端确认
func (f PaymentFlow) IsInteractive() bool {
	return f.Kind == constants.PaymentFlowInteractive
}

// IsUnselected 是否未选择可识别的支付方式
func (f PaymentFlow) IsUnselected() bool {
	return f.Kind == constants.PaymentFlowUnselected || f.Kind == ""
}

// SubmitAffordance 提交按钮状态
type SubmitAffordance struct {
	Enabled bool   `json:"enabled"`
	Reason  string `json:"reason,omitempty"`
}

// ProviderRule 支付提供方分类规则
type ProviderRule struct {
	Prefix string
	Flow   string
	Family string
}

// DefaultProviderRules 默认分类表
func DefaultProviderRules() []ProviderRule {
	return []ProviderRule{
		{Prefix: constants.ProviderPrefixStripe, Flow: constants.PaymentFlowInteractive, Family: constants.PaymentFamilyStripe},
		{Prefix: constants.ProviderPrefixPaypal, Flow: constants.PaymentFlowInteractive, Family: constants.PaymentFamilyPaypal},
		{Prefix: constants.ProviderPrefixSystem, Flow: constants.PaymentFlowDeferred, Family: constants.PaymentFamilyManual},
		{Prefix: constants.ProviderPrefixBankTransfer, Flow: constants.PaymentFlowDeferred, Family: constants.PaymentFamilyBankTransfer},
		{Prefix: constants.ProviderPrefixCrypto, Flow: constants.PaymentFlowDeferred, Family: constants.PaymentFamilyCrypto},
		{Prefix: constants.ProviderPrefixEpusdt, Flow: constants.PaymentFlowDeferred, Family: constants.PaymentFamilyCrypto},
	}
}

// PaymentRouter 按 provider_id 前缀选择支付流程
type PaymentRouter struct {
	rules []ProviderRule
}

// NewPaymentRouter 创建支付路由，配置中的规则覆盖同前缀的默认规则
func NewPaymentRouter(overrides []config.PaymentProviderRule) *PaymentRouter {
	merged := make(map[string]ProviderRule)
	for _, rule := range DefaultProviderRules() {
		merged[rule.Prefix] = rule
	}
	for _, item := range overrides {
		rule := ProviderRule{
			Prefix: strings.ToLower(strings.TrimSpace(item.Prefix)),
			Flow:   strings.ToLower(strings.TrimSpace(item.Flow)),
			Family: strings.ToLower(strings.TrimSpace(item.Family)),
		}
		if rule.Prefix == "" || (rule.Flow != constants.PaymentFlowInteractive && rule.Flow != constants.PaymentFlowDeferred) {
			logger.Warnw("payment_provider_rule_ignored",
				"prefix", item.Prefix,
				"flow", item.Flow,
			)
			continue
		}
		merged[rule.Prefix] = rule
	}
	rules := make([]ProviderRule, 0, len(merged))
	for _, rule := range merged {
		rules = append(rules, rule)
	}
	// 最长前缀优先
	sort.Slice(rules, func(i, j int) bool {
		if len(rules[i].Prefix) != len(rules[j].Prefix) {
			return len(rules[i].Prefix) > len(rules[j].Prefix)
		}
		return rules[i].Prefix < rules[j].Prefix
	})
	return &PaymentRouter{rules: rules}
}

// Classify 查询 provider_id 对应的分类规则
func (r *PaymentRouter) Classify(providerID string) (ProviderRule, bool) {
	normalized := strings.ToLower(strings.TrimSpace(providerID))
	if normalized == "" {
		return ProviderRule{}, false
	}
	for _, rule := range r.rules {
		if strings.HasPrefix(normalized, rule.Prefix) {
			return rule, true
		}
	}
	return ProviderRule{}, false
}

// Route 根据当前生效的支付会话选择支付流程，未识别的提供方返回 unselected
func (r *PaymentRouter) Route(cart *models.Cart) PaymentFlow {
	if cart == nil {
		return PaymentFlow{Kind: constants.PaymentFlowUnselected}
	}
	if cart.PaidByGiftCards() {
		return PaymentFlow{
			Kind:       constants.PaymentFlowDeferred,
			ProviderID: constants.ProviderIDGiftCard,
			Family:     constants.PaymentFamilyGiftCard,
		}
	}
	session := cart.ActivePaymentSession()
	if session == nil {
		return PaymentFlow{Kind: constants.PaymentFlowUnselected}
	}
	rule, ok := r.Classify(session.ProviderID)
	if !ok {
		logger.ForCart(cart.ID).Warnw("payment_provider_unrecognized", "provider_id", session.ProviderID)
		return PaymentFlow{Kind: constants.PaymentFlowUnselected, ProviderID: session.ProviderID, SessionID: session.ID}
	}
	flow := PaymentFlow{
		Kind:       rule.Flow,
		ProviderID: session.ProviderID,
		Family:     rule.Family,
		SessionID:  session.ID,
	}
	if flow.IsInteractive() {
		flow.ClientSecret = session.Secret()
	}
	return flow
}

// NotReady 收货地址、账单地址、邮箱、配送方式任一缺失
func (r *PaymentRouter) NotReady(cart *models.Cart) bool {
	return len(r.MissingFields(cart)) > 0
}

// MissingFields 列出下单前仍缺失的字段名
func (r *PaymentRouter) MissingFields(cart *models.Cart) []string {
	if cart == nil {
		return []string{"shipping_address", "billing_address", "email", "shipping_method"}
	}
	var missing []string
	if cart.ShippingAddress == nil {
		missing = append(missing, "shipping_address")
	}
	if cart.BillingAddress == nil {
		missing = append(missing, "billing_address")
	}
	if strings.TrimSpace(cart.Email) == "" {
		missing = append(missing, "email")
	}
	if len(cart.ShippingMethods) == 0 {
		missing = append(missing, "shipping_method")
	}
	return missing
}

// SubmitAffordance 计算提交按钮状态
func (r *PaymentRouter) SubmitAffordance(cart *models.Cart) SubmitAffordance {
	if r.NotReady(cart) {
		return SubmitAffordance{Reason: constants.SubmitDisabledNotReady}
	}
	flow := r.Route(cart)
	if flow.IsUnselected() {
		return SubmitAffordance{Reason: constants.SubmitDisabledNoPaymentMethod}
	}
	if flow.IsInteractive() && flow.ClientSecret == "" {
		return SubmitAffordance{Reason: constants.SubmitDisabledClientSecretAbsent}
	}
	return SubmitAffordance{Enabled: true}
}
