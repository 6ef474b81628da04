package models

import (
	"strings"
	"time"
)

// Cart 购物车文档（由外部电商后端维护）
type Cart struct {
	ID                string             `json:"id"`                           // 购物车ID
	CurrencyCode      string             `json:"currency_code"`                // 币种
	Region            *Region            `json:"region,omitempty"`             // 销售区域
	Email             string             `json:"email,omitempty"`              // 联系邮箱
	Items             []LineItem         `json:"items"`                        // 商品行
	ShippingAddress   *Address           `json:"shipping_address,omitempty"`   // 收货地址
	BillingAddress    *Address           `json:"billing_address,omitempty"`    // 账单地址
	ShippingMethods   []ShippingMethod   `json:"shipping_methods"`             // 配送方式
	PaymentCollection *PaymentCollection `json:"payment_collection,omitempty"` // 支付集合
	Promotions        []Promotion        `json:"promotions"`                   // 已生效的活动
	GiftCards         []GiftCard         `json:"gift_cards"`                   // 已使用的礼品卡
	Subtotal          int64              `json:"subtotal"`                     // 小计（最小货币单位）
	DiscountTotal     int64              `json:"discount_total"`               // 优惠合计
	GiftCardTotal     int64              `json:"gift_card_total"`              // 礼品卡抵扣合计
	ShippingTotal     int64              `json:"shipping_total"`               // 运费合计
	TaxTotal          int64              `json:"tax_total"`                    // 税费合计
	Total             int64              `json:"total"`                        // 应付合计
	UpdatedAt         *time.Time         `json:"updated_at,omitempty"`         // 更新时间
}

// Region 销售区域
type Region struct {
	ID           string `json:"id"`            // 区域ID
	Name         string `json:"name"`          // 名称
	CurrencyCode string `json:"currency_code"` // 区域币种
}

// LineItem 购物车商品行
type LineItem struct {
	ID                string `json:"id"`                            // 商品行ID
	Title             string `json:"title"`                         // 标题
	VariantID         string `json:"variant_id,omitempty"`          // 规格ID
	Quantity          int64  `json:"quantity"`                      // 数量
	UnitPrice         int64  `json:"unit_price"`                    // 单价
	OriginalUnitPrice int64  `json:"original_unit_price,omitempty"` // 原单价
	Total             int64  `json:"total"`                         // 行合计（优惠后）
	OriginalTotal     int64  `json:"original_total"`                // 行原价合计
}

// Address 地址
type Address struct {
	FirstName   string `json:"first_name"`          // 名
	LastName    string `json:"last_name"`           // 姓
	Company     string `json:"company,omitempty"`   // 公司
	Address1    string `json:"address_1"`           // 地址行1
	Address2    string `json:"address_2,omitempty"` // 地址行2
	City        string `json:"city"`                // 城市
	PostalCode  string `json:"postal_code"`         // 邮编
	Province    string `json:"province,omitempty"`  // 省/州
	CountryCode string `json:"country_code"`        // 国家代码
	Phone       string `json:"phone,omitempty"`     // 电话
}

// ShippingMethod 已选择的配送方式
type ShippingMethod struct {
	ID               string `json:"id"`                 // 配送方式ID
	ShippingOptionID string `json:"shipping_option_id"` // 配送选项ID
	Name             string `json:"name"`               // 名称
	Amount           int64  `json:"amount"`             // 金额
}

// PaymentCollection 支付集合
type PaymentCollection struct {
	ID              string           `json:"id"`               // 主键
	Amount          int64            `json:"amount"`           // 待支付金额
	Status          string           `json:"status"`           // 状态
	PaymentSessions []PaymentSession `json:"payment_sessions"` // 支付会话
}

// PaymentSession 支付会话
type PaymentSession struct {
	ID           string                 `json:"id"`                      // 会话ID
	ProviderID   string                 `json:"provider_id"`             // 支付提供方ID
	Status       string                 `json:"status"`                  // 状态（pending/authorized/error）
	Amount       int64                  `json:"amount"`                  // 金额
	ClientSecret string                 `json:"client_secret,omitempty"` // 客户端密钥
	Data         map[string]interface{} `json:"data,omitempty"`          // 提供方原始数据
}

// Secret 返回客户端密钥，优先使用顶层字段
func (s PaymentSession) Secret() string {
	if secret := strings.TrimSpace(s.ClientSecret); secret != "" {
		return secret
	}
	return strings.TrimSpace(readDataString(s.Data, "client_secret"))
}

// ProviderRef 返回第三方流水号（如 Stripe PaymentIntent / PayPal Order ID）
func (s PaymentSession) ProviderRef() string {
	return strings.TrimSpace(readDataString(s.Data, "id"))
}

// Promotion 购物车上的活动
type Promotion struct {
	ID                string            `json:"id"`                 // 活动ID
	Code              *string           `json:"code"`               // 优惠码（为空表示自动活动）
	ApplicationMethod ApplicationMethod `json:"application_method"` // 应用方式
}

// IsAutomatic 自动活动没有优惠码，用户不可移除
func (p Promotion) IsAutomatic() bool {
	return p.Code == nil || strings.TrimSpace(*p.Code) == ""
}

// CodeValue 返回优惠码
func (p Promotion) CodeValue() string {
	if p.Code == nil {
		return ""
	}
	return strings.TrimSpace(*p.Code)
}

// ApplicationMethod 活动应用方式
type ApplicationMethod struct {
	Type         string  `json:"type"`                    // percentage/fixed
	Value        float64 `json:"value"`                   // 数值
	CurrencyCode string  `json:"currency_code,omitempty"` // 固定金额币种
}

// GiftCard 购物车上的礼品卡
type GiftCard struct {
	ID      string `json:"id"`      // 礼品卡ID
	Code    string `json:"code"`    // 卡号
	Balance int64  `json:"balance"` // 余额
}

// ActivePaymentSession 返回当前生效的支付会话，新会话覆盖旧会话
func (c *Cart) ActivePaymentSession() *PaymentSession {
	if c == nil || c.PaymentCollection == nil {
		return nil
	}
	sessions := c.PaymentCollection.PaymentSessions
	for i := len(sessions) - 1; i >= 0; i-- {
		switch strings.ToLower(strings.TrimSpace(sessions[i].Status)) {
		case "error", "canceled":
			continue
		}
		session := sessions[i]
		return &session
	}
	return nil
}

// PromotionCodes 返回购物车上所有带优惠码的活动（去重，保持顺序）
func (c *Cart) PromotionCodes() []string {
	if c == nil {
		return nil
	}
	codes := make([]string, 0, len(c.Promotions))
	seen := make(map[string]struct{}, len(c.Promotions))
	for _, promotion := range c.Promotions {
		if promotion.IsAutomatic() {
			continue
		}
		code := promotion.CodeValue()
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes
}

// PaidByGiftCards 礼品卡完全覆盖应付金额
func (c *Cart) PaidByGiftCards() bool {
	if c == nil {
		return false
	}
	return len(c.GiftCards) > 0 && c.Total == 0
}

func readDataString(data map[string]interface{}, key string) string {
	if data == nil {
		return ""
	}
	value, ok := data[key]
	if !ok || value == nil {
		return ""
	}
	if str, ok := value.(string); ok {
		return str
	}
	return ""
}
