package service

import (
	"fmt"
	"strings"

	"github.com/dujiao-next/checkout/internal/logger"
	"github.com/dujiao-next/checkout/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PricingService 价格计算服务（纯函数，无状态）
type PricingService struct{}

// NewPricingService 创建价格计算服务
func NewPricingService() *PricingService {
	return &PricingService{}
}

// LineItemPrice 商品行/单价展示结果
type LineItemPrice struct {
	Currency        string `json:"currency"`
	Current         int64  `json:"current"`
	CurrentDisplay  string `json:"current_display"`
	Original        *int64 `json:"original,omitempty"`
	OriginalDisplay string `json:"original_display,omitempty"`
	PercentOff      *int64 `json:"percent_off,omitempty"`
}

// HasDiscount 是否存在折扣字段
func (p *LineItemPrice) HasDiscount() bool {
	return p != nil && p.Original != nil
}

// TotalLine 合计展示行
type TotalLine struct {
	Key     string `json:"key"`
	Amount  int64  `json:"amount"`
	Display string `json:"display"`
}

// CartTotals 购物车合计
type CartTotals struct {
	Currency      string      `json:"currency"`
	Subtotal      int64       `json:"subtotal"`
	DiscountTotal *int64      `json:"discount_total,omitempty"`
	GiftCardTotal *int64      `json:"gift_card_total,omitempty"`
	ShippingTotal int64       `json:"shipping_total"`
	TaxTotal      int64       `json:"tax_total"`
	Total         int64       `json:"total"`
	Lines         []TotalLine `json:"lines"`
}

// PriceOf 计算商品行价格
func (s *PricingService) PriceOf(item models.LineItem, currency string) (*LineItemPrice, error) {
	currency, err := normalizeCurrency(currency)
	if err != nil {
		return nil, err
	}
	current := decimal.NewFromInt(item.Total)
	original := decimal.NewFromInt(item.OriginalTotal)
	if original.LessThan(current) {
		logger.Warnw("pricing_original_below_total",
			"item_id", item.ID,
			"total", item.Total,
			"original_total", item.OriginalTotal,
		)
	}
	return buildPrice(current, original, currency), nil
}

// UnitPriceOf 计算单价；先对合计做除法，再基于除法结果计算折扣比例
func (s *PricingService) UnitPriceOf(item models.LineItem, currency string) (*LineItemPrice, error) {
	currency, err := normalizeCurrency(currency)
	if err != nil {
		return nil, err
	}
	if item.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrLineItemInvalid)
	}
	quantity := decimal.NewFromInt(item.Quantity)
	current := decimal.NewFromInt(item.Total).Div(quantity)
	original := decimal.NewFromInt(item.OriginalTotal).Div(quantity)
	return buildPrice(current, original, currency), nil
}

// CartTotals 计算购物车合计；优惠与礼品卡为零时不输出对应行
func (s *PricingService) CartTotals(cart *models.Cart) (*CartTotals, error) {
	if cart == nil {
		return nil, ErrCartNotFound
	}
	currency, err := cartCurrency(cart)
	if err != nil {
		return nil, err
	}
	if err := s.VerifyTotals(cart); err != nil {
		logger.ForCart(cart.ID).Warnw("pricing_cart_totals_mismatch", "error", err)
	}

	totals := &CartTotals{
		Currency:      currency,
		Subtotal:      cart.Subtotal,
		ShippingTotal: cart.ShippingTotal,
		TaxTotal:      cart.TaxTotal,
		Total:         cart.Total,
	}
	lines := []TotalLine{{Key: "subtotal", Amount: cart.Subtotal, Display: models.FormatMinor(cart.Subtotal, currency)}}
	if cart.DiscountTotal > 0 {
		discount := cart.DiscountTotal
		totals.DiscountTotal = &discount
		lines = append(lines, TotalLine{Key: "discount", Amount: discount, Display: models.FormatNegativeMinor(discount, currency)})
	}
	if cart.GiftCardTotal > 0 {
		giftCard := cart.GiftCardTotal
		totals.GiftCardTotal = &giftCard
		lines = append(lines, TotalLine{Key: "gift_card", Amount: giftCard, Display: models.FormatNegativeMinor(giftCard, currency)})
	}
	lines = append(lines,
		TotalLine{Key: "shipping", Amount: cart.ShippingTotal, Display: models.FormatMinor(cart.ShippingTotal, currency)},
		TotalLine{Key: "tax", Amount: cart.TaxTotal, Display: models.FormatMinor(cart.TaxTotal, currency)},
		TotalLine{Key: "total", Amount: cart.Total, Display: models.FormatMinor(cart.Total, currency)},
	)
	totals.Lines = lines
	return totals, nil
}

// VerifyTotals 校验 total = subtotal - discount - gift_card + shipping + tax
func (s *PricingService) VerifyTotals(cart *models.Cart) error {
	if cart == nil {
		return ErrCartNotFound
	}
	expected := cart.Subtotal - cart.DiscountTotal - cart.GiftCardTotal + cart.ShippingTotal + cart.TaxTotal
	if expected != cart.Total {
		return fmt.Errorf("%w: expected %d, got %d", ErrCartTotalsMismatch, expected, cart.Total)
	}
	return nil
}

// FormatAmount 格式化最小货币单位金额，仅在计算完成后调用
func (s *PricingService) FormatAmount(amount int64, currency string) (string, error) {
	currency, err := normalizeCurrency(currency)
	if err != nil {
		return "", err
	}
	return models.FormatMinor(amount, currency), nil
}

// PercentOff 折扣百分比，四舍五入（0.5 进位）
func PercentOff(original, current decimal.Decimal) int64 {
	if original.LessThanOrEqual(decimal.Zero) || !original.GreaterThan(current) {
		return 0
	}
	return original.Sub(current).Mul(hundred).Div(original).Round(0).IntPart()
}

func buildPrice(current, original decimal.Decimal, currency string) *LineItemPrice {
	currentMinor := current.Round(0).IntPart()
	price := &LineItemPrice{
		Currency:       currency,
		Current:        currentMinor,
		CurrentDisplay: models.FormatMinor(currentMinor, currency),
	}
	if !original.GreaterThan(current) {
		return price
	}
	originalMinor := original.Round(0).IntPart()
	percent := PercentOff(original, current)
	price.Original = &originalMinor
	price.OriginalDisplay = models.FormatMinor(originalMinor, currency)
	price.PercentOff = &percent
	return price
}

// cartCurrency 合计必须有销售区域；购物车未带币种时取区域币种
func cartCurrency(cart *models.Cart) (string, error) {
	if cart.Region == nil || strings.TrimSpace(cart.Region.ID) == "" {
		return "", fmt.Errorf("%w: region is missing", ErrConfiguration)
	}
	code := cart.CurrencyCode
	if strings.TrimSpace(code) == "" {
		code = cart.Region.CurrencyCode
	}
	return normalizeCurrency(code)
}

func normalizeCurrency(currency string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(currency))
	if normalized == "" {
		return "", fmt.Errorf("%w: currency_code is missing", ErrConfiguration)
	}
	return normalized, nil
}
