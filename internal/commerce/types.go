package commerce

import (
	"time"

	"github.com/dujiao-next/checkout/internal/models"

	"github.com/shopspring/decimal"
)

type cartEnvelope struct {
	Cart *cartPayload `json:"cart"`
}

type paymentCollectionEnvelope struct {
	PaymentCollection *paymentCollectionPayload `json:"payment_collection"`
}

type completeEnvelope struct {
	Type  string        `json:"type"`
	Order *orderPayload `json:"order"`
	Cart  *cartPayload  `json:"cart"`
	Error interface{}   `json:"error"`
}

type errorPayload struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type cartPayload struct {
	ID                string                    `json:"id"`
	CurrencyCode      string                    `json:"currency_code"`
	Region            *models.Region            `json:"region"`
	Email             string                    `json:"email"`
	Items             []lineItemPayload         `json:"items"`
	ShippingAddress   *models.Address           `json:"shipping_address"`
	BillingAddress    *models.Address           `json:"billing_address"`
	ShippingMethods   []shippingMethodPayload   `json:"shipping_methods"`
	PaymentCollection *paymentCollectionPayload `json:"payment_collection"`
	Promotions        []models.Promotion        `json:"promotions"`
	GiftCards         []giftCardPayload         `json:"gift_cards"`
	Subtotal          decimal.Decimal           `json:"subtotal"`
	DiscountTotal     decimal.Decimal           `json:"discount_total"`
	GiftCardTotal     decimal.Decimal           `json:"gift_card_total"`
	ShippingTotal     decimal.Decimal           `json:"shipping_total"`
	TaxTotal          decimal.Decimal           `json:"tax_total"`
	Total             decimal.Decimal           `json:"total"`
	UpdatedAt         *time.Time                `json:"updated_at"`
}

type lineItemPayload struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	VariantID         string          `json:"variant_id"`
	Quantity          int64           `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	OriginalUnitPrice decimal.Decimal `json:"original_unit_price"`
	Total             decimal.Decimal `json:"total"`
	OriginalTotal     decimal.Decimal `json:"original_total"`
}

type shippingMethodPayload struct {
	ID               string          `json:"id"`
	ShippingOptionID string          `json:"shipping_option_id"`
	Name             string          `json:"name"`
	Amount           decimal.Decimal `json:"amount"`
}

type paymentCollectionPayload struct {
	ID              string                  `json:"id"`
	Amount          decimal.Decimal         `json:"amount"`
	Status          string                  `json:"status"`
	PaymentSessions []paymentSessionPayload `json:"payment_sessions"`
}

type paymentSessionPayload struct {
	ID           string                 `json:"id"`
	ProviderID   string                 `json:"provider_id"`
	Status       string                 `json:"status"`
	Amount       decimal.Decimal        `json:"amount"`
	ClientSecret string                 `json:"client_secret"`
	Data         map[string]interface{} `json:"data"`
}

type giftCardPayload struct {
	ID      string          `json:"id"`
	Code    string          `json:"code"`
	Balance decimal.Decimal `json:"balance"`
}

type orderPayload struct {
	ID           string            `json:"id"`
	DisplayID    int64             `json:"display_id"`
	Email        string            `json:"email"`
	Status       string            `json:"status"`
	CurrencyCode string            `json:"currency_code"`
	Items        []lineItemPayload `json:"items"`
	Total        decimal.Decimal   `json:"total"`
	CreatedAt    *time.Time        `json:"created_at"`
}

// toMinor 后端以主货币单位返回金额，统一转为最小货币单位（四舍五入）
func toMinor(amount decimal.Decimal, currency string) int64 {
	return amount.Shift(models.CurrencyScale(currency)).Round(0).IntPart()
}

func (p *cartPayload) toModel() *models.Cart {
	if p == nil {
		return nil
	}
	currency := p.CurrencyCode
	cart := &models.Cart{
		ID:              p.ID,
		CurrencyCode:    p.CurrencyCode,
		Region:          p.Region,
		Email:           p.Email,
		ShippingAddress: p.ShippingAddress,
		BillingAddress:  p.BillingAddress,
		Promotions:      p.Promotions,
		Subtotal:        toMinor(p.Subtotal, currency),
		DiscountTotal:   toMinor(p.DiscountTotal, currency),
		GiftCardTotal:   toMinor(p.GiftCardTotal, currency),
		ShippingTotal:   toMinor(p.ShippingTotal, currency),
		TaxTotal:        toMinor(p.TaxTotal, currency),
		Total:           toMinor(p.Total, currency),
		UpdatedAt:       p.UpdatedAt,
	}
	cart.Items = toLineItems(p.Items, currency)
	cart.ShippingMethods = make([]models.ShippingMethod, 0, len(p.ShippingMethods))
	for _, method := range p.ShippingMethods {
		cart.ShippingMethods = append(cart.ShippingMethods, models.ShippingMethod{
			ID:               method.ID,
			ShippingOptionID: method.ShippingOptionID,
			Name:             method.Name,
			Amount:           toMinor(method.Amount, currency),
		})
	}
	cart.PaymentCollection = p.PaymentCollection.toModel(currency)
	cart.GiftCards = make([]models.GiftCard, 0, len(p.GiftCards))
	for _, card := range p.GiftCards {
		cart.GiftCards = append(cart.GiftCards, models.GiftCard{
			ID:      card.ID,
			Code:    card.Code,
			Balance: toMinor(card.Balance, currency),
		})
	}
	return cart
}

func (p *paymentCollectionPayload) toModel(currency string) *models.PaymentCollection {
	if p == nil {
		return nil
	}
	collection := &models.PaymentCollection{
		ID:              p.ID,
		Amount:          toMinor(p.Amount, currency),
		Status:          p.Status,
		PaymentSessions: make([]models.PaymentSession, 0, len(p.PaymentSessions)),
	}
	for _, session := range p.PaymentSessions {
		collection.PaymentSessions = append(collection.PaymentSessions, models.PaymentSession{
			ID:           session.ID,
			ProviderID:   session.ProviderID,
			Status:       session.Status,
			Amount:       toMinor(session.Amount, currency),
			ClientSecret: session.ClientSecret,
			Data:         session.Data,
		})
	}
	return collection
}

func (p *orderPayload) toModel(cartID string) *models.Order {
	if p == nil {
		return nil
	}
	return &models.Order{
		ID:           p.ID,
		DisplayID:    p.DisplayID,
		CartID:       cartID,
		Email:        p.Email,
		Status:       p.Status,
		CurrencyCode: p.CurrencyCode,
		Items:        toLineItems(p.Items, p.CurrencyCode),
		Total:        toMinor(p.Total, p.CurrencyCode),
		CreatedAt:    p.CreatedAt,
	}
}

func toLineItems(items []lineItemPayload, currency string) []models.LineItem {
	result := make([]models.LineItem, 0, len(items))
	for _, item := range items {
		result = append(result, models.LineItem{
			ID:                item.ID,
			Title:             item.Title,
			VariantID:         item.VariantID,
			Quantity:          item.Quantity,
			UnitPrice:         toMinor(item.UnitPrice, currency),
			OriginalUnitPrice: toMinor(item.OriginalUnitPrice, currency),
			Total:             toMinor(item.Total, currency),
			OriginalTotal:     toMinor(item.OriginalTotal, currency),
		})
	}
	return result
}
