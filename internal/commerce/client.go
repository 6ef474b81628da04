package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dujiao-next/checkout/internal/config"
	"github.com/dujiao-next/checkout/internal/constants"
	"github.com/dujiao-next/checkout/internal/models"

	"github.com/google/uuid"
)

var (
	ErrConfigInvalid   = errors.New("commerce config invalid")
	ErrRequestFailed   = errors.New("commerce request failed")
	ErrResponseInvalid = errors.New("commerce response invalid")
)

const (
	defaultTimeout         = 15 * time.Second
	headerPublishableKey   = "x-publishable-api-key"
	headerIdempotencyKey   = "Idempotency-Key"
	cartFields             = "*items,*region,*promotions,*promotions.application_method,*shipping_methods,*payment_collection,*payment_collection.payment_sessions,+items.total,+items.original_total"
	maxErrorMessageLength  = 512
	completeCartPathFormat = "/store/carts/%s/complete"
)

// APIError 后端返回的非 2xx 响应
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("commerce api status %d (%s): %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("commerce api status %d: %s", e.StatusCode, e.Message)
}

// Is 匹配 ErrRequestFailed
func (e *APIError) Is(target error) bool {
	return target == ErrRequestFailed
}

// Client 外部电商后端购物车接口客户端
type Client struct {
	baseURL        string
	publishableKey string
	httpClient     *http.Client
}

// NewClient 创建客户端
func NewClient(cfg config.CommerceConfig) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: base_url is required", ErrConfigInvalid)
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("%w: base_url is invalid", ErrConfigInvalid)
	}
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &Client{
		baseURL:        baseURL,
		publishableKey: strings.TrimSpace(cfg.PublishableKey),
		httpClient:     &http.Client{Timeout: timeout},
	}, nil
}

// RetrieveCart 查询购物车，不存在时返回 nil, nil
func (c *Client) RetrieveCart(ctx context.Context, cartID string) (*models.Cart, error) {
	query := url.Values{}
	query.Set("fields", cartFields)
	var envelope cartEnvelope
	err := c.do(ctx, http.MethodGet, cartPath(cartID)+"?"+query.Encode(), nil, nil, &envelope)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return envelope.Cart.toModel(), nil
}

// SetAddresses 设置收货/账单地址，email 为空时不修改
func (c *Client) SetAddresses(ctx context.Context, cartID string, shipping, billing *models.Address, email string) (*models.Cart, error) {
	body := map[string]interface{}{
		"shipping_address": shipping,
		"billing_address":  billing,
	}
	if strings.TrimSpace(email) != "" {
		body["email"] = strings.TrimSpace(email)
	}
	return c.updateCart(ctx, cartID, body)
}

// UpdateEmail 更新联系邮箱
func (c *Client) UpdateEmail(ctx context.Context, cartID string, email string) (*models.Cart, error) {
	return c.updateCart(ctx, cartID, map[string]interface{}{"email": email})
}

// AddShippingMethod 选择配送方式
func (c *Client) AddShippingMethod(ctx context.Context, cartID string, optionID string) (*models.Cart, error) {
	var envelope cartEnvelope
	body := map[string]interface{}{"option_id": optionID}
	if err := c.do(ctx, http.MethodPost, cartPath(cartID)+"/shipping-methods", body, nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Cart.toModel(), nil
}

// InitiatePaymentSession 为购物车创建支付会话，必要时先创建支付集合
func (c *Client) InitiatePaymentSession(ctx context.Context, cart *models.Cart, providerID string) (*models.Cart, error) {
	if cart == nil {
		return nil, fmt.Errorf("%w: cart is nil", ErrRequestFailed)
	}
	collectionID := ""
	if cart.PaymentCollection != nil {
		collectionID = cart.PaymentCollection.ID
	}
	if collectionID == "" {
		var created paymentCollectionEnvelope
		body := map[string]interface{}{"cart_id": cart.ID}
		if err := c.do(ctx, http.MethodPost, "/store/payment-collections", body, nil, &created); err != nil {
			return nil, err
		}
		if created.PaymentCollection == nil || created.PaymentCollection.ID == "" {
			return nil, fmt.Errorf("%w: missing payment collection id", ErrResponseInvalid)
		}
		collectionID = created.PaymentCollection.ID
	}

	var session paymentCollectionEnvelope
	body := map[string]interface{}{"provider_id": providerID}
	path := "/store/payment-collections/" + url.PathEscape(collectionID) + "/payment-sessions"
	if err := c.do(ctx, http.MethodPost, path, body, nil, &session); err != nil {
		return nil, err
	}
	return c.RetrieveCart(ctx, cart.ID)
}

// ApplyPromotions 用完整的优惠码集合覆盖购物车上的优惠码
func (c *Client) ApplyPromotions(ctx context.Context, cartID string, codes []string) (*models.Cart, error) {
	if codes == nil {
		codes = []string{}
	}
	return c.updateCart(ctx, cartID, map[string]interface{}{"promo_codes": codes})
}

// PlaceOrder 完成购物车，每次调用使用新的幂等键
func (c *Client) PlaceOrder(ctx context.Context, cartID string) (*models.PlaceOrderResult, error) {
	headers := map[string]string{headerIdempotencyKey: uuid.NewString()}
	var envelope completeEnvelope
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf(completeCartPathFormat, url.PathEscape(cartID)), nil, headers, &envelope); err != nil {
		return nil, err
	}
	switch envelope.Type {
	case constants.PlaceOrderResultOrder:
		if envelope.Order == nil {
			return nil, fmt.Errorf("%w: order result without order", ErrResponseInvalid)
		}
		return &models.PlaceOrderResult{Type: envelope.Type, Order: envelope.Order.toModel(cartID)}, nil
	case constants.PlaceOrderResultCart:
		return &models.PlaceOrderResult{
			Type:  envelope.Type,
			Cart:  envelope.Cart.toModel(),
			Error: describeError(envelope.Error),
		}, nil
	default:
		return nil, fmt.Errorf("%w: unexpected complete type %q", ErrResponseInvalid, envelope.Type)
	}
}

func (c *Client) updateCart(ctx context.Context, cartID string, body map[string]interface{}) (*models.Cart, error) {
	var envelope cartEnvelope
	if err := c.do(ctx, http.MethodPost, cartPath(cartID), body, nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Cart.toModel(), nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, headers map[string]string, out interface{}) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: marshal request failed", ErrRequestFailed)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.publishableKey != "" {
		req.Header.Set(headerPublishableKey, c.publishableKey)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response failed", ErrResponseInvalid)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp.StatusCode, respBody)
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: decode response failed", ErrResponseInvalid)
	}
	return nil
}

func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}
	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err == nil && strings.TrimSpace(payload.Message) != "" {
		apiErr.Type = strings.TrimSpace(payload.Type)
		apiErr.Message = strings.TrimSpace(payload.Message)
		return apiErr
	}
	message := strings.TrimSpace(string(body))
	if len(message) > maxErrorMessageLength {
		message = message[:maxErrorMessageLength]
	}
	if message == "" {
		message = http.StatusText(statusCode)
	}
	apiErr.Message = message
	return apiErr
}

// describeError 下单失败时后端的 error 字段可能是字符串或对象
func describeError(raw interface{}) string {
	switch typed := raw.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	case map[string]interface{}:
		if message, ok := typed["message"].(string); ok {
			return strings.TrimSpace(message)
		}
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return ""
	}
	return string(encoded)
}

func cartPath(cartID string) string {
	return "/store/carts/" + url.PathEscape(strings.TrimSpace(cartID))
}
