package paypal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

var (
	ErrConfigInvalid   = errors.New("paypal config invalid")
	ErrAuthFailed      = errors.New("paypal auth failed")
	ErrRequestFailed   = errors.New("paypal request failed")
	ErrResponseInvalid = errors.New("paypal response invalid")
	ErrOrderNotFound   = errors.New("paypal order not found")
)

const (
	defaultSandboxBaseURL = "https://api-m.sandbox.paypal.com"
	defaultTimeout        = 12 * time.Second
	// 提前刷新，避免请求途中 token 过期
	tokenExpirySkew = 60 * time.Second
)

// 确认结果
const (
	OutcomeSuccess = "success"
	OutcomePending = "pending"
	OutcomeFailed  = "failed"
)

// Client 只读的 PayPal 订单查询客户端，缓存 OAuth access token
type Client struct {
	clientID     string
	clientSecret string
	baseURL      string
	httpClient   *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	now         func() time.Time
}

// NewClient 创建客户端，baseURL 为空时使用沙箱地址。
func NewClient(clientID, clientSecret, baseURL string, timeout time.Duration) (*Client, error) {
	clientID = strings.TrimSpace(clientID)
	clientSecret = strings.TrimSpace(clientSecret)
	if clientID == "" {
		return nil, fmt.Errorf("%w: client_id is required", ErrConfigInvalid)
	}
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: client_secret is required", ErrConfigInvalid)
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultSandboxBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("%w: base_url is invalid", ErrConfigInvalid)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: timeout},
		now:          time.Now,
	}, nil
}

// Order 结账确认关心的订单字段
type Order struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units"`
}

// PurchaseUnit 订单下的购买单元
type PurchaseUnit struct {
	Amount struct {
		Value        string `json:"value"`
		CurrencyCode string `json:"currency_code"`
	} `json:"amount"`
	Payments struct {
		Captures       []PaymentRecord `json:"captures"`
		Authorizations []PaymentRecord `json:"authorizations"`
	} `json:"payments"`
}

// PaymentRecord 捕获或授权记录
type PaymentRecord struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	StatusDetails struct {
		Reason string `json:"reason"`
	} `json:"status_details"`
}

func (o *Order) firstRecord() (capture *PaymentRecord, authorization *PaymentRecord) {
	if len(o.PurchaseUnits) == 0 {
		return nil, nil
	}
	payments := o.PurchaseUnits[0].Payments
	if len(payments.Captures) > 0 {
		capture = &payments.Captures[0]
	}
	if len(payments.Authorizations) > 0 {
		authorization = &payments.Authorizations[0]
	}
	return capture, authorization
}

// Outcome 捕获状态优先，其次授权状态，最后看订单状态。
// APPROVED 表示买家已同意，捕获由电商后端在下单时完成。
func (o *Order) Outcome() string {
	capture, authorization := o.firstRecord()
	if capture != nil {
		switch strings.ToUpper(strings.TrimSpace(capture.Status)) {
		case "COMPLETED":
			return OutcomeSuccess
		case "DECLINED", "FAILED", "DENIED":
			return OutcomeFailed
		case "PENDING":
			return OutcomePending
		}
	}
	if authorization != nil {
		switch strings.ToUpper(strings.TrimSpace(authorization.Status)) {
		case "CREATED", "CAPTURED":
			return OutcomeSuccess
		case "DENIED", "VOIDED", "EXPIRED":
			return OutcomeFailed
		case "PENDING":
			return OutcomePending
		}
	}
	switch strings.ToUpper(strings.TrimSpace(o.Status)) {
	case "COMPLETED", "APPROVED":
		return OutcomeSuccess
	case "VOIDED":
		return OutcomeFailed
	default:
		return OutcomePending
	}
}

// FailureReason 捕获或授权记录上的原因码
func (o *Order) FailureReason() string {
	capture, authorization := o.firstRecord()
	if capture != nil && capture.StatusDetails.Reason != "" {
		return strings.TrimSpace(capture.StatusDetails.Reason)
	}
	if authorization != nil {
		return strings.TrimSpace(authorization.StatusDetails.Reason)
	}
	return ""
}

// GetOrder 查询 PayPal 订单
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is empty", ErrConfigInvalid)
	}
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/checkout/orders/"+url.PathEscape(orderID), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	body, status, err := c.do(req)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusUnauthorized:
		c.resetToken()
		return nil, fmt.Errorf("%w: token rejected", ErrAuthFailed)
	case status == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	case status < 200 || status >= 300:
		return nil, fmt.Errorf("%w: get order status %d", ErrResponseInvalid, status)
	}

	var order Order
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("%w: decode response failed", ErrResponseInvalid)
	}
	if strings.TrimSpace(order.Status) == "" {
		return nil, fmt.Errorf("%w: missing order status", ErrResponseInvalid)
	}
	if order.ID == "" {
		order.ID = orderID
	}
	return &order, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	values := url.Values{}
	values.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", strings.NewReader(values.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: build token request failed", ErrAuthFailed)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientID, c.clientSecret)

	body, status, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("%w: token status %d", ErrAuthFailed, status)
	}
	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode token response failed", ErrAuthFailed)
	}
	token := strings.TrimSpace(parsed.AccessToken)
	if token == "" {
		return "", fmt.Errorf("%w: access_token is empty", ErrAuthFailed)
	}
	c.token = token
	c.tokenExpiry = c.now().Add(time.Duration(parsed.ExpiresIn)*time.Second - tokenExpirySkew)
	return token, nil
}

func (c *Client) resetToken() {
	c.mu.Lock()
	c.token = ""
	c.tokenExpiry = time.Time{}
	c.mu.Unlock()
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: http request failed", ErrRequestFailed)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read response failed", ErrRequestFailed)
	}
	return body, resp.StatusCode, nil
}
