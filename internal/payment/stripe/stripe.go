package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrConfigInvalid   = errors.New("stripe config invalid")
	ErrRequestFailed   = errors.New("stripe request failed")
	ErrResponseInvalid = errors.New("stripe response invalid")
	ErrIntentNotFound  = errors.New("stripe payment intent not found")
)

const (
	defaultAPIBaseURL = "https://api.stripe.com"
	defaultTimeout    = 12 * time.Second
	clientSecretSep   = "_secret_"
)

// 确认结果
const (
	OutcomeSuccess = "success"
	OutcomePending = "pending"
	OutcomeFailed  = "failed"
)

// Client 只读的 PaymentIntent 查询客户端。
// 支付会话由电商后端创建，这里只负责在下单前核实状态。
type Client struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

// NewClient 创建客户端，baseURL 为空时使用 Stripe 官方地址。
func NewClient(secretKey, baseURL string, timeout time.Duration) (*Client, error) {
	secretKey = strings.TrimSpace(secretKey)
	if secretKey == "" {
		return nil, fmt.Errorf("%w: secret_key is required", ErrConfigInvalid)
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultAPIBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("%w: api_base_url is invalid", ErrConfigInvalid)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		secretKey:  secretKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// PaymentIntent 结账确认关心的 PaymentIntent 字段
type PaymentIntent struct {
	ID                 string        `json:"id"`
	Status             string        `json:"status"`
	Amount             int64         `json:"amount"`
	AmountReceived     int64         `json:"amount_received"`
	Currency           string        `json:"currency"`
	CancellationReason string        `json:"cancellation_reason"`
	LastPaymentError   *PaymentError `json:"last_payment_error"`
}

// PaymentError 最近一次扣款失败
type PaymentError struct {
	Code        string `json:"code"`
	DeclineCode string `json:"decline_code"`
	Message     string `json:"message"`
}

// Outcome 将 Stripe 状态归并为 success / pending / failed。
// requires_capture 表示已授权待捕获，捕获由电商后端在下单时完成。
func (p *PaymentIntent) Outcome() string {
	switch strings.ToLower(strings.TrimSpace(p.Status)) {
	case "succeeded", "requires_capture":
		return OutcomeSuccess
	case "canceled", "requires_payment_method":
		return OutcomeFailed
	default:
		return OutcomePending
	}
}

// FailureReason 优先返回面向用户的错误文案
func (p *PaymentIntent) FailureReason() string {
	if e := p.LastPaymentError; e != nil {
		for _, candidate := range []string{e.Message, e.DeclineCode, e.Code} {
			if v := strings.TrimSpace(candidate); v != "" {
				return v
			}
		}
	}
	return strings.TrimSpace(p.CancellationReason)
}

// IntentIDFromClientSecret 从 client_secret（pi_xxx_secret_yyy）中取出 PaymentIntent ID
func IntentIDFromClientSecret(secret string) string {
	secret = strings.TrimSpace(secret)
	idx := strings.Index(secret, clientSecretSep)
	if idx <= 0 || !strings.HasPrefix(secret, "pi_") {
		return ""
	}
	return secret[:idx]
}

type apiErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// RetrievePaymentIntent 查询 PaymentIntent
func (c *Client) RetrievePaymentIntent(ctx context.Context, intentID string) (*PaymentIntent, error) {
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return nil, fmt.Errorf("%w: payment intent id is required", ErrConfigInvalid)
	}
	endpoint := c.baseURL + "/v1/payment_intents/" + url.PathEscape(intentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response failed", ErrResponseInvalid)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiErrorBody
		_ = json.Unmarshal(body, &apiErr)
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrIntentNotFound, intentID)
		}
		return nil, fmt.Errorf("%w: status %d: %s", ErrResponseInvalid, resp.StatusCode, apiErr.Error.Message)
	}

	var intent PaymentIntent
	if err := json.Unmarshal(body, &intent); err != nil {
		return nil, fmt.Errorf("%w: decode response failed", ErrResponseInvalid)
	}
	if strings.TrimSpace(intent.ID) == "" {
		return nil, fmt.Errorf("%w: missing payment intent id", ErrResponseInvalid)
	}
	intent.Currency = strings.ToUpper(strings.TrimSpace(intent.Currency))
	return &intent, nil
}
