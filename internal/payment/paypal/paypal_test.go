package paypal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewClientValidatesConfig(t *testing.T) {
	client, err := NewClient("cid", "secret", "https://api-m.sandbox.paypal.com/", 0)
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if client.baseURL != "https://api-m.sandbox.paypal.com" {
		t.Fatalf("base url not normalized, got: %s", client.baseURL)
	}
	if _, err := NewClient("", "secret", "", time.Second); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid without client id, got %v", err)
	}
	if _, err := NewClient("cid", " ", "", time.Second); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid without secret, got %v", err)
	}
}

func TestOrderOutcome(t *testing.T) {
	approved := &Order{Status: "APPROVED"}
	if got := approved.Outcome(); got != OutcomeSuccess {
		t.Fatalf("expected success for approved order, got %s", got)
	}

	declined := &Order{Status: "COMPLETED", PurchaseUnits: make([]PurchaseUnit, 1)}
	declined.PurchaseUnits[0].Payments.Captures = []PaymentRecord{{Status: "DECLINED"}}
	if got := declined.Outcome(); got != OutcomeFailed {
		t.Fatalf("capture status should win, got %s", got)
	}

	authorized := &Order{Status: "COMPLETED", PurchaseUnits: make([]PurchaseUnit, 1)}
	authorized.PurchaseUnits[0].Payments.Authorizations = []PaymentRecord{{Status: "CREATED"}}
	if got := authorized.Outcome(); got != OutcomeSuccess {
		t.Fatalf("created authorization should count as success, got %s", got)
	}

	denied := &Order{Status: "COMPLETED", PurchaseUnits: make([]PurchaseUnit, 1)}
	denied.PurchaseUnits[0].Payments.Authorizations = []PaymentRecord{{Status: "DENIED"}}
	denied.PurchaseUnits[0].Payments.Authorizations[0].StatusDetails.Reason = "PAYER_CANNOT_PAY"
	if got := denied.Outcome(); got != OutcomeFailed || denied.FailureReason() != "PAYER_CANNOT_PAY" {
		t.Fatalf("unexpected denied outcome: %s %s", got, denied.FailureReason())
	}

	if got := (&Order{Status: "PAYER_ACTION_REQUIRED"}).Outcome(); got != OutcomePending {
		t.Fatalf("expected pending, got %s", got)
	}
	if got := (&Order{Status: "VOIDED"}).Outcome(); got != OutcomeFailed {
		t.Fatalf("expected failed for voided order, got %s", got)
	}
}

func TestGetOrderCachesToken(t *testing.T) {
	var tokenCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/oauth2/token":
			atomic.AddInt32(&tokenCalls, 1)
			user, pass, ok := r.BasicAuth()
			if !ok || user != "cid" || pass != "secret" {
				t.Errorf("unexpected basic auth: %s %s", user, pass)
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "token-1", "expires_in": 3600})
		case "/v2/checkout/orders/ORDER-1":
			if r.Header.Get("Authorization") != "Bearer token-1" {
				t.Errorf("unexpected authorization: %s", r.Header.Get("Authorization"))
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"id":     "ORDER-1",
				"status": "COMPLETED",
				"purchase_units": []interface{}{
					map[string]interface{}{
						"amount": map[string]interface{}{"value": "10.00", "currency_code": "USD"},
						"payments": map[string]interface{}{
							"captures": []interface{}{
								map[string]interface{}{
									"status":         "DECLINED",
									"status_details": map[string]interface{}{"reason": "DECLINED_BY_RISK_FRAUD_FILTERS"},
								},
							},
						},
					},
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client, err := NewClient("cid", "secret", server.URL, time.Second)
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	order, err := client.GetOrder(context.Background(), "ORDER-1")
	if err != nil {
		t.Fatalf("GetOrder error: %v", err)
	}
	if order.Outcome() != OutcomeFailed {
		t.Fatalf("unexpected outcome: %s", order.Outcome())
	}
	if order.FailureReason() != "DECLINED_BY_RISK_FRAUD_FILTERS" {
		t.Fatalf("unexpected failure reason: %s", order.FailureReason())
	}
	if order.PurchaseUnits[0].Amount.Value != "10.00" || order.PurchaseUnits[0].Amount.CurrencyCode != "USD" {
		t.Fatalf("unexpected amount: %+v", order.PurchaseUnits[0].Amount)
	}

	if _, err := client.GetOrder(context.Background(), "ORDER-1"); err != nil {
		t.Fatalf("second GetOrder error: %v", err)
	}
	if atomic.LoadInt32(&tokenCalls) != 1 {
		t.Fatalf("token should be cached, got %d token calls", tokenCalls)
	}

	if _, err := client.GetOrder(context.Background(), "ORDER-404"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestGetOrderRefreshesExpiredToken(t *testing.T) {
	var tokenCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/oauth2/token" {
			atomic.AddInt32(&tokenCalls, 1)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "token-1", "expires_in": 120})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"id": "ORDER-1", "status": "APPROVED"})
	}))
	defer server.Close()

	client, _ := NewClient("cid", "secret", server.URL, time.Second)
	now := time.Now()
	client.now = func() time.Time { return now }

	if _, err := client.GetOrder(context.Background(), "ORDER-1"); err != nil {
		t.Fatalf("GetOrder error: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := client.GetOrder(context.Background(), "ORDER-1"); err != nil {
		t.Fatalf("GetOrder error: %v", err)
	}
	if atomic.LoadInt32(&tokenCalls) != 2 {
		t.Fatalf("expired token should be refreshed, got %d token calls", tokenCalls)
	}
}
