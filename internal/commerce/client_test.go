package commerce

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dujiao-next/checkout/internal/config"
	"github.com/dujiao-next/checkout/internal/models"
)

const sampleCartJSON = `{"cart":{
	"id":"cart_1",
	"currency_code":"usd",
	"email":"ada@example.com",
	"items":[{"id":"item_1","title":"Tee","quantity":2,"unit_price":25.5,"total":45.9,"original_total":51}],
	"shipping_methods":[{"id":"sm_1","shipping_option_id":"so_1","name":"Standard","amount":"5.00"}],
	"payment_collection":{"id":"paycol_1","amount":50.9,"status":"not_paid","payment_sessions":[
		{"id":"ps_1","provider_id":"pp_stripe_stripe","status":"pending","amount":50.9,"data":{"id":"pi_1","client_secret":"pi_1_secret"}}
	]},
	"promotions":[{"id":"promo_auto","code":null},{"id":"promo_a","code":"A","application_method":{"type":"percentage","value":10}}],
	"subtotal":51,"discount_total":5.1,"gift_card_total":0,"shipping_total":5,"tax_total":null,"total":50.9
}}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(config.CommerceConfig{BaseURL: server.URL + "/", PublishableKey: "pk_test", TimeoutSeconds: 5})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	return client
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(config.CommerceConfig{}); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid, got %v", err)
	}
}

func TestRetrieveCartConvertsToMinorUnits(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/store/carts/cart_1" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("x-publishable-api-key") != "pk_test" {
			t.Errorf("publishable key header missing")
		}
		if r.URL.Query().Get("fields") == "" {
			t.Errorf("fields query missing")
		}
		_, _ = w.Write([]byte(sampleCartJSON))
	})

	cart, err := client.RetrieveCart(context.Background(), "cart_1")
	if err != nil {
		t.Fatalf("retrieve cart failed: %v", err)
	}
	if cart.Subtotal != 5100 || cart.DiscountTotal != 510 || cart.Total != 5090 || cart.TaxTotal != 0 {
		t.Fatalf("unexpected totals: %+v", cart)
	}
	if cart.Items[0].UnitPrice != 2550 || cart.Items[0].Total != 4590 || cart.Items[0].OriginalTotal != 5100 {
		t.Fatalf("unexpected item amounts: %+v", cart.Items[0])
	}
	if cart.ShippingMethods[0].Amount != 500 {
		t.Fatalf("unexpected shipping amount: %d", cart.ShippingMethods[0].Amount)
	}
	session := cart.ActivePaymentSession()
	if session == nil || session.Secret() != "pi_1_secret" || session.ProviderRef() != "pi_1" {
		t.Fatalf("unexpected session: %+v", session)
	}
	codes := cart.PromotionCodes()
	if len(codes) != 1 || codes[0] != "A" {
		t.Fatalf("unexpected promotion codes: %v", codes)
	}
}

func TestRetrieveCartNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"type":"not_found","message":"Cart id not found"}`))
	})

	cart, err := client.RetrieveCart(context.Background(), "missing")
	if err != nil || cart != nil {
		t.Fatalf("expected nil cart without error, got %v %v", cart, err)
	}
}

func TestApplyPromotionsSendsFullCodeSet(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/store/carts/cart_1" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var payload map[string][]string
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("decode body failed: %v", err)
		}
		if codes := payload["promo_codes"]; len(codes) != 0 {
			t.Errorf("expected empty code set, got %v", codes)
		}
		_, _ = w.Write([]byte(sampleCartJSON))
	})

	if _, err := client.ApplyPromotions(context.Background(), "cart_1", nil); err != nil {
		t.Fatalf("apply promotions failed: %v", err)
	}
}

func TestApplyPromotionsRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"invalid_data","message":"The promotion code EXPIRED is invalid"}`))
	})

	_, err := client.ApplyPromotions(context.Background(), "cart_1", []string{"EXPIRED"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "The promotion code EXPIRED is invalid" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestInitiatePaymentSessionCreatesCollection(t *testing.T) {
	var calls []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/store/payment-collections":
			_, _ = w.Write([]byte(`{"payment_collection":{"id":"paycol_new"}}`))
		case "/store/payment-collections/paycol_new/payment-sessions":
			_, _ = w.Write([]byte(`{"payment_collection":{"id":"paycol_new"}}`))
		case "/store/carts/cart_1":
			_, _ = w.Write([]byte(sampleCartJSON))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	cart, err := client.InitiatePaymentSession(context.Background(), &models.Cart{ID: "cart_1"}, "pp_stripe_stripe")
	if err != nil {
		t.Fatalf("initiate payment session failed: %v", err)
	}
	if cart.ID != "cart_1" {
		t.Fatalf("unexpected cart: %+v", cart)
	}
	if len(calls) != 3 {
		t.Fatalf("unexpected calls: %v", calls)
	}
}

func TestPlaceOrderSendsIdempotencyKey(t *testing.T) {
	keys := map[string]struct{}{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/store/carts/cart_1/complete" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		key := r.Header.Get("Idempotency-Key")
		if key == "" {
			t.Errorf("idempotency key missing")
		}
		keys[key] = struct{}{}
		_, _ = w.Write([]byte(`{"type":"order","order":{"id":"order_1","display_id":7,"currency_code":"usd","total":50.9}}`))
	})

	for i := 0; i < 2; i++ {
		result, err := client.PlaceOrder(context.Background(), "cart_1")
		if err != nil {
			t.Fatalf("place order failed: %v", err)
		}
		if result.Order == nil || result.Order.ID != "order_1" || result.Order.Total != 5090 || result.Order.CartID != "cart_1" {
			t.Fatalf("unexpected order: %+v", result.Order)
		}
	}
	if len(keys) != 2 {
		t.Fatalf("each submit should use a fresh idempotency key, got %d", len(keys))
	}
}

func TestPlaceOrderCartResult(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"type":"cart","cart":{"id":"cart_1","currency_code":"usd"},"error":{"message":"Payment authorization failed"}}`))
	})

	result, err := client.PlaceOrder(context.Background(), "cart_1")
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}
	if result.Type != "cart" || result.Error != "Payment authorization failed" || result.Cart == nil {
		t.Fatalf("unexpected result: %+v", result)
	}
}
