package public

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dujiao-next/checkout/internal/cache"
	"github.com/dujiao-next/checkout/internal/commerce"
	"github.com/dujiao-next/checkout/internal/config"
	"github.com/dujiao-next/checkout/internal/models"
	"github.com/dujiao-next/checkout/internal/provider"
	"github.com/dujiao-next/checkout/internal/queue"
	"github.com/dujiao-next/checkout/internal/service"

	"github.com/gin-gonic/gin"
)

type stubBackend struct {
	mu         sync.Mutex
	carts      map[string]*models.Cart
	applyErr   error
	placeCalls int
}

func (s *stubBackend) RetrieveCart(_ context.Context, cartID string) (*models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.carts[cartID], nil
}

func (s *stubBackend) SetAddresses(_ context.Context, cartID string, shipping, billing *models.Address, email string) (*models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart := s.carts[cartID]
	cart.ShippingAddress = shipping
	cart.BillingAddress = billing
	if email != "" {
		cart.Email = email
	}
	return cart, nil
}

func (s *stubBackend) UpdateEmail(_ context.Context, cartID string, email string) (*models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart := s.carts[cartID]
	cart.Email = email
	return cart, nil
}

func (s *stubBackend) AddShippingMethod(_ context.Context, cartID string, optionID string) (*models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart := s.carts[cartID]
	cart.ShippingMethods = []models.ShippingMethod{{ID: "sm_1", ShippingOptionID: optionID}}
	return cart, nil
}

func (s *stubBackend) InitiatePaymentSession(_ context.Context, cart *models.Cart, providerID string) (*models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.carts[cart.ID]
	stored.PaymentCollection = &models.PaymentCollection{
		ID:              "paycol_1",
		PaymentSessions: []models.PaymentSession{{ID: "ps_1", ProviderID: providerID, Status: "pending"}},
	}
	return stored, nil
}

func (s *stubBackend) ApplyPromotions(_ context.Context, cartID string, _ []string) (*models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applyErr != nil {
		return nil, s.applyErr
	}
	return s.carts[cartID], nil
}

func (s *stubBackend) PlaceOrder(_ context.Context, cartID string) (*models.PlaceOrderResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.placeCalls++
	return &models.PlaceOrderResult{
		Type:  "order",
		Order: &models.Order{ID: "order_1", DisplayID: 1, CartID: cartID, CurrencyCode: "usd", Total: 9000},
	}, nil
}

type apiResponse struct {
	StatusCode int             `json:"status_code"`
	ErrorCode  string          `json:"error_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

func testAddress() *models.Address {
	return &models.Address{FirstName: "Ada", LastName: "Lovelace", Address1: "1 Main St", City: "London", PostalCode: "N1", CountryCode: "gb"}
}

func readyCart(id string) *models.Cart {
	return &models.Cart{
		ID:              id,
		CurrencyCode:    "usd",
		Region:          &models.Region{ID: "reg_us", Name: "US", CurrencyCode: "usd"},
		Email:           "ada@example.com",
		Items:           []models.LineItem{{ID: "item_1", Title: "Tee", Quantity: 2, UnitPrice: 5000, Total: 9000, OriginalTotal: 10000}},
		ShippingAddress: testAddress(),
		BillingAddress:  testAddress(),
		ShippingMethods: []models.ShippingMethod{{ID: "sm_1", ShippingOptionID: "so_1"}},
		Subtotal:        10000,
		DiscountTotal:   1000,
		Total:           9000,
	}
}

func newTestRouter(t *testing.T, backend *stubBackend) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	queueClient, _ := queue.NewClient(nil)
	locker := cache.NewCartLocker(time.Minute)
	store := cache.NewPaymentConfirmationStore(time.Minute)
	pricing := service.NewPricingService()
	steps := service.NewCheckoutStepMachine()
	router := service.NewPaymentRouter(nil)
	ledger := service.NewPromotionLedger(backend)
	submission := service.NewOrderSubmissionCoordinator(backend, steps, router, locker, store, queueClient)
	confirmation := service.NewPaymentConfirmationService(router, nil, store, queueClient, time.Minute)

	container := &provider.Container{
		Config:                     &config.Config{},
		QueueClient:                queueClient,
		CommerceClient:             backend,
		CartLocker:                 locker,
		ConfirmationStore:          store,
		PricingService:             pricing,
		PromotionLedger:            ledger,
		CheckoutStepMachine:        steps,
		PaymentRouter:              router,
		OrderSubmissionCoordinator: submission,
		PaymentConfirmationService: confirmation,
		CheckoutService:            service.NewCheckoutService(backend, locker, pricing, ledger, steps, router, submission, confirmation),
	}

	h := New(container)
	r := gin.New()
	group := r.Group("/api/v1/checkout/:cart_id")
	group.GET("/summary", h.GetSummary)
	group.GET("/step", h.GetActiveStep)
	group.GET("/items/:item_id/price", h.GetItemPrice)
	group.POST("/shipping-methods", h.SetShippingMethod)
	group.POST("/addresses", h.SetAddresses)
	group.POST("/promotions", h.ApplyPromotion)
	group.POST("/payment/confirm", h.ConfirmPayment)
	group.POST("/submit", h.SubmitOrder)
	return r
}

func doRequest(t *testing.T, r *gin.Engine, method, path, body string) apiResponse {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Language", "en-US")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("http status want 200 got %d", w.Code)
	}
	var resp apiResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v body=%s", err, w.Body.String())
	}
	return resp
}

func TestGetSummary(t *testing.T) {
	backend := &stubBackend{carts: map[string]*models.Cart{"cart_1": readyCart("cart_1")}}
	r := newTestRouter(t, backend)

	resp := doRequest(t, r, http.MethodGet, "/api/v1/checkout/cart_1/summary?step=review", "")
	if resp.StatusCode != 0 {
		t.Fatalf("status_code want 0 got %d (%s)", resp.StatusCode, resp.Msg)
	}
	var summary service.CheckoutSummary
	if err := json.Unmarshal(resp.Data, &summary); err != nil {
		t.Fatalf("unmarshal summary failed: %v", err)
	}
	if summary.ActiveStep != "payment" || !summary.Redirected {
		t.Fatalf("review should redirect to payment, got %s redirected=%v", summary.ActiveStep, summary.Redirected)
	}
	if summary.Totals == nil || summary.Totals.Total != 9000 {
		t.Fatalf("unexpected totals: %+v", summary.Totals)
	}
	if len(summary.Items) != 1 || summary.Items[0].Line.PercentOff == nil || *summary.Items[0].Line.PercentOff != 10 {
		t.Fatalf("unexpected line prices: %+v", summary.Items)
	}
}

func TestGetSummaryCartNotFound(t *testing.T) {
	r := newTestRouter(t, &stubBackend{carts: map[string]*models.Cart{}})

	resp := doRequest(t, r, http.MethodGet, "/api/v1/checkout/missing/summary", "")
	if resp.StatusCode != 404 || resp.Msg != "Cart not found" {
		t.Fatalf("unexpected response: %d %s", resp.StatusCode, resp.Msg)
	}
}

func TestGetActiveStepReportsRedirect(t *testing.T) {
	cart := readyCart("cart_1")
	cart.ShippingMethods = nil
	r := newTestRouter(t, &stubBackend{carts: map[string]*models.Cart{"cart_1": cart}})

	resp := doRequest(t, r, http.MethodGet, "/api/v1/checkout/cart_1/step?step=review", "")
	var data ActiveStepResponse
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("unmarshal step failed: %v", err)
	}
	if data.Step != "delivery" || !data.Redirect {
		t.Fatalf("review should redirect to delivery, got %+v", data)
	}
}

func TestGetItemUnitPrice(t *testing.T) {
	r := newTestRouter(t, &stubBackend{carts: map[string]*models.Cart{"cart_1": readyCart("cart_1")}})

	resp := doRequest(t, r, http.MethodGet, "/api/v1/checkout/cart_1/items/item_1/price?unit=1", "")
	var price service.LineItemPrice
	if err := json.Unmarshal(resp.Data, &price); err != nil {
		t.Fatalf("unmarshal price failed: %v", err)
	}
	if price.Current != 4500 || price.Original == nil || *price.Original != 5000 {
		t.Fatalf("unexpected unit price: %+v", price)
	}

	resp = doRequest(t, r, http.MethodGet, "/api/v1/checkout/cart_1/items/nope/price", "")
	if resp.StatusCode != 404 {
		t.Fatalf("missing item want 404 got %d", resp.StatusCode)
	}
}

func TestSetShippingMethodGated(t *testing.T) {
	cart := readyCart("cart_1")
	cart.ShippingAddress = nil
	cart.ShippingMethods = nil
	r := newTestRouter(t, &stubBackend{carts: map[string]*models.Cart{"cart_1": cart}})

	resp := doRequest(t, r, http.MethodPost, "/api/v1/checkout/cart_1/shipping-methods", `{"option_id":"so_1"}`)
	if resp.StatusCode != 409 {
		t.Fatalf("gated step want 409 got %d", resp.StatusCode)
	}
	if resp.ErrorCode != "step_gated" {
		t.Fatalf("error code want step_gated got %q", resp.ErrorCode)
	}
	var data map[string]string
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("unmarshal data failed: %v", err)
	}
	if data["redirect"] != "address" {
		t.Fatalf("redirect want address got %q", data["redirect"])
	}
}

func TestSetAddressesValidation(t *testing.T) {
	r := newTestRouter(t, &stubBackend{carts: map[string]*models.Cart{"cart_1": readyCart("cart_1")}})

	resp := doRequest(t, r, http.MethodPost, "/api/v1/checkout/cart_1/addresses", `{"shipping_address":{"first_name":"Ada"},"same_as_shipping":true}`)
	if resp.StatusCode != 400 || resp.Msg != "Address is incomplete" {
		t.Fatalf("unexpected response: %d %s", resp.StatusCode, resp.Msg)
	}
}

func TestApplyPromotionRejected(t *testing.T) {
	backend := &stubBackend{
		carts:    map[string]*models.Cart{"cart_1": readyCart("cart_1")},
		applyErr: &commerce.APIError{StatusCode: 400, Message: "code expired"},
	}
	r := newTestRouter(t, backend)

	resp := doRequest(t, r, http.MethodPost, "/api/v1/checkout/cart_1/promotions", `{"code":"EXPIRED"}`)
	if resp.StatusCode != 400 || resp.Msg != "The promotion code is invalid or not applicable" {
		t.Fatalf("unexpected response: %d %s", resp.StatusCode, resp.Msg)
	}

	resp = doRequest(t, r, http.MethodPost, "/api/v1/checkout/cart_1/promotions", `{"code":"  "}`)
	if resp.StatusCode != 400 || resp.Msg != "Please enter a promotion code" {
		t.Fatalf("unexpected response: %d %s", resp.StatusCode, resp.Msg)
	}
}

func TestConfirmPaymentDeferredFlow(t *testing.T) {
	cart := readyCart("cart_1")
	cart.PaymentCollection = &models.PaymentCollection{
		ID:              "paycol_1",
		PaymentSessions: []models.PaymentSession{{ID: "ps_1", ProviderID: "pp_system_default", Status: "pending"}},
	}
	r := newTestRouter(t, &stubBackend{carts: map[string]*models.Cart{"cart_1": cart}})

	resp := doRequest(t, r, http.MethodPost, "/api/v1/checkout/cart_1/payment/confirm", "")
	if resp.StatusCode != 400 {
		t.Fatalf("deferred flow confirm want 400 got %d", resp.StatusCode)
	}
}

func TestSubmitOrder(t *testing.T) {
	incomplete := readyCart("cart_1")
	deferred := readyCart("cart_2")
	deferred.PaymentCollection = &models.PaymentCollection{
		ID:              "paycol_2",
		PaymentSessions: []models.PaymentSession{{ID: "ps_2", ProviderID: "pp_system_default", Status: "pending"}},
	}
	backend := &stubBackend{carts: map[string]*models.Cart{"cart_1": incomplete, "cart_2": deferred}}
	r := newTestRouter(t, backend)

	resp := doRequest(t, r, http.MethodPost, "/api/v1/checkout/cart_1/submit", "")
	if resp.StatusCode != 400 || resp.Msg != "Checkout details are incomplete" {
		t.Fatalf("unexpected response: %d %s", resp.StatusCode, resp.Msg)
	}
	if backend.placeCalls != 0 {
		t.Fatalf("incomplete checkout must not place an order")
	}

	resp = doRequest(t, r, http.MethodPost, "/api/v1/checkout/cart_2/submit", "")
	if resp.StatusCode != 0 {
		t.Fatalf("deferred submit want 0 got %d (%s)", resp.StatusCode, resp.Msg)
	}
	var order models.Order
	if err := json.Unmarshal(resp.Data, &order); err != nil {
		t.Fatalf("unmarshal order failed: %v", err)
	}
	if order.ID != "order_1" || backend.placeCalls != 1 {
		t.Fatalf("unexpected order %+v calls=%d", order, backend.placeCalls)
	}
}
