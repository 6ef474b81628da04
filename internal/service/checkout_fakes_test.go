package service

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dujiao-next/checkout/internal/models"
)

type fakeCommerceBackend struct {
	mu            sync.Mutex
	carts         map[string]*models.Cart
	retrieveErr   error
	appliedCodes  [][]string
	applyErr      error
	sessionCalls  []string
	sessionErr    error
	placeCalls    int32
	placeResult   *models.PlaceOrderResult
	placeErr      error
	placeStarted  chan struct{}
	placeRelease  chan struct{}
	mutateCartID  string
	addressCalls  int
	lastBilling   *models.Address
	lastEmail     string
	shippingCalls []string
}

func newFakeCommerceBackend(carts ...*models.Cart) *fakeCommerceBackend {
	backend := &fakeCommerceBackend{carts: map[string]*models.Cart{}}
	for _, cart := range carts {
		backend.carts[cart.ID] = cart
	}
	return backend
}

func (f *fakeCommerceBackend) respond(cartID string) *models.Cart {
	cart := f.carts[cartID]
	if cart == nil {
		return nil
	}
	if f.mutateCartID != "" {
		copied := *cart
		copied.ID = f.mutateCartID
		return &copied
	}
	return cart
}

func (f *fakeCommerceBackend) RetrieveCart(_ context.Context, cartID string) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.retrieveErr != nil {
		return nil, f.retrieveErr
	}
	return f.carts[cartID], nil
}

func (f *fakeCommerceBackend) SetAddresses(_ context.Context, cartID string, shipping, billing *models.Address, email string) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addressCalls++
	f.lastBilling = billing
	f.lastEmail = email
	cart := f.carts[cartID]
	if cart == nil {
		return nil, nil
	}
	cart.ShippingAddress = shipping
	cart.BillingAddress = billing
	if email != "" {
		cart.Email = email
	}
	return f.respond(cartID), nil
}

func (f *fakeCommerceBackend) UpdateEmail(_ context.Context, cartID string, email string) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastEmail = email
	cart := f.carts[cartID]
	if cart == nil {
		return nil, nil
	}
	cart.Email = email
	return f.respond(cartID), nil
}

func (f *fakeCommerceBackend) AddShippingMethod(_ context.Context, cartID string, optionID string) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shippingCalls = append(f.shippingCalls, optionID)
	cart := f.carts[cartID]
	if cart == nil {
		return nil, nil
	}
	cart.ShippingMethods = []models.ShippingMethod{{ID: "sm_" + optionID, ShippingOptionID: optionID}}
	return f.respond(cartID), nil
}

func (f *fakeCommerceBackend) InitiatePaymentSession(_ context.Context, cart *models.Cart, providerID string) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessionCalls = append(f.sessionCalls, providerID)
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	stored := f.carts[cart.ID]
	if stored == nil {
		return nil, nil
	}
	if stored.PaymentCollection == nil {
		stored.PaymentCollection = &models.PaymentCollection{ID: "paycol_" + cart.ID}
	}
	session := models.PaymentSession{
		ID:         "ps_" + providerID,
		ProviderID: providerID,
		Status:     "pending",
		Amount:     stored.Total,
	}
	if providerID == "pp_stripe_stripe" {
		session.ClientSecret = "pi_secret"
		session.Data = map[string]interface{}{"id": "pi_123"}
	}
	stored.PaymentCollection.PaymentSessions = append(stored.PaymentCollection.PaymentSessions, session)
	return f.respond(cart.ID), nil
}

func (f *fakeCommerceBackend) ApplyPromotions(_ context.Context, cartID string, codes []string) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	submitted := append([]string(nil), codes...)
	f.appliedCodes = append(f.appliedCodes, submitted)
	if f.applyErr != nil {
		return nil, f.applyErr
	}
	cart := f.carts[cartID]
	if cart == nil {
		return nil, nil
	}
	promotions := make([]models.Promotion, 0, len(cart.Promotions)+len(codes))
	for _, promotion := range cart.Promotions {
		if promotion.IsAutomatic() {
			promotions = append(promotions, promotion)
		}
	}
	for _, code := range codes {
		value := code
		promotions = append(promotions, models.Promotion{ID: "promo_" + code, Code: &value})
	}
	cart.Promotions = promotions
	return f.respond(cartID), nil
}

func (f *fakeCommerceBackend) PlaceOrder(_ context.Context, cartID string) (*models.PlaceOrderResult, error) {
	atomic.AddInt32(&f.placeCalls, 1)
	if f.placeStarted != nil {
		close(f.placeStarted)
	}
	if f.placeRelease != nil {
		<-f.placeRelease
	}
	if f.placeErr != nil {
		return nil, f.placeErr
	}
	if f.placeResult != nil {
		return f.placeResult, nil
	}
	return &models.PlaceOrderResult{
		Type:  "order",
		Order: &models.Order{ID: "order_" + cartID, CartID: cartID, DisplayID: 1001},
	}, nil
}

func (f *fakeCommerceBackend) lastAppliedCodes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.appliedCodes) == 0 {
		return nil
	}
	return f.appliedCodes[len(f.appliedCodes)-1]
}

type memoryLockerStub struct {
	mu     sync.Mutex
	locked map[string]bool
}

func newMemoryLockerStub() *memoryLockerStub {
	return &memoryLockerStub{locked: map[string]bool{}}
}

func (l *memoryLockerStub) TryLock(_ context.Context, cartID string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locked[cartID] {
		return nil, false, nil
	}
	l.locked[cartID] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.locked, cartID)
	}, true, nil
}

type confirmationStoreStub struct {
	mu        sync.Mutex
	confirmed map[string]string
	cleared   []string
}

func newConfirmationStoreStub() *confirmationStoreStub {
	return &confirmationStoreStub{confirmed: map[string]string{}}
}

func (s *confirmationStoreStub) MarkConfirmed(_ context.Context, cartID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmed[cartID] = sessionID
	return nil
}

func (s *confirmationStoreStub) IsConfirmed(_ context.Context, cartID, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmed[cartID] == sessionID && sessionID != "", nil
}

func (s *confirmationStoreStub) Clear(_ context.Context, cartID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.confirmed, cartID)
	s.cleared = append(s.cleared, cartID)
	return nil
}

type confirmerStub struct {
	result *PaymentConfirmation
	err    error
	calls  int
}

func (c *confirmerStub) Confirm(_ context.Context, _ models.PaymentSession) (*PaymentConfirmation, error) {
	c.calls++
	return c.result, c.err
}

func strPtr(value string) *string {
	return &value
}

func readyCart(id string) *models.Cart {
	address := &models.Address{FirstName: "Ada", LastName: "Lovelace", Address1: "1 Main St", City: "London", PostalCode: "N1", CountryCode: "gb"}
	return &models.Cart{
		ID:              id,
		CurrencyCode:    "usd",
		Region:          &models.Region{ID: "reg_us", Name: "US", CurrencyCode: "usd"},
		Email:           "ada@example.com",
		Items:           []models.LineItem{{ID: "item_1", Title: "Tee", Quantity: 1, UnitPrice: 10000, Total: 9000, OriginalTotal: 10000}},
		ShippingAddress: address,
		BillingAddress:  address,
		ShippingMethods: []models.ShippingMethod{{ID: "sm_1", ShippingOptionID: "so_1", Amount: 0}},
		Subtotal:        10000,
		DiscountTotal:   1000,
		Total:           9000,
	}
}

func withSession(cart *models.Cart, providerID, secret string) *models.Cart {
	session := models.PaymentSession{ID: "ps_1", ProviderID: providerID, Status: "pending", ClientSecret: secret}
	if secret != "" {
		session.Data = map[string]interface{}{"id": "pi_123"}
	}
	cart.PaymentCollection = &models.PaymentCollection{ID: "paycol_1", PaymentSessions: []models.PaymentSession{session}}
	return cart
}
