package service

import (
	"testing"

	"github.com/dujiao-next/checkout/internal/config"
	"github.com/dujiao-next/checkout/internal/constants"
	"github.com/dujiao-next/checkout/internal/models"
)

func TestRouteDefaultClassification(t *testing.T) {
	router := NewPaymentRouter(nil)
	cases := map[string]string{
		"pp_stripe_stripe":        constants.PaymentFlowInteractive,
		"pp_paypal_paypal":        constants.PaymentFlowInteractive,
		"pp_system_default":       constants.PaymentFlowDeferred,
		"pp_bank_transfer_manual": constants.PaymentFlowDeferred,
		"pp_crypto_coinbase":      constants.PaymentFlowDeferred,
		"PP_EPUSDT_TRC20":         constants.PaymentFlowDeferred,
	}
	for providerID, expected := range cases {
		flow := router.Route(withSession(readyCart("cart_1"), providerID, "secret"))
		if flow.Kind != expected {
			t.Fatalf("provider %s: expected %s, got %s", providerID, expected, flow.Kind)
		}
	}
}

func TestRouteUnrecognizedProviderIsUnselected(t *testing.T) {
	router := NewPaymentRouter(nil)
	cart := withSession(readyCart("cart_1"), "pp_adyen_cards", "secret")

	flow := router.Route(cart)
	if !flow.IsUnselected() {
		t.Fatalf("expected unselected, got %+v", flow)
	}
	affordance := router.SubmitAffordance(cart)
	if affordance.Enabled || affordance.Reason != constants.SubmitDisabledNoPaymentMethod {
		t.Fatalf("unexpected affordance: %+v", affordance)
	}
}

func TestRouteConfigOverrides(t *testing.T) {
	router := NewPaymentRouter([]config.PaymentProviderRule{
		{Prefix: "pp_adyen", Flow: "interactive", Family: "adyen"},
		{Prefix: "pp_system_default", Flow: "interactive", Family: "manual"},
		{Prefix: "pp_broken", Flow: "later", Family: "broken"},
	})
	flow := router.Route(withSession(readyCart("cart_1"), "pp_adyen_cards", "secret"))
	if !flow.IsInteractive() || flow.Family != "adyen" {
		t.Fatalf("override rule not applied: %+v", flow)
	}
	flow = router.Route(withSession(readyCart("cart_2"), "pp_system_default", ""))
	if !flow.IsInteractive() {
		t.Fatalf("override should replace default rule: %+v", flow)
	}
	if _, ok := router.Classify("pp_broken_x"); ok {
		t.Fatalf("rule with invalid flow should be ignored")
	}
}

func TestRouteUsesNewestLiveSession(t *testing.T) {
	router := NewPaymentRouter(nil)
	cart := readyCart("cart_1")
	cart.PaymentCollection = &models.PaymentCollection{PaymentSessions: []models.PaymentSession{
		{ID: "ps_old", ProviderID: "pp_system_default", Status: "pending"},
		{ID: "ps_new", ProviderID: "pp_stripe_stripe", Status: "pending", ClientSecret: "secret"},
		{ID: "ps_err", ProviderID: "pp_paypal_paypal", Status: "error"},
	}}
	flow := router.Route(cart)
	if flow.SessionID != "ps_new" || !flow.IsInteractive() || flow.ClientSecret != "secret" {
		t.Fatalf("unexpected flow: %+v", flow)
	}
}

func TestRouteGiftCardSettledCart(t *testing.T) {
	router := NewPaymentRouter(nil)
	cart := readyCart("cart_1")
	cart.GiftCards = []models.GiftCard{{ID: "gc_1"}, {ID: "gc_2"}}
	cart.Total = 0

	flow := router.Route(cart)
	if flow.Kind != constants.PaymentFlowDeferred || flow.ProviderID != constants.ProviderIDGiftCard {
		t.Fatalf("unexpected flow: %+v", flow)
	}
	if affordance := router.SubmitAffordance(cart); !affordance.Enabled {
		t.Fatalf("gift card cart should be submittable: %+v", affordance)
	}
}

func TestSubmitAffordanceNotReady(t *testing.T) {
	router := NewPaymentRouter(nil)
	cart := withSession(readyCart("cart_1"), "pp_system_default", "")
	cart.Email = " "

	if !router.NotReady(cart) {
		t.Fatalf("missing email should be not ready")
	}
	if affordance := router.SubmitAffordance(cart); affordance.Enabled || affordance.Reason != constants.SubmitDisabledNotReady {
		t.Fatalf("unexpected affordance: %+v", affordance)
	}
}

func TestSubmitAffordanceInteractiveWithoutSecret(t *testing.T) {
	router := NewPaymentRouter(nil)
	cart := withSession(readyCart("cart_1"), "pp_stripe_stripe", "")

	affordance := router.SubmitAffordance(cart)
	if affordance.Enabled || affordance.Reason != constants.SubmitDisabledClientSecretAbsent {
		t.Fatalf("unexpected affordance: %+v", affordance)
	}
	cart = withSession(readyCart("cart_2"), "pp_system_default", "")
	if affordance := router.SubmitAffordance(cart); !affordance.Enabled {
		t.Fatalf("deferred flow should be enabled: %+v", affordance)
	}
}
