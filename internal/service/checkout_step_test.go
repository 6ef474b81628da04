package service

import (
	"errors"
	"testing"

	"github.com/dujiao-next/checkout/internal/constants"
	"github.com/dujiao-next/checkout/internal/models"
)

func containsStep(steps []string, step string) bool {
	for _, item := range steps {
		if item == step {
			return true
		}
	}
	return false
}

func TestAllowedStepsEmptyCart(t *testing.T) {
	machine := NewCheckoutStepMachine()
	allowed := machine.AllowedSteps(&models.Cart{ID: "cart_1", CurrencyCode: "usd"})
	if len(allowed) != 1 || allowed[0] != constants.StepAddress {
		t.Fatalf("only address should be allowed, got %v", allowed)
	}
	if machine.EarliestIncomplete(nil) != constants.StepAddress {
		t.Fatalf("nil cart should start at address")
	}
}

func TestAllowedStepsGating(t *testing.T) {
	machine := NewCheckoutStepMachine()
	carts := []*models.Cart{
		{ID: "c0"},
		{ID: "c1", ShippingAddress: &models.Address{}},
		{ID: "c2", ShippingMethods: []models.ShippingMethod{{ID: "sm_1"}}},
		{ID: "c3", ShippingMethods: []models.ShippingMethod{{ID: "sm_1"}}, PaymentCollection: &models.PaymentCollection{}},
		{ID: "c4", ShippingAddress: &models.Address{}, PaymentCollection: &models.PaymentCollection{}},
		readyCart("c5"),
		withSession(readyCart("c6"), "pp_stripe_stripe", "secret"),
	}
	for _, cart := range carts {
		allowed := machine.AllowedSteps(cart)
		if containsStep(allowed, constants.StepDelivery) && !machine.IsComplete(constants.StepAddress, cart) {
			t.Fatalf("cart %s: delivery allowed without address: %v", cart.ID, allowed)
		}
		if containsStep(allowed, constants.StepPayment) && !machine.IsComplete(constants.StepDelivery, cart) {
			t.Fatalf("cart %s: payment allowed without delivery: %v", cart.ID, allowed)
		}
		if containsStep(allowed, constants.StepReview) && !machine.IsComplete(constants.StepPayment, cart) {
			t.Fatalf("cart %s: review allowed without payment: %v", cart.ID, allowed)
		}
	}
	if got := machine.AllowedSteps(carts[6]); len(got) != 4 {
		t.Fatalf("complete cart should allow all steps, got %v", got)
	}
}

func TestGiftCardCartIsPaymentComplete(t *testing.T) {
	machine := NewCheckoutStepMachine()
	cart := readyCart("cart_1")
	cart.GiftCards = []models.GiftCard{{ID: "gc_1", Code: "GC1"}, {ID: "gc_2", Code: "GC2"}}
	cart.GiftCardTotal = cart.Total
	cart.Total = 0
	cart.PaymentCollection = nil

	if !machine.IsComplete(constants.StepPayment, cart) {
		t.Fatalf("gift card settled cart should be payment complete")
	}
	if !machine.IsAllowed(constants.StepReview, cart) {
		t.Fatalf("review should be allowed for gift card settled cart")
	}
}

func TestGiftCardPartialCoverageStillNeedsSession(t *testing.T) {
	machine := NewCheckoutStepMachine()
	cart := readyCart("cart_1")
	cart.GiftCards = []models.GiftCard{{ID: "gc_1"}}
	cart.GiftCardTotal = 1000
	cart.Total = 8000

	if machine.IsComplete(constants.StepPayment, cart) {
		t.Fatalf("partial gift card coverage should not complete payment")
	}
}

func TestActiveStepRedirectsToDelivery(t *testing.T) {
	machine := NewCheckoutStepMachine()
	cart := &models.Cart{ID: "cart_1", ShippingAddress: &models.Address{City: "Paris"}, ShippingMethods: []models.ShippingMethod{}}

	step, err := machine.ActiveStep(cart, constants.StepReview)
	if step != constants.StepDelivery {
		t.Fatalf("expected delivery, got %s", step)
	}
	var gateErr *StepGateError
	if !errors.As(err, &gateErr) {
		t.Fatalf("expected StepGateError, got %v", err)
	}
	if gateErr.Redirect != constants.StepDelivery || gateErr.Requested != constants.StepReview {
		t.Fatalf("unexpected gate error: %+v", gateErr)
	}
	if !errors.Is(err, ErrStepGated) {
		t.Fatalf("gate error should match ErrStepGated")
	}
}

func TestActiveStepHonoursAllowedRequest(t *testing.T) {
	machine := NewCheckoutStepMachine()
	cart := withSession(readyCart("cart_1"), "pp_system_default", "")

	step, err := machine.ActiveStep(cart, " Address ")
	if err != nil || step != constants.StepAddress {
		t.Fatalf("expected address without error, got %s %v", step, err)
	}
	step, err = machine.ActiveStep(cart, "")
	if err != nil || step != constants.StepReview {
		t.Fatalf("empty request should resolve to review, got %s %v", step, err)
	}
}

func TestActiveStepUnknownStep(t *testing.T) {
	machine := NewCheckoutStepMachine()
	step, err := machine.ActiveStep(&models.Cart{ID: "cart_1"}, "shipping")
	if !errors.Is(err, ErrStepUnknown) {
		t.Fatalf("expected ErrStepUnknown, got %v", err)
	}
	if step != constants.StepAddress {
		t.Fatalf("unknown step should redirect to earliest incomplete, got %s", step)
	}
}
