package worker

import (
	"context"
	"testing"
	"time"

	"github.com/dujiao-next/checkout/internal/cache"
	"github.com/dujiao-next/checkout/internal/config"
	"github.com/dujiao-next/checkout/internal/provider"
	"github.com/dujiao-next/checkout/internal/queue"

	"github.com/hibiken/asynq"
)

func newTestConsumer() (*Consumer, *cache.PaymentConfirmationStore) {
	store := cache.NewPaymentConfirmationStore(time.Minute)
	return NewConsumer(&provider.Container{ConfirmationStore: store}), store
}

func TestHandleSessionCleanupClearsMatchingSession(t *testing.T) {
	consumer, store := newTestConsumer()
	ctx := context.Background()
	_ = store.MarkConfirmed(ctx, "cart_1", "ps_1")

	task, err := queue.NewSessionCleanupTask(queue.SessionCleanupPayload{CartID: "cart_1", SessionID: "ps_1"})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if err := consumer.handleSessionCleanup(ctx, task); err != nil {
		t.Fatalf("handle session cleanup failed: %v", err)
	}
	if ok, _ := store.IsConfirmed(ctx, "cart_1", "ps_1"); ok {
		t.Fatalf("confirmation should be cleared")
	}
}

func TestHandleSessionCleanupKeepsNewerSession(t *testing.T) {
	consumer, store := newTestConsumer()
	ctx := context.Background()
	_ = store.MarkConfirmed(ctx, "cart_1", "ps_2")

	task, _ := queue.NewSessionCleanupTask(queue.SessionCleanupPayload{CartID: "cart_1", SessionID: "ps_1"})
	if err := consumer.handleSessionCleanup(ctx, task); err != nil {
		t.Fatalf("handle session cleanup failed: %v", err)
	}
	if ok, _ := store.IsConfirmed(ctx, "cart_1", "ps_2"); !ok {
		t.Fatalf("newer confirmation must survive cleanup of an older session")
	}
}

func TestHandleOrderPlacedClearsConfirmation(t *testing.T) {
	consumer, store := newTestConsumer()
	ctx := context.Background()
	_ = store.MarkConfirmed(ctx, "cart_1", "ps_1")

	task, _ := queue.NewOrderPlacedTask(queue.OrderPlacedPayload{CartID: "cart_1", OrderID: "order_1", DisplayID: 3})
	if err := consumer.handleOrderPlaced(ctx, task); err != nil {
		t.Fatalf("handle order placed failed: %v", err)
	}
	if ok, _ := store.IsConfirmed(ctx, "cart_1", "ps_1"); ok {
		t.Fatalf("confirmation should be cleared after order placement")
	}
}

func TestHandlersSkipInvalidPayload(t *testing.T) {
	consumer, _ := newTestConsumer()
	ctx := context.Background()

	if err := consumer.handleOrderPlaced(ctx, asynq.NewTask(queue.TaskOrderPlaced, []byte(`{}`))); err != nil {
		t.Fatalf("empty payload should be skipped, got %v", err)
	}
	if err := consumer.handleSessionCleanup(ctx, asynq.NewTask(queue.TaskSessionCleanup, []byte(`not-json`))); err == nil {
		t.Fatalf("malformed payload should return an error")
	}
}

func TestNewServiceRequiresEnabledQueue(t *testing.T) {
	consumer, _ := newTestConsumer()
	if _, err := NewService(&config.QueueConfig{Enabled: false}, consumer); err == nil {
		t.Fatalf("disabled queue should not build a worker service")
	}
}
