package worker

import (
	"context"
	"strings"

	"github.com/dujiao-next/checkout/internal/logger"
	"github.com/dujiao-next/checkout/internal/provider"
	"github.com/dujiao-next/checkout/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderPlaced, c.handleOrderPlaced)
	mux.HandleFunc(queue.TaskSessionCleanup, c.handleSessionCleanup)
}

func (c *Consumer) handleOrderPlaced(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_placed_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseOrderPlacedPayload(task)
	if err != nil {
		logger.Warnw("worker_order_placed_unmarshal_failed", "error", err)
		return err
	}
	cartID := strings.TrimSpace(payload.CartID)
	if cartID == "" || strings.TrimSpace(payload.OrderID) == "" {
		logger.Debugw("worker_order_placed_skip_invalid_payload", "cart_id", payload.CartID, "order_id", payload.OrderID)
		return nil
	}
	log := logger.ForCart(cartID, "order_id", payload.OrderID, "display_id", payload.DisplayID)
	// 购物车已转为订单，残留的确认标记不再有意义
	if c.Container != nil && c.ConfirmationStore != nil {
		if err := c.ConfirmationStore.Clear(ctx, cartID); err != nil {
			log.Warnw("worker_order_placed_clear_confirmation_failed", "error", err)
			return err
		}
	}
	log.Infow("worker_order_placed_done", "has_email", strings.TrimSpace(payload.Email) != "")
	return nil
}

func (c *Consumer) handleSessionCleanup(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_session_cleanup_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseSessionCleanupPayload(task)
	if err != nil {
		logger.Warnw("worker_session_cleanup_unmarshal_failed", "error", err)
		return err
	}
	cartID := strings.TrimSpace(payload.CartID)
	if cartID == "" || strings.TrimSpace(payload.SessionID) == "" {
		logger.Debugw("worker_session_cleanup_skip_invalid_payload", "cart_id", payload.CartID, "session_id", payload.SessionID)
		return nil
	}
	if c.Container == nil || c.ConfirmationStore == nil {
		logger.Warnw("worker_session_cleanup_skip_store_nil", "cart_id", cartID)
		return nil
	}
	// 只清理仍指向该会话的标记，之后重新确认的会话不受影响
	confirmed, err := c.ConfirmationStore.IsConfirmed(ctx, cartID, payload.SessionID)
	if err != nil {
		logger.Warnw("worker_session_cleanup_lookup_failed", "cart_id", cartID, "session_id", payload.SessionID, "error", err)
		return err
	}
	if !confirmed {
		logger.Debugw("worker_session_cleanup_skip_not_confirmed", "cart_id", cartID, "session_id", payload.SessionID)
		return nil
	}
	if err := c.ConfirmationStore.Clear(ctx, cartID); err != nil {
		logger.Warnw("worker_session_cleanup_clear_failed", "cart_id", cartID, "session_id", payload.SessionID, "error", err)
		return err
	}
	return nil
}
