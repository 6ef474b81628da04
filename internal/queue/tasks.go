package queue

import (
	"encoding/json"

	"github.com/dujiao-next/checkout/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderPlaced 下单成功后的收尾任务
	TaskOrderPlaced = constants.TaskCheckoutOrderPlaced
	// TaskSessionCleanup 支付确认标记过期清理任务
	TaskSessionCleanup = constants.TaskCheckoutSessionExpire
)

// OrderPlacedPayload 下单成功任务载荷
type OrderPlacedPayload struct {
	CartID    string `json:"cart_id"`
	OrderID   string `json:"order_id"`
	DisplayID int64  `json:"display_id"`
	Email     string `json:"email"`
}

// SessionCleanupPayload 支付会话清理任务载荷
type SessionCleanupPayload struct {
	CartID    string `json:"cart_id"`
	SessionID string `json:"session_id"`
}

// NewOrderPlacedTask 创建下单成功任务
func NewOrderPlacedTask(payload OrderPlacedPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderPlaced, body), nil
}

// NewSessionCleanupTask 创建支付会话清理任务
func NewSessionCleanupTask(payload SessionCleanupPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionCleanup, body), nil
}

// ParseOrderPlacedPayload 解析下单成功任务载荷
func ParseOrderPlacedPayload(task *asynq.Task) (OrderPlacedPayload, error) {
	var payload OrderPlacedPayload
	if task == nil {
		return payload, nil
	}
	err := json.Unmarshal(task.Payload(), &payload)
	return payload, err
}

// ParseSessionCleanupPayload 解析支付会话清理任务载荷
func ParseSessionCleanupPayload(task *asynq.Task) (SessionCleanupPayload, error) {
	var payload SessionCleanupPayload
	if task == nil {
		return payload, nil
	}
	err := json.Unmarshal(task.Payload(), &payload)
	return payload, err
}
