package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

const defaultConfirmationTTL = 30 * time.Minute

// paymentConfirmationRecord 已确认的支付会话快照
type paymentConfirmationRecord struct {
	SessionID   string `json:"session_id"`
	ConfirmedAt int64  `json:"confirmed_at"`
}

func paymentConfirmationKey(cartID string) string {
	return "checkout:confirmed:" + strings.TrimSpace(cartID)
}

// PaymentConfirmationStore 记录购物车当前支付会话是否已确认
// 每个购物车只保留最近确认的会话，换会话后自动失效
type PaymentConfirmationStore struct {
	ttl    time.Duration
	mu     sync.Mutex
	locals map[string]localConfirmation
}

type localConfirmation struct {
	sessionID string
	expiresAt time.Time
}

// NewPaymentConfirmationStore 创建确认记录存储
func NewPaymentConfirmationStore(ttl time.Duration) *PaymentConfirmationStore {
	if ttl <= 0 {
		ttl = defaultConfirmationTTL
	}
	return &PaymentConfirmationStore{ttl: ttl, locals: make(map[string]localConfirmation)}
}

// MarkConfirmed 记录会话已确认
func (s *PaymentConfirmationStore) MarkConfirmed(ctx context.Context, cartID, sessionID string) error {
	if Enabled() {
		record := paymentConfirmationRecord{
			SessionID:   strings.TrimSpace(sessionID),
			ConfirmedAt: time.Now().Unix(),
		}
		return SetJSON(ctx, paymentConfirmationKey(cartID), record, s.ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locals[strings.TrimSpace(cartID)] = localConfirmation{
		sessionID: strings.TrimSpace(sessionID),
		expiresAt: time.Now().Add(s.ttl),
	}
	return nil
}

// IsConfirmed 判断会话是否已确认
func (s *PaymentConfirmationStore) IsConfirmed(ctx context.Context, cartID, sessionID string) (bool, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return false, nil
	}
	if Enabled() {
		var record paymentConfirmationRecord
		hit, err := GetJSON(ctx, paymentConfirmationKey(cartID), &record)
		if err != nil || !hit {
			return false, err
		}
		return record.SessionID == sessionID, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	local, ok := s.locals[strings.TrimSpace(cartID)]
	if !ok {
		return false, nil
	}
	if time.Now().After(local.expiresAt) {
		delete(s.locals, strings.TrimSpace(cartID))
		return false, nil
	}
	return local.sessionID == sessionID, nil
}

// Clear 清除购物车的确认记录
func (s *PaymentConfirmationStore) Clear(ctx context.Context, cartID string) error {
	if Enabled() {
		return Del(ctx, paymentConfirmationKey(cartID))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locals, strings.TrimSpace(cartID))
	return nil
}
