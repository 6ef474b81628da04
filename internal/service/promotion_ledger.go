package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dujiao-next/checkout/internal/commerce"
	"github.com/dujiao-next/checkout/internal/logger"
	"github.com/dujiao-next/checkout/internal/models"
)

// PromotionLedger 优惠码对账层：每次增删都把完整码集合提交给后端，结果以后端返回的购物车为准
type PromotionLedger struct {
	backend CommerceBackend
}

// NewPromotionLedger 创建优惠码对账层
func NewPromotionLedger(backend CommerceBackend) *PromotionLedger {
	return &PromotionLedger{backend: backend}
}

// ApplyCode 应用优惠码
func (l *PromotionLedger) ApplyCode(ctx context.Context, cart *models.Cart, code string) (*models.Cart, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrEmptyPromotionCode
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}
	return l.submit(ctx, cart, CodesWith(cart, code))
}

// RemoveCode 移除优惠码，自动活动不在提交集合内，因此永远不会被移除
func (l *PromotionLedger) RemoveCode(ctx context.Context, cart *models.Cart, code string) (*models.Cart, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrEmptyPromotionCode
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}
	return l.submit(ctx, cart, CodesWithout(cart, code))
}

func (l *PromotionLedger) submit(ctx context.Context, cart *models.Cart, codes []string) (*models.Cart, error) {
	updated, err := l.backend.ApplyPromotions(ctx, cart.ID, codes)
	if err != nil {
		var apiErr *commerce.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode >= http.StatusBadRequest && apiErr.StatusCode < http.StatusInternalServerError {
			logger.ForCart(cart.ID).Infow("promotion_codes_rejected", "codes", codes, "message", apiErr.Message)
			return nil, fmt.Errorf("%w: %s", ErrPromotionRejected, apiErr.Message)
		}
		return nil, wrapBackendError("apply_promotions", err)
	}
	if updated == nil {
		return nil, ErrCartNotFound
	}
	return updated, nil
}

// CodesWith 当前优惠码集合并入新码（去重，保持顺序）
func CodesWith(cart *models.Cart, code string) []string {
	codes := cart.PromotionCodes()
	code = strings.TrimSpace(code)
	for _, existing := range codes {
		if existing == code {
			return codes
		}
	}
	return append(codes, code)
}

// CodesWithout 当前优惠码集合去掉指定码
func CodesWithout(cart *models.Cart, code string) []string {
	code = strings.TrimSpace(code)
	current := cart.PromotionCodes()
	codes := make([]string, 0, len(current))
	for _, existing := range current {
		if existing == code {
			continue
		}
		codes = append(codes, existing)
	}
	return codes
}
