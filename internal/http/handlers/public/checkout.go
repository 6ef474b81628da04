package public

import (
	"errors"

	"github.com/dujiao-next/checkout/internal/http/response"
	"github.com/dujiao-next/checkout/internal/models"
	"github.com/dujiao-next/checkout/internal/service"

	"github.com/gin-gonic/gin"
)

// ActiveStepResponse 当前步骤响应
type ActiveStepResponse struct {
	Step      string `json:"step"`
	Requested string `json:"requested,omitempty"`
	Redirect  bool   `json:"redirect"`
}

// CartResponse 命令执行后的购物车视图
type CartResponse struct {
	Cart         *models.Cart            `json:"cart"`
	Totals       *service.CartTotals     `json:"totals,omitempty"`
	AllowedSteps []string                `json:"allowed_steps"`
	Payment      service.PaymentFlowView `json:"payment"`
}

// GetSummary 获取结账汇总
func (h *Handler) GetSummary(c *gin.Context) {
	cartID, ok := getCartID(c)
	if !ok {
		return
	}
	summary, err := h.CheckoutService.Summary(c.Request.Context(), cartID, c.Query("step"))
	if err != nil {
		respondCartReadError(c, err)
		return
	}
	response.Success(c, summary)
}

// GetActiveStep 解析当前步骤，被拦截时返回应停留的步骤
func (h *Handler) GetActiveStep(c *gin.Context) {
	cartID, ok := getCartID(c)
	if !ok {
		return
	}
	requested := c.Query("step")
	step, err := h.CheckoutService.GetActiveStep(c.Request.Context(), cartID, requested)
	if err != nil && !errors.Is(err, service.ErrStepGated) && !errors.Is(err, service.ErrStepUnknown) {
		respondCartReadError(c, err)
		return
	}
	response.Success(c, ActiveStepResponse{
		Step:      step,
		Requested: requested,
		Redirect:  err != nil,
	})
}

// GetAllowedSteps 获取可进入的步骤
func (h *Handler) GetAllowedSteps(c *gin.Context) {
	cartID, ok := getCartID(c)
	if !ok {
		return
	}
	steps, err := h.CheckoutService.GetAllowedSteps(c.Request.Context(), cartID)
	if err != nil {
		respondCartReadError(c, err)
		return
	}
	response.Success(c, gin.H{"steps": steps})
}

// GetTotals 获取购物车合计
func (h *Handler) GetTotals(c *gin.Context) {
	cartID, ok := getCartID(c)
	if !ok {
		return
	}
	totals, err := h.CheckoutService.ComputeCartTotals(c.Request.Context(), cartID)
	if err != nil {
		respondCartReadError(c, err)
		return
	}
	response.Success(c, totals)
}

// GetItemPrice 获取商品行价格；unit=1 时返回单价
func (h *Handler) GetItemPrice(c *gin.Context) {
	cartID, ok := getCartID(c)
	if !ok {
		return
	}
	itemID := c.Param("item_id")
	var (
		price *service.LineItemPrice
		err   error
	)
	if c.Query("unit") == "1" || c.Query("unit") == "true" {
		price, err = h.CheckoutService.ComputeUnitPrice(c.Request.Context(), cartID, itemID)
	} else {
		price, err = h.CheckoutService.ComputeLineItemPrice(c.Request.Context(), cartID, itemID)
	}
	if err != nil {
		respondCartReadError(c, err)
		return
	}
	response.Success(c, price)
}

// GetPaymentFlow 获取支付流程与提交按钮状态
func (h *Handler) GetPaymentFlow(c *gin.Context) {
	cartID, ok := getCartID(c)
	if !ok {
		return
	}
	view, err := h.CheckoutService.GetPaymentFlow(c.Request.Context(), cartID)
	if err != nil {
		respondCartReadError(c, err)
		return
	}
	response.Success(c, view)
}

func (h *Handler) buildCartResponse(c *gin.Context, cart *models.Cart) CartResponse {
	resp := CartResponse{
		Cart:         cart,
		AllowedSteps: h.CheckoutStepMachine.AllowedSteps(cart),
		Payment: service.PaymentFlowView{
			Flow:     h.PaymentRouter.Route(cart),
			Submit:   h.PaymentRouter.SubmitAffordance(cart),
			NotReady: h.PaymentRouter.NotReady(cart),
		},
	}
	totals, err := h.PricingService.CartTotals(cart)
	if err != nil {
		requestLog(c).Warnw("checkout_cart_totals_unavailable", "cart_id", cart.ID, "error", err)
		return resp
	}
	resp.Totals = totals
	return resp
}
