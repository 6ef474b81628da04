package public

import (
	"github.com/dujiao-next/checkout/internal/http/response"
	"github.com/dujiao-next/checkout/internal/models"
	"github.com/dujiao-next/checkout/internal/service"

	"github.com/gin-gonic/gin"
)

// SetAddressesRequest 设置地址请求
type SetAddressesRequest struct {
	ShippingAddress *models.Address `json:"shipping_address" binding:"required"`
	BillingAddress  *models.Address `json:"billing_address"`
	SameAsShipping  bool            `json:"same_as_shipping"`
	Email           string          `json:"email"`
}

// SetEmailRequest 设置邮箱请求
type SetEmailRequest struct {
	Email string `json:"email" binding:"required"`
}

// SetShippingMethodRequest 选择配送方式请求
type SetShippingMethodRequest struct {
	OptionID string `json:"option_id" binding:"required"`
}

// InitiatePaymentSessionRequest 选择支付方式请求
type InitiatePaymentSessionRequest struct {
	ProviderID string `json:"provider_id" binding:"required"`
}

// PromotionCodeRequest 应用优惠码请求
type PromotionCodeRequest struct {
	Code string `json:"code"`
}

// SetAddresses 设置收货/账单地址
func (h *Handler) SetAddresses(c *gin.Context) {
	cartID, ok := getCartID(c)
	if !ok {
		return
	}
	var req SetAddressesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	cart, err := h.CheckoutService.SetAddresses(c.Request.Context(), cartID, service.SetAddressesInput{
		Shipping:       req.ShippingAddress,
		Billing:        req.BillingAddress,
		SameAsShipping: req.SameAsShipping,
		Email:          req.Email,
	})
	if err != nil {
		respondCartCommandError(c, err)
		return
	}
	response.Success(c, h.buildCartResponse(c, cart))
}

// SetEmail 设置联系邮箱
func (h *Handler) SetEmail(c *gin.Context) {
	cartID, ok := getCartID(c)
	if !ok {
		return
	}
	var req SetEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.email_invalid", nil)
		return
	}
	cart, err := h.CheckoutService.SetEmail(c.Request.Context(), cartID, req.Email)
	if err != nil {
		respondCartCommandError(c, err)
		return
	}
	response.Success(c, h.buildCartResponse(c, cart))
}

// SetShippingMethod 选择配送方式
func (h *Handler) SetShippingMethod(c *gin.Context) {
	cartID, ok := getCartID(c)
	if !ok {
		return
	}
	var req SetShippingMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.shipping_option_invalid", nil)
		return
	}
	cart, err := h.CheckoutService.SetShippingMethod(c.Request.Context(), cartID, req.OptionID)
	if err != nil {
		respondCartCommandError(c, err)
		return
	}
	response.Success(c, h.buildCartResponse(c, cart))
}

// InitiatePaymentSession 选择支付方式
func (h *Handler) InitiatePaymentSession(c *gin.Context) {
	cartID, ok := getCartID(c)
	if !ok {
		return
	}
	var req InitiatePaymentSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.payment_provider_invalid", nil)
		return
	}
	cart, err := h.CheckoutService.InitiatePaymentSession(c.Request.Context(), cartID, req.ProviderID)
	if err != nil {
		respondCartCommandError(c, err)
		return
	}
	response.Success(c, h.buildCartResponse(c, cart))
}

// ConfirmPayment 核实交互式支付
func (h *Handler) ConfirmPayment(c *gin.Context) {
	cartID, ok := getCartID(c)
	if !ok {
		return
	}
	result, err := h.CheckoutService.ConfirmPayment(c.Request.Context(), cartID)
	if err != nil {
		respondPaymentConfirmError(c, err)
		return
	}
	response.Success(c, gin.H{
		"status":       result.Status,
		"provider_ref": result.ProviderRef,
	})
}

// ApplyPromotion 应用优惠码
func (h *Handler) ApplyPromotion(c *gin.Context) {
	cartID, ok := getCartID(c)
	if !ok {
		return
	}
	var req PromotionCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	cart, err := h.CheckoutService.ApplyPromotionCode(c.Request.Context(), cartID, req.Code)
	if err != nil {
		respondPromotionError(c, err)
		return
	}
	response.Success(c, h.buildCartResponse(c, cart))
}

// RemovePromotion 移除优惠码
func (h *Handler) RemovePromotion(c *gin.Context) {
	cartID, ok := getCartID(c)
	if !ok {
		return
	}
	cart, err := h.CheckoutService.RemovePromotionCode(c.Request.Context(), cartID, c.Param("code"))
	if err != nil {
		respondPromotionError(c, err)
		return
	}
	response.Success(c, h.buildCartResponse(c, cart))
}

// SubmitOrder 提交订单
func (h *Handler) SubmitOrder(c *gin.Context) {
	cartID, ok := getCartID(c)
	if !ok {
		return
	}
	order, err := h.CheckoutService.SubmitOrder(c.Request.Context(), cartID)
	if err != nil {
		respondSubmitError(c, err)
		return
	}
	requestLog(c).Infow("checkout_order_submitted", "cart_id", cartID, "order_id", order.ID)
	response.SuccessWithMsg(c, "order placed", order)
}
