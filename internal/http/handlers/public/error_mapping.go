package public

import (
	"errors"
	"strings"

	"github.com/dujiao-next/checkout/internal/http/response"
	"github.com/dujiao-next/checkout/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			// 5xx 需要保留原始错误用于排查
			var logged error
			if rule.code >= response.CodeInternal {
				logged = err
			}
			respondError(c, rule.code, rule.key, logged)
			return
		}
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

func concatMappedHandlerErrors(groups ...[]mappedHandlerError) []mappedHandlerError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]mappedHandlerError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

// 顺序敏感：更具体的错误在前
var cartCommonErrorRules = []mappedHandlerError{
	{target: service.ErrCartNotFound, code: response.CodeNotFound, key: "error.cart_not_found"},
	{target: service.ErrCartBusy, code: response.CodeConflict, key: "error.cart_busy"},
	{target: service.ErrStaleCartResponse, code: response.CodeConflict, key: "error.cart_stale"},
	{target: service.ErrConfiguration, code: response.CodeInternal, key: "error.cart_configuration_invalid"},
	{target: service.ErrLineItemNotFound, code: response.CodeNotFound, key: "error.line_item_not_found"},
	{target: service.ErrLineItemInvalid, code: response.CodeUnprocessable, key: "error.line_item_invalid"},
	{target: service.ErrStepUnknown, code: response.CodeBadRequest, key: "error.step_unknown"},
}

var cartBackendErrorRules = []mappedHandlerError{
	{target: service.ErrBackendRequestFailed, code: response.CodeBadGateway, key: "error.backend_unavailable"},
}

var cartDetailsErrorRules = []mappedHandlerError{
	{target: service.ErrAddressInvalid, code: response.CodeBadRequest, key: "error.address_invalid"},
	{target: service.ErrEmailInvalid, code: response.CodeBadRequest, key: "error.email_invalid"},
	{target: service.ErrShippingOptionInvalid, code: response.CodeBadRequest, key: "error.shipping_option_invalid"},
	{target: service.ErrPaymentProviderInvalid, code: response.CodeBadRequest, key: "error.payment_provider_invalid"},
}

var promotionErrorRules = []mappedHandlerError{
	{target: service.ErrEmptyPromotionCode, code: response.CodeBadRequest, key: "error.promotion_code_empty"},
	{target: service.ErrPromotionInvalid, code: response.CodeBadRequest, key: "error.promotion_invalid"},
}

var paymentConfirmErrorRules = []mappedHandlerError{
	{target: service.ErrPaymentPending, code: response.CodeConflict, key: "error.payment_pending"},
	{target: service.ErrPaymentFlowNotInteractive, code: response.CodeBadRequest, key: "error.payment_not_interactive"},
	{target: service.ErrPaymentSessionUnavailable, code: response.CodeBadRequest, key: "error.payment_session_missing"},
	{target: service.ErrPaymentConfirmerMissing, code: response.CodeInternal, key: "error.payment_confirm_failed"},
	{target: service.ErrPaymentConfirmationFailed, code: response.CodeBadGateway, key: "error.payment_confirm_failed"},
	{target: service.ErrConfirmationStoreFailed, code: response.CodeInternal, key: "error.payment_confirm_failed"},
}

var submitErrorRules = []mappedHandlerError{
	{target: service.ErrIncompleteCheckout, code: response.CodeBadRequest, key: "error.checkout_incomplete"},
	{target: service.ErrNoPaymentMethod, code: response.CodeBadRequest, key: "error.no_payment_method"},
	{target: service.ErrPaymentNotConfirmed, code: response.CodeBadRequest, key: "error.payment_not_confirmed"},
}

var (
	cartReadErrorRules      = concatMappedHandlerErrors(cartCommonErrorRules, cartBackendErrorRules)
	cartDetailsCommandRules = concatMappedHandlerErrors(cartCommonErrorRules, cartDetailsErrorRules, cartBackendErrorRules)
	promotionCommandRules   = concatMappedHandlerErrors(cartCommonErrorRules, promotionErrorRules, cartBackendErrorRules)
	paymentConfirmRules     = concatMappedHandlerErrors(cartCommonErrorRules, paymentConfirmErrorRules, cartBackendErrorRules)
	submitCommandRules      = concatMappedHandlerErrors(cartCommonErrorRules, submitErrorRules, cartBackendErrorRules)
)

func respondCartReadError(c *gin.Context, err error) {
	if respondStepGated(c, err) {
		return
	}
	respondWithMappedError(c, err, cartReadErrorRules, response.CodeInternal, "error.internal")
}

func respondCartCommandError(c *gin.Context, err error) {
	if respondStepGated(c, err) {
		return
	}
	respondWithMappedError(c, err, cartDetailsCommandRules, response.CodeInternal, "error.internal")
}

func respondPromotionError(c *gin.Context, err error) {
	respondWithMappedError(c, err, promotionCommandRules, response.CodeInternal, "error.internal")
}

func respondPaymentConfirmError(c *gin.Context, err error) {
	var declined *service.PaymentDeclinedError
	if errors.As(err, &declined) {
		respondErrorWithData(c, response.CodePaymentRequired, "error.payment_declined", gin.H{
			"provider_id": declined.ProviderID,
			"reason":      declined.Reason,
			"retryable":   declined.Retryable(),
		}, nil)
		return
	}
	respondWithMappedError(c, err, paymentConfirmRules, response.CodeInternal, "error.payment_confirm_failed")
}

func respondSubmitError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrOrderPlacementFailed) {
		detail := strings.TrimPrefix(err.Error(), service.ErrOrderPlacementFailed.Error()+": ")
		respondErrorWithData(c, response.CodeBadGateway, "error.order_placement_failed", gin.H{"detail": detail}, err)
		return
	}
	respondWithMappedError(c, err, submitCommandRules, response.CodeInternal, "error.order_placement_failed")
}

// respondStepGated 步骤被拦截时返回应停留的步骤，前端据此跳转
func respondStepGated(c *gin.Context, err error) bool {
	var gated *service.StepGateError
	if !errors.As(err, &gated) {
		return false
	}
	respondErrorWithData(c, response.CodeConflict, "error.step_gated", gin.H{
		"requested": gated.Requested,
		"redirect":  gated.Redirect,
	}, nil)
	return true
}
