package i18n

var catalog = map[string]map[string]string{
	LocaleZH: {
		"error.bad_request":                "请求参数错误",
		"error.internal":                   "服务器内部错误",
		"error.not_found":                  "资源不存在",
		"error.cart_not_found":             "购物车不存在",
		"error.cart_busy":                  "购物车正在处理其他请求，请稍后再试",
		"error.cart_stale":                 "购物车已变化，请刷新后重试",
		"error.cart_configuration_invalid": "购物车配置异常，请联系客服",
		"error.backend_unavailable":        "商城服务暂不可用，请稍后再试",
		"error.line_item_not_found":        "商品行不存在",
		"error.line_item_invalid":          "商品行数据异常",
		"error.address_invalid":            "地址信息不完整",
		"error.email_invalid":              "邮箱格式不正确",
		"error.shipping_option_invalid":    "配送方式无效",
		"error.promotion_code_empty":       "请输入优惠码",
		"error.promotion_invalid":          "优惠码无效或不可用",
		"error.step_gated":                 "请先完成前面的结账步骤",
		"error.step_unknown":               "未知的结账步骤",
		"error.payment_provider_invalid":   "支付方式无效",
		"error.payment_declined":           "支付被拒绝，请更换支付方式后重试",
		"error.payment_pending":            "支付尚未完成，请稍后再试",
		"error.payment_not_interactive":    "当前支付方式无需确认",
		"error.payment_session_missing":    "尚未创建支付会话",
		"error.payment_confirm_failed":     "支付确认失败，请稍后再试",
		"error.checkout_incomplete":        "结账信息尚未填写完整",
		"error.no_payment_method":          "请选择支付方式",
		"error.payment_not_confirmed":      "支付尚未确认",
		"error.order_placement_failed":     "下单失败，请稍后再试",
		"error.rate_limited":               "操作过于频繁，请 %d 秒后再试",
	},
	LocaleEN: {
		"error.bad_request":                "Invalid request parameters",
		"error.internal":                   "Internal server error",
		"error.not_found":                  "Resource not found",
		"error.cart_not_found":             "Cart not found",
		"error.cart_busy":                  "The cart is busy with another request, please retry shortly",
		"error.cart_stale":                 "The cart has changed, please refresh and retry",
		"error.cart_configuration_invalid": "The cart is misconfigured, please contact support",
		"error.backend_unavailable":        "The store is temporarily unavailable, please retry later",
		"error.line_item_not_found":        "Line item not found",
		"error.line_item_invalid":          "Line item is invalid",
		"error.address_invalid":            "Address is incomplete",
		"error.email_invalid":              "Email address is invalid",
		"error.shipping_option_invalid":    "Shipping option is invalid",
		"error.promotion_code_empty":       "Please enter a promotion code",
		"error.promotion_invalid":          "The promotion code is invalid or not applicable",
		"error.step_gated":                 "Please complete the previous checkout steps first",
		"error.step_unknown":               "Unknown checkout step",
		"error.payment_provider_invalid":   "Payment provider is invalid",
		"error.payment_declined":           "Payment was declined, please try another payment method",
		"error.payment_pending":            "Payment is not completed yet, please retry shortly",
		"error.payment_not_interactive":    "The selected payment method needs no confirmation",
		"error.payment_session_missing":    "No payment session has been created",
		"error.payment_confirm_failed":     "Payment confirmation failed, please retry later",
		"error.checkout_incomplete":        "Checkout details are incomplete",
		"error.no_payment_method":          "Please select a payment method",
		"error.payment_not_confirmed":      "Payment has not been confirmed",
		"error.order_placement_failed":     "Order placement failed, please retry later",
		"error.rate_limited":               "Too many attempts, please retry in %d seconds",
	},
}
