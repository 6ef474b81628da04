package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

var zeroDecimalCurrencies = map[string]struct{}{
	"BIF": {},
	"CLP": {},
	"DJF": {},
	"GNF": {},
	"JPY": {},
	"KMF": {},
	"KRW": {},
	"MGA": {},
	"PYG": {},
	"RWF": {},
	"UGX": {},
	"VND": {},
	"VUV": {},
	"XAF": {},
	"XOF": {},
	"XPF": {},
}

// CurrencyScale 返回币种的小数位数
func CurrencyScale(currency string) int32 {
	upper := strings.ToUpper(strings.TrimSpace(currency))
	if _, ok := zeroDecimalCurrencies[upper]; ok {
		return 0
	}
	return 2
}

// MinorToDecimal 最小货币单位转换为主单位金额
func MinorToDecimal(minor decimal.Decimal, currency string) decimal.Decimal {
	return minor.Shift(-CurrencyScale(currency))
}

// FormatMinor 格式化最小货币单位金额（不做本地化，仅保留固定小数位）
func FormatMinor(minor int64, currency string) string {
	scale := CurrencyScale(currency)
	return decimal.NewFromInt(minor).Shift(-scale).StringFixed(scale)
}

// FormatNegativeMinor 格式化为抵扣行使用的负数金额
func FormatNegativeMinor(minor int64, currency string) string {
	if minor <= 0 {
		return FormatMinor(minor, currency)
	}
	return "-" + FormatMinor(minor, currency)
}
