package utils

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

func decFromFloat(val float64) decimal.Decimal {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(val)
}

// FormatUSD 返回 "$1234.50"（负数为 "$-20.00"，与余额展示一致）。
func FormatUSD(val float64) string {
	return "$" + decFromFloat(val).StringFixed(2)
}

// FormatSignedUSD 返回 "+$25.00" / "-$20.00"，零记为正。
func FormatSignedUSD(val float64) string {
	d := decFromFloat(val)
	if d.IsNegative() {
		return "-$" + d.Abs().StringFixed(2)
	}
	return "+$" + d.StringFixed(2)
}

// FormatPercent 返回保留一位小数的百分比，例如 "73.5%"。
func FormatPercent(val float64) string {
	return decFromFloat(val).StringFixed(1) + "%"
}

// FormatVolume 返回手数，例如 "0.1L"。
func FormatVolume(val float64) string {
	return strconv.FormatFloat(val, 'f', -1, 64) + "L"
}

// ProfitIcon 盈利（含零）为绿，亏损为红。
func ProfitIcon(val float64) string {
	if val < 0 {
		return "🔴"
	}
	return "🟢"
}
