package money

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================================
// 金额工具
// ============================================================================
//
// 价格、余额、消费流水一律使用 decimal.Decimal，库存和数量使用 int。
// 金额路径上不允许出现 float64。
//
// ============================================================================

// Scale 金额列保留的小数位数，对应表结构 decimal(12,2)
const Scale = 2

// MonthLayout 消费台账的月份格式 YYYY-MM
const MonthLayout = "2006-01"

// Parse 解析金额字符串，如 "12.50"
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("金额格式错误 %q: %w", s, err)
	}
	return d, nil
}

// MustParse 用于常量和测试
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Subtotal 单价 × 数量
func Subtotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}

func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// Format 固定两位小数输出
func Format(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}

// Month 返回 t 所在的台账月份
func Month(t time.Time) string {
	return t.Format(MonthLayout)
}
