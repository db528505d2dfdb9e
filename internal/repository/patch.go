package repository

import (
	"github.com/shopspring/decimal"
)

// ============================================================================
// 字段补丁
// ============================================================================
//
// 部分更新时每个可选字段有三种指令：
//   Skip   不修改（零值）
//   Set    设为新值
//   Clear  置为 NULL
//
// 补丁最终由 gorm 组装成一条参数化的 UPDATE，列名固定，不拼接字符串。
//
// ============================================================================

type FieldOp int8

const (
	FieldSkip FieldOp = iota
	FieldSet
	FieldClear
)

type Field[T any] struct {
	Op    FieldOp
	Value T
}

func Set[T any](v T) Field[T] {
	return Field[T]{Op: FieldSet, Value: v}
}

func Clear[T any]() Field[T] {
	return Field[T]{Op: FieldClear}
}

func (f Field[T]) Skipped() bool {
	return f.Op == FieldSkip
}

// put 把字段写入列映射，Skip 不写
func (f Field[T]) put(cols map[string]interface{}, column string) {
	switch f.Op {
	case FieldSet:
		cols[column] = f.Value
	case FieldClear:
		cols[column] = nil
	}
}

// AccountPatch 账户资料补丁
type AccountPatch struct {
	Username Field[string]
	Phone    Field[string]
	Gender   Field[int8]
}

func (p AccountPatch) IsEmpty() bool {
	return p.Username.Skipped() && p.Phone.Skipped() && p.Gender.Skipped()
}

func (p AccountPatch) Columns() map[string]interface{} {
	cols := make(map[string]interface{}, 3)
	p.Username.put(cols, "username")
	p.Phone.put(cols, "phone")
	p.Gender.put(cols, "gender")
	return cols
}

// GoodsPatch 商品补丁
type GoodsPatch struct {
	GoodsName Field[string]
	GoodsType Field[string]
	Price     Field[decimal.Decimal]
	Stock     Field[int]
}

func (p GoodsPatch) IsEmpty() bool {
	return p.GoodsName.Skipped() && p.GoodsType.Skipped() && p.Price.Skipped() && p.Stock.Skipped()
}

func (p GoodsPatch) Columns() map[string]interface{} {
	cols := make(map[string]interface{}, 4)
	p.GoodsName.put(cols, "goods_name")
	p.GoodsType.put(cols, "goods_type")
	p.Price.put(cols, "price")
	p.Stock.put(cols, "stock")
	return cols
}
