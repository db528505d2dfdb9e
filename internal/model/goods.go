package model

import (
	"github.com/shopspring/decimal"
)

// Goods 商品表
type Goods struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	GoodsName string          `gorm:"type:varchar(128);uniqueIndex;not null" json:"goods_name"`
	GoodsType *string         `gorm:"type:varchar(64)" json:"goods_type"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Stock     *int            `gorm:"default:0" json:"stock"` // NULL 视为无库存
}

func (Goods) TableName() string {
	return "goods"
}

// AvailableStock 可售库存，NULL 按 0 处理
func (g Goods) AvailableStock() int {
	if g.Stock == nil {
		return 0
	}
	return *g.Stock
}
