package model

import (
	"github.com/shopspring/decimal"
)

// Consumption 月度消费台账
//
// 【设计原则】
// 1. (用户, 月份, 商品) 唯一，联合主键保证同一个 key 只有一行
// 2. 同月重复购买同一商品时累加 amount，不新增行
// 3. 只在购买事务中写入，与库存、余额同事务提交
type Consumption struct {
	UserID  int64           `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Month   string          `gorm:"primaryKey;type:char(7)" json:"month"` // YYYY-MM
	GoodsID int64           `gorm:"primaryKey;autoIncrement:false;index" json:"goods_id"`
	Amount  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
}

func (Consumption) TableName() string {
	return "consumption"
}
