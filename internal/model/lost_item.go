package model

import (
	"time"
)

const (
	LostItemUnclaimed int8 = 0
	LostItemClaimed   int8 = 1
)

// LostItem 失物招领记录
// 状态只允许 未认领 -> 已认领 一次，认领人和认领日期随状态一起写入
type LostItem struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ItemName    string     `gorm:"type:varchar(128);not null" json:"item_name"`
	PickPlace   *string    `gorm:"type:varchar(128)" json:"pick_place"`
	PickUserID  *int64     `gorm:"index" json:"pick_user_id"`
	PickTime    time.Time  `gorm:"type:date;not null" json:"pick_time"`
	Status      int8       `gorm:"not null;default:0;index" json:"status"`
	ClaimUserID *int64     `gorm:"index" json:"claim_user_id"`
	ClaimTime   *time.Time `gorm:"type:date" json:"claim_time"`

	// 只用于建外键约束
	PickUser  *Account `gorm:"foreignKey:PickUserID;constraint:OnDelete:SET NULL" json:"-"`
	ClaimUser *Account `gorm:"foreignKey:ClaimUserID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (LostItem) TableName() string {
	return "lost_items"
}

func (l LostItem) IsClaimed() bool {
	return l.Status == LostItemClaimed
}
