package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 账户类型
const (
	UserTypeAdmin    int8 = 0
	UserTypeCustomer int8 = 1
)

// 性别
const (
	GenderMale   int8 = 0
	GenderFemale int8 = 1
)

// Account 账户表
// 只有顾客账户参与购买、充值和认领；管理员账户只收发消息
type Account struct {
	ID       int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Username string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	Password string          `gorm:"type:varchar(255);not null" json:"-"`             // bcrypt 哈希
	Phone    *string         `gorm:"type:varchar(11)" json:"phone"`                   // 11位数字或空
	Gender   *int8           `json:"gender"`                                          // 0 男 1 女
	JoinTime time.Time       `gorm:"type:date;not null" json:"join_time"`             // 注册日期
	Balance  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"balance"` // 余额
	UserType int8            `gorm:"not null;index" json:"user_type"` // 0 管理员 1 顾客，写入时必须显式赋值
}

func (Account) TableName() string {
	return "account"
}

func (a Account) IsCustomer() bool {
	return a.UserType == UserTypeCustomer
}
