package model

import (
	"time"
)

const (
	MessageUnread int8 = 0
	MessageRead   int8 = 1
)

// Message 站内消息
// 只有收件人可以把消息标记为已读
type Message struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SenderID       int64     `gorm:"not null;index" json:"sender_id"`
	ReceiverID     int64     `gorm:"not null;index" json:"receiver_id"`
	Title          *string   `gorm:"type:varchar(128)" json:"title"`
	MessageContent string    `gorm:"type:text;not null" json:"message_content"`
	SendDate       time.Time `gorm:"type:date;not null" json:"send_date"`
	ReadStatus     int8      `gorm:"not null;default:0" json:"read_status"`

	Sender   *Account `gorm:"foreignKey:SenderID;constraint:OnDelete:RESTRICT" json:"-"`
	Receiver *Account `gorm:"foreignKey:ReceiverID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (Message) TableName() string {
	return "message"
}

func (m Message) IsRead() bool {
	return m.ReadStatus == MessageRead
}
