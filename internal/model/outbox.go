package model

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

// 事件类型
const (
	EventPurchaseCompleted = "purchase.completed"
	EventLostItemClaimed   = "lostitem.claimed"
	EventBalanceRecharged  = "balance.recharged"
)

// OutboxMessage 本地消息表
// 与业务数据在同一个事务里写入，由 OutboxSender 异步投递到 Kafka / Redis Stream
type OutboxMessage struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageKey string    `gorm:"type:varchar(64);not null" json:"message_key"`
	Topic      string    `gorm:"type:varchar(64);not null" json:"topic"`
	EventType  string    `gorm:"type:varchar(32);not null" json:"event_type"`
	Payload    string    `gorm:"type:text;not null" json:"payload"`
	Status     string    `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	RetryCount int       `gorm:"not null;default:0" json:"retry_count"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OutboxMessage) TableName() string {
	return "outbox_message"
}

// EventEnvelope 投递出去的消息体
type EventEnvelope struct {
	Type       string      `json:"type"`
	Key        string      `json:"key"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// NewOutboxMessage 把事件序列化为待发送的本地消息
func NewOutboxMessage(topic, eventType, key string, occurredAt time.Time, data interface{}) (*OutboxMessage, error) {
	payload, err := json.Marshal(EventEnvelope{
		Type:       eventType,
		Key:        key,
		OccurredAt: occurredAt,
		Data:       data,
	})
	if err != nil {
		return nil, fmt.Errorf("序列化事件失败: %w", err)
	}
	return &OutboxMessage{
		MessageKey: key,
		Topic:      topic,
		EventType:  eventType,
		Payload:    string(payload),
		Status:     OutboxStatusPending,
	}, nil
}
