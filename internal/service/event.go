package service

import (
	"context"
	"fmt"
	"time"

	"cafehub/internal/model"
	"cafehub/internal/repository"

	"gorm.io/gorm"
)

// writeEvent 在业务事务中写入本地消息，topic 为空时不产生事件
func writeEvent(ctx context.Context, tx *gorm.DB, repo *repository.OutboxRepository,
	topic, eventType, key string, occurredAt time.Time, data interface{}) error {
	if topic == "" {
		return nil
	}
	msg, err := model.NewOutboxMessage(topic, eventType, key, occurredAt, data)
	if err != nil {
		return err
	}
	if err := repo.Create(ctx, tx, msg); err != nil {
		return fmt.Errorf("写入本地消息失败: %w", err)
	}
	return nil
}

// dateOf 截断到日期，对应 date 类型的列
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
