package repository

import (
	"context"

	"cafehub/internal/infrastructure/database"
	"cafehub/internal/model"

	"gorm.io/gorm"
)

type OutboxRepository struct {
	pool database.Provider
}

func NewOutboxRepository(pool database.Provider) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

func (r *OutboxRepository) Create(ctx context.Context, tx *gorm.DB, msg *model.OutboxMessage) error {
	return session(ctx, r.pool, tx).Create(msg).Error
}

func (r *OutboxRepository) GetPendingMessages(ctx context.Context, limit int) ([]*model.OutboxMessage, error) {
	var messages []*model.OutboxMessage
	err := session(ctx, r.pool, nil).
		Where("status = ?", model.OutboxStatusPending).
		Order("id ASC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

func (r *OutboxRepository) MarkSent(ctx context.Context, id int64) error {
	return session(ctx, r.pool, nil).
		Model(&model.OutboxMessage{}).
		Where("id = ?", id).
		Update("status", model.OutboxStatusSent).Error
}

func (r *OutboxRepository) IncrementRetryCount(ctx context.Context, id int64) error {
	return session(ctx, r.pool, nil).
		Model(&model.OutboxMessage{}).
		Where("id = ?", id).
		UpdateColumn("retry_count", gorm.Expr("retry_count + 1")).Error
}

// MarkAsFailed 超过重试上限，不再投递
func (r *OutboxRepository) MarkAsFailed(ctx context.Context, id int64) error {
	return session(ctx, r.pool, nil).
		Model(&model.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      model.OutboxStatusFailed,
			"retry_count": gorm.Expr("retry_count + 1"),
		}).Error
}

func (r *OutboxRepository) GetByID(ctx context.Context, id int64) (*model.OutboxMessage, error) {
	var msg model.OutboxMessage
	if err := session(ctx, r.pool, nil).Where("id = ?", id).First(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}
