package repository

import (
	"context"
	"errors"

	"cafehub/internal/infrastructure/database"
	"cafehub/internal/model"

	"gorm.io/gorm"
)

var ErrMessageNotFound = errors.New("消息不存在")

type MessageRepository struct {
	pool database.Provider
}

func NewMessageRepository(pool database.Provider) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func (r *MessageRepository) Create(ctx context.Context, tx *gorm.DB, msg *model.Message) error {
	return session(ctx, r.pool, tx).Create(msg).Error
}

func (r *MessageRepository) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*model.Message, error) {
	var msg model.Message
	if err := first(session(ctx, r.pool, tx).Where("id = ?", id), &msg, ErrMessageNotFound); err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkRead 未读 -> 已读，只有收件人的更新会命中
func (r *MessageRepository) MarkRead(ctx context.Context, tx *gorm.DB, id, receiverID int64) (bool, error) {
	result := session(ctx, r.pool, tx).
		Model(&model.Message{}).
		Where("id = ? AND receiver_id = ? AND read_status = ?", id, receiverID, model.MessageUnread).
		Update("read_status", model.MessageRead)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
