package repository

import (
	"context"
	"errors"
	"time"

	"cafehub/internal/infrastructure/database"
	"cafehub/internal/model"

	"gorm.io/gorm"
)

var ErrLostItemNotFound = errors.New("失物记录不存在")

type LostItemRepository struct {
	pool database.Provider
}

func NewLostItemRepository(pool database.Provider) *LostItemRepository {
	return &LostItemRepository{pool: pool}
}

func (r *LostItemRepository) Create(ctx context.Context, tx *gorm.DB, item *model.LostItem) error {
	return session(ctx, r.pool, tx).Create(item).Error
}

func (r *LostItemRepository) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*model.LostItem, error) {
	var item model.LostItem
	if err := first(session(ctx, r.pool, tx).Where("id = ?", id), &item, ErrLostItemNotFound); err != nil {
		return nil, err
	}
	return &item, nil
}

// MarkClaimed 未认领 -> 已认领，状态条件写在 WHERE 里。
// 返回 false 表示记录已被别人认领（或不存在）。
func (r *LostItemRepository) MarkClaimed(ctx context.Context, tx *gorm.DB, id, claimantID int64, claimTime time.Time) (bool, error) {
	result := session(ctx, r.pool, tx).
		Model(&model.LostItem{}).
		Where("id = ? AND status = ?", id, model.LostItemUnclaimed).
		Updates(map[string]interface{}{
			"status":        model.LostItemClaimed,
			"claim_user_id": claimantID,
			"claim_time":    claimTime,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
