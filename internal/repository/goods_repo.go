package repository

import (
	"context"
	"errors"

	"cafehub/internal/infrastructure/database"
	"cafehub/internal/model"

	"gorm.io/gorm"
)

var (
	ErrGoodsNotFound  = errors.New("商品不存在")
	ErrStockNotEnough = errors.New("库存不足")
)

type GoodsRepository struct {
	pool database.Provider
}

func NewGoodsRepository(pool database.Provider) *GoodsRepository {
	return &GoodsRepository{pool: pool}
}

func (r *GoodsRepository) Create(ctx context.Context, tx *gorm.DB, goods *model.Goods) error {
	return session(ctx, r.pool, tx).Create(goods).Error
}

func (r *GoodsRepository) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*model.Goods, error) {
	var goods model.Goods
	if err := first(session(ctx, r.pool, tx).Where("id = ?", id), &goods, ErrGoodsNotFound); err != nil {
		return nil, err
	}
	return &goods, nil
}

// GetByIDForUpdate 锁定商品行
func (r *GoodsRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id int64) (*model.Goods, error) {
	var goods model.Goods
	if err := first(forUpdate(session(ctx, r.pool, tx)).Where("id = ?", id), &goods, ErrGoodsNotFound); err != nil {
		return nil, err
	}
	return &goods, nil
}

// DecreaseStock 扣减库存，stock 为 NULL 的行不会被命中
func (r *GoodsRepository) DecreaseStock(ctx context.Context, tx *gorm.DB, id int64, quantity int) error {
	result := session(ctx, r.pool, tx).
		Model(&model.Goods{}).
		Where("id = ? AND stock >= ?", id, quantity).
		Update("stock", gorm.Expr("stock - ?", quantity))

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		goods, err := r.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if goods.AvailableStock() < quantity {
			return ErrStockNotEnough
		}
		return ErrConcurrentModification
	}

	return nil
}

func (r *GoodsRepository) ApplyPatch(ctx context.Context, tx *gorm.DB, id int64, patch GoodsPatch) error {
	if patch.IsEmpty() {
		return nil
	}
	return session(ctx, r.pool, tx).
		Model(&model.Goods{}).
		Where("id = ?", id).
		Updates(patch.Columns()).Error
}
