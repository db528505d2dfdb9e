package repository

import (
	"context"
	"errors"

	"cafehub/internal/infrastructure/database"
	"cafehub/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrConsumptionNotFound = errors.New("消费记录不存在")

type ConsumptionRepository struct {
	pool database.Provider
}

func NewConsumptionRepository(pool database.Provider) *ConsumptionRepository {
	return &ConsumptionRepository{pool: pool}
}

// GetForUpdate 锁定 (用户, 月份, 商品) 对应的台账行
func (r *ConsumptionRepository) GetForUpdate(ctx context.Context, tx *gorm.DB, userID int64, month string, goodsID int64) (*model.Consumption, error) {
	var c model.Consumption
	db := forUpdate(session(ctx, r.pool, tx)).
		Where("user_id = ? AND month = ? AND goods_id = ?", userID, month, goodsID)
	if err := first(db, &c, ErrConsumptionNotFound); err != nil {
		return nil, err
	}
	return &c, nil
}

// Accumulate 台账累加：行存在则 amount += delta，否则插入新行
//
// 同一用户的购买已经被账户行锁串行化，这里的插入不会和同 key 的插入竞争
func (r *ConsumptionRepository) Accumulate(ctx context.Context, tx *gorm.DB, userID int64, month string, goodsID int64, amount decimal.Decimal) error {
	_, err := r.GetForUpdate(ctx, tx, userID, month, goodsID)
	switch {
	case err == nil:
		return r.increase(ctx, tx, userID, month, goodsID, amount)
	case !errors.Is(err, ErrConsumptionNotFound):
		return err
	}

	return session(ctx, r.pool, tx).Create(&model.Consumption{
		UserID:  userID,
		Month:   month,
		GoodsID: goodsID,
		Amount:  amount,
	}).Error
}

func (r *ConsumptionRepository) increase(ctx context.Context, tx *gorm.DB, userID int64, month string, goodsID int64, amount decimal.Decimal) error {
	result := session(ctx, r.pool, tx).
		Model(&model.Consumption{}).
		Where("user_id = ? AND month = ? AND goods_id = ?", userID, month, goodsID).
		Update("amount", gorm.Expr("amount + ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// ListByUserMonth 某用户某月的全部台账行，按商品排序
func (r *ConsumptionRepository) ListByUserMonth(ctx context.Context, tx *gorm.DB, userID int64, month string) ([]*model.Consumption, error) {
	var rows []*model.Consumption
	err := session(ctx, r.pool, tx).
		Where("user_id = ? AND month = ?", userID, month).
		Order("goods_id ASC").
		Find(&rows).Error
	return rows, err
}
