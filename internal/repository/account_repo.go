package repository

import (
	"context"
	"errors"

	"cafehub/internal/infrastructure/database"
	"cafehub/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrAccountNotFound  = errors.New("账户不存在")
	ErrBalanceNotEnough = errors.New("余额不足")
	ErrAdminNotFound    = errors.New("没有管理员账户")
)

type AccountRepository struct {
	pool database.Provider
}

func NewAccountRepository(pool database.Provider) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func (r *AccountRepository) Create(ctx context.Context, tx *gorm.DB, account *model.Account) error {
	return session(ctx, r.pool, tx).Create(account).Error
}

func (r *AccountRepository) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*model.Account, error) {
	var account model.Account
	if err := first(session(ctx, r.pool, tx).Where("id = ?", id), &account, ErrAccountNotFound); err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id int64) (*model.Account, error) {
	var account model.Account
	if err := first(forUpdate(session(ctx, r.pool, tx)).Where("id = ?", id), &account, ErrAccountNotFound); err != nil {
		return nil, err
	}
	return &account, nil
}

// GetCustomer 只查顾客账户，管理员视为不存在
func (r *AccountRepository) GetCustomer(ctx context.Context, tx *gorm.DB, id int64) (*model.Account, error) {
	var account model.Account
	db := session(ctx, r.pool, tx).Where("id = ? AND user_type = ?", id, model.UserTypeCustomer)
	if err := first(db, &account, ErrAccountNotFound); err != nil {
		return nil, err
	}
	return &account, nil
}

// GetCustomerForUpdate 锁定顾客账户行，直到事务结束
func (r *AccountRepository) GetCustomerForUpdate(ctx context.Context, tx *gorm.DB, id int64) (*model.Account, error) {
	var account model.Account
	db := forUpdate(session(ctx, r.pool, tx)).Where("id = ? AND user_type = ?", id, model.UserTypeCustomer)
	if err := first(db, &account, ErrAccountNotFound); err != nil {
		return nil, err
	}
	return &account, nil
}

// FirstAdmin 编号最小的管理员
func (r *AccountRepository) FirstAdmin(ctx context.Context, tx *gorm.DB) (*model.Account, error) {
	var account model.Account
	db := session(ctx, r.pool, tx).Where("user_type = ?", model.UserTypeAdmin).Order("id ASC")
	if err := first(db, &account, ErrAdminNotFound); err != nil {
		return nil, err
	}
	return &account, nil
}

// UsernameTaken 用户名是否被其他账户占用，区分大小写
func (r *AccountRepository) UsernameTaken(ctx context.Context, tx *gorm.DB, username string, excludeID int64) (bool, error) {
	var count int64
	err := session(ctx, r.pool, tx).
		Model(&model.Account{}).
		Where("username = ? AND id <> ?", username, excludeID).
		Count(&count).Error
	return count > 0, err
}

// Deduct 扣减余额，WHERE 条件带余额校验
func (r *AccountRepository) Deduct(ctx context.Context, tx *gorm.DB, id int64, amount decimal.Decimal) error {
	result := session(ctx, r.pool, tx).
		Model(&model.Account{}).
		Where("id = ? AND balance >= ?", id, amount).
		Update("balance", gorm.Expr("balance - ?", amount))

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		account, err := r.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if account.Balance.LessThan(amount) {
			return ErrBalanceNotEnough
		}
		return ErrConcurrentModification
	}

	return nil
}

// Increase 增加顾客余额
func (r *AccountRepository) Increase(ctx context.Context, tx *gorm.DB, id int64, amount decimal.Decimal) error {
	result := session(ctx, r.pool, tx).
		Model(&model.Account{}).
		Where("id = ? AND user_type = ?", id, model.UserTypeCustomer).
		Update("balance", gorm.Expr("balance + ?", amount))

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// ApplyPatch 一条 UPDATE 写入补丁中的字段
func (r *AccountRepository) ApplyPatch(ctx context.Context, tx *gorm.DB, id int64, patch AccountPatch) error {
	if patch.IsEmpty() {
		return nil
	}
	return session(ctx, r.pool, tx).
		Model(&model.Account{}).
		Where("id = ?", id).
		Updates(patch.Columns()).Error
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, tx *gorm.DB, id int64, hash string) error {
	return session(ctx, r.pool, tx).
		Model(&model.Account{}).
		Where("id = ?", id).
		Update("password", hash).Error
}
