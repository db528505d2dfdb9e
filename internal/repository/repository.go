package repository

import (
	"context"
	"errors"

	"cafehub/internal/infrastructure/database"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrConcurrentModification 条件更新没有命中任何行，
// 说明前置检查之后数据被其他事务改过
var ErrConcurrentModification = errors.New("数据已被并发修改")

// session 事务内用 tx，否则从共享连接池取当前句柄
func session(ctx context.Context, pool database.Provider, tx *gorm.DB) *gorm.DB {
	if tx == nil {
		tx = pool.DB()
	}
	return tx.WithContext(ctx)
}

// forUpdate SELECT ... FOR UPDATE，SQLite 驱动会忽略该子句
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// first 查询单行，记录不存在时返回 notFound
func first(db *gorm.DB, dest interface{}, notFound error) error {
	err := db.First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}
