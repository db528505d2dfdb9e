package service

import (
	"testing"
	"time"

	"cafehub/internal/config"
	"cafehub/internal/model"
	"cafehub/pkg/money"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	fixedNow = time.Date(2026, time.March, 9, 12, 0, 0, 0, time.Local)
	topics   = config.KafkaTopicConfig{
		Purchase: "cafehub.purchase",
		Claim:    "cafehub.lostitem",
		Recharge: "cafehub.recharge",
	}
)

func clock() time.Time { return fixedNow }

func stockOf(t *testing.T, db *gorm.DB, goodsID int64) *int {
	t.Helper()
	var g model.Goods
	require.NoError(t, db.First(&g, goodsID).Error)
	return g.Stock
}

func balanceOf(t *testing.T, db *gorm.DB, accountID int64) string {
	t.Helper()
	var a model.Account
	require.NoError(t, db.First(&a, accountID).Error)
	return money.Format(a.Balance)
}

func ledgerOf(t *testing.T, db *gorm.DB, userID int64) []model.Consumption {
	t.Helper()
	var rows []model.Consumption
	require.NoError(t, db.Where("user_id = ?", userID).Order("month, goods_id").Find(&rows).Error)
	return rows
}

func outboxCount(t *testing.T, db *gorm.DB, eventType string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&model.OutboxMessage{}).Where("event_type = ?", eventType).Count(&n).Error)
	return n
}

// beforeUpdateOn 在第一次对 table 执行 UPDATE 之前插入一段 SQL，
// 用同一连接（事务内即同一事务）模拟并发事务抢先写入
func beforeUpdateOn(t *testing.T, db *gorm.DB, table string, fn func(tx *gorm.DB)) {
	t.Helper()
	fired := false
	err := db.Callback().Update().Before("gorm:update").Register("test:race_"+table, func(d *gorm.DB) {
		if fired || d.Statement.Table != table {
			return
		}
		fired = true
		fn(d.Session(&gorm.Session{NewDB: true}))
	})
	require.NoError(t, err)
}

// beforeCreateOn 在第一次向 table 插入之前执行 fn，用法同 beforeUpdateOn
func beforeCreateOn(t *testing.T, db *gorm.DB, table string, fn func(tx *gorm.DB)) {
	t.Helper()
	fired := false
	err := db.Callback().Create().Before("gorm:create").Register("test:race_create_"+table, func(d *gorm.DB) {
		if fired || d.Statement.Table != table {
			return
		}
		fired = true
		fn(d.Session(&gorm.Session{NewDB: true}))
	})
	require.NoError(t, err)
}
