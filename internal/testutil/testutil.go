// Package testutil 为各层测试提供内存 SQLite 连接池和种子数据
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"cafehub/internal/config"
	"cafehub/internal/infrastructure/database"
	"cafehub/internal/model"
	"cafehub/pkg/money"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var seq int64

// SQLiteConfig 每次返回一个独立的内存库配置。
// 单连接：同一时间只有一个事务持有连接，事务内的查询必须走 tx。
func SQLiteConfig(t testing.TB) *config.DatabaseConfig {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return &config.DatabaseConfig{
		Driver:       config.DriverSQLite,
		DSN:          fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_foreign_keys=on", name, atomic.AddInt64(&seq, 1)),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     "silent",
	}
}

// NewPool 打开一个迁移好的内存库，测试结束时关闭
func NewPool(t testing.TB) *database.Pool {
	t.Helper()
	db, err := database.Open(SQLiteConfig(t))
	require.NoError(t, err)

	pool := database.NewPool(db, 0)
	t.Cleanup(func() { pool.Close() })
	return pool
}

func Today() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
}

func hash(t testing.TB, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

// SeedCustomer 创建顾客账户，密码固定为 "secret"
func SeedCustomer(t testing.TB, db *gorm.DB, username, balance string) *model.Account {
	t.Helper()
	acc := &model.Account{
		Username: username,
		Password: hash(t, "secret"),
		JoinTime: Today(),
		Balance:  money.MustParse(balance),
		UserType: model.UserTypeCustomer,
	}
	require.NoError(t, db.Create(acc).Error)
	return acc
}

func SeedAdmin(t testing.TB, db *gorm.DB, username string) *model.Account {
	t.Helper()
	acc := &model.Account{
		Username: username,
		Password: hash(t, "secret"),
		JoinTime: Today(),
		UserType: model.UserTypeAdmin,
	}
	require.NoError(t, db.Create(acc).Error)
	return acc
}

// SeedGoods 创建商品，stock 为 nil 表示不记库存
func SeedGoods(t testing.TB, db *gorm.DB, name, price string, stock *int) *model.Goods {
	t.Helper()
	g := &model.Goods{
		GoodsName: name,
		Price:     money.MustParse(price),
		Stock:     stock,
	}
	// gorm 对 nil 指针字段会使用列默认值 0，这里显式写回 NULL
	require.NoError(t, db.Create(g).Error)
	if stock == nil {
		require.NoError(t, db.Model(g).Update("stock", gorm.Expr("NULL")).Error)
	}
	return g
}

func IntPtr(v int) *int { return &v }

func SeedLostItem(t testing.TB, db *gorm.DB, name string) *model.LostItem {
	t.Helper()
	item := &model.LostItem{
		ItemName: name,
		PickTime: Today(),
		Status:   model.LostItemUnclaimed,
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

func SeedMessage(t testing.TB, db *gorm.DB, senderID, receiverID int64) *model.Message {
	t.Helper()
	msg := &model.Message{
		SenderID:       senderID,
		ReceiverID:     receiverID,
		MessageContent: "您的外卖到了",
		SendDate:       Today(),
		ReadStatus:     model.MessageUnread,
	}
	require.NoError(t, db.Create(msg).Error)
	return msg
}
