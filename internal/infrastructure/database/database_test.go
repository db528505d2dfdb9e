package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cafehub/internal/config"
	"cafehub/internal/model"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var dbSeq int64

func sqliteConfig(t *testing.T) *config.DatabaseConfig {
	t.Helper()
	n := atomic.AddInt64(&dbSeq, 1)
	return &config.DatabaseConfig{
		Driver:       config.DriverSQLite,
		DSN:          fmt.Sprintf("file:dbtest%d?mode=memory&cache=shared&_foreign_keys=on", n),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     "silent",
	}
}

func TestDSN(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Driver: config.DriverMySQL, Host: "db", Port: 3306,
		User: "root", Password: "pw", Database: "cafehub",
	}
	assert.Equal(t, "root:pw@tcp(db:3306)/cafehub?charset=utf8mb4&parseTime=True&loc=Local", DSN(cfg))

	cfg.Driver = config.DriverPostgres
	cfg.Port = 5432
	assert.Equal(t, "host=db port=5432 user=root password=pw dbname=cafehub sslmode=disable", DSN(cfg))

	cfg.DSN = "explicit"
	assert.Equal(t, "explicit", DSN(cfg))
}

func TestOpen_MigratesAllTables(t *testing.T) {
	db, err := Open(sqliteConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { Close(db) })

	for _, m := range Models {
		assert.True(t, db.Migrator().HasTable(m), "missing table for %T", m)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(&config.DatabaseConfig{Driver: "oracle"})
	require.Error(t, err)

	err = Ping(context.Background(), &config.DatabaseConfig{Driver: "oracle"})
	require.Error(t, err)
}

func TestPing_SQLite(t *testing.T) {
	require.NoError(t, Ping(context.Background(), sqliteConfig(t)))
}

func TestPool_SwapRetiresOldPoolAfterGrace(t *testing.T) {
	first, err := Open(sqliteConfig(t))
	require.NoError(t, err)
	second, err := Open(sqliteConfig(t))
	require.NoError(t, err)

	pool := NewPool(first, 100*time.Millisecond)
	old := pool.DB()

	require.NoError(t, pool.Swap(second))
	assert.Same(t, second, pool.DB())

	// 宽限期内旧池仍然可用
	require.NoError(t, old.Exec("SELECT 1").Error)

	require.NoError(t, pool.Close())
	assert.Error(t, old.Exec("SELECT 1").Error)
	assert.ErrorIs(t, pool.Swap(first), ErrPoolClosed)
}

func TestPool_Reconnect(t *testing.T) {
	first, err := Open(sqliteConfig(t))
	require.NoError(t, err)
	pool := NewPool(first, 0)
	t.Cleanup(func() { pool.Close() })

	require.NoError(t, pool.Reconnect(context.Background(), sqliteConfig(t)))
	assert.NotSame(t, first, pool.DB())
	assert.True(t, pool.DB().Migrator().HasTable(&model.Goods{}))

	err = pool.Reconnect(context.Background(), &config.DatabaseConfig{Driver: "oracle"})
	require.Error(t, err)
}

func TestPool_ReconnectRetiresWithNewGrace(t *testing.T) {
	first, err := Open(sqliteConfig(t))
	require.NoError(t, err)
	pool := NewPool(first, 0)

	next := sqliteConfig(t)
	next.SwapGraceSeconds = 1
	require.NoError(t, pool.Reconnect(context.Background(), next))

	// 旧池按新配置的 1 秒宽限期回收，切换后立即仍可用
	require.NoError(t, first.Exec("SELECT 1").Error)

	require.NoError(t, pool.Close())
	assert.Error(t, first.Exec("SELECT 1").Error)
}

func TestPool_ConcurrentSwapAndClose(t *testing.T) {
	first, err := Open(sqliteConfig(t))
	require.NoError(t, err)
	pool := NewPool(first, 10*time.Millisecond)

	const n = 4
	dbs := make([]*gorm.DB, n)
	for i := range dbs {
		dbs[i], err = Open(sqliteConfig(t))
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	rejected := make(chan *gorm.DB, n)
	for _, db := range dbs {
		wg.Add(1)
		go func(db *gorm.DB) {
			defer wg.Done()
			if errors.Is(pool.Swap(db), ErrPoolClosed) {
				rejected <- db
			}
		}(db)
	}
	require.NoError(t, pool.Close())
	wg.Wait()
	close(rejected)

	for db := range rejected {
		require.NoError(t, Close(db))
	}
}

func TestIsUniqueViolation(t *testing.T) {
	db, err := Open(sqliteConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { Close(db) })

	require.NoError(t, db.Create(&model.Goods{GoodsName: "拿铁"}).Error)
	dupErr := db.Create(&model.Goods{GoodsName: "拿铁"}).Error
	require.Error(t, dupErr)

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"sqlite duplicate", dupErr, true},
		{"mysql 1062", &mysql.MySQLError{Number: 1062}, true},
		{"mysql other", &mysql.MySQLError{Number: 1213}, false},
		{"postgres 23505", &pgconn.PgError{Code: "23505"}, true},
		{"wrapped", fmt.Errorf("create: %w", &pgconn.PgError{Code: "23505"}), true},
		{"postgres fk", &pgconn.PgError{Code: "23503"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueViolation(tt.err))
		})
	}
}

func TestIsForeignKeyViolation(t *testing.T) {
	assert.True(t, IsForeignKeyViolation(&mysql.MySQLError{Number: 1452}))
	assert.True(t, IsForeignKeyViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsForeignKeyViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsForeignKeyViolation(nil))
}
