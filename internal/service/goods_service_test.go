package service

import (
	"context"
	"testing"

	"cafehub/internal/testutil"
	"cafehub/pkg/money"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newGoodsService(t *testing.T) (*GoodsService, *gorm.DB) {
	t.Helper()
	pool := testutil.NewPool(t)
	return NewGoodsService(pool), pool.DB()
}

func TestAddGoods(t *testing.T) {
	svc, db := newGoodsService(t)
	ctx := context.Background()

	out, err := svc.AddGoods(ctx, &AddGoodsRequest{GoodsName: "拿铁", GoodsType: str("咖啡"), Price: money.MustParse("4.00")})
	require.NoError(t, err)
	require.Equal(t, GoodsAdded, out.Result)
	assert.Equal(t, 0, *stockOf(t, db, out.GoodsID))

	out, err = svc.AddGoods(ctx, &AddGoodsRequest{GoodsName: "拿铁", Price: money.MustParse("5.00")})
	require.NoError(t, err)
	assert.Equal(t, GoodsNameTaken, out.Result)

	invalidReqs := []*AddGoodsRequest{
		{GoodsName: "", Price: money.MustParse("1.00")},
		{GoodsName: "摩卡", Price: decimal.Zero},
		{GoodsName: "摩卡", Price: money.MustParse("-1.00")},
		{GoodsName: "摩卡", Price: money.MustParse("1.005")},
		{GoodsName: "摩卡", Price: money.MustParse("1.00"), Stock: testutil.IntPtr(-1)},
	}
	for _, req := range invalidReqs {
		_, err := svc.AddGoods(ctx, req)
		assert.True(t, IsValidation(err), "%+v", req)
	}
}

func TestUpdateGoods(t *testing.T) {
	svc, db := newGoodsService(t)
	ctx := context.Background()
	latte := testutil.SeedGoods(t, db, "拿铁", "4.00", testutil.IntPtr(5))
	testutil.SeedGoods(t, db, "摩卡", "5.00", testutil.IntPtr(5))

	price := money.MustParse("4.50")
	out, err := svc.UpdateGoods(ctx, latte.ID, &UpdateGoodsRequest{Price: &price, Stock: testutil.IntPtr(9)})
	require.NoError(t, err)
	assert.Equal(t, GoodsUpdated, out.Result)
	assert.Equal(t, 9, *stockOf(t, db, latte.ID))

	out, err = svc.UpdateGoods(ctx, latte.ID, &UpdateGoodsRequest{Price: &price, Stock: testutil.IntPtr(9)})
	require.NoError(t, err)
	assert.Equal(t, GoodsNoChange, out.Result)

	out, err = svc.UpdateGoods(ctx, latte.ID, &UpdateGoodsRequest{GoodsName: str("摩卡")})
	require.NoError(t, err)
	assert.Equal(t, GoodsNameTaken, out.Result)

	_, err = svc.UpdateGoods(ctx, 404, &UpdateGoodsRequest{Stock: testutil.IntPtr(1)})
	assert.ErrorIs(t, err, ErrGoodsNotFound)

	_, err = svc.UpdateGoods(ctx, latte.ID, &UpdateGoodsRequest{Stock: testutil.IntPtr(-1)})
	assert.True(t, IsValidation(err))
}
