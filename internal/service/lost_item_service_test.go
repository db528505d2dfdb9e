package service

import (
	"context"
	"sync"
	"testing"

	"cafehub/internal/model"
	"cafehub/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newLostItemService(t *testing.T) (*LostItemService, *gorm.DB) {
	t.Helper()
	pool := testutil.NewPool(t)
	svc := NewLostItemService(pool, topics)
	svc.now = clock
	return svc, pool.DB()
}

func itemOf(t *testing.T, db *gorm.DB, id int64) model.LostItem {
	t.Helper()
	var item model.LostItem
	require.NoError(t, db.First(&item, id).Error)
	return item
}

func TestClaim_Once(t *testing.T) {
	svc, db := newLostItemService(t)
	alice := testutil.SeedCustomer(t, db, "alice", "0")
	bob := testutil.SeedCustomer(t, db, "bob", "0")
	item := testutil.SeedLostItem(t, db, "雨伞")

	result, err := svc.Claim(context.Background(), item.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, ClaimClaimed, result)

	result, err = svc.Claim(context.Background(), item.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, ClaimAlreadyClaimed, result)

	got := itemOf(t, db, item.ID)
	assert.True(t, got.IsClaimed())
	require.NotNil(t, got.ClaimUserID)
	assert.Equal(t, alice.ID, *got.ClaimUserID)
	require.NotNil(t, got.ClaimTime)
	assert.Equal(t, fixedNow.Day(), got.ClaimTime.Day())
	assert.Equal(t, int64(1), outboxCount(t, db, model.EventLostItemClaimed))
}

func TestClaim_NotFound(t *testing.T) {
	svc, db := newLostItemService(t)
	alice := testutil.SeedCustomer(t, db, "alice", "0")

	result, err := svc.Claim(context.Background(), 404, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, ClaimNotFound, result)
}

func TestClaim_ClaimantMustBeCustomer(t *testing.T) {
	svc, db := newLostItemService(t)
	admin := testutil.SeedAdmin(t, db, "boss")
	item := testutil.SeedLostItem(t, db, "钥匙")

	_, err := svc.Claim(context.Background(), item.ID, admin.ID)
	assert.ErrorIs(t, err, ErrCustomerNotFound)

	_, err = svc.Claim(context.Background(), item.ID, 404)
	assert.ErrorIs(t, err, ErrCustomerNotFound)

	it := itemOf(t, db, item.ID)
	assert.False(t, it.IsClaimed())
}

func TestClaim_Validation(t *testing.T) {
	svc, _ := newLostItemService(t)

	_, err := svc.Claim(context.Background(), 0, 1)
	assert.True(t, IsValidation(err))
	_, err = svc.Claim(context.Background(), 1, -1)
	assert.True(t, IsValidation(err))
}

func TestClaim_LosingRaceReportsConflict(t *testing.T) {
	svc, db := newLostItemService(t)
	alice := testutil.SeedCustomer(t, db, "alice", "0")
	bob := testutil.SeedCustomer(t, db, "bob", "0")
	item := testutil.SeedLostItem(t, db, "雨伞")

	// bob 在 alice 读完状态、写入之前完成认领
	beforeUpdateOn(t, db, "lost_items", func(tx *gorm.DB) {
		require.NoError(t, tx.Exec("UPDATE lost_items SET status = 1, claim_user_id = ? WHERE id = ?", bob.ID, item.ID).Error)
	})

	result, err := svc.Claim(context.Background(), item.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, ClaimConflict, result)
	assert.Zero(t, outboxCount(t, db, model.EventLostItemClaimed))
}

func TestClaim_ConcurrentClaimantsSingleWinner(t *testing.T) {
	svc, db := newLostItemService(t)
	item := testutil.SeedLostItem(t, db, "耳机")

	const claimants = 6
	ids := make([]int64, claimants)
	for i := range ids {
		ids[i] = testutil.SeedCustomer(t, db, "c"+string(rune('a'+i)), "0").ID
	}

	results := make(chan ClaimResult, claimants)
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			r, err := svc.Claim(context.Background(), item.ID, id)
			if assert.NoError(t, err) {
				results <- r
			}
		}(id)
	}
	wg.Wait()
	close(results)

	claimed := 0
	for r := range results {
		switch r {
		case ClaimClaimed:
			claimed++
		case ClaimAlreadyClaimed, ClaimConflict:
		default:
			t.Errorf("unexpected result %s", r)
		}
	}
	assert.Equal(t, 1, claimed)
	assert.Equal(t, int64(1), outboxCount(t, db, model.EventLostItemClaimed))
}

func TestReport(t *testing.T) {
	svc, db := newLostItemService(t)
	finder := testutil.SeedCustomer(t, db, "alice", "0")
	place := "二楼靠窗"

	id, err := svc.Report(context.Background(), &ReportLostItemRequest{
		ItemName: " 雨伞 ", PickPlace: &place, PickUserID: &finder.ID,
	})
	require.NoError(t, err)

	got := itemOf(t, db, id)
	assert.Equal(t, "雨伞", got.ItemName)
	assert.Equal(t, model.LostItemUnclaimed, got.Status)
	assert.Nil(t, got.ClaimUserID)

	missing := int64(404)
	_, err = svc.Report(context.Background(), &ReportLostItemRequest{ItemName: "钥匙", PickUserID: &missing})
	assert.ErrorIs(t, err, ErrAccountNotFound)

	_, err = svc.Report(context.Background(), &ReportLostItemRequest{ItemName: "  "})
	assert.True(t, IsValidation(err))
}

func TestReport_FinderDeletedBeforeInsert(t *testing.T) {
	svc, db := newLostItemService(t)
	finder := testutil.SeedCustomer(t, db, "alice", "0")

	beforeCreateOn(t, db, "lost_items", func(tx *gorm.DB) {
		require.NoError(t, tx.Exec("DELETE FROM account WHERE id = ?", finder.ID).Error)
	})

	_, err := svc.Report(context.Background(), &ReportLostItemRequest{ItemName: "雨伞", PickUserID: &finder.ID})
	assert.ErrorIs(t, err, ErrAccountNotFound)

	var n int64
	require.NoError(t, db.Model(&model.LostItem{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestClaim_ClaimantDeletedBeforeUpdate(t *testing.T) {
	svc, db := newLostItemService(t)
	alice := testutil.SeedCustomer(t, db, "alice", "0")
	item := testutil.SeedLostItem(t, db, "雨伞")

	beforeUpdateOn(t, db, "lost_items", func(tx *gorm.DB) {
		require.NoError(t, tx.Exec("DELETE FROM account WHERE id = ?", alice.ID).Error)
	})

	result, err := svc.Claim(context.Background(), item.ID, alice.ID)
	assert.ErrorIs(t, err, ErrCustomerNotFound)
	assert.Equal(t, ClaimUnknown, result)

	got := itemOf(t, db, item.ID)
	assert.False(t, got.IsClaimed())
	assert.Equal(t, int64(0), outboxCount(t, db, model.EventLostItemClaimed))
}
