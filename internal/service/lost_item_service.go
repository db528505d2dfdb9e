package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"cafehub/internal/config"
	"cafehub/internal/infrastructure/database"
	"cafehub/internal/model"
	"cafehub/internal/repository"
	"cafehub/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// ============================================================================
// 失物认领
// ============================================================================
//
// 状态机：未认领(0) -> 已认领(1)，只允许一次，没有反向转换。
//
// 【并发】
//   读状态不加锁；真正的保护在 UPDATE 的 WHERE status = 0 上。
//   两个人同时认领时只有一条 UPDATE 命中，另一方拿到 ClaimConflict，
//   不会出现两人都认领成功。
//
// ============================================================================

type ReportLostItemRequest struct {
	ItemName   string  `json:"item_name" binding:"required"`
	PickPlace  *string `json:"pick_place"`
	PickUserID *int64  `json:"pick_user_id"`
}

// LostItemClaimedEvent lostitem.claimed 事件内容
type LostItemClaimedEvent struct {
	ItemID     int64     `json:"item_id"`
	ItemName   string    `json:"item_name"`
	ClaimantID int64     `json:"claimant_id"`
	ClaimTime  time.Time `json:"claim_time"`
}

type LostItemService struct {
	pool        database.Provider
	topics      config.KafkaTopicConfig
	itemRepo    *repository.LostItemRepository
	accountRepo *repository.AccountRepository
	outboxRepo  *repository.OutboxRepository
	now         func() time.Time
}

func NewLostItemService(pool database.Provider, topics config.KafkaTopicConfig) *LostItemService {
	return &LostItemService{
		pool:        pool,
		topics:      topics,
		itemRepo:    repository.NewLostItemRepository(pool),
		accountRepo: repository.NewAccountRepository(pool),
		outboxRepo:  repository.NewOutboxRepository(pool),
		now:         time.Now,
	}
}

// Report 登记拾到的物品，初始状态为未认领
func (s *LostItemService) Report(ctx context.Context, req *ReportLostItemRequest) (int64, error) {
	if req == nil || strings.TrimSpace(req.ItemName) == "" {
		return 0, invalid("item_name", "物品名称不能为空")
	}

	item := &model.LostItem{
		ItemName:   strings.TrimSpace(req.ItemName),
		PickPlace:  req.PickPlace,
		PickUserID: req.PickUserID,
		PickTime:   dateOf(s.now()),
		Status:     model.LostItemUnclaimed,
	}

	err := s.pool.DB().Transaction(func(tx *gorm.DB) error {
		if req.PickUserID != nil {
			if _, err := s.accountRepo.GetByID(ctx, tx, *req.PickUserID); err != nil {
				return opError("lostitem.report", *req.PickUserID, err)
			}
		}
		if err := s.itemRepo.Create(ctx, tx, item); err != nil {
			// 检查之后拾得人账户被删除
			if req.PickUserID != nil && database.IsForeignKeyViolation(err) {
				return opError("lostitem.report", *req.PickUserID, repository.ErrAccountNotFound)
			}
			return opError("lostitem.report", item.ItemName, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Printf("[LostItemService] 失物登记: id=%d, name=%s", item.ID, item.ItemName)
	return item.ID, nil
}

// Claim 认领失物
func (s *LostItemService) Claim(ctx context.Context, itemID, claimantID int64) (result ClaimResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "lostitem.claim",
		attribute.Int64("cafehub.item_id", itemID),
		attribute.Int64("cafehub.claimant_id", claimantID),
	)
	defer func() { telemetry.Finish(ctx, span, "lostitem.claim", result.String(), err) }()

	if itemID <= 0 {
		return ClaimUnknown, invalid("item_id", "物品ID无效")
	}
	if claimantID <= 0 {
		return ClaimUnknown, invalid("claimant_id", "认领人ID无效")
	}

	now := s.now()
	err = s.pool.DB().Transaction(func(tx *gorm.DB) error {
		if _, err := s.accountRepo.GetCustomer(ctx, tx, claimantID); err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				err = ErrCustomerNotFound
			}
			return opError("lostitem.claim", claimantID, err)
		}

		item, err := s.itemRepo.GetByID(ctx, tx, itemID)
		if errors.Is(err, repository.ErrLostItemNotFound) {
			result = ClaimNotFound
			return errRollback
		}
		if err != nil {
			return opError("lostitem.claim", itemID, err)
		}
		if item.IsClaimed() {
			result = ClaimAlreadyClaimed
			return errRollback
		}

		claimed, err := s.itemRepo.MarkClaimed(ctx, tx, itemID, claimantID, dateOf(now))
		if err != nil {
			if database.IsForeignKeyViolation(err) {
				return opError("lostitem.claim", claimantID, ErrCustomerNotFound)
			}
			return opError("lostitem.claim", itemID, err)
		}
		if !claimed {
			result = ClaimConflict
			return errRollback
		}

		event := LostItemClaimedEvent{ItemID: itemID, ItemName: item.ItemName, ClaimantID: claimantID, ClaimTime: now}
		if err := writeEvent(ctx, tx, s.outboxRepo, s.topics.Claim, model.EventLostItemClaimed,
			fmt.Sprintf("lostitem-%d", itemID), now, event); err != nil {
			return opError("lostitem.outbox", itemID, err)
		}

		result = ClaimClaimed
		return nil
	})

	if errors.Is(err, errRollback) {
		log.Printf("[LostItemService] 认领未完成: item=%d, claimant=%d, result=%s", itemID, claimantID, result)
		return result, nil
	}
	if err != nil {
		log.Printf("[LostItemService] 认领失败: item=%d, err=%v", itemID, err)
		return ClaimUnknown, err
	}

	log.Printf("[LostItemService] 认领成功: item=%d, claimant=%d", itemID, claimantID)
	return ClaimClaimed, nil
}
