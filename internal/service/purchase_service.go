package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"cafehub/internal/config"
	"cafehub/internal/infrastructure/database"
	"cafehub/internal/model"
	"cafehub/internal/repository"
	"cafehub/internal/telemetry"
	"cafehub/pkg/idgen"
	"cafehub/pkg/money"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// ============================================================================
// 购买事务
// ============================================================================
//
// 一次购买 = 扣库存 + 扣余额 + 累加月度消费台账，在同一个事务里全部成功或全部不生效。
//
// 【加锁顺序】
//   1. 购物车按商品合并，按商品 ID 升序逐行 SELECT ... FOR UPDATE
//   2. 再锁顾客账户行
//   3. 最后锁台账行
//   所有同时涉及商品和账户的路径都遵守这个顺序，两个购买之间不会互相死锁。
//
// 【检查在加锁之后】
//   库存和余额只在拿到行锁之后比较，比较结果在提交前不会被其他事务改变。
//   库存不足 / 余额不足 是业务结果，回滚后返回，不算错误。
//
// ============================================================================

type PurchaseItem struct {
	GoodsID  int64 `json:"goods_id" binding:"required"`
	Quantity int   `json:"quantity" binding:"required"`
}

type PurchaseRequest struct {
	CustomerID int64          `json:"customer_id" binding:"required"`
	Items      []PurchaseItem `json:"items" binding:"required"`
}

type PurchaseOutcome struct {
	Result    PurchaseResult  `json:"result"`
	ReceiptNo string          `json:"receipt_no,omitempty"`
	Total     decimal.Decimal `json:"total"`
	// Balance 成功时为扣款后的余额，余额不足时为当前余额
	Balance decimal.Decimal `json:"balance"`
	// GoodsID 库存不足时对应的商品
	GoodsID int64 `json:"goods_id,omitempty"`
}

// PurchaseEvent purchase.completed 事件内容
type PurchaseEvent struct {
	ReceiptNo  string              `json:"receipt_no"`
	CustomerID int64               `json:"customer_id"`
	Month      string              `json:"month"`
	Total      decimal.Decimal     `json:"total"`
	Lines      []PurchaseEventLine `json:"lines"`
}

type PurchaseEventLine struct {
	GoodsID  int64           `json:"goods_id"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type purchaseLine struct {
	goodsID  int64
	quantity int
	subtotal decimal.Decimal
}

type PurchaseService struct {
	pool            database.Provider
	topics          config.KafkaTopicConfig
	goodsRepo       *repository.GoodsRepository
	accountRepo     *repository.AccountRepository
	consumptionRepo *repository.ConsumptionRepository
	outboxRepo      *repository.OutboxRepository
	now             func() time.Time
}

func NewPurchaseService(pool database.Provider, topics config.KafkaTopicConfig) *PurchaseService {
	return &PurchaseService{
		pool:            pool,
		topics:          topics,
		goodsRepo:       repository.NewGoodsRepository(pool),
		accountRepo:     repository.NewAccountRepository(pool),
		consumptionRepo: repository.NewConsumptionRepository(pool),
		outboxRepo:      repository.NewOutboxRepository(pool),
		now:             time.Now,
	}
}

// MaxQuantity 单个商品合并后的最大购买数量，和库存列的取值范围一致
const MaxQuantity = math.MaxInt32

// mergeItems 校验购物车并按商品合并数量，结果按商品 ID 升序
func mergeItems(items []PurchaseItem) ([]PurchaseItem, error) {
	if len(items) == 0 {
		return nil, invalid("items", "购物车不能为空")
	}

	quantities := make(map[int64]int, len(items))
	for i, item := range items {
		if item.GoodsID <= 0 {
			return nil, invalid(fmt.Sprintf("items[%d].goods_id", i), "商品ID无效")
		}
		if item.Quantity <= 0 {
			return nil, invalid(fmt.Sprintf("items[%d].quantity", i), "购买数量必须大于0")
		}
		if item.Quantity > MaxQuantity-quantities[item.GoodsID] {
			return nil, invalid(fmt.Sprintf("items[%d].quantity", i), fmt.Sprintf("同一商品合计数量不能超过%d", MaxQuantity))
		}
		quantities[item.GoodsID] += item.Quantity
	}

	merged := make([]PurchaseItem, 0, len(quantities))
	for id, qty := range quantities {
		merged = append(merged, PurchaseItem{GoodsID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].GoodsID < merged[j].GoodsID })
	return merged, nil
}

// Purchase 执行一次购买
func (s *PurchaseService) Purchase(ctx context.Context, req *PurchaseRequest) (out *PurchaseOutcome, err error) {
	ctx, span := telemetry.StartSpan(ctx, "purchase")
	defer func() {
		outcome := ""
		if out != nil {
			outcome = out.Result.String()
		}
		telemetry.Finish(ctx, span, "purchase", outcome, err)
	}()

	if req == nil || req.CustomerID <= 0 {
		return nil, invalid("customer_id", "顾客ID无效")
	}
	span.SetAttributes(attribute.Int64("cafehub.customer_id", req.CustomerID))

	items, err := mergeItems(req.Items)
	if err != nil {
		return nil, err
	}

	now := s.now()
	month := money.Month(now)
	out = &PurchaseOutcome{}

	err = s.pool.DB().Transaction(func(tx *gorm.DB) error {
		// 1. 按顺序锁商品行并检查库存
		lines := make([]purchaseLine, 0, len(items))
		subtotals := make([]decimal.Decimal, 0, len(items))
		for _, item := range items {
			goods, err := s.goodsRepo.GetByIDForUpdate(ctx, tx, item.GoodsID)
			if err != nil {
				return opError("purchase.lock_goods", item.GoodsID, err)
			}
			if goods.AvailableStock() < item.Quantity {
				out.Result = PurchaseInsufficientStock
				out.GoodsID = goods.ID
				return errRollback
			}
			subtotal := money.Subtotal(goods.Price, item.Quantity)
			subtotals = append(subtotals, subtotal)
			lines = append(lines, purchaseLine{goodsID: goods.ID, quantity: item.Quantity, subtotal: subtotal})
		}
		total := money.Sum(subtotals...)
		out.Total = total

		// 2. 锁顾客账户并检查余额
		account, err := s.accountRepo.GetCustomerForUpdate(ctx, tx, req.CustomerID)
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				err = ErrCustomerNotFound
			}
			return opError("purchase.lock_account", req.CustomerID, err)
		}
		if account.Balance.LessThan(total) {
			out.Result = PurchaseInsufficientBalance
			out.Balance = account.Balance
			return errRollback
		}

		// 3. 扣库存
		for _, line := range lines {
			if err := s.goodsRepo.DecreaseStock(ctx, tx, line.goodsID, line.quantity); err != nil {
				if errors.Is(err, repository.ErrStockNotEnough) {
					err = ErrConcurrentModification
				}
				return opError("purchase.decrease_stock", line.goodsID, err)
			}
		}

		// 4. 扣余额
		if err := s.accountRepo.Deduct(ctx, tx, req.CustomerID, total); err != nil {
			if errors.Is(err, repository.ErrBalanceNotEnough) {
				err = ErrConcurrentModification
			}
			return opError("purchase.deduct", req.CustomerID, err)
		}

		// 5. 累加月度台账
		for _, line := range lines {
			if err := s.consumptionRepo.Accumulate(ctx, tx, req.CustomerID, month, line.goodsID, line.subtotal); err != nil {
				return opError("purchase.ledger", fmt.Sprintf("%d/%s/%d", req.CustomerID, month, line.goodsID), err)
			}
		}

		// 6. 本地消息
		receiptNo := idgen.GenerateReceiptNo()
		event := PurchaseEvent{
			ReceiptNo:  receiptNo,
			CustomerID: req.CustomerID,
			Month:      month,
			Total:      total,
			Lines:      make([]PurchaseEventLine, 0, len(lines)),
		}
		for _, line := range lines {
			event.Lines = append(event.Lines, PurchaseEventLine{
				GoodsID: line.goodsID, Quantity: line.quantity, Subtotal: line.subtotal,
			})
		}
		if err := writeEvent(ctx, tx, s.outboxRepo, s.topics.Purchase, model.EventPurchaseCompleted,
			receiptNo, now, event); err != nil {
			return opError("purchase.outbox", receiptNo, err)
		}

		out.Result = PurchaseSuccess
		out.ReceiptNo = receiptNo
		out.Balance = account.Balance.Sub(total)
		return nil
	})

	if errors.Is(err, errRollback) {
		log.Printf("[PurchaseService] 购买未完成: customer=%d, result=%s", req.CustomerID, out.Result)
		return out, nil
	}
	if err != nil {
		log.Printf("[PurchaseService] 购买失败: customer=%d, err=%v", req.CustomerID, err)
		return nil, err
	}

	log.Printf("[PurchaseService] 购买成功: customer=%d, receipt=%s, total=%s",
		req.CustomerID, out.ReceiptNo, money.Format(out.Total))
	return out, nil
}

// Statement 某顾客某月的消费台账
type Statement struct {
	CustomerID int64                `json:"customer_id"`
	Month      string               `json:"month"`
	Lines      []*model.Consumption `json:"lines"`
	Total      decimal.Decimal      `json:"total"`
}

// MonthlyStatement 查询月度消费台账，month 为 YYYY-MM
func (s *PurchaseService) MonthlyStatement(ctx context.Context, customerID int64, month string) (*Statement, error) {
	if customerID <= 0 {
		return nil, invalid("customer_id", "顾客ID无效")
	}
	if _, err := time.Parse(money.MonthLayout, month); err != nil {
		return nil, invalid("month", "月份格式应为 YYYY-MM")
	}

	if _, err := s.accountRepo.GetCustomer(ctx, nil, customerID); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			err = ErrCustomerNotFound
		}
		return nil, opError("purchase.statement", customerID, err)
	}

	rows, err := s.consumptionRepo.ListByUserMonth(ctx, nil, customerID, month)
	if err != nil {
		return nil, opError("purchase.statement", customerID, err)
	}

	amounts := make([]decimal.Decimal, 0, len(rows))
	for _, row := range rows {
		amounts = append(amounts, row.Amount)
	}
	return &Statement{
		CustomerID: customerID,
		Month:      month,
		Lines:      rows,
		Total:      money.Sum(amounts...),
	}, nil
}
