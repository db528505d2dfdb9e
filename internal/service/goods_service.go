package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"cafehub/internal/infrastructure/database"
	"cafehub/internal/model"
	"cafehub/internal/repository"
	"cafehub/pkg/money"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type AddGoodsRequest struct {
	GoodsName string          `json:"goods_name" binding:"required"`
	GoodsType *string         `json:"goods_type"`
	Price     decimal.Decimal `json:"price"`
	Stock     *int            `json:"stock"`
}

// UpdateGoodsRequest nil 表示不修改；goods_type 为空串表示清空
type UpdateGoodsRequest struct {
	GoodsName *string          `json:"goods_name"`
	GoodsType *string          `json:"goods_type"`
	Price     *decimal.Decimal `json:"price"`
	Stock     *int             `json:"stock"`
}

type GoodsOutcome struct {
	Result  GoodsResult `json:"result"`
	GoodsID int64       `json:"goods_id,omitempty"`
}

type GoodsService struct {
	pool      database.Provider
	goodsRepo *repository.GoodsRepository
}

func NewGoodsService(pool database.Provider) *GoodsService {
	return &GoodsService{
		pool:      pool,
		goodsRepo: repository.NewGoodsRepository(pool),
	}
}

func validPrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return invalid("price", "价格必须大于0")
	}
	if !price.Equal(money.Round(price)) {
		return invalid("price", "价格最多两位小数")
	}
	return nil
}

// AddGoods 新增商品，库存默认 0
func (s *GoodsService) AddGoods(ctx context.Context, req *AddGoodsRequest) (*GoodsOutcome, error) {
	if req == nil || strings.TrimSpace(req.GoodsName) == "" {
		return nil, invalid("goods_name", "商品名称不能为空")
	}
	if err := validPrice(req.Price); err != nil {
		return nil, err
	}
	stock := 0
	if req.Stock != nil {
		if *req.Stock < 0 {
			return nil, invalid("stock", "库存不能为负数")
		}
		stock = *req.Stock
	}

	goods := &model.Goods{
		GoodsName: strings.TrimSpace(req.GoodsName),
		GoodsType: req.GoodsType,
		Price:     req.Price,
		Stock:     &stock,
	}
	if err := s.goodsRepo.Create(ctx, nil, goods); err != nil {
		if database.IsUniqueViolation(err) {
			return &GoodsOutcome{Result: GoodsNameTaken}, nil
		}
		log.Printf("[GoodsService] 新增商品失败: name=%s, err=%v", goods.GoodsName, err)
		return nil, opError("goods.add", goods.GoodsName, err)
	}

	log.Printf("[GoodsService] 新增商品: id=%d, name=%s, price=%s", goods.ID, goods.GoodsName, money.Format(goods.Price))
	return &GoodsOutcome{Result: GoodsAdded, GoodsID: goods.ID}, nil
}

// UpdateGoods 修改商品，只写入和当前值不同的字段
func (s *GoodsService) UpdateGoods(ctx context.Context, id int64, req *UpdateGoodsRequest) (*GoodsOutcome, error) {
	if req == nil {
		return &GoodsOutcome{Result: GoodsNoChange, GoodsID: id}, nil
	}
	if req.GoodsName != nil && strings.TrimSpace(*req.GoodsName) == "" {
		return nil, invalid("goods_name", "商品名称不能为空")
	}
	if req.Price != nil {
		if err := validPrice(*req.Price); err != nil {
			return nil, err
		}
	}
	if req.Stock != nil && *req.Stock < 0 {
		return nil, invalid("stock", "库存不能为负数")
	}

	out := &GoodsOutcome{GoodsID: id}
	err := s.pool.DB().Transaction(func(tx *gorm.DB) error {
		goods, err := s.goodsRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return opError("goods.update", id, err)
		}

		patch := repository.GoodsPatch{}
		if req.GoodsName != nil && strings.TrimSpace(*req.GoodsName) != goods.GoodsName {
			patch.GoodsName = repository.Set(strings.TrimSpace(*req.GoodsName))
		}
		if req.GoodsType != nil {
			switch {
			case *req.GoodsType == "" && goods.GoodsType != nil:
				patch.GoodsType = repository.Clear[string]()
			case *req.GoodsType != "" && (goods.GoodsType == nil || *goods.GoodsType != *req.GoodsType):
				patch.GoodsType = repository.Set(*req.GoodsType)
			}
		}
		if req.Price != nil && !req.Price.Equal(goods.Price) {
			patch.Price = repository.Set(*req.Price)
		}
		if req.Stock != nil && (goods.Stock == nil || *goods.Stock != *req.Stock) {
			patch.Stock = repository.Set(*req.Stock)
		}

		if patch.IsEmpty() {
			out.Result = GoodsNoChange
			return errRollback
		}
		if err := s.goodsRepo.ApplyPatch(ctx, tx, id, patch); err != nil {
			if database.IsUniqueViolation(err) {
				out.Result = GoodsNameTaken
				return errRollback
			}
			return opError("goods.update", id, err)
		}
		out.Result = GoodsUpdated
		return nil
	})

	if errors.Is(err, errRollback) {
		return out, nil
	}
	if err != nil {
		log.Printf("[GoodsService] 修改商品失败: id=%d, err=%v", id, err)
		return nil, err
	}
	log.Printf("[GoodsService] 商品已修改: id=%d", id)
	return out, nil
}
