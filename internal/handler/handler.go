package handler

import (
	"errors"
	"log"

	"cafehub/internal/config"
	"cafehub/internal/infrastructure/database"
	"cafehub/internal/service"
	"cafehub/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	purchaseService *service.PurchaseService
	accountService  *service.AccountService
	goodsService    *service.GoodsService
	lostItemService *service.LostItemService
	messageService  *service.MessageService
}

// NewHandler 创建处理器实例，所有服务共享同一个连接池句柄
func NewHandler(pool database.Provider, cfg *config.Config) *Handler {
	return &Handler{
		purchaseService: service.NewPurchaseService(pool, cfg.Kafka.Topic),
		accountService:  service.NewAccountService(pool, cfg.Kafka.Topic),
		goodsService:    service.NewGoodsService(pool),
		lostItemService: service.NewLostItemService(pool, cfg.Kafka.Topic),
		messageService:  service.NewMessageService(pool),
	}
}

// fail 把服务层错误转换成响应，不把数据库原始错误返回给调用方
func fail(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		response.ParamError(c, verr.Error())
		return
	case errors.Is(err, service.ErrGoodsNotFound):
		response.Error(c, response.CodeNotFound, "商品不存在")
		return
	case errors.Is(err, service.ErrCustomerNotFound):
		response.Error(c, response.CodeNotFound, "顾客账户不存在")
		return
	case errors.Is(err, service.ErrAccountNotFound):
		response.Error(c, response.CodeNotFound, "账户不存在")
		return
	case errors.Is(err, service.ErrMessageNotFound):
		response.Error(c, response.CodeNotFound, "消息不存在")
		return
	case errors.Is(err, service.ErrConcurrentModification):
		response.Error(c, response.CodeConcurrentModification, "数据已被修改，请重试")
		return
	}

	log.Printf("[Handler] 请求失败: request_id=%s, path=%s, err=%v", c.GetString(requestIDKey), c.FullPath(), err)
	response.ServerError(c, "服务器内部错误")
}

func bindError(c *gin.Context, err error) {
	response.ParamError(c, "参数错误: "+err.Error())
}

// ============================================================
// 购买
// ============================================================

// Purchase 购买
// POST /api/v1/purchase
//
// 【关键点】库存、余额、消费台账在一个事务中修改
// 库存不足 / 余额不足 以业务码返回，数据不会有任何改动
func (h *Handler) Purchase(c *gin.Context) {
	var req service.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	out, err := h.purchaseService.Purchase(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}

	switch out.Result {
	case service.PurchaseInsufficientStock:
		response.BusinessError(c, response.CodeInsufficientStock, "库存不足", out)
	case service.PurchaseInsufficientBalance:
		response.BusinessError(c, response.CodeInsufficientBalance, "余额不足", out)
	default:
		response.Success(c, out)
	}
}

// StatementQuery 月度台账查询参数
type StatementQuery struct {
	CustomerID int64  `form:"customer_id" binding:"required"`
	Month      string `form:"month" binding:"required"`
}

// ConsumptionStatement 月度消费台账
// GET /api/v1/consumption?customer_id=1&month=2026-03
func (h *Handler) ConsumptionStatement(c *gin.Context) {
	var q StatementQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	st, err := h.purchaseService.MonthlyStatement(c.Request.Context(), q.CustomerID, q.Month)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, st)
}

// ============================================================
// 账户
// ============================================================

// Register 注册
// POST /api/v1/account/register
func (h *Handler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	out, err := h.accountService.Register(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}

	switch out.Result {
	case service.RegisterUsernameTaken:
		response.BusinessError(c, response.CodeUsernameTaken, "用户名已被使用", out)
	case service.RegisterInvalidPhone:
		response.BusinessError(c, response.CodeInvalidPhone, "手机号必须是11位数字", out)
	case service.RegisterInvalidGender:
		response.BusinessError(c, response.CodeInvalidGender, "性别只能是 0 或 1", out)
	default:
		response.Success(c, out)
	}
}

// UpdateAccountRequest 修改资料请求
type UpdateAccountRequest struct {
	AccountID int64 `json:"account_id" binding:"required"`
	service.UpdateAccountRequest
}

// UpdateAccount 修改资料
// POST /api/v1/account/update
func (h *Handler) UpdateAccount(c *gin.Context) {
	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.accountService.UpdateAccount(c.Request.Context(), req.AccountID, &req.UpdateAccountRequest)
	if err != nil {
		fail(c, err)
		return
	}

	data := gin.H{"result": result}
	switch result {
	case service.UpdateUsernameTaken:
		response.BusinessError(c, response.CodeUsernameTaken, "用户名已被使用", data)
	case service.UpdateInvalidPhone:
		response.BusinessError(c, response.CodeInvalidPhone, "手机号必须是11位数字", data)
	case service.UpdateInvalidGender:
		response.BusinessError(c, response.CodeInvalidGender, "性别只能是 0 或 1", data)
	default:
		response.Success(c, data)
	}
}

// ChangePassword 修改密码
// POST /api/v1/account/password
func (h *Handler) ChangePassword(c *gin.Context) {
	var req service.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.accountService.ChangePassword(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	if result == service.PasswordWrong {
		response.BusinessError(c, response.CodeWrongPassword, "原密码错误", gin.H{"result": result})
		return
	}
	response.Success(c, gin.H{"result": result})
}

// RechargeRequest 充值请求，金额为字符串或数字，最多两位小数
type RechargeRequest struct {
	AccountID int64           `json:"account_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount"`
}

// Recharge 充值
// POST /api/v1/account/recharge
func (h *Handler) Recharge(c *gin.Context) {
	var req RechargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	balance, err := h.accountService.Recharge(c.Request.Context(), req.AccountID, req.Amount)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{
		"account_id": req.AccountID,
		"balance":    balance,
	})
}

// ============================================================
// 商品
// ============================================================

// AddGoods 新增商品
// POST /api/v1/goods/add
func (h *Handler) AddGoods(c *gin.Context) {
	var req service.AddGoodsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	out, err := h.goodsService.AddGoods(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	if out.Result == service.GoodsNameTaken {
		response.BusinessError(c, response.CodeGoodsNameTaken, "商品名称已存在", out)
		return
	}
	response.Success(c, out)
}

// UpdateGoodsRequest 修改商品请求
type UpdateGoodsRequest struct {
	GoodsID int64 `json:"goods_id" binding:"required"`
	service.UpdateGoodsRequest
}

// UpdateGoods 修改商品
// POST /api/v1/goods/update
func (h *Handler) UpdateGoods(c *gin.Context) {
	var req UpdateGoodsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	out, err := h.goodsService.UpdateGoods(c.Request.Context(), req.GoodsID, &req.UpdateGoodsRequest)
	if err != nil {
		fail(c, err)
		return
	}
	if out.Result == service.GoodsNameTaken {
		response.BusinessError(c, response.CodeGoodsNameTaken, "商品名称已存在", out)
		return
	}
	response.Success(c, out)
}

// ============================================================
// 失物招领
// ============================================================

// ReportLostItem 登记失物
// POST /api/v1/lost/report
func (h *Handler) ReportLostItem(c *gin.Context) {
	var req service.ReportLostItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	id, err := h.lostItemService.Report(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"item_id": id})
}

// ClaimRequest 认领请求
type ClaimRequest struct {
	ItemID     int64 `json:"item_id" binding:"required"`
	ClaimantID int64 `json:"claimant_id" binding:"required"`
}

// ClaimLostItem 认领失物
// POST /api/v1/lost/claim
//
// 【关键点】同一物品被多人同时认领时只有一人成功，其余返回已认领或冲突
func (h *Handler) ClaimLostItem(c *gin.Context) {
	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.lostItemService.Claim(c.Request.Context(), req.ItemID, req.ClaimantID)
	if err != nil {
		fail(c, err)
		return
	}

	data := gin.H{"result": result, "item_id": req.ItemID}
	switch result {
	case service.ClaimAlreadyClaimed:
		response.BusinessError(c, response.CodeAlreadyClaimed, "物品已被认领", data)
	case service.ClaimConflict:
		response.BusinessError(c, response.CodeClaimConflict, "物品刚刚被其他人认领", data)
	case service.ClaimNotFound:
		response.BusinessError(c, response.CodeNotFound, "失物记录不存在", data)
	default:
		response.Success(c, data)
	}
}

// ============================================================
// 消息
// ============================================================

func (h *Handler) sendResult(c *gin.Context, out *service.SendOutcome) {
	switch out.Result {
	case service.SendSenderNotFound:
		response.BusinessError(c, response.CodeSenderNotFound, "发件人不存在", out)
	case service.SendReceiverNotFound:
		response.BusinessError(c, response.CodeReceiverNotFound, "收件人不存在", out)
	case service.SendAdminNotFound:
		response.BusinessError(c, response.CodeAdminNotFound, "没有管理员账户", out)
	default:
		response.Success(c, out)
	}
}

// SendMessage 发送消息
// POST /api/v1/message/send
func (h *Handler) SendMessage(c *gin.Context) {
	var req service.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	out, err := h.messageService.Send(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	h.sendResult(c, out)
}

// SendToAdmin 顾客给管理员发消息
// POST /api/v1/message/send-admin
func (h *Handler) SendToAdmin(c *gin.Context) {
	var req service.SendToAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	out, err := h.messageService.SendToAdmin(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	h.sendResult(c, out)
}

// MarkReadRequest 标记已读请求
type MarkReadRequest struct {
	MessageID int64 `json:"message_id" binding:"required"`
	AccountID int64 `json:"account_id" binding:"required"`
}

// MarkMessageRead 标记已读
// POST /api/v1/message/read
//
// 重复标记返回成功（result=already_read），非收件人返回 1005
func (h *Handler) MarkMessageRead(c *gin.Context) {
	var req MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.messageService.MarkRead(c.Request.Context(), req.MessageID, req.AccountID)
	if err != nil {
		fail(c, err)
		return
	}

	data := gin.H{"result": result, "message_id": req.MessageID}
	if result == service.MarkReadNotAuthorized {
		response.BusinessError(c, response.CodeNotAuthorized, "只有收件人可以标记已读", data)
		return
	}
	response.Success(c, data)
}
