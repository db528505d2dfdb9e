package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"cafehub/internal/infrastructure/database"
	"cafehub/internal/model"
	"cafehub/internal/repository"
	"cafehub/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// ============================================================================
// 站内消息
// ============================================================================
//
// 已读状态：未读(0) -> 已读(1)，只有收件人可以标记。
//
//   非收件人        -> NotAuthorized，不修改
//   已经是已读      -> AlreadyRead，幂等，不报错
//   条件更新未命中  -> 重新读取：已被同一收件人读过按 AlreadyRead 处理，
//                      否则是并发异常，返回 ErrConcurrentModification
//
// ============================================================================

type SendMessageRequest struct {
	SenderID   int64   `json:"sender_id" binding:"required"`
	ReceiverID int64   `json:"receiver_id" binding:"required"`
	Title      *string `json:"title"`
	Content    string  `json:"content" binding:"required"`
}

type SendToAdminRequest struct {
	SenderID int64   `json:"sender_id" binding:"required"`
	Title    *string `json:"title"`
	Content  string  `json:"content" binding:"required"`
}

type SendOutcome struct {
	Result    SendResult `json:"result"`
	MessageID int64      `json:"message_id,omitempty"`
}

type MessageService struct {
	pool        database.Provider
	messageRepo *repository.MessageRepository
	accountRepo *repository.AccountRepository
	now         func() time.Time
}

func NewMessageService(pool database.Provider) *MessageService {
	return &MessageService{
		pool:        pool,
		messageRepo: repository.NewMessageRepository(pool),
		accountRepo: repository.NewAccountRepository(pool),
		now:         time.Now,
	}
}

// MarkRead 收件人把消息标记为已读
func (s *MessageService) MarkRead(ctx context.Context, messageID, accountID int64) (result MarkReadResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "message.mark_read",
		attribute.Int64("cafehub.message_id", messageID),
		attribute.Int64("cafehub.account_id", accountID),
	)
	defer func() { telemetry.Finish(ctx, span, "message.mark_read", result.String(), err) }()

	msg, err := s.messageRepo.GetByID(ctx, nil, messageID)
	if err != nil {
		return MarkReadUnknown, opError("message.mark_read", messageID, err)
	}

	if msg.ReceiverID != accountID {
		log.Printf("[MessageService] 非收件人标记已读: message=%d, account=%d", messageID, accountID)
		return MarkReadNotAuthorized, nil
	}
	if msg.IsRead() {
		return MarkReadAlreadyRead, nil
	}

	updated, err := s.messageRepo.MarkRead(ctx, nil, messageID, accountID)
	if err != nil {
		return MarkReadUnknown, opError("message.mark_read", messageID, err)
	}
	if updated {
		return MarkReadRead, nil
	}

	// 检查通过但没有命中：确认是不是同一收件人的重复请求抢先完成
	current, err := s.messageRepo.GetByID(ctx, nil, messageID)
	if err == nil && current.IsRead() && current.ReceiverID == accountID {
		return MarkReadAlreadyRead, nil
	}
	log.Printf("[MessageService] 标记已读时数据被并发修改: message=%d", messageID)
	return MarkReadUnknown, opError("message.mark_read", messageID, ErrConcurrentModification)
}

// Send 发送消息
func (s *MessageService) Send(ctx context.Context, req *SendMessageRequest) (*SendOutcome, error) {
	if req == nil || strings.TrimSpace(req.Content) == "" {
		return nil, invalid("content", "消息内容不能为空")
	}
	if req.SenderID == req.ReceiverID {
		return nil, invalid("receiver_id", "不能给自己发消息")
	}

	out := &SendOutcome{}
	err := s.pool.DB().Transaction(func(tx *gorm.DB) error {
		if _, err := s.accountRepo.GetByID(ctx, tx, req.SenderID); err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				out.Result = SendSenderNotFound
				return errRollback
			}
			return opError("message.send", req.SenderID, err)
		}
		if _, err := s.accountRepo.GetByID(ctx, tx, req.ReceiverID); err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				out.Result = SendReceiverNotFound
				return errRollback
			}
			return opError("message.send", req.ReceiverID, err)
		}
		return s.create(ctx, tx, out, req.SenderID, req.ReceiverID, req.Title, req.Content)
	})
	return s.finishSend(out, err)
}

// SendToAdmin 顾客给管理员发消息，收件人是编号最小的管理员
func (s *MessageService) SendToAdmin(ctx context.Context, req *SendToAdminRequest) (*SendOutcome, error) {
	if req == nil || strings.TrimSpace(req.Content) == "" {
		return nil, invalid("content", "消息内容不能为空")
	}

	out := &SendOutcome{}
	err := s.pool.DB().Transaction(func(tx *gorm.DB) error {
		sender, err := s.accountRepo.GetByID(ctx, tx, req.SenderID)
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				out.Result = SendSenderNotFound
				return errRollback
			}
			return opError("message.send_admin", req.SenderID, err)
		}
		if !sender.IsCustomer() {
			return invalid("sender_id", "只有顾客可以给管理员发消息")
		}

		admin, err := s.accountRepo.FirstAdmin(ctx, tx)
		if err != nil {
			if errors.Is(err, repository.ErrAdminNotFound) {
				out.Result = SendAdminNotFound
				return errRollback
			}
			return opError("message.send_admin", req.SenderID, err)
		}
		return s.create(ctx, tx, out, sender.ID, admin.ID, req.Title, req.Content)
	})
	return s.finishSend(out, err)
}

func (s *MessageService) create(ctx context.Context, tx *gorm.DB, out *SendOutcome,
	senderID, receiverID int64, title *string, content string) error {
	msg := &model.Message{
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Title:          title,
		MessageContent: content,
		SendDate:       dateOf(s.now()),
		ReadStatus:     model.MessageUnread,
	}
	if err := s.messageRepo.Create(ctx, tx, msg); err != nil {
		return opError("message.create", receiverID, err)
	}
	out.Result = MessageSent
	out.MessageID = msg.ID
	return nil
}

func (s *MessageService) finishSend(out *SendOutcome, err error) (*SendOutcome, error) {
	if errors.Is(err, errRollback) {
		return out, nil
	}
	if err != nil {
		if !IsValidation(err) {
			log.Printf("[MessageService] 发送消息失败: %v", err)
		}
		return nil, err
	}
	log.Printf("[MessageService] 消息已发送: id=%d", out.MessageID)
	return out, nil
}
