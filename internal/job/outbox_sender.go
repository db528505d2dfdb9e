package job

import (
	"context"
	"log"
	"time"

	"cafehub/internal/config"
	"cafehub/internal/infrastructure/database"
	"cafehub/internal/infrastructure/mq"
	"cafehub/internal/model"
	"cafehub/internal/repository"
)

// OutboxSender 轮询本地消息表，把业务事务里写下的事件投递出去
//
// 投递是至少一次：发送成功但更新状态失败时，下一轮会重发，消费端按 key 去重。
type OutboxSender struct {
	outboxRepo    *repository.OutboxRepository
	publisher     mq.Publisher
	relayLock     RelayLock
	stopCh        chan struct{}
	interval      time.Duration
	batchSize     int
	maxRetryCount int
}

func NewOutboxSender(pool database.Provider, publisher mq.Publisher, cfg *config.OutboxConfig) *OutboxSender {
	return &OutboxSender{
		outboxRepo:    repository.NewOutboxRepository(pool),
		publisher:     publisher,
		stopCh:        make(chan struct{}),
		interval:      cfg.Interval(),
		batchSize:     cfg.BatchSize,
		maxRetryCount: cfg.MaxRetryCount,
	}
}

// RelayLock 多实例部署时保证同一轮只有一个实例投递
type RelayLock interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// WithRelayLock 设置投递锁，不设置时每轮都直接投递
func (s *OutboxSender) WithRelayLock(l RelayLock) *OutboxSender {
	s.relayLock = l
	return s
}

func (s *OutboxSender) Start(ctx context.Context) {
	log.Println("[OutboxSender] 消息发送任务启动")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[OutboxSender] 收到停止信号，任务退出")
			return
		case <-s.stopCh:
			log.Println("[OutboxSender] 任务停止")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

func (s *OutboxSender) runOnce(ctx context.Context) {
	if s.relayLock == nil {
		s.processPendingMessages(ctx)
		return
	}

	held, err := s.relayLock.TryLock(ctx)
	if err != nil {
		log.Printf("[OutboxSender] 获取投递锁失败: %v", err)
		return
	}
	if !held {
		return
	}
	defer func() {
		if err := s.relayLock.Unlock(context.Background()); err != nil {
			log.Printf("[OutboxSender] 释放投递锁失败: %v", err)
		}
	}()

	s.processPendingMessages(ctx)
}

func (s *OutboxSender) processPendingMessages(ctx context.Context) {
	messages, err := s.outboxRepo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		log.Printf("[OutboxSender] 查询消息失败: %v", err)
		return
	}

	for _, msg := range messages {
		if ctx.Err() != nil {
			return
		}
		s.sendMessage(ctx, msg)
	}
}

func (s *OutboxSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) {
	err := s.publisher.Publish(ctx, msg.Topic, msg.MessageKey, msg.Payload)

	if err == nil {
		if updateErr := s.outboxRepo.MarkSent(ctx, msg.ID); updateErr != nil {
			log.Printf("[OutboxSender] 更新消息状态失败: id=%d, err=%v", msg.ID, updateErr)
		} else {
			log.Printf("[OutboxSender] 消息发送成功: id=%d, type=%s, topic=%s, key=%s", msg.ID, msg.EventType, msg.Topic, msg.MessageKey)
		}
		return
	}

	log.Printf("[OutboxSender] 消息发送失败: id=%d, err=%v", msg.ID, err)

	if msg.RetryCount+1 >= s.maxRetryCount {
		if err := s.outboxRepo.MarkAsFailed(ctx, msg.ID); err != nil {
			log.Printf("[OutboxSender] 标记消息失败状态失败: id=%d, err=%v", msg.ID, err)
		} else {
			log.Printf("[OutboxSender] 消息超过最大重试次数，标记为失败: id=%d", msg.ID)
		}
		return
	}

	if err := s.outboxRepo.IncrementRetryCount(ctx, msg.ID); err != nil {
		log.Printf("[OutboxSender] 增加重试次数失败: id=%d, err=%v", msg.ID, err)
	}
}
