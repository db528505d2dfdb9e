package mq

import (
	"context"
	"errors"
	"fmt"

	"cafehub/internal/config"
)

// Publisher 本地消息的投递目标
type Publisher interface {
	Publish(ctx context.Context, topic, key, payload string) error
	Close() error
}

var ErrNoPublisher = errors.New("未启用 Kafka 或 Redis，无法投递事件")

// NewPublisher 按配置选择投递目标，Kafka 优先
func NewPublisher(cfg *config.Config) (Publisher, error) {
	switch {
	case cfg.Kafka.Enabled:
		p, err := NewKafkaPublisher(&cfg.Kafka)
		if err != nil {
			return nil, fmt.Errorf("创建 Kafka 生产者失败: %w", err)
		}
		return p, nil
	case cfg.Redis.Enabled:
		p, err := NewRedisStreamPublisher(&cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("连接 Redis 失败: %w", err)
		}
		return p, nil
	default:
		return nil, ErrNoPublisher
	}
}
