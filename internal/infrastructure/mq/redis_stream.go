package mq

import (
	"context"
	"fmt"
	"log"
	"time"

	"cafehub/internal/config"

	"github.com/go-redis/redis/v8"
)

// RedisStreamPublisher 把事件写入 Redis Stream，topic 即 stream 名
type RedisStreamPublisher struct {
	client *redis.Client
	maxLen int64
}

func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func NewRedisStreamPublisher(cfg *config.RedisConfig) (*RedisStreamPublisher, error) {
	client := NewRedisClient(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	log.Printf("[Redis] 连接成功: %s:%d", cfg.Host, cfg.Port)
	return &RedisStreamPublisher{client: client, maxLen: cfg.MaxLen}, nil
}

// Publish XADD，按 maxLen 近似裁剪
func (p *RedisStreamPublisher) Publish(ctx context.Context, topic, key, payload string) error {
	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		MaxLen: p.maxLen,
		Approx: p.maxLen > 0,
		Values: map[string]interface{}{
			"key":     key,
			"payload": payload,
		},
	}).Err()
}

func (p *RedisStreamPublisher) Close() error {
	return p.client.Close()
}
