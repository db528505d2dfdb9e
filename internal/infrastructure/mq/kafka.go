package mq

import (
	"context"
	"log"

	"cafehub/internal/config"

	"github.com/IBM/sarama"
)

// KafkaPublisher 同步生产者，SendMessage 返回即代表 broker 已确认
type KafkaPublisher struct {
	producer sarama.SyncProducer
}

// NewKafkaProducerConfig 生产者配置
func NewKafkaProducerConfig() *sarama.Config {
	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Producer.RequiredAcks = sarama.WaitForAll // 等待所有副本确认
	kafkaConfig.Producer.Retry.Max = 3                    // 重试次数
	kafkaConfig.Producer.Return.Successes = true          // 返回成功消息
	return kafkaConfig
}

func NewKafkaPublisher(cfg *config.KafkaConfig) (*KafkaPublisher, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, NewKafkaProducerConfig())
	if err != nil {
		return nil, err
	}
	log.Printf("[Kafka] 生产者创建成功: brokers=%v", cfg.Brokers)
	return &KafkaPublisher{producer: producer}, nil
}

// NewKafkaPublisherWithProducer 使用已有的生产者，测试时传入 mocks
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

// Publish 以业务 key 作为分区键，同一 key 的事件有序
func (p *KafkaPublisher) Publish(ctx context.Context, topic, key, payload string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.StringEncoder(payload),
	}
	_, _, err := p.producer.SendMessage(msg)
	return err
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
