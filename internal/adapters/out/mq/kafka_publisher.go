package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/haha-dream/lanyard-bridge/internal/domain/entity"
	"github.com/haha-dream/lanyard-bridge/internal/ports/out"
)

// 默认的状态变更事件 Topic
const TopicPresenceChanged = "lanyard.presence.changed"

// KafkaEventPublisher 状态变更事件的 Kafka 发布器
type KafkaEventPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaEventPublisher 创建发布器，topic 为空时使用默认 Topic
func NewKafkaEventPublisher(brokers []string, topic string) (out.EventPublisher, error) {
	if topic == "" {
		topic = TopicPresenceChanged
	}

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3
	config.Producer.Timeout = 10 * time.Second
	// 同一用户的事件按 Key 落到同一分区，保证顺序
	config.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &KafkaEventPublisher{producer: producer, topic: topic}, nil
}

func (p *KafkaEventPublisher) PublishPresenceChange(ctx context.Context, event *entity.PresenceChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal presence change event failed: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.UserID),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte("presence_changed")},
			{Key: []byte("event_id"), Value: []byte(uuid.NewString())},
			{Key: []byte("timestamp"), Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		},
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("publish presence change event failed: %w", err)
	}

	return nil
}

func (p *KafkaEventPublisher) Close() error {
	return p.producer.Close()
}
