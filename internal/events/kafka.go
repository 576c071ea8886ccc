package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hotelrides/internal/domain"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

type KafkaConfig struct {
	Brokers  []string
	Topic    string
	RetryMax int
	Timeout  time.Duration
}

// KafkaPublisher writes booking events keyed by booking reference so all
// events of one booking land on the same partition in order.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *zap.Logger
}

func NewKafkaPublisher(cfg KafkaConfig, log *zap.Logger) (*KafkaPublisher, error) {
	sc := sarama.NewConfig()
	sc.Version = sarama.V2_1_0_0
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	if cfg.RetryMax < 1 {
		cfg.RetryMax = 3
	}
	sc.Producer.Retry.Max = cfg.RetryMax
	if cfg.Timeout > 0 {
		sc.Producer.Timeout = cfg.Timeout
	}
	sc.Producer.Idempotent = true
	sc.Net.MaxOpenRequests = 1
	sc.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, cfg.Topic, log), nil
}

func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string, log *zap.Logger) *KafkaPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &KafkaPublisher{producer: producer, topic: topic, log: log}
}

func (k *KafkaPublisher) Publish(_ context.Context, events ...domain.BookingEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]*sarama.ProducerMessage, 0, len(events))
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", e.ID, err)
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic: k.topic,
			Key:   sarama.StringEncoder(e.BookingReference),
			Value: sarama.ByteEncoder(payload),
			Headers: []sarama.RecordHeader{
				{Key: []byte("event_type"), Value: []byte(e.Type)},
				{Key: []byte("event_id"), Value: []byte(e.ID)},
			},
			Timestamp: e.At,
		})
	}

	if err := k.producer.SendMessages(msgs); err != nil {
		return fmt.Errorf("publish booking events: %w", err)
	}
	for _, e := range events {
		k.log.Debug("booking event published",
			zap.String("topic", k.topic),
			zap.String("event_type", string(e.Type)),
			zap.String("booking_reference", e.BookingReference),
		)
	}
	return nil
}

func (k *KafkaPublisher) Close() error {
	return k.producer.Close()
}
