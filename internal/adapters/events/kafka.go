package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/dkeye/fieldcast/internal/domain"
	"github.com/rs/zerolog/log"
)

// KafkaSink produces session records keyed by broadcaster identity.
type KafkaSink struct {
	producer *kafka.Producer
	topic    string
	doneCh   chan struct{}
}

func NewKafkaSink(brokers, topic string) (*KafkaSink, error) {
	if err := ensureTopic(brokers, topic); err != nil {
		log.Warn().Err(err).Str("module", "events").Str("topic", topic).Msg("failed to ensure topic, may already exist")
	}

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "1",
		"linger.ms":         5,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	ks := &KafkaSink{
		producer: p,
		topic:    topic,
		doneCh:   make(chan struct{}),
	}
	go ks.deliveryReports()
	return ks, nil
}

func ensureTopic(brokers, topic string) error {
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{
		{Topic: topic, NumPartitions: 1, ReplicationFactor: 1},
	})
	if err != nil {
		return err
	}
	for _, result := range results {
		if result.Error.Code() != kafka.ErrNoError && result.Error.Code() != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("failed to create topic %s: %v", result.Topic, result.Error)
		}
	}
	return nil
}

func (ks *KafkaSink) deliveryReports() {
	for e := range ks.producer.Events() {
		if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			log.Error().Err(m.TopicPartition.Error).Str("module", "events").Msg("kafka delivery failed")
		}
	}
	close(ks.doneCh)
}

func (ks *KafkaSink) SessionEnded(_ context.Context, rec domain.SessionRecord) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}
	err = ks.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &ks.topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(rec.Identity),
		Value: value,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}
	return nil
}

// Close flushes pending messages and closes the producer.
func (ks *KafkaSink) Close() error {
	ks.producer.Flush(5000)
	ks.producer.Close()
	<-ks.doneCh
	return nil
}
