package publisher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	sharedkafka "github.com/radieske/race-bet-platform/internal/shared/kafka"
	"github.com/radieske/race-bet-platform/pkg/contracts/events"
)

// KafkaPublisher writes validated race results to the results topic.
type KafkaPublisher struct {
	writer sharedkafka.MessageWriter
	closer func() error
	log    *zap.Logger
}

// NewKafkaPublisher builds a writer for topic. In local and dev environments
// the topic is created first so the settlement worker can join its group.
func NewKafkaPublisher(brokers []string, topic, env string, log *zap.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers not provided")
	}
	if env == "local" || env == "dev" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := EnsureTopic(ctx, brokers[0], topic); err != nil {
			log.Warn("failed to create kafka topic", zap.String("topic", topic), zap.Error(err))
		}
	}

	w := sharedkafka.NewWriter(brokers, topic)
	w.BatchTimeout = 10 * time.Millisecond
	w.ReadTimeout = 10 * time.Second
	w.WriteTimeout = 10 * time.Second

	return &KafkaPublisher{writer: w, closer: w.Close, log: log}, nil
}

// NewWithWriter is used by tests and by callers sharing a writer.
func NewWithWriter(w sharedkafka.MessageWriter, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, log: log}
}

// Publish keys the message by event id so replays of one event stay ordered
// on a single partition.
func (p *KafkaPublisher) Publish(ctx context.Context, r events.RaceResult) error {
	if !r.Valid() {
		return fmt.Errorf("race result for event %q is incomplete", r.EventID)
	}
	if err := sharedkafka.WriteJSON(ctx, p.writer, "", r.EventID, r); err != nil {
		p.log.Error("failed to publish race result", zap.String("event_id", r.EventID), zap.Error(err))
		return err
	}
	p.log.Debug("published race result",
		zap.String("event_id", r.EventID),
		zap.Int("winner_driver_id", r.WinnerDriverID))
	return nil
}

func (p *KafkaPublisher) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}

// EnsureTopic creates a single-partition topic through the cluster controller.
// An existing topic is not an error.
func EnsureTopic(ctx context.Context, broker, topic string) error {
	conn, err := kafka.DialContext(ctx, "tcp", broker)
	if err != nil {
		return fmt.Errorf("dial kafka: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("kafka controller: %w", err)
	}
	cconn, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer cconn.Close()

	err = cconn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return err
	}
	return nil
}
