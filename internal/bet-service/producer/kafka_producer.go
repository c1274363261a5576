package producer

import (
	"context"
	"time"

	"github.com/radieske/race-bet-platform/internal/shared/kafka"
	"github.com/radieske/race-bet-platform/pkg/contracts/events"
)

// KafkaPublisher emits bet-service events. The writer carries no topic; each
// message names its own.
type KafkaPublisher struct {
	Writer            kafka.MessageWriter
	TopicBetPlaced    string
	TopicEventSettled string
}

func NewKafkaPublisher(w kafka.MessageWriter, topicBetPlaced, topicEventSettled string) *KafkaPublisher {
	return &KafkaPublisher{Writer: w, TopicBetPlaced: topicBetPlaced, TopicEventSettled: topicEventSettled}
}

// PublishBetPlaced is keyed by event so one event's bets stay ordered.
func (p *KafkaPublisher) PublishBetPlaced(ctx context.Context, e events.BetPlaced) error {
	e.TsUnixMs = time.Now().UnixMilli()
	return kafka.WriteJSON(ctx, p.Writer, p.TopicBetPlaced, e.EventID, e)
}

func (p *KafkaPublisher) NotifyEventSettled(ctx context.Context, e events.EventSettled) error {
	return kafka.WriteJSON(ctx, p.Writer, p.TopicEventSettled, e.EventID, e)
}
