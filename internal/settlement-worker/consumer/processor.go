package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/race-bet-platform/internal/bet-service/settlement"
	"github.com/radieske/race-bet-platform/internal/domain"
	"github.com/radieske/race-bet-platform/pkg/contracts/events"
)

// MessageReader is the subset of *kafka.Reader the processor needs; commits
// are explicit so a crash mid-settlement replays the message.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Settler interface {
	SettleEvent(ctx context.Context, eventID string, winnerDriverID int) (settlement.Result, error)
}

// Outcome of handling one race result.
type Outcome string

const (
	OutcomeSettled   Outcome = "settled"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeDLQ       Outcome = "dlq"
)

// Processor consumes race results from Kafka and settles the events.
// Metric callbacks are optional.
type Processor struct {
	Log     *zap.Logger
	Reader  MessageReader
	Settler Settler
	DLQ     MessageWriter // nil drops poison messages after logging

	Retries int
	Backoff time.Duration

	OnConsumed  func()
	OnSettled   func()
	OnDuplicate func()
	OnDLQ       func()
	OnError     func(stage string)
}

// Run loops until ctx is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.Log.Warn("kafka fetch failed", zap.Error(err))
			p.onError("fetch")
			if !sleep(ctx, 500*time.Millisecond) {
				return nil
			}
			continue
		}
		if p.OnConsumed != nil {
			p.OnConsumed()
		}

		if _, err := p.Handle(ctx, m); err != nil {
			// only cancellation ends up here; leave the message uncommitted
			return nil
		}
		if err := p.Reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.Log.Warn("kafka commit failed", zap.Int64("offset", m.Offset), zap.Error(err))
			p.onError("commit")
		}
	}
}

// Handle settles one message. It returns an error only when ctx is done;
// every other outcome is final and the message may be committed.
func (p *Processor) Handle(ctx context.Context, m kafka.Message) (Outcome, error) {
	var rr events.RaceResult
	if err := json.Unmarshal(m.Value, &rr); err != nil {
		p.Log.Warn("invalid race result", zap.Error(err))
		p.onError("decode")
		return p.deadLetter(ctx, m, "decode: "+err.Error())
	}
	if !rr.Valid() {
		p.Log.Warn("incomplete race result", zap.String("event_id", rr.EventID))
		return p.deadLetter(ctx, m, "incomplete race result")
	}

	attempts := max(p.Retries+1, 1)
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 && !sleep(ctx, time.Duration(i)*p.Backoff) {
			return "", ctx.Err()
		}

		var res settlement.Result
		res, err = p.Settler.SettleEvent(ctx, rr.EventID, rr.WinnerDriverID)
		switch {
		case err == nil:
			p.Log.Info("race result settled",
				zap.String("event_id", rr.EventID),
				zap.Int("winner_driver_id", rr.WinnerDriverID),
				zap.Int("bets_settled", res.BetsSettled),
				zap.String("total_payout", res.TotalPayout.StringFixed(2)))
			if p.OnSettled != nil {
				p.OnSettled()
			}
			return OutcomeSettled, nil
		case errors.Is(err, domain.ErrConflict):
			// replayed or raced result; the outcome is already committed
			p.Log.Info("race result already settled", zap.String("event_id", rr.EventID))
			if p.OnDuplicate != nil {
				p.OnDuplicate()
			}
			return OutcomeDuplicate, nil
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidArgument):
			p.onError("settle")
			return p.deadLetter(ctx, m, err.Error())
		case ctx.Err() != nil:
			return "", ctx.Err()
		}
		p.Log.Warn("settlement attempt failed",
			zap.String("event_id", rr.EventID), zap.Int("attempt", i+1), zap.Error(err))
		p.onError("settle")
	}
	return p.deadLetter(ctx, m, err.Error())
}

func (p *Processor) deadLetter(ctx context.Context, m kafka.Message, reason string) (Outcome, error) {
	if p.OnDLQ != nil {
		p.OnDLQ()
	}
	if p.DLQ == nil {
		p.Log.Error("dropping race result", zap.ByteString("key", m.Key), zap.String("reason", reason))
		return OutcomeDLQ, nil
	}
	err := p.DLQ.WriteMessages(ctx, kafka.Message{
		Key:   m.Key,
		Value: m.Value,
		Headers: []kafka.Header{
			{Key: "error", Value: []byte(reason)},
			{Key: "source_topic", Value: []byte(m.Topic)},
		},
		Time: time.Now(),
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		p.Log.Error("dlq write failed", zap.ByteString("key", m.Key), zap.Error(err))
		p.onError("dlq")
	}
	return OutcomeDLQ, nil
}

func (p *Processor) onError(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
