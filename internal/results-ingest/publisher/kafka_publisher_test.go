package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/race-bet-platform/pkg/contracts/events"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func TestPublishKeysByEvent(t *testing.T) {
	w := &fakeWriter{}
	p := NewWithWriter(w, zap.NewNop())

	err := p.Publish(context.Background(), events.RaceResult{EventID: "9158", WinnerDriverID: 1, Source: "sessions-simulator"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(w.msgs))
	}
	if string(w.msgs[0].Key) != "9158" {
		t.Errorf("key = %q, want 9158", w.msgs[0].Key)
	}

	var got events.RaceResult
	if err := json.Unmarshal(w.msgs[0].Value, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.WinnerDriverID != 1 || got.Source != "sessions-simulator" {
		t.Errorf("payload = %+v", got)
	}
}

func TestPublishRejectsIncomplete(t *testing.T) {
	w := &fakeWriter{}
	p := NewWithWriter(w, zap.NewNop())

	if err := p.Publish(context.Background(), events.RaceResult{EventID: "9158"}); err == nil {
		t.Fatal("expected error for missing winner")
	}
	if len(w.msgs) != 0 {
		t.Errorf("wrote %d messages", len(w.msgs))
	}
}

func TestPublishWriterError(t *testing.T) {
	boom := errors.New("broker down")
	p := NewWithWriter(&fakeWriter{err: boom}, zap.NewNop())

	err := p.Publish(context.Background(), events.RaceResult{EventID: "1", WinnerDriverID: 44})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
}

func TestNewKafkaPublisherRequiresBrokers(t *testing.T) {
	if _, err := NewKafkaPublisher(nil, "race_results", "prod", zap.NewNop()); err == nil {
		t.Fatal("expected error without brokers")
	}
}
