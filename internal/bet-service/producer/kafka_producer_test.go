package producer

import (
	"context"
	"encoding/json"
	"testing"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/radieske/race-bet-platform/pkg/contracts/events"
)

type captureWriter struct{ msgs []kafkago.Message }

func (c *captureWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	c.msgs = append(c.msgs, msgs...)
	return nil
}

func TestKafkaPublisherRoutesTopics(t *testing.T) {
	w := &captureWriter{}
	p := NewKafkaPublisher(w, "bet_placed", "event_settled")

	if err := p.PublishBetPlaced(context.Background(), events.BetPlaced{BetID: "b1", EventID: "e1", Stake: "10.00", Odds: 3}); err != nil {
		t.Fatal(err)
	}
	if err := p.NotifyEventSettled(context.Background(), events.EventSettled{EventID: "e1", WinnerDriverID: 1, TotalPayout: "30.00"}); err != nil {
		t.Fatal(err)
	}

	if len(w.msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(w.msgs))
	}
	if w.msgs[0].Topic != "bet_placed" || string(w.msgs[0].Key) != "e1" {
		t.Errorf("first message topic/key = %s/%s", w.msgs[0].Topic, w.msgs[0].Key)
	}
	var placed events.BetPlaced
	if err := json.Unmarshal(w.msgs[0].Value, &placed); err != nil {
		t.Fatal(err)
	}
	if placed.BetID != "b1" || placed.TsUnixMs == 0 {
		t.Errorf("payload = %+v", placed)
	}
	if w.msgs[1].Topic != "event_settled" {
		t.Errorf("second message topic = %s", w.msgs[1].Topic)
	}
}
