package pubsub

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/race-bet-platform/pkg/contracts/events"
)

// RedisBroadcaster fans settlement notifications out to every bet-service
// instance through Redis pub/sub; each instance feeds its WebSocket hub.
type RedisBroadcaster struct {
	r       *redis.Client
	channel string
}

func NewRedisBroadcaster(r *redis.Client, channel string) *RedisBroadcaster {
	return &RedisBroadcaster{r: r, channel: channel}
}

func (b *RedisBroadcaster) NotifyEventSettled(ctx context.Context, e events.EventSettled) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return b.r.Publish(ctx, b.channel, payload).Err()
}
