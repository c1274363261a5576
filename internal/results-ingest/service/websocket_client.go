package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/race-bet-platform/pkg/contracts/events"
)

type Publisher interface {
	Publish(ctx context.Context, r events.RaceResult) error
}

// WSClient consumes race results from a provider WebSocket feed and forwards
// the valid ones to Kafka. It reconnects until ctx is cancelled.
type WSClient struct {
	URL            string
	Log            *zap.Logger
	Publisher      Publisher
	Source         string        // stamped on results that carry none
	ReconnectDelay time.Duration // defaults to 3s

	OnReceived  func()
	OnPublished func()
	OnInvalid   func()
	OnError     func(stage string)
}

func (c *WSClient) Start(ctx context.Context) {
	delay := c.ReconnectDelay
	if delay <= 0 {
		delay = 3 * time.Second
	}
	for {
		if ctx.Err() != nil {
			c.Log.Info("context canceled, stopping WS client")
			return
		}
		if err := c.connectAndListen(ctx); err != nil {
			c.Log.Warn("connection closed", zap.Error(err))
			c.onError("connect")
		}
		select {
		case <-ctx.Done():
			c.Log.Info("context canceled, stopping WS client")
			return
		case <-time.After(delay):
		}
	}
}

func (c *WSClient) connectAndListen(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	c.Log.Info("connected to results feed", zap.String("url", c.URL))

	// unblock ReadMessage on shutdown
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if c.OnReceived != nil {
			c.OnReceived()
		}
		c.handle(ctx, message)
	}
}

func (c *WSClient) handle(ctx context.Context, message []byte) {
	var r events.RaceResult
	if err := json.Unmarshal(message, &r); err != nil || !r.Valid() {
		c.Log.Warn("invalid race result", zap.ByteString("raw", message), zap.Error(err))
		if c.OnInvalid != nil {
			c.OnInvalid()
		}
		return
	}
	if r.Source == "" {
		r.Source = c.Source
	}
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now().UTC()
	}

	if err := c.Publisher.Publish(ctx, r); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.Log.Error("failed to publish to Kafka", zap.String("event_id", r.EventID), zap.Error(err))
		c.onError("publish")
		return
	}
	if c.OnPublished != nil {
		c.OnPublished()
	}
}

func (c *WSClient) onError(stage string) {
	if c.OnError != nil {
		c.OnError(stage)
	}
}
