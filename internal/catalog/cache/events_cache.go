package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/race-bet-platform/internal/domain"
	"github.com/radieske/race-bet-platform/pkg/contracts/events"
)

// Cache keeps event listings in Redis as JSON.
type Cache struct{ R *redis.Client }

func New(r *redis.Client) *Cache { return &Cache{R: r} }

// ListingKey identifies a listing by provider and filters.
func ListingKey(provider string, f domain.EventFilter) string {
	year := ""
	if f.Year != nil {
		year = strconv.Itoa(*f.Year)
	}
	return fmt.Sprintf("events:list:%s:%s:%s:%s",
		strings.ToLower(provider), year, strings.ToLower(f.Country), strings.ToLower(f.SessionType))
}

func (c *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, err := c.R.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

func (c *Cache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, key, b, ttl).Err()
}

// Invalidate drops every cached listing; settlements change listing content.
func (c *Cache) Invalidate(ctx context.Context) error {
	iter := c.R.Scan(ctx, 0, "events:list:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.R.Del(ctx, keys...).Err()
}

// NotifyEventSettled lets services without a catalog drop stale listings
// after settling.
func (c *Cache) NotifyEventSettled(ctx context.Context, _ events.EventSettled) error {
	return c.Invalidate(ctx)
}
