package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ToyotakaTanaka/jiji2/pkg/trading/model"
)

var ErrCacheMiss = errors.New("order not cached")

const keyPrefix = "order:"

// OrderCache keeps the JSON representation of recently used orders in redis.
type OrderCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewOrderCache(client redis.Cmdable, ttl time.Duration) *OrderCache {
	return &OrderCache{
		client: client,
		ttl:    ttl,
	}
}

func orderKey(id string) string {
	return keyPrefix + id
}

func (c *OrderCache) Set(ctx context.Context, id string, order *model.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, orderKey(id), data, c.ttl).Err()
}

func (c *OrderCache) Get(ctx context.Context, id string) (*model.Order, error) {
	data, err := c.client.Get(ctx, orderKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	order := &model.Order{}
	if err := json.Unmarshal(data, order); err != nil {
		return nil, fmt.Errorf("decode cached order %s: %w", id, err)
	}
	return order, nil
}

func (c *OrderCache) Delete(ctx context.Context, id string) error {
	return c.client.Del(ctx, orderKey(id)).Err()
}
