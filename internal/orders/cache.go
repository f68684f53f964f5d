package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-restaurant-orders/internal/redisx"
)

// RedisStatusCache stores {"status","paid"} under order_status:{id}.
type RedisStatusCache struct{ RDB *redis.Client }

func (c *RedisStatusCache) Get(ctx context.Context, orderID string) (StatusView, bool, error) {
	s, err := c.RDB.Get(ctx, fmt.Sprintf(redisx.KeyOrderStatus, orderID)).Result()
	if errors.Is(err, redis.Nil) {
		return StatusView{}, false, nil
	}
	if err != nil {
		return StatusView{}, false, err
	}
	var v StatusView
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return StatusView{}, false, err
	}
	return v, true, nil
}

func (c *RedisStatusCache) Set(ctx context.Context, orderID string, v StatusView) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.RDB.Set(ctx, fmt.Sprintf(redisx.KeyOrderStatus, orderID), b, redisx.TTLStatusCache).Err()
}
