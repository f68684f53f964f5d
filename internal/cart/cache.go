package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-restaurant-orders/internal/redisx"
)

// RedisCache keeps rendered carts under cart:{user_id} for a short TTL.
type RedisCache struct{ RDB *redis.Client }

func (c *RedisCache) Get(ctx context.Context, userID string) (Cart, bool, error) {
	s, err := c.RDB.Get(ctx, fmt.Sprintf(redisx.KeyCartView, userID)).Result()
	if errors.Is(err, redis.Nil) {
		return Cart{}, false, nil
	}
	if err != nil {
		return Cart{}, false, err
	}
	var out Cart
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return Cart{}, false, err
	}
	return out, true, nil
}

func (c *RedisCache) Set(ctx context.Context, v Cart) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.RDB.Set(ctx, fmt.Sprintf(redisx.KeyCartView, v.UserID), b, redisx.TTLCartView).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, userID string) error {
	return c.RDB.Del(ctx, fmt.Sprintf(redisx.KeyCartView, userID)).Err()
}
