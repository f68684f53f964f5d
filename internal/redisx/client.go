package redisx

import (
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// ChannelFromPush strips the pub/sub prefix: "push:restaurant-1" -> "restaurant-1".
func ChannelFromPush(redisChannel string) string {
	return strings.TrimPrefix(redisChannel, "push:")
}
