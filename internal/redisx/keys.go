package redisx

import "time"

const (
	// Cart view cache: cart:{user_id} -> cart JSON
	KeyCartView = "cart:%s"

	// Public order status cache: order_status:{order_id} -> {"status": "...", "paid": bool}
	KeyOrderStatus = "order_status:%s"

	// Dedup push event fan-out: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Pub/sub channel per push channel: push:{channel}
	ChannelPush        = "push:%s"
	ChannelPushPattern = "push:*"
)

var (
	TTLCartView    = 2 * time.Minute
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
