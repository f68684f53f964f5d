package notifications

import (
	"context"

	"github.com/ariefcatur/go-restaurant-orders/internal/auth"
)

type Repo interface {
	Insert(ctx context.Context, in Input) (Notification, error)
	Get(ctx context.Context, id string) (Notification, error)
	List(ctx context.Context, restaurantID string, unreadOnly bool, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, restaurantID string) (int64, error)
	UnreadCount(ctx context.Context, restaurantID string) (int, error)
}

type Scoper interface {
	Scope(ctx context.Context, a auth.Actor) (auth.Scope, error)
}

// Pusher hands an event to the dashboard push channel.
type Pusher interface {
	Trigger(ctx context.Context, channel, event string, payload any) error
}
