package orders

import (
	"context"

	"github.com/shopspring/decimal"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-restaurant-orders/internal/auth"
	"github.com/ariefcatur/go-restaurant-orders/internal/notifications"
)

// BuildFunc turns the locked cart lines into order items and a total. It
// runs inside the create transaction.
type BuildFunc func(lines []CartLine) ([]Item, decimal.Decimal, error)

type Repo interface {
	CreateFromCart(ctx context.Context, userID string, in CreateInput, build BuildFunc) (Order, error)
	Get(ctx context.Context, id string) (Order, error)
	List(ctx context.Context, f Filter) ([]Order, error)
	// UpdateStatus locks the order, runs check against it and then writes
	// the new status. It returns the updated order and the previous status.
	UpdateStatus(ctx context.Context, id string, to Status, check func(Order) error) (Order, Status, error)
	UpdateItemStatus(ctx context.Context, itemID string, to ItemStatus, check func(restaurantID string) error) (Item, string, error)
	MarkPaid(ctx context.Context, id string) (Order, bool, error)
}

type Scoper interface {
	Scope(ctx context.Context, a auth.Actor) (auth.Scope, error)
}

type Notifier interface {
	Notify(ctx context.Context, in notifications.Input) (notifications.Notification, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, key, value []byte, headers ...kafkago.Header) error
}

type StatusCache interface {
	Get(ctx context.Context, orderID string) (StatusView, bool, error)
	Set(ctx context.Context, orderID string, v StatusView) error
}
