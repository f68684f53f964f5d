package httpx

import (
	"context"
	"net/http"

	"github.com/ariefcatur/go-restaurant-orders/internal/auth"
	"github.com/ariefcatur/go-restaurant-orders/internal/cart"
	"github.com/ariefcatur/go-restaurant-orders/internal/menu"
	"github.com/ariefcatur/go-restaurant-orders/internal/notifications"
	"github.com/ariefcatur/go-restaurant-orders/internal/orders"
	"github.com/ariefcatur/go-restaurant-orders/internal/tables"
)

type CartService interface {
	Get(ctx context.Context, a auth.Actor) (cart.Cart, error)
	AddItem(ctx context.Context, a auth.Actor, menuItemID string) (cart.Cart, error)
	RemoveItem(ctx context.Context, a auth.Actor, menuItemID string, removeAll bool) (cart.Cart, error)
	Clear(ctx context.Context, a auth.Actor) (cart.Cart, error)
}

type MenuService interface {
	List(ctx context.Context, restaurantID string) (menu.Menu, error)
	CreateCategory(ctx context.Context, a auth.Actor, restaurantID, name string) (menu.Category, error)
	CreateItem(ctx context.Context, a auth.Actor, in menu.ItemInput) (menu.MenuItem, error)
	UpdateItem(ctx context.Context, a auth.Actor, id string, p menu.ItemPatch) (menu.MenuItem, error)
}

type OrderService interface {
	Create(ctx context.Context, a auth.Actor, in orders.CreateInput) (orders.Order, error)
	Get(ctx context.Context, a auth.Actor, id string) (orders.Order, error)
	List(ctx context.Context, a auth.Actor, f orders.Filter) ([]orders.Order, error)
	SetStatus(ctx context.Context, a auth.Actor, id string, to orders.Status) (orders.Order, error)
	SetItemStatus(ctx context.Context, a auth.Actor, itemID string, to orders.ItemStatus) (orders.Item, error)
	MarkPaid(ctx context.Context, orderID string) (orders.Order, error)
	PublicStatus(ctx context.Context, orderID string) (orders.StatusView, error)
}

type NotificationService interface {
	Publish(ctx context.Context, a auth.Actor, in notifications.Input) (notifications.Notification, error)
	List(ctx context.Context, a auth.Actor, q notifications.Query) ([]notifications.Notification, error)
	UnreadCount(ctx context.Context, a auth.Actor, restaurantID string) (int, error)
	MarkRead(ctx context.Context, a auth.Actor, id string) (notifications.Notification, error)
	MarkAllRead(ctx context.Context, a auth.Actor, restaurantID string) (int64, error)
}

type TableService interface {
	Provision(ctx context.Context, a auth.Actor, restaurantID string, number int, label string) (tables.Table, error)
	List(ctx context.Context, a auth.Actor, restaurantID string) ([]tables.Table, error)
}

type Scoper interface {
	Scope(ctx context.Context, a auth.Actor) (auth.Scope, error)
}

// Hub serves dashboard sockets for one push channel.
type Hub interface {
	Serve(w http.ResponseWriter, r *http.Request, channel string)
}
