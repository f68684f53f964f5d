package menu

import (
	"context"

	"github.com/ariefcatur/go-restaurant-orders/internal/auth"
)

type Repo interface {
	ListCategories(ctx context.Context, restaurantID string) ([]Category, error)
	GetCategory(ctx context.Context, id string) (Category, error)
	CreateCategory(ctx context.Context, c Category) (Category, error)

	ListItems(ctx context.Context, restaurantID string) ([]MenuItem, error)
	GetItem(ctx context.Context, id string) (MenuItem, error)
	CreateItem(ctx context.Context, it MenuItem) (MenuItem, error)
	UpdateItem(ctx context.Context, it MenuItem) (MenuItem, error)
}

type Scoper interface {
	Scope(ctx context.Context, a auth.Actor) (auth.Scope, error)
}
