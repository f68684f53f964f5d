package cart

import (
	"context"
	"time"
)

type Repo interface {
	// Load returns the user's cart, or the empty shape when none exists.
	Load(ctx context.Context, userID string) (Cart, error)
	// AddItem upserts the cart and the line in one statement and returns the
	// new quantity.
	AddItem(ctx context.Context, userID, menuItemID string) (int, error)
	// RemoveItem returns the remaining quantity; 0 means the line is gone.
	RemoveItem(ctx context.Context, userID, menuItemID string, removeAll bool) (int, error)
	Clear(ctx context.Context, userID string) error
	SweepAbandoned(ctx context.Context, before time.Time) (int64, error)
}

type Cache interface {
	Get(ctx context.Context, userID string) (Cart, bool, error)
	Set(ctx context.Context, c Cart) error
	Invalidate(ctx context.Context, userID string) error
}
