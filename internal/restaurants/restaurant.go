package restaurants

import (
	"context"
	"time"

	"github.com/ariefcatur/go-restaurant-orders/internal/apperr"
	"github.com/ariefcatur/go-restaurant-orders/internal/auth"
)

type Restaurant struct {
	ID          string    `json:"id"`
	OwnerUserID string    `json:"ownerUserId"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	Lat         *float64  `json:"lat,omitempty"`
	Lng         *float64  `json:"lng,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Store interface {
	FindByOwner(ctx context.Context, userID string) (Restaurant, error)
}

// Scoper resolves which restaurants an actor may touch.
type Scoper struct {
	store Store
}

func NewScoper(store Store) *Scoper {
	return &Scoper{store: store}
}

// Scope returns an unrestricted scope for admins and the owned restaurant
// for everyone else. An actor owning no restaurant gets NotFound.
func (s *Scoper) Scope(ctx context.Context, a auth.Actor) (auth.Scope, error) {
	if a.UserID == "" {
		return auth.Scope{}, apperr.Unauthorized("authentication required")
	}
	if a.IsAdmin() {
		return auth.Scope{All: true}, nil
	}
	r, err := s.store.FindByOwner(ctx, a.UserID)
	if err != nil {
		return auth.Scope{}, err
	}
	return auth.Scope{RestaurantID: r.ID}, nil
}
