package restaurants

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-restaurant-orders/internal/apperr"
	"github.com/ariefcatur/go-restaurant-orders/internal/auth"
)

type fakeStore map[string]Restaurant // owner -> restaurant

func (f fakeStore) FindByOwner(_ context.Context, userID string) (Restaurant, error) {
	r, ok := f[userID]
	if !ok {
		return Restaurant{}, apperr.NotFound("restaurant not found")
	}
	return r, nil
}

func TestScope(t *testing.T) {
	s := NewScoper(fakeStore{"owner-a": {ID: "rest-a", OwnerUserID: "owner-a"}})
	ctx := context.Background()

	t.Run("admin sees everything", func(t *testing.T) {
		sc, err := s.Scope(ctx, auth.Actor{UserID: "root", Role: auth.RoleAdmin})
		require.NoError(t, err)
		assert.True(t, sc.All)
	})

	t.Run("owner scoped to own restaurant", func(t *testing.T) {
		sc, err := s.Scope(ctx, auth.Actor{UserID: "owner-a", Role: auth.RoleRestaurant})
		require.NoError(t, err)
		assert.False(t, sc.All)
		assert.Equal(t, "rest-a", sc.RestaurantID)
	})

	t.Run("no restaurant -> not found", func(t *testing.T) {
		_, err := s.Scope(ctx, auth.Actor{UserID: "diner", Role: auth.RoleCustomer})
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})

	t.Run("anonymous -> unauthorized", func(t *testing.T) {
		_, err := s.Scope(ctx, auth.Actor{})
		assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	})
}
