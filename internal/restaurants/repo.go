package restaurants

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-restaurant-orders/internal/apperr"
)

type Repo struct{ DB *pgxpool.Pool }

const selectRestaurant = `SELECT id, owner_user_id, name, address, lat, lng, created_at FROM restaurants`

func (r *Repo) Get(ctx context.Context, id string) (Restaurant, error) {
	return scanRestaurant(r.DB.QueryRow(ctx, selectRestaurant+` WHERE id=$1`, id))
}

// FindByOwner returns the first restaurant owned by userID.
func (r *Repo) FindByOwner(ctx context.Context, userID string) (Restaurant, error) {
	return scanRestaurant(r.DB.QueryRow(ctx,
		selectRestaurant+` WHERE owner_user_id=$1 ORDER BY created_at LIMIT 1`, userID))
}

func scanRestaurant(row pgx.Row) (Restaurant, error) {
	var x Restaurant
	err := row.Scan(&x.ID, &x.OwnerUserID, &x.Name, &x.Address, &x.Lat, &x.Lng, &x.CreatedAt)
	if err != nil {
		return Restaurant{}, apperr.FromDB(err, "restaurant")
	}
	return x, nil
}
