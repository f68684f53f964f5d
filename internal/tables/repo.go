package tables

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-restaurant-orders/internal/apperr"
)

type PGRepo struct{ DB *pgxpool.Pool }

// Insert maps a duplicate (restaurant_id, number) to Conflict.
func (r *PGRepo) Insert(ctx context.Context, t Table) (Table, error) {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO dining_tables(id, restaurant_id, number, label, qr_url, qr_code)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		t.ID, t.RestaurantID, t.Number, t.Label, t.QRURL, t.QRCode,
	).Scan(&t.CreatedAt)
	if err != nil {
		return Table{}, apperr.FromDB(err, "table")
	}
	return t, nil
}

func (r *PGRepo) List(ctx context.Context, restaurantID string) ([]Table, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, restaurant_id, number, label, qr_url, qr_code, created_at
		FROM dining_tables WHERE restaurant_id=$1 ORDER BY number`, restaurantID)
	if err != nil {
		return nil, apperr.FromDB(err, "table")
	}
	defer rows.Close()

	out := []Table{}
	for rows.Next() {
		var t Table
		if err := rows.Scan(&t.ID, &t.RestaurantID, &t.Number, &t.Label, &t.QRURL, &t.QRCode, &t.CreatedAt); err != nil {
			return nil, apperr.FromDB(err, "table")
		}
		out = append(out, t)
	}
	return out, apperr.FromDB(rows.Err(), "table")
}
