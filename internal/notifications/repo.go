package notifications

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-restaurant-orders/internal/apperr"
)

type PGRepo struct{ DB *pgxpool.Pool }

const selectNotification = `SELECT id, restaurant_id, order_id, message, type, payload, is_read, created_at FROM notifications`

func (r *PGRepo) Insert(ctx context.Context, in Input) (Notification, error) {
	n := Notification{
		ID:           uuid.NewString(),
		RestaurantID: in.RestaurantID,
		OrderID:      in.OrderID,
		Message:      in.Message,
		Type:         in.Type,
		Payload:      in.Payload,
	}
	var payload any
	if len(in.Payload) > 0 {
		payload = []byte(in.Payload)
	}
	err := r.DB.QueryRow(ctx, `
		INSERT INTO notifications(id, restaurant_id, order_id, message, type, payload)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		n.ID, n.RestaurantID, n.OrderID, n.Message, n.Type, payload,
	).Scan(&n.CreatedAt)
	if err != nil {
		return Notification{}, apperr.FromDB(err, "restaurant")
	}
	return n, nil
}

func (r *PGRepo) Get(ctx context.Context, id string) (Notification, error) {
	return scanNotification(r.DB.QueryRow(ctx, selectNotification+` WHERE id=$1`, id))
}

func (r *PGRepo) List(ctx context.Context, restaurantID string, unreadOnly bool, limit int) ([]Notification, error) {
	rows, err := r.DB.Query(ctx, selectNotification+`
		WHERE restaurant_id=$1 AND ($2 = false OR is_read = false)
		ORDER BY created_at DESC, id DESC
		LIMIT $3`, restaurantID, unreadOnly, limit)
	if err != nil {
		return nil, apperr.FromDB(err, "notification")
	}
	defer rows.Close()

	out := []Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, apperr.FromDB(rows.Err(), "notification")
}

func (r *PGRepo) MarkRead(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `UPDATE notifications SET is_read = true WHERE id=$1`, id)
	if err != nil {
		return apperr.FromDB(err, "notification")
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("notification not found")
	}
	return nil
}

func (r *PGRepo) MarkAllRead(ctx context.Context, restaurantID string) (int64, error) {
	ct, err := r.DB.Exec(ctx, `UPDATE notifications SET is_read = true WHERE restaurant_id=$1 AND is_read = false`, restaurantID)
	if err != nil {
		return 0, apperr.FromDB(err, "notification")
	}
	return ct.RowsAffected(), nil
}

// UnreadCount is computed from the table on every call; nothing is kept in memory.
func (r *PGRepo) UnreadCount(ctx context.Context, restaurantID string) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx, `SELECT count(*) FROM notifications WHERE restaurant_id=$1 AND is_read = false`, restaurantID).Scan(&n)
	return n, apperr.FromDB(err, "notification")
}

func scanNotification(row pgx.Row) (Notification, error) {
	var (
		n       Notification
		payload []byte
	)
	if err := row.Scan(&n.ID, &n.RestaurantID, &n.OrderID, &n.Message, &n.Type, &payload, &n.IsRead, &n.CreatedAt); err != nil {
		return Notification{}, apperr.FromDB(err, "notification")
	}
	if len(payload) > 0 {
		n.Payload = payload
	}
	return n, nil
}
