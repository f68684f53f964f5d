package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-restaurant-orders/internal/apperr"
)

type PGRepo struct{ DB *pgxpool.Pool }

func (r *PGRepo) Load(ctx context.Context, userID string) (Cart, error) {
	c := Empty(userID)
	var updated time.Time
	err := r.DB.QueryRow(ctx, `SELECT id, updated_at FROM carts WHERE user_id=$1`, userID).Scan(&c.ID, &updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return c, nil
	}
	if err != nil {
		return Cart{}, apperr.FromDB(err, "cart")
	}
	c.UpdatedAt = &updated

	rows, err := r.DB.Query(ctx, `
		SELECT ci.id, ci.menu_item_id, ci.quantity,
		       m.id, m.restaurant_id, m.category_id, m.name, m.description, m.price, m.image_url, m.available
		FROM cart_items ci
		JOIN menu_items m ON m.id = ci.menu_item_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at, ci.id`, c.ID)
	if err != nil {
		return Cart{}, apperr.FromDB(err, "cart")
	}
	defer rows.Close()

	for rows.Next() {
		var l Line
		m := &l.MenuItem
		if err := rows.Scan(&l.ID, &l.MenuItemID, &l.Quantity,
			&m.ID, &m.RestaurantID, &m.CategoryID, &m.Name, &m.Description, &m.Price, &m.ImageURL, &m.Available); err != nil {
			return Cart{}, apperr.FromDB(err, "cart")
		}
		c.Items = append(c.Items, l)
	}
	if err := rows.Err(); err != nil {
		return Cart{}, apperr.FromDB(err, "cart")
	}
	c.totals()
	return c, nil
}

// AddItem is a single statement: two concurrent first adds for the same user
// serialize on the unique user_id and cart line constraints instead of
// creating two carts or losing an increment.
func (r *PGRepo) AddItem(ctx context.Context, userID, menuItemID string) (int, error) {
	var qty int
	err := r.DB.QueryRow(ctx, `
		WITH c AS (
			INSERT INTO carts(id, user_id) VALUES ($1, $2)
			ON CONFLICT (user_id) DO UPDATE SET updated_at = now()
			RETURNING id
		)
		INSERT INTO cart_items(id, cart_id, menu_item_id, quantity)
		SELECT $3, c.id, $4, 1 FROM c
		ON CONFLICT (cart_id, menu_item_id)
		DO UPDATE SET quantity = cart_items.quantity + 1, updated_at = now()
		RETURNING quantity`,
		uuid.NewString(), userID, uuid.NewString(), menuItemID,
	).Scan(&qty)
	if err != nil {
		return 0, apperr.FromDB(err, "menu item")
	}
	return qty, nil
}

func (r *PGRepo) RemoveItem(ctx context.Context, userID, menuItemID string, removeAll bool) (int, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, apperr.FromDB(err, "cart")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		lineID, cartID string
		qty            int
	)
	err = tx.QueryRow(ctx, `
		SELECT ci.id, ci.cart_id, ci.quantity
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		WHERE c.user_id = $1 AND ci.menu_item_id = $2
		FOR UPDATE OF ci`, userID, menuItemID).Scan(&lineID, &cartID, &qty)
	if err != nil {
		return 0, apperr.FromDB(err, "cart item")
	}

	remaining := 0
	if removeAll || qty <= 1 {
		if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE id=$1`, lineID); err != nil {
			return 0, apperr.FromDB(err, "cart item")
		}
	} else {
		if err := tx.QueryRow(ctx, `
			UPDATE cart_items SET quantity = quantity - 1, updated_at = now()
			WHERE id=$1 RETURNING quantity`, lineID).Scan(&remaining); err != nil {
			return 0, apperr.FromDB(err, "cart item")
		}
	}
	if _, err := tx.Exec(ctx, `UPDATE carts SET updated_at = now() WHERE id=$1`, cartID); err != nil {
		return 0, apperr.FromDB(err, "cart")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, apperr.FromDB(err, "cart")
	}
	return remaining, nil
}

// Clear empties the cart but keeps the row for the next add.
func (r *PGRepo) Clear(ctx context.Context, userID string) error {
	_, err := r.DB.Exec(ctx, `
		WITH c AS (UPDATE carts SET updated_at = now() WHERE user_id=$1 RETURNING id)
		DELETE FROM cart_items WHERE cart_id IN (SELECT id FROM c)`, userID)
	return apperr.FromDB(err, "cart")
}

// SweepAbandoned deletes carts with no lines that were last touched before the cutoff.
func (r *PGRepo) SweepAbandoned(ctx context.Context, before time.Time) (int64, error) {
	ct, err := r.DB.Exec(ctx, `
		DELETE FROM carts c
		WHERE c.updated_at < $1
		  AND NOT EXISTS (SELECT 1 FROM cart_items ci WHERE ci.cart_id = c.id)`, before)
	if err != nil {
		return 0, apperr.FromDB(err, "cart")
	}
	return ct.RowsAffected(), nil
}
