package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-restaurant-orders/internal/apperr"
)

type PGRepo struct{ DB *pgxpool.Pool }

const selectOrder = `SELECT id, restaurant_id, table_id, user_id, order_number, phone, status, paid,
                            total_amount, created_at, updated_at
                     FROM orders`

// CreateFromCart locks the user's cart lines, prices them from the live menu
// through build, allocates the next order number of the restaurant and
// writes the order with its snapshot lines. Nothing is written when build
// fails. The cart itself is left untouched.
func (r *PGRepo) CreateFromCart(ctx context.Context, userID string, in CreateInput, build BuildFunc) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, apperr.FromDB(err, "order")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT ci.menu_item_id, m.restaurant_id, m.name, m.price, m.available, ci.quantity
		FROM carts c
		JOIN cart_items ci ON ci.cart_id = c.id
		JOIN menu_items m ON m.id = ci.menu_item_id
		WHERE c.user_id = $1
		ORDER BY ci.created_at, ci.id
		FOR UPDATE OF ci`, userID)
	if err != nil {
		return Order{}, apperr.FromDB(err, "cart")
	}
	var lines []CartLine
	for rows.Next() {
		var l CartLine
		if err := rows.Scan(&l.MenuItemID, &l.RestaurantID, &l.Name, &l.Price, &l.Available, &l.Quantity); err != nil {
			rows.Close()
			return Order{}, apperr.FromDB(err, "cart")
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Order{}, apperr.FromDB(err, "cart")
	}

	items, total, err := build(lines)
	if err != nil {
		return Order{}, err
	}

	if in.TableID != nil {
		var ok bool
		err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM dining_tables WHERE id=$1 AND restaurant_id=$2)`,
			*in.TableID, in.RestaurantID).Scan(&ok)
		if err != nil {
			return Order{}, apperr.FromDB(err, "table")
		}
		if !ok {
			return Order{}, apperr.NotFound("table not found")
		}
	}

	o := Order{
		ID:           uuid.NewString(),
		RestaurantID: in.RestaurantID,
		TableID:      in.TableID,
		UserID:       userID,
		Phone:        in.Phone,
		Status:       StatusPending,
		TotalAmount:  total,
	}
	err = tx.QueryRow(ctx, `
		UPDATE restaurants SET order_seq = order_seq + 1, updated_at = now()
		WHERE id=$1 RETURNING order_seq`, in.RestaurantID).Scan(&o.OrderNumber)
	if err != nil {
		return Order{}, apperr.FromDB(err, "restaurant")
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, restaurant_id, table_id, user_id, order_number, phone, status, total_amount)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		o.ID, o.RestaurantID, o.TableID, o.UserID, o.OrderNumber, o.Phone, o.Status, o.TotalAmount,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, apperr.FromDB(err, "order")
	}

	for i := range items {
		it := &items[i]
		it.ID = uuid.NewString()
		it.OrderID = o.ID
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, menu_item_id, position, name, quantity, price, status)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			it.ID, it.OrderID, it.MenuItemID, it.Position, it.Name, it.Quantity, it.Price, it.Status,
		); err != nil {
			return Order{}, apperr.FromDB(err, "order item")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, apperr.FromDB(err, "order")
	}
	o.Items = items
	return o, nil
}

func (r *PGRepo) Get(ctx context.Context, id string) (Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, selectOrder+` WHERE id=$1`, id))
	if err != nil {
		return Order{}, err
	}
	if err := r.attachItems(ctx, []*Order{&o}); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *PGRepo) List(ctx context.Context, f Filter) ([]Order, error) {
	var (
		where []string
		args  []any
	)
	if f.RestaurantID != "" {
		args = append(args, f.RestaurantID)
		where = append(where, fmt.Sprintf("restaurant_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	} else if sts := f.Bucket.Statuses(); len(sts) > 0 {
		names := make([]string, len(sts))
		for i, s := range sts {
			names[i] = string(s)
		}
		args = append(args, names)
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}

	q := selectOrder
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	if f.Bucket.oldestFirst() {
		q += " ORDER BY created_at ASC, order_number ASC"
	} else {
		q += " ORDER BY created_at DESC, order_number DESC"
	}
	args = append(args, f.Limit)
	q += fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, apperr.FromDB(err, "order")
	}
	defer rows.Close()

	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromDB(err, "order")
	}

	ptrs := make([]*Order, len(out))
	for i := range out {
		ptrs[i] = &out[i]
	}
	if err := r.attachItems(ctx, ptrs); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PGRepo) UpdateStatus(ctx context.Context, id string, to Status, check func(Order) error) (Order, Status, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, "", apperr.FromDB(err, "order")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := scanOrder(tx.QueryRow(ctx, selectOrder+` WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return Order{}, "", err
	}
	if err := check(o); err != nil {
		return Order{}, "", err
	}
	from := o.Status
	if from != to {
		err = tx.QueryRow(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1 RETURNING updated_at`, id, to).
			Scan(&o.UpdatedAt)
		if err != nil {
			return Order{}, "", apperr.FromDB(err, "order")
		}
		o.Status = to
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, "", apperr.FromDB(err, "order")
	}
	if err := r.attachItems(ctx, []*Order{&o}); err != nil {
		return Order{}, "", err
	}
	return o, from, nil
}

func (r *PGRepo) UpdateItemStatus(ctx context.Context, itemID string, to ItemStatus, check func(restaurantID string) error) (Item, string, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Item{}, "", apperr.FromDB(err, "order item")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		it           Item
		restaurantID string
	)
	err = tx.QueryRow(ctx, `
		SELECT oi.id, oi.order_id, oi.menu_item_id, oi.position, oi.name, oi.quantity, oi.price, oi.status, o.restaurant_id
		FROM order_items oi JOIN orders o ON o.id = oi.order_id
		WHERE oi.id=$1
		FOR UPDATE OF oi`, itemID).
		Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.Position, &it.Name, &it.Quantity, &it.Price, &it.Status, &restaurantID)
	if err != nil {
		return Item{}, "", apperr.FromDB(err, "order item")
	}
	if err := check(restaurantID); err != nil {
		return Item{}, "", err
	}
	if _, err := tx.Exec(ctx, `UPDATE order_items SET status=$2 WHERE id=$1`, itemID, to); err != nil {
		return Item{}, "", apperr.FromDB(err, "order item")
	}
	if err := tx.Commit(ctx); err != nil {
		return Item{}, "", apperr.FromDB(err, "order item")
	}
	it.Status = to
	it.LineTotal = it.Price.Mul(decimalQty(it.Quantity))
	return it, restaurantID, nil
}

const markPaidSQL = `
	UPDATE orders SET paid = true, updated_at = now()
	WHERE id=$1 AND paid = false
	RETURNING id`

// MarkPaid reports whether the flag actually flipped so repeated callbacks
// stay quiet. Only the caller whose UPDATE matches the unpaid row sees
// changed=true.
func (r *PGRepo) MarkPaid(ctx context.Context, id string) (Order, bool, error) {
	changed := true
	var got string
	err := r.DB.QueryRow(ctx, markPaidSQL, id).Scan(&got)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		changed = false
	case err != nil:
		return Order{}, false, apperr.FromDB(err, "order")
	}
	o, err := r.Get(ctx, id)
	if err != nil {
		return Order{}, false, err
	}
	return o, changed, nil
}

func (r *PGRepo) attachItems(ctx context.Context, orders []*Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	byID := make(map[string]*Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		o.Items = []Item{}
		byID[o.ID] = o
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, menu_item_id, position, name, quantity, price, status
		FROM order_items WHERE order_id = ANY($1)
		ORDER BY order_id, position`, ids)
	if err != nil {
		return apperr.FromDB(err, "order item")
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.Position, &it.Name, &it.Quantity, &it.Price, &it.Status); err != nil {
			return apperr.FromDB(err, "order item")
		}
		it.LineTotal = it.Price.Mul(decimalQty(it.Quantity))
		if o := byID[it.OrderID]; o != nil {
			o.Items = append(o.Items, it)
		}
	}
	return apperr.FromDB(rows.Err(), "order item")
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.RestaurantID, &o.TableID, &o.UserID, &o.OrderNumber, &o.Phone, &o.Status, &o.Paid,
		&o.TotalAmount, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, apperr.NotFound("order not found")
	}
	if err != nil {
		return Order{}, apperr.FromDB(err, "order")
	}
	return o, nil
}
