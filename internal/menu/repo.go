package menu

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-restaurant-orders/internal/apperr"
)

type PGRepo struct{ DB *pgxpool.Pool }

func (r *PGRepo) ListCategories(ctx context.Context, restaurantID string) ([]Category, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, restaurant_id, name, created_at
	                             FROM categories WHERE restaurant_id=$1 ORDER BY name`, restaurantID)
	if err != nil {
		return nil, apperr.FromDB(err, "category")
	}
	defer rows.Close()

	out := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.RestaurantID, &c.Name, &c.CreatedAt); err != nil {
			return nil, apperr.FromDB(err, "category")
		}
		out = append(out, c)
	}
	return out, apperr.FromDB(rows.Err(), "category")
}

func (r *PGRepo) GetCategory(ctx context.Context, id string) (Category, error) {
	var c Category
	err := r.DB.QueryRow(ctx, `SELECT id, restaurant_id, name, created_at FROM categories WHERE id=$1`, id).
		Scan(&c.ID, &c.RestaurantID, &c.Name, &c.CreatedAt)
	if err != nil {
		return Category{}, apperr.FromDB(err, "category")
	}
	return c, nil
}

// CreateCategory relies on the (restaurant_id, lower(name)) unique index
// for duplicate detection; a violation surfaces as Conflict.
func (r *PGRepo) CreateCategory(ctx context.Context, c Category) (Category, error) {
	c.ID = uuid.NewString()
	err := r.DB.QueryRow(ctx, `INSERT INTO categories(id, restaurant_id, name)
	                          VALUES ($1,$2,$3) RETURNING created_at`,
		c.ID, c.RestaurantID, c.Name).Scan(&c.CreatedAt)
	if err != nil {
		return Category{}, apperr.FromDB(err, "category")
	}
	return c, nil
}

const selectItem = `SELECT id, restaurant_id, user_id, category_id, name, description, price,
                           image_url, available, created_at, updated_at
                    FROM menu_items`

func (r *PGRepo) ListItems(ctx context.Context, restaurantID string) ([]MenuItem, error) {
	rows, err := r.DB.Query(ctx, selectItem+` WHERE restaurant_id=$1 ORDER BY name`, restaurantID)
	if err != nil {
		return nil, apperr.FromDB(err, "menu item")
	}
	defer rows.Close()

	out := []MenuItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, apperr.FromDB(rows.Err(), "menu item")
}

func (r *PGRepo) GetItem(ctx context.Context, id string) (MenuItem, error) {
	return scanItem(r.DB.QueryRow(ctx, selectItem+` WHERE id=$1`, id))
}

func (r *PGRepo) CreateItem(ctx context.Context, it MenuItem) (MenuItem, error) {
	it.ID = uuid.NewString()
	err := r.DB.QueryRow(ctx, `
		INSERT INTO menu_items(id, restaurant_id, user_id, category_id, name, description, price, image_url, available)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		it.ID, it.RestaurantID, it.UserID, it.CategoryID, it.Name, it.Description, it.Price, it.ImageURL, it.Available,
	).Scan(&it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return MenuItem{}, apperr.FromDB(err, "menu item")
	}
	return it, nil
}

func (r *PGRepo) UpdateItem(ctx context.Context, it MenuItem) (MenuItem, error) {
	it.UpdatedAt = time.Now().UTC()
	ct, err := r.DB.Exec(ctx, `
		UPDATE menu_items
		SET category_id=$2, name=$3, description=$4, price=$5, image_url=$6, available=$7, updated_at=$8
		WHERE id=$1`,
		it.ID, it.CategoryID, it.Name, it.Description, it.Price, it.ImageURL, it.Available, it.UpdatedAt,
	)
	if err != nil {
		return MenuItem{}, apperr.FromDB(err, "menu item")
	}
	if ct.RowsAffected() == 0 {
		return MenuItem{}, apperr.NotFound("menu item not found")
	}
	return it, nil
}

func scanItem(row pgx.Row) (MenuItem, error) {
	var it MenuItem
	err := row.Scan(&it.ID, &it.RestaurantID, &it.UserID, &it.CategoryID, &it.Name, &it.Description,
		&it.Price, &it.ImageURL, &it.Available, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return MenuItem{}, apperr.FromDB(err, "menu item")
	}
	return it, nil
}
