package menu

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID           string    `json:"id"`
	RestaurantID string    `json:"restaurantId"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"createdAt"`
}

type MenuItem struct {
	ID           string          `json:"id"`
	RestaurantID string          `json:"restaurantId"`
	UserID       string          `json:"userId"`
	CategoryID   *string         `json:"categoryId,omitempty"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	ImageURL     string          `json:"imageUrl"`
	Available    bool            `json:"available"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Menu is the public view of a restaurant's offering.
type Menu struct {
	RestaurantID string     `json:"restaurantId"`
	Categories   []Category `json:"categories"`
	Items        []MenuItem `json:"items"`
}

type ItemInput struct {
	RestaurantID string
	CategoryID   *string
	Name         string
	Description  string
	Price        decimal.Decimal
	ImageURL     string
	Available    *bool
}

// ItemPatch holds the mutable parts of a menu item; nil fields are left as is.
type ItemPatch struct {
	CategoryID  *string
	Name        *string
	Description *string
	Price       *decimal.Decimal
	ImageURL    *string
	Available   *bool
}
