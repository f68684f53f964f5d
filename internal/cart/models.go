package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is the menu item embedded in a cart line, read live from the menu.
type Item struct {
	ID           string          `json:"id"`
	RestaurantID string          `json:"restaurantId"`
	CategoryID   *string         `json:"categoryId,omitempty"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	ImageURL     string          `json:"imageUrl"`
	Available    bool            `json:"available"`
}

type Line struct {
	ID         string          `json:"id"`
	MenuItemID string          `json:"menuItemId"`
	Quantity   int             `json:"quantity"`
	MenuItem   Item            `json:"menuItem"`
	LineTotal  decimal.Decimal `json:"lineTotal"`
}

// Cart is a user's single active cart. A user that never added anything
// gets the empty shape: no ID and no items.
type Cart struct {
	ID        string          `json:"id,omitempty"`
	UserID    string          `json:"userId"`
	Items     []Line          `json:"items"`
	ItemCount int             `json:"itemCount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
}

func Empty(userID string) Cart {
	return Cart{UserID: userID, Items: []Line{}, Subtotal: decimal.Zero}
}

// totals fills line totals, ItemCount and Subtotal from the embedded prices.
func (c *Cart) totals() {
	if c.Items == nil {
		c.Items = []Line{}
	}
	sub := decimal.Zero
	n := 0
	for i := range c.Items {
		l := &c.Items[i]
		l.LineTotal = l.MenuItem.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		sub = sub.Add(l.LineTotal)
		n += l.Quantity
	}
	c.Subtotal = sub
	c.ItemCount = n
}

func (c Cart) Quantity(menuItemID string) int {
	for _, l := range c.Items {
		if l.MenuItemID == menuItemID {
			return l.Quantity
		}
	}
	return 0
}
