package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID           string          `json:"id"`
	RestaurantID string          `json:"restaurantId"`
	TableID      *string         `json:"tableId,omitempty"`
	UserID       string          `json:"userId"`
	OrderNumber  int             `json:"orderNumber"`
	Phone        string          `json:"phone"`
	Status       Status          `json:"status"`
	Paid         bool            `json:"paid"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	Items        []Item          `json:"items"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Item is a point-in-time copy of a purchased line. Name and Price are not
// linked to the live menu item.
type Item struct {
	ID         string          `json:"id"`
	OrderID    string          `json:"orderId"`
	MenuItemID *string         `json:"menuItemId,omitempty"`
	Position   int             `json:"position"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	LineTotal  decimal.Decimal `json:"lineTotal"`
	Status     ItemStatus      `json:"status"`
}

// CartLine is a cart row joined with the menu item as it is right now.
type CartLine struct {
	MenuItemID   string
	RestaurantID string
	Name         string
	Price        decimal.Decimal
	Available    bool
	Quantity     int
}

type CreateInput struct {
	RestaurantID string
	TableID      *string
	Phone        string
}

type Filter struct {
	RestaurantID string
	Bucket       Bucket
	Status       Status
	Limit        int
}

// StatusView is what diners poll after checkout.
type StatusView struct {
	Status Status `json:"status"`
	Paid   bool   `json:"paid"`
}

func (o Order) StatusView() StatusView { return StatusView{Status: o.Status, Paid: o.Paid} }
