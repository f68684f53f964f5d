package orders

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-restaurant-orders/internal/apperr"
)

// snapshot copies cart lines into order items at their current price and
// returns the order total. All lines must belong to restaurantID.
func snapshot(restaurantID string, lines []CartLine) ([]Item, decimal.Decimal, error) {
	if len(lines) == 0 {
		return nil, decimal.Zero, apperr.Validation("cart is empty", nil)
	}
	items := make([]Item, 0, len(lines))
	total := decimal.Zero
	for i, l := range lines {
		if l.RestaurantID != restaurantID {
			return nil, decimal.Zero, apperr.Validation("cart contains items from another restaurant",
				map[string]string{"menuItemId": l.MenuItemID})
		}
		if !l.Available {
			return nil, decimal.Zero, apperr.Validation(fmt.Sprintf("%s is not available", l.Name),
				map[string]string{"menuItemId": l.MenuItemID})
		}
		mid := l.MenuItemID
		lineTotal := l.Price.Mul(decimalQty(l.Quantity))
		items = append(items, Item{
			MenuItemID: &mid,
			Position:   i + 1,
			Name:       l.Name,
			Quantity:   l.Quantity,
			Price:      l.Price,
			LineTotal:  lineTotal,
			Status:     ItemPending,
		})
		total = total.Add(lineTotal)
	}
	return items, total, nil
}

func decimalQty(q int) decimal.Decimal { return decimal.NewFromInt(int64(q)) }
