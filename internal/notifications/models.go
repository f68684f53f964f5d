package notifications

import (
	"encoding/json"
	"time"
)

const (
	TypeOrder   = "order"
	TypePayment = "payment"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type Notification struct {
	ID           string          `json:"id"`
	RestaurantID string          `json:"restaurantId"`
	OrderID      *string         `json:"orderId,omitempty"`
	Message      string          `json:"message"`
	Type         string          `json:"type"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	IsRead       bool            `json:"isRead"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type Input struct {
	RestaurantID string
	Message      string
	Type         string
	OrderID      *string
	Payload      json.RawMessage
}

type Query struct {
	RestaurantID string
	UnreadOnly   bool
	Limit        int
}

func (q Query) limit() int {
	switch {
	case q.Limit <= 0:
		return DefaultLimit
	case q.Limit > MaxLimit:
		return MaxLimit
	default:
		return q.Limit
	}
}
