package orders

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated           = "OrderCreated"
	EventOrderStatusChanged     = "OrderStatusChanged"
	EventOrderItemStatusChanged = "OrderItemStatusChanged"
	EventOrderPaid              = "OrderPaid"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	RestaurantID  string          `json:"restaurant_id"`
	Payload       json.RawMessage `json:"payload"`
}

type OrderCreatedPayload struct {
	OrderID     string          `json:"order_id"`
	OrderNumber int             `json:"order_number"`
	TableID     *string         `json:"table_id,omitempty"`
	ItemCount   int             `json:"item_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type OrderStatusChangedPayload struct {
	OrderID     string `json:"order_id"`
	OrderNumber int    `json:"order_number"`
	From        Status `json:"from"`
	To          Status `json:"to"`
}

type OrderItemStatusChangedPayload struct {
	OrderID string     `json:"order_id"`
	ItemID  string     `json:"item_id"`
	Status  ItemStatus `json:"status"`
}

type OrderPaidPayload struct {
	OrderID     string          `json:"order_id"`
	OrderNumber int             `json:"order_number"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}
