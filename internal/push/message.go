package push

import (
	"encoding/json"
	"time"
)

// Topic carries push events from the API to the fan-out worker.
const Topic = "dashboard.push"

const (
	EventNotification = "notification"
	EventOrder        = "order"
)

// Message is the wire shape on Kafka, on Redis pub/sub and on the socket.
type Message struct {
	EventID    string          `json:"event_id"`
	Channel    string          `json:"channel"`
	Event      string          `json:"event"`
	OccurredAt time.Time       `json:"occurred_at"`
	Producer   string          `json:"producer"`
	Payload    json.RawMessage `json:"payload"`
}

// RestaurantChannel names the channel a restaurant dashboard listens on.
func RestaurantChannel(restaurantID string) string { return "restaurant-" + restaurantID }
