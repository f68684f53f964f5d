package push

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

type Enqueuer interface {
	Publish(ctx context.Context, key, value []byte, headers ...kafkago.Header) error
}

// KafkaPublisher triggers push events by enqueueing them on Topic, keyed by
// channel so one dashboard sees its events in order.
type KafkaPublisher struct {
	q       Enqueuer
	service string
}

func NewKafkaPublisher(q Enqueuer, service string) *KafkaPublisher {
	return &KafkaPublisher{q: q, service: service}
}

func (p *KafkaPublisher) Trigger(ctx context.Context, channel, event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode push payload: %w", err)
	}
	msg := Message{
		EventID:    uuid.NewString(),
		Channel:    channel,
		Event:      event,
		OccurredAt: time.Now().UTC(),
		Producer:   p.service,
		Payload:    raw,
	}
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode push message: %w", err)
	}
	return p.q.Publish(ctx, []byte(channel), value,
		kafkago.Header{Key: "x-event-type", Value: []byte(event)},
	)
}
