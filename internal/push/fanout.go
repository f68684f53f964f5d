package push

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	kafkax "github.com/ariefcatur/go-restaurant-orders/internal/kafka"
	"github.com/ariefcatur/go-restaurant-orders/internal/metrics"
	"github.com/ariefcatur/go-restaurant-orders/internal/redisx"
)

// Broker is the subset of the redis client the fan-out needs.
type Broker interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Fanout moves push events from Kafka onto Redis pub/sub, where every API
// instance's Hub picks them up. Each event id is delivered at most once
// per dedup window.
type Fanout struct {
	rdb   Broker
	group string
	log   *logrus.Entry
}

func NewFanout(rdb Broker, group string, log *logrus.Entry) *Fanout {
	return &Fanout{rdb: rdb, group: group, log: log.WithField("component", "fanout")}
}

// HandlePush is the consumer handler for Topic.
func (f *Fanout) HandlePush(ctx context.Context, m kafkago.Message) error {
	msg, err := kafkax.UnwrapPayload[Message](m.Value)
	if err != nil {
		// poison message: log and commit so the partition keeps moving
		f.log.WithError(err).WithField("offset", m.Offset).Error("undecodable push message")
		return nil
	}
	return f.Deliver(ctx, msg)
}

// orderEnvelope is the part of an order event the dashboards care about.
type orderEnvelope struct {
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	OccurredAt   time.Time       `json:"occurred_at"`
	Producer     string          `json:"producer"`
	RestaurantID string          `json:"restaurant_id"`
	Payload      json.RawMessage `json:"payload"`
}

// HandleOrderEvent relays order lifecycle events to the owning restaurant's
// channel so live and kitchen boards refresh.
func (f *Fanout) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.UnwrapPayload[orderEnvelope](m.Value)
	if err != nil || env.RestaurantID == "" {
		f.log.WithError(err).WithField("offset", m.Offset).Error("undecodable order event")
		return nil
	}
	body, err := json.Marshal(map[string]any{"type": env.EventType, "data": env.Payload})
	if err != nil {
		return err
	}
	return f.Deliver(ctx, Message{
		EventID:    env.EventID,
		Channel:    RestaurantChannel(env.RestaurantID),
		Event:      EventOrder,
		OccurredAt: env.OccurredAt,
		Producer:   env.Producer,
		Payload:    body,
	})
}

func (f *Fanout) Deliver(ctx context.Context, msg Message) error {
	if msg.EventID == "" || msg.Channel == "" {
		f.log.WithField("event", msg.Event).Warn("push message without id or channel dropped")
		return nil
	}
	key := fmt.Sprintf(redisx.KeyDedup, f.group, msg.EventID)
	fresh, err := f.rdb.SetNX(ctx, key, 1, redisx.TTLDedup).Result()
	if err != nil {
		return fmt.Errorf("dedup: %w", err)
	}
	if !fresh {
		f.log.WithField("event_id", msg.EventID).Debug("duplicate push event skipped")
		return nil
	}

	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := f.rdb.Publish(ctx, fmt.Sprintf(redisx.ChannelPush, msg.Channel), b).Err(); err != nil {
		// release the key so the consumer retry is not treated as a duplicate
		_ = f.rdb.Del(ctx, key).Err()
		metrics.PushFailed("fanout")
		return fmt.Errorf("publish %s: %w", msg.Channel, err)
	}
	return nil
}
