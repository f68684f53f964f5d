package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-restaurant-orders/internal/apperr"
	"github.com/ariefcatur/go-restaurant-orders/internal/auth"
	kafkax "github.com/ariefcatur/go-restaurant-orders/internal/kafka"
	"github.com/ariefcatur/go-restaurant-orders/internal/metrics"
	"github.com/ariefcatur/go-restaurant-orders/internal/notifications"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

type Deps struct {
	Repo     Repo
	Scoper   Scoper
	Notifier Notifier
	Events   EventPublisher
	Status   StatusCache
	Policy   Policy
	Producer string
	Log      *logrus.Entry
}

type Service struct {
	repo     Repo
	scoper   Scoper
	notifier Notifier
	events   EventPublisher
	status   StatusCache
	policy   Policy
	producer string
	log      *logrus.Entry
}

func NewService(d Deps) *Service {
	if d.Policy == "" {
		d.Policy = PolicyStrict
	}
	return &Service{
		repo:     d.Repo,
		scoper:   d.Scoper,
		notifier: d.Notifier,
		events:   d.Events,
		status:   d.Status,
		policy:   d.Policy,
		producer: d.Producer,
		log:      d.Log.WithField("component", "orders"),
	}
}

func (s *Service) Policy() Policy { return s.policy }

// Create turns the actor's cart into a PENDING order for in.RestaurantID.
// Prices are copied from the menu at this moment. The cart is not cleared.
func (s *Service) Create(ctx context.Context, a auth.Actor, in CreateInput) (Order, error) {
	if a.UserID == "" {
		return Order{}, apperr.Unauthorized("authentication required")
	}
	in.RestaurantID = strings.TrimSpace(in.RestaurantID)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.RestaurantID == "" {
		return Order{}, apperr.Validation("missing fields", map[string]string{"restaurantId": "required"})
	}
	if in.TableID != nil && *in.TableID == "" {
		in.TableID = nil
	}

	o, err := s.repo.CreateFromCart(ctx, a.UserID, in, func(lines []CartLine) ([]Item, decimal.Decimal, error) {
		return snapshot(in.RestaurantID, lines)
	})
	if err != nil {
		return Order{}, err
	}
	metrics.OrderCreated()
	s.log.WithFields(logrus.Fields{
		"order_id":      o.ID,
		"restaurant_id": o.RestaurantID,
		"order_number":  o.OrderNumber,
		"total":         o.TotalAmount.String(),
	}).Info("order created")

	s.cacheStatus(ctx, o)
	s.emit(ctx, o, EventOrderCreated, OrderCreatedPayload{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		TableID:     o.TableID,
		ItemCount:   len(o.Items),
		TotalAmount: o.TotalAmount,
	})
	s.notify(ctx, o, notifications.TypeOrder, fmt.Sprintf("New order #%d", o.OrderNumber))
	return o, nil
}

// Get returns an order to staff of its restaurant, or to its diner when the
// actor has no restaurant scope. A scoped actor never sees another
// restaurant's order, even one they placed themselves. Anything else is
// NotFound.
func (s *Service) Get(ctx context.Context, a auth.Actor, id string) (Order, error) {
	if a.UserID == "" {
		return Order{}, apperr.Unauthorized("authentication required")
	}
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if a.Role == auth.RoleCustomer {
		return ownOrder(o, a)
	}
	sc, err := s.scoper.Scope(ctx, a)
	switch {
	case err == nil:
		if !sc.Allows(o.RestaurantID) {
			return Order{}, apperr.NotFound("order not found")
		}
		return o, nil
	case apperr.KindOf(err) == apperr.KindNotFound:
		return ownOrder(o, a)
	default:
		return Order{}, err
	}
}

func ownOrder(o Order, a auth.Actor) (Order, error) {
	if o.UserID != a.UserID {
		return Order{}, apperr.NotFound("order not found")
	}
	return o, nil
}

// List backs the live, kitchen and history boards.
func (s *Service) List(ctx context.Context, a auth.Actor, f Filter) ([]Order, error) {
	sc, err := s.scoper.Scope(ctx, a)
	if err != nil {
		return nil, err
	}
	if !sc.All {
		if f.RestaurantID != "" && f.RestaurantID != sc.RestaurantID {
			return nil, apperr.NotFound("restaurant not found")
		}
		f.RestaurantID = sc.RestaurantID
	}
	if f.Bucket == "" {
		f.Bucket = BucketAll
	}
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultListLimit
	case f.Limit > MaxListLimit:
		f.Limit = MaxListLimit
	}
	return s.repo.List(ctx, f)
}

// SetStatus applies the configured policy. Re-setting the current status is
// a successful no-op that emits nothing.
func (s *Service) SetStatus(ctx context.Context, a auth.Actor, id string, to Status) (Order, error) {
	if _, ok := validNext[to]; !ok {
		return Order{}, apperr.Validation("invalid status", map[string]string{"status": "unknown value"})
	}
	sc, err := s.scoper.Scope(ctx, a)
	if err != nil {
		return Order{}, err
	}
	o, from, err := s.repo.UpdateStatus(ctx, id, to, func(cur Order) error {
		if !sc.Allows(cur.RestaurantID) {
			return apperr.NotFound("order not found")
		}
		return s.policy.Check(cur.Status, to)
	})
	if err != nil {
		return Order{}, err
	}
	if from == to {
		return o, nil
	}
	if s.policy == PolicyPermissive && !CanTransition(from, to) {
		s.log.WithFields(logrus.Fields{"order_id": o.ID, "from": from, "to": to}).Warn("order status moved outside the transition table")
	}
	metrics.OrderStatusChanged(string(to))
	s.cacheStatus(ctx, o)
	s.emit(ctx, o, EventOrderStatusChanged, OrderStatusChangedPayload{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		From:        from,
		To:          to,
	})
	return o, nil
}

// SetItemStatus updates one kitchen line. The parent order status is not
// touched.
func (s *Service) SetItemStatus(ctx context.Context, a auth.Actor, itemID string, to ItemStatus) (Item, error) {
	if _, ok := ParseItemStatus(string(to)); !ok {
		return Item{}, apperr.Validation("invalid status", map[string]string{"status": "unknown value"})
	}
	sc, err := s.scoper.Scope(ctx, a)
	if err != nil {
		return Item{}, err
	}
	it, restaurantID, err := s.repo.UpdateItemStatus(ctx, itemID, to, func(restaurantID string) error {
		if !sc.Allows(restaurantID) {
			return apperr.NotFound("order item not found")
		}
		return nil
	})
	if err != nil {
		return Item{}, err
	}
	s.emit(ctx, Order{ID: it.OrderID, RestaurantID: restaurantID}, EventOrderItemStatusChanged, OrderItemStatusChangedPayload{
		OrderID: it.OrderID,
		ItemID:  it.ID,
		Status:  it.Status,
	})
	return it, nil
}

// MarkPaid is driven by the verified payment callback, not by an actor.
func (s *Service) MarkPaid(ctx context.Context, orderID string) (Order, error) {
	o, changed, err := s.repo.MarkPaid(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	s.cacheStatus(ctx, o)
	if !changed {
		return o, nil
	}
	s.emit(ctx, o, EventOrderPaid, OrderPaidPayload{OrderID: o.ID, OrderNumber: o.OrderNumber, TotalAmount: o.TotalAmount})
	s.notify(ctx, o, notifications.TypePayment, fmt.Sprintf("Order #%d paid", o.OrderNumber))
	return o, nil
}

// PublicStatus serves diner polling from the cache, falling back to the DB.
func (s *Service) PublicStatus(ctx context.Context, orderID string) (StatusView, error) {
	if v, ok, err := s.status.Get(ctx, orderID); err != nil {
		s.log.WithError(err).Warn("status cache read failed")
	} else if ok {
		return v, nil
	}
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return StatusView{}, err
	}
	s.cacheStatus(ctx, o)
	return o.StatusView(), nil
}

func (s *Service) cacheStatus(ctx context.Context, o Order) {
	if err := s.status.Set(ctx, o.ID, o.StatusView()); err != nil {
		s.log.WithError(err).WithField("order_id", o.ID).Warn("status cache write failed")
	}
}

// emit publishes an order event. Failures are logged; the order is already
// committed and dashboards still see it on their next poll.
func (s *Service) emit(ctx context.Context, o Order, eventType string, payload any) {
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.producer,
		TraceID:       middleware.GetReqID(ctx),
		CorrelationID: o.ID,
		RestaurantID:  o.RestaurantID,
		Payload:       kafkax.MustMarshal(payload),
	}
	err := s.events.Publish(ctx, PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
	if err != nil {
		metrics.PushFailed("order_event")
		s.log.WithError(err).WithFields(logrus.Fields{"order_id": o.ID, "event_type": eventType}).Warn("order event not published")
	}
}

func (s *Service) notify(ctx context.Context, o Order, kind, msg string) {
	payload, _ := json.Marshal(map[string]any{
		"orderNumber": o.OrderNumber,
		"status":      o.Status,
		"paid":        o.Paid,
		"totalAmount": o.TotalAmount,
	})
	orderID := o.ID
	_, err := s.notifier.Notify(ctx, notifications.Input{
		RestaurantID: o.RestaurantID,
		Message:      msg,
		Type:         kind,
		OrderID:      &orderID,
		Payload:      payload,
	})
	if err != nil {
		s.log.WithError(err).WithField("order_id", o.ID).Warn("order notification not stored")
	}
}
