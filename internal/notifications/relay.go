package notifications

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-restaurant-orders/internal/apperr"
	"github.com/ariefcatur/go-restaurant-orders/internal/auth"
	"github.com/ariefcatur/go-restaurant-orders/internal/metrics"
	"github.com/ariefcatur/go-restaurant-orders/internal/push"
)

// Relay stores notifications and nudges connected dashboards. The row is
// always written before the push is attempted; a failed push leaves the row
// for the next poll.
type Relay struct {
	repo   Repo
	scoper Scoper
	pusher Pusher
	log    *logrus.Entry
}

func NewRelay(repo Repo, scoper Scoper, pusher Pusher, log *logrus.Entry) *Relay {
	return &Relay{repo: repo, scoper: scoper, pusher: pusher, log: log.WithField("component", "notifications")}
}

func (r *Relay) Publish(ctx context.Context, a auth.Actor, in Input) (Notification, error) {
	if a.UserID == "" {
		return Notification{}, apperr.Unauthorized("authentication required")
	}
	in.RestaurantID = strings.TrimSpace(in.RestaurantID)
	in.Message = strings.TrimSpace(in.Message)
	in.Type = strings.TrimSpace(in.Type)
	if fields := missing(in); len(fields) > 0 {
		return Notification{}, apperr.Validation("missing fields", fields)
	}
	sc, err := r.scoper.Scope(ctx, a)
	if err != nil {
		return Notification{}, err
	}
	if !sc.Allows(in.RestaurantID) {
		return Notification{}, apperr.NotFound("restaurant not found")
	}
	return r.Notify(ctx, in)
}

// Notify is the internal entry used by other services; the caller has
// already authorised the write.
func (r *Relay) Notify(ctx context.Context, in Input) (Notification, error) {
	if fields := missing(in); len(fields) > 0 {
		return Notification{}, apperr.Validation("missing fields", fields)
	}
	n, err := r.repo.Insert(ctx, in)
	if err != nil {
		return Notification{}, err
	}
	metrics.NotificationPublished(n.Type)

	if err := r.pusher.Trigger(ctx, push.RestaurantChannel(n.RestaurantID), push.EventNotification, n); err != nil {
		metrics.PushFailed("notification")
		r.log.WithError(err).WithFields(logrus.Fields{
			"notification_id": n.ID,
			"restaurant_id":   n.RestaurantID,
		}).Warn("push trigger failed")
	}
	return n, nil
}

// List never fails for anonymous callers or a missing restaurant; it
// returns an empty list so dashboards degrade to showing nothing.
func (r *Relay) List(ctx context.Context, a auth.Actor, q Query) ([]Notification, error) {
	if !r.readable(ctx, a, q.RestaurantID) {
		return []Notification{}, nil
	}
	list, err := r.repo.List(ctx, q.RestaurantID, q.UnreadOnly, q.limit())
	if apperr.KindOf(err) == apperr.KindNotFound {
		return []Notification{}, nil
	}
	return list, err
}

// UnreadCount follows the same lenient rules as List.
func (r *Relay) UnreadCount(ctx context.Context, a auth.Actor, restaurantID string) (int, error) {
	if !r.readable(ctx, a, restaurantID) {
		return 0, nil
	}
	n, err := r.repo.UnreadCount(ctx, restaurantID)
	if apperr.KindOf(err) == apperr.KindNotFound {
		return 0, nil
	}
	return n, err
}

func (r *Relay) MarkRead(ctx context.Context, a auth.Actor, id string) (Notification, error) {
	sc, err := r.scoper.Scope(ctx, a)
	if err != nil {
		return Notification{}, err
	}
	n, err := r.repo.Get(ctx, id)
	if err != nil {
		return Notification{}, err
	}
	if !sc.Allows(n.RestaurantID) {
		return Notification{}, apperr.NotFound("notification not found")
	}
	if err := r.repo.MarkRead(ctx, id); err != nil {
		return Notification{}, err
	}
	n.IsRead = true
	return n, nil
}

func (r *Relay) MarkAllRead(ctx context.Context, a auth.Actor, restaurantID string) (int64, error) {
	sc, err := r.scoper.Scope(ctx, a)
	if err != nil {
		return 0, err
	}
	rid, err := sc.Resolve(restaurantID)
	if err != nil {
		return 0, err
	}
	return r.repo.MarkAllRead(ctx, rid)
}

func (r *Relay) readable(ctx context.Context, a auth.Actor, restaurantID string) bool {
	if a.UserID == "" || restaurantID == "" {
		return false
	}
	sc, err := r.scoper.Scope(ctx, a)
	if err != nil {
		return false
	}
	return sc.Allows(restaurantID)
}

func missing(in Input) map[string]string {
	fields := map[string]string{}
	if in.RestaurantID == "" {
		fields["restaurantId"] = "required"
	}
	if in.Message == "" {
		fields["message"] = "required"
	}
	if in.Type == "" {
		fields["type"] = "required"
	}
	return fields
}
