package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-restaurant-orders/internal/notifications"
)

type notificationsHandler struct {
	svc NotificationService
	log *logrus.Entry
}

func (h *notificationsHandler) register(r chi.Router) {
	r.Get("/notifications", h.list)
	r.Post("/notifications", h.publish)
	r.Get("/notifications/unread-count", h.unreadCount)
	r.Put("/notifications/read-all", h.markAllRead)
	r.Put("/notifications/{id}/read", h.markRead)
}

// Missing fields are reported by the relay so the response names them all.
type publishReq struct {
	RestaurantID string          `json:"restaurantId"`
	Message      string          `json:"message" validate:"max=500"`
	Type         string          `json:"type" validate:"max=50"`
	OrderID      *string         `json:"orderId"`
	Payload      json.RawMessage `json:"payload"`
}

type restaurantReq struct {
	RestaurantID string `json:"restaurantId"`
}

func (h *notificationsHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	unread, _ := strconv.ParseBool(q.Get("unreadOnly"))

	ctx, cancel := readCtx(r)
	defer cancel()

	list, err := h.svc.List(ctx, actor(r), notifications.Query{
		RestaurantID: q.Get("restaurantId"),
		UnreadOnly:   unread,
		Limit:        limit,
	})
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusOK, list)
}

func (h *notificationsHandler) publish(w http.ResponseWriter, r *http.Request) {
	var req publishReq
	if err := decode(r, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}
	ctx, cancel := writeCtx(r)
	defer cancel()

	n, err := h.svc.Publish(ctx, actor(r), notifications.Input{
		RestaurantID: req.RestaurantID,
		Message:      req.Message,
		Type:         req.Type,
		OrderID:      req.OrderID,
		Payload:      req.Payload,
	})
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusCreated, n)
}

func (h *notificationsHandler) unreadCount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := readCtx(r)
	defer cancel()

	n, err := h.svc.UnreadCount(ctx, actor(r), r.URL.Query().Get("restaurantId"))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusOK, map[string]int{"count": n})
}

func (h *notificationsHandler) markRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := writeCtx(r)
	defer cancel()

	n, err := h.svc.MarkRead(ctx, actor(r), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusOK, n)
}

func (h *notificationsHandler) markAllRead(w http.ResponseWriter, r *http.Request) {
	restaurantID := r.URL.Query().Get("restaurantId")
	if r.ContentLength > 0 {
		var req restaurantReq
		if err := decode(r, &req); err != nil {
			fail(w, r, h.log, err)
			return
		}
		restaurantID = req.RestaurantID
	}
	ctx, cancel := writeCtx(r)
	defer cancel()

	n, err := h.svc.MarkAllRead(ctx, actor(r), restaurantID)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusOK, map[string]int64{"updated": n})
}
