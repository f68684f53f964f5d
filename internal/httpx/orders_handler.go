package httpx

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-restaurant-orders/internal/apperr"
	"github.com/ariefcatur/go-restaurant-orders/internal/orders"
)

type ordersHandler struct {
	svc OrderService
	log *logrus.Entry
}

func (h *ordersHandler) register(r chi.Router) {
	r.Post("/orders", h.create)
	r.Get("/orders", h.list)
	r.Get("/orders/{id}", h.get)
	r.Get("/orders/{id}/status", h.publicStatus)
	r.Put("/orders/{id}", h.setStatus)
	r.Put("/order-items/{id}", h.setItemStatus)
}

type createOrderReq struct {
	RestaurantID string  `json:"restaurantId" validate:"required"`
	TableID      *string `json:"tableId"`
	Phone        string  `json:"phone" validate:"required,max=32"`
}

type statusReq struct {
	Status string `json:"status" validate:"required"`
}

func (h *ordersHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := decode(r, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}
	ctx, cancel := writeCtx(r)
	defer cancel()

	o, err := h.svc.Create(ctx, actor(r), orders.CreateInput{
		RestaurantID: req.RestaurantID,
		TableID:      req.TableID,
		Phone:        req.Phone,
	})
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusCreated, o)
}

func (h *ordersHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := orders.Filter{RestaurantID: q.Get("restaurantId")}

	var valid bool
	if f.Bucket, valid = orders.ParseBucket(q.Get("bucket")); !valid {
		fail(w, r, h.log, apperr.Validation("invalid bucket", map[string]string{"bucket": "must be one of all live kitchen history"}))
		return
	}
	if s := q.Get("status"); s != "" {
		if f.Status, valid = orders.ParseStatus(s); !valid {
			fail(w, r, h.log, invalidStatus())
			return
		}
	}
	if s := q.Get("limit"); s != "" {
		n, convErr := strconv.Atoi(s)
		if convErr != nil {
			fail(w, r, h.log, apperr.Validation("invalid limit", map[string]string{"limit": "must be a number"}))
			return
		}
		f.Limit = n
	}

	ctx, cancel := readCtx(r)
	defer cancel()

	list, err := h.svc.List(ctx, actor(r), f)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusOK, list)
}

func (h *ordersHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := readCtx(r)
	defer cancel()

	o, err := h.svc.Get(ctx, actor(r), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusOK, o)
}

// publicStatus is polled by diners holding only the order id.
func (h *ordersHandler) publicStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := readCtx(r)
	defer cancel()

	v, err := h.svc.PublicStatus(ctx, chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusOK, v)
}

func (h *ordersHandler) setStatus(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if err := decode(r, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}
	to, valid := orders.ParseStatus(req.Status)
	if !valid {
		fail(w, r, h.log, invalidStatus())
		return
	}
	ctx, cancel := writeCtx(r)
	defer cancel()

	o, err := h.svc.SetStatus(ctx, actor(r), chi.URLParam(r, "id"), to)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusOK, o)
}

func (h *ordersHandler) setItemStatus(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if err := decode(r, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}
	to, valid := orders.ParseItemStatus(req.Status)
	if !valid {
		fail(w, r, h.log, invalidStatus())
		return
	}
	ctx, cancel := writeCtx(r)
	defer cancel()

	it, err := h.svc.SetItemStatus(ctx, actor(r), chi.URLParam(r, "id"), to)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusOK, it)
}

func invalidStatus() error {
	return apperr.Validation("invalid status", map[string]string{"status": "unknown value"})
}
