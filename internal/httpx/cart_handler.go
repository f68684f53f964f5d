package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type cartHandler struct {
	svc CartService
	log *logrus.Entry
}

func (h *cartHandler) register(r chi.Router) {
	r.Get("/cart", h.get)
	r.Post("/cart", h.add)
	r.Delete("/cart", h.remove)
	r.Post("/cart/clear", h.clear)
}

type cartItemReq struct {
	MenuItemID string `json:"menuItemId" validate:"required"`
	RemoveAll  bool   `json:"removeAll"`
}

func (h *cartHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := readCtx(r)
	defer cancel()

	c, err := h.svc.Get(ctx, actor(r))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusOK, c)
}

func (h *cartHandler) add(w http.ResponseWriter, r *http.Request) {
	var req cartItemReq
	if err := decode(r, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}
	ctx, cancel := writeCtx(r)
	defer cancel()

	c, err := h.svc.AddItem(ctx, actor(r), req.MenuItemID)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusOK, c)
}

func (h *cartHandler) remove(w http.ResponseWriter, r *http.Request) {
	var req cartItemReq
	if err := decode(r, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}
	ctx, cancel := writeCtx(r)
	defer cancel()

	c, err := h.svc.RemoveItem(ctx, actor(r), req.MenuItemID, req.RemoveAll)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusOK, c)
}

func (h *cartHandler) clear(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := writeCtx(r)
	defer cancel()

	c, err := h.svc.Clear(ctx, actor(r))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusOK, c)
}
