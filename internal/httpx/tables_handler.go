package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type tablesHandler struct {
	svc TableService
	log *logrus.Entry
}

func (h *tablesHandler) register(r chi.Router) {
	r.Post("/tables", h.provision)
	r.Get("/tables", h.list)
}

type provisionReq struct {
	RestaurantID string `json:"restaurantId"`
	Number       int    `json:"number" validate:"gt=0"`
	Label        string `json:"label" validate:"max=100"`
}

func (h *tablesHandler) provision(w http.ResponseWriter, r *http.Request) {
	var req provisionReq
	if err := decode(r, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}
	ctx, cancel := writeCtx(r)
	defer cancel()

	t, err := h.svc.Provision(ctx, actor(r), req.RestaurantID, req.Number, req.Label)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusCreated, t)
}

func (h *tablesHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := readCtx(r)
	defer cancel()

	list, err := h.svc.List(ctx, actor(r), r.URL.Query().Get("restaurantId"))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusOK, list)
}
