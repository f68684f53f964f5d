package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-restaurant-orders/internal/menu"
)

type menuHandler struct {
	svc MenuService
	log *logrus.Entry
}

func (h *menuHandler) register(r chi.Router) {
	r.Get("/restaurants/{id}/menu", h.list)
	r.Post("/categories", h.createCategory)
	r.Post("/menu-items", h.createItem)
	r.Put("/menu-items/{id}", h.updateItem)
}

type categoryReq struct {
	RestaurantID string `json:"restaurantId"`
	Name         string `json:"name" validate:"required,max=100"`
}

type menuItemReq struct {
	RestaurantID string          `json:"restaurantId"`
	CategoryID   *string         `json:"categoryId"`
	Name         string          `json:"name" validate:"required,max=200"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	ImageURL     string          `json:"imageUrl"`
	Available    *bool           `json:"available"`
}

type menuItemPatchReq struct {
	CategoryID  *string          `json:"categoryId"`
	Name        *string          `json:"name" validate:"omitempty,max=200"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	ImageURL    *string          `json:"imageUrl"`
	Available   *bool            `json:"available"`
}

func (h *menuHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := readCtx(r)
	defer cancel()

	m, err := h.svc.List(ctx, chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusOK, m)
}

func (h *menuHandler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryReq
	if err := decode(r, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}
	ctx, cancel := writeCtx(r)
	defer cancel()

	c, err := h.svc.CreateCategory(ctx, actor(r), req.RestaurantID, req.Name)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusCreated, c)
}

func (h *menuHandler) createItem(w http.ResponseWriter, r *http.Request) {
	var req menuItemReq
	if err := decode(r, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}
	ctx, cancel := writeCtx(r)
	defer cancel()

	it, err := h.svc.CreateItem(ctx, actor(r), menu.ItemInput{
		RestaurantID: req.RestaurantID,
		CategoryID:   req.CategoryID,
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		ImageURL:     req.ImageURL,
		Available:    req.Available,
	})
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusCreated, it)
}

func (h *menuHandler) updateItem(w http.ResponseWriter, r *http.Request) {
	var req menuItemPatchReq
	if err := decode(r, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}
	ctx, cancel := writeCtx(r)
	defer cancel()

	it, err := h.svc.UpdateItem(ctx, actor(r), chi.URLParam(r, "id"), menu.ItemPatch{
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		ImageURL:    req.ImageURL,
		Available:   req.Available,
	})
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusOK, it)
}
