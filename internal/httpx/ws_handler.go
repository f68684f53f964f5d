package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-restaurant-orders/internal/apperr"
	"github.com/ariefcatur/go-restaurant-orders/internal/auth"
	"github.com/ariefcatur/go-restaurant-orders/internal/push"
)

type wsHandler struct {
	hub      Hub
	scoper   Scoper
	verifier *auth.Verifier
	log      *logrus.Entry
}

// serve upgrades a dashboard socket for one restaurant. Browsers cannot set
// headers on a websocket handshake, so the token may come as ?token=.
func (h *wsHandler) serve(w http.ResponseWriter, r *http.Request) {
	a, authed := auth.FromContext(r.Context())
	if !authed {
		if tok := r.URL.Query().Get("token"); tok != "" {
			if v, err := h.verifier.Verify(tok); err == nil {
				a, authed = v, true
			}
		}
	}
	if !authed {
		fail(w, r, h.log, apperr.Unauthorized("authentication required"))
		return
	}

	restaurantID := chi.URLParam(r, "id")
	ctx, cancel := readCtx(r)
	scope, err := h.scoper.Scope(ctx, a)
	cancel()
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	if !scope.Allows(restaurantID) {
		fail(w, r, h.log, apperr.NotFound("restaurant not found"))
		return
	}
	h.hub.Serve(w, r, push.RestaurantChannel(restaurantID))
}
