package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-restaurant-orders/internal/auth"
	"github.com/ariefcatur/go-restaurant-orders/internal/metrics"
)

const (
	readTimeout  = 3 * time.Second
	writeTimeout = 5 * time.Second
)

type Deps struct {
	Cart          CartService
	Menu          MenuService
	Orders        OrderService
	Notifications NotificationService
	Tables        TableService
	Scoper        Scoper
	Hub           Hub
	Verifier      *auth.Verifier
	Limiter       *RateLimiter
	PaymentSecret string
	Log           *logrus.Entry
}

func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, accessLog(d.Log))
	r.Use(metrics.InstrumentHandler, middleware.Recoverer)
	r.Use(d.Verifier.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	// long-lived sockets stay outside the request timeout
	ws := &wsHandler{hub: d.Hub, scoper: d.Scoper, verifier: d.Verifier, log: d.Log}
	r.Get("/ws/restaurants/{id}", ws.serve)

	r.Group(func(r chi.Router) {
		if d.Limiter != nil {
			r.Use(d.Limiter.Handler)
		}
		r.Use(middleware.Timeout(15 * time.Second))

		(&cartHandler{svc: d.Cart, log: d.Log}).register(r)
		(&menuHandler{svc: d.Menu, log: d.Log}).register(r)
		(&ordersHandler{svc: d.Orders, log: d.Log}).register(r)
		(&paymentsHandler{svc: d.Orders, secret: []byte(d.PaymentSecret), log: d.Log}).register(r)
		(&notificationsHandler{svc: d.Notifications, log: d.Log}).register(r)
		(&tablesHandler{svc: d.Tables, log: d.Log}).register(r)
	})
	return r
}

func actor(r *http.Request) auth.Actor {
	a, _ := auth.FromContext(r.Context())
	return a
}

func readCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), readTimeout)
}

func writeCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), writeTimeout)
}
