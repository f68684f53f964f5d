package httpx

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-restaurant-orders/internal/apperr"
	"github.com/ariefcatur/go-restaurant-orders/internal/auth"
	"github.com/ariefcatur/go-restaurant-orders/internal/cart"
	"github.com/ariefcatur/go-restaurant-orders/internal/logger"
	"github.com/ariefcatur/go-restaurant-orders/internal/orders"
)

const testSecret = "jwt-secret"

type fakeCart struct {
	CartService
	added []string
}

func (f *fakeCart) Get(_ context.Context, a auth.Actor) (cart.Cart, error) {
	if a.UserID == "" {
		return cart.Cart{}, apperr.Unauthorized("authentication required")
	}
	return cart.Empty(a.UserID), nil
}

func (f *fakeCart) AddItem(_ context.Context, a auth.Actor, id string) (cart.Cart, error) {
	f.added = append(f.added, id)
	return cart.Empty(a.UserID), nil
}

type fakeOrders struct {
	OrderService
	filter orders.Filter
	paid   []string
	err    error
}

func (f *fakeOrders) List(_ context.Context, _ auth.Actor, fl orders.Filter) ([]orders.Order, error) {
	f.filter = fl
	return []orders.Order{}, f.err
}

func (f *fakeOrders) Get(context.Context, auth.Actor, string) (orders.Order, error) {
	return orders.Order{}, f.err
}

func (f *fakeOrders) MarkPaid(_ context.Context, id string) (orders.Order, error) {
	f.paid = append(f.paid, id)
	return orders.Order{ID: id, Status: orders.StatusPending, Paid: true}, nil
}

type fakeNotifications struct {
	NotificationService
	count int
}

func (f *fakeNotifications) UnreadCount(context.Context, auth.Actor, string) (int, error) {
	return f.count, nil
}

type fakeScoper struct{ scope auth.Scope }

func (f fakeScoper) Scope(context.Context, auth.Actor) (auth.Scope, error) { return f.scope, nil }

type fakeHub struct{ channels []string }

func (f *fakeHub) Serve(w http.ResponseWriter, _ *http.Request, channel string) {
	f.channels = append(f.channels, channel)
	w.WriteHeader(http.StatusSwitchingProtocols)
}

type harness struct {
	router http.Handler
	cart   *fakeCart
	orders *fakeOrders
	notifs *fakeNotifications
	hub    *fakeHub
	v      *auth.Verifier
}

func newHarness(t *testing.T, mod func(*Deps)) *harness {
	t.Helper()
	h := &harness{
		cart:   &fakeCart{},
		orders: &fakeOrders{},
		notifs: &fakeNotifications{},
		hub:    &fakeHub{},
		v:      auth.NewVerifier(testSecret),
	}
	d := Deps{
		Cart:          h.cart,
		Orders:        h.orders,
		Notifications: h.notifs,
		Scoper:        fakeScoper{scope: auth.Scope{RestaurantID: "r-1"}},
		Hub:           h.hub,
		Verifier:      h.v,
		PaymentSecret: "pay-secret",
		Log:           logger.Discard(),
	}
	if mod != nil {
		mod(&d)
	}
	h.router = NewRouter(d)
	return h
}

func (h *harness) token(t *testing.T, a auth.Actor) string {
	t.Helper()
	tok, err := h.v.Sign(a, time.Minute)
	require.NoError(t, err)
	return tok
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *errorBody      `json:"error"`
}

func readEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestHealthz(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestCartRequiresActor(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(httptest.NewRequest(http.MethodGet, "/cart", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	env := readEnvelope(t, rec)
	assert.False(t, env.OK)
	assert.Equal(t, apperr.KindUnauthorized, env.Error.Code)

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Authorization", "Bearer "+h.token(t, auth.Actor{UserID: "u-1", Role: auth.RoleCustomer}))
	rec = h.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, readEnvelope(t, rec).OK)
}

func TestCartAddValidatesBody(t *testing.T) {
	h := newHarness(t, nil)
	tok := h.token(t, auth.Actor{UserID: "u-1"})

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/cart", bytes.NewBufferString(body))
		req.Header.Set("Authorization", "Bearer "+tok)
		return h.do(req)
	}

	rec := post(`{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := readEnvelope(t, rec)
	assert.Equal(t, "missing fields", env.Error.Message)
	assert.Equal(t, map[string]string{"menuItemId": "required"}, env.Error.Fields)

	rec = post(`{"menuItemId":"m-1","extra":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(`{"menuItemId":"m-1"}{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(`{"menuItemId":"m-1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"m-1"}, h.cart.added)
}

func TestOrdersListParsesQuery(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(httptest.NewRequest(http.MethodGet, "/orders?bucket=kitchen&status=confirmed&limit=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, orders.BucketKitchen, h.orders.filter.Bucket)
	assert.Equal(t, orders.StatusConfirmed, h.orders.filter.Status)
	assert.Equal(t, 10, h.orders.filter.Limit)

	for _, q := range []string{"bucket=nope", "status=eaten", "limit=ten"} {
		rec := h.do(httptest.NewRequest(http.MethodGet, "/orders?"+q, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestInternalErrorsAreMasked(t *testing.T) {
	h := newHarness(t, nil)
	h.orders.err = apperr.Internal("load order", assert.AnError)

	rec := h.do(httptest.NewRequest(http.MethodGet, "/orders/o-1", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	env := readEnvelope(t, rec)
	assert.Equal(t, apperr.KindInternal, env.Error.Code)
	assert.Equal(t, "internal error", env.Error.Message)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestPaymentCallback(t *testing.T) {
	body := []byte(`{"orderId":"o-1","status":"paid"}`)

	callback := func(h *harness, b []byte, sig string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/payments/callback", bytes.NewReader(b))
		if sig != "" {
			req.Header.Set(signatureHeader, sig)
		}
		return h.do(req)
	}

	t.Run("valid signature marks paid", func(t *testing.T) {
		h := newHarness(t, nil)
		rec := callback(h, body, sign("pay-secret", body))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"o-1"}, h.orders.paid)
	})

	t.Run("bad or missing signature", func(t *testing.T) {
		h := newHarness(t, nil)
		assert.Equal(t, http.StatusUnauthorized, callback(h, body, sign("other", body)).Code)
		assert.Equal(t, http.StatusUnauthorized, callback(h, body, "").Code)
		assert.Equal(t, http.StatusUnauthorized, callback(h, body, "zz").Code)
		assert.Empty(t, h.orders.paid)
	})

	t.Run("unset secret rejects everything", func(t *testing.T) {
		h := newHarness(t, func(d *Deps) { d.PaymentSecret = "" })
		assert.Equal(t, http.StatusUnauthorized, callback(h, body, sign("", body)).Code)
	})

	t.Run("non paid status is acknowledged", func(t *testing.T) {
		h := newHarness(t, nil)
		b := []byte(`{"orderId":"o-1","status":"expired"}`)
		rec := callback(h, b, sign("pay-secret", b))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, h.orders.paid)
	})
}

func TestUnreadCount(t *testing.T) {
	h := newHarness(t, nil)
	h.notifs.count = 3

	rec := h.do(httptest.NewRequest(http.MethodGet, "/notifications/unread-count", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":3}`, string(readEnvelope(t, rec).Data))
}

func TestWebsocketScope(t *testing.T) {
	h := newHarness(t, nil)
	tok := h.token(t, auth.Actor{UserID: "owner", Role: auth.RoleRestaurant})

	rec := h.do(httptest.NewRequest(http.MethodGet, "/ws/restaurants/r-1", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(httptest.NewRequest(http.MethodGet, "/ws/restaurants/r-2?token="+tok, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(httptest.NewRequest(http.MethodGet, "/ws/restaurants/r-1?token="+tok, nil))
	assert.Equal(t, http.StatusSwitchingProtocols, rec.Code)
	assert.Equal(t, []string{"restaurant-r-1"}, h.hub.channels)
}

func TestRateLimiter(t *testing.T) {
	h := newHarness(t, func(d *Deps) { d.Limiter = NewRateLimiter(1, 1, logger.Discard()) })

	first := h.do(httptest.NewRequest(http.MethodGet, "/notifications/unread-count", nil))
	second := h.do(httptest.NewRequest(http.MethodGet, "/notifications/unread-count", nil))
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))

	// health checks sit outside the limited group
	assert.Equal(t, http.StatusOK, h.do(httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
}

func TestRateLimiterKeysAnonymousByHost(t *testing.T) {
	h := newHarness(t, func(d *Deps) { d.Limiter = NewRateLimiter(1, 1, logger.Discard()) })

	from := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/notifications/unread-count", nil)
		req.RemoteAddr = addr
		return h.do(req).Code
	}
	var codes []int
	for _, addr := range []string{"10.0.0.7:1111", "10.0.0.7:1111", "10.0.0.7:2222", "10.0.0.7:3333"} {
		codes = append(codes, from(addr))
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)

	assert.Equal(t, http.StatusOK, from("10.0.0.8:1111"), "other hosts keep their own bucket")
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:1234"
	assert.Equal(t, "10.0.0.7", clientKey(req))

	req.RemoteAddr = "10.0.0.7"
	assert.Equal(t, "10.0.0.7", clientKey(req))

	req = req.WithContext(auth.WithActor(req.Context(), auth.Actor{UserID: "u-1"}))
	assert.Equal(t, "user:u-1", clientKey(req))
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1, logger.Discard())
	rl.limiter("a")
	rl.Cleanup(time.Hour)
	assert.Len(t, rl.limiters, 1)
	rl.Cleanup(-time.Second)
	assert.Empty(t, rl.limiters)
}
