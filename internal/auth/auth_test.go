package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-restaurant-orders/internal/apperr"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	v := NewVerifier("s3cret")
	tok, err := v.Sign(Actor{UserID: "u-1", Role: "restaurant", Email: "a@b.c"}, time.Minute)
	require.NoError(t, err)

	a, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, Actor{UserID: "u-1", Role: RoleRestaurant, Email: "a@b.c"}, a)
}

func TestVerifyRejectsForeignSecretAndExpired(t *testing.T) {
	good := NewVerifier("s3cret")
	other := NewVerifier("other")

	tok, err := other.Sign(Actor{UserID: "u-1"}, time.Minute)
	require.NoError(t, err)
	_, err = good.Verify(tok)
	assert.Error(t, err)

	expired, err := good.Sign(Actor{UserID: "u-1"}, -time.Minute)
	require.NoError(t, err)
	_, err = good.Verify(expired)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	v := NewVerifier("s3cret")
	var got Actor
	var ok bool
	h := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = FromContext(r.Context())
	}))

	t.Run("valid bearer sets actor", func(t *testing.T) {
		tok, _ := v.Sign(Actor{UserID: "u-9", Role: RoleAdmin}, time.Minute)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.True(t, ok)
		assert.Equal(t, "u-9", got.UserID)
		assert.True(t, got.IsAdmin())
	})

	t.Run("garbage token is anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer nope")
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.False(t, ok)
	})

	t.Run("no header is anonymous", func(t *testing.T) {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.False(t, ok)
	})
}

func TestRequire(t *testing.T) {
	_, err := Require(context.Background())
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	a, err := Require(WithActor(context.Background(), Actor{UserID: "u"}))
	require.NoError(t, err)
	assert.Equal(t, "u", a.UserID)
}

func TestScopeAllows(t *testing.T) {
	assert.True(t, Scope{All: true}.Allows("r-1"))
	assert.True(t, Scope{RestaurantID: "r-1"}.Allows("r-1"))
	assert.False(t, Scope{RestaurantID: "r-1"}.Allows("r-2"))
	assert.False(t, Scope{}.Allows(""))
}

func TestScopeResolve(t *testing.T) {
	id, err := Scope{RestaurantID: "r-1"}.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "r-1", id)

	_, err = Scope{RestaurantID: "r-1"}.Resolve("r-2")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = Scope{All: true}.Resolve("")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	id, err = Scope{All: true}.Resolve("r-9")
	require.NoError(t, err)
	assert.Equal(t, "r-9", id)
}
