// Package auth carries the actor supplied by the external session service.
// Tokens are issued elsewhere; this package only verifies and unpacks them.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ariefcatur/go-restaurant-orders/internal/apperr"
)

type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleRestaurant Role = "RESTAURANT"
	RoleCustomer   Role = "CUSTOMER"
)

type Actor struct {
	UserID string
	Role   Role
	Email  string
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

type ctxKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	return a, ok && a.UserID != ""
}

// Require returns the request actor or an Unauthorized error.
func Require(ctx context.Context) (Actor, error) {
	a, ok := FromContext(ctx)
	if !ok {
		return Actor{}, apperr.Unauthorized("authentication required")
	}
	return a, nil
}

type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) Verify(token string) (Actor, error) {
	var c Claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return Actor{}, err
	}
	if c.Subject == "" {
		return Actor{}, errors.New("token has no subject")
	}
	return Actor{
		UserID: c.Subject,
		Role:   Role(strings.ToUpper(c.Role)),
		Email:  c.Email,
	}, nil
}

// Sign is used by tests and local tooling to mint tokens the verifier accepts.
func (v *Verifier) Sign(a Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	c := Claims{
		Role:  string(a.Role),
		Email: a.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(v.secret)
}

// Middleware attaches the actor when a valid bearer token is present.
// Anonymous and invalid requests pass through without an actor; each
// operation decides whether that is an error.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		if token == "" || token == h {
			next.ServeHTTP(w, r)
			return
		}
		a, err := v.Verify(token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), a)))
	})
}

// Scope is the set of restaurants an actor may read and mutate.
type Scope struct {
	All          bool
	RestaurantID string
}

// Allows reports whether restaurantID is inside the scope.
func (s Scope) Allows(restaurantID string) bool {
	return s.All || (restaurantID != "" && s.RestaurantID == restaurantID)
}

// Resolve picks the restaurant an operation targets. Scoped actors always act
// on their own restaurant; naming another one is reported as NotFound so
// foreign ids are not confirmed to exist. Unrestricted actors must name one.
func (s Scope) Resolve(requested string) (string, error) {
	if s.All {
		if requested == "" {
			return "", apperr.Validation("restaurantId is required", map[string]string{"restaurantId": "required"})
		}
		return requested, nil
	}
	if requested != "" && requested != s.RestaurantID {
		return "", apperr.NotFound("restaurant not found")
	}
	return s.RestaurantID, nil
}
