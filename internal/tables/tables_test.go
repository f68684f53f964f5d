package tables

import (
	"context"
	"encoding/base64"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-restaurant-orders/internal/apperr"
	"github.com/ariefcatur/go-restaurant-orders/internal/auth"
)

type fakeRepo struct {
	mu   sync.Mutex
	rows []Table
}

func (f *fakeRepo) Insert(_ context.Context, t Table) (Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.rows {
		if x.RestaurantID == t.RestaurantID && x.Number == t.Number {
			return Table{}, apperr.Conflict("table already exists")
		}
	}
	f.rows = append(f.rows, t)
	return t, nil
}

func (f *fakeRepo) List(_ context.Context, rid string) ([]Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []Table{}
	for _, x := range f.rows {
		if x.RestaurantID == rid {
			out = append(out, x)
		}
	}
	return out, nil
}

type fakeScoper map[string]string

func (f fakeScoper) Scope(_ context.Context, a auth.Actor) (auth.Scope, error) {
	if a.UserID == "" {
		return auth.Scope{}, apperr.Unauthorized("authentication required")
	}
	if a.IsAdmin() {
		return auth.Scope{All: true}, nil
	}
	rid, ok := f[a.UserID]
	if !ok {
		return auth.Scope{}, apperr.NotFound("restaurant not found")
	}
	return auth.Scope{RestaurantID: rid}, nil
}

var ownerA = auth.Actor{UserID: "owner-a", Role: auth.RoleRestaurant}

func newService() *Service {
	return NewService(&fakeRepo{}, fakeScoper{"owner-a": "rest-a"}, "https://order.example.com")
}

func TestProvisionEmbedsOrderingURL(t *testing.T) {
	svc := newService()
	tb, err := svc.Provision(context.Background(), ownerA, "", 7, "")
	require.NoError(t, err)

	assert.Equal(t, "rest-a", tb.RestaurantID)
	assert.Equal(t, "Table 7", tb.Label)
	assert.Equal(t, "https://order.example.com/order/rest-a?table="+tb.ID, tb.QRURL)

	require.True(t, strings.HasPrefix(tb.QRCode, "data:image/png;base64,"))
	png, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(tb.QRCode, "data:image/png;base64,"))
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(png[:4]))
}

func TestProvisionRules(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, err := svc.Provision(ctx, ownerA, "", 1, "Patio")
	require.NoError(t, err)

	_, err = svc.Provision(ctx, ownerA, "", 1, "Again")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = svc.Provision(ctx, ownerA, "", 0, "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.Provision(ctx, ownerA, "rest-b", 2, "")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = svc.Provision(ctx, auth.Actor{}, "", 2, "")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	admin := auth.Actor{UserID: "root", Role: auth.RoleAdmin}
	_, err = svc.Provision(ctx, admin, "rest-b", 1, "")
	assert.NoError(t, err, "numbers are unique per restaurant only")

	list, err := svc.List(ctx, ownerA, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Patio", list[0].Label)
}
