package orders

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-restaurant-orders/internal/apperr"
	"github.com/ariefcatur/go-restaurant-orders/internal/auth"
	"github.com/ariefcatur/go-restaurant-orders/internal/logger"
	"github.com/ariefcatur/go-restaurant-orders/internal/notifications"
)

type menuRow struct {
	restaurantID string
	name         string
	price        decimal.Decimal
	available    bool
}

type fakeRepo struct {
	mu     sync.Mutex
	menu   map[string]menuRow
	carts  map[string]map[string]int // user -> menu item -> qty
	orders map[string]Order
	seq    map[string]int
	n      int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		menu: map[string]menuRow{
			"soup":  {"rest-a", "Soup", decimal.RequireFromString("4.50"), true},
			"bread": {"rest-a", "Bread", decimal.RequireFromString("1.25"), true},
			"sushi": {"rest-b", "Sushi", decimal.RequireFromString("9.00"), true},
		},
		carts:  map[string]map[string]int{},
		orders: map[string]Order{},
		seq:    map[string]int{},
	}
}

func (f *fakeRepo) add(user, item string, qty int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.carts[user] == nil {
		f.carts[user] = map[string]int{}
	}
	f.carts[user][item] += qty
}

func (f *fakeRepo) CreateFromCart(_ context.Context, userID string, in CreateInput, build BuildFunc) (Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var lines []CartLine
	for _, id := range []string{"soup", "bread", "sushi"} {
		if q := f.carts[userID][id]; q > 0 {
			m := f.menu[id]
			lines = append(lines, CartLine{MenuItemID: id, RestaurantID: m.restaurantID, Name: m.name, Price: m.price, Available: m.available, Quantity: q})
		}
	}
	items, total, err := build(lines)
	if err != nil {
		return Order{}, err
	}
	f.n++
	f.seq[in.RestaurantID]++
	o := Order{
		ID:           fmt.Sprintf("order-%d", f.n),
		RestaurantID: in.RestaurantID,
		TableID:      in.TableID,
		UserID:       userID,
		OrderNumber:  f.seq[in.RestaurantID],
		Phone:        in.Phone,
		Status:       StatusPending,
		TotalAmount:  total,
	}
	for i := range items {
		items[i].ID = fmt.Sprintf("%s-item-%d", o.ID, i+1)
		items[i].OrderID = o.ID
	}
	o.Items = items
	f.orders[o.ID] = o
	return o, nil
}

func (f *fakeRepo) Get(_ context.Context, id string) (Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return Order{}, apperr.NotFound("order not found")
	}
	return o, nil
}

func (f *fakeRepo) List(_ context.Context, flt Filter) ([]Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	allowed := map[Status]bool{}
	for _, s := range flt.Bucket.Statuses() {
		allowed[s] = true
	}
	out := []Order{}
	for i := 1; i <= f.n; i++ {
		o, ok := f.orders[fmt.Sprintf("order-%d", i)]
		if !ok {
			continue
		}
		if flt.RestaurantID != "" && o.RestaurantID != flt.RestaurantID {
			continue
		}
		if flt.Status != "" && o.Status != flt.Status {
			continue
		}
		if len(allowed) > 0 && !allowed[o.Status] {
			continue
		}
		out = append(out, o)
	}
	if len(out) > flt.Limit {
		out = out[:flt.Limit]
	}
	return out, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id string, to Status, check func(Order) error) (Order, Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return Order{}, "", apperr.NotFound("order not found")
	}
	if err := check(o); err != nil {
		return Order{}, "", err
	}
	from := o.Status
	o.Status = to
	f.orders[id] = o
	return o, from, nil
}

func (f *fakeRepo) UpdateItemStatus(_ context.Context, itemID string, to ItemStatus, check func(string) error) (Item, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, o := range f.orders {
		for i, it := range o.Items {
			if it.ID != itemID {
				continue
			}
			if err := check(o.RestaurantID); err != nil {
				return Item{}, "", err
			}
			o.Items[i].Status = to
			f.orders[id] = o
			return o.Items[i], o.RestaurantID, nil
		}
	}
	return Item{}, "", apperr.NotFound("order item not found")
}

func (f *fakeRepo) MarkPaid(_ context.Context, id string) (Order, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return Order{}, false, apperr.NotFound("order not found")
	}
	changed := !o.Paid
	o.Paid = true
	f.orders[id] = o
	return o, changed, nil
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

type fakeNotifier struct {
	mu  sync.Mutex
	got []notifications.Input
	err error
}

func (f *fakeNotifier) Notify(_ context.Context, in notifications.Input) (notifications.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, in)
	return notifications.Notification{RestaurantID: in.RestaurantID, Type: in.Type}, f.err
}

type fakeEvents struct {
	mu    sync.Mutex
	types []string
	err   error
}

func (f *fakeEvents) Publish(_ context.Context, _, _ []byte, headers ...kafkago.Header) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range headers {
		if h.Key == "x-event-type" {
			f.types = append(f.types, string(h.Value))
		}
	}
	return f.err
}

type memStatus struct {
	mu sync.Mutex
	m  map[string]StatusView
}

func (c *memStatus) Get(_ context.Context, id string) (StatusView, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[id]
	return v, ok, nil
}

func (c *memStatus) Set(_ context.Context, id string, v StatusView) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[id] = v
	return nil
}

type harness struct {
	svc      *Service
	repo     *fakeRepo
	notifier *fakeNotifier
	events   *fakeEvents
	status   *memStatus
}

func newHarness(policy Policy) *harness {
	h := &harness{
		repo:     newFakeRepo(),
		notifier: &fakeNotifier{},
		events:   &fakeEvents{},
		status:   &memStatus{m: map[string]StatusView{}},
	}
	h.svc = NewService(Deps{
		Repo:     h.repo,
		Scoper:   fakeScoper{"owner-a": "rest-a", "owner-b": "rest-b"},
		Notifier: h.notifier,
		Events:   h.events,
		Status:   h.status,
		Policy:   policy,
		Producer: "order-api",
		Log:      logger.Discard(),
	})
	return h
}

var (
	diner  = auth.Actor{UserID: "diner-1", Role: auth.RoleCustomer}
	ownerA = auth.Actor{UserID: "owner-a", Role: auth.RoleRestaurant}
	ownerB = auth.Actor{UserID: "owner-b", Role: auth.RoleRestaurant}
	admin  = auth.Actor{UserID: "root", Role: auth.RoleAdmin}
)

func (h *harness) place(t *testing.T) Order {
	t.Helper()
	h.repo.add(diner.UserID, "soup", 2)
	h.repo.add(diner.UserID, "bread", 1)
	o, err := h.svc.Create(context.Background(), diner, CreateInput{RestaurantID: "rest-a", Phone: "555"})
	require.NoError(t, err)
	return o
}

func TestCreateSnapshotsCartIntoPendingOrder(t *testing.T) {
	h := newHarness(PolicyStrict)
	o := h.place(t)

	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, 1, o.OrderNumber)
	assert.Equal(t, "10.25", o.TotalAmount.StringFixed(2))
	require.Len(t, o.Items, 2)

	assert.Equal(t, []string{EventOrderCreated}, h.events.types)
	require.Len(t, h.notifier.got, 1)
	assert.Equal(t, "rest-a", h.notifier.got[0].RestaurantID)
	assert.Equal(t, notifications.TypeOrder, h.notifier.got[0].Type)
	assert.Equal(t, StatusView{Status: StatusPending}, h.status.m[o.ID])

	assert.Equal(t, 2, h.repo.carts[diner.UserID]["soup"], "cart is not cleared")
}

func TestLaterPriceChangesDoNotAlterOrders(t *testing.T) {
	h := newHarness(PolicyStrict)
	o := h.place(t)

	h.repo.mu.Lock()
	m := h.repo.menu["soup"]
	m.price = decimal.RequireFromString("99.00")
	h.repo.menu["soup"] = m
	h.repo.mu.Unlock()

	got, err := h.svc.Get(context.Background(), ownerA, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.25", got.TotalAmount.StringFixed(2))
	assert.Equal(t, "4.50", got.Items[0].Price.StringFixed(2))
}

func TestCreateFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("anonymous", func(t *testing.T) {
		_, err := newHarness(PolicyStrict).svc.Create(ctx, auth.Actor{}, CreateInput{RestaurantID: "rest-a"})
		assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	})

	t.Run("empty cart", func(t *testing.T) {
		_, err := newHarness(PolicyStrict).svc.Create(ctx, diner, CreateInput{RestaurantID: "rest-a"})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("mixed restaurants", func(t *testing.T) {
		h := newHarness(PolicyStrict)
		h.repo.add(diner.UserID, "soup", 1)
		h.repo.add(diner.UserID, "sushi", 1)
		_, err := h.svc.Create(ctx, diner, CreateInput{RestaurantID: "rest-a"})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		assert.Empty(t, h.events.types)
	})

	t.Run("side channel failures do not fail the order", func(t *testing.T) {
		h := newHarness(PolicyStrict)
		h.events.err = errors.New("kafka down")
		h.notifier.err = errors.New("db hiccup")
		h.repo.add(diner.UserID, "soup", 1)
		_, err := h.svc.Create(ctx, diner, CreateInput{RestaurantID: "rest-a"})
		assert.NoError(t, err)
	})
}

func TestOrderVisibility(t *testing.T) {
	h := newHarness(PolicyStrict)
	o := h.place(t)
	ctx := context.Background()

	_, err := h.svc.Get(ctx, ownerB, o.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err), "other restaurant gets NotFound")

	_, err = h.svc.Get(ctx, auth.Actor{UserID: "stranger"}, o.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = h.svc.Get(ctx, auth.Actor{}, o.ID)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	for _, a := range []auth.Actor{ownerA, admin, diner} {
		got, err := h.svc.Get(ctx, a, o.ID)
		require.NoError(t, err, a.UserID)
		assert.Equal(t, o.ID, got.ID)
	}

	list, err := h.svc.List(ctx, ownerB, Filter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	// an owner ordering at another restaurant as a diner still cannot read it
	h.repo.add(ownerB.UserID, "soup", 1)
	own, err := h.svc.Create(ctx, ownerB, CreateInput{RestaurantID: "rest-a", Phone: "555"})
	require.NoError(t, err)
	_, err = h.svc.Get(ctx, ownerB, own.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	got, err := h.svc.Get(ctx, ownerA, own.ID)
	require.NoError(t, err)
	assert.Equal(t, ownerB.UserID, got.UserID)

	// a user without a restaurant reads their own order
	stranger := auth.Actor{UserID: "walk-in"}
	h.repo.add(stranger.UserID, "bread", 1)
	mine, err := h.svc.Create(ctx, stranger, CreateInput{RestaurantID: "rest-a", Phone: "555"})
	require.NoError(t, err)
	_, err = h.svc.Get(ctx, stranger, mine.ID)
	require.NoError(t, err)

	_, err = h.svc.List(ctx, ownerB, Filter{RestaurantID: "rest-a"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	list, err = h.svc.List(ctx, admin, Filter{})
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestListBuckets(t *testing.T) {
	h := newHarness(PolicyStrict)
	ctx := context.Background()
	first := h.place(t)
	second := h.place(t)

	_, err := h.svc.SetStatus(ctx, ownerA, second.ID, StatusConfirmed)
	require.NoError(t, err)

	live, err := h.svc.List(ctx, ownerA, Filter{Bucket: BucketLive})
	require.NoError(t, err)
	assert.Len(t, live, 2)

	kitchen, err := h.svc.List(ctx, ownerA, Filter{Bucket: BucketKitchen})
	require.NoError(t, err)
	require.Len(t, kitchen, 1)
	assert.Equal(t, second.ID, kitchen[0].ID)

	_, err = h.svc.SetStatus(ctx, ownerA, first.ID, StatusCancelled)
	require.NoError(t, err)
	history, err := h.svc.List(ctx, ownerA, Filter{Bucket: BucketHistory})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, first.ID, history[0].ID)
}

func TestSetStatusPolicies(t *testing.T) {
	ctx := context.Background()
	walk := func(t *testing.T, h *harness, id string) {
		for _, s := range []Status{StatusConfirmed, StatusInProgress, StatusCompleted} {
			_, err := h.svc.SetStatus(ctx, ownerA, id, s)
			require.NoError(t, err)
		}
	}

	t.Run("strict rejects COMPLETED -> PENDING", func(t *testing.T) {
		h := newHarness(PolicyStrict)
		o := h.place(t)
		walk(t, h, o.ID)
		_, err := h.svc.SetStatus(ctx, ownerA, o.ID, StatusPending)
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	})

	t.Run("permissive allows COMPLETED -> PENDING", func(t *testing.T) {
		h := newHarness(PolicyPermissive)
		o := h.place(t)
		_, err := h.svc.SetStatus(ctx, ownerA, o.ID, StatusCompleted)
		require.NoError(t, err)
		got, err := h.svc.SetStatus(ctx, ownerA, o.ID, StatusPending)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, got.Status)
	})

	t.Run("strict rejects skipping ahead", func(t *testing.T) {
		h := newHarness(PolicyStrict)
		o := h.place(t)
		_, err := h.svc.SetStatus(ctx, ownerA, o.ID, StatusCompleted)
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	})

	t.Run("same status is a quiet no-op", func(t *testing.T) {
		h := newHarness(PolicyStrict)
		o := h.place(t)
		_, err := h.svc.SetStatus(ctx, ownerA, o.ID, StatusPending)
		require.NoError(t, err)
		assert.Equal(t, []string{EventOrderCreated}, h.events.types)
	})

	t.Run("other restaurant gets NotFound", func(t *testing.T) {
		h := newHarness(PolicyStrict)
		o := h.place(t)
		_, err := h.svc.SetStatus(ctx, ownerB, o.ID, StatusConfirmed)
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})

	t.Run("unknown status is a validation error", func(t *testing.T) {
		h := newHarness(PolicyStrict)
		o := h.place(t)
		_, err := h.svc.SetStatus(ctx, ownerA, o.ID, Status("SHIPPED"))
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("change refreshes status cache and emits", func(t *testing.T) {
		h := newHarness(PolicyStrict)
		o := h.place(t)
		_, err := h.svc.SetStatus(ctx, admin, o.ID, StatusConfirmed)
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, h.status.m[o.ID].Status)
		assert.Equal(t, []string{EventOrderCreated, EventOrderStatusChanged}, h.events.types)
	})
}

func TestSetItemStatusIsIndependentOfOrder(t *testing.T) {
	h := newHarness(PolicyStrict)
	o := h.place(t)
	ctx := context.Background()

	it, err := h.svc.SetItemStatus(ctx, ownerA, o.Items[0].ID, ItemReady)
	require.NoError(t, err)
	assert.Equal(t, ItemReady, it.Status)

	got, err := h.svc.Get(ctx, ownerA, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, ItemReady, got.Items[0].Status)

	_, err = h.svc.SetItemStatus(ctx, ownerB, o.Items[0].ID, ItemPreparing)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = h.svc.SetItemStatus(ctx, ownerA, o.Items[0].ID, ItemStatus("burnt"))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestMarkPaidAndPublicStatus(t *testing.T) {
	h := newHarness(PolicyStrict)
	o := h.place(t)
	ctx := context.Background()

	_, err := h.svc.MarkPaid(ctx, o.ID)
	require.NoError(t, err)
	_, err = h.svc.MarkPaid(ctx, o.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{EventOrderCreated, EventOrderPaid}, h.events.types, "second callback is quiet")
	assert.Len(t, h.notifier.got, 2)

	v, err := h.svc.PublicStatus(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusView{Status: StatusPending, Paid: true}, v)

	delete(h.status.m, o.ID)
	v, err = h.svc.PublicStatus(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, v.Paid)
	assert.Contains(t, h.status.m, o.ID, "miss repopulates the cache")

	_, err = h.svc.PublicStatus(ctx, "missing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestConcurrentPaymentCallbacksEmitOnce(t *testing.T) {
	h := newHarness(PolicyStrict)
	o := h.place(t)

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			_, err := h.svc.MarkPaid(context.Background(), o.ID)
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, []string{EventOrderCreated, EventOrderPaid}, h.events.types)
	require.Len(t, h.notifier.got, 2)
	assert.Equal(t, notifications.TypePayment, h.notifier.got[1].Type)
}
