package cart

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-restaurant-orders/internal/apperr"
	"github.com/ariefcatur/go-restaurant-orders/internal/auth"
	"github.com/ariefcatur/go-restaurant-orders/internal/metrics"
)

type Service struct {
	repo  Repo
	cache Cache
	log   *logrus.Entry
}

func NewService(repo Repo, cache Cache, log *logrus.Entry) *Service {
	return &Service{repo: repo, cache: cache, log: log.WithField("component", "cart")}
}

// Get never fails for a missing cart; it returns the empty shape instead.
func (s *Service) Get(ctx context.Context, a auth.Actor) (Cart, error) {
	if a.UserID == "" {
		return Cart{}, apperr.Unauthorized("authentication required")
	}
	if c, ok, err := s.cache.Get(ctx, a.UserID); err != nil {
		s.log.WithError(err).Warn("cart cache read failed")
	} else if ok {
		return c, nil
	}

	c, err := s.repo.Load(ctx, a.UserID)
	if err != nil {
		return Cart{}, err
	}
	if err := s.cache.Set(ctx, c); err != nil {
		s.log.WithError(err).Warn("cart cache write failed")
	}
	return c, nil
}

// AddItem adds one unit. Availability is not checked here; checkout reads
// live menu data.
func (s *Service) AddItem(ctx context.Context, a auth.Actor, menuItemID string) (Cart, error) {
	if a.UserID == "" {
		return Cart{}, apperr.Unauthorized("authentication required")
	}
	if strings.TrimSpace(menuItemID) == "" {
		return Cart{}, apperr.Validation("missing fields", map[string]string{"menuItemId": "required"})
	}
	qty, err := s.repo.AddItem(ctx, a.UserID, menuItemID)
	if err != nil {
		return Cart{}, err
	}
	metrics.CartMutation("add")
	s.log.WithFields(logrus.Fields{"user_id": a.UserID, "menu_item_id": menuItemID, "quantity": qty}).Debug("cart item added")
	return s.refresh(ctx, a)
}

func (s *Service) RemoveItem(ctx context.Context, a auth.Actor, menuItemID string, removeAll bool) (Cart, error) {
	if a.UserID == "" {
		return Cart{}, apperr.Unauthorized("authentication required")
	}
	if strings.TrimSpace(menuItemID) == "" {
		return Cart{}, apperr.Validation("missing fields", map[string]string{"menuItemId": "required"})
	}
	if _, err := s.repo.RemoveItem(ctx, a.UserID, menuItemID, removeAll); err != nil {
		return Cart{}, err
	}
	op := "remove"
	if removeAll {
		op = "remove_all"
	}
	metrics.CartMutation(op)
	return s.refresh(ctx, a)
}

func (s *Service) Clear(ctx context.Context, a auth.Actor) (Cart, error) {
	if a.UserID == "" {
		return Cart{}, apperr.Unauthorized("authentication required")
	}
	if err := s.repo.Clear(ctx, a.UserID); err != nil {
		return Cart{}, err
	}
	metrics.CartMutation("clear")
	return s.refresh(ctx, a)
}

// SweepAbandoned removes empty carts untouched for longer than age.
func (s *Service) SweepAbandoned(ctx context.Context, age time.Duration) (int64, error) {
	n, err := s.repo.SweepAbandoned(ctx, time.Now().Add(-age))
	if err != nil {
		return 0, err
	}
	metrics.CartsSwept(n)
	return n, nil
}

// refresh drops the cached view after a write and re-reads it.
func (s *Service) refresh(ctx context.Context, a auth.Actor) (Cart, error) {
	if err := s.cache.Invalidate(ctx, a.UserID); err != nil {
		s.log.WithError(err).Warn("cart cache invalidate failed")
	}
	return s.Get(ctx, a)
}
