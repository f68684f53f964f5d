package menu

import (
	"context"
	"strings"

	"github.com/ariefcatur/go-restaurant-orders/internal/apperr"
	"github.com/ariefcatur/go-restaurant-orders/internal/auth"
)

type Service struct {
	repo   Repo
	scoper Scoper
}

func NewService(repo Repo, scoper Scoper) *Service {
	return &Service{repo: repo, scoper: scoper}
}

// List is public: diners browse the menu before they have an account.
func (s *Service) List(ctx context.Context, restaurantID string) (Menu, error) {
	cats, err := s.repo.ListCategories(ctx, restaurantID)
	if err != nil {
		return Menu{}, err
	}
	items, err := s.repo.ListItems(ctx, restaurantID)
	if err != nil {
		return Menu{}, err
	}
	return Menu{RestaurantID: restaurantID, Categories: cats, Items: items}, nil
}

func (s *Service) CreateCategory(ctx context.Context, a auth.Actor, restaurantID, name string) (Category, error) {
	rid, err := s.target(ctx, a, restaurantID)
	if err != nil {
		return Category{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, apperr.Validation("missing fields", map[string]string{"name": "required"})
	}
	return s.repo.CreateCategory(ctx, Category{RestaurantID: rid, Name: name})
}

func (s *Service) CreateItem(ctx context.Context, a auth.Actor, in ItemInput) (MenuItem, error) {
	rid, err := s.target(ctx, a, in.RestaurantID)
	if err != nil {
		return MenuItem{}, err
	}
	it := MenuItem{
		RestaurantID: rid,
		UserID:       a.UserID,
		CategoryID:   in.CategoryID,
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		Price:        in.Price,
		ImageURL:     in.ImageURL,
		Available:    true,
	}
	if in.Available != nil {
		it.Available = *in.Available
	}
	if err := s.check(ctx, it); err != nil {
		return MenuItem{}, err
	}
	return s.repo.CreateItem(ctx, it)
}

// UpdateItem changes price, availability or content. Existing orders keep
// their snapshot prices.
func (s *Service) UpdateItem(ctx context.Context, a auth.Actor, id string, p ItemPatch) (MenuItem, error) {
	sc, err := s.scoper.Scope(ctx, a)
	if err != nil {
		return MenuItem{}, err
	}
	it, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return MenuItem{}, err
	}
	if !sc.Allows(it.RestaurantID) {
		return MenuItem{}, apperr.NotFound("menu item not found")
	}

	if p.CategoryID != nil {
		if *p.CategoryID == "" {
			it.CategoryID = nil
		} else {
			it.CategoryID = p.CategoryID
		}
	}
	if p.Name != nil {
		it.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		it.Description = *p.Description
	}
	if p.Price != nil {
		it.Price = *p.Price
	}
	if p.ImageURL != nil {
		it.ImageURL = *p.ImageURL
	}
	if p.Available != nil {
		it.Available = *p.Available
	}
	if err := s.check(ctx, it); err != nil {
		return MenuItem{}, err
	}
	return s.repo.UpdateItem(ctx, it)
}

func (s *Service) target(ctx context.Context, a auth.Actor, restaurantID string) (string, error) {
	sc, err := s.scoper.Scope(ctx, a)
	if err != nil {
		return "", err
	}
	return sc.Resolve(restaurantID)
}

func (s *Service) check(ctx context.Context, it MenuItem) error {
	fields := map[string]string{}
	if it.Name == "" {
		fields["name"] = "required"
	}
	if it.Price.IsNegative() {
		fields["price"] = "must be >= 0"
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid menu item", fields)
	}
	if it.CategoryID != nil {
		c, err := s.repo.GetCategory(ctx, *it.CategoryID)
		if err != nil {
			return err
		}
		if c.RestaurantID != it.RestaurantID {
			return apperr.NotFound("category not found")
		}
	}
	return nil
}
