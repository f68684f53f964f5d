package tables

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"github.com/ariefcatur/go-restaurant-orders/internal/apperr"
	"github.com/ariefcatur/go-restaurant-orders/internal/auth"
)

const qrSize = 256

type Table struct {
	ID           string    `json:"id"`
	RestaurantID string    `json:"restaurantId"`
	Number       int       `json:"number"`
	Label        string    `json:"label"`
	QRURL        string    `json:"qrUrl"`
	QRCode       string    `json:"qrCode"` // data:image/png;base64,...
	CreatedAt    time.Time `json:"createdAt"`
}

type Repo interface {
	Insert(ctx context.Context, t Table) (Table, error)
	List(ctx context.Context, restaurantID string) ([]Table, error)
}

type Scoper interface {
	Scope(ctx context.Context, a auth.Actor) (auth.Scope, error)
}

type Service struct {
	repo    Repo
	scoper  Scoper
	baseURL string
}

// NewService takes the public ordering page base, e.g. https://order.example.com.
func NewService(repo Repo, scoper Scoper, baseURL string) *Service {
	return &Service{repo: repo, scoper: scoper, baseURL: baseURL}
}

// Provision creates a table with a QR code pointing at the ordering page for
// this restaurant and table. Table numbers are unique per restaurant.
func (s *Service) Provision(ctx context.Context, a auth.Actor, restaurantID string, number int, label string) (Table, error) {
	sc, err := s.scoper.Scope(ctx, a)
	if err != nil {
		return Table{}, err
	}
	rid, err := sc.Resolve(restaurantID)
	if err != nil {
		return Table{}, err
	}
	if number <= 0 {
		return Table{}, apperr.Validation("invalid table", map[string]string{"number": "must be > 0"})
	}

	t := Table{ID: uuid.NewString(), RestaurantID: rid, Number: number, Label: label}
	if t.Label == "" {
		t.Label = fmt.Sprintf("Table %d", number)
	}
	t.QRURL = s.OrderURL(rid, t.ID)
	t.QRCode, err = EncodeQR(t.QRURL)
	if err != nil {
		return Table{}, apperr.Internal("encode qr", err)
	}
	return s.repo.Insert(ctx, t)
}

func (s *Service) List(ctx context.Context, a auth.Actor, restaurantID string) ([]Table, error) {
	sc, err := s.scoper.Scope(ctx, a)
	if err != nil {
		return nil, err
	}
	rid, err := sc.Resolve(restaurantID)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, rid)
}

// OrderURL is the link a diner lands on after scanning the table code.
func (s *Service) OrderURL(restaurantID, tableID string) string {
	return fmt.Sprintf("%s/order/%s?table=%s", s.baseURL, url.PathEscape(restaurantID), url.QueryEscape(tableID))
}

// EncodeQR renders content as a PNG data URL.
func EncodeQR(content string) (string, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, qrSize)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
