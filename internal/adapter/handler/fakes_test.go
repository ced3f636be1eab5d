package handler

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/cart-store/internal/adapter/notify"
	"github.com/rl1809/cart-store/internal/core/domain"
	"github.com/rl1809/cart-store/internal/core/service"
	"github.com/rl1809/cart-store/internal/port"
)

type fakeShop struct {
	mu    sync.Mutex
	stock map[int]int
	err   error
}

func (f *fakeShop) Stock(ctx context.Context, productID int) (domain.Stock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.Stock{}, f.err
	}
	amount, ok := f.stock[productID]
	if !ok {
		return domain.Stock{}, port.ErrNotFound
	}
	return domain.Stock{ProductID: productID, Amount: amount}, nil
}

func (f *fakeShop) Product(ctx context.Context, productID int) (domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.stock[productID]; !ok {
		return domain.Product{}, port.ErrNotFound
	}
	return domain.Product{
		ID:    productID,
		Title: "Tenis",
		Price: decimal.RequireFromString("100.50"),
		Image: "https://img/tenis.jpg",
	}, nil
}

type fakeCache struct {
	mu   sync.Mutex
	cart domain.Cart
}

func (f *fakeCache) LoadCart(ctx context.Context) (domain.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cart.Clone(), nil
}

func (f *fakeCache) SaveCart(ctx context.Context, c domain.Cart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cart = c.Clone()
	return nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestService(t *testing.T, stock map[int]int) (*service.CartService, *fakeShop, *notify.ChannelNotifier) {
	t.Helper()
	shop := &fakeShop{stock: stock}
	notices := notify.NewChannelNotifier(16)
	svc := service.NewCartService(context.Background(), shop, shop, &fakeCache{}, notices, quietLogger())
	return svc, shop, notices
}
