package service

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/rl1809/cart-store/internal/core/domain"
	"github.com/rl1809/cart-store/internal/port"
)

// CartService owns the shopping cart. Mutations are serialized end to end,
// remote lookups included, so a read-check-write never interleaves with
// another one.
type CartService struct {
	stock    port.StockOracle
	catalog  port.ProductCatalog
	cache    port.CartCache
	notifier port.Notifier
	log      logrus.FieldLogger

	mu   sync.Mutex
	cart domain.Cart

	subMu       sync.Mutex
	subscribers map[uint64]func(domain.Cart)
	nextSubID   uint64
}

// NewCartService restores the cart from cache. A missing or unreadable
// snapshot starts an empty cart.
func NewCartService(ctx context.Context, stock port.StockOracle, catalog port.ProductCatalog, cache port.CartCache, notifier port.Notifier, log logrus.FieldLogger) *CartService {
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}

	s := &CartService{
		stock:       stock,
		catalog:     catalog,
		cache:       cache,
		notifier:    notifier,
		log:         log,
		cart:        domain.Cart{},
		subscribers: make(map[uint64]func(domain.Cart)),
	}

	stored, err := cache.LoadCart(ctx)
	switch {
	case err != nil:
		log.WithError(err).Warn("discarding stored cart")
	case stored == nil:
	default:
		if err := stored.Validate(); err != nil {
			log.WithError(err).Warn("discarding stored cart")
			break
		}
		s.cart = stored
		log.WithField("items", len(stored)).Info("restored cart")
	}

	return s
}

// Cart returns a copy of the current cart.
func (s *CartService) Cart() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// Subscribe registers fn to receive every committed cart, in commit order.
// fn runs while the store is locked: it must not block or call back into
// the store.
func (s *CartService) Subscribe(fn func(domain.Cart)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subscribers, id)
			s.subMu.Unlock()
		})
	}
}

// AddItem adds one unit of productID, fetching the product record the
// first time the product enters the cart.
func (s *CartService) AddItem(ctx context.Context, productID int) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stock, err := s.stock.Stock(ctx, productID)
	if err != nil {
		return s.fail(OpAddItem, productID, lookupKind(err, ErrStockLookupFailed), err)
	}
	if stock.Amount < 1 {
		return s.fail(OpAddItem, productID, ErrStockUnavailable, nil)
	}

	next := s.cart.Clone()
	idx := next.Find(productID)

	amount := 1
	if idx >= 0 {
		amount = next[idx].Amount + 1
	}
	if amount > stock.Amount {
		return s.fail(OpAddItem, productID, ErrStockExceeded, nil)
	}

	if idx >= 0 {
		next[idx].Amount = amount
		return s.commit(ctx, OpAddItem, productID, next)
	}

	product, err := s.catalog.Product(ctx, productID)
	if err != nil {
		return s.fail(OpAddItem, productID, lookupKind(err, ErrProductLookupFailed), err)
	}
	product.ID = productID
	next = append(next, domain.LineItem{Product: product, Amount: amount})

	return s.commit(ctx, OpAddItem, productID, next)
}

// RemoveItem takes one unit of productID out of the cart, dropping the
// line item when its last unit goes.
func (s *CartService) RemoveItem(ctx context.Context, productID int) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cart.Clone()
	idx := next.Find(productID)
	if idx < 0 {
		return s.fail(OpRemoveItem, productID, ErrItemNotInCart, nil)
	}

	if next[idx].Amount == 1 {
		next = append(next[:idx], next[idx+1:]...)
	} else {
		next[idx].Amount--
	}

	return s.commit(ctx, OpRemoveItem, productID, next)
}

// SetAmount sets the quantity of a product already in the cart.
func (s *CartService) SetAmount(ctx context.Context, productID, amount int) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if amount < 1 {
		return s.fail(OpSetAmount, productID, ErrInvalidAmount, nil)
	}

	next := s.cart.Clone()
	idx := next.Find(productID)
	if idx < 0 {
		return s.fail(OpSetAmount, productID, ErrItemNotInCart, nil)
	}

	stock, err := s.stock.Stock(ctx, productID)
	if err != nil {
		return s.fail(OpSetAmount, productID, lookupKind(err, ErrStockLookupFailed), err)
	}
	if stock.Amount-amount < 0 {
		return s.fail(OpSetAmount, productID, ErrStockExceeded, nil)
	}

	next[idx].Amount = amount
	return s.commit(ctx, OpSetAmount, productID, next)
}

// commit persists next, then makes it the current cart and publishes it.
// Nothing changes in memory if the write fails.
func (s *CartService) commit(ctx context.Context, op Op, productID int, next domain.Cart) (domain.Cart, error) {
	if err := s.cache.SaveCart(ctx, next); err != nil {
		return s.fail(op, productID, ErrPersistFailed, err)
	}

	s.cart = next
	s.publish(next)

	s.log.WithFields(logrus.Fields{
		"op":         op,
		"product_id": productID,
		"items":      len(next),
		"units":      next.Count(),
	}).Debug("cart updated")

	return next.Clone(), nil
}

func (s *CartService) fail(op Op, productID int, kind, cause error) (domain.Cart, error) {
	cerr := &CartError{Op: op, ProductID: productID, Kind: kind, Err: cause}

	entry := s.log.WithFields(logrus.Fields{
		"op":         op,
		"product_id": productID,
		"kind":       kind.Error(),
	})
	if cause != nil {
		entry = entry.WithError(cause)
	}
	entry.Warn("cart mutation rejected")

	s.notifier.Notify(cerr.Message())
	return s.cart.Clone(), cerr
}

func (s *CartService) publish(c domain.Cart) {
	s.subMu.Lock()
	subs := make([]func(domain.Cart), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(c.Clone())
	}
}

func lookupKind(err, fallback error) error {
	if errors.Is(err, port.ErrNotFound) {
		return ErrProductNotFound
	}
	return fallback
}

type nopNotifier struct{}

func (nopNotifier) Notify(string) {}
