package port

import (
	"context"
	"errors"

	"github.com/rl1809/cart-store/internal/core/domain"
)

// ErrNotFound is returned by lookups for a product the source does not know.
var ErrNotFound = errors.New("product not found")

type StockOracle interface {
	// Stock returns the quantity currently available for a product
	Stock(ctx context.Context, productID int) (domain.Stock, error)
}

type ProductCatalog interface {
	// Product returns the display record for a product
	Product(ctx context.Context, productID int) (domain.Product, error)
}
