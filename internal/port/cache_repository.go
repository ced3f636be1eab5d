package port

import (
	"context"

	"github.com/rl1809/cart-store/internal/core/domain"
)

type CartCache interface {
	// LoadCart returns the stored snapshot, or nil when none has been written
	LoadCart(ctx context.Context) (domain.Cart, error)

	// SaveCart overwrites the stored snapshot
	SaveCart(ctx context.Context, cart domain.Cart) error
}
