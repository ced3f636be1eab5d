package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/cart-store/internal/core/domain"
	"github.com/rl1809/cart-store/internal/port"
)

const (
	stockKeyPrefix = "stock:"
	DefaultCartKey = "cart"
)

// RedisAdapter keeps the cart snapshot under a single key and can serve
// stock levels stored as plain integers under stock:{id}.
type RedisAdapter struct {
	client  *redis.Client
	cartKey string
}

func NewRedisAdapter(client *redis.Client, cartKey string) *RedisAdapter {
	if cartKey == "" {
		cartKey = DefaultCartKey
	}
	return &RedisAdapter{client: client, cartKey: cartKey}
}

func stockKey(productID int) string {
	return stockKeyPrefix + strconv.Itoa(productID)
}

func (r *RedisAdapter) LoadCart(ctx context.Context) (domain.Cart, error) {
	raw, err := r.client.Get(ctx, r.cartKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(raw, &cart); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	if cart == nil {
		cart = domain.Cart{}
	}

	return cart, nil
}

func (r *RedisAdapter) SaveCart(ctx context.Context, cart domain.Cart) error {
	if cart == nil {
		cart = domain.Cart{}
	}
	raw, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}

	if err := r.client.Set(ctx, r.cartKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("set cart: %w", err)
	}
	return nil
}

func (r *RedisAdapter) Stock(ctx context.Context, productID int) (domain.Stock, error) {
	amount, err := r.client.Get(ctx, stockKey(productID)).Int()
	if errors.Is(err, redis.Nil) {
		return domain.Stock{}, port.ErrNotFound
	}
	if err != nil {
		return domain.Stock{}, fmt.Errorf("get stock: %w", err)
	}

	return domain.Stock{ProductID: productID, Amount: amount}, nil
}

func (r *RedisAdapter) SetStock(ctx context.Context, productID int, quantity int) error {
	return r.client.Set(ctx, stockKey(productID), quantity, 0).Err()
}
