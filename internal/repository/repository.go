package repository

import (
	"context"
	"errors"

	"storefront/internal/domain"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrVersionConflict = errors.New("cart was modified concurrently")
)

// CartRepository defines the interface for cart data operations.
// Consumers define this interface, not the MongoDB implementation.
// SaveCart is a compare-and-swap on the cart's version: a save against a stale
// version fails with ErrVersionConflict so concurrent mutations cannot drop
// each other's changes.
type CartRepository interface {
	LoadCart(ctx context.Context, ownerID string) (*domain.Cart, error)
	SaveCart(ctx context.Context, cart *domain.Cart) error
}

// OrderRepository persists immutable order records. There is no update or
// delete beyond the cart-cleared marker used by checkout reconciliation.
type OrderRepository interface {
	SaveOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)
	MarkCartCleared(ctx context.Context, orderID string) error
}

type indexCreator interface {
	CreateIndexes(ctx context.Context) error
}

// EnsureIndexes creates the indexes for any repository implementation that
// declares some. In-memory test doubles simply don't.
func EnsureIndexes(ctx context.Context, repos ...interface{}) error {
	for _, r := range repos {
		if ic, ok := r.(indexCreator); ok {
			if err := ic.CreateIndexes(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}
