// Package catalog is the read-only product store backing the storefront.
package catalog

import (
	"context"
	"errors"

	"storefront/internal/domain"
)

// Store defines the catalog operations consumed by the cart and checkout
// services. Consumers define this interface, not the sqlite implementation.
type Store interface {
	FindProduct(ctx context.Context, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]*domain.Product, error)
}

var ErrProductNotFound = errors.New("product not found")
