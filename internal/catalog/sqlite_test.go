package catalog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/catalog"
)

func setupTestDB(t *testing.T) *catalog.Repository {
	// Use in-memory database for tests
	repo, err := catalog.NewRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.RunMigrations("../../migrations"))

	return repo
}

func TestListProducts_ReturnsSeededCatalog(t *testing.T) {
	repo := setupTestDB(t)

	products, err := repo.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 6)

	// Seed order is id order.
	assert.Equal(t, int64(1), products[0].ID)
	assert.Equal(t, "Wireless Headphones", products[0].Name)
	assert.Equal(t, 129.99, products[0].Price)
	assert.NotEmpty(t, products[0].Image)
}

func TestFindProduct_ReturnsProduct(t *testing.T) {
	repo := setupTestDB(t)

	product, err := repo.FindProduct(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Mechanical Keyboard", product.Name)
	assert.Equal(t, 89.50, product.Price)
	assert.Equal(t, "peripherals", product.Category)
}

func TestFindProduct_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.FindProduct(context.Background(), 9999)
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestFindProduct_CancelledContext(t *testing.T) {
	repo := setupTestDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.FindProduct(ctx, 1)
	assert.Error(t, err)
}
