package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

type mockOrderRepo struct {
	m       sync.Mutex
	orders  map[string]*domain.Order
	saveErr error
	markErr error
	cleared []string
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[string]*domain.Order)}
}

func (m *mockOrderRepo) SaveOrder(_ context.Context, order *domain.Order) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	stored := *order
	m.orders[order.ID] = &stored
	return nil
}

func (m *mockOrderRepo) GetOrderByID(_ context.Context, id string) (*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

func (m *mockOrderRepo) MarkCartCleared(_ context.Context, orderID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	m.cleared = append(m.cleared, orderID)
	return nil
}

func (m *mockOrderRepo) count() int {
	m.m.Lock()
	defer m.m.Unlock()
	return len(m.orders)
}

type mockPublisher struct {
	m         sync.Mutex
	published []string
	err       error
}

func (p *mockPublisher) PublishOrderCreated(_ context.Context, order *domain.Order) error {
	p.m.Lock()
	defer p.m.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, order.ID)
	return nil
}

func populatedCart(ownerID string) *domain.Cart {
	cart := domain.NewCart(ownerID)
	cart.Items = []domain.CartItem{
		{ID: "item-1", ProductID: 1, Name: "Webcam", Price: 10, Quantity: 2, Image: "/images/webcam.jpg"},
		{ID: "item-2", ProductID: 2, Name: "Desk Lamp", Price: 5, Quantity: 1, Image: "/images/desk-lamp.jpg"},
	}
	cart.RecalcTotal()
	cart.Version = 1
	return cart
}

func TestCheckout_Success(t *testing.T) {
	cartRepo := &mockRepository{cart: populatedCart("123")}
	orderRepo := newMockOrderRepo()
	pub := &mockPublisher{}
	mockC := &mockCache{}

	sut := NewCheckoutService(cartRepo, orderRepo, testCatalog(), mockC, pub)
	order, err := sut.Checkout(context.Background(), "123", "Ada Lovelace", "ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.Equal(t, 25.0, order.Total)
	assert.Equal(t, "Ada Lovelace", order.CustomerName)
	assert.Equal(t, "ada@example.com", order.CustomerEmail)
	require.Len(t, order.Items, 2)
	assert.Equal(t, int64(1), order.Items[0].ProductID)
	assert.Equal(t, int64(2), order.Items[1].ProductID)
	assert.False(t, order.Timestamp.IsZero())
	assert.True(t, order.CartCleared)

	// Cart was emptied by the same checkout.
	stored := cartRepo.getCart()
	assert.Empty(t, stored.Items)
	assert.Equal(t, 0.0, stored.Total)

	assert.Equal(t, []string{order.ID}, orderRepo.cleared)
	assert.Equal(t, []string{order.ID}, pub.published)
}

func TestCheckout_EmptyCart_FailedPrecondition(t *testing.T) {
	cart := domain.NewCart("123")
	cart.Version = 1
	cartRepo := &mockRepository{cart: cart}
	orderRepo := newMockOrderRepo()

	sut := NewCheckoutService(cartRepo, orderRepo, testCatalog(), &mockCache{}, nil)
	_, err := sut.Checkout(context.Background(), "123", "Ada Lovelace", "ada@example.com")
	assertCode(t, err, codes.FailedPrecondition)
	assert.Zero(t, orderRepo.count(), "no order may be created")
}

func TestCheckout_AbsentCart_FailedPrecondition(t *testing.T) {
	cartRepo := &mockRepository{}
	orderRepo := newMockOrderRepo()

	sut := NewCheckoutService(cartRepo, orderRepo, testCatalog(), &mockCache{}, nil)
	_, err := sut.Checkout(context.Background(), "123", "Ada Lovelace", "ada@example.com")
	assertCode(t, err, codes.FailedPrecondition)
	assert.Zero(t, orderRepo.count())
}

func TestCheckout_InvalidCustomer_CartUntouched(t *testing.T) {
	cases := []struct {
		name  string
		cust  string
		email string
	}{
		{"blank name", "   ", "ada@example.com"},
		{"blank email", "Ada Lovelace", ""},
		{"bad email shape", "Ada Lovelace", "not-an-email"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cartRepo := &mockRepository{cart: populatedCart("123")}
			orderRepo := newMockOrderRepo()

			sut := NewCheckoutService(cartRepo, orderRepo, testCatalog(), &mockCache{}, nil)
			_, err := sut.Checkout(context.Background(), "123", tc.cust, tc.email)
			assertCode(t, err, codes.InvalidArgument)

			assert.Zero(t, orderRepo.count())
			assert.Len(t, cartRepo.getCart().Items, 2, "cart must be untouched")
		})
	}
}

func TestCheckout_PriceChanged_UsesCheckoutTimePrice(t *testing.T) {
	cat := testCatalog()
	cat.setPrice(1, 15) // cart still holds the add-time snapshot of 10

	cartRepo := &mockRepository{cart: populatedCart("123")}
	orderRepo := newMockOrderRepo()

	sut := NewCheckoutService(cartRepo, orderRepo, cat, &mockCache{}, nil)
	order, err := sut.Checkout(context.Background(), "123", "Ada Lovelace", "ada@example.com")
	require.NoError(t, err)

	assert.Equal(t, 15.0, order.Items[0].Price)
	assert.Equal(t, 35.0, order.Total) // 15*2 + 5*1
}

func TestCheckout_ProductDeleted_FallsBackToCachedSnapshot(t *testing.T) {
	cat := testCatalog()
	cat.delete(1)

	cartRepo := &mockRepository{cart: populatedCart("123")}
	orderRepo := newMockOrderRepo()

	sut := NewCheckoutService(cartRepo, orderRepo, cat, &mockCache{}, nil)
	order, err := sut.Checkout(context.Background(), "123", "Ada Lovelace", "ada@example.com")
	require.NoError(t, err)

	assert.Equal(t, "Webcam", order.Items[0].Name)
	assert.Equal(t, 10.0, order.Items[0].Price)
	assert.Equal(t, 25.0, order.Total)
}

func TestCheckout_CatalogUnavailable_Aborts(t *testing.T) {
	cat := testCatalog()
	cat.err = fmt.Errorf("catalog down")

	cartRepo := &mockRepository{cart: populatedCart("123")}
	orderRepo := newMockOrderRepo()

	sut := NewCheckoutService(cartRepo, orderRepo, cat, &mockCache{}, nil)
	_, err := sut.Checkout(context.Background(), "123", "Ada Lovelace", "ada@example.com")
	assertCode(t, err, codes.Unavailable)
	assert.Zero(t, orderRepo.count())
	assert.Len(t, cartRepo.getCart().Items, 2)
}

func TestCheckout_OrderSaveFails_CartUntouched(t *testing.T) {
	cartRepo := &mockRepository{cart: populatedCart("123")}
	orderRepo := newMockOrderRepo()
	orderRepo.saveErr = fmt.Errorf("database error")

	sut := NewCheckoutService(cartRepo, orderRepo, testCatalog(), &mockCache{}, nil)
	_, err := sut.Checkout(context.Background(), "123", "Ada Lovelace", "ada@example.com")
	assertCode(t, err, codes.Unavailable)

	stored := cartRepo.getCart()
	assert.Len(t, stored.Items, 2)
	assert.Equal(t, 25.0, stored.Total)
}

func TestCheckout_ClearFails_OrderStandsWithMarker(t *testing.T) {
	cartRepo := &mockRepository{
		cart:    populatedCart("123"),
		saveErr: repository.ErrVersionConflict,
	}
	orderRepo := newMockOrderRepo()

	sut := NewCheckoutService(cartRepo, orderRepo, testCatalog(), &mockCache{}, nil)
	order, err := sut.Checkout(context.Background(), "123", "Ada Lovelace", "ada@example.com")
	require.NoError(t, err, "the order stands even when the clear fails")
	require.NotNil(t, order)

	// The inconsistency stays visible: the marker was never flipped.
	assert.False(t, order.CartCleared)
	assert.Empty(t, orderRepo.cleared)
	assert.Equal(t, 1, orderRepo.count())
}

func TestCheckout_PublishFailure_DoesNotFailCheckout(t *testing.T) {
	cartRepo := &mockRepository{cart: populatedCart("123")}
	orderRepo := newMockOrderRepo()
	pub := &mockPublisher{err: fmt.Errorf("broker down")}

	sut := NewCheckoutService(cartRepo, orderRepo, testCatalog(), &mockCache{}, pub)
	order, err := sut.Checkout(context.Background(), "123", "Ada Lovelace", "ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, order)
}

func TestGetOrder_Success(t *testing.T) {
	cartRepo := &mockRepository{cart: populatedCart("123")}
	orderRepo := newMockOrderRepo()

	sut := NewCheckoutService(cartRepo, orderRepo, testCatalog(), &mockCache{}, nil)
	created, err := sut.Checkout(context.Background(), "123", "Ada Lovelace", "ada@example.com")
	require.NoError(t, err)

	got, err := sut.GetOrder(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Total, got.Total)
}

func TestGetOrder_NotFound(t *testing.T) {
	sut := NewCheckoutService(&mockRepository{}, newMockOrderRepo(), testCatalog(), &mockCache{}, nil)
	_, err := sut.GetOrder(context.Background(), "missing")
	assertCode(t, err, codes.NotFound)
}
