package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"storefront/internal/cache"
	"storefront/internal/catalog"
	"storefront/internal/domain"
	"storefront/internal/repository"
	"storefront/pkg/logger"
)

// OrderEventPublisher announces persisted orders to downstream consumers.
// Publishing is best effort: a failed publish never fails the checkout.
type OrderEventPublisher interface {
	PublishOrderCreated(ctx context.Context, order *domain.Order) error
}

// CheckoutService converts a populated cart into an immutable order and
// empties the cart. The order write and the cart clear are two separate
// writes; when the clear fails after the order was persisted, the order's
// cart_cleared marker stays false so the inconsistency is visible instead of
// silent.
type CheckoutService struct {
	carts   repository.CartRepository
	orders  repository.OrderRepository
	catalog catalog.Store
	cache   cache.CartCache
	events  OrderEventPublisher // optional
}

func NewCheckoutService(
	carts repository.CartRepository,
	orders repository.OrderRepository,
	catalog catalog.Store,
	cache cache.CartCache,
	events OrderEventPublisher,
) *CheckoutService {
	return &CheckoutService{
		carts:   carts,
		orders:  orders,
		catalog: catalog,
		cache:   cache,
		events:  events,
	}
}

// Checkout runs the single cart-to-order transition:
// validate customer -> load cart -> re-resolve items -> persist order ->
// clear cart. Validation failures and an empty (or absent) cart leave
// everything untouched.
func (s *CheckoutService) Checkout(ctx context.Context, ownerID, customerName, customerEmail string) (*domain.Order, error) {
	if err := domain.ValidateCustomer(customerName, customerEmail); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	cart, err := s.carts.LoadCart(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			// An absent cart checks out the same as an empty one.
			return nil, status.Error(codes.FailedPrecondition, ErrEmptyCart.Error())
		}
		return nil, status.Errorf(codes.Unavailable, "failed to load cart: %v", err)
	}
	if len(cart.Items) == 0 {
		return nil, status.Error(codes.FailedPrecondition, ErrEmptyCart.Error())
	}

	items, err := s.resolveItems(ctx, cart.Items)
	if err != nil {
		return nil, err
	}

	order, err := domain.NewOrder(ownerID, items, customerName, customerEmail)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err := s.orders.SaveOrder(ctx, order); err != nil {
		return nil, status.Errorf(codes.Unavailable, "failed to save order: %v", err)
	}

	s.clearCart(ctx, cart, order)
	s.publish(ctx, order)

	return order, nil
}

// GetOrder returns a previously created order by id.
func (s *CheckoutService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, status.Error(codes.NotFound, "order not found")
		}
		return nil, status.Errorf(codes.Unavailable, "failed to get order: %v", err)
	}
	return order, nil
}

// resolveItems builds the order snapshot from the cart's line items, taking
// the product's current name/price/image when it still exists in the catalog
// and falling back to the cart's cached copy when it has been deleted. Prices
// may have moved since the item was added; checkout uses the latest known
// values.
func (s *CheckoutService) resolveItems(ctx context.Context, cartItems []domain.CartItem) ([]domain.OrderItem, error) {
	items := make([]domain.OrderItem, 0, len(cartItems))

	for _, item := range cartItems {
		resolved := domain.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Image:     item.Image,
		}

		product, err := s.catalog.FindProduct(ctx, item.ProductID)
		switch {
		case err == nil:
			resolved.Name = product.Name
			resolved.Price = product.Price
			resolved.Image = product.Image
		case errors.Is(err, catalog.ErrProductNotFound):
			// Product left the catalog since the item was added; the cart's
			// cached snapshot is the best remaining record.
		default:
			return nil, status.Errorf(codes.Unavailable, "failed to resolve product %d: %v", item.ProductID, err)
		}

		items = append(items, resolved)
	}

	return items, nil
}

// clearCart empties the cart the order was built from, saving against the
// version read at the start of checkout so a concurrent cart mutation cannot
// be silently discarded. A failed clear is logged and leaves the order's
// cart_cleared marker false; the order itself stands.
func (s *CheckoutService) clearCart(ctx context.Context, cart *domain.Cart, order *domain.Order) {
	cart.Items = []domain.CartItem{}
	cart.RecalcTotal()

	if err := s.carts.SaveCart(ctx, cart); err != nil {
		logger.Log.Error("order created but cart not cleared",
			zap.String("order_id", order.ID),
			zap.String("owner_id", cart.OwnerID),
			zap.Error(err))
		return
	}

	order.CartCleared = true
	if err := s.orders.MarkCartCleared(ctx, order.ID); err != nil {
		logger.Log.Warn("failed to mark order cart_cleared",
			zap.String("order_id", order.ID),
			zap.Error(err))
	}

	if err := s.cache.Delete(ctx, cart.OwnerID); err != nil {
		logger.Log.Warn("cache invalidate error", zap.Error(err))
	}
}

func (s *CheckoutService) publish(ctx context.Context, order *domain.Order) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderCreated(ctx, order); err != nil {
		logger.Log.Warn("failed to publish order created event",
			zap.String("order_id", order.ID),
			zap.Error(err))
	}
}
