package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"storefront/internal/cache"
	"storefront/internal/catalog"
	"storefront/internal/domain"
	"storefront/internal/repository"
	"storefront/pkg/logger"
)

// CartService owns the shopper's line items and keeps the cart total
// consistent. Every mutation is a load -> mutate -> save round trip against
// the repository; the repository's versioned save turns racing writers into
// Aborted errors instead of lost updates.
type CartService struct {
	repo    repository.CartRepository
	cache   cache.CartCache
	catalog catalog.Store
	sfg     singleflight.Group // Prevents cache stampede
}

func NewCartService(repo repository.CartRepository, cache cache.CartCache, catalog catalog.Store) *CartService {
	return &CartService{
		repo:    repo,
		cache:   cache,
		catalog: catalog,
	}
}

// GetCart returns the owner's cart, or a fresh empty cart when none exists
// yet. A missing cart is not an error and is not persisted until the first
// mutation.
func (s *CartService) GetCart(ctx context.Context, ownerID string) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(ownerID, func() (interface{}, error) {

		cart, err := s.cache.Get(ctx, ownerID)
		if err == nil {
			return cart, nil // cart is in cache
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Log.Warn("cache get error", zap.Error(err)) // log cache error but continue
		}

		cart, errLoad := s.repo.LoadCart(ctx, ownerID)
		if errLoad != nil {
			if errors.Is(errLoad, repository.ErrCartNotFound) {
				return domain.NewCart(ownerID), nil
			}
			return nil, status.Errorf(codes.Unavailable, "failed to load cart: %v", errLoad)
		}

		// set cache
		go func() {
			errSet := s.cache.Set(context.Background(), ownerID, cart)
			if errSet != nil {
				logger.Log.Warn("cache set error", zap.Error(errSet))
			}
		}()

		return cart, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// AddItem puts quantity units of the product into the owner's cart. When the
// cart already holds a line item for the product, the quantities merge and the
// existing name/price/image snapshot is kept; otherwise a new line item is
// appended with a snapshot of the product's current data.
func (s *CartService) AddItem(ctx context.Context, ownerID string, productID int64, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, status.Error(codes.InvalidArgument, "quantity must be at least 1")
	}
	if productID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "productId is required")
	}

	product, err := s.catalog.FindProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil, status.Error(codes.NotFound, "product not found")
		}
		return nil, status.Errorf(codes.Unavailable, "failed to look up product: %v", err)
	}

	cart, err := s.loadForMutation(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if item := cart.FindItemByProduct(productID); item != nil {
		item.Quantity += quantity
	} else {
		cart.Items = append(cart.Items, domain.CartItem{
			ID:        uuid.NewString(),
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  quantity,
			Image:     product.Image,
		})
	}

	cart.RecalcTotal()
	if err := s.saveCart(ctx, cart); err != nil {
		return nil, err
	}

	s.invalidateCache(ownerID)
	return cart, nil
}

// UpdateItemQuantity sets the line item's quantity to exactly the given value.
// Zero is rejected rather than treated as removal; callers remove items
// explicitly.
func (s *CartService) UpdateItemQuantity(ctx context.Context, ownerID, itemID string, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, status.Error(codes.InvalidArgument, "quantity must be at least 1")
	}

	cart, err := s.loadForMutation(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	item := cart.FindItem(itemID)
	if item == nil {
		return nil, status.Error(codes.NotFound, "item not found in cart")
	}

	item.Quantity = quantity
	cart.RecalcTotal()
	if err := s.saveCart(ctx, cart); err != nil {
		return nil, err
	}

	s.invalidateCache(ownerID)
	return cart, nil
}

// RemoveItem drops the line item with the given id, preserving the order of
// the remaining items. A no-op removal is reported as NotFound, detected by
// comparing item counts before and after.
func (s *CartService) RemoveItem(ctx context.Context, ownerID, itemID string) (*domain.Cart, error) {
	cart, err := s.loadForMutation(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	remaining := cart.Items[:0:0]
	for _, item := range cart.Items {
		if item.ID != itemID {
			remaining = append(remaining, item)
		}
	}

	if len(remaining) == len(cart.Items) {
		return nil, status.Error(codes.NotFound, "item not found in cart")
	}

	cart.Items = remaining
	cart.RecalcTotal()
	if err := s.saveCart(ctx, cart); err != nil {
		return nil, err
	}

	s.invalidateCache(ownerID)
	return cart, nil
}

// Clear empties the cart and resets the total. The cart document stays
// around; only checkout calls this.
func (s *CartService) Clear(ctx context.Context, ownerID string) error {
	cart, err := s.repo.LoadCart(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return nil // nothing to clear
		}
		return status.Errorf(codes.Unavailable, "failed to load cart: %v", err)
	}

	cart.Items = []domain.CartItem{}
	cart.RecalcTotal()
	if err := s.saveCart(ctx, cart); err != nil {
		return err
	}

	s.invalidateCache(ownerID)
	return nil
}

// loadForMutation always reads the repository, never the cache, so the save
// that follows carries the freshest version.
func (s *CartService) loadForMutation(ctx context.Context, ownerID string) (*domain.Cart, error) {
	cart, err := s.repo.LoadCart(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return domain.NewCart(ownerID), nil
		}
		return nil, status.Errorf(codes.Unavailable, "failed to load cart: %v", err)
	}
	return cart, nil
}

func (s *CartService) saveCart(ctx context.Context, cart *domain.Cart) error {
	err := s.repo.SaveCart(ctx, cart)
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrVersionConflict) {
		return status.Error(codes.Aborted, "cart was modified concurrently, retry the request")
	}
	logger.Log.Warn("failed to save cart", zap.String("owner_id", cart.OwnerID), zap.Error(err))
	return status.Errorf(codes.Unavailable, "failed to save cart: %v", err)
}

func (s *CartService) invalidateCache(ownerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, ownerID); err != nil {
		logger.Log.Warn("cache invalidate error", zap.Error(err))
	}
}
