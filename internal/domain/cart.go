package domain

import "time"

// CartItem is a line item holding a snapshot of the product's name, price and
// image taken when the item was first added. The snapshot is not refreshed when
// quantities change; checkout re-resolves against the catalog separately.
type CartItem struct {
	ID        string  `bson:"item_id" json:"id"`
	ProductID int64   `bson:"product_id" json:"productId"`
	Name      string  `bson:"name" json:"name"`
	Price     float64 `bson:"price" json:"price"`
	Quantity  int     `bson:"quantity" json:"quantity"`
	Image     string  `bson:"image" json:"image"`
}

// Cart is the per-owner mutable collection of line items. Total is derived
// state: every mutation must go through RecalcTotal before the cart is saved.
// Version backs the optimistic-concurrency write in the repository.
type Cart struct {
	ID        string     `bson:"_id,omitempty" json:"-"`
	OwnerID   string     `bson:"owner_id" json:"-"`
	Items     []CartItem `bson:"items" json:"items"`
	Total     float64    `bson:"total" json:"total"`
	Version   int64      `bson:"version" json:"-"`
	CreatedAt time.Time  `bson:"created_at" json:"-"`
	UpdatedAt time.Time  `bson:"updated_at" json:"-"`
}

// NewCart returns an empty cart for the owner.
func NewCart(ownerID string) *Cart {
	now := time.Now()
	return &Cart{
		OwnerID:   ownerID,
		Items:     []CartItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// RecalcTotal folds price*quantity over all items. There is no incremental
// arithmetic: carts are small and the full fold cannot drift.
func (c *Cart) RecalcTotal() {
	var total float64
	for _, item := range c.Items {
		total += item.Price * float64(item.Quantity)
	}
	c.Total = total
}

// FindItem returns a pointer into Items for the line item with the given id,
// or nil when no such item exists.
func (c *Cart) FindItem(itemID string) *CartItem {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return &c.Items[i]
		}
	}
	return nil
}

// FindItemByProduct returns the line item referencing productID, or nil.
func (c *Cart) FindItemByProduct(productID int64) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}
