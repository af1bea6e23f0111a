package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNoItems           = errors.New("order has no items")
	ErrBlankCustomerName = errors.New("customer name is blank")
	ErrInvalidEmail      = errors.New("customer email is invalid")
)

// Accepts the basic local@domain.tld shape, nothing stricter.
var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type OrderItem struct {
	ProductID int64   `bson:"product_id" json:"productId"`
	Name      string  `bson:"name" json:"name"`
	Price     float64 `bson:"price" json:"price"`
	Quantity  int     `bson:"quantity" json:"quantity"`
	Image     string  `bson:"image" json:"image"`
}

// Order is an immutable purchase record snapshotted from a cart at checkout
// time. It never references the cart it came from. CartCleared marks whether
// the owning cart was emptied after the order was persisted; false flags the
// non-atomic checkout boundary for reconciliation.
type Order struct {
	ID            string      `bson:"_id" json:"orderId"`
	OwnerID       string      `bson:"owner_id" json:"-"`
	Items         []OrderItem `bson:"items" json:"items"`
	Total         float64     `bson:"total" json:"total"`
	CustomerName  string      `bson:"customer_name" json:"customerName"`
	CustomerEmail string      `bson:"customer_email" json:"customerEmail"`
	Timestamp     time.Time   `bson:"timestamp" json:"timestamp"`
	CartCleared   bool        `bson:"cart_cleared" json:"-"`
}

// ValidateCustomer checks the customer details against the order
// preconditions: a non-blank name and an email of the basic shape, both after
// trimming.
func ValidateCustomer(customerName, customerEmail string) error {
	if strings.TrimSpace(customerName) == "" {
		return ErrBlankCustomerName
	}
	if !emailRe.MatchString(strings.TrimSpace(customerEmail)) {
		return ErrInvalidEmail
	}
	return nil
}

// NewOrder validates the customer details, computes and freezes the total and
// stamps a fresh id and timestamp. Item order is preserved as given.
func NewOrder(ownerID string, items []OrderItem, customerName, customerEmail string) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}

	if err := ValidateCustomer(customerName, customerEmail); err != nil {
		return nil, err
	}

	customerName = strings.TrimSpace(customerName)
	customerEmail = strings.TrimSpace(customerEmail)

	var total float64
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}

	return &Order{
		ID:            uuid.NewString(),
		OwnerID:       ownerID,
		Items:         items,
		Total:         total,
		CustomerName:  customerName,
		CustomerEmail: customerEmail,
		Timestamp:     time.Now(),
	}, nil
}
