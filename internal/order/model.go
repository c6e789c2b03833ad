package order

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// StatusPending is the status of a freshly placed order.
const StatusPending = "pending"

var (
	// ErrOrderNotFound is returned when an order does not exist for the customer.
	ErrOrderNotFound = errors.New("order not found")
	// ErrEmptyCart is returned when placing an order from a cart without items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrAddressRequired is returned when an order has no delivery address and
	// the customer has no saved one.
	ErrAddressRequired = errors.New("delivery address is required")
	// ErrDuplicateID is returned by stores when the order id is already taken.
	ErrDuplicateID = errors.New("order id already exists")
)

// Item is a purchased line. Price is the unit price charged at placement.
type Item struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Size      string          `json:"size"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image,omitempty"`
}

// Order is a placed order.
type Order struct {
	ID          string          `json:"id"`
	CustomerID  string          `json:"customerId"`
	CreatedAt   time.Time       `json:"date"`
	Status      string          `json:"status"`
	Total       decimal.Decimal `json:"total"`
	TotalVolume float64         `json:"totalVolume"`
	IsWholesale bool            `json:"isWholesale"`
	Address     string          `json:"address"`
	PinCode     string          `json:"pinCode"`
	Items       []Item          `json:"items"`
}

// Store persists orders.
type Store interface {
	Create(ctx context.Context, o Order) error
	ListByCustomer(ctx context.Context, customerID string) ([]Order, error)
	Get(ctx context.Context, customerID, orderID string) (Order, error)
}
