package order

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/chowpati-api/internal/address"
	"github.com/noah-isme/chowpati-api/internal/cart"
	"github.com/noah-isme/chowpati-api/internal/catalog"
	"github.com/noah-isme/chowpati-api/internal/common"
	"github.com/noah-isme/chowpati-api/internal/events"
	"github.com/noah-isme/chowpati-api/internal/obs"
)

const (
	idAttempts = 5
	// coverSize is the size label whose image comes from the product cover.
	coverSize = "750 ML"
)

// Carts checks out carts. fn runs while the cart is locked and the cart is
// emptied only when fn succeeds.
type Carts interface {
	Checkout(ctx context.Context, id string, fn func(context.Context, cart.View) error) (cart.View, error)
}

// PinCodeValidator checks that a pin code is inside the delivery area.
type PinCodeValidator interface {
	Validate(ctx context.Context, pin string) (string, error)
}

// AddressBook resolves a customer's saved addresses.
type AddressBook interface {
	Get(ctx context.Context, customerID, id string) (address.Address, error)
	Default(ctx context.Context, customerID string) (address.Address, bool, error)
}

// ProductFinder matches stored order items back to catalog products.
type ProductFinder interface {
	FindByNameAndSize(ctx context.Context, name, size string) (catalog.Product, bool, error)
}

// EventEmitter publishes domain events.
type EventEmitter interface {
	Emit(ctx context.Context, topic, aggregateID string, payload any) (events.Event, error)
}

// PlaceRequest is the payload for placing an order from a cart. The delivery
// address is the saved address AddressID, else the free-form Address with
// PinCode, else the customer's default saved address.
type PlaceRequest struct {
	CartID       string `json:"cartId" validate:"required,max=64"`
	CustomerID   string `json:"customerId" validate:"required,max=64"`
	AddressID    string `json:"addressId" validate:"omitempty,max=64"`
	Address      string `json:"address" validate:"max=500"`
	PinCode      string `json:"pinCode"`
	MobileNumber string `json:"mobileNumber" validate:"omitempty,mobile"`
}

// Service places orders and serves order history.
type Service struct {
	Store     Store
	Carts     Carts
	Addresses AddressBook
	PinCodes  PinCodeValidator
	Catalog  ProductFinder
	Events   EventEmitter
	Logger   zerolog.Logger
	Now      func() time.Time
	NewID    func() string
}

// Place turns the cart into a pending order, then empties the cart.
func (s *Service) Place(ctx context.Context, req PlaceRequest) (Order, error) {
	o, err := s.place(ctx, req)
	if obs.OrdersPlacedTotal != nil {
		result := "success"
		if err != nil {
			result = "error"
		}
		obs.OrdersPlacedTotal.WithLabelValues(result).Inc()
	}
	return o, err
}

func (s *Service) place(ctx context.Context, req PlaceRequest) (Order, error) {
	if err := s.ready(); err != nil {
		return Order{}, err
	}
	req.CartID = strings.TrimSpace(req.CartID)
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	req.AddressID = strings.TrimSpace(req.AddressID)
	req.Address = strings.TrimSpace(req.Address)
	req.MobileNumber = common.DigitsOnly(req.MobileNumber)
	if err := common.Validate(req); err != nil {
		return Order{}, err
	}
	if err := s.resolveAddress(ctx, &req); err != nil {
		return Order{}, err
	}
	pin := req.PinCode
	if s.PinCodes != nil {
		normalised, err := s.PinCodes.Validate(ctx, req.PinCode)
		if err != nil {
			return Order{}, err
		}
		pin = normalised
	}

	var (
		o       Order
		created bool
	)
	_, err := s.Carts.Checkout(ctx, req.CartID, func(ctx context.Context, view cart.View) error {
		if len(view.Items) == 0 {
			return ErrEmptyCart
		}
		o = newOrder(req, pin, view, s.now().UTC())
		if err := s.create(ctx, &o); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil && !created {
		return Order{}, err
	}
	log := s.Logger.With().Str("order_id", o.ID).Str("cart_id", req.CartID).Logger()
	log.Info().Str("total", o.Total.String()).Bool("wholesale", o.IsWholesale).Msg("order placed")
	if err != nil {
		log.Warn().Err(err).Msg("clear cart after order")
	}
	if s.Events != nil {
		if _, err := s.Events.Emit(ctx, events.TopicOrderPlaced, o.ID, o); err != nil {
			log.Warn().Err(err).Msg("emit order placed")
		}
	}
	return o, nil
}

// resolveAddress fills Address and PinCode from the address book when the
// request names a saved address or carries no address at all.
func (s *Service) resolveAddress(ctx context.Context, req *PlaceRequest) error {
	var (
		saved address.Address
		found bool
	)
	switch {
	case req.AddressID != "":
		if s.Addresses == nil {
			return address.ErrNotFound
		}
		a, err := s.Addresses.Get(ctx, req.CustomerID, req.AddressID)
		if err != nil {
			return err
		}
		saved, found = a, true
	case req.Address == "" && s.Addresses != nil:
		a, ok, err := s.Addresses.Default(ctx, req.CustomerID)
		if err != nil {
			return err
		}
		saved, found = a, ok
	}
	if found {
		if req.MobileNumber != "" && saved.MobileNumber == "" {
			saved.MobileNumber = req.MobileNumber
		}
		req.Address = saved.Format()
		req.PinCode = saved.PinCode
		return nil
	}
	if req.Address == "" {
		return ErrAddressRequired
	}
	if req.MobileNumber != "" {
		req.Address += " (Mobile: " + req.MobileNumber + ")"
	}
	return nil
}

func newOrder(req PlaceRequest, pin string, view cart.View, now time.Time) Order {
	o := Order{
		CustomerID:  req.CustomerID,
		CreatedAt:   now,
		Status:      StatusPending,
		Total:       view.Totals.TotalAmount,
		TotalVolume: view.Totals.TotalVolume,
		IsWholesale: view.Totals.IsWholesale,
		Address:     req.Address,
		PinCode:     pin,
		Items:       make([]Item, 0, len(view.Items)),
	}
	for _, it := range view.Items {
		o.Items = append(o.Items, Item{
			ID:        it.ProductID + "-" + it.Size,
			ProductID: it.ProductID,
			Name:      it.Name,
			Category:  it.Category,
			Size:      it.Size,
			Quantity:  it.Quantity,
			Price:     it.UnitPrice,
			Image:     it.Image,
		})
	}
	return o
}

func (s *Service) create(ctx context.Context, o *Order) error {
	for range idAttempts {
		o.ID = s.newID()
		err := s.Store.Create(ctx, *o)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrDuplicateID) {
			return fmt.Errorf("save order: %w", err)
		}
	}
	return fmt.Errorf("save order: %w", ErrDuplicateID)
}

// History lists a customer's orders, newest first, with catalog images.
func (s *Service) History(ctx context.Context, customerID string) ([]Order, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	orders, err := s.Store.ListByCustomer(ctx, strings.TrimSpace(customerID))
	if err != nil {
		return nil, err
	}
	for i := range orders {
		s.enrich(ctx, &orders[i])
	}
	return orders, nil
}

// Get returns one order of the customer.
func (s *Service) Get(ctx context.Context, customerID, orderID string) (Order, error) {
	if err := s.ready(); err != nil {
		return Order{}, err
	}
	o, err := s.Store.Get(ctx, strings.TrimSpace(customerID), orderID)
	if err != nil {
		return Order{}, err
	}
	s.enrich(ctx, &o)
	return o, nil
}

func (s *Service) enrich(ctx context.Context, o *Order) {
	if s.Catalog == nil {
		return
	}
	for i := range o.Items {
		it := &o.Items[i]
		p, ok, err := s.Catalog.FindByNameAndSize(ctx, it.Name, it.Size)
		if err != nil {
			s.Logger.Warn().Err(err).Str("order_id", o.ID).Msg("enrich order item")
			return
		}
		if !ok {
			continue
		}
		it.Image = p.Image
		if strings.EqualFold(it.Size, coverSize) && p.Cover != "" {
			it.Image = p.Cover
		}
		if it.Category == "" {
			it.Category = p.Category
		}
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return NewID()
}

// NewID returns "ORD" followed by six random digits.
func NewID() string {
	return "ORD" + strconv.Itoa(100000+rand.IntN(900000))
}

func (s *Service) ready() error {
	if s == nil || s.Store == nil || s.Carts == nil {
		return errors.New("order service not configured")
	}
	return nil
}
