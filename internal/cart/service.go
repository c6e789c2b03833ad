package cart

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/chowpati-api/internal/catalog"
	"github.com/noah-isme/chowpati-api/internal/events"
	"github.com/noah-isme/chowpati-api/internal/obs"
)

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// ProductResolver looks up a product and one of its sizes.
type ProductResolver interface {
	ResolveSize(ctx context.Context, productID, size string) (catalog.Product, catalog.ProductSize, error)
}

// Locker serialises work on a key across processes.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// EventEmitter publishes domain events.
type EventEmitter interface {
	Emit(ctx context.Context, topic, aggregateID string, payload any) (events.Event, error)
}

// Service loads a cart per request, applies mutations and saves it back.
type Service struct {
	Store   Store
	Catalog ProductResolver
	Locker  Locker
	Events  EventEmitter
	Logger  zerolog.Logger
	LockTTL time.Duration

	mu sync.Mutex
}

// ViewItem is a line item as returned to clients, with chargeable prices.
type ViewItem struct {
	ProductID string           `json:"productId"`
	Name      string           `json:"name"`
	Category  string           `json:"category"`
	Image     string           `json:"image"`
	Size      string           `json:"size"`
	Quantity  int              `json:"quantity"`
	Price     decimal.Decimal  `json:"price"`
	MRP       *decimal.Decimal `json:"mrp,omitempty"`
	UnitPrice decimal.Decimal  `json:"unitPrice"`
	LineTotal decimal.Decimal  `json:"lineTotal"`
}

// View is the client-facing snapshot of a cart.
type View struct {
	ID                 string         `json:"id"`
	Items              []ViewItem     `json:"items"`
	Totals             Totals         `json:"totals"`
	WholesaleShortfall float64        `json:"wholesaleShortfall"`
	Notifications      []Notification `json:"notifications,omitempty"`
}

// NewView renders a cart.
func NewView(id string, c *Cart) View {
	items := c.Items()
	view := View{
		ID:                 id,
		Items:              make([]ViewItem, 0, len(items)),
		Totals:             c.Totals(),
		WholesaleShortfall: c.WholesaleShortfall(),
	}
	for _, it := range items {
		unit := c.UnitPrice(it)
		view.Items = append(view.Items, ViewItem{
			ProductID: it.Product.ID,
			Name:      it.Product.Name,
			Category:  it.Product.Category,
			Image:     it.Product.Image,
			Size:      it.Size.Size,
			Quantity:  it.Quantity,
			Price:     it.Size.Price,
			MRP:       it.Size.MRP,
			UnitPrice: unit,
			LineTotal: unit.Mul(decimal.NewFromInt(int64(it.Quantity))),
		})
	}
	return view
}

// Create stores a new empty cart and returns its view.
func (s *Service) Create(ctx context.Context) (View, error) {
	if err := s.ready(); err != nil {
		return View{}, err
	}
	id := uuid.NewString()
	if err := s.Store.Save(ctx, id, nil); err != nil {
		return View{}, fmt.Errorf("create cart: %w", err)
	}
	return NewView(id, New()), nil
}

// Get rehydrates a cart from the store.
func (s *Service) Get(ctx context.Context, id string) (*Cart, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	items, err := s.Store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return New(WithItems(items)), nil
}

// Update applies fn to the cart and saves the result. Mutations of the same
// cart are serialised.
func (s *Service) Update(ctx context.Context, id string, fn func(*Cart)) (View, error) {
	return s.mutate(ctx, id, "update", func(_ context.Context, c *Cart) error {
		fn(c)
		return nil
	})
}

// AddItem resolves the product size through the catalog and adds one unit.
func (s *Service) AddItem(ctx context.Context, id, productID, size string) (View, error) {
	if productID == "" || size == "" {
		return View{}, fmt.Errorf("product id and size are required: %w", ErrInvalidInput)
	}
	if s.Catalog == nil {
		return View{}, errors.New("cart: catalog not configured")
	}
	return s.mutate(ctx, id, "add", func(ctx context.Context, c *Cart) error {
		product, variant, err := s.Catalog.ResolveSize(ctx, productID, size)
		if err != nil {
			return err
		}
		c.AddToCart(product, variant)
		return nil
	})
}

// AddQuantity adds qty units of a product size, one AddToCart call per unit.
func (s *Service) AddQuantity(ctx context.Context, id, productID, size string, qty int) (View, error) {
	if qty < 1 {
		return View{}, fmt.Errorf("quantity must be positive: %w", ErrInvalidInput)
	}
	if s.Catalog == nil {
		return View{}, errors.New("cart: catalog not configured")
	}
	return s.mutate(ctx, id, "add", func(ctx context.Context, c *Cart) error {
		product, variant, err := s.Catalog.ResolveSize(ctx, productID, size)
		if err != nil {
			return err
		}
		for range qty {
			c.AddToCart(product, variant)
		}
		return nil
	})
}

// RemoveItem drops a line.
func (s *Service) RemoveItem(ctx context.Context, id, productID, size string) (View, error) {
	return s.mutate(ctx, id, "remove", func(_ context.Context, c *Cart) error {
		c.RemoveFromCart(productID, size)
		return nil
	})
}

// Increase adds one unit to a line.
func (s *Service) Increase(ctx context.Context, id, productID, size string) (View, error) {
	return s.mutate(ctx, id, "increase", func(_ context.Context, c *Cart) error {
		c.IncreaseQuantity(productID, size)
		return nil
	})
}

// Decrease takes one unit from a line.
func (s *Service) Decrease(ctx context.Context, id, productID, size string) (View, error) {
	return s.mutate(ctx, id, "decrease", func(_ context.Context, c *Cart) error {
		c.DecreaseQuantity(productID, size)
		return nil
	})
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, id string) (View, error) {
	return s.mutate(ctx, id, "clear", func(_ context.Context, c *Cart) error {
		c.ClearCart()
		return nil
	})
}

// Checkout hands the current cart to fn and empties the cart once fn
// succeeds. Both happen under the cart lock, so no mutation can land between
// the snapshot and the clear. When fn fails the cart is left untouched. The
// returned view is the snapshot passed to fn.
func (s *Service) Checkout(ctx context.Context, id string, fn func(context.Context, View) error) (View, error) {
	if fn == nil {
		return View{}, fmt.Errorf("checkout callback is required: %w", ErrInvalidInput)
	}
	var snapshot View
	_, err := s.mutate(ctx, id, "checkout", func(ctx context.Context, c *Cart) error {
		snapshot = NewView(id, c)
		if err := fn(ctx, snapshot); err != nil {
			return err
		}
		c.ClearCart()
		return nil
	})
	if err != nil {
		return View{}, err
	}
	return snapshot, nil
}

// Delete removes the cart entirely.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.Store.Delete(ctx, id)
}

func (s *Service) mutate(ctx context.Context, id, op string, fn func(context.Context, *Cart) error) (View, error) {
	if err := s.ready(); err != nil {
		return View{}, err
	}
	var view View
	run := func(ctx context.Context) error {
		items, err := s.Store.Load(ctx, id)
		if err != nil {
			return err
		}
		collector := &Collector{}
		c := New(WithItems(items), WithNotifier(Notifiers{collector, s.logNotifier(id)}))
		if err := fn(ctx, c); err != nil {
			return err
		}
		if err := s.Store.Save(ctx, id, c.Items()); err != nil {
			return fmt.Errorf("save cart: %w", err)
		}
		view = NewView(id, c)
		view.Notifications = collector.Notifications()
		return nil
	}

	var err error
	if s.Locker != nil {
		err = s.Locker.WithLock(ctx, "lock:cart:"+id, s.lockTTL(), run)
	} else {
		s.mu.Lock()
		err = run(ctx)
		s.mu.Unlock()
	}
	if err != nil {
		return View{}, err
	}

	if obs.CartMutationsTotal != nil {
		obs.CartMutationsTotal.WithLabelValues(op).Inc()
	}
	if obs.CartWholesaleCarts != nil {
		obs.CartWholesaleCarts.WithLabelValues(strconv.FormatBool(view.Totals.IsWholesale)).Inc()
	}
	for _, n := range view.Notifications {
		if n.Kind == KindCleared {
			s.emitCleared(ctx, id)
			break
		}
	}
	return view, nil
}

func (s *Service) emitCleared(ctx context.Context, id string) {
	if s.Events == nil {
		return
	}
	if _, err := s.Events.Emit(ctx, events.TopicCartCleared, id, map[string]any{"cartId": id}); err != nil {
		s.Logger.Warn().Err(err).Str("cart_id", id).Msg("emit cart cleared")
	}
}

func (s *Service) logNotifier(id string) Notifier {
	logger := s.Logger
	return NotifierFunc(func(n Notification) {
		logger.Debug().Str("cart_id", id).Str("kind", string(n.Kind)).Msg(n.Message)
	})
}

func (s *Service) lockTTL() time.Duration {
	if s.LockTTL <= 0 {
		return 5 * time.Second
	}
	return s.LockTTL
}

func (s *Service) ready() error {
	if s == nil || s.Store == nil {
		return errors.New("cart service not configured")
	}
	return nil
}
