package cart

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/chowpati-api/internal/catalog"
	"github.com/noah-isme/chowpati-api/internal/pricing"
)

// LineItem is one product size in the cart with its quantity.
type LineItem struct {
	Product  catalog.Product     `json:"product"`
	Size     catalog.ProductSize `json:"selectedSize"`
	Quantity int                 `json:"quantity"`
}

func (li LineItem) matches(productID, size string) bool {
	return li.Product.ID == productID && li.Size.Size == size
}

func (li LineItem) pricingLine() pricing.Line {
	return pricing.Line{
		Category: li.Product.Category,
		Size:     li.Size.Size,
		Price:    li.Size.Price,
		MRP:      li.Size.MRP,
		Qty:      li.Quantity,
	}
}

// Totals are the derived cart figures, recomputed after every mutation.
type Totals = pricing.Summary

// Cart holds line items for one session and keeps its totals in sync.
// All methods are safe for concurrent use.
type Cart struct {
	mu       sync.Mutex
	items    []LineItem
	totals   Totals
	notifier Notifier

	subs    map[int]func(Totals)
	nextSub int
}

// Option configures a Cart.
type Option func(*Cart)

// WithNotifier sets the sink for user-facing messages.
func WithNotifier(n Notifier) Option {
	return func(c *Cart) { c.notifier = n }
}

// WithItems seeds the cart, e.g. from a persisted snapshot. Lines sharing a
// product id and size are merged and non-positive quantities are dropped.
func WithItems(items []LineItem) Option {
	return func(c *Cart) {
		for _, it := range items {
			if it.Quantity < 1 {
				continue
			}
			if i := c.indexOf(it.Product.ID, it.Size.Size); i >= 0 {
				c.items[i].Quantity += it.Quantity
				continue
			}
			c.items = append(c.items, it)
		}
	}
}

// New constructs a cart.
func New(opts ...Option) *Cart {
	c := &Cart{subs: make(map[int]func(Totals))}
	for _, opt := range opts {
		opt(c)
	}
	c.recompute()
	return c
}

// AddToCart adds one unit of the product size.
func (c *Cart) AddToCart(product catalog.Product, size catalog.ProductSize) {
	c.mu.Lock()
	var note Notification
	if i := c.indexOf(product.ID, size.Size); i >= 0 {
		c.items[i].Quantity++
		note = Notification{Level: LevelSuccess, Kind: KindAddedAnother,
			Message: fmt.Sprintf("Added another %s (%s) to cart", product.Name, size.Size)}
	} else {
		c.items = append(c.items, LineItem{Product: product, Size: size, Quantity: 1})
		note = Notification{Level: LevelSuccess, Kind: KindAdded,
			Message: fmt.Sprintf("%s (%s) added to cart", product.Name, size.Size)}
	}
	c.commit(&note)
}

// RemoveFromCart drops the matching line.
func (c *Cart) RemoveFromCart(productID, size string) {
	c.mu.Lock()
	i := c.indexOf(productID, size)
	if i < 0 {
		c.mu.Unlock()
		return
	}
	c.removeAt(i)
	c.commit(removedNote())
}

// IncreaseQuantity adds one to the matching line.
func (c *Cart) IncreaseQuantity(productID, size string) {
	c.mu.Lock()
	i := c.indexOf(productID, size)
	if i < 0 {
		c.mu.Unlock()
		return
	}
	c.items[i].Quantity++
	c.commit(nil)
}

// DecreaseQuantity takes one from the matching line, removing it at zero.
func (c *Cart) DecreaseQuantity(productID, size string) {
	c.mu.Lock()
	i := c.indexOf(productID, size)
	if i < 0 {
		c.mu.Unlock()
		return
	}
	if c.items[i].Quantity > 1 {
		c.items[i].Quantity--
		c.commit(nil)
		return
	}
	c.removeAt(i)
	c.commit(removedNote())
}

// ClearCart empties the cart. The notification is sent on every call.
func (c *Cart) ClearCart() {
	c.mu.Lock()
	changed := len(c.items) > 0
	c.items = nil
	note := &Notification{Level: LevelInfo, Kind: KindCleared, Message: "Cart cleared"}
	if changed {
		c.commit(note)
		return
	}
	notifier := c.notifier
	c.mu.Unlock()
	if notifier != nil {
		notifier.Notify(*note)
	}
}

// Items returns a copy of the line items in insertion order.
func (c *Cart) Items() []LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]LineItem(nil), c.items...)
}

// Totals returns the totals as of the last mutation.
func (c *Cart) Totals() Totals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totals
}

// UnitPrice is the chargeable price of one unit of the line under the
// current cart-wide wholesale flag.
func (c *Cart) UnitPrice(item LineItem) decimal.Decimal {
	c.mu.Lock()
	wholesale := c.totals.IsWholesale
	c.mu.Unlock()
	return pricing.UnitPrice(item.pricingLine(), wholesale)
}

// WholesaleShortfall is the 5-liter tier volume still needed for wholesale
// pricing.
func (c *Cart) WholesaleShortfall() float64 {
	return pricing.Shortfall(c.Totals())
}

// Subscribe registers fn to be called with fresh totals after each change to
// the line items. The returned func removes the subscription.
func (c *Cart) Subscribe(fn func(Totals)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func removedNote() *Notification {
	return &Notification{Level: LevelInfo, Kind: KindRemoved, Message: "Item removed from cart"}
}

func (c *Cart) indexOf(productID, size string) int {
	for i, it := range c.items {
		if it.matches(productID, size) {
			return i
		}
	}
	return -1
}

func (c *Cart) removeAt(i int) {
	c.items = append(c.items[:i], c.items[i+1:]...)
}

func (c *Cart) recompute() {
	lines := make([]pricing.Line, 0, len(c.items))
	for _, it := range c.items {
		lines = append(lines, it.pricingLine())
	}
	c.totals = pricing.Compute(lines)
}

// commit recomputes totals, releases the lock held by the caller, then
// delivers the notification and subscriber callbacks outside the lock.
func (c *Cart) commit(note *Notification) {
	c.recompute()
	totals := c.totals
	notifier := c.notifier
	subs := make([]func(Totals), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	if note != nil && notifier != nil {
		notifier.Notify(*note)
	}
	for _, fn := range subs {
		fn(totals)
	}
}
