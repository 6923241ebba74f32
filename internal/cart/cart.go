// Package cart holds a quote in progress: order metadata plus an ordered list
// of line items.
//
// A predicted price is only valid for the cart composition it was computed
// against. Every mutation (adding, replacing or removing items, clearing the
// cart, changing order metadata) bumps the cart revision and clears every
// stored price; SetPredictedPrice refuses writes computed against an older
// revision.
//
// A Cart has a single writer. Callers that share one across goroutines must
// serialize access themselves.
package cart

import (
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/Simplici0/partquote/internal/errors"
	"github.com/Simplici0/partquote/internal/registry"
)

// AggregateKind selects the cart-wide feature a deployment's model expects.
type AggregateKind string

const (
	AggregateQuantity AggregateKind = "quantity"
	AggregateVolume   AggregateKind = "volume"
)

// ParseAggregateKind accepts "quantity" and "volume".
func ParseAggregateKind(raw string) (AggregateKind, error) {
	switch AggregateKind(strings.ToLower(strings.TrimSpace(raw))) {
	case AggregateQuantity:
		return AggregateQuantity, nil
	case AggregateVolume:
		return AggregateVolume, nil
	}
	return "", pkgerrors.Newf(pkgerrors.CodeValidation, "unknown aggregate kind %q", raw)
}

// OrderParams sets the order-level metadata. Customer is looked up in the
// registry; unknown names are quoted as new customers using Country and
// Loyalty.
type OrderParams struct {
	QuoteNumber string    `json:"quote_number"`
	QuoteDate   time.Time `json:"quote_date"`
	Customer    string    `json:"customer" validate:"required"`
	Country     string    `json:"country"`
	Loyalty     *float64  `json:"loyalty" validate:"omitempty,gte=0,lte=1"`
}

// Order is the resolved order-level metadata.
type Order struct {
	QuoteNumber string    `json:"quote_number"`
	QuoteDate   time.Time `json:"quote_date"`
	Customer    string    `json:"customer"`
	Country     string    `json:"country"`
	Loyalty     float64   `json:"loyalty"`
	NewCustomer bool      `json:"new_customer"`
}

type Cart struct {
	reg       *registry.Registry
	order     Order
	items     []*LineItem
	revision  uint64
	newKey    func() string
	checkItem func(LineItem) error
	stored    string
}

// Option configures a Cart.
type Option func(*Cart)

// WithItemCheck runs check on every item before it is added or replaced,
// after its derived fields are computed. A failing check leaves the cart
// untouched.
func WithItemCheck(check func(LineItem) error) Option {
	return func(c *Cart) {
		c.checkItem = check
	}
}

// New returns an empty cart resolving materials and customers against reg.
func New(reg *registry.Registry, opts ...Option) *Cart {
	c := &Cart{
		reg:    reg,
		newKey: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Revision identifies the cart composition. It changes on every mutation.
func (c *Cart) Revision() uint64 {
	return c.revision
}

// Order returns the current order metadata.
func (c *Cart) Order() Order {
	return c.order
}

// SetOrder replaces the order metadata. A blank QuoteNumber keeps the
// current number.
func (c *Cart) SetOrder(p OrderParams) error {
	p.Customer = strings.TrimSpace(p.Customer)
	if err := validateStruct(p); err != nil {
		return err
	}
	customer, err := c.reg.ResolveCustomer(p.Customer, p.Country, p.Loyalty)
	if err != nil {
		return err
	}

	number := strings.TrimSpace(p.QuoteNumber)
	if number == "" {
		number = c.order.QuoteNumber
	}
	c.order = Order{
		QuoteNumber: number,
		QuoteDate:   p.QuoteDate,
		Customer:    customer.Name,
		Country:     customer.Country,
		Loyalty:     customer.Loyalty,
		NewCustomer: customer.New,
	}
	c.invalidate()
	return nil
}

// AssignQuoteNumber sets the quote number. Like every metadata change it
// invalidates prices, so assign before pricing.
func (c *Cart) AssignQuoteNumber(number string) {
	c.order.QuoteNumber = strings.TrimSpace(number)
	c.invalidate()
}

// StoredNumber is the quote number this cart was last stored under, or
// empty if it was never stored.
func (c *Cart) StoredNumber() string {
	return c.stored
}

// MarkStored records that the cart was stored under number. It does not
// change the revision.
func (c *Cart) MarkStored(number string) {
	c.stored = strings.TrimSpace(number)
}

// AddItem validates p, derives weight and volume, and appends the item.
func (c *Cart) AddItem(p ItemParams) (LineItem, error) {
	item, err := c.buildItem(c.newKey(), p)
	if err != nil {
		return LineItem{}, err
	}
	c.items = append(c.items, item)
	c.invalidate()
	return item.snapshot(), nil
}

// UpdateItem replaces the parameters of the item with key, keeping its
// position, and recomputes its derived fields.
func (c *Cart) UpdateItem(key string, p ItemParams) (LineItem, error) {
	idx := c.indexOf(key)
	if idx < 0 {
		return LineItem{}, pkgerrors.Newf(pkgerrors.CodeNotFound, "line item %s not found", key)
	}
	item, err := c.buildItem(key, p)
	if err != nil {
		return LineItem{}, err
	}
	c.items[idx] = item
	c.invalidate()
	return item.snapshot(), nil
}

// RemoveItem deletes the item with key.
func (c *Cart) RemoveItem(key string) error {
	idx := c.indexOf(key)
	if idx < 0 {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "line item %s not found", key)
	}
	c.items = append(c.items[:idx], c.items[idx+1:]...)
	c.invalidate()
	return nil
}

// RemoveAll empties the item list. Order metadata is kept.
func (c *Cart) RemoveAll() {
	c.items = nil
	c.invalidate()
}

// Len returns the number of line items.
func (c *Cart) Len() int {
	return len(c.items)
}

// Items returns copies of the line items in insertion order.
func (c *Cart) Items() []LineItem {
	out := make([]LineItem, len(c.items))
	for i, item := range c.items {
		out[i] = item.snapshot()
	}
	return out
}

// Item returns a copy of the item with key.
func (c *Cart) Item(key string) (LineItem, bool) {
	idx := c.indexOf(key)
	if idx < 0 {
		return LineItem{}, false
	}
	return c.items[idx].snapshot(), true
}

// TotalAggregate sums over the current items: quantities for
// AggregateQuantity, unit volume times quantity for AggregateVolume.
func (c *Cart) TotalAggregate(kind AggregateKind) (float64, error) {
	var total float64
	switch kind {
	case AggregateQuantity:
		for _, item := range c.items {
			total += float64(item.Quantity)
		}
	case AggregateVolume:
		for _, item := range c.items {
			total += item.UnitVolumeM3 * float64(item.Quantity)
		}
	default:
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown aggregate kind %q", kind)
	}
	return total, nil
}

// ClearPrices drops all stored prices without changing the revision. The
// pricing run calls it first so a failing item never keeps an old price.
func (c *Cart) ClearPrices() {
	for _, item := range c.items {
		item.PredictedPrice = nil
	}
}

// SetPredictedPrice stores price on the item with key if revision still
// matches the cart.
func (c *Cart) SetPredictedPrice(key string, price float64, revision uint64) error {
	if revision != c.revision {
		return pkgerrors.New(pkgerrors.CodeConflict, "cart changed since pricing started").
			WithDetails(map[string]any{"expected_revision": revision, "revision": c.revision})
	}
	idx := c.indexOf(key)
	if idx < 0 {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "line item %s not found", key)
	}
	p := price
	c.items[idx].PredictedPrice = &p
	return nil
}

// FullyPriced reports whether the cart is non-empty and every item is priced.
func (c *Cart) FullyPriced() bool {
	if len(c.items) == 0 {
		return false
	}
	for _, item := range c.items {
		if item.PredictedPrice == nil {
			return false
		}
	}
	return true
}

func (c *Cart) buildItem(key string, p ItemParams) (*LineItem, error) {
	item, err := newLineItem(c.reg, key, p)
	if err != nil {
		return nil, err
	}
	if c.checkItem != nil {
		if err := c.checkItem(item.snapshot()); err != nil {
			return nil, err
		}
	}
	return item, nil
}

func (c *Cart) indexOf(key string) int {
	for i, item := range c.items {
		if item.Key == key {
			return i
		}
	}
	return -1
}

func (c *Cart) invalidate() {
	c.revision++
	c.ClearPrices()
}
