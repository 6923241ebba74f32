// Package quotelog records priced quotes: the quote header plus one plain
// record per priced line item, written to one or more sinks.
package quotelog

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/partquote/internal/cart"
	pkgerrors "github.com/Simplici0/partquote/internal/errors"
)

const (
	numberPrefix = "Q-"
	firstNumber  = 1001
)

// Record is one priced line item as it leaves the engine.
type Record struct {
	Position   int     `json:"position" db:"position"`
	ItemID     string  `json:"item_id" db:"item_id"`
	Quantity   int     `json:"quantity" db:"quantity"`
	Shape      string  `json:"shape" db:"shape"`
	Family     string  `json:"material_family" db:"material_family"`
	Grade      string  `json:"grade" db:"grade"`
	DiameterMM float64 `json:"diameter_mm" db:"diameter_mm"`
	LengthMM   float64 `json:"length_mm" db:"length_mm"`
	WeightKg   float64 `json:"weight_kg" db:"weight_kg"`
	UnitPrice  float64 `json:"unit_price" db:"unit_price"`
	LineTotal  float64 `json:"line_total" db:"line_total"`
}

// Header is the order-level part of a logged quote.
type Header struct {
	Number      string    `json:"number" db:"number"`
	QuoteDate   time.Time `json:"quote_date" db:"quote_date"`
	Customer    string    `json:"customer" db:"customer"`
	Country     string    `json:"country" db:"country"`
	Loyalty     float64   `json:"loyalty" db:"loyalty"`
	NewCustomer bool      `json:"new_customer" db:"new_customer"`
	Model       string    `json:"model" db:"model"`
	Total       float64   `json:"total" db:"total"`
}

type Quote struct {
	Header
	Items []Record `json:"items"`
}

// Sink persists or forwards a logged quote.
type Sink interface {
	Write(ctx context.Context, q Quote) error
}

// FromCart snapshots the priced items of c. Unpriced items are skipped; a
// cart without any priced item cannot be logged.
func FromCart(c *cart.Cart, model string, decimals int32) (Quote, error) {
	order := c.Order()
	if strings.TrimSpace(order.QuoteNumber) == "" {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "quote number is required")
	}

	q := Quote{
		Header: Header{
			Number:      order.QuoteNumber,
			QuoteDate:   order.QuoteDate,
			Customer:    order.Customer,
			Country:     order.Country,
			Loyalty:     order.Loyalty,
			NewCustomer: order.NewCustomer,
			Model:       model,
		},
	}

	total := decimal.Zero
	for i, it := range c.Items() {
		if !it.Priced() {
			continue
		}
		price := decimal.NewFromFloat(*it.PredictedPrice)
		line := price.Mul(decimal.NewFromInt(int64(it.Quantity))).Round(decimals)
		total = total.Add(line)

		lineTotal, _ := line.Float64()
		q.Items = append(q.Items, Record{
			Position:   i + 1,
			ItemID:     it.ID,
			Quantity:   it.Quantity,
			Shape:      string(it.Shape),
			Family:     string(it.Family),
			Grade:      it.Grade,
			DiameterMM: it.DiameterMM,
			LengthMM:   it.LengthMM,
			WeightKg:   it.WeightKg,
			UnitPrice:  *it.PredictedPrice,
			LineTotal:  lineTotal,
		})
	}
	if len(q.Items) == 0 {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "cart has no priced items")
	}
	q.Total, _ = total.Float64()
	return q, nil
}

// FormatNumber renders a sequence number as a quote number.
func FormatNumber(seq int64) string {
	return numberPrefix + strconv.FormatInt(seq, 10)
}

// ParseNumber extracts the sequence from a generated quote number. Numbers
// entered by hand in another format report ok=false.
func ParseNumber(number string) (seq int64, ok bool) {
	rest, found := strings.CutPrefix(strings.TrimSpace(number), numberPrefix)
	if !found {
		return 0, false
	}
	n, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func (q Quote) String() string {
	return fmt.Sprintf("%s %s (%d items, total %.2f)", q.Number, q.Customer, len(q.Items), q.Total)
}
