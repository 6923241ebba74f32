// Package features turns a cart line item into the ordered numeric row a
// price model consumes.
//
// The column list comes from the model, never from this package: each column
// names the model's own label and the catalog Source that feeds it. Binding a
// column to an unknown source fails when the Builder is created, so a model
// whose schema drifted is rejected before any item is priced.
package features

import (
	"strconv"
	"strings"

	"github.com/Simplici0/partquote/internal/cart"
	"github.com/Simplici0/partquote/internal/encoding"
	pkgerrors "github.com/Simplici0/partquote/internal/errors"
)

// DefaultOutcome is the commercial outcome assumed at quoting time ("A", accepted).
const DefaultOutcome = "A"

// Column binds a model column to a catalog source.
type Column struct {
	Name   string `yaml:"name" json:"name"`
	Source Source `yaml:"source" json:"source"`
}

type Options struct {
	Aggregate cart.AggregateKind
	Outcome   string
}

type Builder struct {
	columns []Column
	enc     encoding.Encoder
	opts    Options
}

// lookuper is implemented by encoders that can tell a fallback from a hit.
type lookuper interface {
	Lookup(feature, value string) (float64, bool, error)
}

// NewBuilder validates the column binding. A column with an empty Source
// binds to the source of the same name.
func NewBuilder(columns []Column, enc encoding.Encoder, opts Options) (*Builder, error) {
	if len(columns) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEncoding, "model declares no feature columns")
	}
	if enc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeEncoding, "encoder is required")
	}
	if _, err := cart.ParseAggregateKind(string(opts.Aggregate)); err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.Outcome) == "" {
		opts.Outcome = DefaultOutcome
	}

	bound := make([]Column, 0, len(columns))
	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		name := strings.TrimSpace(col.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeEncoding, "feature column without a name")
		}
		if seen[name] {
			return nil, pkgerrors.Newf(pkgerrors.CodeEncoding, "duplicate feature column %s", name)
		}
		seen[name] = true

		src := col.Source
		if src == "" {
			src = Source(name)
		}
		if !Known(src) {
			return nil, pkgerrors.Newf(pkgerrors.CodeEncoding, "feature column %s has unknown source %s", name, src).
				WithDetails(map[string]any{"column": name, "source": string(src)})
		}
		if Categorical(src) && enc.KnownValues(name) == nil {
			return nil, pkgerrors.Newf(pkgerrors.CodeEncoding, "categorical column %s has no vocabulary", name).
				WithDetails(map[string]any{"column": name})
		}
		bound = append(bound, Column{Name: name, Source: src})
	}

	return &Builder{columns: bound, enc: enc, opts: opts}, nil
}

// Columns returns the bound columns in model order.
func (b *Builder) Columns() []Column {
	out := make([]Column, len(b.columns))
	copy(out, b.columns)
	return out
}

// Aggregate returns the cart-wide aggregate kind the builder uses.
func (b *Builder) Aggregate() cart.AggregateKind {
	return b.opts.Aggregate
}

// Context is the part of a feature vector shared by every item of a cart.
type Context struct {
	Order     cart.Order
	Quarter   int
	Month     int
	Aggregate float64
}

// Context derives the order-level features from the cart's current state.
func (b *Builder) Context(c *cart.Cart) (Context, error) {
	order := c.Order()
	if order.QuoteDate.IsZero() {
		return Context{}, pkgerrors.New(pkgerrors.CodeValidation, "quote date is required").
			WithDetails(map[string]string{"quote_date": "is required"})
	}
	if strings.TrimSpace(order.Country) == "" {
		return Context{}, pkgerrors.New(pkgerrors.CodeValidation, "customer country is required").
			WithDetails(map[string]string{"country": "is required"})
	}
	aggregate, err := c.TotalAggregate(b.opts.Aggregate)
	if err != nil {
		return Context{}, err
	}

	month := int(order.QuoteDate.Month())
	return Context{
		Order:     order,
		Quarter:   (month-1)/3 + 1,
		Month:     month,
		Aggregate: aggregate,
	}, nil
}

// Build returns the feature vector of item within cart c.
func (b *Builder) Build(item cart.LineItem, c *cart.Cart) (FeatureVector, error) {
	bc, err := b.Context(c)
	if err != nil {
		return FeatureVector{}, err
	}
	return b.BuildWith(item, bc)
}

// BuildWith is Build with a precomputed cart context.
func (b *Builder) BuildWith(item cart.LineItem, bc Context) (FeatureVector, error) {
	vec := FeatureVector{
		Names:  make([]string, len(b.columns)),
		Values: make([]float64, len(b.columns)),
	}
	for i, col := range b.columns {
		vec.Names[i] = col.Name

		if Categorical(col.Source) {
			raw, err := b.categoricalValue(col, item, bc)
			if err != nil {
				return FeatureVector{}, err
			}
			code, fellBack, err := b.encode(col.Name, raw)
			if err != nil {
				return FeatureVector{}, err
			}
			if fellBack {
				vec.Fallbacks = append(vec.Fallbacks, col.Name)
			}
			vec.Values[i] = code
			continue
		}

		vec.Values[i] = numericValue(col.Source, item, bc)
	}
	return vec, nil
}

// CheckItem verifies that item carries every item-level categorical value
// the model binds and that each one encodes under the current fallback
// policy. Carts run it when an item is added or replaced so a bad item is
// rejected before pricing.
func (b *Builder) CheckItem(item cart.LineItem) error {
	for _, col := range b.columns {
		if !Categorical(col.Source) || !itemLevel(col.Source) {
			continue
		}
		raw, err := b.categoricalValue(col, item, Context{})
		if err != nil {
			return err
		}
		if _, _, err := b.encode(col.Name, raw); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) categoricalValue(col Column, item cart.LineItem, bc Context) (string, error) {
	var raw string
	switch col.Source {
	case CustomerCountry:
		raw = bc.Order.Country
	case Outcome:
		raw = b.opts.Outcome
	case ComplexityLabel:
		raw = strconv.Itoa(item.Complexity)
	case MaterialFamily:
		raw = string(item.Family)
	case MaterialGrade:
		raw = item.Grade
	case Shape:
		raw = string(item.Shape)
	}
	if strings.TrimSpace(raw) == "" {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "%s is required by the model", col.Source).
			WithDetails(map[string]string{string(col.Source): "is required"})
	}
	return raw, nil
}

func (b *Builder) encode(feature, raw string) (float64, bool, error) {
	if l, ok := b.enc.(lookuper); ok {
		code, known, err := l.Lookup(feature, raw)
		return code, !known && err == nil, err
	}
	code, err := b.enc.Encode(feature, raw)
	return code, false, err
}

func numericValue(src Source, item cart.LineItem, bc Context) float64 {
	switch src {
	case QuoteQuarter:
		return float64(bc.Quarter)
	case QuoteMonth:
		return float64(bc.Month)
	case QuoteTimestamp:
		return float64(bc.Order.QuoteDate.Unix())
	case CartAggregate:
		return bc.Aggregate
	case CustomerLoyalty:
		return bc.Order.Loyalty
	case Quantity:
		return float64(item.Quantity)
	case TimePerUnit:
		return item.TimePerUnitH
	case CooperationCost:
		return item.CooperationCost
	case Complexity:
		return float64(item.Complexity)
	case Diameter:
		return item.DiameterMM
	case Length:
		return item.LengthMM
	case Density:
		return item.Density
	case MaterialCost:
		return item.MaterialCost
	case Weight:
		return item.WeightKg
	}
	return 0
}
