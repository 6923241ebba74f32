// Package pricing prices every line item of a cart against a price model.
package pricing

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/Simplici0/partquote/internal/cart"
	pkgerrors "github.com/Simplici0/partquote/internal/errors"
	"github.com/Simplici0/partquote/internal/features"
	"github.com/Simplici0/partquote/internal/logger"
	"github.com/Simplici0/partquote/internal/metrics"
)

// DefaultDecimals is the precision prices are rounded to.
const DefaultDecimals = 2

// Model turns one ordered feature row into a unit price.
type Model interface {
	Name() string
	Predict(ctx context.Context, row []float64) (float64, error)
}

// OrchestratorParams configure an Orchestrator.
type OrchestratorParams struct {
	Builder  *features.Builder
	Model    Model
	Logger   *logger.Logger
	Metrics  *metrics.PricingMetrics
	Decimals int
}

type Orchestrator struct {
	builder  *features.Builder
	model    Model
	logg     *logger.Logger
	metrics  *metrics.PricingMetrics
	decimals int32
	now      func() time.Time
}

func NewOrchestrator(params OrchestratorParams) (*Orchestrator, error) {
	if params.Builder == nil {
		return nil, fmt.Errorf("feature builder required")
	}
	if params.Model == nil {
		return nil, fmt.Errorf("price model required")
	}
	if params.Decimals < 0 || params.Decimals > 6 {
		return nil, fmt.Errorf("price decimals must be within [0,6], got %d", params.Decimals)
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Orchestrator{
		builder:  params.Builder,
		model:    params.Model,
		logg:     logg,
		metrics:  params.Metrics,
		decimals: int32(params.Decimals),
		now:      time.Now,
	}, nil
}

// ItemOutcome is the pricing result of one line item. Price is nil when Err
// is set.
type ItemOutcome struct {
	Key       string   `json:"key"`
	ID        string   `json:"id"`
	Price     *float64 `json:"price"`
	Fallbacks []string `json:"fallbacks,omitempty"`
	Err       error    `json:"-"`
}

// Result summarises one pricing run.
type Result struct {
	Revision  uint64        `json:"revision"`
	Aggregate float64       `json:"aggregate"`
	Items     []ItemOutcome `json:"items"`
}

func (r Result) Priced() int {
	n := 0
	for _, it := range r.Items {
		if it.Err == nil {
			n++
		}
	}
	return n
}

func (r Result) Failed() int {
	return len(r.Items) - r.Priced()
}

// Err combines the per-item errors, or returns nil when every item was priced.
func (r Result) Err() error {
	var errs []error
	for _, it := range r.Items {
		if it.Err != nil {
			errs = append(errs, fmt.Errorf("item %s: %w", it.ID, it.Err))
		}
	}
	return multierr.Combine(errs...)
}

// PriceCart clears every price on c and prices each item in cart order.
// A failing item keeps a nil price and does not stop the others. The
// returned error is reserved for problems that make the whole cart
// unpriceable, such as missing order metadata.
func (o *Orchestrator) PriceCart(ctx context.Context, c *cart.Cart) (Result, error) {
	c.ClearPrices()
	res := Result{Revision: c.Revision()}

	bc, err := o.builder.Context(c)
	if err != nil {
		return res, err
	}
	res.Aggregate = bc.Aggregate

	items := c.Items()
	res.Items = make([]ItemOutcome, 0, len(items))
	for _, item := range items {
		out := o.priceItem(ctx, item, bc)
		if out.Err == nil {
			if err := c.SetPredictedPrice(item.Key, *out.Price, res.Revision); err != nil {
				out.Price = nil
				out.Err = err
			}
		}
		if out.Err != nil {
			o.logItemFailure(ctx, item, out.Err)
		}
		res.Items = append(res.Items, out)
	}

	o.metrics.IncCart(res.Failed() == 0)
	o.logg.Info(o.logg.WithFields(ctx, map[string]any{
		"items":     len(res.Items),
		"priced":    res.Priced(),
		"failed":    res.Failed(),
		"aggregate": res.Aggregate,
		"model":     o.model.Name(),
	}), "pricing.cart.completed")
	return res, nil
}

func (o *Orchestrator) priceItem(ctx context.Context, item cart.LineItem, bc features.Context) ItemOutcome {
	out := ItemOutcome{Key: item.Key, ID: item.ID}

	vec, err := o.builder.BuildWith(item, bc)
	if err != nil {
		out.Err = err
		return out
	}
	out.Fallbacks = vec.Fallbacks

	start := o.now()
	raw, err := o.predict(ctx, vec.Row())
	elapsed := o.now().Sub(start)
	if err != nil {
		o.metrics.ObservePrediction(o.model.Name(), metrics.OutcomeFailed, elapsed)
		out.Err = err
		return out
	}
	outcome := metrics.OutcomeOK
	if len(vec.Fallbacks) > 0 {
		outcome = metrics.OutcomeFallback
	}
	o.metrics.ObservePrediction(o.model.Name(), outcome, elapsed)

	price := o.round(raw)
	out.Price = &price
	return out
}

func (o *Orchestrator) predict(ctx context.Context, row []float64) (price float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = pkgerrors.Newf(pkgerrors.CodePrediction, "price model panicked: %v", r)
		}
	}()

	price, err = o.model.Predict(ctx, row)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodePrediction) {
			return 0, err
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodePrediction, err, "price model call failed")
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return 0, pkgerrors.Newf(pkgerrors.CodePrediction, "price model returned unusable price %v", price)
	}
	return price, nil
}

func (o *Orchestrator) round(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(o.decimals).Float64()
	return f
}

func (o *Orchestrator) logItemFailure(ctx context.Context, item cart.LineItem, err error) {
	code := pkgerrors.CodeInternal
	if typed := pkgerrors.As(err); typed != nil {
		code = typed.Code()
	}
	o.logg.Warn(o.logg.WithFields(ctx, map[string]any{
		"item_key": item.Key,
		"item_id":  item.ID,
		"code":     string(code),
		"error":    err.Error(),
	}), "pricing.item.failed")
}
