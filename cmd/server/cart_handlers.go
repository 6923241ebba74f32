package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/partquote/internal/cart"
	pkgerrors "github.com/Simplici0/partquote/internal/errors"
	"github.com/Simplici0/partquote/internal/export"
	"github.com/Simplici0/partquote/internal/features"
	"github.com/Simplici0/partquote/internal/geometry"
	"github.com/Simplici0/partquote/internal/pricing"
	"github.com/Simplici0/partquote/internal/quotelog"
	"github.com/Simplici0/partquote/internal/registry"
)

const dateLayout = "2006-01-02"

type familyView struct {
	Family registry.Family  `json:"family"`
	Grades []registry.Grade `json:"grades"`
}

type modelView struct {
	Name    string            `json:"name"`
	Columns []features.Column `json:"columns"`
}

type referenceView struct {
	Families     []familyView        `json:"families"`
	Shapes       []geometry.Shape    `json:"shapes"`
	Customers    []registry.Customer `json:"customers"`
	Vocabularies map[string][]string `json:"vocabularies"`
	Model        modelView           `json:"model"`
}

func (s *server) handleReference(w http.ResponseWriter, r *http.Request) {
	view := referenceView{
		Shapes:       geometry.Shapes(),
		Customers:    s.reg.Customers(),
		Vocabularies: make(map[string][]string),
		Model:        modelView{Name: s.model, Columns: s.columns},
	}
	for _, f := range s.reg.Families() {
		view.Families = append(view.Families, familyView{Family: f, Grades: s.reg.Grades(f)})
	}
	for _, f := range s.vocab.Features() {
		view.Vocabularies[f] = s.vocab.KnownValues(f)
	}
	writeSuccess(w, view)
}

type itemView struct {
	cart.LineItem
	LineTotal *float64 `json:"line_total"`
}

type cartView struct {
	Order       cart.Order `json:"order"`
	Items       []itemView `json:"items"`
	Revision    uint64     `json:"revision"`
	FullyPriced bool       `json:"fully_priced"`
	Total       *float64   `json:"total"`
}

func (s *server) viewCart(c *cart.Cart) cartView {
	view := cartView{
		Order:       c.Order(),
		Items:       make([]itemView, 0, c.Len()),
		Revision:    c.Revision(),
		FullyPriced: c.FullyPriced(),
	}
	total := decimal.Zero
	for _, it := range c.Items() {
		iv := itemView{LineItem: it}
		if line, ok := it.LineTotal(); ok {
			rounded := decimal.NewFromFloat(line).Round(int32(s.decimals))
			f, _ := rounded.Float64()
			iv.LineTotal = &f
			total = total.Add(rounded)
		}
		view.Items = append(view.Items, iv)
	}
	if view.FullyPriced {
		f, _ := total.Float64()
		view.Total = &f
	}
	return view
}

// withCart runs fn on the caller's cart while holding its session lock.
func (s *server) withCart(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, c *cart.Cart)) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(r.Context(), s.logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required"))
		return
	}
	cs := s.carts.acquire(sess.ID)
	defer cs.release()
	fn(r.Context(), cs.cart)
}

func (s *server) handleCartGet(w http.ResponseWriter, r *http.Request) {
	s.withCart(w, r, func(_ context.Context, c *cart.Cart) {
		writeSuccess(w, s.viewCart(c))
	})
}

func (s *server) handleCartClear(w http.ResponseWriter, r *http.Request) {
	s.withCart(w, r, func(_ context.Context, c *cart.Cart) {
		c.RemoveAll()
		writeSuccess(w, s.viewCart(c))
	})
}

type orderRequest struct {
	QuoteNumber string   `json:"quote_number"`
	QuoteDate   string   `json:"quote_date"`
	Customer    string   `json:"customer"`
	Country     string   `json:"country"`
	Loyalty     *float64 `json:"loyalty"`
}

func (s *server) parseOrder(req orderRequest) (cart.OrderParams, error) {
	p := cart.OrderParams{
		QuoteNumber: req.QuoteNumber,
		Customer:    req.Customer,
		Country:     req.Country,
		Loyalty:     req.Loyalty,
	}
	raw := strings.TrimSpace(req.QuoteDate)
	if raw == "" {
		now := s.now()
		p.QuoteDate = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return p, nil
	}
	date, err := time.Parse(dateLayout, raw)
	if err != nil {
		return p, pkgerrors.New(pkgerrors.CodeValidation, "invalid quote date").
			WithDetails(map[string]string{"quote_date": "must be YYYY-MM-DD"})
	}
	p.QuoteDate = date
	return p, nil
}

func (s *server) handleOrderSet(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}
	params, err := s.parseOrder(req)
	if err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}
	s.withCart(w, r, func(ctx context.Context, c *cart.Cart) {
		if err := s.checkQuoteNumber(ctx, c, params.QuoteNumber, true); err != nil {
			writeError(ctx, s.logg, w, err)
			return
		}
		if err := c.SetOrder(params); err != nil {
			writeError(ctx, s.logg, w, err)
			return
		}
		writeSuccess(w, s.viewCart(c))
	})
}

// checkQuoteNumber rejects a quote number the cart may not store under: a
// number stored by another cart, or, for numbers typed in by the user, one
// in the generated Q-<n> format that the server did not hand to this cart.
func (s *server) checkQuoteNumber(ctx context.Context, c *cart.Cart, number string, userSupplied bool) error {
	number = strings.TrimSpace(number)
	if number == "" || number == c.StoredNumber() {
		return nil
	}
	if _, generated := quotelog.ParseNumber(number); generated && userSupplied && number != c.Order().QuoteNumber {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "quote number %s is reserved for generated numbers", number).
			WithDetails(map[string]string{"quote_number": "Q-<n> numbers are assigned automatically"})
	}
	exists, err := s.quotes.Exists(ctx, number)
	if err != nil {
		return err
	}
	if exists {
		return pkgerrors.Newf(pkgerrors.CodeConflict, "quote %s already exists", number).
			WithDetails(map[string]string{"quote_number": number})
	}
	return nil
}

func (s *server) handleItemAdd(w http.ResponseWriter, r *http.Request) {
	var p cart.ItemParams
	if err := decodeJSON(r, &p); err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}
	s.withCart(w, r, func(ctx context.Context, c *cart.Cart) {
		item, err := c.AddItem(p)
		if err != nil {
			writeError(ctx, s.logg, w, err)
			return
		}
		writeSuccessStatus(w, http.StatusCreated, item)
	})
}

func (s *server) handleItemUpdate(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var p cart.ItemParams
	if err := decodeJSON(r, &p); err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}
	s.withCart(w, r, func(ctx context.Context, c *cart.Cart) {
		item, err := c.UpdateItem(key, p)
		if err != nil {
			writeError(ctx, s.logg, w, err)
			return
		}
		writeSuccess(w, item)
	})
}

func (s *server) handleItemRemove(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	s.withCart(w, r, func(ctx context.Context, c *cart.Cart) {
		if err := c.RemoveItem(key); err != nil {
			writeError(ctx, s.logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

type outcomeView struct {
	Key       string    `json:"key"`
	ID        string    `json:"id"`
	Price     *float64  `json:"price"`
	LineTotal *float64  `json:"line_total"`
	Fallbacks []string  `json:"fallbacks,omitempty"`
	Error     *apiError `json:"error,omitempty"`
}

type priceView struct {
	QuoteNumber string        `json:"quote_number"`
	Revision    uint64        `json:"revision"`
	Aggregate   float64       `json:"aggregate"`
	Priced      int           `json:"priced"`
	Failed      int           `json:"failed"`
	Items       []outcomeView `json:"items"`
	Total       *float64      `json:"total"`
	Logged      bool          `json:"logged"`
}

func (s *server) handleCartPrice(w http.ResponseWriter, r *http.Request) {
	s.withCart(w, r, func(ctx context.Context, c *cart.Cart) {
		if c.Len() == 0 {
			writeError(ctx, s.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty"))
			return
		}
		if c.Order().Customer == "" {
			writeError(ctx, s.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order details are required"))
			return
		}
		if c.Order().QuoteNumber == "" {
			number, err := s.nextQuoteNumber(ctx)
			if err != nil {
				writeError(ctx, s.logg, w, err)
				return
			}
			c.AssignQuoteNumber(number)
		} else if err := s.checkQuoteNumber(ctx, c, c.Order().QuoteNumber, false); err != nil {
			writeError(ctx, s.logg, w, err)
			return
		}
		ctx = s.logg.WithQuote(ctx, c.Order().QuoteNumber)

		res, err := s.pricer.PriceCart(ctx, c)
		if err != nil {
			writeError(ctx, s.logg, w, err)
			return
		}

		view := priceView{
			QuoteNumber: c.Order().QuoteNumber,
			Revision:    res.Revision,
			Aggregate:   res.Aggregate,
			Priced:      res.Priced(),
			Failed:      res.Failed(),
			Items:       s.outcomeViews(res),
		}
		if res.Priced() > 0 {
			if q, ok := s.snapshotQuote(ctx, c); ok {
				view.Logged = s.logQuote(ctx, c, q)
				if res.Failed() == 0 {
					total := q.Total
					view.Total = &total
				}
			}
		}
		writeSuccess(w, view)
	})
}

func (s *server) outcomeViews(res pricing.Result) []outcomeView {
	out := make([]outcomeView, 0, len(res.Items))
	for _, it := range res.Items {
		ov := outcomeView{Key: it.Key, ID: it.ID, Price: it.Price, Fallbacks: it.Fallbacks}
		if it.Err != nil {
			typed := pkgerrors.As(it.Err)
			if typed == nil {
				typed = pkgerrors.Wrap(pkgerrors.CodeInternal, it.Err, "unexpected error")
			}
			ov.Error = &apiError{Code: string(typed.Code()), Message: typed.Message(), Details: typed.Details()}
		}
		out = append(out, ov)
	}
	return out
}

// snapshotQuote captures the priced cart for the quote log. A cart that
// cannot be captured is logged and skipped.
func (s *server) snapshotQuote(ctx context.Context, c *cart.Cart) (quotelog.Quote, bool) {
	q, err := quotelog.FromCart(c, s.model, int32(s.decimals))
	if err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"error":        err.Error(),
			"quote_number": c.Order().QuoteNumber,
			"revision":     c.Revision(),
		}), "quotelog.snapshot.failed")
		return quotelog.Quote{}, false
	}
	return q, true
}

// logQuote persists q and forwards it to the extra sinks. Only the number
// the cart was last stored under is replaced; any other number must be new.
// Failures are logged only; the priced cart is returned either way.
func (s *server) logQuote(ctx context.Context, c *cart.Cart, q quotelog.Quote) bool {
	var err error
	if q.Number == c.StoredNumber() {
		_, err = s.quotes.SaveQuote(ctx, q)
	} else {
		_, err = s.quotes.CreateQuote(ctx, q)
	}
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "quotelog.store.failed")
		return false
	}
	c.MarkStored(q.Number)
	s.metrics.IncQuoteLogged()
	if s.sinks != nil {
		if err := s.sinks.Write(ctx, q); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "quotelog.sink.failed")
		}
	}
	return true
}

// nextQuoteNumber hands out generated numbers. Numbers are reserved in
// memory until the quote is stored so concurrent carts never share one.
func (s *server) nextQuoteNumber(ctx context.Context) (string, error) {
	s.numberMu.Lock()
	defer s.numberMu.Unlock()

	number, err := s.quotes.NextQuoteNumber(ctx)
	if err != nil {
		return "", err
	}
	seq, _ := quotelog.ParseNumber(number)
	if seq <= s.lastNumber {
		seq = s.lastNumber + 1
	}
	s.lastNumber = seq
	return quotelog.FormatNumber(seq), nil
}

func (s *server) handleCartText(w http.ResponseWriter, r *http.Request) {
	s.withCart(w, r, func(ctx context.Context, c *cart.Cart) {
		q, err := quotelog.FromCart(c, s.model, int32(s.decimals))
		if err != nil {
			writeError(ctx, s.logg, w, err)
			return
		}
		writeText(ctx, s, w, q)
	})
}

func writeText(ctx context.Context, s *server, w http.ResponseWriter, q quotelog.Quote) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := export.RenderText(w, q, s.decimals); err != nil {
		s.logg.Error(ctx, "quote.render.failed", err)
	}
}
