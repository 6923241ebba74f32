package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Simplici0/partquote/internal/encoding"
	"github.com/Simplici0/partquote/internal/features"
	"github.com/Simplici0/partquote/internal/logger"
	"github.com/Simplici0/partquote/internal/metrics"
	"github.com/Simplici0/partquote/internal/pricing"
	"github.com/Simplici0/partquote/internal/quotelog"
	"github.com/Simplici0/partquote/internal/registry"
)

type server struct {
	auth     *authService
	db       *sqlx.DB
	logg     *logger.Logger
	reg      *registry.Registry
	carts    *cartStore
	vocab    *encoding.Vocabularies
	columns  []features.Column
	model    string
	pricer   *pricing.Orchestrator
	quotes   *quotelog.SQLStore
	sinks    quotelog.Sink
	metrics  *metrics.PricingMetrics
	gatherer prometheus.Gatherer
	decimals int
	now      func() time.Time

	numberMu   sync.Mutex
	lastNumber int64
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID(s.logg))
	r.Use(requestLogging(s.logg))
	r.Use(recoverer(s.logg))
	r.Use(s.authMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.Route("/api", func(r chi.Router) {
		r.Get("/reference", s.handleReference)
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", s.handleCartGet)
			r.Delete("/", s.handleCartClear)
			r.Put("/order", s.handleOrderSet)
			r.Post("/items", s.handleItemAdd)
			r.Put("/items/{key}", s.handleItemUpdate)
			r.Delete("/items/{key}", s.handleItemRemove)
			r.Post("/price", s.handleCartPrice)
			r.Get("/quote.txt", s.handleCartText)
		})
	})

	r.Get("/quotes", s.handleQuotesList)
	r.Get("/quotes/{number}", s.handleQuoteDetail)
	r.Get("/quotes/{number}/quote.txt", s.handleQuoteText)

	return r
}

type sessionCtxKey struct{}

func withSession(ctx context.Context, sess session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, sess)
}

func sessionFromContext(ctx context.Context) (session, bool) {
	sess, ok := ctx.Value(sessionCtxKey{}).(session)
	return sess, ok
}

// runSweeper drops idle carts until ctx is done.
func (s *server) runSweeper(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.carts.sweep(); n > 0 {
				s.logg.Info(s.logg.WithField(ctx, "dropped", n), "carts.swept")
			}
		}
	}
}
