package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Simplici0/partquote/internal/cart"
	"github.com/Simplici0/partquote/internal/config"
	"github.com/Simplici0/partquote/internal/db"
	"github.com/Simplici0/partquote/internal/logger"
	"github.com/Simplici0/partquote/internal/metrics"
	"github.com/Simplici0/partquote/internal/migrations"
	"github.com/Simplici0/partquote/internal/model"
	"github.com/Simplici0/partquote/internal/pricing"
	"github.com/Simplici0/partquote/internal/quotelog"
	"github.com/Simplici0/partquote/internal/registry"
	"github.com/Simplici0/partquote/internal/seed"
)

const (
	serviceName   = "partquote"
	cartIdleTTL   = 8 * time.Hour
	sweepInterval = 15 * time.Minute
)

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	for _, w := range cfg.Warnings() {
		logg.Warn(context.Background(), w)
	}

	database, err := db.Open(cfg.DB.Path)
	if err != nil {
		logg.Error(context.Background(), "failed to open database", err)
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrations.Up(database.DB, cfg.DB.MigrationsDir); err != nil {
		logg.Error(context.Background(), "failed to run database migrations", err)
		os.Exit(1)
	}

	stats, err := seed.Run(database, seed.Config{
		AdminEmail:    cfg.Auth.AdminEmail,
		AdminPassword: cfg.Auth.AdminPassword,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to seed database", err)
		os.Exit(1)
	}
	logg.Info(logg.WithFields(context.Background(), map[string]any{
		"inserts": stats.Inserts,
		"updates": stats.Updates,
	}), "seed.completed")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := newServer(ctx, cfg, logg, database)
	if err != nil {
		logg.Error(ctx, "failed to build server", err)
		os.Exit(1)
	}
	go srv.runSweeper(ctx, sweepInterval)

	addr := ":" + cfg.App.Port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":   cfg.App.Env,
		"addr":  addr,
		"model": srv.model,
	})
	logg.Info(logCtx, "starting quote server")

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(logCtx, "quote server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// newServer loads the model manifest and wires the pricing pipeline.
func newServer(ctx context.Context, cfg *config.Config, logg *logger.Logger, database *sqlx.DB) (*server, error) {
	manifest, err := model.LoadManifest(cfg.Model.Manifest)
	if err != nil {
		return nil, err
	}
	vocab, err := manifest.Encoder(cfg.Pricing.Fallback)
	if err != nil {
		return nil, fmt.Errorf("build vocabularies: %w", err)
	}
	aggregate, err := manifest.AggregateKind(cfg.Pricing.Aggregate)
	if err != nil {
		return nil, err
	}
	builder, err := manifest.Builder(vocab, aggregate)
	if err != nil {
		return nil, fmt.Errorf("build feature builder: %w", err)
	}

	priceModel, err := loadModel(ctx, cfg.Model, manifest)
	if err != nil {
		return nil, err
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	pricingMetrics := metrics.NewPricingMetrics(promReg)

	pricer, err := pricing.NewOrchestrator(pricing.OrchestratorParams{
		Builder:  builder,
		Model:    priceModel,
		Logger:   logg,
		Metrics:  pricingMetrics,
		Decimals: cfg.Pricing.Decimals,
	})
	if err != nil {
		return nil, err
	}

	var sinks quotelog.MultiSink
	if cfg.LogSink.URL != "" {
		httpSink, err := quotelog.NewHTTPSink(cfg.LogSink.URL, quotelog.WithRetries(cfg.LogSink.Retries))
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, httpSink)
	}

	reg := registry.Default()
	s := &server{
		auth:     newAuthService(database, cfg.Auth.SessionSecret, cfg.App.IsProd()),
		db:       database,
		logg:     logg,
		reg:      reg,
		carts:    newCartStore(reg, cartIdleTTL, cart.WithItemCheck(builder.CheckItem)),
		vocab:    vocab,
		columns:  manifest.Columns(),
		model:    manifest.Label(),
		pricer:   pricer,
		quotes:   quotelog.NewSQLStore(database),
		metrics:  pricingMetrics,
		gatherer: promReg,
		decimals: cfg.Pricing.Decimals,
		now:      time.Now,
	}
	if len(sinks) > 0 {
		s.sinks = sinks
	}
	return s, nil
}

// loadModel returns the remote model when a URL is configured, otherwise
// the manifest's embedded linear model.
func loadModel(ctx context.Context, cfg config.ModelConfig, manifest *model.Manifest) (pricing.Model, error) {
	if cfg.URL == "" {
		linear, err := manifest.LinearModel()
		if err != nil {
			return nil, err
		}
		return linear, nil
	}
	client, err := model.NewHTTPClient(cfg.URL, manifest.Label(), model.WithTimeout(cfg.Timeout))
	if err != nil {
		return nil, err
	}
	if err := client.VerifyColumns(ctx, manifest); err != nil {
		return nil, err
	}
	return client, nil
}
