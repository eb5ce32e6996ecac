package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/Tooba-Farooq/4eyes/internal/account"
	"github.com/Tooba-Farooq/4eyes/internal/catalog"
	"github.com/Tooba-Farooq/4eyes/internal/config"
	"github.com/Tooba-Farooq/4eyes/internal/db"
	"github.com/Tooba-Farooq/4eyes/internal/dedup"
	"github.com/Tooba-Farooq/4eyes/internal/events"
	httpapi "github.com/Tooba-Farooq/4eyes/internal/http"
	"github.com/Tooba-Farooq/4eyes/internal/inventory"
	"github.com/Tooba-Farooq/4eyes/internal/logging"
	"github.com/Tooba-Farooq/4eyes/internal/metrics"
	"github.com/Tooba-Farooq/4eyes/internal/order"
	"github.com/Tooba-Farooq/4eyes/internal/payment"
	"github.com/Tooba-Farooq/4eyes/internal/sequence"
)

type publisher interface {
	order.EventPublisher
	payment.EventPublisher
	Close() error
}

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Production(), "storefront")
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("storefront stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			return err
		}
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	rec := metrics.New()

	var pub publisher = events.Noop{}
	if cfg.RabbitURL != "" {
		conn, err := events.DialRabbit(cfg.RabbitURL)
		if err != nil {
			return err
		}
		defer conn.Close()

		p, err := events.NewPublisher(conn, sequence.NewCounter(pool), events.PublisherOptions{
			PublishEnveloped: cfg.PublishEnveloped,
		})
		if err != nil {
			return err
		}
		pub = p
	} else {
		logger.Warn("RABBITMQ_URL not set; domain events are disabled")
	}
	defer pub.Close()

	orders := order.NewRepository(pool)
	stock := inventory.NewPostgresRepository(pool)

	orderSvc := order.NewService(order.Deps{
		DB:       pool,
		Orders:   orders,
		Catalog:  catalog.NewRepository(pool),
		Stock:    stock,
		Checkout: payment.NewStripeCheckout(cfg.Stripe.SecretKey),
		Events:   pub,
		Metrics:  rec,
		Logger:   logger.Named("order"),
		CheckoutConfig: order.CheckoutConfig{
			Currency:   cfg.Stripe.Currency,
			SuccessURL: cfg.Stripe.SuccessURL,
			CancelURL:  cfg.Stripe.CancelURL,
		},
	})

	confirmer := payment.NewConfirmer(payment.ConfirmerDeps{
		DB:      pool,
		Orders:  orders,
		Stock:   stock,
		Events:  payment.NewEventLog(dedup.NewRepository(pool)),
		Publish: pub,
		Metrics: rec,
		Logger:  logger.Named("payment"),
	})

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:           logger.Named("http"),
		Metrics:          rec,
		DB:               pool,
		JWTSecret:        []byte(cfg.JWTSecret),
		CORSAllowOrigins: cfg.CORSAllowOrigins,
		RequestTimeout:   cfg.RequestTimeout,
		Orders:           orderSvc,
		Verifier:         payment.NewWebhookVerifier(cfg.Stripe.WebhookSecret),
		Confirmer:        confirmer,
		Addresses:        account.NewAddressRepository(sqlDB),
		Favourites:       account.NewFavouriteRepository(sqlDB),
		Coupons:          account.NewCouponRepository(sqlDB),
		Stock:            stock,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("storefront listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
