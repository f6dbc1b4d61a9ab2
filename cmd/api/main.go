package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/tutorhub/tutorhub-backend/api/routes"
	"github.com/tutorhub/tutorhub-backend/internal/bookings"
	"github.com/tutorhub/tutorhub-backend/internal/checkout"
	"github.com/tutorhub/tutorhub-backend/internal/ledger"
	"github.com/tutorhub/tutorhub-backend/internal/notifications"
	"github.com/tutorhub/tutorhub-backend/internal/offerings"
	"github.com/tutorhub/tutorhub-backend/internal/reconciliation"
	"github.com/tutorhub/tutorhub-backend/internal/slots"
	stripewebhook "github.com/tutorhub/tutorhub-backend/internal/webhooks/stripe"
	"github.com/tutorhub/tutorhub-backend/pkg/config"
	"github.com/tutorhub/tutorhub-backend/pkg/db"
	"github.com/tutorhub/tutorhub-backend/pkg/logger"
	"github.com/tutorhub/tutorhub-backend/pkg/metrics"
	"github.com/tutorhub/tutorhub-backend/pkg/migrate"
	"github.com/tutorhub/tutorhub-backend/pkg/redis"
	pkgstripe "github.com/tutorhub/tutorhub-backend/pkg/stripe"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}
	checkoutGateway, err := pkgstripe.NewCheckoutClient(stripeClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe checkout client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reconcileMetrics := metrics.NewReconcileMetrics(registry)

	conn := dbClient.DB()
	offeringRepo := offerings.NewRepository(conn)
	slotRepo := slots.NewRepository(conn)
	bookingRepo := bookings.NewRepository(conn)
	ledgerRepo := ledger.NewRepository(conn)
	notificationRepo := notifications.NewRepository(conn)

	dispatcher, err := notifications.NewDispatcher(cfg.Notifications, notificationRepo, redisClient, logg, reconcileMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification dispatcher", err)
		os.Exit(1)
	}

	slotService, err := slots.NewService(slotRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create slot service", err)
		os.Exit(1)
	}
	bookingService, err := bookings.NewService(bookings.ServiceParams{
		Repo:      bookingRepo,
		Offerings: offeringRepo,
		Slots:     slotRepo,
		Notifier:  dispatcher,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create booking service", err)
		os.Exit(1)
	}
	checkoutService, err := checkout.NewInitiator(bookingRepo, offeringRepo, ledgerRepo, checkoutGateway, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	engine, err := reconciliation.NewEngine(reconciliation.EngineParams{
		Ledger:    ledgerRepo,
		Bookings:  bookingRepo,
		Offerings: offeringRepo,
		Notifier:  dispatcher,
		Logger:    logg,
		Metrics:   reconcileMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciliation engine", err)
		os.Exit(1)
	}
	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{Engine: engine, Logger: logg})
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook service", err)
		os.Exit(1)
	}
	webhookGuard, err := stripewebhook.NewEventGuard(redisClient, cfg.Reconcile.WebhookEventTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			slotService,
			bookingService,
			checkoutService,
			notificationRepo,
			webhookService,
			stripeClient,
			webhookGuard,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// the dispatcher outlives ctx so queued notifications drain after shutdown
	dispatchCtx, cancelDispatch := context.WithCancel(context.Background())
	defer cancelDispatch()

	g := new(errgroup.Group)
	g.Go(func() error {
		return dispatcher.Run(dispatchCtx)
	})
	g.Go(func() error {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			stop()
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		dispatcher.Close()
		time.AfterFunc(shutdownTimeout, cancelDispatch)
		return err
	})

	if err := g.Wait(); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}
