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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/tutorhub/tutorhub-backend/internal/bookings"
	"github.com/tutorhub/tutorhub-backend/internal/cron"
	"github.com/tutorhub/tutorhub-backend/internal/ledger"
	"github.com/tutorhub/tutorhub-backend/internal/notifications"
	"github.com/tutorhub/tutorhub-backend/internal/offerings"
	"github.com/tutorhub/tutorhub-backend/internal/reconciliation"
	"github.com/tutorhub/tutorhub-backend/pkg/config"
	"github.com/tutorhub/tutorhub-backend/pkg/db"
	"github.com/tutorhub/tutorhub-backend/pkg/logger"
	"github.com/tutorhub/tutorhub-backend/pkg/metrics"
	"github.com/tutorhub/tutorhub-backend/pkg/migrate"
	"github.com/tutorhub/tutorhub-backend/pkg/redis"
)

const (
	serviceName    = "cron-worker"
	lockNameFormat = "cron-worker:%s"
	drainTimeout   = 10 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
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

	promRegistry := prometheus.NewRegistry()
	reconcileMetrics := metrics.NewReconcileMetrics(promRegistry)
	cronMetrics := metrics.NewCronJobMetrics(promRegistry)

	conn := dbClient.DB()
	ledgerRepo := ledger.NewRepository(conn)
	notificationRepo := notifications.NewRepository(conn)

	dispatcher, err := notifications.NewDispatcher(cfg.Notifications, notificationRepo, redisClient, logg, reconcileMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification dispatcher", err)
		os.Exit(1)
	}
	engine, err := reconciliation.NewEngine(reconciliation.EngineParams{
		Ledger:    ledgerRepo,
		Bookings:  bookings.NewRepository(conn),
		Offerings: offerings.NewRepository(conn),
		Notifier:  dispatcher,
		Logger:    logg,
		Metrics:   reconcileMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciliation engine", err)
		os.Exit(1)
	}

	repairJob, err := cron.NewBookingRepairJob(cron.BookingRepairJobParams{
		Logger:      logg,
		Ledger:      ledgerRepo,
		Engine:      engine,
		GracePeriod: cfg.Reconcile.GracePeriod,
		BatchLimit:  cfg.Reconcile.BatchLimit,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create booking repair job", err)
		os.Exit(1)
	}
	cleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: notificationRepo,
		Retention:  cfg.Notifications.RetentionDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification cleanup job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockName(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}
	registry := cron.NewRegistry()
	for _, job := range []cron.Job{repairJob, cleanupJob} {
		if err := registry.Register(job); err != nil {
			logg.Error(context.Background(), "failed to register cron job", err)
			os.Exit(1)
		}
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Reconcile.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceName,
		"jobs":        registry.Names(),
	})
	logg.Info(ctx, "starting cron worker")

	metricsServer := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	dispatchCtx, cancelDispatch := context.WithCancel(context.Background())
	defer cancelDispatch()

	g := new(errgroup.Group)
	g.Go(func() error {
		return dispatcher.Run(dispatchCtx)
	})
	g.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped", err)
		}
		return nil
	})
	g.Go(func() error {
		defer func() {
			dispatcher.Close()
			time.AfterFunc(drainTimeout, cancelDispatch)
			shutdownCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
		if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockNameFormat, env)
}
