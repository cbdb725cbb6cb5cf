package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/artmarket-backend/api/routes"
	"github.com/angelmondragon/artmarket-backend/internal/deliveries"
	"github.com/angelmondragon/artmarket-backend/internal/notifications"
	"github.com/angelmondragon/artmarket-backend/pkg/config"
	"github.com/angelmondragon/artmarket-backend/pkg/db"
	"github.com/angelmondragon/artmarket-backend/pkg/instance"
	"github.com/angelmondragon/artmarket-backend/pkg/logger"
	"github.com/angelmondragon/artmarket-backend/pkg/metrics"
	"github.com/angelmondragon/artmarket-backend/pkg/migrate"
	"github.com/angelmondragon/artmarket-backend/pkg/outbox"
	"github.com/angelmondragon/artmarket-backend/pkg/redis"
)

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
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags, logg)
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

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	deliveryMetrics := metrics.NewDeliveryMetrics(reg)

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	sink, err := notificationSink(cfg, logg, dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification sink", err)
		os.Exit(1)
	}
	dispatcher, err := notifications.NewDispatcher(sink, notifications.DispatcherConfig{
		Workers:     cfg.Delivery.NotificationWorkers,
		QueueSize:   cfg.Delivery.NotificationQueueSize,
		SendTimeout: cfg.Delivery.NotificationTimeout,
	}, logg, deliveryMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification dispatcher", err)
		os.Exit(1)
	}
	dispatcher.Start()

	trigger, err := notifications.NewTrigger(dispatcher, logg, deliveryMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification trigger", err)
		os.Exit(1)
	}

	deliveriesService, err := deliveries.NewService(deliveries.ServiceParams{
		Repo:     deliveries.NewRepository(dbClient.DB()),
		Tx:       dbClient,
		Outbox:   outboxService,
		Notifier: trigger,
		Logger:   logg,
		Metrics:  deliveryMetrics,
		Stats: deliveries.StatsConfig{
			AverageDeliveryHours: cfg.Delivery.AverageDeliveryHours,
			AverageRating:        cfg.Delivery.AverageRating,
		},
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create deliveries service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := instance.GetID("local")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
		"sink":     cfg.Delivery.NotificationSink,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			deliveriesService,
			notificationsService,
		),
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutting down api server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownWait)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "api server shutdown failed", err)
	}
	// drain queued notifications after the last request has committed
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		logg.Error(ctx, "notification dispatcher shutdown failed", err)
	}
	logg.Info(ctx, "api server stopped")
}

func notificationSink(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, outboxService *outbox.Service) (notifications.Sink, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Delivery.NotificationSink)) {
	case "log":
		return notifications.NewLogSink(logg), nil
	default:
		return notifications.NewOutboxSink(dbClient, outboxService)
	}
}
