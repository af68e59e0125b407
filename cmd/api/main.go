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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/you/subway-path/handlers"
	"github.com/you/subway-path/internal/config"
	"github.com/you/subway-path/internal/db"
	"github.com/you/subway-path/internal/lock"
	"github.com/you/subway-path/internal/logging"
	"github.com/you/subway-path/internal/metrics"
	"github.com/you/subway-path/service"
)

func main() {
	// Load base .env first, then .env.local (which overrides for local development)
	_ = godotenv.Load("../../.env")
	_ = godotenv.Overload("../../.env.local")

	cfg := config.Load()
	logger := logging.New(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := db.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	locker, closeLocker, err := lock.Open(ctx, cfg.LockBackend, cfg.RedisAddr)
	if err != nil {
		logger.Error("failed to set up line locks", "backend", cfg.LockBackend, "error", err)
		os.Exit(1)
	}
	defer closeLocker()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc := service.NewLineService(store,
		service.WithLocker(locker),
		service.WithLogger(logger),
		service.WithMetrics(metrics.New(reg)),
		service.WithLockTTL(cfg.LockTTL),
		service.WithLockTimeout(cfg.LockTimeout),
	)

	router := handlers.NewRouter(handlers.RouterConfig{
		Lines:          handlers.NewLineHandler(svc),
		Stations:       handlers.NewStationHandler(svc),
		Health:         handlers.NewHealthHandler(svc),
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		AllowedOrigins: cfg.AllowedOrigins,
		StaticDir:      cfg.StaticDir,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("API server starting",
			"port", cfg.Port,
			"lock_backend", cfg.LockBackend,
			"postgres", cfg.UsePostgres(),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
