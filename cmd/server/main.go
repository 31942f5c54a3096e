package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"threadcraft/internal/analytics"
	"threadcraft/internal/api/handler"
	"threadcraft/internal/catalog"
	"threadcraft/internal/config"
	"threadcraft/internal/coordinator"
	"threadcraft/internal/core/ports"
	"threadcraft/internal/core/postgres/repository"
	"threadcraft/internal/engine"
	redisinfra "threadcraft/internal/infrastructure/redis"
	"threadcraft/internal/logging"
	"threadcraft/internal/metrics"
	"threadcraft/internal/service"
	"threadcraft/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml")
	flag.Parse()

	// 1. Load configuration and logging
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Configuration loading failed: %v", err)
	}
	logger := logging.New(cfg.Log.Level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 2. Metrics and the engine
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collectorSet := metrics.NewCollectors(registry)

	eng := engine.New(engine.WithRecorder(collectorSet))
	if err := catalog.Register(eng); err != nil {
		return err
	}

	// 3. Optional persistence
	var (
		store  ports.StateStore
		source ports.SnapshotSource = service.NewEngineSnapshotSource(eng)
	)
	if cfg.DB.Enabled {
		db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
		if err != nil {
			return err
		}
		if err := repository.Migrate(ctx, db); err != nil {
			return err
		}
		repo := repository.NewWorkflowRepository(db)
		store, source = repo, repo
		logger.Info("database connected", "host", cfg.DB.Host, "name", cfg.DB.Name)
	}

	// 4. Optional redis: event bus, refresh queue, report cache
	var (
		bus   ports.EventBus
		queue ports.RefreshQueue
		cache ports.ReportCache
	)
	if cfg.Redis.Enabled {
		client, err := redisinfra.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.PoolSize)
		if err != nil {
			return err
		}
		defer client.Close()
		bus = redisinfra.NewRedisEventBus(client, logger)
		queue = redisinfra.NewRedisQueue(client)
		cache = redisinfra.NewRedisReportCache(client)
		logger.Info("redis connected", "addr", cfg.Redis.Addr)
	}

	// 5. Services
	workflowSvc := service.NewWorkflowService(eng, store, bus, logger)
	if _, err := workflowSvc.Restore(ctx); err != nil {
		return err
	}

	analyzer := analytics.New(eng, analytics.WithStrict(cfg.Analytics.Strict))
	analyticsSvc := service.NewAnalyticsService(analyzer, source, cache, collectorSet, service.AnalyticsConfig{
		CacheTTL: cfg.Analytics.CacheTTL,
		Window:   time.Duration(cfg.Analytics.WindowDays) * 24 * time.Hour,
	}, logger)

	// 6. Background refresh pipeline
	var pool *worker.Worker
	if bus != nil && queue != nil {
		coord := coordinator.NewCoordinator(bus, queue, cfg.Coordinator.Debounce, logger)
		go func() {
			if err := coord.Start(ctx); err != nil {
				logger.Error("coordinator stopped", "error", err)
			}
		}()

		pool = worker.NewWorker(queue, worker.InitRegistry(analyticsSvc), collectorSet, logger)
		pool.StartPool(ctx, cfg.Worker.Concurrency)
	}

	// 7. HTTP
	router := gin.Default()
	handler.RegisterRoutes(router,
		handler.NewWorkflowHandler(workflowSvc),
		handler.NewAnalyticsHandler(analyticsSvc),
		registry,
	)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server starting", "address", cfg.Server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
			if err := server.Close(); err != nil {
				logger.Error("server close error", "error", err)
			}
		}
	}

	cancel()
	if pool != nil {
		pool.Wait()
	}
	logger.Info("server stopped gracefully")
	return nil
}
