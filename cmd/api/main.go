package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/locowear/wheelwear/internal/api"
	"github.com/locowear/wheelwear/internal/cache"
	"github.com/locowear/wheelwear/internal/config"
	"github.com/locowear/wheelwear/internal/dataset"
	"github.com/locowear/wheelwear/internal/db"
	"github.com/locowear/wheelwear/internal/logging"
	"github.com/locowear/wheelwear/internal/middleware"
	"github.com/locowear/wheelwear/internal/model"
	"github.com/locowear/wheelwear/internal/models"
	"github.com/locowear/wheelwear/internal/service"
	"github.com/locowear/wheelwear/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting wear intensity prediction server...")
	ctx := context.Background()

	m, err := model.Load(cfg.ModelPath, cfg.FeaturesPath)
	if err != nil {
		logger.Fatal("Failed to load model", zap.Error(err))
	}
	logger.Info("Model loaded",
		zap.String("path", cfg.ModelPath),
		zap.Int("features", len(m.Features)),
		zap.Int("trees", len(m.Trees)),
	)

	// Postgres is optional unless repairs come from it
	var pool *pgxpool.Pool
	var st *store.Store
	if cfg.Database.Host != "" {
		pool, err = db.NewPool(ctx, cfg.DB())
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer pool.Close()
		st = store.New(pool, logger)
		if err := st.EnsureSchema(ctx); err != nil {
			logger.Fatal("Failed to prepare database schema", zap.Error(err))
		}
		logger.Info("Database connection established")
	}

	repairs, err := loadRepairs(ctx, cfg, st, logger)
	if err != nil {
		logger.Fatal("Failed to load repair history", zap.Error(err))
	}
	logger.Info("Repair history loaded",
		zap.String("source", cfg.RepairsSource),
		zap.Int("locomotives", repairs.Len()),
	)

	redisClient, err := cache.New(ctx, cfg.Cache())
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	opts := service.Options{
		MaxBatch:     cfg.MaxBatch,
		ModelType:    m.Type,
		ModelVersion: cfg.ModelVersion,
		Logger:       logger,
	}
	var checks []api.HealthCheck
	if redisClient != nil {
		opts.Cache = redisClient
		checks = append(checks, api.HealthCheck{Name: "redis", Check: redisClient.HealthCheck})
		logger.Info("Redis connection established")
	}
	if st != nil {
		opts.PredictionLog = st
		checks = append(checks, api.HealthCheck{Name: "database", Check: func(ctx context.Context) error {
			return db.HealthCheck(ctx, pool)
		}})
	}

	app, err := service.NewApp(m, m.Schema(), repairs, opts)
	if err != nil {
		logger.Fatal("Failed to build application", zap.Error(err))
	}

	server := api.NewServer(api.NewHandler(app, logger, checks...), api.ServerConfig{
		AccessLog: cfg.IsDevelopment(),
		Middleware: []fiber.Handler{
			middleware.RequestLogger(logger, api.CacheHitLocal),
			middleware.RateLimitMiddleware(middleware.NewRedisCounter(redisClient.Redis()), cfg.RateLimitPerSecond, logger),
		},
	})

	addr := fmt.Sprintf(":%s", cfg.Port)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down gracefully...")
		if err := server.Shutdown(); err != nil {
			logger.Error("Error during shutdown", zap.Error(err))
		}
	}()

	logger.Info("Server listening",
		zap.String("addr", addr),
		zap.String("predict", fmt.Sprintf("http://localhost%s/predict", addr)),
		zap.String("health", fmt.Sprintf("http://localhost%s/health", addr)),
	)

	if err := server.Listen(addr); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}

func loadRepairs(ctx context.Context, cfg *config.Config, st *store.Store, logger *zap.Logger) (*dataset.RepairIndex, error) {
	var aggs []models.RepairAggregate

	switch cfg.RepairsSource {
	case config.RepairsPostgres:
		if st == nil {
			return nil, fmt.Errorf("repair source is postgres but no database is configured")
		}
		var err error
		aggs, err = st.LoadRepairAggregates(ctx)
		if err != nil {
			return nil, err
		}
	default:
		events, err := dataset.NewParser(logger).ParseServiceEvents(cfg.ServiceDatesPath)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", cfg.ServiceDatesPath, err)
		}
		aggs = dataset.AggregateRepairs(events)
	}

	if mismatches := dataset.CheckRepairSums(aggs); len(mismatches) > 0 {
		logger.Warn("repair counters do not add up", zap.Int("locomotives", len(mismatches)))
	}

	return dataset.NewRepairIndex(aggs), nil
}
