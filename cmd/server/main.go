package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"order-sync/config"
	"order-sync/internal/api"
	"order-sync/internal/broker"
	"order-sync/internal/redisclient"
	"order-sync/internal/service"
	"order-sync/internal/store"
	"order-sync/internal/util"
	"order-sync/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	logger, err := util.InitLogger(cfg.Server.Env, cfg.Observ.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger.Info("Starting order sync service")

	tp, err := util.InitTracer("order-sync", cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	version, err := store.Migrate(cfg.Database.URL, true)
	if err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}
	logger.Info("Database schema up to date", zap.Uint("version", version))

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.IdempotencyTTL)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicSyncEvents)
	defer producer.Close()
	logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicSyncEvents))

	engine := service.NewEngine(db, broker.NewEventPublisher(producer), logger, service.Options{
		Timeout:          cfg.Database.OperationTimeout,
		Location:         cfg.Sync.Location,
		PruneStaleUrgent: cfg.Sync.PruneStaleUrgent,
	})

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	retry := broker.DefaultRetryPolicy
	retry.MaxRetries = uint64(cfg.Kafka.MaxRetries)
	syncConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicSyncRequests, cfg.Kafka.ConsumerGroup).
		WithRetryPolicy(retry)
	if cfg.Kafka.TopicSyncDeadLetter != "" {
		syncConsumer.WithDeadLetter(broker.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.TopicSyncDeadLetter))
	}
	syncWorker := worker.NewSyncWorker(syncConsumer, engine)
	go func() {
		if err := syncWorker.Start(workerCtx); err != nil && err != context.Canceled {
			logger.Error("Sync worker error", zap.Error(err))
		}
	}()

	scheduler := worker.NewScheduler(redisClient,
		worker.PromoteJob(engine, cfg.Scheduler.PromoteInterval),
		worker.ResyncJob(engine, cfg.Scheduler.ResyncInterval),
	)
	scheduler.Start(workerCtx)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(engine, redisClient, map[string]api.Pinger{
		"postgres": db,
		"redis":    redisClient,
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	scheduler.Wait()
	if err := syncWorker.Stop(); err != nil {
		logger.Error("Error stopping sync worker", zap.Error(err))
	}

	logger.Info("Server exited")
}
