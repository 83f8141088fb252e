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

	"adventure-server/internal/app"
	"adventure-server/internal/config"
	"adventure-server/internal/logger"
	"adventure-server/internal/messaging"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: could not load .env file: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	if cfg.DispatchMode != config.DispatchModeRabbitMQ {
		log.Fatal("Worker requires DISPATCH_MODE=rabbitmq", zap.String("dispatch_mode", cfg.DispatchMode))
	}
	log.Info("Worker configuration loaded", cfg.LogFields()...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := app.OpenStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open storage", zap.Error(err))
	}
	defer storage.Close()

	redisClient, err := app.OpenRedis(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	orchestrator, err := app.NewOrchestrator(cfg, storage, redisClient, log)
	if err != nil {
		log.Fatal("Failed to init orchestrator", zap.Error(err))
	}

	conn, err := messaging.Dial(ctx, cfg.RabbitMQURL, 10, 3*time.Second, log)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer conn.Close()

	// --- Метрики ---
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	metricsSrv := &http.Server{Addr: ":" + cfg.WorkerPort, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("Starting metrics server", zap.String("port", cfg.WorkerPort))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server error", zap.Error(err))
		}
	}()

	consumer := messaging.NewJobConsumer(conn, cfg.GenerationQueue, cfg.WorkerConcurrency, orchestrator, log)
	consumerDone := make(chan error, 1)
	go func() { consumerDone <- consumer.Run(ctx) }()

	consumerStopped := false
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received, waiting for running jobs...")
	case err := <-consumerDone:
		consumerStopped = true
		log.Error("Consumer stopped unexpectedly", zap.Error(err))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if !consumerStopped {
		select {
		case <-consumerDone:
		case <-shutdownCtx.Done():
			log.Warn("Timeout waiting for running jobs, aborting them")
			consumer.Abort()
			<-consumerDone
		}
	}
	metricsCtx, metricsCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer metricsCancel()
	if err := metricsSrv.Shutdown(metricsCtx); err != nil {
		log.Error("Metrics server shutdown error", zap.Error(err))
	}
	log.Info("Worker exiting")
}
