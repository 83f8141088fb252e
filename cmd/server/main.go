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
	"adventure-server/internal/cache"
	"adventure-server/internal/config"
	"adventure-server/internal/handler"
	"adventure-server/internal/logger"
	"adventure-server/internal/messaging"
	"adventure-server/internal/notifier"
	"adventure-server/internal/service"
	"adventure-server/internal/taskmanager"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
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
	log.Info("Configuration loaded", cfg.LogFields()...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Хранилище ---
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

	// --- Сервисы ---
	orchestrator, err := app.NewOrchestrator(cfg, storage, redisClient, log)
	if err != nil {
		log.Fatal("Failed to init orchestrator", zap.Error(err))
	}

	var dispatcher service.Dispatcher
	var shutdownDispatch func(context.Context) error
	switch cfg.DispatchMode {
	case config.DispatchModeRabbitMQ:
		conn, err := messaging.Dial(ctx, cfg.RabbitMQURL, 10, 3*time.Second, log)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer conn.Close()
		publisher, err := messaging.NewJobPublisher(conn, cfg.GenerationQueue, log)
		if err != nil {
			log.Fatal("Failed to init job publisher", zap.Error(err))
		}
		dispatcher = publisher
		shutdownDispatch = func(context.Context) error { return publisher.Close() }
	default:
		tm := taskmanager.New(taskmanager.Config{Workers: cfg.WorkerConcurrency, QueueSize: cfg.WorkerQueueSize}, log)
		dispatcher = taskmanager.NewDispatcher(tm, orchestrator)
		shutdownDispatch = tm.Shutdown
		go cleanupTasks(ctx, tm)
	}

	var storyCache service.StoryCache
	var watcher notifier.JobWatcher
	if redisClient != nil {
		storyCache = cache.NewRedisStoryCache(redisClient, cfg.StoryCacheTTL, log)
		watcher = notifier.NewRedisJobNotifier(redisClient, log)
	} else {
		watcher = notifier.NewPollingWatcher(storage.Jobs, cfg.StatusPollInterval, log)
	}

	jobService := service.NewJobService(storage.Jobs, dispatcher, orchestrator, log)
	storyService := service.NewStoryService(storage.Stories, storyCache, log)

	// --- HTTP ---
	gin.SetMode(gin.ReleaseMode)
	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}
	router := handler.NewRouter(handler.RouterConfig{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.AllowedOrigins,
		Stories:        handler.NewStoryHandler(jobService, storyService, watcher, cfg.AllowedOrigins, log),
		Sessions:       handler.NewSessionManager(cfg.SessionSecret, cfg.SessionCookieName, cfg.SessionTTL, cfg.Env == "production", log),
		RateLimit: handler.RateLimitConfig{
			Limit:  cfg.CreateRateLimit,
			Window: cfg.CreateRateWindow,
			Redis:  redisClient,
		},
		Metrics: true,
		Logger:  log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP Server forced to shutdown", zap.Error(err))
	}
	if err := shutdownDispatch(shutdownCtx); err != nil {
		log.Error("Dispatcher shutdown error", zap.Error(err))
	}
	log.Info("Server exiting")
}

// cleanupTasks периодически удаляет завершенные задачи из менеджера.
func cleanupTasks(ctx context.Context, tm *taskmanager.TaskManager) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tm.CleanupTasks(time.Hour)
		}
	}
}
