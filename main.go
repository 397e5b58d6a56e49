package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
	_ "time/tzdata"

	"api-monitor/config"
	"api-monitor/db"
	"api-monitor/monitor"
	"api-monitor/notification"
	"api-monitor/pkg/logger"
	"api-monitor/server"

	"go.uber.org/zap"
)

func main() {
	// Load Config
	if err := config.LoadConfig("config.yaml"); err != nil {
		log.Printf("Failed to load config.yaml: %v. Using defaults/env vars if available.", err)
	}
	cfg := config.GlobalConfig

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	logger.Info("Starting api-monitor...")

	// Initialize Database
	store, err := db.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	var tokens monitor.TokenStore
	if cfg.TokenCache.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisStore, err := db.NewRedisTokenStore(ctx, cfg.TokenCache)
		cancel()
		if err != nil {
			logger.Fatal("Failed to connect token cache", zap.String("addr", cfg.TokenCache.RedisAddr), zap.Error(err))
		}
		defer redisStore.Close()
		tokens = redisStore
	} else {
		tokens = monitor.NewMemoryTokenStore()
	}

	dispatcher := notification.NewDispatcher(
		notification.NewSlackSender(nil),
		notification.NewDiscordSender(nil),
		notification.NewEmailSender(cfg.Notification),
	)
	if cfg.Notification.ResendAPIKey == "" {
		logger.Warn("RESEND_API_KEY is not set. Email notifications will fail.")
	}

	monitorService := monitor.NewService(store, dispatcher, tokens, monitor.Options{
		ProbeTimeout:   time.Duration(cfg.Monitor.ProbeTimeoutSeconds) * time.Second,
		LoginTimeout:   time.Duration(cfg.Monitor.LoginTimeoutSeconds) * time.Second,
		SSLTimeout:     time.Duration(cfg.Monitor.SSLTimeoutSeconds) * time.Second,
		MaxConcurrency: cfg.Monitor.MaxConcurrency,
		CycleInterval:  time.Duration(cfg.Monitor.CycleIntervalSeconds) * time.Second,
	})

	if cfg.Server.CronSecret == "" {
		logger.Warn("CRON_SECRET is not set. The cron trigger will reject every request.")
	}
	srv := server.NewServer(monitorService, store, cfg.Server.CronSecret)
	monitorService.OnHealthCheck = srv.BroadcastHealthCheck

	// Start Monitoring AFTER server initialization so broadcasts have a target
	monitorService.Start()

	port := ":" + strconv.Itoa(cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:    port,
		Handler: srv.Router(),
	}

	go func() {
		logger.Info("Server listening", zap.String("addr", port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	// kill (no param) default send syscall.SIGTERM
	// kill -2 is syscall.SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Stopping monitor service...")
	monitorService.Stop()

	if err := store.Close(); err != nil {
		logger.Error("Failed to close database", zap.Error(err))
	}

	logger.Info("Server exiting")
}
