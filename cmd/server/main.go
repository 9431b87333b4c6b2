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

	"github.com/go-resty/resty/v2"
	"github.com/joho/godotenv"
	"github.com/problemradar/problem-radar/internal/accounts"
	"github.com/problemradar/problem-radar/internal/alerts"
	"github.com/problemradar/problem-radar/internal/analysis"
	"github.com/problemradar/problem-radar/internal/api"
	"github.com/problemradar/problem-radar/internal/config"
	"github.com/problemradar/problem-radar/internal/discovery"
	"github.com/problemradar/problem-radar/internal/notifications"
	"github.com/problemradar/problem-radar/internal/problems"
	"github.com/problemradar/problem-radar/internal/query"
	"github.com/problemradar/problem-radar/internal/scheduler"
	"github.com/problemradar/problem-radar/internal/storage"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	if cfg.Debug {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting Problem Radar")

	store, err := newStorage(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	catalog := problems.NewCatalog(problems.Bootstrap(ctx, store, resty.New().SetTimeout(20*time.Second), cfg.SnapshotURL))
	cancel()

	engine := query.Engine{Thresholds: cfg.FilterThresholds()}
	classifier := query.Classifier{Thresholds: cfg.BadgeThresholds()}

	notificationService := notifications.NewService(cfg)
	alertService := alerts.NewService(notificationService, alerts.DemoAlerts())
	accountService := accounts.NewService(notificationService, problems.FixtureUser())

	discoveryService := discovery.NewService(cfg, store, catalog, analysis.New(cfg), notificationService)

	schedulerService := scheduler.NewService(cfg, discoveryService, alertService, alerts.NewMatcher(engine),
		catalog, notificationService)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	server := api.NewServer(api.Options{
		Repository: catalog,
		Engine:     engine,
		Classifier: classifier,
		Alerts:     alertService,
		Accounts:   accountService,
		Feed:       notificationService,
		Discovery:  schedulerService,
		Metrics:    discoveryService,
		Loader:     catalog.Load,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func newStorage(cfg *config.Config) (storage.StorageInterface, error) {
	if cfg.StorageBackend == "azure" {
		logrus.Infof("Using Azure Blob container %s/%s", cfg.StorageAccount, cfg.StorageContainer)
		azure, err := storage.NewAzureStorage(cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			return nil, err
		}
		return azure, nil
	}

	logrus.Infof("Using local storage directory %s", cfg.LocalStorageDir)
	local, err := storage.NewLocalStorage(cfg.LocalStorageDir)
	if err != nil {
		return nil, err
	}
	return local, nil
}
