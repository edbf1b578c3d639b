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

	"github.com/fajargold/fajargold-backend/config"
	"github.com/fajargold/fajargold-backend/internal/app/controller"
	"github.com/fajargold/fajargold-backend/internal/app/repository"
	"github.com/fajargold/fajargold-backend/internal/app/service"
	"github.com/fajargold/fajargold-backend/internal/db"
	"github.com/fajargold/fajargold-backend/internal/router"
	"github.com/fajargold/fajargold-backend/internal/scheduler"
	"github.com/fajargold/fajargold-backend/internal/storage"
	ws "github.com/fajargold/fajargold-backend/internal/websocket"
	"github.com/fajargold/fajargold-backend/pkg/goldprice"
	"github.com/fajargold/fajargold-backend/pkg/logger"
	"github.com/fajargold/fajargold-backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      cfg.Server.LogFormat,
		EnableColor: cfg.Server.LogFormat == "console",
	})

	logger.Info("Starting Fajar Gold Backend Server", logger.Fields{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations and seed the first snapshot
	if err := db.Migrate(cfg.GoldPrice.BuyDiscount); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	opts := service.GoldPriceOptions{
		Tolerance:   &cfg.GoldPrice.Tolerance,
		SellMarkup:  cfg.GoldPrice.SellMarkup,
		BuyDiscount: cfg.GoldPrice.BuyDiscount,
		ChangeLimit: cfg.GoldPrice.ChangeLimit,
		Location:    cfg.GoldPrice.Location(),
	}

	// Redis is optional; without it every read goes to the database
	if cfg.Redis.Enabled {
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Warn("Redis unavailable, latest price cache disabled", logger.Fields{"error": err.Error()})
		} else {
			defer redis.Close()
			opts.Cache = redis.NewPriceCache(redis.GetClient(), cfg.Redis.PriceTTL)
		}
	}

	// Archived exports need a bucket
	if cfg.S3.Bucket != "" {
		archive, err := storage.NewS3Storage(context.Background(), cfg.S3)
		if err != nil {
			logger.Warn("Export archive disabled", logger.Fields{"error": err.Error()})
		} else {
			opts.Archive = archive
			opts.ArchiveTTL = cfg.S3.URLExpiry
		}
	}

	hub := ws.NewHub()
	go hub.Run()
	defer hub.Stop()
	opts.Notifier = hub

	classifier := goldprice.NewDedupClassifier(goldprice.NewClassifier(), cfg.GoldPrice.DedupWindow, cfg.GoldPrice.DedupCapacity)

	var source service.PriceSource
	if sources := service.NewSourcesFromConfig(cfg.Sources, cfg.GoldPrice.Sources); len(sources) > 0 {
		source = service.NewSourceChain(sources...)
	} else {
		logger.Warn("No external gold price source configured, refresh disabled")
	}

	// Initialize repositories and services
	goldPriceRepo := repository.NewGoldPriceRepository(db.GetDB())
	goldPriceChangeRepo := repository.NewGoldPriceChangeRepository(db.GetDB())
	goldPriceService := service.NewGoldPriceService(goldPriceRepo, goldPriceChangeRepo, classifier, source, opts)

	// Scheduled refresh only makes sense with an external source
	if source != nil {
		priceScheduler := scheduler.NewGoldPriceScheduler(goldPriceService, cfg.GoldPrice.Schedules, opts.Location)
		if err := priceScheduler.Start(); err != nil {
			logger.Fatal("Failed to start gold price scheduler", err)
		}
		defer priceScheduler.Stop()
	}

	// Setup router
	r := router.NewRouter(
		controller.NewGoldPriceController(goldPriceService),
		controller.NewPriceStreamController(hub, cfg.CORS.AllowedOrigins),
		cfg,
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r.Setup(),
	}

	go func() {
		logger.Info("Server started successfully", logger.Fields{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}
	logger.Info("Server stopped successfully")
}
