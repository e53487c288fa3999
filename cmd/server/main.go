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

	"github.com/ikkim/pos-backend/config"
	"github.com/ikkim/pos-backend/internal/app/controller"
	"github.com/ikkim/pos-backend/internal/app/repository"
	"github.com/ikkim/pos-backend/internal/app/service"
	"github.com/ikkim/pos-backend/internal/db"
	"github.com/ikkim/pos-backend/internal/middleware"
	"github.com/ikkim/pos-backend/internal/router"
	"github.com/ikkim/pos-backend/internal/scheduler"
	"github.com/ikkim/pos-backend/internal/storage"
	"github.com/ikkim/pos-backend/internal/websocket"
	"github.com/ikkim/pos-backend/pkg/logger"
	"github.com/ikkim/pos-backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logger.Initialize(logger.Config{
		Level:       cfg.LogLevel(),
		Format:      cfg.Log.Format,
		EnableColor: cfg.Server.Environment == "development",
	})

	logger.Info("Starting POS Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   cfg.LogLevel(),
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

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Token revocation needs Redis; without it logout only discards the
	// token client-side.
	var (
		blacklist middleware.TokenBlacklist
		revoker   []service.TokenRevoker
	)
	if cfg.Redis.Enabled {
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Warn("Redis unavailable, token revocation disabled", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			defer func() {
				if err := redis.Close(); err != nil {
					logger.Error("Failed to close Redis connection", err)
				}
			}()
			tokenBlacklist := redis.NewTokenBlacklist(redis.GetClient())
			blacklist = tokenBlacklist
			revoker = append(revoker, tokenBlacklist)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub()
	go hub.Run(ctx)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	productRepo := repository.NewProductRepository(db.GetDB())
	categoryRepo := repository.NewCategoryRepository(db.GetDB())
	cartRepo := repository.NewCartRepository(db.GetDB())

	// Initialize services
	authService := service.NewAuthService(
		userRepo,
		cfg.JWT.Secret,
		cfg.JWT.TokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
		revoker...,
	)
	productService := service.NewProductService(productRepo, categoryRepo, cfg.Scheduler.LowStockThreshold)
	categoryService := service.NewCategoryService(categoryRepo, productRepo)
	cartService := service.NewCartService(cartRepo, productRepo, hub)

	var presigner controller.ImagePresigner
	if cfg.S3.Bucket != "" {
		presigner = storage.NewS3Storage(ctx, cfg.S3.Region, cfg.S3.Bucket, cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, cfg.S3.BaseURL)
	} else {
		logger.Warn("AWS_S3_BUCKET not set, product image uploads disabled")
	}

	if cfg.Scheduler.Enabled {
		lowStock := scheduler.NewLowStockScheduler(productService, cfg.Scheduler.LowStockCron, cfg.Scheduler.LowStockThreshold)
		if err := lowStock.Start(); err != nil {
			logger.Fatal("Failed to start low stock scheduler", err)
		}
		defer lowStock.Stop()
	}

	// Initialize controllers
	authController := controller.NewAuthController(authService)
	productController := controller.NewProductController(productService)
	categoryController := controller.NewCategoryController(categoryService)
	cartController := controller.NewCartController(cartService, cfg.Cart.AllowOutOfStock)
	cartSocketController := controller.NewCartSocketController(hub, cartService, cfg.CORS.AllowedOrigins)
	uploadController := controller.NewUploadController(presigner)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret, blacklist)

	r := router.NewRouter(
		authController,
		productController,
		categoryController,
		cartController,
		cartSocketController,
		uploadController,
		authMiddleware,
		cfg,
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r.Setup(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": server.Addr,
			"pid":     os.Getpid(),
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", err)
	}
	logger.Info("Server stopped successfully")
}
