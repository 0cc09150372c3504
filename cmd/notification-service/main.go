package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notification-system/internal/api/handlers"
	authmw "notification-system/internal/api/middleware"
	"notification-system/internal/config"
	"notification-system/internal/infrastructure/mysql"
	redisinfra "notification-system/internal/infrastructure/redis"
	"notification-system/internal/infrastructure/stream"
	"notification-system/internal/services"
	"notification-system/pkg/logger"

	redisClient "github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	log := logger.New()
	log.Info("Starting Notification Service")

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize Redis
	rdb := redisClient.NewClient(&redisClient.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("Connected to Redis", "address", cfg.Redis.Address)

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		log.Error("Failed to connect to MySQL", "error", err)
		os.Exit(1)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			log.Error("Failed to close MySQL connection", "error", err)
		}
	}(db)

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		log.Error("Failed to ping MySQL", "error", err)
		os.Exit(1)
	}
	log.Info("Connected to MySQL")

	// Initialize repositories
	notificationRepo := mysql.NewMySQLNotificationRepository(db)
	if err := notificationRepo.EnsureSchema(ctx); err != nil {
		log.Error("Failed to ensure schema", "error", err)
		os.Exit(1)
	}

	// Initialize Redis based components
	queryCache := redisinfra.NewRedisQueryCache(rdb)

	// Initialize stream components
	registry := stream.NewRegistry(log)
	dispatcher := services.NewDispatcher(registry, log)
	janitor := services.NewJanitor(registry, cfg.Stream.KeepaliveSpec, log)

	notificationService := services.NewNotificationService(
		notificationRepo,
		queryCache,
		dispatcher,
		cfg.Cache.ListTTL,
		log,
	)

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: `{"time":"${time_rfc3339}","id":"${id}","remote_ip":"${remote_ip}","host":"${host}","method":"${method}","uri":"${uri}","user_agent":"${user_agent}","status":${status},"error":"${error}","latency":${latency},"latency_human":"${latency_human}","bytes_in":${bytes_in},"bytes_out":${bytes_out}}` + "\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			echo.GET, echo.HEAD, echo.PUT, echo.PATCH,
			echo.POST, echo.DELETE, echo.OPTIONS,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
		},
	}))

	// Initialize handlers
	notificationHandler := handlers.NewNotificationHandler(notificationService, log)
	streamHandler := handlers.NewStreamHandler(registry, cfg.Stream.BufferSize, log)

	// API routes
	api := e.Group("/api/v1", authmw.JWTAuth(cfg.Auth.JWTSecret))
	api.GET("/notifications", notificationHandler.List)
	api.PUT("/notifications/:id/read", notificationHandler.MarkRead)
	api.GET("/notifications/stream", streamHandler.Stream)
	api.GET("/notifications/ws", streamHandler.StreamWS)
	api.POST("/internal/notifications", notificationHandler.Create)

	// Operator routes
	admin := e.Group("/admin", authmw.AdminAuth(cfg.Auth.AdminToken))
	admin.POST("/cache/flush", notificationHandler.FlushCache)

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "notification-service",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Start background services
	if err := janitor.Start(); err != nil {
		log.Error("Failed to start janitor", "error", err)
		os.Exit(1)
	}

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("Starting notification server", "address", serverAddr)

	go func() {
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down notification service...")

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := janitor.Stop(); err != nil {
		log.Error("Failed to stop janitor", "error", err)
	}

	// Closing registered connections unblocks the stream handlers so the
	// server shutdown below does not wait out the full timeout.
	registry.CloseAll()

	if err := e.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Notification service stopped")
}
