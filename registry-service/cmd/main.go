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

	registrycmd "github.com/eaglebank/account-registry/registry-service/internal/command"
	"github.com/eaglebank/account-registry/registry-service/internal/handler"
	registryqry "github.com/eaglebank/account-registry/registry-service/internal/query"
	"github.com/eaglebank/account-registry/registry-service/internal/registry"
	"github.com/eaglebank/account-registry/registry-service/internal/repository"
	"github.com/eaglebank/account-registry/shared/config"
	"github.com/eaglebank/account-registry/shared/events"
	"github.com/eaglebank/account-registry/shared/logging"
	"github.com/eaglebank/account-registry/shared/middleware"
	redisClient "github.com/eaglebank/account-registry/shared/redis"
	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

func main() {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Level, cfg.Format)
	middleware.MustInitJWTSecret(cfg.JWTSecret)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Write store: PostgreSQL, or the in-memory registry for local runs
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open member store: %v", err)
	}
	defer closeStore()

	// Redis connection (read model store + event streaming)
	redis, err := redisClient.NewClient(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	// --- CQRS wiring ---
	publisher := events.NewPublisher(redis.Client)

	readRepo := repository.NewMemberReadRepository(store, redis.Client)
	activityRepo := repository.NewActivityRepository(redis.Client, cfg.ActivityLimit)
	if err := readRepo.Rebuild(ctx); err != nil {
		log.Warnf("Read model rebuild failed, size will be served from the store: %v", err)
	}

	commandSvc := registrycmd.NewRegistryCommandService(store, readRepo, publisher, activityRepo)
	querySvc := registryqry.NewRegistryQueryService(readRepo, activityRepo)

	registryHandler := handler.NewRegistryHandler(commandSvc, querySvc)

	// Setup router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.LoggingMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "store": cfg.StoreDriver})
	})

	v1 := router.Group("/v1/registry", middleware.AuthMiddleware())
	{
		v1.POST("/accounts", registryHandler.AddAccount)
		v1.GET("/accounts", registryHandler.ListAccounts)
		v1.GET("/accounts/:account", registryHandler.GetAccount)
		v1.DELETE("/accounts/:account", registryHandler.RemoveAccount)
		v1.GET("/size", registryHandler.Size)
		v1.GET("/events", registryHandler.ListEvents)
	}

	go func() {
		subscriber := events.NewSubscriber(redis.Client, events.SubscriberConfig{
			Group:    "registry-activity-group",
			Consumer: cfg.ConsumerName,
			Stream:   events.RegistryEventsStream,
			Handler:  commandSvc.HandleRegistryEvent,
		})
		if err := subscriber.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("Subscriber stopped: %v", err)
		}
	}()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		<-ctx.Done()
		log.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("Graceful shutdown failed: %v", err)
		}
	}()

	log.Infof("Registry service starting on port %s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func openStore(ctx context.Context, cfg Config) (repository.MemberStore, func(), error) {
	switch cfg.StoreDriver {
	case storeDriverMemory:
		log.Warn("Using in-memory member store; membership is lost on restart")
		return registry.New(), func() {}, nil
	case storeDriverPostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to ping database: %w", err)
		}
		repo := repository.NewMemberWriteRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return repo, func() { db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}
