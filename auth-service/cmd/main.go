package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/eaglebank/account-registry/auth-service/internal/handler"
	authqry "github.com/eaglebank/account-registry/auth-service/internal/query"
	"github.com/eaglebank/account-registry/auth-service/internal/repository"
	"github.com/eaglebank/account-registry/shared/config"
	"github.com/eaglebank/account-registry/shared/logging"
	"github.com/eaglebank/account-registry/shared/middleware"
	redisClient "github.com/eaglebank/account-registry/shared/redis"
	"github.com/gin-gonic/gin"
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

	// Redis holds outstanding login challenges
	redis, err := redisClient.NewClient(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	// CQRS: auth is read-only with respect to the registry; no CommandService
	nonceRepo := repository.NewNonceRepository(redis.Client)
	querySvc := authqry.NewAuthQueryService(nonceRepo, cfg.NonceTTL, cfg.TokenTTL)
	authHandler := handler.NewAuthHandler(querySvc)

	// Setup router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.LoggingMiddleware())

	v1 := router.Group("/v1/auth")
	{
		v1.POST("/challenge", authHandler.Challenge)
		v1.POST("/login", authHandler.Login)
		v1.POST("/refresh", authHandler.RefreshToken)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	log.Infof("Auth service starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
