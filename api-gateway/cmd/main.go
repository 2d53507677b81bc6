package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/eaglebank/account-registry/shared/config"
	"github.com/eaglebank/account-registry/shared/logging"
	"github.com/eaglebank/account-registry/shared/middleware"
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

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.LoggingMiddleware())

	client := &http.Client{Timeout: cfg.UpstreamTimeout}
	registerRoutes(router, client,
		strings.TrimSuffix(cfg.AuthServiceURL, "/"),
		strings.TrimSuffix(cfg.RegistryServiceURL, "/"))

	log.Infof("API Gateway starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func registerRoutes(router *gin.Engine, client *http.Client, authURL, registryURL string) {
	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "api-gateway"})
	})

	// Auth routes (no authentication required)
	router.POST("/v1/auth/challenge", proxyTo(client, authURL))
	router.POST("/v1/auth/login", proxyTo(client, authURL))
	router.POST("/v1/auth/refresh", proxyTo(client, authURL))

	// Registry routes
	registry := router.Group("/v1/registry", middleware.AuthMiddleware())
	{
		registry.POST("/accounts", proxyTo(client, registryURL))
		registry.GET("/accounts", proxyTo(client, registryURL))
		registry.GET("/accounts/:account", proxyTo(client, registryURL))
		registry.DELETE("/accounts/:account", proxyTo(client, registryURL))
		registry.GET("/size", proxyTo(client, registryURL))
		registry.GET("/events", proxyTo(client, registryURL))
	}
}
