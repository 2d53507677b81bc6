package main

import (
	"time"

	"github.com/eaglebank/account-registry/shared/config"
)

type Config struct {
	Port               string        `envconfig:"PORT" default:"8080"`
	AuthServiceURL     string        `envconfig:"AUTH_SERVICE_URL" default:"http://localhost:8081"`
	RegistryServiceURL string        `envconfig:"REGISTRY_SERVICE_URL" default:"http://localhost:8083"`
	JWTSecret          string        `envconfig:"JWT_SECRET" required:"true"`
	UpstreamTimeout    time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"15s"`
	config.Log
}
