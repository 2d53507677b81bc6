package main

import (
	"time"

	"github.com/eaglebank/account-registry/shared/config"
)

type Config struct {
	Port      string        `envconfig:"PORT" default:"8081"`
	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	NonceTTL  time.Duration `envconfig:"NONCE_TTL" default:"5m"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
	config.Redis
	config.Log
}
