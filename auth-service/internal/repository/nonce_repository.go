package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const nonceKeyPrefix = "auth:nonce:"

var ErrNonceNotFound = errors.New("nonce not found")

// NonceRepository stores one outstanding login challenge per address.
type NonceRepository struct {
	redis *redis.Client
}

func NewNonceRepository(client *redis.Client) *NonceRepository {
	return &NonceRepository{redis: client}
}

// Save replaces any earlier challenge for address.
func (r *NonceRepository) Save(ctx context.Context, address, nonce string, ttl time.Duration) error {
	if err := r.redis.Set(ctx, nonceKeyPrefix+address, nonce, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store nonce: %w", err)
	}
	return nil
}

// Consume returns and deletes the outstanding nonce, so it can be used once.
func (r *NonceRepository) Consume(ctx context.Context, address string) (string, error) {
	nonce, err := r.redis.GetDel(ctx, nonceKeyPrefix+address).Result()
	if err == redis.Nil {
		return "", ErrNonceNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read nonce: %w", err)
	}
	return nonce, nil
}
