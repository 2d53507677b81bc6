package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNonceRepositoryStoreErrors(t *testing.T) {
	repo := NewNonceRepository(unreachableRedis(t))
	ctx := context.Background()

	err := repo.Save(ctx, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", "n", time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to store nonce")

	_, err = repo.Consume(ctx, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNonceNotFound)
}

func TestNonceRepositoryConsumeOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := NewNonceRepository(client)
	ctx := context.Background()
	const address = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

	require.NoError(t, repo.Save(ctx, address, "first", time.Minute))
	require.NoError(t, repo.Save(ctx, address, "second", time.Minute))
	assert.Equal(t, time.Minute, mr.TTL(nonceKeyPrefix+address))

	nonce, err := repo.Consume(ctx, address)
	require.NoError(t, err)
	assert.Equal(t, "second", nonce)

	_, err = repo.Consume(ctx, address)
	require.ErrorIs(t, err, ErrNonceNotFound)
}

func TestNonceRepositoryExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := NewNonceRepository(client)
	ctx := context.Background()
	const address = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

	require.NoError(t, repo.Save(ctx, address, "n", time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := repo.Consume(ctx, address)
	require.ErrorIs(t, err, ErrNonceNotFound)
}
