package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/eaglebank/account-registry/registry-service/internal/registry"
	"github.com/eaglebank/account-registry/shared/models"
	sharedredis "github.com/eaglebank/account-registry/shared/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const (
	membersSetKey       = "registry:members"
	membersSyncedKey    = "registry:members:synced"
	memberViewKeyPrefix = "registry:member:"
	memberViewTTL       = 10 * time.Minute
)

// MemberReadRepository serves the read side. Redis holds the member set
// (answering size) and per-member views; the MemberStore is the fallback
// whenever Redis is unavailable or the set has not been rebuilt.
//
// Redis is never updated from a request's intent. SyncMember re-reads the
// store and copies what it finds, and syncs are serialised, so the last sync
// for an account always reflects the last committed change to it.
type MemberReadRepository struct {
	store MemberStore
	redis *goredis.Client
	cache *sharedredis.ViewCache[models.Member]

	syncMu sync.Mutex
}

func NewMemberReadRepository(store MemberStore, redisClient *goredis.Client) *MemberReadRepository {
	return &MemberReadRepository{
		store: store,
		redis: redisClient,
		cache: sharedredis.NewViewCache[models.Member](redisClient, memberViewTTL),
	}
}

// Rebuild replaces the Redis member set with the store's current members and
// marks the set as authoritative.
func (r *MemberReadRepository) Rebuild(ctx context.Context) error {
	r.syncMu.Lock()
	defer r.syncMu.Unlock()

	members, err := r.store.List(ctx, 0, 0)
	if err != nil {
		return err
	}
	_, err = r.redis.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, membersSetKey)
		if len(members) > 0 {
			pipe.SAdd(ctx, membersSetKey, lo.ToAnySlice(lo.Map(members, func(m models.Member, _ int) string {
				return m.Account
			}))...)
		}
		pipe.Set(ctx, membersSyncedKey, "1", 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to rebuild member set: %w", err)
	}
	for i := range members {
		r.cache.Set(ctx, memberViewKeyPrefix+members[i].Account, &members[i])
	}
	log.WithField("members", len(members)).Info("Member read model rebuilt")
	return nil
}

// Size returns the member count, from Redis when the set is in sync.
func (r *MemberReadRepository) Size(ctx context.Context) (int, error) {
	synced, err := r.redis.Exists(ctx, membersSyncedKey).Result()
	if err == nil && synced > 0 {
		n, err := r.redis.SCard(ctx, membersSetKey).Result()
		if err == nil {
			return int(n), nil
		}
		log.WithError(err).Warn("Failed to read member set size, using store")
	}
	return r.store.Size(ctx)
}

// Get returns a member view, trying Redis first then the store.
func (r *MemberReadRepository) Get(ctx context.Context, account string) (*models.Member, error) {
	if m, ok := r.cache.Get(ctx, memberViewKeyPrefix+account); ok {
		return m, nil
	}
	r.syncMu.Lock()
	defer r.syncMu.Unlock()
	return r.syncLocked(ctx, account)
}

func (r *MemberReadRepository) List(ctx context.Context, offset, limit int) ([]models.Member, error) {
	return r.store.List(ctx, offset, limit)
}

// SyncMember copies the store's current state for account into Redis. It is
// called after every committed add or remove.
func (r *MemberReadRepository) SyncMember(ctx context.Context, account string) {
	r.syncMu.Lock()
	defer r.syncMu.Unlock()
	_, _ = r.syncLocked(ctx, account)
}

func (r *MemberReadRepository) syncLocked(ctx context.Context, account string) (*models.Member, error) {
	key := memberViewKeyPrefix + account
	m, err := r.store.Get(ctx, account)
	switch {
	case err == nil:
		if err := r.redis.SAdd(ctx, membersSetKey, m.Account).Err(); err != nil {
			log.WithError(err).WithField("account", account).Warn("Failed to add member to read model")
			r.desync(ctx)
		}
		r.cache.Set(ctx, key, m)
	case errors.Is(err, registry.ErrNotMember):
		if err := r.redis.SRem(ctx, membersSetKey, account).Err(); err != nil {
			log.WithError(err).WithField("account", account).Warn("Failed to remove member from read model")
			r.desync(ctx)
		}
		if err := r.cache.Delete(ctx, key); err != nil {
			log.WithError(err).WithField("account", account).Warn("Failed to drop member view")
		}
	default:
		// The store could not say; Redis may now be wrong about this account.
		log.WithError(err).WithField("account", account).Warn("Failed to read member for read model sync")
		r.desync(ctx)
		_ = r.cache.Delete(ctx, key)
	}
	return m, err
}

func (r *MemberReadRepository) desync(ctx context.Context) {
	if err := r.redis.Del(ctx, membersSyncedKey).Err(); err != nil {
		log.WithError(err).Error("Failed to clear member set marker; size may be stale until rebuild")
	}
}
