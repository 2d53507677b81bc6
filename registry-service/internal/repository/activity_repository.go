package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eaglebank/account-registry/shared/models"
	goredis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	activityListKey         = "registry:activity"
	processedEventKeyPrefix = "processed:event:"
)

// ActivityRepository keeps a bounded, newest-first list of projected registry
// events in Redis.
type ActivityRepository struct {
	redis *goredis.Client
	limit int64
}

func NewActivityRepository(redisClient *goredis.Client, limit int) *ActivityRepository {
	if limit <= 0 {
		limit = 1000
	}
	return &ActivityRepository{redis: redisClient, limit: int64(limit)}
}

func (r *ActivityRepository) Append(ctx context.Context, activity *models.Activity) error {
	data, err := json.Marshal(activity)
	if err != nil {
		return fmt.Errorf("failed to marshal activity: %w", err)
	}
	_, err = r.redis.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.LPush(ctx, activityListKey, data)
		pipe.LTrim(ctx, activityListKey, 0, r.limit-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append activity: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (r *ActivityRepository) Recent(ctx context.Context, limit int) ([]models.Activity, error) {
	if limit <= 0 || int64(limit) > r.limit {
		limit = int(r.limit)
	}
	raw, err := r.redis.LRange(ctx, activityListKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read activity: %w", err)
	}
	out := make([]models.Activity, 0, len(raw))
	for _, item := range raw {
		var a models.Activity
		if err := json.Unmarshal([]byte(item), &a); err != nil {
			log.WithError(err).Warn("Skipping undecodable activity entry")
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// IsEventProcessed guards the projection against redelivery under
// at-least-once stream semantics.
func (r *ActivityRepository) IsEventProcessed(ctx context.Context, eventID string) bool {
	val, err := r.redis.Exists(ctx, processedEventKeyPrefix+eventID).Result()
	return err == nil && val > 0
}

// MarkEventProcessed records that an event has been projected. The key
// outlives any realistic consumer-group redelivery window.
func (r *ActivityRepository) MarkEventProcessed(ctx context.Context, eventID string) {
	if err := r.redis.Set(ctx, processedEventKeyPrefix+eventID, "1", 72*time.Hour).Err(); err != nil {
		log.WithError(err).WithField("event", eventID).Warn("Failed to mark event as processed")
	}
}
