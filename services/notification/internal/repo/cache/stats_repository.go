package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"tell-all/services/notification/internal/entity"

	"github.com/redis/go-redis/v9"
)

const (
	deliveredKey  = "mail:stats:delivered"
	failedKey     = "mail:stats:failed"
	recipientsKey = "mail:stats:recipients"
)

type StatsRepository interface {
	RecordDelivered(ctx context.Context, recipients int) error
	RecordFailed(ctx context.Context) error
	Get(ctx context.Context) (entity.Stats, error)
}

type redisStatsRepository struct {
	client *redis.Client
}

// NewRedisStatsRepository keeps counters in Redis so every consumer replica
// reports the same totals.
func NewRedisStatsRepository(client *redis.Client) StatsRepository {
	return &redisStatsRepository{client: client}
}

func (r *redisStatsRepository) RecordDelivered(ctx context.Context, recipients int) error {
	pipe := r.client.TxPipeline()
	pipe.Incr(ctx, deliveredKey)
	pipe.IncrBy(ctx, recipientsKey, int64(recipients))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	return nil
}

func (r *redisStatsRepository) RecordFailed(ctx context.Context) error {
	if err := r.client.Incr(ctx, failedKey).Err(); err != nil {
		return fmt.Errorf("failed to record failure: %w", err)
	}
	return nil
}

func (r *redisStatsRepository) Get(ctx context.Context) (entity.Stats, error) {
	vals, err := r.client.MGet(ctx, deliveredKey, failedKey, recipientsKey).Result()
	if err != nil {
		return entity.Stats{}, fmt.Errorf("failed to read stats: %w", err)
	}

	counts := make([]int64, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return entity.Stats{}, fmt.Errorf("failed to parse counter: %w", err)
		}
		counts[i] = n
	}
	return entity.Stats{Delivered: counts[0], Failed: counts[1], Recipients: counts[2]}, nil
}

type memoryStatsRepository struct {
	mu    sync.Mutex
	stats entity.Stats
}

// NewMemoryStatsRepository is used when Redis is unavailable; counters are
// per process.
func NewMemoryStatsRepository() StatsRepository {
	return &memoryStatsRepository{}
}

func (r *memoryStatsRepository) RecordDelivered(_ context.Context, recipients int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.Delivered++
	r.stats.Recipients += int64(recipients)
	return nil
}

func (r *memoryStatsRepository) RecordFailed(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.Failed++
	return nil
}

func (r *memoryStatsRepository) Get(_ context.Context) (entity.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats, nil
}
