package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/cloudmaster/examprep/internal/config"
)

// DeadlineRepository keeps timed sessions in a Redis sorted set scored by
// their deadline in Unix milliseconds, so expired sessions can be found
// without scanning storage.
type DeadlineRepository struct {
	rdb *redis.Client
}

// NewDeadlineRepository creates a new DeadlineRepository.
func NewDeadlineRepository(rdb *redis.Client) *DeadlineRepository {
	return &DeadlineRepository{rdb: rdb}
}

// Track registers or moves the deadline of a session.
func (r *DeadlineRepository) Track(ctx context.Context, id uuid.UUID, deadline time.Time) error {
	return r.rdb.ZAdd(ctx, config.WorkerKey.SessionDeadlines, redis.Z{
		Score:  float64(deadline.UnixMilli()),
		Member: id.String(),
	}).Err()
}

// Untrack forgets a session deadline.
func (r *DeadlineRepository) Untrack(ctx context.Context, id uuid.UUID) error {
	return r.rdb.ZRem(ctx, config.WorkerKey.SessionDeadlines, id.String()).Err()
}

// Due returns up to limit sessions whose deadline is at or before now.
// Malformed members are removed.
func (r *DeadlineRepository) Due(ctx context.Context, now time.Time, limit int64) ([]uuid.UUID, error) {
	members, err := r.rdb.ZRangeByScore(ctx, config.WorkerKey.SessionDeadlines, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: limit,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("range deadlines: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			r.rdb.ZRem(ctx, config.WorkerKey.SessionDeadlines, m)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// MarkFailed moves a session that could not be auto-submitted to the failed
// queue for inspection.
func (r *DeadlineRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	pipe := r.rdb.TxPipeline()
	pipe.ZRem(ctx, config.WorkerKey.SessionDeadlines, id.String())
	pipe.RPush(ctx, config.WorkerKey.ExpiryFailedQueue, id.String())
	_, err := pipe.Exec(ctx)
	return err
}
