package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPending    = "notifications:email:pending"
	keyProcessing = "notifications:email:processing"
	keyDelayed    = "notifications:email:delayed"

	promoteBatch = 100
)

// moves due members of the delayed set onto the pending list atomically
var promoteScript = redis.NewScript(`
local items = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
for _, v in ipairs(items) do
	redis.call('ZREM', KEYS[1], v)
	redis.call('LPUSH', KEYS[2], v)
end
return #items
`)

type redisQueue struct {
	client *redis.Client
}

// NewRedisQueue returns a TaskQueue backed by a Redis list pair and a sorted set for delayed retries.
func NewRedisQueue(client *redis.Client) TaskQueue {
	return &redisQueue{client: client}
}

func (q *redisQueue) Push(ctx context.Context, task OtpEmailTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task %s: %w", task.ID, err)
	}
	if err := q.client.LPush(ctx, keyPending, data).Err(); err != nil {
		return fmt.Errorf("failed to push task %s: %w", task.ID, err)
	}
	return nil
}

func (q *redisQueue) Reserve(ctx context.Context, wait time.Duration) (*Reservation, error) {
	raw, err := q.client.BLMove(ctx, keyPending, keyProcessing, "RIGHT", "LEFT", wait).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to reserve task: %w", err)
	}

	r := &Reservation{raw: raw}
	if err := json.Unmarshal([]byte(raw), &r.Task); err != nil {
		// an undecodable payload would be redelivered forever
		_ = q.client.LRem(ctx, keyProcessing, 1, raw).Err()
		return nil, fmt.Errorf("dropped malformed task payload: %w", err)
	}
	return r, nil
}

func (q *redisQueue) Ack(ctx context.Context, r *Reservation) error {
	if err := q.client.LRem(ctx, keyProcessing, 1, r.raw).Err(); err != nil {
		return fmt.Errorf("failed to ack task %s: %w", r.Task.ID, err)
	}
	return nil
}

func (q *redisQueue) Retry(ctx context.Context, r *Reservation, at time.Time) error {
	next := r.Task
	next.Attempt++
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to marshal task %s: %w", next.ID, err)
	}

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, keyProcessing, 1, r.raw)
		pipe.ZAdd(ctx, keyDelayed, redis.Z{Score: float64(at.Unix()), Member: data})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to schedule retry for task %s: %w", next.ID, err)
	}
	return nil
}

func (q *redisQueue) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	n, err := promoteScript.Run(ctx, q.client, []string{keyDelayed, keyPending},
		strconv.FormatInt(now.Unix(), 10), promoteBatch).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to promote delayed tasks: %w", err)
	}
	return n, nil
}

// RecoverProcessing puts tasks left in the processing list by a crashed worker back on pending.
// Call it before any worker starts.
func (q *redisQueue) RecoverProcessing(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := q.client.LMove(ctx, keyProcessing, keyPending, "LEFT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("failed to recover processing tasks: %w", err)
		}
		moved++
	}
}
