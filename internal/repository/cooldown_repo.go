package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cooldownKeyPrefix = "otp:cooldown:"

// CooldownRepository holds short-lived markers that throttle repeated actions.
type CooldownRepository interface {
	// Acquire sets the marker if absent and reports whether it did.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type cooldownRepository struct {
	client *redis.Client
}

func NewCooldownRepository(client *redis.Client) CooldownRepository {
	return &cooldownRepository{client: client}
}

func (r *cooldownRepository) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, cooldownKeyPrefix+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set cooldown %s: %w", key, err)
	}
	return ok, nil
}

func (r *cooldownRepository) Release(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, cooldownKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to clear cooldown %s: %w", key, err)
	}
	return nil
}
