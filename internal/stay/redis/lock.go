package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const defaultLockTTL = 5 * time.Minute

// Client is the slice of the redis API the lock needs; *redis.Client
// satisfies it.
type Client interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Redis fences concurrent plot assignment with per-plot SetNX locks. The TTL
// bounds how long an abandoned request can hold a plot hostage.
type Redis struct {
	Client  Client
	LockTTL time.Duration
}

func NewRedis(client Client, lockTTL time.Duration) *Redis {
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &Redis{Client: client, LockTTL: lockTTL}
}

func lockKey(plotID string) string {
	return "plot_lock:" + plotID
}

// LockPlot takes the lock for one plot on behalf of a stay.
func (r *Redis) LockPlot(plotID, stayID string) (bool, error) {
	ok, err := r.Client.SetNX(context.Background(), lockKey(plotID), stayID, r.LockTTL).Result()
	return ok, err
}

// UnlockPlot releases the lock only if this stay still owns it.
func (r *Redis) UnlockPlot(plotID, stayID string) error {
	ctx := context.Background()
	key := lockKey(plotID)
	val, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // already released or expired
	}
	if err != nil {
		return err
	}
	if val == stayID {
		_, err := r.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}

// LockPlots takes all locks or none: a partial grab is rolled back before
// reporting failure.
func (r *Redis) LockPlots(plotIDs []string, stayID string) (bool, error) {
	locked := []string{}
	for _, plotID := range plotIDs {
		ok, err := r.LockPlot(plotID, stayID)
		if err != nil {
			for _, l := range locked {
				_ = r.UnlockPlot(l, stayID)
			}
			return false, fmt.Errorf("lock plot %s: %w", plotID, err)
		}
		if !ok {
			for _, l := range locked {
				_ = r.UnlockPlot(l, stayID)
			}
			return false, nil
		}
		locked = append(locked, plotID)
	}
	return true, nil
}

func (r *Redis) UnlockPlots(plotIDs []string, stayID string) error {
	var firstErr error
	for _, plotID := range plotIDs {
		if err := r.UnlockPlot(plotID, stayID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
