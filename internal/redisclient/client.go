package redisclient

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/compare_and_delete.lua
var compareAndDeleteScript string

// DefaultIdempotencyTTL is how long a request key keeps pointing at its order.
const DefaultIdempotencyTTL = 24 * time.Hour

// ReservationTTL bounds how long a crashed request can hold its key.
const ReservationTTL = time.Minute

const pendingMarker = "pending"

type Client struct {
	rdb              *redis.Client
	compareAndDelete *redis.Script
	idempotencyTTL   time.Duration
}

// NewClient creates a new Redis client and checks the connection
func NewClient(addr, password string, db int, idempotencyTTL time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewClientFromRedis(rdb, idempotencyTTL), nil
}

// NewClientFromRedis wraps an existing connection
func NewClientFromRedis(rdb *redis.Client, idempotencyTTL time.Duration) *Client {
	if idempotencyTTL <= 0 {
		idempotencyTTL = DefaultIdempotencyTTL
	}
	return &Client{
		rdb:              rdb,
		compareAndDelete: redis.NewScript(compareAndDeleteScript),
		idempotencyTTL:   idempotencyTTL,
	}
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Ping checks the connection, used by the readiness probe
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func idempotencyKey(key string) string {
	return fmt.Sprintf("idempotency:order:%s", key)
}

// ReserveOrder claims key for a request about to create an order. If another
// request holds it, the returned id_input is the order that request created,
// or empty while it is still running.
func (c *Client) ReserveOrder(ctx context.Context, key string) (string, bool, error) {
	k := idempotencyKey(key)
	for attempt := 0; attempt < 2; attempt++ {
		reserved, err := c.rdb.SetNX(ctx, k, pendingMarker, ReservationTTL).Result()
		if err != nil {
			return "", false, err
		}
		if reserved {
			return "", true, nil
		}

		idInput, err := c.rdb.Get(ctx, k).Result()
		if errors.Is(err, redis.Nil) {
			// expired between the two calls
			continue
		}
		if err != nil {
			return "", false, err
		}
		if idInput == pendingMarker {
			return "", false, nil
		}
		return idInput, false, nil
	}
	return "", false, nil
}

// RememberOrder points key at the id_input its request created.
func (c *Client) RememberOrder(ctx context.Context, key, idInput string) error {
	return c.rdb.Set(ctx, idempotencyKey(key), idInput, c.idempotencyTTL).Err()
}

// ForgetOrder releases key while it still points at idInput; an empty idInput
// names the reservation itself.
func (c *Client) ForgetOrder(ctx context.Context, key, idInput string) error {
	if idInput == "" {
		idInput = pendingMarker
	}
	if err := c.compareAndDelete.Run(ctx, c.rdb, []string{idempotencyKey(key)}, idInput).Err(); err != nil {
		return fmt.Errorf("forget idempotency key script failed: %w", err)
	}
	return nil
}

// AcquireLock acquires a distributed lock held by owner until ttl expires
func (c *Client) AcquireLock(ctx context.Context, lockKey, owner string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), owner, ttl).Result()
}

// ReleaseLock releases the lock only if owner still holds it
func (c *Client) ReleaseLock(ctx context.Context, lockKey, owner string) (bool, error) {
	result, err := c.compareAndDelete.Run(ctx, c.rdb, []string{fmt.Sprintf("lock:%s", lockKey)}, owner).Result()
	if err != nil {
		return false, fmt.Errorf("release lock script failed: %w", err)
	}

	released, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected script result type")
	}
	return released == 1, nil
}
