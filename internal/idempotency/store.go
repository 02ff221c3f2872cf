// Package idempotency records checkout idempotency keys so a retried request
// returns the order produced by the first attempt.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const pendingMarker = "pending"

// Claim is the outcome of claiming a key.
type Claim struct {
	// Acquired is true when the caller now owns the key and should run the checkout.
	Acquired bool

	// OrderID is set when a previous attempt with the same key already completed.
	OrderID uuid.UUID
}

// InFlight reports that another attempt holds the key and has not finished.
func (c Claim) InFlight() bool {
	return !c.Acquired && c.OrderID == uuid.Nil
}

// UserKey scopes a client supplied key to the user who sent it, so equal
// header values from different users never collide.
func UserKey(userID, requestKey string) string {
	return userID + ":" + requestKey
}

// Store tracks idempotency keys.
type Store interface {
	Claim(ctx context.Context, key string) (Claim, error)
	Complete(ctx context.Context, key string, orderID uuid.UUID) error
	Release(ctx context.Context, key string) error
}

// RedisStore keeps keys in Redis with a TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Claim atomically marks key as pending if nobody holds it.
func (s *RedisStore) Claim(ctx context.Context, key string) (Claim, error) {
	k := redisKey(key)

	ok, err := s.client.SetNX(ctx, k, pendingMarker, s.ttl).Result()
	if err != nil {
		return Claim{}, fmt.Errorf("redis setnx failed: %w", err)
	}
	if ok {
		return Claim{Acquired: true}, nil
	}

	val, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// Expired or released between the two calls; try once more.
		ok, err = s.client.SetNX(ctx, k, pendingMarker, s.ttl).Result()
		if err != nil {
			return Claim{}, fmt.Errorf("redis setnx failed: %w", err)
		}
		return Claim{Acquired: ok}, nil
	}
	if err != nil {
		return Claim{}, fmt.Errorf("redis get failed: %w", err)
	}

	if val == pendingMarker {
		return Claim{}, nil
	}
	orderID, err := uuid.Parse(val)
	if err != nil {
		return Claim{}, fmt.Errorf("corrupt idempotency record for %q: %w", key, err)
	}
	return Claim{OrderID: orderID}, nil
}

// Complete stores the resulting order id for key.
func (s *RedisStore) Complete(ctx context.Context, key string, orderID uuid.UUID) error {
	if err := s.client.Set(ctx, redisKey(key), orderID.String(), s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Release frees a pending key so the request can be retried after a failure.
func (s *RedisStore) Release(ctx context.Context, key string) error {
	k := redisKey(key)
	val, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis get failed: %w", err)
	}
	if val != pendingMarker {
		return nil
	}
	if err := s.client.Del(ctx, k).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func redisKey(key string) string {
	return fmt.Sprintf("checkout:idem:%s", key)
}

// NopStore accepts every claim. Used when Redis is disabled.
type NopStore struct{}

func (NopStore) Claim(context.Context, string) (Claim, error)      { return Claim{Acquired: true}, nil }
func (NopStore) Complete(context.Context, string, uuid.UUID) error { return nil }
func (NopStore) Release(context.Context, string) error             { return nil }
