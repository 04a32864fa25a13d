package lockout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	failureKeyPrefix = "lockout:fail:"
	lockKeyPrefix    = "lockout:lock:"
)

// RedisStore shares lockout state across instances. Failure counters expire
// with the window; lock keys expire with the lock itself, so Redis does the
// cleanup.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) RecordFailure(ctx context.Context, key string, window time.Duration) (int64, error) {
	failKey := failureKeyPrefix + key
	count, err := s.client.Incr(ctx, failKey).Result()
	if err != nil {
		return 0, fmt.Errorf("incr lockout counter: %w", err)
	}
	if count == 1 {
		if err := s.client.Expire(ctx, failKey, window).Err(); err != nil {
			return count, fmt.Errorf("expire lockout counter: %w", err)
		}
	}
	return count, nil
}

func (s *RedisStore) Lock(ctx context.Context, key string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, lockKeyPrefix+key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("set lockout lock: %w", err)
	}
	return nil
}

func (s *RedisStore) LockedUntil(ctx context.Context, key string) (time.Time, bool, error) {
	ttl, err := s.client.PTTL(ctx, lockKeyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("pttl lockout lock: %w", err)
	}
	if ttl <= 0 {
		// -2 key missing, -1 no expiry (never set by us)
		return time.Time{}, false, nil
	}
	return time.Now().Add(ttl), true, nil
}

func (s *RedisStore) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, failureKeyPrefix+key, lockKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("del lockout keys: %w", err)
	}
	return nil
}
