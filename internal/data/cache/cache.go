package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache is a JSON read-through cache. Misses are reported as (false, nil).
//
// Every Delete bumps a per-key generation. A reader takes a Stamp before
// loading from storage and fills the key with SetIfUnchanged, which is a
// no-op when the key was invalidated in between.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Stamp(ctx context.Context, key string) (int64, error)
	SetIfUnchanged(ctx context.Context, key string, value any, stamp int64) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}

func generationKey(key string) string {
	return "gen:" + key
}

func BookingHistoryKey(userID uuid.UUID) string {
	return fmt.Sprintf("bookings:history:%s", userID)
}

func CurrentBookingsKey(userID uuid.UUID) string {
	return fmt.Sprintf("bookings:current:%s", userID)
}

func TripKey(tripID uuid.UUID) string {
	return fmt.Sprintf("trip:%s", tripID)
}

// UserKeys lists every projection cached for a user
func UserKeys(userID uuid.UUID) []string {
	return []string{BookingHistoryKey(userID), CurrentBookingsKey(userID)}
}

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, log *zap.Logger) Cache {
	return &redisCache{
		client: client,
		ttl:    ttl,
		log:    log.With(zap.String("cache", "redis")),
	}
}

func (c *redisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		c.log.Warn("Dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		_ = c.client.Del(ctx, key).Err()
		return false, nil
	}

	return true, nil
}

// setIfUnchanged writes KEYS[1] only while the generation in KEYS[2]
// still equals ARGV[2]. A missing generation counts as 0.
var setIfUnchanged = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[2] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

func (c *redisCache) Stamp(ctx context.Context, key string) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache stamp %s: %w", key, err)
	}
	return gen, nil
}

func (c *redisCache) SetIfUnchanged(ctx context.Context, key string, value any, stamp int64) (bool, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("cache encode %s: %w", key, err)
	}

	stored, err := setIfUnchanged.Run(ctx, c.client,
		[]string{key, generationKey(key)},
		raw, strconv.FormatInt(stamp, 10), c.ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("cache set %s: %w", key, err)
	}

	if stored == 0 {
		c.log.Debug("Skipped caching invalidated read", zap.String("key", key))
	}
	return stored == 1, nil
}

// generationTTL outlives any in-flight read by a wide margin
func (c *redisCache) generationTTL() time.Duration {
	return max(10*c.ttl, time.Hour)
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	_, err := c.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, keys...)
		for _, k := range keys {
			p.Incr(ctx, generationKey(k))
			p.Expire(ctx, generationKey(k), c.generationTTL())
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache delete %v: %w", keys, err)
	}

	return nil
}

type noopCache struct{}

// NewNoopCache is used when Redis is not reachable at startup
func NewNoopCache() Cache { return noopCache{} }

func (noopCache) Get(context.Context, string, any) (bool, error) { return false, nil }
func (noopCache) Stamp(context.Context, string) (int64, error)   { return 0, nil }
func (noopCache) Delete(context.Context, ...string) error        { return nil }
func (noopCache) SetIfUnchanged(context.Context, string, any, int64) (bool, error) {
	return false, nil
}
