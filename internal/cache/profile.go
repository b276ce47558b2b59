package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"adsboard/internal/model"
)

const (
	// ProfileCachePrefix is the key prefix for cached owner projections
	ProfileCachePrefix = "profile:user:"

	// DefaultProfileCacheTTL applies when no TTL is configured
	DefaultProfileCacheTTL = 10 * time.Minute
)

// ProfileCache caches the public owner projection shown next to ads.
type ProfileCache interface {
	// GetMany returns cached summaries and the ids that missed.
	// Uses a single MGET.
	GetMany(ctx context.Context, ids []int64) (found map[int64]model.UserSummary, missing []int64, err error)

	// SetMany stores summaries with the cache TTL.
	// Uses a pipeline of SET EX commands.
	SetMany(ctx context.Context, users []model.UserSummary) error
}

// RedisProfileCache implements ProfileCache with JSON string values.
type RedisProfileCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewProfileCache creates a new ProfileCache backed by Redis.
func NewProfileCache(client *redis.Client, ttl time.Duration) ProfileCache {
	if ttl <= 0 {
		ttl = DefaultProfileCacheTTL
	}
	return &RedisProfileCache{client: client, ttl: ttl}
}

func profileKey(userID int64) string {
	return ProfileCachePrefix + strconv.FormatInt(userID, 10)
}

func (c *RedisProfileCache) GetMany(ctx context.Context, ids []int64) (map[int64]model.UserSummary, []int64, error) {
	found := make(map[int64]model.UserSummary, len(ids))
	if len(ids) == 0 {
		return found, nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = profileKey(id)
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, ids, fmt.Errorf("mget profiles: %w", err)
	}

	var missing []int64
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			missing = append(missing, ids[i])
			continue
		}
		var u model.UserSummary
		if err := json.Unmarshal([]byte(s), &u); err != nil {
			missing = append(missing, ids[i])
			continue
		}
		found[ids[i]] = u
	}
	return found, missing, nil
}

func (c *RedisProfileCache) SetMany(ctx context.Context, users []model.UserSummary) error {
	if len(users) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for _, u := range users {
		data, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("marshal profile: %w", err)
		}
		pipe.Set(ctx, profileKey(u.ID), data, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set profiles: %w", err)
	}
	return nil
}
