package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	DefaultCatalogTTL = 5 * time.Minute
	catalogKeyPrefix  = "liftlog::catalog::"
)

var ErrCatalogCacheMiss = errors.New("catalog cache miss")

// CatalogCache keeps a per-account snapshot of the exercise catalog in
// Redis. The key TTL carries the expiry, there is no invalidation on
// write: new workouts show up only after the TTL runs out.
type CatalogCache struct {
	redisClient *redis.Client
	ttl         time.Duration
}

func NewCatalogCache(redisClient *redis.Client, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		redisClient: redisClient,
		ttl:         ttl,
	}
}

func (c *CatalogCache) Get(ctx context.Context, accountID string) ([]CatalogEntry, error) {
	cmd := c.redisClient.Get(ctx, catalogKeyPrefix+accountID)
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCatalogCacheMiss
		}
		return nil, err
	}

	var entries []CatalogEntry
	if err := json.Unmarshal([]byte(cmd.Val()), &entries); err != nil {
		return nil, fmt.Errorf("unmarshal cached catalog: %w", err)
	}

	return entries, nil
}

func (c *CatalogCache) Set(ctx context.Context, accountID string, entries []CatalogEntry) error {
	entriesJson, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	return c.redisClient.Set(ctx, catalogKeyPrefix+accountID, entriesJson, c.ttl).Err()
}
