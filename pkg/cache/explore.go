// Package cache holds short-lived read caches in front of Postgres.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-canvas/pkg/models"
)

const (
	exploreKeyPrefix  = "canvas:explore:"
	exploreVersionKey = exploreKeyPrefix + "version"
)

// NoVersion is returned by Get when the cache version could not be read.
// Set ignores pages stamped with it.
const NoVersion int64 = -1

// ExploreCache caches public explore pages. Implementations are best-effort:
// failures are logged and reported as misses.
//
// Get reports the cache version it observed. Callers pass that version back
// to Set so a page read before an Invalidate is filed under the old version
// and never served.
type ExploreCache interface {
	Get(ctx context.Context, q models.ExploreQuery) (page *models.ExplorePage, version int64, ok bool)
	Set(ctx context.Context, q models.ExploreQuery, version int64, page *models.ExplorePage)
	// Invalidate drops every cached page, e.g. after a new image completes
	// or an image is deleted.
	Invalidate(ctx context.Context)
}

// NopExploreCache is used when Redis is not configured.
type NopExploreCache struct{}

func (NopExploreCache) Get(context.Context, models.ExploreQuery) (*models.ExplorePage, int64, bool) {
	return nil, NoVersion, false
}
func (NopExploreCache) Set(context.Context, models.ExploreQuery, int64, *models.ExplorePage) {}
func (NopExploreCache) Invalidate(context.Context) {}

// RedisExploreCache stores pages under a version-stamped key. Invalidate
// bumps the version so stale pages are never read again and expire on their own.
type RedisExploreCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

var (
	_ ExploreCache = NopExploreCache{}
	_ ExploreCache = (*RedisExploreCache)(nil)
)

// NewRedisExploreCache creates a cache with the given entry TTL.
func NewRedisExploreCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisExploreCache {
	return &RedisExploreCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("explore-cache"),
	}
}

func (c *RedisExploreCache) version(ctx context.Context) (int64, error) {
	v, err := c.client.Get(ctx, exploreVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// Get returns the cached page for q, if any, along with the version it
// looked under.
func (c *RedisExploreCache) Get(ctx context.Context, q models.ExploreQuery) (*models.ExplorePage, int64, bool) {
	version, err := c.version(ctx)
	if err != nil {
		c.logger.Warn("Failed to read explore cache version", zap.Error(err))
		return nil, NoVersion, false
	}

	data, err := c.client.Get(ctx, ExploreKey(version, q)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Failed to read explore cache", zap.Error(err))
		}
		return nil, version, false
	}

	var page models.ExplorePage
	if err := json.Unmarshal(data, &page); err != nil {
		c.logger.Warn("Discarding corrupt explore cache entry", zap.Error(err))
		return nil, version, false
	}
	return &page, version, true
}

// Set stores page for q under version, which must come from the Get that
// missed. If the cache was invalidated in between, the entry lands under a
// retired version and is never read.
func (c *RedisExploreCache) Set(ctx context.Context, q models.ExploreQuery, version int64, page *models.ExplorePage) {
	if version == NoVersion {
		return
	}

	data, err := json.Marshal(page)
	if err != nil {
		c.logger.Warn("Failed to encode explore page", zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, ExploreKey(version, q), data, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to write explore cache", zap.Error(err))
	}
}

// Invalidate bumps the cache version.
func (c *RedisExploreCache) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, exploreVersionKey).Err(); err != nil {
		c.logger.Warn("Failed to invalidate explore cache", zap.Error(err))
	}
}

// ExploreKey derives the cache key for a query at a cache version. The search
// text is hashed so arbitrary user input never ends up in a key.
func ExploreKey(version int64, q models.ExploreQuery) string {
	cursor := "-"
	if q.Cursor != nil {
		cursor = strconv.FormatInt(q.Cursor.UnixMicro(), 10)
	}
	sum := sha256.Sum256([]byte(q.Search))
	return fmt.Sprintf("%sv%d:%d:%s:%s", exploreKeyPrefix, version, q.Limit, cursor, hex.EncodeToString(sum[:8]))
}
