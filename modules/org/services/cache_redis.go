package services

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/f3nation/f3map/modules/org/domain/org"
)

const defaultRedisCachePrefix = "f3map:org:ancestors"

// redisAncestorCache shares chains between instances. The generation is a
// counter in redis and is part of every entry key, so an INCR retires all
// entries at once and they expire through their TTL. When an INCR fails the
// cache reports itself unavailable until a retried INCR succeeds.
type redisAncestorCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	stale  atomic.Bool
}

func NewRedisAncestorCache(client redis.UniversalClient, prefix string, ttl time.Duration) AncestorCache {
	if prefix == "" {
		prefix = defaultRedisCachePrefix
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &redisAncestorCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *redisAncestorCache) genKey() string {
	return c.prefix + ":gen"
}

func (c *redisAncestorCache) entryKey(stamp Stamp, orgID int64) string {
	return c.prefix + ":" + strconv.FormatUint(stamp.Gen, 10) + ":" + strconv.FormatInt(stamp.Version, 10) + ":" + strconv.FormatInt(orgID, 10)
}

func (c *redisAncestorCache) Generation(ctx context.Context) (uint64, bool) {
	if c.stale.Load() {
		if err := c.client.Incr(ctx, c.genKey()).Err(); err != nil {
			return 0, false
		}
		c.stale.Store(false)
		recordCacheInvalidate("recovered")
	}
	gen, err := c.client.Get(ctx, c.genKey()).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		logWithFields(ctx, logrus.WarnLevel, "org.cache.unavailable", logrus.Fields{"cache": "redis", "error": err.Error()})
		return 0, false
	}
	return gen, true
}

func (c *redisAncestorCache) Get(ctx context.Context, stamp Stamp, orgID int64) ([]org.Node, bool) {
	raw, err := c.client.Get(ctx, c.entryKey(stamp, orgID)).Bytes()
	if err != nil {
		recordCacheRequest("redis", false)
		return nil, false
	}
	var chain []org.Node
	if err := json.Unmarshal(raw, &chain); err != nil || len(chain) == 0 {
		recordCacheRequest("redis", false)
		return nil, false
	}
	recordCacheRequest("redis", true)
	return chain, true
}

func (c *redisAncestorCache) Set(ctx context.Context, stamp Stamp, orgID int64, chain []org.Node) {
	if orgID <= 0 || len(chain) == 0 {
		return
	}
	raw, err := json.Marshal(chain)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.entryKey(stamp, orgID), raw, c.ttl).Err(); err != nil {
		logWithFields(ctx, logrus.WarnLevel, "org.cache.set_failed", logrus.Fields{"cache": "redis", "org_id": orgID, "error": err.Error()})
	}
}

func (c *redisAncestorCache) Invalidate(ctx context.Context, reason string) {
	if err := c.client.Incr(ctx, c.genKey()).Err(); err != nil {
		c.stale.Store(true)
		logWithFields(ctx, logrus.ErrorLevel, "org.cache.invalidate_failed", logrus.Fields{"cache": "redis", "reason": reason, "error": err.Error()})
		return
	}
	c.stale.Store(false)
	recordCacheInvalidate(reason)
}
