package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/web3-frozen/yield-engine/internal/yield"
)

const (
	liveSetKey = "yield-engine:live-set"
	defaultTTL = 60 * time.Second
)

// LiveSet keeps the last ranked live set in Redis for a short TTL.
type LiveSet struct {
	rdb *redis.Client
	ttl time.Duration
}

// New creates a LiveSet backed by Redis.
func New(redisURL, password string, ttl time.Duration) (*LiveSet, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	if password != "" {
		opts.Password = password
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &LiveSet{rdb: rdb, ttl: ttl}, nil
}

// Close shuts down the Redis connection.
func (c *LiveSet) Close() error {
	return c.rdb.Close()
}

// Ping reports whether Redis is reachable.
func (c *LiveSet) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Load returns the cached live set. Any Redis or decode error is a miss.
func (c *LiveSet) Load(ctx context.Context) ([]yield.Record, bool) {
	raw, err := c.rdb.Get(ctx, liveSetKey).Bytes()
	if err != nil {
		return nil, false
	}
	var recs []yield.Record
	if err := json.Unmarshal(raw, &recs); err != nil || len(recs) == 0 {
		return nil, false
	}
	return recs, true
}

// Store caches records until the TTL lapses. Empty sets are never stored.
func (c *LiveSet) Store(ctx context.Context, records []yield.Record) {
	if len(records) == 0 {
		return
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, liveSetKey, raw, c.ttl) //nolint:errcheck
}

// Clear drops the cached live set.
func (c *LiveSet) Clear(ctx context.Context) {
	c.rdb.Del(ctx, liveSetKey) //nolint:errcheck
}
