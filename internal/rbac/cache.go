package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const snapshotKeyPrefix = "rbac:snapshot"

// SnapshotCache stores role snapshots in Redis keyed by role and epoch. A key
// for an old epoch is simply never asked for again, so writes need no delete.
type SnapshotCache struct {
	client   *redis.Client
	ttl      time.Duration
	logger   *slog.Logger
	group    singleflight.Group
	recorder CacheRecorder
}

// CacheRecorder counts cache lookups by result: hit, miss, discarded, error
// or bypass when no Redis client is configured.
type CacheRecorder interface {
	RecordSnapshotCache(result string)
}

// NewSnapshotCache instantiates the cache helper. A nil client disables caching.
func NewSnapshotCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *SnapshotCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotCache{client: client, ttl: ttl, logger: logger}
}

// WithRecorder attaches rec and returns c.
func (c *SnapshotCache) WithRecorder(rec CacheRecorder) *SnapshotCache {
	if c != nil {
		c.recorder = rec
	}
	return c
}

func (c *SnapshotCache) count(result string) {
	if c.recorder != nil {
		c.recorder.RecordSnapshotCache(result)
	}
}

// Key composes the cache key for role at epoch.
func (c *SnapshotCache) Key(role Role, epoch int64) string {
	return fmt.Sprintf("%s:%s:%d", snapshotKeyPrefix, role, epoch)
}

// Fetch returns the snapshot cached for (role, epoch) or populates it with load.
// Redis failures fall back to load; load failures are returned unchanged.
func (c *SnapshotCache) Fetch(ctx context.Context, role Role, epoch int64, load func(context.Context) (Snapshot, error)) (Snapshot, error) {
	if load == nil {
		return Snapshot{}, errors.New("rbac: snapshot loader required")
	}
	if c == nil || c.client == nil {
		if c != nil {
			c.count("bypass")
		}
		return load(ctx)
	}
	key := c.Key(role, epoch)
	payload, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var snap Snapshot
		if jsonErr := json.Unmarshal(payload, &snap); jsonErr == nil && snap.Role == role && snap.Epoch >= epoch {
			c.count("hit")
			return snap, nil
		}
		c.count("discarded")
		c.logger.Warn("rbac snapshot cache entry discarded", slog.String("key", key))
	case errors.Is(err, redis.Nil):
		c.count("miss")
	default:
		c.count("error")
		c.logger.Warn("rbac snapshot cache read", slog.String("key", key), slog.Any("error", err))
	}

	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		return load(ctx)
	})
	if err != nil {
		return Snapshot{}, err
	}
	snap := result.(Snapshot)
	c.store(ctx, snap)
	return snap, nil
}

func (c *SnapshotCache) store(ctx context.Context, snap Snapshot) {
	raw, err := json.Marshal(snap)
	if err != nil {
		c.logger.Warn("rbac snapshot encode", slog.Any("error", err))
		return
	}
	key := c.Key(snap.Role, snap.Epoch)
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("rbac snapshot cache write", slog.String("key", key), slog.Any("error", err))
	}
}
