package profile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"kycgate/internal/tools"
)

const cacheKeyPrefix = "kyc:profile:"

// CachedStore is a read-through Redis cache in front of another Store.
// Only hits are cached. Cache errors degrade to the underlying store.
type CachedStore struct {
	next   Store
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedStore wraps next with a cache entry TTL of ttl.
func NewCachedStore(next Store, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedStore{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

// cacheKey hashes the identity number so raw national ids never appear in
// the keyspace.
func cacheKey(identityNumber string) string {
	sum := sha256.Sum256([]byte(identityNumber))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

func (c *CachedStore) FindByIdentityNumber(ctx context.Context, identityNumber string) (*tools.ProfileRecord, error) {
	key := cacheKey(identityNumber)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var rec tools.ProfileRecord
		if jsonErr := json.Unmarshal(raw, &rec); jsonErr == nil {
			return &rec, nil
		}
		c.logger.WarnContext(ctx, "discarding malformed profile cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "profile cache read failed", "error", err)
	}

	rec, err := c.next.FindByIdentityNumber(ctx, identityNumber)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(rec); err == nil {
		if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.WarnContext(ctx, "profile cache write failed", "error", err)
		}
	}
	return rec, nil
}

func (c *CachedStore) Save(ctx context.Context, w tools.ProfileWrite) error {
	if err := c.next.Save(ctx, w); err != nil {
		return err
	}
	if err := c.rdb.Del(ctx, cacheKey(w.IdentityNumber)).Err(); err != nil {
		c.logger.WarnContext(ctx, "profile cache invalidation failed", "error", err)
	}
	return nil
}
