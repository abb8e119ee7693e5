package authz

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/scoutfund/troopsales-backend/pkg/logger"
	redisclient "github.com/scoutfund/troopsales-backend/pkg/redis"
)

// RedisDecisionCache stores resolved decisions in Redis under a short TTL.
// It is the eventually consistent lookup path: a mutation invalidates the
// pair's entry best-effort, so a reader on another instance may observe the
// prior decision until the TTL lapses.
type RedisDecisionCache struct {
	client *redisclient.Client
	logg   *logger.Logger
	ttl    time.Duration
}

// NewRedisDecisionCache builds the cache. A nil client yields a nil cache,
// which the resolver treats as "no caching".
func NewRedisDecisionCache(client *redisclient.Client, logg *logger.Logger, ttl time.Duration) *RedisDecisionCache {
	if client == nil || ttl <= 0 {
		return nil
	}
	return &RedisDecisionCache{client: client, logg: logg, ttl: ttl}
}

func (c *RedisDecisionCache) Get(ctx context.Context, profileID, accountID uuid.UUID) (*Decision, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, c.client.AuthzDecisionKey(profileID.String(), accountID.String()))
	if err != nil {
		if !redisclient.IsNil(err) && c.logg != nil {
			c.logg.Warn(ctx, "authz cache read failed")
		}
		return nil, false
	}
	var decision Decision
	if err := json.Unmarshal([]byte(raw), &decision); err != nil {
		return nil, false
	}
	return &decision, true
}

func (c *RedisDecisionCache) Put(ctx context.Context, profileID, accountID uuid.UUID, decision Decision) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(decision)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.client.AuthzDecisionKey(profileID.String(), accountID.String()), string(raw), c.ttl); err != nil && c.logg != nil {
		c.logg.Warn(ctx, "authz cache write failed")
	}
}

func (c *RedisDecisionCache) Invalidate(ctx context.Context, profileID, accountID uuid.UUID) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, c.client.AuthzDecisionKey(profileID.String(), accountID.String())); err != nil && c.logg != nil {
		c.logg.Warn(ctx, "authz cache invalidation failed")
	}
}
