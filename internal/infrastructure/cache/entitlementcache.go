package cache

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"traino/internal/shared/logger"
)

// CachedEntitlement is the cached capacity snapshot for a trainer. It mirrors
// what the entitlement resolver computes from the store so repeated dashboard
// reads don't hit the database.
type CachedEntitlement struct {
	PlanSlots       int64  // Slot count from the current plan assignment, 0 if expired or absent
	TokensAvailable int64  // Sum of unbound active token quantity
	TokensConsumed  int64  // Sum of bound active token quantity
	BoundConsumers  int64  // Consumers currently occupying a slot
	PlanSID         string // Current or last-active assignment SID, empty when none
	PlanExpired     bool   // Whether the latest assignment exists but has lapsed
}

// EntitlementCache defines the interface for trainer entitlement caching
type EntitlementCache interface {
	Get(ctx context.Context, trainerID uint) (*CachedEntitlement, error)
	Set(ctx context.Context, trainerID uint, entitlement *CachedEntitlement) error
	// Invalidate drops the snapshot. Called after every capacity mutation so
	// readers never see a stale slot count for longer than one round trip.
	Invalidate(ctx context.Context, trainerID uint) error
}

const (
	entitlementKeyPrefix = "trainer:entitlement:"
	entitlementTTLJitter = 10 * time.Second // anti-stampede

	fieldPlanSlots       = "plan_slots"
	fieldTokensAvailable = "tokens_available"
	fieldTokensConsumed  = "tokens_consumed"
	fieldBoundConsumers  = "bound_consumers"
	fieldPlanSID         = "plan_sid"
	fieldPlanExpired     = "plan_expired"
)

// RedisEntitlementCache implements EntitlementCache using Redis Hash
type RedisEntitlementCache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Interface
}

// NewRedisEntitlementCache creates a new Redis-based entitlement cache
func NewRedisEntitlementCache(client *redis.Client, ttl time.Duration, logger logger.Interface) *RedisEntitlementCache {
	return &RedisEntitlementCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *RedisEntitlementCache) key(trainerID uint) string {
	return fmt.Sprintf("%s%d", entitlementKeyPrefix, trainerID)
}

// Get retrieves the entitlement snapshot from cache. Returns nil on cache miss.
func (c *RedisEntitlementCache) Get(ctx context.Context, trainerID uint) (*CachedEntitlement, error) {
	result, err := c.client.HGetAll(ctx, c.key(trainerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get entitlement from cache: %w", err)
	}

	if len(result) == 0 {
		return nil, nil // Cache miss
	}

	ent := &CachedEntitlement{}

	if v, ok := result[fieldPlanSlots]; ok {
		ent.PlanSlots, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := result[fieldTokensAvailable]; ok {
		ent.TokensAvailable, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := result[fieldTokensConsumed]; ok {
		ent.TokensConsumed, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := result[fieldBoundConsumers]; ok {
		ent.BoundConsumers, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := result[fieldPlanSID]; ok {
		ent.PlanSID = v
	}
	if v, ok := result[fieldPlanExpired]; ok {
		ent.PlanExpired = v == "1"
	}

	return ent, nil
}

// Set stores the entitlement snapshot with a jittered TTL
func (c *RedisEntitlementCache) Set(ctx context.Context, trainerID uint, ent *CachedEntitlement) error {
	key := c.key(trainerID)

	planExpired := "0"
	if ent.PlanExpired {
		planExpired = "1"
	}

	fields := map[string]interface{}{
		fieldPlanSlots:       ent.PlanSlots,
		fieldTokensAvailable: ent.TokensAvailable,
		fieldTokensConsumed:  ent.TokensConsumed,
		fieldBoundConsumers:  ent.BoundConsumers,
		fieldPlanSID:         ent.PlanSID,
		fieldPlanExpired:     planExpired,
	}

	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, c.ttlWithJitter())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set entitlement cache: %w", err)
	}

	return nil
}

// Invalidate drops the cached snapshot for the trainer
func (c *RedisEntitlementCache) Invalidate(ctx context.Context, trainerID uint) error {
	if err := c.client.Del(ctx, c.key(trainerID)).Err(); err != nil {
		c.logger.Warnw("failed to invalidate entitlement cache",
			"error", err, "trainer_id", trainerID)
		return fmt.Errorf("failed to invalidate entitlement cache: %w", err)
	}
	return nil
}

func (c *RedisEntitlementCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 30 * time.Second
	}
	return c.ttl + rand.N(entitlementTTLJitter)
}
