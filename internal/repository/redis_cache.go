package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/mansoorceksport/elearning-billing/internal/domain"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	entitlementKeyPrefix    = "entitlement:"
	entitlementGenKeyPrefix = "entitlement:gen:"

	// generationTTL bounds how long an idle learner's counter is kept
	generationTTL = 24 * time.Hour
)

// setIfGeneration writes KEYS[1] only while KEYS[2] still holds the generation the
// caller read before loading the value. A missing counter counts as generation 0.
var setIfGeneration = redis.NewScript(`
local current = redis.call("GET", KEYS[2]) or "0"
if current ~= ARGV[1] then
	return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`)

// RedisCacheRepository implements domain.EntitlementCache using Redis
type RedisCacheRepository struct {
	client *redis.Client
}

// NewRedisCacheRepository creates a new Redis cache repository
func NewRedisCacheRepository(client *redis.Client) *RedisCacheRepository {
	return &RedisCacheRepository{
		client: client,
	}
}

// GetEntitlement reads the cached entitlement and the learner's invalidation generation
// in one round trip
func (r *RedisCacheRepository) GetEntitlement(ctx context.Context, learnerID string) (domain.EntitlementStatus, int64, bool, error) {
	key := entitlementKeyPrefix + learnerID
	ctx, span := otel.Tracer("redis").Start(ctx, "redis.GetEntitlement",
		trace.WithAttributes(attribute.String("cache.key", key)),
	)
	defer span.End()

	values, err := r.client.MGet(ctx, key, entitlementGenKeyPrefix+learnerID).Result()
	if err != nil {
		span.RecordError(err)
		return "", 0, false, fmt.Errorf("redis mget error: %w", err)
	}

	var generation int64
	if raw, ok := values[1].(string); ok {
		generation, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			span.RecordError(err)
			return "", 0, false, fmt.Errorf("corrupt generation for %s: %w", learnerID, err)
		}
	}

	raw, ok := values[0].(string)
	if !ok {
		span.SetAttributes(attribute.String("cache.result", "miss"))
		return "", generation, false, nil
	}

	var status domain.EntitlementStatus
	if err := json.Unmarshal([]byte(raw), &status); err != nil {
		span.RecordError(err)
		return "", generation, false, fmt.Errorf("unmarshal error: %w", err)
	}
	span.SetAttributes(attribute.String("cache.result", "hit"))
	return status, generation, true, nil
}

// SetEntitlement caches the entitlement with TTL unless the learner was invalidated
// after generation was read. It reports whether the value was stored.
func (r *RedisCacheRepository) SetEntitlement(ctx context.Context, learnerID string, status domain.EntitlementStatus, generation int64, ttl time.Duration) (bool, error) {
	key := entitlementKeyPrefix + learnerID
	ctx, span := otel.Tracer("redis").Start(ctx, "redis.SetEntitlement",
		trace.WithAttributes(
			attribute.String("cache.key", key),
			attribute.Int64("cache.ttl_seconds", int64(ttl.Seconds())),
			attribute.Int64("cache.generation", generation),
		),
	)
	defer span.End()

	data, err := json.Marshal(status)
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("marshal error: %w", err)
	}

	stored, err := setIfGeneration.Run(ctx, r.client,
		[]string{key, entitlementGenKeyPrefix + learnerID},
		strconv.FormatInt(generation, 10), string(data), ttl.Milliseconds(),
	).Int()
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("redis set error: %w", err)
	}
	span.SetAttributes(attribute.Bool("cache.stored", stored == 1))
	return stored == 1, nil
}

// InvalidateEntitlement removes the cached entitlement and bumps the learner's generation
// so that reads started before this call cannot repopulate the cache
func (r *RedisCacheRepository) InvalidateEntitlement(ctx context.Context, learnerID string) error {
	ctx, span := otel.Tracer("redis").Start(ctx, "redis.InvalidateEntitlement",
		trace.WithAttributes(attribute.String("cache.key", entitlementKeyPrefix+learnerID)),
	)
	defer span.End()

	genKey := entitlementGenKeyPrefix + learnerID
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		pipe.Del(ctx, entitlementKeyPrefix+learnerID)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("redis invalidate error: %w", err)
	}
	return nil
}
