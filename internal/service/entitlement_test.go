package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mansoorceksport/elearning-billing/internal/domain"
	"github.com/mansoorceksport/elearning-billing/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisCache(t *testing.T) (*repository.RedisCacheRepository, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return repository.NewRedisCacheRepository(client), mr
}

func TestEntitlement_NotFound(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	// No profile
	status, err := f.entitlement.Status(ctx, "L1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNotFound, status)

	// Profile without subscription
	f.learners.Put(domain.LearnerProfile{AccountID: "L1", Email: "l1@example.com"})
	status, err = f.entitlement.Status(ctx, "L1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNotFound, status)

	// Dangling link
	f.learners.Put(domain.LearnerProfile{AccountID: "L2", SubscriptionID: "64b000000000000000000000"})
	status, err = f.entitlement.Status(ctx, "L2")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNotFound, status)
	assert.False(t, status.GrantsAccess())
}

func TestEntitlement_ReturnsStoredStatus(t *testing.T) {
	tests := []struct {
		external string
		want     domain.SubscriptionStatus
		access   bool
	}{
		{"active", domain.StatusActive, true},
		{"unpaid", domain.StatusPastDue, true},
		{"paused", domain.StatusSuspended, true},
		{"canceled", domain.StatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(tt.external, func(t *testing.T) {
			f := newFixture(t, nil)
			f.putSubscription("sub_1", "L1", tt.external)
			result := deliver(t, f, checkoutCompletedPayload("evt_1", "cs_1", "sub_1"))
			require.NoError(t, result.Err)

			status, err := f.entitlement.Status(context.Background(), "L1")
			require.NoError(t, err)
			assert.Equal(t, domain.EntitlementFrom(tt.want), status)
			assert.Equal(t, tt.access, status.GrantsAccess())
		})
	}
}

func TestEntitlement_CacheInvalidatedByWebhook(t *testing.T) {
	cache, mr := newRedisCache(t)
	f := newFixture(t, cache)
	ctx := context.Background()

	f.putSubscription("sub_1", "L1", "active")
	deliver(t, f, checkoutCompletedPayload("evt_1", "cs_1", "sub_1"))

	status, err := f.entitlement.Status(ctx, "L1")
	require.NoError(t, err)
	assert.Equal(t, domain.EntitlementFrom(domain.StatusActive), status)
	assert.True(t, mr.Exists("entitlement:L1"))

	deliver(t, f, subscriptionDeletedPayload("evt_2", "sub_1", periodEnd))
	assert.False(t, mr.Exists("entitlement:L1"))

	status, err = f.entitlement.Status(ctx, "L1")
	require.NoError(t, err)
	assert.Equal(t, domain.EntitlementFrom(domain.StatusCancelled), status)
}

func TestEntitlement_CacheHit(t *testing.T) {
	cache, _ := newRedisCache(t)
	f := newFixture(t, cache)
	ctx := context.Background()

	_, err := cache.SetEntitlement(ctx, "L1", domain.EntitlementFrom(domain.StatusSuspended), 0, f.entitlement.ttl)
	require.NoError(t, err)

	status, err := f.entitlement.Status(ctx, "L1")
	require.NoError(t, err)
	assert.Equal(t, domain.EntitlementFrom(domain.StatusSuspended), status)
}

func TestEntitlement_CacheDownFallsBackToStore(t *testing.T) {
	cache, mr := newRedisCache(t)
	f := newFixture(t, cache)

	f.putSubscription("sub_1", "L1", "active")
	deliver(t, f, checkoutCompletedPayload("evt_1", "cs_1", "sub_1"))
	mr.Close()

	status, err := f.entitlement.Status(context.Background(), "L1")
	require.NoError(t, err)
	assert.Equal(t, domain.EntitlementFrom(domain.StatusActive), status)
}

func TestEntitlement_MySubscription(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.entitlement.MySubscription(ctx, "L1")
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)

	f.putSubscription("sub_1", "L1", "active")
	deliver(t, f, checkoutCompletedPayload("evt_1", "cs_1", "sub_1"))

	mine, err := f.entitlement.MySubscription(ctx, "L1")
	require.NoError(t, err)
	assert.Equal(t, "sub_1", mine.Subscription.ExternalSubscriptionID)
	require.NotNil(t, mine.Plan)
	assert.Equal(t, "Premium", mine.Plan.Name)
	assert.Empty(t, mine.Payments)

	deliver(t, f, invoicePaidPayload("evt_2", "inv_1", "sub_1", 1999))

	mine, err = f.entitlement.MySubscription(ctx, "L1")
	require.NoError(t, err)
	require.Len(t, mine.Payments, 1)
	assert.Equal(t, "inv_1", mine.Payments[0].ExternalInvoiceID)
	assert.Equal(t, int64(1999), mine.Payments[0].Amount)
}

// interleavedSubscriptions runs onRead once, right after the first GetByID returns
type interleavedSubscriptions struct {
	domain.SubscriptionRepository
	once   sync.Once
	onRead func()
}

func (r *interleavedSubscriptions) GetByID(ctx context.Context, id string) (*domain.Subscription, error) {
	sub, err := r.SubscriptionRepository.GetByID(ctx, id)
	r.once.Do(r.onRead)
	return sub, err
}

func TestEntitlement_CancellationDuringLookupIsNotCached(t *testing.T) {
	cache, mr := newRedisCache(t)
	f := newFixture(t, cache)
	ctx := context.Background()

	f.putSubscription("sub_1", "L1", "active")
	deliver(t, f, checkoutCompletedPayload("evt_1", "cs_1", "sub_1"))
	require.False(t, mr.Exists("entitlement:L1"))

	subs := &interleavedSubscriptions{
		SubscriptionRepository: f.subs,
		onRead: func() {
			result := deliver(t, f, subscriptionDeletedPayload("evt_2", "sub_1", periodEnd))
			require.NoError(t, result.Err)
		},
	}
	gate := NewEntitlementService(f.learners, subs, f.plans, NewPaymentLedger(f.payments), cache, time.Minute)

	// The in-flight lookup read the subscription before the cancellation landed
	status, err := gate.Status(ctx, "L1")
	require.NoError(t, err)
	assert.Equal(t, domain.EntitlementFrom(domain.StatusActive), status)
	assert.False(t, mr.Exists("entitlement:L1"), "stale answer must not be cached")

	stored, err := f.subs.GetByExternalID(ctx, "sub_1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusCancelled, stored.Status)

	status, err = gate.Status(ctx, "L1")
	require.NoError(t, err)
	assert.Equal(t, domain.EntitlementFrom(domain.StatusCancelled), status)
	assert.False(t, status.GrantsAccess())
}
