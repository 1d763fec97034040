package domain

import (
	"context"
	"time"
)

// EntitlementStatus is the answer to "may this learner use paid content"
type EntitlementStatus string

// StatusNotFound is returned when the learner has no profile or no linked subscription
const StatusNotFound EntitlementStatus = "not_found"

// EntitlementFrom converts a subscription status
func EntitlementFrom(status SubscriptionStatus) EntitlementStatus {
	return EntitlementStatus(status)
}

// GrantsAccess reports whether the status still opens paid content
func (s EntitlementStatus) GrantsAccess() bool {
	switch s {
	case StatusNotFound, EntitlementStatus(StatusExpired), EntitlementStatus(StatusCancelled):
		return false
	}
	return s != ""
}

// EntitlementCache is a short-lived read-through cache of entitlement answers.
// Every invalidation advances a per-learner generation; a fill is only stored when the
// generation it read is still current, so a store read that raced an update is dropped.
type EntitlementCache interface {
	// GetEntitlement returns the cached status, or ok=false on a miss, along with the
	// generation to pass to SetEntitlement when filling the miss
	GetEntitlement(ctx context.Context, learnerID string) (status EntitlementStatus, generation int64, ok bool, err error)
	SetEntitlement(ctx context.Context, learnerID string, status EntitlementStatus, generation int64, ttl time.Duration) (stored bool, err error)
	InvalidateEntitlement(ctx context.Context, learnerID string) error
}
