package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/mansoorceksport/elearning-billing/internal/domain"
	"github.com/mansoorceksport/elearning-billing/internal/telemetry"
)

// EntitlementService answers whether a learner may access paid content
type EntitlementService struct {
	learnerRepo domain.LearnerRepository
	subRepo     domain.SubscriptionRepository
	planRepo    domain.PlanRepository
	ledger      *PaymentLedger
	cache       domain.EntitlementCache // optional
	ttl         time.Duration
}

func NewEntitlementService(
	learnerRepo domain.LearnerRepository,
	subRepo domain.SubscriptionRepository,
	planRepo domain.PlanRepository,
	ledger *PaymentLedger,
	cache domain.EntitlementCache,
	ttl time.Duration,
) *EntitlementService {
	return &EntitlementService{
		learnerRepo: learnerRepo,
		subRepo:     subRepo,
		planRepo:    planRepo,
		ledger:      ledger,
		cache:       cache,
		ttl:         ttl,
	}
}

// LearnerSubscription is a learner's current subscription with its plan and payment history
type LearnerSubscription struct {
	Subscription *domain.Subscription `json:"subscription"`
	Plan         *domain.Plan         `json:"plan,omitempty"`
	Payments     []*domain.Payment    `json:"payments"`
}

// Status returns the status of the subscription linked to the learner's profile.
// A learner without a profile or a linked subscription gets StatusNotFound, never an error.
func (s *EntitlementService) Status(ctx context.Context, learnerID string) (domain.EntitlementStatus, error) {
	// fill stays false when the cache is off or unreachable
	var generation int64
	fill := false
	if s.cacheEnabled() {
		status, gen, ok, err := s.cache.GetEntitlement(ctx, learnerID)
		if err != nil {
			log.Printf("[Entitlement] Warning: cache read failed for %s: %v", learnerID, err)
		} else {
			telemetry.RecordCacheLookup(ctx, ok)
			if ok {
				return status, nil
			}
			generation, fill = gen, true
		}
	}

	sub, err := s.linkedSubscription(ctx, learnerID)
	if err != nil {
		return "", err
	}

	status := domain.StatusNotFound
	if sub != nil {
		status = domain.EntitlementFrom(sub.Status)
	}

	if fill {
		stored, err := s.cache.SetEntitlement(ctx, learnerID, status, generation, s.ttl)
		if err != nil {
			log.Printf("[Entitlement] Warning: cache write failed for %s: %v", learnerID, err)
		} else if !stored {
			log.Printf("[Entitlement] Learner %s changed during lookup, not caching %s", learnerID, status)
		}
	}
	return status, nil
}

// MySubscription returns the learner's linked subscription and its plan
func (s *EntitlementService) MySubscription(ctx context.Context, learnerID string) (*LearnerSubscription, error) {
	sub, err := s.linkedSubscription(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, domain.ErrSubscriptionNotFound
	}

	plan, err := s.planRepo.GetByID(ctx, sub.PlanID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		log.Printf("[Entitlement] Plan %s of subscription %s no longer exists", sub.PlanID, sub.ID)
		plan = nil
	}

	payments, err := s.ledger.History(ctx, sub.ID)
	if err != nil {
		return nil, err
	}

	return &LearnerSubscription{Subscription: sub, Plan: plan, Payments: payments}, nil
}

// linkedSubscription follows profile -> subscription. Missing links return nil, nil.
func (s *EntitlementService) linkedSubscription(ctx context.Context, learnerID string) (*domain.Subscription, error) {
	profile, err := s.learnerRepo.GetByAccountID(ctx, learnerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if profile.SubscriptionID == "" {
		return nil, nil
	}

	sub, err := s.subRepo.GetByID(ctx, profile.SubscriptionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidID) {
			log.Printf("[Entitlement] Profile %s links missing subscription %s", profile.ID, profile.SubscriptionID)
			return nil, nil
		}
		return nil, err
	}
	return sub, nil
}

func (s *EntitlementService) cacheEnabled() bool {
	return s.cache != nil && s.ttl > 0
}
