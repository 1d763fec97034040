package service

import (
	"context"
	"fmt"
	"log"

	"github.com/mansoorceksport/elearning-billing/internal/domain"
)

// LearnerProvisioner creates or relinks the learner profile of a subscription
type LearnerProvisioner struct {
	learnerRepo domain.LearnerRepository
	subRepo     domain.SubscriptionRepository
}

func NewLearnerProvisioner(learnerRepo domain.LearnerRepository, subRepo domain.SubscriptionRepository) *LearnerProvisioner {
	return &LearnerProvisioner{
		learnerRepo: learnerRepo,
		subRepo:     subRepo,
	}
}

// Provision links the subscription to the account's profile, creating the profile
// when absent, then records the profile on the subscription. Both writes are
// idempotent so a redelivered event can safely run them again.
func (p *LearnerProvisioner) Provision(ctx context.Context, account *domain.Account, subscriptionID string) (*domain.LearnerProfile, error) {
	profile, err := p.learnerRepo.UpsertSubscription(ctx, account.ID, account.Email, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to provision learner profile: %w", err)
	}

	if err := p.subRepo.SetLearnerProfile(ctx, subscriptionID, profile.ID); err != nil {
		return nil, fmt.Errorf("failed to link learner profile %s: %w", profile.ID, err)
	}

	log.Printf("[Provisioner] Learner profile %s linked to subscription %s", profile.ID, subscriptionID)
	return profile, nil
}
