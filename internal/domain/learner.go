package domain

import (
	"context"
	"time"
)

// LearnerProfile is the learning-side record of an account
type LearnerProfile struct {
	ID             string    `bson:"_id,omitempty" json:"id"`
	AccountID      string    `bson:"account_id" json:"account_id"`
	Email          string    `bson:"email" json:"email"`
	CertificateIDs []string  `bson:"certificate_ids" json:"certificate_ids"`
	SubscriptionID string    `bson:"subscription_id,omitempty" json:"subscription_id,omitempty"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updated_at"`
}

// LearnerRepository defines operations for learner profiles
type LearnerRepository interface {
	// UpsertSubscription links subscriptionID to the profile of accountID, creating the
	// profile with the given email when none exists. It returns the resulting profile.
	UpsertSubscription(ctx context.Context, accountID, email, subscriptionID string) (*LearnerProfile, error)
	GetByAccountID(ctx context.Context, accountID string) (*LearnerProfile, error)
}
