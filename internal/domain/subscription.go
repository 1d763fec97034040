package domain

import (
	"context"
	"time"
)

// SubscriptionStatus is the internal lifecycle state of a subscription
type SubscriptionStatus string

// Internal subscription statuses
const (
	StatusActive    SubscriptionStatus = "actif"
	StatusPastDue   SubscriptionStatus = "en_retard"
	StatusCancelled SubscriptionStatus = "annulé"
	StatusExpired   SubscriptionStatus = "expiré"
	StatusSuspended SubscriptionStatus = "suspendu"
	StatusPending   SubscriptionStatus = "en_attente"
)

// externalToInternal maps gateway subscription statuses to internal ones.
// past_due is deliberately absent and passes through.
var externalToInternal = map[string]SubscriptionStatus{
	"active":     StatusActive,
	"canceled":   StatusCancelled,
	"unpaid":     StatusPastDue,
	"incomplete": StatusPending,
	"paused":     StatusSuspended,
}

// MapExternalStatus converts a gateway status into an internal one.
// Unknown values are kept unchanged.
func MapExternalStatus(external string) SubscriptionStatus {
	if status, ok := externalToInternal[external]; ok {
		return status
	}
	return SubscriptionStatus(external)
}

// PaymentSummary is the display copy of a payment kept on the subscription.
// The payments collection is authoritative.
type PaymentSummary struct {
	Date      time.Time `bson:"date" json:"date"`
	Amount    int64     `bson:"amount" json:"amount"`
	InvoiceID string    `bson:"invoice_id" json:"invoice_id"`
}

// Subscription tracks a learner's subscription to a plan
type Subscription struct {
	ID                     string             `bson:"_id,omitempty" json:"id"`
	LearnerID              string             `bson:"learner_id" json:"learner_id"`
	LearnerProfileID       string             `bson:"learner_profile_id,omitempty" json:"learner_profile_id,omitempty"`
	PlanID                 string             `bson:"plan_id" json:"plan_id"`
	ExternalSubscriptionID string             `bson:"external_subscription_id,omitempty" json:"external_subscription_id,omitempty"`
	Status                 SubscriptionStatus `bson:"status" json:"statut"`
	PeriodStart            time.Time          `bson:"period_start" json:"period_start"`
	PeriodEnd              time.Time          `bson:"period_end" json:"period_end"`
	Payments               []PaymentSummary   `bson:"payments" json:"payments"`
	CreatedAt              time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt              time.Time          `bson:"updated_at" json:"updated_at"`
}

// SubscriptionRepository defines operations for managing subscriptions
type SubscriptionRepository interface {
	// Create inserts a subscription. It returns ErrDuplicateSubscription when the external
	// subscription id is already stored and ErrActiveSubscriptionExists when the learner
	// already holds an active subscription.
	Create(ctx context.Context, subscription *Subscription) error
	GetByID(ctx context.Context, id string) (*Subscription, error)
	GetByExternalID(ctx context.Context, externalID string) (*Subscription, error)
	GetActiveByLearnerID(ctx context.Context, learnerID string) (*Subscription, error)
	CountByLearnerID(ctx context.Context, learnerID string) (int64, error)
	SetLearnerProfile(ctx context.Context, id, profileID string) error
	// UpdateStatus sets status and period end; a zero periodEnd leaves it unchanged
	UpdateStatus(ctx context.Context, id string, status SubscriptionStatus, periodEnd time.Time) error
	// UpdateStatusByExternalID behaves like UpdateStatus and returns the updated record
	UpdateStatusByExternalID(ctx context.Context, externalID string, status SubscriptionStatus, periodEnd time.Time) (*Subscription, error)
	// AppendPaymentSummary pushes the entry unless one with the same invoice id exists.
	// It reports whether the entry was added.
	AppendPaymentSummary(ctx context.Context, id string, summary PaymentSummary) (bool, error)
}
