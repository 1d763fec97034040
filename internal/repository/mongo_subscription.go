package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mansoorceksport/elearning-billing/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	subscriptionExternalIDIndex    = "external_subscription_id_unique"
	subscriptionActiveLearnerIndex = "learner_active_unique"
)

// MongoSubscriptionRepository implements domain.SubscriptionRepository
type MongoSubscriptionRepository struct {
	collection *mongo.Collection
}

// NewMongoSubscriptionRepository creates a new subscription repository
func NewMongoSubscriptionRepository(db *mongo.Database) *MongoSubscriptionRepository {
	coll := db.Collection("subscriptions")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// external_subscription_id is sparse so pending rows without a gateway id are allowed.
	// The partial index keeps at most one actif subscription per learner.
	_, _ = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "external_subscription_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true).SetName(subscriptionExternalIDIndex),
		},
		{
			Keys: bson.D{{Key: "learner_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName(subscriptionActiveLearnerIndex).
				SetPartialFilterExpression(bson.M{"status": string(domain.StatusActive)}),
		},
		{Keys: bson.D{{Key: "learner_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})

	return &MongoSubscriptionRepository{
		collection: coll,
	}
}

func (r *MongoSubscriptionRepository) Create(ctx context.Context, subscription *domain.Subscription) error {
	now := time.Now().UTC()
	subscription.CreatedAt = now
	subscription.UpdatedAt = now
	if subscription.Payments == nil {
		subscription.Payments = []domain.PaymentSummary{}
	}

	objID := primitive.NewObjectID()

	doc := bson.M{
		"_id":          objID,
		"learner_id":   subscription.LearnerID,
		"plan_id":      subscription.PlanID,
		"status":       string(subscription.Status),
		"period_start": subscription.PeriodStart,
		"period_end":   subscription.PeriodEnd,
		"payments":     subscription.Payments,
		"created_at":   subscription.CreatedAt,
		"updated_at":   subscription.UpdatedAt,
	}
	if subscription.ExternalSubscriptionID != "" {
		doc["external_subscription_id"] = subscription.ExternalSubscriptionID
	}
	if subscription.LearnerProfileID != "" {
		doc["learner_profile_id"] = subscription.LearnerProfileID
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return duplicateSubscriptionError(err)
		}
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	subscription.ID = objID.Hex()
	return nil
}

// duplicateSubscriptionError tells the two unique indexes apart by name
func duplicateSubscriptionError(err error) error {
	if strings.Contains(err.Error(), subscriptionActiveLearnerIndex) {
		return domain.ErrActiveSubscriptionExists
	}
	return domain.ErrDuplicateSubscription
}

func (r *MongoSubscriptionRepository) GetByID(ctx context.Context, id string) (*domain.Subscription, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	return r.findOne(ctx, bson.M{"_id": objID})
}

func (r *MongoSubscriptionRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Subscription, error) {
	return r.findOne(ctx, bson.M{"external_subscription_id": externalID})
}

func (r *MongoSubscriptionRepository) GetActiveByLearnerID(ctx context.Context, learnerID string) (*domain.Subscription, error) {
	return r.findOne(ctx, bson.M{
		"learner_id": learnerID,
		"status":     string(domain.StatusActive),
	})
}

func (r *MongoSubscriptionRepository) CountByLearnerID(ctx context.Context, learnerID string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"learner_id": learnerID})
	if err != nil {
		return 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}
	return count, nil
}

func (r *MongoSubscriptionRepository) SetLearnerProfile(ctx context.Context, id, profileID string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrInvalidID
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objID},
		bson.M{"$set": bson.M{
			"learner_profile_id": profileID,
			"updated_at":         time.Now().UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to link learner profile: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrSubscriptionNotFound
	}
	return nil
}

func (r *MongoSubscriptionRepository) UpdateStatus(ctx context.Context, id string, status domain.SubscriptionStatus, periodEnd time.Time) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrInvalidID
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, statusUpdate(status, periodEnd))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrActiveSubscriptionExists
		}
		return fmt.Errorf("failed to update subscription status: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrSubscriptionNotFound
	}
	return nil
}

func (r *MongoSubscriptionRepository) UpdateStatusByExternalID(ctx context.Context, externalID string, status domain.SubscriptionStatus, periodEnd time.Time) (*domain.Subscription, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var sub domain.Subscription
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"external_subscription_id": externalID},
		statusUpdate(status, periodEnd),
		opts,
	).Decode(&sub)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrSubscriptionNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrActiveSubscriptionExists
		}
		return nil, fmt.Errorf("failed to update subscription status: %w", err)
	}
	return &sub, nil
}

func (r *MongoSubscriptionRepository) AppendPaymentSummary(ctx context.Context, id string, summary domain.PaymentSummary) (bool, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, domain.ErrInvalidID
	}

	// The $ne guard makes the push idempotent under concurrent redelivery
	result, err := r.collection.UpdateOne(ctx,
		bson.M{
			"_id":                 objID,
			"payments.invoice_id": bson.M{"$ne": summary.InvoiceID},
		},
		bson.M{
			"$push": bson.M{"payments": summary},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return false, fmt.Errorf("failed to append payment summary: %w", err)
	}
	return result.ModifiedCount > 0, nil
}

func (r *MongoSubscriptionRepository) findOne(ctx context.Context, filter bson.M) (*domain.Subscription, error) {
	var sub domain.Subscription
	if err := r.collection.FindOne(ctx, filter).Decode(&sub); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}

func statusUpdate(status domain.SubscriptionStatus, periodEnd time.Time) bson.M {
	set := bson.M{
		"status":     string(status),
		"updated_at": time.Now().UTC(),
	}
	if !periodEnd.IsZero() {
		set["period_end"] = periodEnd
	}
	return bson.M{"$set": set}
}
