package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mansoorceksport/elearning-billing/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoLearnerRepository implements domain.LearnerRepository
type MongoLearnerRepository struct {
	collection *mongo.Collection
}

// NewMongoLearnerRepository creates a new learner profile repository
func NewMongoLearnerRepository(db *mongo.Database) *MongoLearnerRepository {
	coll := db.Collection("learners")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// One profile per account
	coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "account_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	return &MongoLearnerRepository{
		collection: coll,
	}
}

// UpsertSubscription links the subscription to the account's profile in one atomic write
func (r *MongoLearnerRepository) UpsertSubscription(ctx context.Context, accountID, email, subscriptionID string) (*domain.LearnerProfile, error) {
	filter := bson.M{"account_id": accountID}
	now := time.Now().UTC()

	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":             primitive.NewObjectID(),
			"email":           email,
			"certificate_ids": []string{},
			"created_at":      now,
		},
		"$set": bson.M{
			"subscription_id": subscriptionID,
			"updated_at":      now,
		},
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var profile domain.LearnerProfile
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&profile)
	if err != nil && mongo.IsDuplicateKeyError(err) {
		// Two concurrent upserts raced on insert; the loser retries as an update
		err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&profile)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upsert learner profile: %w", err)
	}
	return &profile, nil
}

func (r *MongoLearnerRepository) GetByAccountID(ctx context.Context, accountID string) (*domain.LearnerProfile, error) {
	var profile domain.LearnerProfile
	if err := r.collection.FindOne(ctx, bson.M{"account_id": accountID}).Decode(&profile); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get learner profile: %w", err)
	}
	return &profile, nil
}
