package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mansoorceksport/elearning-billing/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDeviceTokenRepository implements domain.DeviceTokenRepository
type MongoDeviceTokenRepository struct {
	collection *mongo.Collection
}

func NewMongoDeviceTokenRepository(db *mongo.Database) *MongoDeviceTokenRepository {
	coll := db.Collection("device_tokens")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "account_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	return &MongoDeviceTokenRepository{
		collection: coll,
	}
}

// Upsert replaces the account's token, creating the entry on first registration
func (r *MongoDeviceTokenRepository) Upsert(ctx context.Context, token *domain.DeviceToken) error {
	token.UpdatedAt = time.Now().UTC()

	update := bson.M{
		"$set": bson.M{
			"token":      token.Token,
			"platform":   token.Platform,
			"updated_at": token.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"account_id": token.AccountID,
		},
	}

	_, err := r.collection.UpdateOne(ctx, bson.M{"account_id": token.AccountID}, update, options.Update().SetUpsert(true))
	if err != nil && mongo.IsDuplicateKeyError(err) {
		_, err = r.collection.UpdateOne(ctx, bson.M{"account_id": token.AccountID}, update, options.Update().SetUpsert(true))
	}
	if err != nil {
		return fmt.Errorf("failed to upsert device token: %w", err)
	}
	return nil
}

func (r *MongoDeviceTokenRepository) GetByAccountID(ctx context.Context, accountID string) (*domain.DeviceToken, error) {
	var token domain.DeviceToken
	if err := r.collection.FindOne(ctx, bson.M{"account_id": accountID}).Decode(&token); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get device token: %w", err)
	}
	return &token, nil
}
