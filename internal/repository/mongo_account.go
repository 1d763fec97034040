package repository

import (
	"context"
	"fmt"

	"github.com/mansoorceksport/elearning-billing/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoAccountRepository reads accounts written by the account service
type MongoAccountRepository struct {
	collection *mongo.Collection
}

func NewMongoAccountRepository(db *mongo.Database) *MongoAccountRepository {
	return &MongoAccountRepository{
		collection: db.Collection("users"),
	}
}

func (r *MongoAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrAccountNotFound
	}

	var raw bson.M
	if err := r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&raw); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return mapBsonToAccount(raw), nil
}

// mapBsonToAccount keeps only the fields this service reads from the shared users collection
func mapBsonToAccount(raw bson.M) *domain.Account {
	account := &domain.Account{}

	if oid, ok := raw["_id"].(primitive.ObjectID); ok {
		account.ID = oid.Hex()
	}
	if email, ok := raw["email"].(string); ok {
		account.Email = email
	}
	if name, ok := raw["name"].(string); ok {
		account.Name = name
	}

	return account
}
