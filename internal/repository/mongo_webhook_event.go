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

// MongoWebhookEventRepository implements domain.WebhookEventRepository
type MongoWebhookEventRepository struct {
	collection *mongo.Collection
}

// NewMongoWebhookEventRepository creates a new webhook journal repository
func NewMongoWebhookEventRepository(db *mongo.Database) *MongoWebhookEventRepository {
	coll := db.Collection("webhook_events")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "outcome", Value: 1}, {Key: "received_at", Value: -1}}},
	})

	return &MongoWebhookEventRepository{
		collection: coll,
	}
}

// Record upserts the journal entry and returns the document as it was before this delivery
func (r *MongoWebhookEventRepository) Record(ctx context.Context, event *domain.WebhookEvent) (*domain.WebhookEvent, error) {
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now().UTC()
	}

	update := bson.M{
		"$setOnInsert": bson.M{
			"event_id":    event.EventID,
			"kind":        event.Kind,
			"type":        event.Type,
			"received_at": event.ReceivedAt,
		},
		"$inc": bson.M{"attempts": 1},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.Before)

	var previous domain.WebhookEvent
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"event_id": event.EventID}, update, opts).Decode(&previous)
	if err != nil && mongo.IsDuplicateKeyError(err) {
		err = r.collection.FindOneAndUpdate(ctx, bson.M{"event_id": event.EventID}, update, opts).Decode(&previous)
	}
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil // First delivery
		}
		return nil, fmt.Errorf("failed to journal webhook event: %w", err)
	}
	return &previous, nil
}

// MarkProcessed stores the outcome of a delivery. A duplicate outcome only lands on an
// entry that is not settled yet, so a concurrent loser cannot overwrite the winner.
func (r *MongoWebhookEventRepository) MarkProcessed(ctx context.Context, eventID, outcome, errText string) error {
	set := bson.M{
		"outcome":      outcome,
		"processed_at": time.Now().UTC(),
		"error":        errText,
	}
	filter := bson.M{"event_id": eventID}
	if outcome == domain.OutcomeDuplicate {
		filter["$or"] = bson.A{
			bson.M{"processed_at": bson.M{"$exists": false}},
			bson.M{"outcome": domain.OutcomeFailed},
		}
	}
	_, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to mark webhook event: %w", err)
	}
	return nil
}

// ListByOutcome returns the most recent events with the given outcome, newest first
func (r *MongoWebhookEventRepository) ListByOutcome(ctx context.Context, outcome string, limit int64) ([]*domain.WebhookEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "received_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.collection.Find(ctx, bson.M{"outcome": outcome}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhook events: %w", err)
	}
	defer cursor.Close(ctx)

	events := []*domain.WebhookEvent{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode webhook events: %w", err)
	}
	return events, nil
}
