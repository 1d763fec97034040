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

// MongoPlanRepository implements domain.PlanRepository
type MongoPlanRepository struct {
	collection *mongo.Collection
}

// NewMongoPlanRepository creates a new plan repository
func NewMongoPlanRepository(db *mongo.Database) *MongoPlanRepository {
	coll := db.Collection("plans")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "external_price_id", Value: 1}},
		Options: options.Index().SetSparse(true),
	})

	return &MongoPlanRepository{
		collection: coll,
	}
}

func (r *MongoPlanRepository) Create(ctx context.Context, plan *domain.Plan) error {
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now
	plan.Currency = plan.CurrencyOrDefault()

	objID := primitive.NewObjectID()

	doc := bson.M{
		"_id":            objID,
		"name":           plan.Name,
		"price":          plan.Price,
		"currency":       plan.Currency,
		"offers":         plan.Offers,
		"interval":       plan.Interval,
		"interval_count": plan.IntervalCount,
		"created_at":     plan.CreatedAt,
		"updated_at":     plan.UpdatedAt,
	}
	if plan.ExternalProductID != "" {
		doc["external_product_id"] = plan.ExternalProductID
	}
	if plan.ExternalPriceID != "" {
		doc["external_price_id"] = plan.ExternalPriceID
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}
	plan.ID = objID.Hex()
	return nil
}

func (r *MongoPlanRepository) GetByID(ctx context.Context, id string) (*domain.Plan, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// An id that cannot be an ObjectID cannot name a stored plan
		return nil, domain.ErrPlanNotFound
	}

	var plan domain.Plan
	if err := r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&plan); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return &plan, nil
}

func (r *MongoPlanRepository) List(ctx context.Context) ([]*domain.Plan, error) {
	opts := options.Find().SetSort(bson.D{{Key: "price", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer cursor.Close(ctx)

	plans := []*domain.Plan{}
	if err := cursor.All(ctx, &plans); err != nil {
		return nil, fmt.Errorf("failed to decode plans: %w", err)
	}
	return plans, nil
}

func (r *MongoPlanRepository) Update(ctx context.Context, plan *domain.Plan) error {
	objID, err := primitive.ObjectIDFromHex(plan.ID)
	if err != nil {
		return domain.ErrPlanNotFound
	}

	plan.UpdatedAt = time.Now().UTC()
	set := bson.M{
		"name":           plan.Name,
		"price":          plan.Price,
		"currency":       plan.CurrencyOrDefault(),
		"offers":         plan.Offers,
		"interval":       plan.Interval,
		"interval_count": plan.IntervalCount,
		"updated_at":     plan.UpdatedAt,
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrPlanNotFound
	}
	return nil
}

func (r *MongoPlanRepository) SetExternalIDs(ctx context.Context, id, productID, priceID string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrPlanNotFound
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objID},
		bson.M{"$set": bson.M{
			"external_product_id": productID,
			"external_price_id":   priceID,
			"updated_at":          time.Now().UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to store gateway ids: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrPlanNotFound
	}
	return nil
}

func (r *MongoPlanRepository) Delete(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrPlanNotFound
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrPlanNotFound
	}
	return nil
}
