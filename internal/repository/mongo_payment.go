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

// MongoPaymentRepository implements domain.PaymentRepository.
// Idempotency rests on the unique indexes, not on a read before the insert.
type MongoPaymentRepository struct {
	collection *mongo.Collection
}

// NewMongoPaymentRepository creates a new payment ledger repository
func NewMongoPaymentRepository(db *mongo.Database) *MongoPaymentRepository {
	coll := db.Collection("payments")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "external_invoice_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// Sparse: invoices settled without a payment intent omit the field
			Keys:    bson.D{{Key: "external_payment_intent_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{Keys: bson.D{{Key: "subscription_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})

	return &MongoPaymentRepository{
		collection: coll,
	}
}

func (r *MongoPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}

	objID := primitive.NewObjectID()

	doc := bson.M{
		"_id":                 objID,
		"subscription_id":     payment.SubscriptionID,
		"amount":              payment.Amount,
		"method":              payment.Method,
		"external_invoice_id": payment.ExternalInvoiceID,
		"status":              payment.Status,
		"created_at":          payment.CreatedAt,
	}
	if payment.Currency != "" {
		doc["currency"] = payment.Currency
	}
	if payment.ExternalPaymentIntentID != "" {
		doc["external_payment_intent_id"] = payment.ExternalPaymentIntentID
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicatePayment
		}
		return fmt.Errorf("failed to record payment: %w", err)
	}
	payment.ID = objID.Hex()
	return nil
}

func (r *MongoPaymentRepository) GetByInvoiceID(ctx context.Context, invoiceID string) (*domain.Payment, error) {
	var payment domain.Payment
	if err := r.collection.FindOne(ctx, bson.M{"external_invoice_id": invoiceID}).Decode(&payment); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &payment, nil
}

func (r *MongoPaymentRepository) ListBySubscriptionID(ctx context.Context, subscriptionID string) ([]*domain.Payment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"subscription_id": subscriptionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer cursor.Close(ctx)

	payments := []*domain.Payment{}
	if err := cursor.All(ctx, &payments); err != nil {
		return nil, fmt.Errorf("failed to decode payments: %w", err)
	}
	return payments, nil
}
