package repository

import (
	"context"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/mansoorceksport/elearning-billing/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// setupTestDB spins up a fresh MongoDB container and returns the database connection.
// It skips the test in -short mode or when no container runtime is available.
func setupTestDB(t *testing.T) *mongo.Database {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping MongoDB integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	mongodbContainer, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		t.Skipf("failed to start container: %s", err)
	}

	endpoint, err := mongodbContainer.ConnectionString(ctx)
	require.NoError(t, err)

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(endpoint))
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := mongoClient.Disconnect(ctx); err != nil {
			log.Printf("failed to disconnect mongo: %v", err)
		}
		if err := mongodbContainer.Terminate(ctx); err != nil {
			log.Printf("failed to terminate container: %v", err)
		}
	})

	return mongoClient.Database("billing_test")
}

func TestMongoRepositories(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	t.Run("subscription unique indexes", func(t *testing.T) {
		repo := NewMongoSubscriptionRepository(db)

		first := &domain.Subscription{LearnerID: "L1", PlanID: "P1", ExternalSubscriptionID: "sub_1", Status: domain.StatusActive}
		require.NoError(t, repo.Create(ctx, first))
		assert.NotEmpty(t, first.ID)

		dup := &domain.Subscription{LearnerID: "L9", PlanID: "P1", ExternalSubscriptionID: "sub_1", Status: domain.StatusPending}
		assert.ErrorIs(t, repo.Create(ctx, dup), domain.ErrDuplicateSubscription)

		secondActive := &domain.Subscription{LearnerID: "L1", PlanID: "P2", ExternalSubscriptionID: "sub_2", Status: domain.StatusActive}
		assert.ErrorIs(t, repo.Create(ctx, secondActive), domain.ErrActiveSubscriptionExists)

		// Inactive rows for the same learner are fine
		old := &domain.Subscription{LearnerID: "L1", PlanID: "P2", ExternalSubscriptionID: "sub_3", Status: domain.StatusCancelled}
		require.NoError(t, repo.Create(ctx, old))

		got, err := repo.GetByExternalID(ctx, "sub_1")
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)
		assert.Equal(t, domain.StatusActive, got.Status)
	})

	t.Run("payment summary push is conditional", func(t *testing.T) {
		repo := NewMongoSubscriptionRepository(db)
		sub := &domain.Subscription{LearnerID: "L2", PlanID: "P1", ExternalSubscriptionID: "sub_10", Status: domain.StatusActive}
		require.NoError(t, repo.Create(ctx, sub))

		summary := domain.PaymentSummary{Date: time.Now().UTC(), Amount: 1999, InvoiceID: "in_1"}

		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.AppendPaymentSummary(ctx, sub.ID, summary)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		stored, err := repo.GetByID(ctx, sub.ID)
		require.NoError(t, err)
		assert.Len(t, stored.Payments, 1)
	})

	t.Run("status update by external id", func(t *testing.T) {
		repo := NewMongoSubscriptionRepository(db)
		end := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

		updated, err := repo.UpdateStatusByExternalID(ctx, "sub_10", domain.StatusCancelled, end)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCancelled, updated.Status)
		assert.True(t, end.Equal(updated.PeriodEnd))

		_, err = repo.UpdateStatusByExternalID(ctx, "sub_unknown", domain.StatusCancelled, end)
		assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)
	})

	t.Run("payment ledger idempotency", func(t *testing.T) {
		repo := NewMongoPaymentRepository(db)

		p := &domain.Payment{SubscriptionID: "s1", Amount: 1999, Method: domain.PaymentMethodCard, ExternalInvoiceID: "in_100", ExternalPaymentIntentID: "pi_100", Status: domain.PaymentStatusSucceeded}
		require.NoError(t, repo.Create(ctx, p))

		again := *p
		again.ID = ""
		assert.ErrorIs(t, repo.Create(ctx, &again), domain.ErrDuplicatePayment)

		// Two invoices without a payment intent must both be accepted by the sparse index
		require.NoError(t, repo.Create(ctx, &domain.Payment{SubscriptionID: "s1", Amount: 500, Method: domain.PaymentMethodCard, ExternalInvoiceID: "in_101", Status: domain.PaymentStatusSucceeded}))
		require.NoError(t, repo.Create(ctx, &domain.Payment{SubscriptionID: "s1", Amount: 500, Method: domain.PaymentMethodCard, ExternalInvoiceID: "in_102", Status: domain.PaymentStatusSucceeded}))

		payments, err := repo.ListBySubscriptionID(ctx, "s1")
		require.NoError(t, err)
		assert.Len(t, payments, 3)
	})

	t.Run("learner upsert is concurrent safe", func(t *testing.T) {
		repo := NewMongoLearnerRepository(db)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.UpsertSubscription(ctx, "acct_1", "a@example.com", "sub_x")
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		count, err := db.Collection("learners").CountDocuments(ctx, bson.M{"account_id": "acct_1"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		profile, err := repo.UpsertSubscription(ctx, "acct_1", "changed@example.com", "sub_y")
		require.NoError(t, err)
		assert.Equal(t, "sub_y", profile.SubscriptionID)
		assert.Equal(t, "a@example.com", profile.Email, "email is only set on insert")
	})

	t.Run("account read", func(t *testing.T) {
		oid := primitive.NewObjectID()
		_, err := db.Collection("users").InsertOne(ctx, bson.M{"_id": oid, "email": "l@example.com", "name": "Lea", "roles": []string{"learner"}})
		require.NoError(t, err)

		repo := NewMongoAccountRepository(db)
		account, err := repo.GetByID(ctx, oid.Hex())
		require.NoError(t, err)
		assert.Equal(t, "l@example.com", account.Email)

		_, err = repo.GetByID(ctx, primitive.NewObjectID().Hex())
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	})

	t.Run("webhook journal", func(t *testing.T) {
		repo := NewMongoWebhookEventRepository(db)

		prev, err := repo.Record(ctx, &domain.WebhookEvent{EventID: "evt_1", Kind: domain.EventCheckoutCompleted, Type: "checkout.session.completed"})
		require.NoError(t, err)
		assert.Nil(t, prev)

		require.NoError(t, repo.MarkProcessed(ctx, "evt_1", domain.OutcomeAnomaly, "missing metadata"))

		prev, err = repo.Record(ctx, &domain.WebhookEvent{EventID: "evt_1", Kind: domain.EventCheckoutCompleted})
		require.NoError(t, err)
		require.NotNil(t, prev)
		assert.True(t, prev.IsSettled())
		assert.Equal(t, 1, prev.Attempts)

		anomalies, err := repo.ListByOutcome(ctx, domain.OutcomeAnomaly, 10)
		require.NoError(t, err)
		require.Len(t, anomalies, 1)
		assert.Equal(t, "missing metadata", anomalies[0].Error)

		// A late duplicate from a concurrent delivery does not replace a settled outcome
		require.NoError(t, repo.MarkProcessed(ctx, "evt_1", domain.OutcomeDuplicate, ""))
		anomalies, err = repo.ListByOutcome(ctx, domain.OutcomeAnomaly, 10)
		require.NoError(t, err)
		assert.Len(t, anomalies, 1)

		_, err = repo.Record(ctx, &domain.WebhookEvent{EventID: "evt_2", Kind: domain.EventInvoicePaymentSucceeded})
		require.NoError(t, err)
		require.NoError(t, repo.MarkProcessed(ctx, "evt_2", domain.OutcomeFailed, "timeout"))
		require.NoError(t, repo.MarkProcessed(ctx, "evt_2", domain.OutcomeDuplicate, ""))
		duplicates, err := repo.ListByOutcome(ctx, domain.OutcomeDuplicate, 10)
		require.NoError(t, err)
		require.Len(t, duplicates, 1)
		assert.Equal(t, "evt_2", duplicates[0].EventID)
	})

	t.Run("plan catalog", func(t *testing.T) {
		repo := NewMongoPlanRepository(db)

		plan := &domain.Plan{Name: "Premium", Price: 1999, Interval: domain.IntervalMonth, IntervalCount: 1}
		require.NoError(t, repo.Create(ctx, plan))
		assert.Equal(t, domain.DefaultCurrency, plan.Currency)

		require.NoError(t, repo.SetExternalIDs(ctx, plan.ID, "prod_1", "price_1"))
		got, err := repo.GetByID(ctx, plan.ID)
		require.NoError(t, err)
		assert.True(t, got.IsCheckoutReady())

		require.NoError(t, repo.Delete(ctx, plan.ID))
		_, err = repo.GetByID(ctx, plan.ID)
		assert.ErrorIs(t, err, domain.ErrPlanNotFound)
	})

	t.Run("device token upsert", func(t *testing.T) {
		repo := NewMongoDeviceTokenRepository(db)

		require.NoError(t, repo.Upsert(ctx, &domain.DeviceToken{AccountID: "acct_1", Token: "tok_a"}))
		require.NoError(t, repo.Upsert(ctx, &domain.DeviceToken{AccountID: "acct_1", Token: "tok_b"}))

		got, err := repo.GetByAccountID(ctx, "acct_1")
		require.NoError(t, err)
		assert.Equal(t, "tok_b", got.Token)
	})
}
