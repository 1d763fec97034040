package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/mansoorceksport/elearning-billing/internal/domain"
	"github.com/mansoorceksport/elearning-billing/internal/repository/memory"
	"github.com/stripe/stripe-go/v76/webhook"
)

const testWebhookSecret = "whsec_service_test"

var (
	periodStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
)

type fixture struct {
	plans    *memory.PlanRepository
	subs     *memory.SubscriptionRepository
	payments *memory.PaymentRepository
	learners *memory.LearnerRepository
	accounts *memory.AccountRepository
	journal  *memory.WebhookEventRepository
	archive  *memory.PayloadArchive
	gateway  *MockGateway

	reconciler  *SubscriptionReconciler
	dispatcher  *WebhookDispatcher
	entitlement *EntitlementService

	plan *domain.Plan
}

func newFixture(t *testing.T, cache domain.EntitlementCache) *fixture {
	t.Helper()

	plan := &domain.Plan{
		Name:              "Premium",
		Price:             1999,
		Currency:          "usd",
		Interval:          domain.IntervalMonth,
		IntervalCount:     1,
		ExternalProductID: "prod_123",
		ExternalPriceID:   "price_123",
	}

	f := &fixture{
		plans:    memory.NewPlanRepository(plan),
		subs:     memory.NewSubscriptionRepository(),
		payments: memory.NewPaymentRepository(),
		learners: memory.NewLearnerRepository(),
		accounts: memory.NewAccountRepository(
			domain.Account{ID: "L1", Email: "l1@example.com", Name: "Learner One"},
			domain.Account{ID: "L2", Email: "l2@example.com", Name: "Learner Two"},
		),
		journal: memory.NewWebhookEventRepository(),
		archive: memory.NewPayloadArchive(),
		gateway: NewMockGateway(testWebhookSecret),
		plan:    plan,
	}

	ledger := NewPaymentLedger(f.payments)
	provisioner := NewLearnerProvisioner(f.learners, f.subs)
	f.reconciler = NewSubscriptionReconciler(f.subs, f.plans, f.accounts, f.gateway, ledger, provisioner, cache)
	f.dispatcher = NewWebhookDispatcher(f.gateway, f.reconciler, f.journal, f.archive)
	f.entitlement = NewEntitlementService(f.learners, f.subs, f.plans, ledger, cache, time.Minute)
	return f
}

// putSubscription registers the processor-side subscription for learnerID on the fixture plan
func (f *fixture) putSubscription(id, learnerID, status string) {
	f.gateway.PutSubscription(domain.ExternalSubscription{
		ID:                 id,
		Status:             status,
		CurrentPeriodStart: periodStart,
		CurrentPeriodEnd:   periodEnd,
		Metadata: map[string]string{
			domain.MetadataPlanID:    f.plan.ID,
			domain.MetadataLearnerID: learnerID,
		},
	})
}

func signPayload(payload string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(payload),
		Secret:  testWebhookSecret,
	}).Header
}

func checkoutCompletedPayload(eventID, sessionID, subscriptionID string) string {
	return fmt.Sprintf(`{
		"id": %q,
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": %q,
			"object": "checkout.session",
			"subscription": %q,
			"metadata": {}
		}}
	}`, eventID, sessionID, subscriptionID)
}

func invoicePaidPayload(eventID, invoiceID, subscriptionID string, amount int64) string {
	return fmt.Sprintf(`{
		"id": %q,
		"object": "event",
		"type": "invoice.payment_succeeded",
		"data": {"object": {
			"id": %q,
			"object": "invoice",
			"amount_paid": %d,
			"currency": "usd",
			"created": %d,
			"subscription": %q,
			"payment_intent": "pi_%s"
		}}
	}`, eventID, invoiceID, amount, periodStart.Unix(), subscriptionID, invoiceID)
}

func subscriptionDeletedPayload(eventID, subscriptionID string, end time.Time) string {
	return fmt.Sprintf(`{
		"id": %q,
		"object": "event",
		"type": "customer.subscription.deleted",
		"data": {"object": {
			"id": %q,
			"object": "subscription",
			"status": "canceled",
			"current_period_start": %d,
			"current_period_end": %d,
			"metadata": {}
		}}
	}`, eventID, subscriptionID, periodStart.Unix(), end.Unix())
}
