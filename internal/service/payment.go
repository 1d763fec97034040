package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mansoorceksport/elearning-billing/internal/config"
	"github.com/mansoorceksport/elearning-billing/internal/domain"
	"github.com/mansoorceksport/elearning-billing/internal/infrastructure/stripe"
	"github.com/oklog/ulid/v2"
)

// PaymentGateway defines the operations the service needs from the payment processor
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req domain.CheckoutSessionRequest) (*domain.CheckoutSession, error)
	CreatePaymentIntent(ctx context.Context, req domain.PaymentIntentRequest) (*domain.PaymentIntent, error)
	ProvisionPrice(ctx context.Context, req domain.PriceRequest) (*domain.ProvisionedPrice, error)
	// VerifyWebhook authenticates a raw payload and decodes it. Failures wrap domain.ErrInvalidSignature.
	VerifyWebhook(payload []byte, signatureHeader string) (*domain.GatewayEvent, error)
	RetrieveSubscription(ctx context.Context, id string) (*domain.ExternalSubscription, error)
}

// NewPaymentGateway returns the Stripe client, or a mock when no secret key is configured
func NewPaymentGateway(cfg config.StripeConfig) PaymentGateway {
	if cfg.SecretKey == "" {
		log.Println("[Payment] Using mock gateway (no STRIPE_SECRET_KEY configured)")
		return NewMockGateway(cfg.WebhookSecret)
	}

	log.Println("[Payment] Using Stripe gateway")
	return stripe.NewClient(stripe.Config{
		SecretKey:     cfg.SecretKey,
		WebhookSecret: cfg.WebhookSecret,
	})
}

// MockGateway is an in-process PaymentGateway for development and tests.
// Webhooks are still verified with the Stripe signature scheme.
type MockGateway struct {
	webhookSecret string

	mu            sync.RWMutex
	subscriptions map[string]domain.ExternalSubscription
	sessions      []domain.CheckoutSessionRequest
}

// NewMockGateway creates a mock gateway verifying webhooks with webhookSecret
func NewMockGateway(webhookSecret string) *MockGateway {
	return &MockGateway{
		webhookSecret: webhookSecret,
		subscriptions: make(map[string]domain.ExternalSubscription),
	}
}

// CreateCheckoutSession records the request and returns a fake hosted checkout
func (m *MockGateway) CreateCheckoutSession(ctx context.Context, req domain.CheckoutSessionRequest) (*domain.CheckoutSession, error) {
	sessionID := "cs_mock_" + ulid.Make().String()

	m.mu.Lock()
	m.sessions = append(m.sessions, req)
	m.mu.Unlock()

	return &domain.CheckoutSession{
		SessionID: sessionID,
		URL:       fmt.Sprintf("https://checkout.mock.local/pay/%s", sessionID),
	}, nil
}

// CreatePaymentIntent returns a fake payment intent
func (m *MockGateway) CreatePaymentIntent(ctx context.Context, req domain.PaymentIntentRequest) (*domain.PaymentIntent, error) {
	id := "pi_mock_" + ulid.Make().String()
	return &domain.PaymentIntent{
		PaymentIntentID: id,
		ClientSecret:    id + "_secret_mock",
	}, nil
}

// ProvisionPrice returns fake product and price ids
func (m *MockGateway) ProvisionPrice(ctx context.Context, req domain.PriceRequest) (*domain.ProvisionedPrice, error) {
	suffix := ulid.Make().String()
	return &domain.ProvisionedPrice{
		ProductID: "prod_mock_" + suffix,
		PriceID:   "price_mock_" + suffix,
	}, nil
}

// VerifyWebhook verifies the payload against the configured webhook secret
func (m *MockGateway) VerifyWebhook(payload []byte, signatureHeader string) (*domain.GatewayEvent, error) {
	return stripe.ConstructEvent(payload, signatureHeader, m.webhookSecret)
}

// RetrieveSubscription returns a subscription registered with PutSubscription
func (m *MockGateway) RetrieveSubscription(ctx context.Context, id string) (*domain.ExternalSubscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, ok := m.subscriptions[id]
	if !ok {
		return nil, fmt.Errorf("%w: no such subscription: %s", domain.ErrGateway, id)
	}
	return &sub, nil
}

// PutSubscription registers the processor-side state of a subscription
func (m *MockGateway) PutSubscription(sub domain.ExternalSubscription) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sub.CurrentPeriodStart.IsZero() {
		sub.CurrentPeriodStart = time.Now().UTC()
	}
	m.subscriptions[sub.ID] = sub
}

// Sessions returns the checkout requests received so far
func (m *MockGateway) Sessions() []domain.CheckoutSessionRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.CheckoutSessionRequest(nil), m.sessions...)
}
