package stripe

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mansoorceksport/elearning-billing/internal/domain"
	stripesdk "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// Config holds Stripe API configuration
type Config struct {
	SecretKey     string // sk_live_... or sk_test_...
	WebhookSecret string // whsec_... used to verify Stripe-Signature
}

// Client wraps the Stripe API client behind the gateway operations the service needs
type Client struct {
	api           *client.API
	webhookSecret string
}

// NewClient creates a new Stripe client
func NewClient(cfg Config) *Client {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)

	return &Client{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
	}
}

// CreateCheckoutSession opens a hosted checkout in subscription mode.
// The metadata is attached to the subscription Stripe creates, not to the session.
func (c *Client) CreateCheckoutSession(ctx context.Context, req domain.CheckoutSessionRequest) (*domain.CheckoutSession, error) {
	params := &stripesdk.CheckoutSessionParams{
		Mode: stripesdk.String(string(stripesdk.CheckoutSessionModeSubscription)),
		LineItems: []*stripesdk.CheckoutSessionLineItemParams{
			{
				Price:    stripesdk.String(req.PriceID),
				Quantity: stripesdk.Int64(1),
			},
		},
		SuccessURL:        stripesdk.String(req.SuccessURL),
		CancelURL:         stripesdk.String(req.CancelURL),
		ClientReferenceID: stripesdk.String(req.ClientReferenceID),
		SubscriptionData:  &stripesdk.CheckoutSessionSubscriptionDataParams{},
	}
	for k, v := range req.Metadata {
		params.SubscriptionData.AddMetadata(k, v)
	}
	params.Context = ctx

	session, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		log.Printf("[Stripe] checkout session error: %v", err)
		return nil, fmt.Errorf("%w: create checkout session: %v", domain.ErrGateway, err)
	}

	return &domain.CheckoutSession{
		SessionID: session.ID,
		URL:       session.URL,
	}, nil
}

// CreatePaymentIntent creates a PaymentIntent for in-app payment sheets
func (c *Client) CreatePaymentIntent(ctx context.Context, req domain.PaymentIntentRequest) (*domain.PaymentIntent, error) {
	params := &stripesdk.PaymentIntentParams{
		Amount:   stripesdk.Int64(req.Amount),
		Currency: stripesdk.String(req.Currency),
		AutomaticPaymentMethods: &stripesdk.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripesdk.Bool(true),
		},
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	intent, err := c.api.PaymentIntents.New(params)
	if err != nil {
		log.Printf("[Stripe] payment intent error: %v", err)
		return nil, fmt.Errorf("%w: create payment intent: %v", domain.ErrGateway, err)
	}

	return &domain.PaymentIntent{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
	}, nil
}

// ProvisionPrice creates the product and its recurring price for a plan
func (c *Client) ProvisionPrice(ctx context.Context, req domain.PriceRequest) (*domain.ProvisionedPrice, error) {
	productParams := &stripesdk.ProductParams{
		Name: stripesdk.String(req.Name),
	}
	if req.Description != "" {
		productParams.Description = stripesdk.String(req.Description)
	}
	productParams.AddMetadata(domain.MetadataPlanID, req.PlanID)
	productParams.Context = ctx

	product, err := c.api.Products.New(productParams)
	if err != nil {
		return nil, fmt.Errorf("%w: create product: %v", domain.ErrGateway, err)
	}

	priceParams := &stripesdk.PriceParams{
		Product:    stripesdk.String(product.ID),
		UnitAmount: stripesdk.Int64(req.Amount),
		Currency:   stripesdk.String(req.Currency),
		Recurring: &stripesdk.PriceRecurringParams{
			Interval:      stripesdk.String(req.Interval),
			IntervalCount: stripesdk.Int64(req.IntervalCount),
		},
	}
	priceParams.AddMetadata(domain.MetadataPlanID, req.PlanID)
	priceParams.Context = ctx

	price, err := c.api.Prices.New(priceParams)
	if err != nil {
		return nil, fmt.Errorf("%w: create price for product %s: %v", domain.ErrGateway, product.ID, err)
	}

	log.Printf("[Stripe] Provisioned plan %s: product=%s price=%s", req.PlanID, product.ID, price.ID)
	return &domain.ProvisionedPrice{
		ProductID: product.ID,
		PriceID:   price.ID,
	}, nil
}

// RetrieveSubscription fetches the current state of a subscription
func (c *Client) RetrieveSubscription(ctx context.Context, id string) (*domain.ExternalSubscription, error) {
	params := &stripesdk.SubscriptionParams{}
	params.Context = ctx

	sub, err := c.api.Subscriptions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("%w: retrieve subscription %s: %v", domain.ErrGateway, id, err)
	}
	return toExternalSubscription(sub), nil
}

// VerifyWebhook checks the Stripe-Signature header and decodes the event
func (c *Client) VerifyWebhook(payload []byte, signatureHeader string) (*domain.GatewayEvent, error) {
	return ConstructEvent(payload, signatureHeader, c.webhookSecret)
}

func toExternalSubscription(sub *stripesdk.Subscription) *domain.ExternalSubscription {
	ext := &domain.ExternalSubscription{
		ID:       sub.ID,
		Status:   string(sub.Status),
		Metadata: sub.Metadata,
	}
	if sub.CurrentPeriodStart > 0 {
		ext.CurrentPeriodStart = time.Unix(sub.CurrentPeriodStart, 0).UTC()
	}
	if sub.CurrentPeriodEnd > 0 {
		ext.CurrentPeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	}
	return ext
}
