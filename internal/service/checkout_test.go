package service

import (
	"context"
	"testing"

	"github.com/mansoorceksport/elearning-billing/internal/config"
	"github.com/mansoorceksport/elearning-billing/internal/domain"
	"github.com/mansoorceksport/elearning-billing/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCheckoutURLs = config.CheckoutConfig{
	FrontendURL:      "https://learn.example.com",
	MobileSuccessURL: "https://success.stripe.mobile",
	MobileCancelURL:  "https://cancel.stripe.mobile",
}

func TestCheckout_CreateSession(t *testing.T) {
	plan := &domain.Plan{Name: "Premium", Price: 1999, ExternalProductID: "prod_1", ExternalPriceID: "price_123"}
	gateway := NewMockGateway(testWebhookSecret)
	svc := NewCheckoutService(memory.NewPlanRepository(plan), gateway, testCheckoutURLs)

	tests := []struct {
		platform    string
		wantSuccess string
		wantCancel  string
	}{
		{PlatformWeb, "https://learn.example.com/?payment=success", "https://learn.example.com/?payment=failed"},
		{PlatformMobile, "https://success.stripe.mobile", "https://cancel.stripe.mobile"},
		{"", "https://learn.example.com/?payment=success", "https://learn.example.com/?payment=failed"},
	}

	for i, tt := range tests {
		t.Run("platform_"+tt.platform, func(t *testing.T) {
			session, err := svc.CreateSession(context.Background(), "L1", plan.ID, tt.platform)
			require.NoError(t, err)
			assert.NotEmpty(t, session.SessionID)
			assert.NotEmpty(t, session.URL)

			req := gateway.Sessions()[i]
			assert.Equal(t, "price_123", req.PriceID)
			assert.Equal(t, "L1", req.ClientReferenceID)
			assert.Equal(t, tt.wantSuccess, req.SuccessURL)
			assert.Equal(t, tt.wantCancel, req.CancelURL)
			assert.Equal(t, map[string]string{"planId": plan.ID, "learnerId": "L1"}, req.Metadata)
		})
	}
}

func TestCheckout_PlanErrors(t *testing.T) {
	unconfigured := &domain.Plan{Name: "Draft", Price: 500, ExternalProductID: "prod_1"}
	gateway := NewMockGateway(testWebhookSecret)
	svc := NewCheckoutService(memory.NewPlanRepository(unconfigured), gateway, testCheckoutURLs)
	ctx := context.Background()

	_, err := svc.CreateSession(ctx, "L1", unconfigured.ID, PlatformWeb)
	assert.ErrorIs(t, err, domain.ErrPlanNotConfigured)
	assert.Equal(t, ClassConfiguration, Classify(err))

	_, err = svc.CreateSession(ctx, "L1", "missing", PlatformWeb)
	assert.ErrorIs(t, err, domain.ErrPlanNotFound)

	_, err = svc.CreatePaymentIntent(ctx, "L1", unconfigured.ID)
	assert.ErrorIs(t, err, domain.ErrPlanNotConfigured)

	assert.Empty(t, gateway.Sessions())
}

func TestCheckout_CreatePaymentIntent(t *testing.T) {
	plan := &domain.Plan{Name: "Premium", Price: 1999, ExternalProductID: "prod_1", ExternalPriceID: "price_123"}
	svc := NewCheckoutService(memory.NewPlanRepository(plan), NewMockGateway(testWebhookSecret), testCheckoutURLs)

	intent, err := svc.CreatePaymentIntent(context.Background(), "L1", plan.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, intent.PaymentIntentID)
	assert.Contains(t, intent.ClientSecret, intent.PaymentIntentID)
}
