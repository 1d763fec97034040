package service

import (
	"context"
	"fmt"
	"log"

	"github.com/mansoorceksport/elearning-billing/internal/config"
	"github.com/mansoorceksport/elearning-billing/internal/domain"
	"github.com/mansoorceksport/elearning-billing/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Client platforms for redirect selection
const (
	PlatformWeb    = "web"
	PlatformMobile = "mobile"
)

// CheckoutService starts payments for a learner. It persists nothing;
// all local state changes arrive later through webhooks.
type CheckoutService struct {
	planRepo domain.PlanRepository
	gateway  PaymentGateway
	urls     config.CheckoutConfig
}

func NewCheckoutService(planRepo domain.PlanRepository, gateway PaymentGateway, urls config.CheckoutConfig) *CheckoutService {
	return &CheckoutService{
		planRepo: planRepo,
		gateway:  gateway,
		urls:     urls,
	}
}

// CreateSession opens a hosted subscription checkout for the learner
func (s *CheckoutService) CreateSession(ctx context.Context, learnerID, planID, platform string) (*domain.CheckoutSession, error) {
	ctx, span := telemetry.StartSpan(ctx, "checkout.CreateSession",
		attribute.String("plan.id", planID),
		attribute.String("client.platform", platform),
	)
	defer span.End()

	plan, err := s.checkoutReadyPlan(ctx, planID)
	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	successURL, cancelURL := s.redirectURLs(platform)

	session, err := s.gateway.CreateCheckoutSession(ctx, domain.CheckoutSessionRequest{
		PriceID:           plan.ExternalPriceID,
		SuccessURL:        successURL,
		CancelURL:         cancelURL,
		ClientReferenceID: learnerID,
		Metadata:          checkoutMetadata(plan.ID, learnerID),
	})
	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	telemetry.RecordCheckoutSession(ctx, normalizePlatform(platform))
	log.Printf("[Checkout] Session %s created for learner %s on plan %s", session.SessionID, learnerID, plan.ID)
	return session, nil
}

// CreatePaymentIntent starts an in-app payment for the plan price
func (s *CheckoutService) CreatePaymentIntent(ctx context.Context, learnerID, planID string) (*domain.PaymentIntent, error) {
	plan, err := s.checkoutReadyPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, domain.PaymentIntentRequest{
		Amount:   plan.Price,
		Currency: plan.CurrencyOrDefault(),
		Metadata: checkoutMetadata(plan.ID, learnerID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	log.Printf("[Checkout] Payment intent %s created for learner %s on plan %s", intent.PaymentIntentID, learnerID, plan.ID)
	return intent, nil
}

func (s *CheckoutService) checkoutReadyPlan(ctx context.Context, planID string) (*domain.Plan, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.IsCheckoutReady() {
		return nil, domain.ErrPlanNotConfigured
	}
	return plan, nil
}

func (s *CheckoutService) redirectURLs(platform string) (string, string) {
	if normalizePlatform(platform) == PlatformMobile {
		return s.urls.MobileSuccessURL, s.urls.MobileCancelURL
	}
	return s.urls.FrontendURL + "/?payment=success", s.urls.FrontendURL + "/?payment=failed"
}

func checkoutMetadata(planID, learnerID string) map[string]string {
	return map[string]string{
		domain.MetadataPlanID:    planID,
		domain.MetadataLearnerID: learnerID,
	}
}

func normalizePlatform(platform string) string {
	if platform == PlatformMobile {
		return PlatformMobile
	}
	return PlatformWeb
}
