package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/mansoorceksport/elearning-billing/internal/domain"
	"github.com/mansoorceksport/elearning-billing/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// SubscriptionReconciler applies gateway events to the local subscription records
type SubscriptionReconciler struct {
	subRepo     domain.SubscriptionRepository
	planRepo    domain.PlanRepository
	accountRepo domain.AccountRepository
	gateway     PaymentGateway
	ledger      *PaymentLedger
	provisioner *LearnerProvisioner
	cache       domain.EntitlementCache // optional
}

func NewSubscriptionReconciler(
	subRepo domain.SubscriptionRepository,
	planRepo domain.PlanRepository,
	accountRepo domain.AccountRepository,
	gateway PaymentGateway,
	ledger *PaymentLedger,
	provisioner *LearnerProvisioner,
	cache domain.EntitlementCache,
) *SubscriptionReconciler {
	return &SubscriptionReconciler{
		subRepo:     subRepo,
		planRepo:    planRepo,
		accountRepo: accountRepo,
		gateway:     gateway,
		ledger:      ledger,
		provisioner: provisioner,
		cache:       cache,
	}
}

// HandleCheckoutCompleted creates the subscription and provisions the learner profile.
// Metadata is read from the subscription as the gateway reports it now, not from the event.
func (r *SubscriptionReconciler) HandleCheckoutCompleted(ctx context.Context, checkout *domain.CheckoutCompleted) error {
	ctx, span := telemetry.StartSpan(ctx, "reconciler.CheckoutCompleted",
		attribute.String("checkout.session_id", checkout.SessionID),
	)
	defer span.End()

	if checkout.SubscriptionID == "" {
		return fmt.Errorf("session %s: %w", checkout.SessionID, domain.ErrMissingSubscription)
	}

	ext, err := r.gateway.RetrieveSubscription(ctx, checkout.SubscriptionID)
	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	planID, learnerID := ext.PlanID(), ext.LearnerID()
	if planID == "" || learnerID == "" {
		return fmt.Errorf("subscription %s: %w", ext.ID, domain.ErrMissingMetadata)
	}
	span.SetAttributes(attribute.String("learner.id", learnerID), attribute.String("plan.id", planID))

	account, plan, err := r.loadAccountAndPlan(ctx, learnerID, planID)
	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	// Redelivery after a partial failure: the row exists but the profile link does not
	existing, err := r.subRepo.GetByExternalID(ctx, ext.ID)
	switch {
	case err == nil:
		if existing.LearnerProfileID != "" {
			log.Printf("[Reconciler] Subscription %s already provisioned, skipping", ext.ID)
			return domain.ErrDuplicateSubscription
		}
		log.Printf("[Reconciler] Resuming provisioning for subscription %s", ext.ID)
		return r.provision(ctx, account, existing)
	case !errors.Is(err, domain.ErrSubscriptionNotFound):
		return err
	}

	if active, err := r.subRepo.GetActiveByLearnerID(ctx, learnerID); err == nil {
		log.Printf("[Reconciler] Learner %s already has active subscription %s, ignoring %s", learnerID, active.ID, ext.ID)
		return domain.ErrActiveSubscriptionExists
	} else if !errors.Is(err, domain.ErrSubscriptionNotFound) {
		return err
	}

	sub := &domain.Subscription{
		LearnerID:              learnerID,
		PlanID:                 plan.ID,
		ExternalSubscriptionID: ext.ID,
		Status:                 domain.MapExternalStatus(ext.Status),
		PeriodStart:            ext.CurrentPeriodStart,
		PeriodEnd:              ext.CurrentPeriodEnd,
	}
	if err := r.subRepo.Create(ctx, sub); err != nil {
		// A concurrent delivery won the insert; the indexes keep us at one row
		if errors.Is(err, domain.ErrDuplicateSubscription) || errors.Is(err, domain.ErrActiveSubscriptionExists) {
			log.Printf("[Reconciler] Concurrent insert for subscription %s: %v", ext.ID, err)
		}
		return err
	}
	log.Printf("[Reconciler] Subscription %s created for learner %s (status=%s)", sub.ID, learnerID, sub.Status)

	return r.provision(ctx, account, sub)
}

// HandleInvoicePaid refreshes status and period end, then records the payment
func (r *SubscriptionReconciler) HandleInvoicePaid(ctx context.Context, invoice *domain.InvoicePaid) error {
	ctx, span := telemetry.StartSpan(ctx, "reconciler.InvoicePaid",
		attribute.String("invoice.id", invoice.InvoiceID),
	)
	defer span.End()

	if invoice.SubscriptionID == "" {
		return fmt.Errorf("invoice %s has no subscription: %w", invoice.InvoiceID, domain.ErrSubscriptionNotFound)
	}

	sub, err := r.subRepo.GetByExternalID(ctx, invoice.SubscriptionID)
	if err != nil {
		return fmt.Errorf("invoice %s: %w", invoice.InvoiceID, err)
	}
	defer r.invalidate(ctx, sub.LearnerID)

	ext, err := r.gateway.RetrieveSubscription(ctx, invoice.SubscriptionID)
	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	status := domain.MapExternalStatus(ext.Status)
	if err := r.subRepo.UpdateStatus(ctx, sub.ID, status, ext.CurrentPeriodEnd); err != nil {
		if !errors.Is(err, domain.ErrActiveSubscriptionExists) {
			return err
		}
		// The money is still recorded below
		log.Printf("[Reconciler] ANOMALY: learner %s has another active subscription, status of %s left at %s", sub.LearnerID, sub.ID, sub.Status)
	}

	if invoice.AmountPaid <= 0 {
		log.Printf("[Reconciler] Invoice %s paid nothing, no ledger entry", invoice.InvoiceID)
		return nil
	}

	if _, err := r.subRepo.AppendPaymentSummary(ctx, sub.ID, domain.PaymentSummary{
		Date:      invoice.PaidAt,
		Amount:    invoice.AmountPaid,
		InvoiceID: invoice.InvoiceID,
	}); err != nil {
		return err
	}

	_, err = r.ledger.Record(ctx, sub.ID, invoice)
	return err
}

// HandleSubscriptionDeleted marks the subscription cancelled
func (r *SubscriptionReconciler) HandleSubscriptionDeleted(ctx context.Context, ext *domain.ExternalSubscription) error {
	sub, err := r.subRepo.UpdateStatusByExternalID(ctx, ext.ID, domain.StatusCancelled, ext.CurrentPeriodEnd)
	if err != nil {
		return fmt.Errorf("subscription deleted %s: %w", ext.ID, err)
	}
	r.invalidate(ctx, sub.LearnerID)

	log.Printf("[Reconciler] Subscription %s cancelled for learner %s", sub.ID, sub.LearnerID)
	return nil
}

func (r *SubscriptionReconciler) loadAccountAndPlan(ctx context.Context, learnerID, planID string) (*domain.Account, *domain.Plan, error) {
	var (
		account *domain.Account
		plan    *domain.Plan
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		account, err = r.accountRepo.GetByID(gctx, learnerID)
		if err != nil {
			return fmt.Errorf("learner %s: %w", learnerID, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		plan, err = r.planRepo.GetByID(gctx, planID)
		if err != nil {
			return fmt.Errorf("plan %s: %w", planID, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return account, plan, nil
}

func (r *SubscriptionReconciler) provision(ctx context.Context, account *domain.Account, sub *domain.Subscription) error {
	defer r.invalidate(ctx, sub.LearnerID)
	_, err := r.provisioner.Provision(ctx, account, sub.ID)
	return err
}

func (r *SubscriptionReconciler) invalidate(ctx context.Context, learnerID string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.InvalidateEntitlement(ctx, learnerID); err != nil {
		log.Printf("[Reconciler] Warning: failed to invalidate entitlement cache for %s: %v", learnerID, err)
	}
}
