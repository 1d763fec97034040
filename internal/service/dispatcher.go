package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mansoorceksport/elearning-billing/internal/domain"
	"github.com/mansoorceksport/elearning-billing/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// WebhookResult describes how a delivery was handled
type WebhookResult struct {
	EventID string
	Kind    domain.EventKind
	Outcome string
	Class   ErrorClass
	Err     error
}

// Acknowledge reports whether the processor should consider the delivery done
func (r *WebhookResult) Acknowledge() bool {
	return r.Class != ClassTransient && r.Class != ClassSignature
}

// WebhookDispatcher verifies gateway notifications and routes them to the reconciler
type WebhookDispatcher struct {
	gateway    PaymentGateway
	reconciler *SubscriptionReconciler
	journal    domain.WebhookEventRepository
	archive    domain.PayloadArchive // optional
}

func NewWebhookDispatcher(
	gateway PaymentGateway,
	reconciler *SubscriptionReconciler,
	journal domain.WebhookEventRepository,
	archive domain.PayloadArchive,
) *WebhookDispatcher {
	return &WebhookDispatcher{
		gateway:    gateway,
		reconciler: reconciler,
		journal:    journal,
		archive:    archive,
	}
}

// HandleWebhook verifies the raw payload and applies it. Every error is classified here;
// the returned result is never nil.
func (d *WebhookDispatcher) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) *WebhookResult {
	ctx, span := telemetry.StartSpan(ctx, "webhook.Handle")
	defer span.End()

	event, err := d.gateway.VerifyWebhook(payload, signatureHeader)
	if err != nil {
		log.Printf("[Webhook] Rejected delivery: %v", err)
		telemetry.RecordWebhookEvent(ctx, "unverified", "rejected")
		telemetry.RecordSpanError(span, err)
		return &WebhookResult{Outcome: "rejected", Class: ClassSignature, Err: err}
	}
	span.SetAttributes(
		attribute.String("webhook.event_id", event.ID),
		attribute.String("webhook.type", event.Type),
	)

	result := &WebhookResult{EventID: event.ID, Kind: event.Kind}

	receivedAt := time.Now().UTC()
	previous, err := d.journal.Record(ctx, &domain.WebhookEvent{
		EventID:    event.ID,
		Kind:       event.Kind,
		Type:       event.Type,
		ReceivedAt: receivedAt,
	})
	if err != nil {
		result.Outcome, result.Class, result.Err = domain.OutcomeFailed, ClassTransient, fmt.Errorf("failed to journal event %s: %w", event.ID, err)
		d.finish(ctx, result, false)
		return result
	}
	if previous != nil && previous.IsSettled() {
		log.Printf("[Webhook] Event %s already handled (%s), skipping", event.ID, previous.Outcome)
		result.Outcome, result.Class = domain.OutcomeDuplicate, ClassNone
		d.finish(ctx, result, false)
		return result
	}
	if previous == nil {
		d.archivePayload(ctx, event.ID, receivedAt, payload)
	}

	err = d.dispatch(ctx, event)
	result.Class, result.Err = Classify(err), err
	result.Outcome = outcomeFor(event.Kind, result.Class)

	switch result.Class {
	case ClassIntegrity, ClassConfiguration:
		log.Printf("[Webhook] ANOMALY event=%s type=%s: %v", event.ID, event.Type, err)
	case ClassTransient:
		log.Printf("[Webhook] Event %s failed, awaiting redelivery: %v", event.ID, err)
		telemetry.RecordSpanError(span, err)
	}

	d.finish(ctx, result, true)
	return result
}

func (d *WebhookDispatcher) dispatch(ctx context.Context, event *domain.GatewayEvent) error {
	switch event.Kind {
	case domain.EventCheckoutCompleted:
		return d.reconciler.HandleCheckoutCompleted(ctx, event.Checkout)
	case domain.EventInvoicePaymentSucceeded:
		return d.reconciler.HandleInvoicePaid(ctx, event.Invoice)
	case domain.EventSubscriptionDeleted:
		return d.reconciler.HandleSubscriptionDeleted(ctx, event.Subscription)
	case domain.EventIgnored:
		log.Printf("[Webhook] Ignoring event %s of type %s", event.ID, event.Type)
		return nil
	}
	return fmt.Errorf("%w: unhandled event kind %q", domain.ErrMalformedEvent, event.Kind)
}

// finish writes the outcome to the journal and metrics
func (d *WebhookDispatcher) finish(ctx context.Context, result *WebhookResult, journal bool) {
	telemetry.RecordWebhookEvent(ctx, string(result.Kind), result.Outcome)
	if !journal {
		return
	}

	errText := ""
	if result.Err != nil {
		errText = result.Err.Error()
	}
	if err := d.journal.MarkProcessed(ctx, result.EventID, result.Outcome, errText); err != nil {
		log.Printf("[Webhook] Warning: failed to journal outcome of %s: %v", result.EventID, err)
	}
}

func (d *WebhookDispatcher) archivePayload(ctx context.Context, eventID string, receivedAt time.Time, payload []byte) {
	if d.archive == nil {
		return
	}
	if _, err := d.archive.Archive(ctx, eventID, receivedAt, payload); err != nil {
		log.Printf("[Webhook] Warning: failed to archive payload of %s: %v", eventID, err)
	}
}

func outcomeFor(kind domain.EventKind, class ErrorClass) string {
	switch class {
	case ClassNone:
		if kind == domain.EventIgnored {
			return domain.OutcomeIgnored
		}
		return domain.OutcomeProcessed
	case ClassIdempotent:
		return domain.OutcomeDuplicate
	case ClassIntegrity, ClassConfiguration:
		return domain.OutcomeAnomaly
	}
	return domain.OutcomeFailed
}
