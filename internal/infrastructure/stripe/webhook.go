package stripe

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mansoorceksport/elearning-billing/internal/domain"
	stripesdk "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

// Stripe event types the service reacts to
const (
	eventCheckoutSessionCompleted    = "checkout.session.completed"
	eventInvoicePaymentSucceeded     = "invoice.payment_succeeded"
	eventCustomerSubscriptionDeleted = "customer.subscription.deleted"
)

// ConstructEvent verifies the signature of a Stripe webhook and decodes it into a
// domain.GatewayEvent. An empty secret rejects every payload.
func ConstructEvent(payload []byte, signatureHeader, secret string) (*domain.GatewayEvent, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: webhook secret not configured", domain.ErrInvalidSignature)
	}
	if signatureHeader == "" {
		return nil, fmt.Errorf("%w: missing Stripe-Signature header", domain.ErrInvalidSignature)
	}

	evt, err := webhook.ConstructEventWithOptions(payload, signatureHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}

	return decodeEvent(evt, payload)
}

func decodeEvent(evt stripesdk.Event, payload []byte) (*domain.GatewayEvent, error) {
	out := &domain.GatewayEvent{
		ID:      evt.ID,
		Type:    string(evt.Type),
		Kind:    domain.EventIgnored,
		Payload: payload,
	}
	if evt.ID == "" {
		return nil, fmt.Errorf("%w: event has no id", domain.ErrMalformedEvent)
	}

	switch out.Type {
	case eventCheckoutSessionCompleted, eventInvoicePaymentSucceeded, eventCustomerSubscriptionDeleted:
		if evt.Data == nil || len(evt.Data.Raw) == 0 {
			return nil, fmt.Errorf("%w: %s event %s has no data object", domain.ErrMalformedEvent, out.Type, evt.ID)
		}
	default:
		return out, nil
	}

	switch out.Type {
	case eventCheckoutSessionCompleted:
		var session stripesdk.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("%w: checkout session: %v", domain.ErrMalformedEvent, err)
		}
		out.Kind = domain.EventCheckoutCompleted
		out.Checkout = &domain.CheckoutCompleted{
			SessionID:         session.ID,
			ClientReferenceID: session.ClientReferenceID,
			Metadata:          session.Metadata,
		}
		if session.Subscription != nil {
			out.Checkout.SubscriptionID = session.Subscription.ID
		}

	case eventInvoicePaymentSucceeded:
		var invoice stripesdk.Invoice
		if err := json.Unmarshal(evt.Data.Raw, &invoice); err != nil {
			return nil, fmt.Errorf("%w: invoice: %v", domain.ErrMalformedEvent, err)
		}
		out.Kind = domain.EventInvoicePaymentSucceeded
		out.Invoice = toInvoicePaid(&invoice)

	case eventCustomerSubscriptionDeleted:
		var sub stripesdk.Subscription
		if err := json.Unmarshal(evt.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("%w: subscription: %v", domain.ErrMalformedEvent, err)
		}
		out.Kind = domain.EventSubscriptionDeleted
		out.Subscription = toExternalSubscription(&sub)
	}

	return out, nil
}

func toInvoicePaid(invoice *stripesdk.Invoice) *domain.InvoicePaid {
	paid := &domain.InvoicePaid{
		InvoiceID:  invoice.ID,
		AmountPaid: invoice.AmountPaid,
		Currency:   string(invoice.Currency),
	}
	if invoice.Subscription != nil {
		paid.SubscriptionID = invoice.Subscription.ID
	}
	if invoice.PaymentIntent != nil {
		paid.PaymentIntentID = invoice.PaymentIntent.ID
	}

	paidAt := invoice.Created
	if invoice.StatusTransitions != nil && invoice.StatusTransitions.PaidAt > 0 {
		paidAt = invoice.StatusTransitions.PaidAt
	}
	if paidAt > 0 {
		paid.PaidAt = time.Unix(paidAt, 0).UTC()
	}
	return paid
}
