package domain

import "time"

// EventKind is the closed set of gateway events the service reacts to
type EventKind string

// Event kinds
const (
	EventCheckoutCompleted       EventKind = "checkout_completed"
	EventInvoicePaymentSucceeded EventKind = "invoice_payment_succeeded"
	EventSubscriptionDeleted     EventKind = "subscription_deleted"
	EventIgnored                 EventKind = "ignored"
)

// Subscription metadata keys attached at checkout
const (
	MetadataPlanID    = "planId"
	MetadataLearnerID = "learnerId"
)

// GatewayEvent is a verified webhook notification decoded into the fields the service needs.
// Only the section matching Kind is populated.
type GatewayEvent struct {
	ID      string
	Kind    EventKind
	Type    string // raw provider type, kept for logs and the journal
	Payload []byte

	Checkout     *CheckoutCompleted
	Invoice      *InvoicePaid
	Subscription *ExternalSubscription
}

// CheckoutCompleted carries the checkout session fields
type CheckoutCompleted struct {
	SessionID         string
	SubscriptionID    string
	ClientReferenceID string
	Metadata          map[string]string
}

// InvoicePaid carries the paid invoice fields
type InvoicePaid struct {
	InvoiceID       string
	SubscriptionID  string
	PaymentIntentID string
	AmountPaid      int64
	Currency        string
	PaidAt          time.Time
}

// ExternalSubscription is the gateway's view of a subscription
type ExternalSubscription struct {
	ID                 string
	Status             string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	Metadata           map[string]string
}

// PlanID returns the planId metadata value
func (s *ExternalSubscription) PlanID() string {
	return s.Metadata[MetadataPlanID]
}

// LearnerID returns the learnerId metadata value
func (s *ExternalSubscription) LearnerID() string {
	return s.Metadata[MetadataLearnerID]
}

// CheckoutSessionRequest asks the gateway for a hosted subscription checkout
type CheckoutSessionRequest struct {
	PriceID           string
	SuccessURL        string
	CancelURL         string
	ClientReferenceID string
	Metadata          map[string]string // copied onto the created subscription
}

// CheckoutSession is the gateway's hosted checkout
type CheckoutSession struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// PaymentIntentRequest asks the gateway for an in-app payment intent
type PaymentIntentRequest struct {
	Amount   int64
	Currency string
	Metadata map[string]string
}

// PaymentIntent is returned to mobile clients to confirm the payment
type PaymentIntent struct {
	PaymentIntentID string `json:"paymentIntentId"`
	ClientSecret    string `json:"clientSecret"`
}

// PriceRequest provisions a product and its recurring price
type PriceRequest struct {
	PlanID        string
	Name          string
	Description   string
	Amount        int64
	Currency      string
	Interval      string
	IntervalCount int64
}

// ProvisionedPrice holds the gateway identifiers of a provisioned plan
type ProvisionedPrice struct {
	ProductID string
	PriceID   string
}
