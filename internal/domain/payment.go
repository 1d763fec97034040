package domain

import (
	"context"
	"time"
)

// Payment methods
const (
	PaymentMethodCard     = "carte"
	PaymentMethodTransfer = "virement"
	PaymentMethodOther    = "autre"
)

// Payment status constants
const (
	PaymentStatusSucceeded = "succeeded"
	PaymentStatusFailed    = "failed"
	PaymentStatusPending   = "pending"
)

// Payment is an immutable ledger record of money received for a subscription.
// ExternalInvoiceID is the idempotency boundary.
type Payment struct {
	ID                      string    `bson:"_id,omitempty" json:"id"`
	SubscriptionID          string    `bson:"subscription_id" json:"subscription_id"`
	Amount                  int64     `bson:"amount" json:"amount"` // Minor currency units
	Currency                string    `bson:"currency,omitempty" json:"currency,omitempty"`
	Method                  string    `bson:"method" json:"method"`
	ExternalPaymentIntentID string    `bson:"external_payment_intent_id,omitempty" json:"external_payment_intent_id,omitempty"`
	ExternalInvoiceID       string    `bson:"external_invoice_id" json:"external_invoice_id"`
	Status                  string    `bson:"status" json:"status"`
	CreatedAt               time.Time `bson:"created_at" json:"created_at"`
}

// Validate checks the fields every ledger entry must carry
func (p *Payment) Validate() error {
	if p.SubscriptionID == "" || p.ExternalInvoiceID == "" || p.Amount <= 0 {
		return ErrInvalidPayment
	}
	switch p.Method {
	case PaymentMethodCard, PaymentMethodTransfer, PaymentMethodOther:
	default:
		return ErrInvalidPayment
	}
	return nil
}

// PaymentRepository defines operations for the payment ledger
type PaymentRepository interface {
	// Create inserts the payment, returning ErrDuplicatePayment when the invoice
	// or payment intent was already recorded
	Create(ctx context.Context, payment *Payment) error
	GetByInvoiceID(ctx context.Context, invoiceID string) (*Payment, error)
	ListBySubscriptionID(ctx context.Context, subscriptionID string) ([]*Payment, error)
}
