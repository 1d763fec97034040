package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/mansoorceksport/elearning-billing/internal/domain"
)

// PaymentLedger appends payments. The storage unique indexes decide duplicates,
// so there is no lookup before the insert.
type PaymentLedger struct {
	paymentRepo domain.PaymentRepository
}

func NewPaymentLedger(paymentRepo domain.PaymentRepository) *PaymentLedger {
	return &PaymentLedger{paymentRepo: paymentRepo}
}

// Record stores the payment of a paid invoice.
// When the invoice was already recorded it returns the stored payment together with
// domain.ErrDuplicatePayment.
func (l *PaymentLedger) Record(ctx context.Context, subscriptionID string, invoice *domain.InvoicePaid) (*domain.Payment, error) {
	payment := &domain.Payment{
		SubscriptionID:          subscriptionID,
		Amount:                  invoice.AmountPaid,
		Currency:                invoice.Currency,
		Method:                  domain.PaymentMethodCard,
		ExternalPaymentIntentID: invoice.PaymentIntentID,
		ExternalInvoiceID:       invoice.InvoiceID,
		Status:                  domain.PaymentStatusSucceeded,
		CreatedAt:               invoice.PaidAt,
	}
	if err := payment.Validate(); err != nil {
		return nil, fmt.Errorf("invoice %s: %w", invoice.InvoiceID, err)
	}

	if err := l.paymentRepo.Create(ctx, payment); err != nil {
		if errors.Is(err, domain.ErrDuplicatePayment) {
			return l.existing(ctx, payment, err)
		}
		return nil, err
	}

	log.Printf("[Ledger] Recorded payment %s: invoice=%s amount=%d", payment.ID, invoice.InvoiceID, payment.Amount)
	return payment, nil
}

// History returns the payments recorded for a subscription, newest first
func (l *PaymentLedger) History(ctx context.Context, subscriptionID string) ([]*domain.Payment, error) {
	return l.paymentRepo.ListBySubscriptionID(ctx, subscriptionID)
}

// existing loads the payment that won the insert and flags a redelivery that disagrees with it
func (l *PaymentLedger) existing(ctx context.Context, attempted *domain.Payment, dupErr error) (*domain.Payment, error) {
	stored, err := l.paymentRepo.GetByInvoiceID(ctx, attempted.ExternalInvoiceID)
	if err != nil {
		// The duplicate hit the payment intent index under another invoice id
		log.Printf("[Ledger] Payment intent %s already recorded, skipping invoice %s",
			attempted.ExternalPaymentIntentID, attempted.ExternalInvoiceID)
		return nil, dupErr
	}

	if stored.SubscriptionID != attempted.SubscriptionID || stored.Amount != attempted.Amount {
		log.Printf("[Ledger] ANOMALY invoice %s redelivered as subscription=%s amount=%d, stored subscription=%s amount=%d",
			attempted.ExternalInvoiceID, attempted.SubscriptionID, attempted.Amount, stored.SubscriptionID, stored.Amount)
	} else {
		log.Printf("[Ledger] Invoice %s already recorded, skipping", attempted.ExternalInvoiceID)
	}
	return stored, dupErr
}
