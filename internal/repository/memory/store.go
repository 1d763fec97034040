// Package memory provides in-process repositories with the same uniqueness
// guarantees as the MongoDB indexes. It backs service and handler tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mansoorceksport/elearning-billing/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newID() string {
	return primitive.NewObjectID().Hex()
}

// PlanRepository implements domain.PlanRepository
type PlanRepository struct {
	mu    sync.RWMutex
	plans map[string]domain.Plan
}

func NewPlanRepository(seed ...*domain.Plan) *PlanRepository {
	r := &PlanRepository{plans: make(map[string]domain.Plan)}
	for _, p := range seed {
		if p.ID == "" {
			p.ID = newID()
		}
		r.plans[p.ID] = *p
	}
	return r
}

func (r *PlanRepository) Create(_ context.Context, plan *domain.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	plan.ID = newID()
	plan.Currency = plan.CurrencyOrDefault()
	plan.CreatedAt = now
	plan.UpdatedAt = now
	r.plans[plan.ID] = *plan
	return nil
}

func (r *PlanRepository) GetByID(_ context.Context, id string) (*domain.Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plan, ok := r.plans[id]
	if !ok {
		return nil, domain.ErrPlanNotFound
	}
	return &plan, nil
}

func (r *PlanRepository) List(_ context.Context) ([]*domain.Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plans := make([]*domain.Plan, 0, len(r.plans))
	for _, p := range r.plans {
		plan := p
		plans = append(plans, &plan)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].Price < plans[j].Price })
	return plans, nil
}

func (r *PlanRepository) Update(_ context.Context, plan *domain.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.plans[plan.ID]
	if !ok {
		return domain.ErrPlanNotFound
	}
	existing.Name = plan.Name
	existing.Price = plan.Price
	existing.Currency = plan.CurrencyOrDefault()
	existing.Offers = plan.Offers
	existing.Interval = plan.Interval
	existing.IntervalCount = plan.IntervalCount
	existing.UpdatedAt = time.Now().UTC()
	r.plans[plan.ID] = existing
	return nil
}

func (r *PlanRepository) SetExternalIDs(_ context.Context, id, productID, priceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.plans[id]
	if !ok {
		return domain.ErrPlanNotFound
	}
	existing.ExternalProductID = productID
	existing.ExternalPriceID = priceID
	existing.UpdatedAt = time.Now().UTC()
	r.plans[id] = existing
	return nil
}

func (r *PlanRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.plans[id]; !ok {
		return domain.ErrPlanNotFound
	}
	delete(r.plans, id)
	return nil
}

// SubscriptionRepository implements domain.SubscriptionRepository
type SubscriptionRepository struct {
	mu   sync.RWMutex
	subs map[string]domain.Subscription
}

func NewSubscriptionRepository() *SubscriptionRepository {
	return &SubscriptionRepository{subs: make(map[string]domain.Subscription)}
}

func (r *SubscriptionRepository) Create(_ context.Context, subscription *domain.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.subs {
		if subscription.ExternalSubscriptionID != "" && existing.ExternalSubscriptionID == subscription.ExternalSubscriptionID {
			return domain.ErrDuplicateSubscription
		}
		if subscription.Status == domain.StatusActive && existing.Status == domain.StatusActive && existing.LearnerID == subscription.LearnerID {
			return domain.ErrActiveSubscriptionExists
		}
	}

	now := time.Now().UTC()
	subscription.ID = newID()
	subscription.CreatedAt = now
	subscription.UpdatedAt = now
	if subscription.Payments == nil {
		subscription.Payments = []domain.PaymentSummary{}
	}
	r.subs[subscription.ID] = copySubscription(*subscription)
	return nil
}

func (r *SubscriptionRepository) GetByID(_ context.Context, id string) (*domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, ok := r.subs[id]
	if !ok {
		return nil, domain.ErrSubscriptionNotFound
	}
	out := copySubscription(sub)
	return &out, nil
}

func (r *SubscriptionRepository) GetByExternalID(_ context.Context, externalID string) (*domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, sub := range r.subs {
		if sub.ExternalSubscriptionID == externalID {
			out := copySubscription(sub)
			return &out, nil
		}
	}
	return nil, domain.ErrSubscriptionNotFound
}

func (r *SubscriptionRepository) GetActiveByLearnerID(_ context.Context, learnerID string) (*domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, sub := range r.subs {
		if sub.LearnerID == learnerID && sub.Status == domain.StatusActive {
			out := copySubscription(sub)
			return &out, nil
		}
	}
	return nil, domain.ErrSubscriptionNotFound
}

func (r *SubscriptionRepository) CountByLearnerID(_ context.Context, learnerID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, sub := range r.subs {
		if sub.LearnerID == learnerID {
			count++
		}
	}
	return count, nil
}

func (r *SubscriptionRepository) SetLearnerProfile(_ context.Context, id, profileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[id]
	if !ok {
		return domain.ErrSubscriptionNotFound
	}
	sub.LearnerProfileID = profileID
	sub.UpdatedAt = time.Now().UTC()
	r.subs[id] = sub
	return nil
}

func (r *SubscriptionRepository) UpdateStatus(_ context.Context, id string, status domain.SubscriptionStatus, periodEnd time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[id]
	if !ok {
		return domain.ErrSubscriptionNotFound
	}
	return r.applyStatus(sub, status, periodEnd)
}

func (r *SubscriptionRepository) UpdateStatusByExternalID(_ context.Context, externalID string, status domain.SubscriptionStatus, periodEnd time.Time) (*domain.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sub := range r.subs {
		if sub.ExternalSubscriptionID != externalID {
			continue
		}
		if err := r.applyStatus(sub, status, periodEnd); err != nil {
			return nil, err
		}
		out := copySubscription(r.subs[sub.ID])
		return &out, nil
	}
	return nil, domain.ErrSubscriptionNotFound
}

// applyStatus must be called with the write lock held
func (r *SubscriptionRepository) applyStatus(sub domain.Subscription, status domain.SubscriptionStatus, periodEnd time.Time) error {
	if status == domain.StatusActive {
		for id, other := range r.subs {
			if id != sub.ID && other.LearnerID == sub.LearnerID && other.Status == domain.StatusActive {
				return domain.ErrActiveSubscriptionExists
			}
		}
	}
	sub.Status = status
	if !periodEnd.IsZero() {
		sub.PeriodEnd = periodEnd
	}
	sub.UpdatedAt = time.Now().UTC()
	r.subs[sub.ID] = sub
	return nil
}

func (r *SubscriptionRepository) AppendPaymentSummary(_ context.Context, id string, summary domain.PaymentSummary) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[id]
	if !ok {
		return false, nil
	}
	for _, p := range sub.Payments {
		if p.InvoiceID == summary.InvoiceID {
			return false, nil
		}
	}
	sub.Payments = append(append([]domain.PaymentSummary{}, sub.Payments...), summary)
	sub.UpdatedAt = time.Now().UTC()
	r.subs[id] = sub
	return true, nil
}

// All returns a snapshot of every stored subscription
func (r *SubscriptionRepository) All() []domain.Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		out = append(out, copySubscription(sub))
	}
	return out
}

func copySubscription(sub domain.Subscription) domain.Subscription {
	sub.Payments = append([]domain.PaymentSummary{}, sub.Payments...)
	return sub
}

// PaymentRepository implements domain.PaymentRepository
type PaymentRepository struct {
	mu       sync.RWMutex
	payments []domain.Payment
}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{}
}

func (r *PaymentRepository) Create(_ context.Context, payment *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.payments {
		if existing.ExternalInvoiceID == payment.ExternalInvoiceID {
			return domain.ErrDuplicatePayment
		}
		if payment.ExternalPaymentIntentID != "" && existing.ExternalPaymentIntentID == payment.ExternalPaymentIntentID {
			return domain.ErrDuplicatePayment
		}
	}

	payment.ID = newID()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
	r.payments = append(r.payments, *payment)
	return nil
}

func (r *PaymentRepository) GetByInvoiceID(_ context.Context, invoiceID string) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.payments {
		if p.ExternalInvoiceID == invoiceID {
			out := p
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *PaymentRepository) ListBySubscriptionID(_ context.Context, subscriptionID string) ([]*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*domain.Payment{}
	for i := len(r.payments) - 1; i >= 0; i-- {
		if r.payments[i].SubscriptionID == subscriptionID {
			p := r.payments[i]
			out = append(out, &p)
		}
	}
	return out, nil
}

// Count returns the number of recorded payments
func (r *PaymentRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.payments)
}
