package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mansoorceksport/elearning-billing/internal/domain"
)

// WebhookEventRepository implements domain.WebhookEventRepository
type WebhookEventRepository struct {
	mu     sync.Mutex
	events map[string]domain.WebhookEvent
}

func NewWebhookEventRepository() *WebhookEventRepository {
	return &WebhookEventRepository{events: make(map[string]domain.WebhookEvent)}
}

func (r *WebhookEventRepository) Record(_ context.Context, event *domain.WebhookEvent) (*domain.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.events[event.EventID]
	if !ok {
		entry := *event
		if entry.ReceivedAt.IsZero() {
			entry.ReceivedAt = time.Now().UTC()
		}
		entry.Attempts = 1
		r.events[event.EventID] = entry
		return nil, nil
	}

	previous := existing
	existing.Attempts++
	r.events[event.EventID] = existing
	return &previous, nil
}

func (r *WebhookEventRepository) MarkProcessed(_ context.Context, eventID, outcome, errText string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.events[eventID]
	if !ok {
		return nil
	}
	if outcome == domain.OutcomeDuplicate && entry.IsSettled() {
		return nil
	}
	now := time.Now().UTC()
	entry.ProcessedAt = &now
	entry.Outcome = outcome
	entry.Error = errText
	r.events[eventID] = entry
	return nil
}

func (r *WebhookEventRepository) ListByOutcome(_ context.Context, outcome string, limit int64) ([]*domain.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []*domain.WebhookEvent{}
	for _, e := range r.events {
		if e.Outcome == outcome {
			entry := e
			out = append(out, &entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReceivedAt.After(out[j].ReceivedAt) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Get returns the journal entry for an event
func (r *WebhookEventRepository) Get(eventID string) (domain.WebhookEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[eventID]
	return e, ok
}

// PayloadArchive implements domain.PayloadArchive in memory
type PayloadArchive struct {
	mu       sync.Mutex
	payloads map[string][]byte
}

func NewPayloadArchive() *PayloadArchive {
	return &PayloadArchive{payloads: make(map[string][]byte)}
}

func (a *PayloadArchive) Archive(_ context.Context, eventID string, _ time.Time, payload []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.payloads[eventID] = append([]byte(nil), payload...)
	return eventID, nil
}

// Len returns the number of archived payloads
func (a *PayloadArchive) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.payloads)
}
