package domain

import (
	"context"
	"time"
)

// Webhook processing outcomes
const (
	OutcomeProcessed = "processed"
	OutcomeIgnored   = "ignored"
	OutcomeDuplicate = "duplicate"
	OutcomeAnomaly   = "anomaly"
	OutcomeFailed    = "failed"
)

// WebhookEvent journals a verified gateway event and how it was handled
type WebhookEvent struct {
	EventID     string     `bson:"event_id" json:"event_id"`
	Kind        EventKind  `bson:"kind" json:"kind"`
	Type        string     `bson:"type" json:"type"`
	ReceivedAt  time.Time  `bson:"received_at" json:"received_at"`
	ProcessedAt *time.Time `bson:"processed_at,omitempty" json:"processed_at,omitempty"`
	Outcome     string     `bson:"outcome,omitempty" json:"outcome,omitempty"`
	Error       string     `bson:"error,omitempty" json:"error,omitempty"`
	Attempts    int        `bson:"attempts" json:"attempts"`
}

// IsSettled reports whether a previous delivery finished handling the event.
// Failed attempts stay open so the next delivery retries them.
func (e *WebhookEvent) IsSettled() bool {
	return e.ProcessedAt != nil && e.Outcome != OutcomeFailed
}

// WebhookEventRepository defines the webhook journal
type WebhookEventRepository interface {
	// Record registers a delivery of the event and returns the journal entry as stored
	// before this delivery, or nil on first sight
	Record(ctx context.Context, event *WebhookEvent) (*WebhookEvent, error)
	MarkProcessed(ctx context.Context, eventID, outcome, errText string) error
	ListByOutcome(ctx context.Context, outcome string, limit int64) ([]*WebhookEvent, error)
}

// PayloadArchive stores raw verified webhook payloads for audit and replay
type PayloadArchive interface {
	Archive(ctx context.Context, eventID string, receivedAt time.Time, payload []byte) (string, error)
}
