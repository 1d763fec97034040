package domain

import (
	"testing"
)

func TestMapExternalStatus(t *testing.T) {
	tests := []struct {
		external string
		want     SubscriptionStatus
	}{
		{"active", StatusActive},
		{"canceled", StatusCancelled},
		{"unpaid", StatusPastDue},
		{"incomplete", StatusPending},
		{"paused", StatusSuspended},
		{"past_due", SubscriptionStatus("past_due")},
		{"trialing", SubscriptionStatus("trialing")},
		{"", SubscriptionStatus("")},
	}

	for _, tt := range tests {
		t.Run(tt.external, func(t *testing.T) {
			if got := MapExternalStatus(tt.external); got != tt.want {
				t.Errorf("MapExternalStatus(%q) = %q, want %q", tt.external, got, tt.want)
			}
		})
	}
}

func TestEntitlementStatus_GrantsAccess(t *testing.T) {
	tests := []struct {
		status EntitlementStatus
		want   bool
	}{
		{EntitlementFrom(StatusActive), true},
		{EntitlementFrom(StatusPastDue), true},
		{EntitlementFrom(StatusPending), true},
		{EntitlementFrom(StatusSuspended), true},
		{EntitlementFrom(StatusCancelled), false},
		{EntitlementFrom(StatusExpired), false},
		{StatusNotFound, false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.GrantsAccess(); got != tt.want {
				t.Errorf("GrantsAccess(%q) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestWebhookEvent_IsSettled(t *testing.T) {
	now := timePtr()

	tests := []struct {
		name  string
		event WebhookEvent
		want  bool
	}{
		{"never processed", WebhookEvent{EventID: "evt_1"}, false},
		{"processed", WebhookEvent{EventID: "evt_1", ProcessedAt: now, Outcome: OutcomeProcessed}, true},
		{"anomaly", WebhookEvent{EventID: "evt_1", ProcessedAt: now, Outcome: OutcomeAnomaly}, true},
		{"failed", WebhookEvent{EventID: "evt_1", ProcessedAt: now, Outcome: OutcomeFailed}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.IsSettled(); got != tt.want {
				t.Errorf("IsSettled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExternalSubscription_Metadata(t *testing.T) {
	sub := &ExternalSubscription{Metadata: map[string]string{MetadataPlanID: "P1", MetadataLearnerID: "L1"}}
	if sub.PlanID() != "P1" || sub.LearnerID() != "L1" {
		t.Errorf("metadata = (%q, %q), want (P1, L1)", sub.PlanID(), sub.LearnerID())
	}

	empty := &ExternalSubscription{}
	if empty.PlanID() != "" || empty.LearnerID() != "" {
		t.Errorf("nil metadata should read as empty")
	}
}
