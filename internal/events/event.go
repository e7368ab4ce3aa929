// Package events publishes compliance run outcomes to downstream systems.
// Publishing is best-effort: a failed publish never changes a decision.
package events

import (
	"context"
	"time"
)

// DecisionCompletedTopic is the default topic for completed runs.
const DecisionCompletedTopic = "kyc.decision.completed"

// TypeDecisionCompleted identifies the event type in record headers.
const TypeDecisionCompleted = "kyc.decision.completed.v1"

// DecisionCompleted is emitted once per finished compliance run. It carries
// no raw identity numbers.
type DecisionCompleted struct {
	EventID              string    `json:"event_id"`
	CaseID               string    `json:"case_id,omitempty"`
	CustomerID           string    `json:"customer_id"`
	Disposition          string    `json:"disposition"`
	RiskScore            int       `json:"risk_score"`
	RequiresManualReview bool      `json:"requires_manual_review"`
	FoundInDB            bool      `json:"found_in_db"`
	DegradedWorkers      []string  `json:"degraded_workers,omitempty"`
	OccurredAt           time.Time `json:"occurred_at"`
}

// Publisher delivers decision events.
type Publisher interface {
	PublishDecision(ctx context.Context, evt DecisionCompleted) error
}
