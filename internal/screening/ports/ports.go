// Package ports declares what the coordinator needs from the outside:
// workers, the profile datastore, the sanctions screener and an event sink.
package ports

import (
	"context"

	"kycgate/internal/events"
	"kycgate/internal/screening/models"
	"kycgate/internal/tools"
)

// Agent runs one worker role. Run must always return a verdict.
type Agent interface {
	Role() models.Role
	Run(ctx context.Context, req models.CaseRequest) models.Verdict
}

// AgentInfo describes a worker for the service info endpoint.
type AgentInfo interface {
	Agent
	Model() string
	Description() string
	Tools() []string
}

// ProfileStore looks up and records verified profiles. A miss is reported
// as sentinel.ErrNotFound.
type ProfileStore interface {
	FindByIdentityNumber(ctx context.Context, identityNumber string) (*tools.ProfileRecord, error)
	Save(ctx context.Context, w tools.ProfileWrite) error
}

// Screener screens a subject against sanctions and PEP lists.
type Screener interface {
	Screen(ctx context.Context, req tools.ScreeningRequest) (tools.ScreeningResult, error)
}

// Publisher emits decision events.
type Publisher interface {
	PublishDecision(ctx context.Context, evt events.DecisionCompleted) error
}
