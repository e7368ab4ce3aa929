package events

import (
	"context"
	"log/slog"
)

// LogPublisher writes events to the log. It is used when no broker is
// configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) PublishDecision(ctx context.Context, evt DecisionCompleted) error {
	p.logger.InfoContext(ctx, "decision completed",
		"event_id", evt.EventID,
		"case_id", evt.CaseID,
		"customer_id", evt.CustomerID,
		"disposition", evt.Disposition,
		"risk_score", evt.RiskScore,
		"requires_manual_review", evt.RequiresManualReview,
		"found_in_db", evt.FoundInDB,
	)
	return nil
}
