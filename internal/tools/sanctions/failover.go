package sanctions

import (
	"context"
	"log/slog"

	"kycgate/internal/tools"
	"kycgate/pkg/platform/circuit"
)

// Screener is a single screening backend.
type Screener interface {
	Screen(ctx context.Context, req tools.ScreeningRequest) (tools.ScreeningResult, error)
}

// FailoverScreener prefers a primary backend and switches to a fallback while
// the breaker is open.
type FailoverScreener struct {
	primary  Screener
	fallback Screener
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

// NewFailoverScreener wires primary and fallback behind breaker.
func NewFailoverScreener(primary, fallback Screener, breaker *circuit.Breaker, logger *slog.Logger) *FailoverScreener {
	if logger == nil {
		logger = slog.Default()
	}
	return &FailoverScreener{primary: primary, fallback: fallback, breaker: breaker, logger: logger}
}

// Screen always consults the primary so the breaker can observe recovery.
func (f *FailoverScreener) Screen(ctx context.Context, req tools.ScreeningRequest) (tools.ScreeningResult, error) {
	res, err := f.primary.Screen(ctx, req)
	if err != nil {
		useFallback, change := f.breaker.RecordFailure()
		if change.Opened {
			f.logger.WarnContext(ctx, "sanctions circuit opened, using fallback screener",
				"breaker", f.breaker.Name(),
				"error", err,
			)
		}
		if useFallback {
			return f.fallback.Screen(ctx, req)
		}
		return tools.ScreeningResult{}, err
	}

	usePrimary, change := f.breaker.RecordSuccess()
	if change.Closed {
		f.logger.InfoContext(ctx, "sanctions circuit closed", "breaker", f.breaker.Name())
	}
	if !usePrimary {
		return f.fallback.Screen(ctx, req)
	}
	return res, nil
}
