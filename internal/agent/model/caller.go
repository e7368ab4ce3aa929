// Package model issues prompts to the language model with bounded retry and
// turns the raw text into structured verdict data. Model failures never
// propagate: they resolve to a review fallback.
package model

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"time"

	"kycgate/internal/agent/metrics"
)

const (
	DefaultMaxAttempts = 3
	DefaultBackoffUnit = time.Second

	// backoffFactor scales the delay before retry n to n*backoffFactor units.
	backoffFactor = 2

	fallbackDetails = "AI analysis unavailable - requires manual review"
)

// Generator is the model backend.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// Outcome classifies how a call resolved.
type Outcome string

const (
	OutcomeParsed     Outcome = "parsed"
	OutcomeParseError Outcome = "parse_error"
	OutcomeFallback   Outcome = "fallback"
)

// Request is one model call for a role.
type Request struct {
	Role         string
	Model        string
	Instructions string
	Input        any
}

// Analysis is the structured result of a call. Output is never nil.
type Analysis struct {
	Output   map[string]any
	Outcome  Outcome
	Attempts int
	// Err is the last model error when Outcome is OutcomeFallback.
	Err error
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Caller sends prompts with retry on rate limiting.
type Caller struct {
	gen         Generator
	maxAttempts int
	backoffUnit time.Duration
	sleep       Sleeper
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// Option configures a Caller.
type Option func(*Caller)

// WithMaxAttempts bounds total attempts per call.
func WithMaxAttempts(n int) Option {
	return func(c *Caller) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBackoffUnit sets the base retry delay unit.
func WithBackoffUnit(d time.Duration) Option {
	return func(c *Caller) {
		if d >= 0 {
			c.backoffUnit = d
		}
	}
}

// WithSleeper replaces the wait between attempts.
func WithSleeper(s Sleeper) Option {
	return func(c *Caller) {
		if s != nil {
			c.sleep = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Caller) {
		c.logger = l
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Caller) {
		c.metrics = m
	}
}

// NewCaller creates a Caller over gen.
func NewCaller(gen Generator, opts ...Option) *Caller {
	c := &Caller{
		gen:         gen,
		maxAttempts: DefaultMaxAttempts,
		backoffUnit: DefaultBackoffUnit,
		sleep:       sleepContext,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze renders the prompt, calls the model and parses the reply.
// Rate-limited attempts are retried with linear backoff; any other model
// error, exhausted retries, or a done context yield a fallback. The returned
// error is non-nil only when the prompt itself cannot be built.
func (c *Caller) Analyze(ctx context.Context, req Request) (Analysis, error) {
	prompt, keys, err := BuildPrompt(req.Role, req.Instructions, req.Input)
	if err != nil {
		return Analysis{}, err
	}

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		attempts = attempt
		text, genErr := c.gen.Generate(ctx, req.Model, prompt)
		if genErr == nil {
			c.metrics.IncrementModelAttempt(req.Role, "success")
			output, ok := Parse(text)
			if !ok {
				c.metrics.IncrementModelFallback(req.Role, "parse_error")
				c.logger.WarnContext(ctx, "model reply was not valid JSON",
					"role", req.Role,
					"attempt", attempt,
				)
				return Analysis{Output: output, Outcome: OutcomeParseError, Attempts: attempt}, nil
			}
			return Analysis{Output: output, Outcome: OutcomeParsed, Attempts: attempt}, nil
		}
		lastErr = genErr

		if !IsRateLimited(genErr) {
			c.metrics.IncrementModelAttempt(req.Role, "error")
			c.metrics.IncrementModelFallback(req.Role, "error")
			c.logger.ErrorContext(ctx, "model call failed",
				"role", req.Role,
				"attempt", attempt,
				"error", genErr,
			)
			break
		}

		c.metrics.IncrementModelAttempt(req.Role, "rate_limited")
		if attempt == c.maxAttempts {
			c.metrics.IncrementModelFallback(req.Role, "retries_exhausted")
			c.logger.ErrorContext(ctx, "model rate limit retries exhausted",
				"role", req.Role,
				"attempts", attempt,
				"error", genErr,
			)
			break
		}

		delay := time.Duration(attempt*backoffFactor) * c.backoffUnit
		c.logger.WarnContext(ctx, "model rate limited, backing off",
			"role", req.Role,
			"attempt", attempt,
			"delay", delay,
		)
		if err := c.sleep(ctx, delay); err != nil {
			lastErr = err
			c.metrics.IncrementModelFallback(req.Role, "error")
			break
		}
	}

	return Analysis{
		Output:   Fallback(keys),
		Outcome:  OutcomeFallback,
		Attempts: attempts,
		Err:      lastErr,
	}, nil
}

// Fallback is the structure used when the model could not produce a verdict.
func Fallback(inputKeys []string) map[string]any {
	if inputKeys == nil {
		inputKeys = []string{}
	}
	return map[string]any{
		"status":         "NEEDS_REVIEW",
		"confidence":     0,
		"details":        fallbackDetails,
		"input_received": inputKeys,
	}
}

var rateLimitPattern = regexp.MustCompile(`(?i)(\b429\b|\bquota\b|\brate[ _-]?limit|too many requests|resource[ _]exhausted)`)

// IsRateLimited reports whether err signals quota exhaustion. Errors that
// classify themselves through a RateLimited method are trusted; others are
// matched on their message.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	var rl interface{ RateLimited() bool }
	if errors.As(err, &rl) {
		return rl.RateLimited()
	}
	return rateLimitPattern.MatchString(err.Error())
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
