// Package worker runs a single specialist role: it executes the role's
// tools, asks the model for a verdict and decodes the reply. A worker never
// fails its caller; every internal error becomes an ERROR verdict.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"kycgate/internal/agent/metrics"
	"kycgate/internal/agent/model"
	"kycgate/internal/screening/models"
	"kycgate/internal/tools"
)

const tracerName = "kycgate/internal/agent/worker"

// Analyzer asks the model for a role's verdict.
type Analyzer interface {
	Analyze(ctx context.Context, req model.Request) (model.Analysis, error)
}

// Config describes one worker role.
type Config struct {
	Role         models.Role
	Model        string
	Description  string
	Instructions string
	Steps        []Step
	// ToolOnly workers return their sole Reporter step's result as the
	// verdict without calling the model.
	ToolOnly bool
}

// Worker executes one role.
type Worker struct {
	role         models.Role
	model        string
	description  string
	instructions string
	steps        []Step
	reporter     Reporter
	analyzer     Analyzer
	timeout      time.Duration
	logger       *slog.Logger
	metrics      *metrics.Metrics
	tracer       trace.Tracer
}

// Option configures a Worker.
type Option func(*Worker)

// WithTimeout bounds a single run. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(w *Worker) {
		w.timeout = d
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(w *Worker) {
		w.tracer = t
	}
}

// New validates cfg and builds a Worker.
func New(cfg Config, analyzer Analyzer, opts ...Option) (*Worker, error) {
	if cfg.Role == "" {
		return nil, errors.New("worker role is required")
	}
	w := &Worker{
		role:         cfg.Role,
		model:        cfg.Model,
		description:  cfg.Description,
		instructions: cfg.Instructions,
		steps:        cfg.Steps,
		analyzer:     analyzer,
		logger:       slog.Default(),
		tracer:       otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(w)
	}

	if cfg.ToolOnly {
		if len(cfg.Steps) != 1 {
			return nil, fmt.Errorf("tool-only worker %s needs exactly one tool, has %d", cfg.Role, len(cfg.Steps))
		}
		r, ok := cfg.Steps[0].(Reporter)
		if !ok {
			return nil, fmt.Errorf("tool %s cannot stand in for worker %s", cfg.Steps[0].Capability(), cfg.Role)
		}
		w.reporter = r
	} else if analyzer == nil {
		return nil, fmt.Errorf("worker %s needs a model analyzer", cfg.Role)
	}
	return w, nil
}

func (w *Worker) Role() models.Role   { return w.role }
func (w *Worker) Model() string       { return w.model }
func (w *Worker) Description() string { return w.description }

// Tools lists the capabilities bound to the worker.
func (w *Worker) Tools() []string {
	out := make([]string, 0, len(w.steps))
	for _, s := range w.steps {
		out = append(out, string(s.Capability()))
	}
	return out
}

// Run executes the worker for req and always returns a verdict.
func (w *Worker) Run(ctx context.Context, req models.CaseRequest) (v models.Verdict) {
	start := time.Now()
	ctx, span := w.startSpan(ctx)
	defer func() {
		if r := recover(); r != nil {
			w.logger.ErrorContext(ctx, "worker panicked",
				"worker", w.role,
				"panic", fmt.Sprint(r),
			)
			v = models.ErrorVerdict(w.role, fmt.Sprintf("worker panicked: %v", r))
		}
		v.Duration = time.Since(start)
		w.metrics.ObserveWorkerLatency(string(w.role), string(v.Status), v.Duration)
		w.logger.InfoContext(ctx, "worker finished",
			"worker", w.role,
			"status", v.Status,
			"degraded", v.Degraded,
			"duration_ms", v.Duration.Milliseconds(),
		)
		endSpan(span, v)
	}()

	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	results, failures := w.runSteps(ctx, req)

	if w.reporter != nil {
		key := string(w.reporter.Capability())
		failure := failures[key]
		return Decode(w.role, w.reporter.Report(results[key], failure), failure != nil)
	}

	input := req.Input()
	if len(results) > 0 {
		input["tool_results"] = results
	}
	analysis, err := w.analyzer.Analyze(ctx, model.Request{
		Role:         string(w.role),
		Model:        w.model,
		Instructions: w.instructions,
		Input:        input,
	})
	if err != nil {
		w.logger.ErrorContext(ctx, "worker could not build model request",
			"worker", w.role,
			"error", err,
		)
		return models.ErrorVerdict(w.role, err.Error())
	}
	return Decode(w.role, analysis.Output, analysis.Outcome != model.OutcomeParsed)
}

// runSteps executes every bound tool in order. A failed tool is recorded
// by its report and does not stop the rest.
func (w *Worker) runSteps(ctx context.Context, req models.CaseRequest) (map[string]any, map[string]*tools.Failure) {
	results := make(map[string]any, len(w.steps))
	failures := make(map[string]*tools.Failure)
	for _, step := range w.steps {
		key := string(step.Capability())
		sctx, span := startStepSpan(ctx, w.tracer, key)
		res, failure := tools.Invoke(sctx, step.Capability(), func(ctx context.Context) (any, error) {
			return step.Run(ctx, req)
		})
		if failure != nil {
			span.RecordError(failure)
			w.metrics.IncrementToolFailure(key, string(failure.Category))
			w.logger.WarnContext(ctx, "worker tool failed",
				"worker", w.role,
				"capability", key,
				"category", failure.Category,
				"error", failure.Err,
			)
			failures[key] = failure
			results[key] = failure.Report()
		} else {
			results[key] = res
		}
		span.End()
	}
	return results, failures
}
