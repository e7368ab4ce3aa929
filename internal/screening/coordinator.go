// Package screening coordinates a compliance run: profile short-circuit,
// case id, sanctions pre-screen, concurrent worker fan-out and the
// deterministic HITL aggregation of their verdicts.
package screening

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"kycgate/internal/events"
	"kycgate/internal/screening/metrics"
	"kycgate/internal/screening/models"
	"kycgate/internal/screening/ports"
	"kycgate/internal/tools"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/requestcontext"
)

const (
	DefaultRunTimeout   = 90 * time.Second
	DefaultCollectGrace = 2 * time.Second
	DefaultJurisdiction = "ID"
)

const (
	timeoutDetails = "Analysis did not finish in time - requires manual review"
	timeoutError   = "run deadline exceeded"
)

const tracerName = "kycgate/internal/screening"

// Coordinator runs compliance analyses. It holds no per-run state and is
// safe for concurrent use.
type Coordinator struct {
	agents       []ports.Agent
	profiles     ports.ProfileStore
	screener     ports.Screener
	publisher    ports.Publisher
	caseIDs      *CaseIDs
	jurisdiction string
	runTimeout   time.Duration
	grace        time.Duration
	writeBack    bool
	logger       *slog.Logger
	metrics      *metrics.Metrics
	tracer       trace.Tracer
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithProfiles binds the profile datastore used for the short-circuit and
// for write-back.
func WithProfiles(store ports.ProfileStore) Option {
	return func(c *Coordinator) {
		c.profiles = store
	}
}

// WithPreScreen enables the sanctions pre-screen before fan-out.
func WithPreScreen(screener ports.Screener, jurisdiction string) Option {
	return func(c *Coordinator) {
		c.screener = screener
		if jurisdiction != "" {
			c.jurisdiction = jurisdiction
		}
	}
}

func WithPublisher(p ports.Publisher) Option {
	return func(c *Coordinator) {
		c.publisher = p
	}
}

func WithCaseIDs(g *CaseIDs) Option {
	return func(c *Coordinator) {
		if g != nil {
			c.caseIDs = g
		}
	}
}

// WithRunTimeout bounds the fan-out phase. Zero disables the bound.
func WithRunTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.runTimeout = d
	}
}

// WithCollectGrace sets how long verdicts are still awaited once the run
// deadline has passed.
func WithCollectGrace(d time.Duration) Option {
	return func(c *Coordinator) {
		c.grace = d
	}
}

// WithProfileWriteBack records approved full runs in the profile store.
func WithProfileWriteBack(enabled bool) Option {
	return func(c *Coordinator) {
		c.writeBack = enabled
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Coordinator) {
		c.tracer = t
	}
}

// New creates a Coordinator over agents.
func New(agents []ports.Agent, opts ...Option) *Coordinator {
	c := &Coordinator{
		agents:       agents,
		caseIDs:      NewCaseIDs(DefaultCaseIDPrefix),
		jurisdiction: DefaultJurisdiction,
		runTimeout:   DefaultRunTimeout,
		grace:        DefaultCollectGrace,
		logger:       slog.Default(),
		tracer:       otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Agents returns the configured workers in run order.
func (c *Coordinator) Agents() []ports.Agent {
	return c.agents
}

// Analyze runs the full workflow for req. The only error is an
// infrastructure failure before fan-out; every worker or tool failure is
// absorbed into the decision.
func (c *Coordinator) Analyze(ctx context.Context, req models.CaseRequest) (*models.Decision, error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "screening.analyze")
	defer span.End()
	requestID := requestcontext.RequestID(ctx)

	if rec := c.lookupProfile(ctx, req); rec != nil {
		d := existingProfileDecision(rec)
		d.Duration = time.Since(start)
		span.SetAttributes(attribute.Bool("case.found_in_db", true))
		c.finish(ctx, req, d)
		return d, nil
	}

	caseID, failure := tools.Invoke(ctx, tools.CapabilityCaseID, c.caseIDs.Next)
	if failure != nil {
		span.RecordError(failure)
		c.logger.ErrorContext(ctx, "case id mint failed",
			"request_id", requestID,
			"error", failure,
		)
		return nil, dErrors.Wrap(failure, dErrors.CodeUnavailable, "KYC analysis failed: "+failure.Reason)
	}
	span.SetAttributes(attribute.String("case.id", caseID))

	preScreen := c.preScreen(ctx, req, caseID)
	verdicts := c.fanOut(ctx, req, caseID)

	d := Decide(caseID, verdicts, preScreen)
	d.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int("case.risk_score", d.RiskScore),
		attribute.String("case.disposition", string(d.Disposition)),
	)

	c.writeBackProfile(ctx, req, d)
	c.finish(ctx, req, d)
	return d, nil
}

// lookupProfile returns a stored profile for the applicant, or nil. Lookup
// failures run the full analysis.
func (c *Coordinator) lookupProfile(ctx context.Context, req models.CaseRequest) *tools.ProfileRecord {
	if c.profiles == nil || req.IdentityNumber == "" {
		return nil
	}
	rec, failure := tools.Invoke(ctx, tools.CapabilityProfileLookup, func(ctx context.Context) (*tools.ProfileRecord, error) {
		return c.profiles.FindByIdentityNumber(ctx, req.IdentityNumber)
	})
	if failure != nil {
		if failure.Category != tools.FailureNotFound {
			c.logger.WarnContext(ctx, "profile lookup failed, running full analysis",
				"request_id", requestcontext.RequestID(ctx),
				"identity_ref", identityRef(req.IdentityNumber),
				"category", failure.Category,
				"error", failure.Err,
			)
		}
		return nil
	}
	return rec
}

func existingProfileDecision(rec *tools.ProfileRecord) *models.Decision {
	return &models.Decision{
		RiskScore:            DisplayScore(rec.RiskScore),
		Disposition:          models.DispositionApproved,
		RequiresManualReview: false,
		Reasoning:            ReasonExistingProfile,
		FoundInDB:            true,
		Profile:              rec,
		Verdicts:             map[models.Role]models.Verdict{},
		Assessment: models.Assessment{
			Citations: []string{},
			Breakdown: breakdown(nil, false),
		},
	}
}

func (c *Coordinator) preScreen(ctx context.Context, req models.CaseRequest, caseID string) *tools.ScreeningResult {
	if c.screener == nil || req.Name == "" {
		return nil
	}
	res, failure := tools.Invoke(ctx, tools.CapabilitySanctionsScreen, func(ctx context.Context) (tools.ScreeningResult, error) {
		return c.screener.Screen(ctx, tools.ScreeningRequest{
			Name:           req.Name,
			IdentityNumber: req.IdentityNumber,
			Jurisdiction:   c.jurisdiction,
		})
	})
	if failure != nil {
		c.logger.WarnContext(ctx, "sanctions pre-screen failed",
			"case_id", caseID,
			"category", failure.Category,
			"error", failure.Err,
		)
		return nil
	}
	return &res
}

// fanOut runs every agent concurrently and returns one verdict per role.
// Agents still running once the run deadline and grace period have passed
// get a timeout verdict.
func (c *Coordinator) fanOut(ctx context.Context, req models.CaseRequest, caseID string) map[models.Role]models.Verdict {
	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if c.runTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, c.runTimeout)
	}
	defer cancel()

	results := make(chan models.Verdict, len(c.agents))
	var g errgroup.Group
	for _, a := range c.agents {
		g.Go(func() error {
			results <- c.runAgent(runCtx, a, req)
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(results)
	}()

	verdicts := make(map[models.Role]models.Verdict, len(c.agents))
	var grace <-chan time.Time
	done := runCtx.Done()
collect:
	for {
		select {
		case v, ok := <-results:
			if !ok {
				break collect
			}
			verdicts[v.Role] = v
		case <-done:
			done = nil
			t := time.NewTimer(c.grace)
			defer t.Stop()
			grace = t.C
		case <-grace:
			break collect
		}
	}

	for _, a := range c.agents {
		if _, ok := verdicts[a.Role()]; !ok {
			c.logger.WarnContext(ctx, "worker did not finish before the run deadline",
				"case_id", caseID,
				"worker", a.Role(),
			)
			verdicts[a.Role()] = timeoutVerdict(a.Role())
		}
	}
	return verdicts
}

// runAgent shields the run from an agent that panics instead of returning
// an ERROR verdict itself.
func (c *Coordinator) runAgent(ctx context.Context, a ports.Agent, req models.CaseRequest) (v models.Verdict) {
	role := a.Role()
	defer func() {
		if r := recover(); r != nil {
			c.logger.ErrorContext(ctx, "worker panicked",
				"worker", role,
				"panic", fmt.Sprint(r),
			)
			v = models.ErrorVerdict(role, fmt.Sprintf("worker panicked: %v", r))
		}
		v.Role = role
	}()
	return a.Run(ctx, req)
}

func timeoutVerdict(role models.Role) models.Verdict {
	return models.Verdict{
		Role:     role,
		Status:   models.StatusNeedsReview,
		Details:  timeoutDetails,
		Error:    timeoutError,
		Degraded: true,
		Raw: map[string]any{
			"status":     string(models.StatusNeedsReview),
			"confidence": 0,
			"details":    timeoutDetails,
			"error":      timeoutError,
			"agent":      string(role),
		},
	}
}

// writeBackProfile records an approved full run. It never runs for
// decisions under review or for short-circuited runs.
func (c *Coordinator) writeBackProfile(ctx context.Context, req models.CaseRequest, d *models.Decision) {
	if !c.writeBack || c.profiles == nil || req.IdentityNumber == "" {
		return
	}
	if d.FoundInDB || d.Disposition != models.DispositionApproved {
		return
	}
	_, failure := tools.Invoke(ctx, tools.CapabilityProfileSave, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.profiles.Save(ctx, tools.ProfileWrite{
			IdentityNumber: req.IdentityNumber,
			CustomerID:     req.CustomerID,
			Name:           req.Name,
			RiskScore:      d.RiskScore,
			CaseID:         d.CaseID,
			DecidedAt:      requestcontext.Now(ctx),
		})
	})
	if failure != nil {
		c.logger.WarnContext(ctx, "profile write-back failed",
			"case_id", d.CaseID,
			"category", failure.Category,
			"error", failure.Err,
		)
	}
}

func (c *Coordinator) finish(ctx context.Context, req models.CaseRequest, d *models.Decision) {
	degraded := degradedRoles(d.Verdicts)
	c.metrics.IncrementDecision(string(d.Disposition), d.FoundInDB)
	c.metrics.IncrementRuleHits(d.Assessment.Rules)
	c.metrics.ObserveRunLatency(d.Duration)
	for _, role := range degraded {
		c.metrics.IncrementDegraded(role, string(d.Verdicts[models.Role(role)].Status))
	}

	c.logger.InfoContext(ctx, "kyc decision",
		"request_id", requestcontext.RequestID(ctx),
		"case_id", d.CaseID,
		"customer_id", req.CustomerID,
		"identity_ref", identityRef(req.IdentityNumber),
		"disposition", d.Disposition,
		"risk_score", d.RiskScore,
		"found_in_db", d.FoundInDB,
		"degraded_workers", degraded,
		"duration_ms", d.Duration.Milliseconds(),
	)

	if c.publisher == nil {
		return
	}
	evt := events.DecisionCompleted{
		EventID:              uuid.NewString(),
		CaseID:               d.CaseID,
		CustomerID:           req.CustomerID,
		Disposition:          string(d.Disposition),
		RiskScore:            d.RiskScore,
		RequiresManualReview: d.RequiresManualReview,
		FoundInDB:            d.FoundInDB,
		DegradedWorkers:      degraded,
		OccurredAt:           requestcontext.Now(ctx).UTC(),
	}
	if err := c.publisher.PublishDecision(ctx, evt); err != nil {
		c.logger.WarnContext(ctx, "decision event publish failed",
			"case_id", d.CaseID,
			"error", err,
		)
	}
}

// degradedRoles lists roles whose verdict errored or fell back, in role order.
func degradedRoles(verdicts map[models.Role]models.Verdict) []string {
	var out []string
	for _, role := range models.WorkerRoles {
		v, ok := verdicts[role]
		if ok && (v.Degraded || v.Status == models.StatusError) {
			out = append(out, string(role))
		}
	}
	return out
}

// identityRef is a log-safe reference to an identity number.
func identityRef(identityNumber string) string {
	if identityNumber == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(identityNumber))
	return hex.EncodeToString(sum[:6])
}
