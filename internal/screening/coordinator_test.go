package screening

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"kycgate/internal/events"
	"kycgate/internal/screening/metrics"
	"kycgate/internal/screening/models"
	"kycgate/internal/screening/ports"
	"kycgate/internal/screening/ports/mocks"
	"kycgate/internal/tools"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/sentinel"
	"kycgate/pkg/requestcontext"
)

type stubAgent struct {
	role  models.Role
	run   func(ctx context.Context) models.Verdict
	calls atomic.Int32
}

func (a *stubAgent) Role() models.Role { return a.role }

func (a *stubAgent) Run(ctx context.Context, _ models.CaseRequest) models.Verdict {
	a.calls.Add(1)
	return a.run(ctx)
}

func returning(v models.Verdict) func(context.Context) models.Verdict {
	return func(context.Context) models.Verdict { return v }
}

type CoordinatorSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	profiles  *mocks.MockProfileStore
	screener  *mocks.MockScreener
	publisher *mocks.MockPublisher
	metrics   *metrics.Metrics
	agents    map[models.Role]*stubAgent
	logger    *slog.Logger
	ctx       context.Context
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorSuite))
}

func (s *CoordinatorSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.profiles = mocks.NewMockProfileStore(s.ctrl)
	s.screener = mocks.NewMockScreener(s.ctrl)
	s.publisher = mocks.NewMockPublisher(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.ctx = requestcontext.WithTime(
		requestcontext.WithRequestID(context.Background(), "req-1"),
		time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	)

	s.agents = map[models.Role]*stubAgent{}
	for role, v := range cleanVerdicts() {
		s.agents[role] = &stubAgent{role: role, run: returning(v)}
	}
}

func (s *CoordinatorSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *CoordinatorSuite) agentList() []ports.Agent {
	out := make([]ports.Agent, 0, len(models.WorkerRoles))
	for _, role := range models.WorkerRoles {
		out = append(out, s.agents[role])
	}
	return out
}

func (s *CoordinatorSuite) newCoordinator(opts ...Option) *Coordinator {
	base := []Option{
		WithLogger(s.logger),
		WithMetrics(s.metrics),
		WithRunTimeout(time.Second),
		WithCollectGrace(100 * time.Millisecond),
	}
	return New(s.agentList(), append(base, opts...)...)
}

func request() models.CaseRequest {
	return models.CaseRequest{
		CustomerID:     "CUST-001",
		Name:           "Budi Santoso",
		IdentityNumber: "3171234567890001",
		Files:          []string{"gs://kyc-docs/ktp.jpg"},
	}
}

func (s *CoordinatorSuite) totalRuns() int32 {
	var n int32
	for _, a := range s.agents {
		n += a.calls.Load()
	}
	return n
}

func (s *CoordinatorSuite) TestExistingProfileShortCircuits() {
	s.profiles.EXPECT().
		FindByIdentityNumber(gomock.Any(), "3171234567890001").
		Return(&tools.ProfileRecord{ID: "p-1", Name: "Budi Santoso", RiskScore: 12}, nil)
	s.publisher.EXPECT().PublishDecision(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, evt events.DecisionCompleted) error {
			s.True(evt.FoundInDB)
			s.Empty(evt.CaseID)
			s.Equal("CUST-001", evt.CustomerID)
			return nil
		})

	c := s.newCoordinator(
		WithProfiles(s.profiles),
		WithPreScreen(s.screener, ""),
		WithPublisher(s.publisher),
		WithProfileWriteBack(true),
	)
	d, err := c.Analyze(s.ctx, request())

	s.Require().NoError(err)
	s.True(d.FoundInDB)
	s.Empty(d.CaseID)
	s.Equal(12, d.RiskScore)
	s.Equal(models.DispositionApproved, d.Disposition)
	s.False(d.RequiresManualReview)
	s.Equal(ReasonExistingProfile, d.Reasoning)
	s.Empty(d.Verdicts)
	s.Equal("p-1", d.Profile.ID)
	s.Zero(s.totalRuns())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Decisions.WithLabelValues("APPROVED", "true")))
}

func (s *CoordinatorSuite) TestCleanRunApprovesAndWritesBack() {
	s.profiles.EXPECT().
		FindByIdentityNumber(gomock.Any(), gomock.Any()).
		Return(nil, sentinel.ErrNotFound)
	s.profiles.EXPECT().Save(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, w tools.ProfileWrite) error {
			s.Equal("3171234567890001", w.IdentityNumber)
			s.Equal("Budi Santoso", w.Name)
			s.Equal(0, w.RiskScore)
			s.Regexp(`^KYC-20260314-[0-9A-F]{8}$`, w.CaseID)
			return nil
		})

	c := s.newCoordinator(WithProfiles(s.profiles), WithProfileWriteBack(true))
	d, err := c.Analyze(s.ctx, request())

	s.Require().NoError(err)
	s.Regexp(`^KYC-20260314-[0-9A-F]{8}$`, d.CaseID)
	s.Equal(0, d.RiskScore)
	s.Equal(models.DispositionApproved, d.Disposition)
	s.False(d.RequiresManualReview)
	s.False(d.FoundInDB)
	s.Equal(ReasonCleanProfile, d.Reasoning)
	s.Len(d.Verdicts, len(models.WorkerRoles))
	s.Equal(int32(len(models.WorkerRoles)), s.totalRuns())
}

func (s *CoordinatorSuite) TestNoWriteBackUnderReview() {
	s.agents[models.RoleDocumentChecker].run = returning(models.Verdict{Status: models.StatusNeedsReview})
	s.profiles.EXPECT().
		FindByIdentityNumber(gomock.Any(), gomock.Any()).
		Return(nil, sentinel.ErrNotFound)

	c := s.newCoordinator(WithProfiles(s.profiles), WithProfileWriteBack(true))
	d, err := c.Analyze(s.ctx, request())

	s.Require().NoError(err)
	s.Equal(models.DispositionUnderReview, d.Disposition)
	s.Equal(WeightDocumentReview, d.RiskScore)
}

func (s *CoordinatorSuite) TestProfileLookupFailureRunsFullAnalysis() {
	s.profiles.EXPECT().
		FindByIdentityNumber(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("connection refused"))

	c := s.newCoordinator(WithProfiles(s.profiles))
	d, err := c.Analyze(s.ctx, request())

	s.Require().NoError(err)
	s.False(d.FoundInDB)
	s.NotEmpty(d.CaseID)
	s.Equal(int32(len(models.WorkerRoles)), s.totalRuns())
}

func (s *CoordinatorSuite) TestNoIdentityNumberSkipsLookup() {
	req := request()
	req.IdentityNumber = ""

	c := s.newCoordinator(WithProfiles(s.profiles))
	d, err := c.Analyze(s.ctx, req)

	s.Require().NoError(err)
	s.False(d.FoundInDB)
}

func (s *CoordinatorSuite) TestCaseIDFailureIsUnavailable() {
	ids := &CaseIDs{prefix: "KYC", random: func() (uuid.UUID, error) {
		return uuid.Nil, errors.New("entropy exhausted")
	}}

	c := s.newCoordinator(WithCaseIDs(ids))
	d, err := c.Analyze(s.ctx, request())

	s.Nil(d)
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeUnavailable))
	de, _ := dErrors.As(err)
	s.Contains(de.Message, "KYC analysis failed")
	s.Zero(s.totalRuns())
}

func (s *CoordinatorSuite) TestFailingWorkersAreIsolated() {
	s.agents[models.RoleResumeCrosschecker].run = func(context.Context) models.Verdict {
		panic("nil map write")
	}
	s.agents[models.RoleWealthCalculator].run = returning(
		models.ErrorVerdict(models.RoleWealthCalculator, "model client missing"),
	)

	c := s.newCoordinator()
	d, err := c.Analyze(s.ctx, request())

	s.Require().NoError(err)
	s.Len(d.Verdicts, len(models.WorkerRoles))
	s.Equal(models.StatusError, d.Verdicts[models.RoleResumeCrosschecker].Status)
	s.Contains(d.Verdicts[models.RoleResumeCrosschecker].Error, "nil map write")
	s.Equal(models.StatusError, d.Verdicts[models.RoleWealthCalculator].Status)
	s.Equal(models.StatusVerified, d.Verdicts[models.RoleDocumentChecker].Status)
	s.Equal(models.DispositionApproved, d.Disposition)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.DegradedVerdicts.WithLabelValues("Resume_Crosschecker", "ERROR")))
}

func (s *CoordinatorSuite) TestVerdictRoleIsForced() {
	s.agents[models.RoleExternalSearch].run = returning(models.Verdict{
		Role:    models.RoleSanctionsScreener,
		Status:  models.StatusCompleted,
		Payload: &models.MediaPayload{PEPStatus: models.PEPStatusNone},
	})

	d, err := s.newCoordinator().Analyze(s.ctx, request())

	s.Require().NoError(err)
	s.Equal(models.RoleExternalSearch, d.Verdicts[models.RoleExternalSearch].Role)
	_, ok := d.Verdicts[models.RoleSanctionsScreener].Sanctions()
	s.True(ok)
}

func (s *CoordinatorSuite) TestStragglerGetsTimeoutVerdict() {
	release := make(chan struct{})
	s.T().Cleanup(func() { close(release) })
	s.agents[models.RoleDocumentChecker].run = func(context.Context) models.Verdict {
		<-release
		return models.Verdict{Status: models.StatusVerified}
	}

	c := s.newCoordinator(WithRunTimeout(30*time.Millisecond), WithCollectGrace(10*time.Millisecond))
	d, err := c.Analyze(s.ctx, request())

	s.Require().NoError(err)
	v := d.Verdicts[models.RoleDocumentChecker]
	s.Equal(models.StatusNeedsReview, v.Status)
	s.True(v.Degraded)
	s.Equal(models.RoleDocumentChecker, v.Role)
	s.Equal(WeightDocumentReview, d.RiskScore)
	s.Equal(models.DispositionUnderReview, d.Disposition)
	s.Equal(models.StatusCompleted, d.Verdicts[models.RoleWealthCalculator].Status)
}

func (s *CoordinatorSuite) TestVerdictWithinGraceIsCollected() {
	s.agents[models.RoleWealthCalculator].run = func(ctx context.Context) models.Verdict {
		<-ctx.Done()
		return models.Verdict{
			Status:  models.StatusCompleted,
			Payload: &models.WealthPayload{WealthVerification: models.WealthVerified},
		}
	}

	c := s.newCoordinator(WithRunTimeout(20*time.Millisecond), WithCollectGrace(time.Second))
	d, err := c.Analyze(s.ctx, request())

	s.Require().NoError(err)
	v := d.Verdicts[models.RoleWealthCalculator]
	s.False(v.Degraded)
	s.Equal(models.WealthVerified, d.Assessment.Breakdown.WealthStatus)
}

func (s *CoordinatorSuite) TestPreScreenCoversDegradedScreener() {
	s.agents[models.RoleSanctionsScreener].run = returning(models.Verdict{
		Status:   models.StatusNeedsReview,
		Degraded: true,
		Payload:  &models.SanctionsPayload{Screened: false},
	})
	s.screener.EXPECT().
		Screen(gomock.Any(), tools.ScreeningRequest{
			Name:           "Budi Santoso",
			IdentityNumber: "3171234567890001",
			Jurisdiction:   "SG",
		}).
		Return(tools.ScreeningResult{Screened: true, SanctionsMatch: true}, nil)

	c := s.newCoordinator(WithPreScreen(s.screener, "SG"))
	d, err := c.Analyze(s.ctx, request())

	s.Require().NoError(err)
	s.Equal(WeightSanctionsHit, d.Assessment.Score)
	s.Equal(MaxDisplayScore, d.RiskScore)
	s.NotNil(d.PreScreen)
}

func (s *CoordinatorSuite) TestPreScreenFailureIsAbsorbed() {
	s.screener.EXPECT().Screen(gomock.Any(), gomock.Any()).
		Return(tools.ScreeningResult{}, sentinel.ErrUnavailable)

	c := s.newCoordinator(WithPreScreen(s.screener, ""))
	d, err := c.Analyze(s.ctx, request())

	s.Require().NoError(err)
	s.Nil(d.PreScreen)
	s.Equal(models.DispositionApproved, d.Disposition)
}

func (s *CoordinatorSuite) TestPublishesDecision() {
	s.agents[models.RoleWealthCalculator].run = returning(
		models.ErrorVerdict(models.RoleWealthCalculator, "boom"),
	)
	s.publisher.EXPECT().PublishDecision(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, evt events.DecisionCompleted) error {
			s.NotEmpty(evt.EventID)
			s.Regexp(`^KYC-20260314-`, evt.CaseID)
			s.Equal("APPROVED", evt.Disposition)
			s.Equal([]string{"Wealth_Calculator"}, evt.DegradedWorkers)
			s.Equal(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC), evt.OccurredAt)
			return errors.New("broker down")
		})

	c := s.newCoordinator(WithPublisher(s.publisher))
	d, err := c.Analyze(s.ctx, request())

	s.Require().NoError(err)
	s.NotNil(d)
}

func (s *CoordinatorSuite) TestAdverseMediaEndToEnd() {
	s.agents[models.RoleExternalSearch].run = returning(models.Verdict{
		Status:   models.StatusCompleted,
		Findings: []models.Finding{{Severity: models.SeverityHigh, Summary: "Fraud report", Source: "https://news.example.com/fraud"}},
		Sources:  []string{"https://news.example.com/fraud"},
		Payload:  &models.MediaPayload{AdverseMediaFound: true, PEPStatus: models.PEPStatusNone},
	})

	d, err := s.newCoordinator().Analyze(s.ctx, request())

	s.Require().NoError(err)
	s.Equal(100, d.RiskScore)
	s.Equal(models.DispositionUnderReview, d.Disposition)
	s.True(d.RequiresManualReview)
	s.Contains(d.Reasoning, "Adverse media found in public records")
	s.Contains(d.Assessment.Citations, "https://news.example.com/fraud")
}

func (s *CoordinatorSuite) TestSanctionsHitEndToEnd() {
	s.agents[models.RoleSanctionsScreener].run = returning(models.Verdict{
		Status:  models.StatusNeedsReview,
		Payload: &models.SanctionsPayload{Screened: true, SanctionsHit: true},
	})

	d, err := s.newCoordinator().Analyze(s.ctx, request())

	s.Require().NoError(err)
	s.Equal(200, d.Assessment.Score)
	s.Equal(100, d.RiskScore)
	s.Equal(models.DispositionUnderReview, d.Disposition)
	s.NotEqual(models.Disposition("REJECTED"), d.Disposition)
}

func TestIdentityRef(t *testing.T) {
	ref := identityRef("3171234567890001")

	if len(ref) != 12 {
		t.Fatalf("identityRef length = %d, want 12", len(ref))
	}
	if ref == identityRef("3171234567890002") {
		t.Fatal("distinct identity numbers share a ref")
	}
	if identityRef("") != "" {
		t.Fatal("empty identity number should have an empty ref")
	}
}
