package screening

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"kycgate/internal/screening/models"
	"kycgate/internal/tools"
)

type AggregatorSuite struct {
	suite.Suite
}

func TestAggregatorSuite(t *testing.T) {
	suite.Run(t, new(AggregatorSuite))
}

func boolPtr(b bool) *bool { return &b }

// cleanVerdicts is a full run in which every worker found nothing.
func cleanVerdicts() map[models.Role]models.Verdict {
	return map[models.Role]models.Verdict{
		models.RoleDocumentChecker: {
			Role:    models.RoleDocumentChecker,
			Status:  models.StatusVerified,
			Payload: &models.DocumentPayload{NameMatch: boolPtr(true)},
		},
		models.RoleResumeCrosschecker: {
			Role:   models.RoleResumeCrosschecker,
			Status: models.StatusCompleted,
			Payload: &models.EmploymentPayload{
				Verified:         boolPtr(true),
				EmploymentStatus: models.EmploymentVerified,
			},
		},
		models.RoleExternalSearch: {
			Role:    models.RoleExternalSearch,
			Status:  models.StatusCompleted,
			Payload: &models.MediaPayload{PEPStatus: models.PEPStatusNone},
		},
		models.RoleWealthCalculator: {
			Role:    models.RoleWealthCalculator,
			Status:  models.StatusCompleted,
			Payload: &models.WealthPayload{WealthVerification: models.WealthReasonable},
		},
		models.RoleSanctionsScreener: {
			Role:    models.RoleSanctionsScreener,
			Status:  models.StatusCompleted,
			Payload: &models.SanctionsPayload{Screened: true, RiskLevel: "CLEAR"},
		},
	}
}

func (s *AggregatorSuite) TestCleanProfile() {
	d := Decide("KYC-20260101-ABCDEF01", cleanVerdicts(), nil)

	s.Equal(0, d.RiskScore)
	s.Equal(models.DispositionApproved, d.Disposition)
	s.False(d.RequiresManualReview)
	s.Equal(ReasonCleanProfile, d.Reasoning)
	s.Empty(d.Assessment.Rules)
	s.Empty(d.Assessment.Findings)
	s.Equal([]string{}, d.Assessment.Citations)
	s.Equal(string(models.StatusVerified), d.Assessment.Breakdown.DocumentRisk)
	s.Equal(models.PEPStatusNone, d.Assessment.Breakdown.PEPStatus)
	s.Equal(models.WealthReasonable, d.Assessment.Breakdown.WealthStatus)
	s.Require().NotNil(d.Assessment.Breakdown.EmploymentVerified)
	s.True(*d.Assessment.Breakdown.EmploymentVerified)
}

func (s *AggregatorSuite) TestRules() {
	cases := []struct {
		name   string
		mutate func(map[models.Role]models.Verdict)
		score  int
		rules  []string
		reason string
	}{
		{
			name: "rejected document",
			mutate: func(v map[models.Role]models.Verdict) {
				v[models.RoleDocumentChecker] = models.Verdict{Status: models.StatusRejected, Details: "NIK mismatch"}
			},
			score:  WeightDocumentRejected,
			rules:  []string{RuleDocumentRejected},
			reason: "Document verification failed",
		},
		{
			name: "document needs review",
			mutate: func(v map[models.Role]models.Verdict) {
				v[models.RoleDocumentChecker] = models.Verdict{Status: models.StatusNeedsReview}
			},
			score:  WeightDocumentReview,
			rules:  []string{RuleDocumentReview},
			reason: "Documents require manual verification",
		},
		{
			name: "employment discrepancy",
			mutate: func(v map[models.Role]models.Verdict) {
				v[models.RoleResumeCrosschecker] = models.Verdict{
					Status:  models.StatusCompleted,
					Payload: &models.EmploymentPayload{EmploymentStatus: models.EmploymentDiscrepancy},
				}
			},
			score:  WeightEmploymentMismatch,
			rules:  []string{RuleEmploymentMismatch},
			reason: "Employment history discrepancy",
		},
		{
			name: "potential pep",
			mutate: func(v map[models.Role]models.Verdict) {
				v[models.RoleExternalSearch] = models.Verdict{
					Status:  models.StatusCompleted,
					Payload: &models.MediaPayload{PEPStatus: models.PEPStatusPotential},
				}
			},
			score:  WeightPEPStatus,
			rules:  []string{RulePEPStatus},
			reason: "PEP status: POTENTIAL_PEP",
		},
		{
			name: "questionable wealth",
			mutate: func(v map[models.Role]models.Verdict) {
				v[models.RoleWealthCalculator] = models.Verdict{
					Status:  models.StatusCompleted,
					Payload: &models.WealthPayload{WealthVerification: models.WealthQuestionable},
				}
			},
			score:  WeightWealthQuestionable,
			rules:  []string{RuleWealthQuestionable},
			reason: "Source of wealth could not be verified",
		},
		{
			name: "high wealth flags count individually",
			mutate: func(v map[models.Role]models.Verdict) {
				v[models.RoleWealthCalculator] = models.Verdict{
					Status: models.StatusCompleted,
					Payload: &models.WealthPayload{Flags: []models.WealthFlag{
						{Type: "CASH", Description: "Large cash deposits", Severity: models.SeverityHigh},
						{Type: "DEBT", Description: "Minor overdraft", Severity: models.SeverityLow},
						{Type: "GAP", Description: "Unexplained transfers", Severity: models.SeverityHigh},
					}},
				}
			},
			score:  2 * WeightWealthHighFlag,
			rules:  []string{RuleWealthHighFlag, RuleWealthHighFlag},
			reason: "High-severity wealth flag: Large cash deposits",
		},
		{
			name: "sanctions pep hit",
			mutate: func(v map[models.Role]models.Verdict) {
				v[models.RoleSanctionsScreener] = models.Verdict{
					Status:  models.StatusNeedsReview,
					Payload: &models.SanctionsPayload{Screened: true, PEPHit: true},
				}
			},
			score:  WeightSanctionsPEPHit,
			rules:  []string{RuleSanctionsPEPHit},
			reason: "PEP database match",
		},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			verdicts := cleanVerdicts()
			tc.mutate(verdicts)

			a := Aggregate(verdicts, nil)

			s.Equal(tc.score, a.Score)
			s.Equal(tc.rules, a.Rules)
			s.Contains(a.Reasons, tc.reason)
		})
	}
}

func (s *AggregatorSuite) TestFindings() {
	s.Run("rejected document falls back to a default summary", func() {
		verdicts := cleanVerdicts()
		verdicts[models.RoleDocumentChecker] = models.Verdict{Status: models.StatusRejected}

		a := Aggregate(verdicts, nil)

		s.Require().Len(a.Findings, 1)
		s.Equal(models.RoleDocumentChecker, a.Findings[0].Agent)
		s.Equal(models.SeverityHigh, a.Findings[0].Severity)
		s.Equal(defaultDocumentFinding, a.Findings[0].Summary)
	})

	s.Run("media findings default to high severity", func() {
		verdicts := cleanVerdicts()
		verdicts[models.RoleExternalSearch] = models.Verdict{
			Status: models.StatusCompleted,
			Findings: []models.Finding{
				{Summary: "Named in fraud investigation"},
				{Severity: models.SeverityMedium},
			},
			Payload: &models.MediaPayload{AdverseMediaFound: true},
		}

		a := Aggregate(verdicts, nil)

		s.Require().Len(a.Findings, 2)
		s.Equal(models.SeverityHigh, a.Findings[0].Severity)
		s.Equal(models.RoleExternalSearch, a.Findings[0].Agent)
		s.Equal(models.SeverityMedium, a.Findings[1].Severity)
		s.Equal(defaultMediaFinding, a.Findings[1].Summary)
	})

	s.Run("sanctions finding lists matches", func() {
		verdicts := cleanVerdicts()
		verdicts[models.RoleSanctionsScreener] = models.Verdict{
			Status: models.StatusNeedsReview,
			Payload: &models.SanctionsPayload{
				Screened:     true,
				SanctionsHit: true,
				WatchlistMatches: []models.WatchlistMatch{
					{ListName: "OFAC SDN", MatchedName: "John Doe"},
				},
			},
		}

		a := Aggregate(verdicts, nil)

		s.Require().Len(a.Findings, 1)
		s.Equal(models.SeverityCritical, a.Findings[0].Severity)
		s.Equal("Sanctions list match detected: John Doe (OFAC SDN)", a.Findings[0].Summary)
		s.True(a.Breakdown.SanctionsFlag)
	})
}

func (s *AggregatorSuite) TestAdverseMediaEscalates() {
	verdicts := cleanVerdicts()
	verdicts[models.RoleExternalSearch] = models.Verdict{
		Status:   models.StatusCompleted,
		Findings: []models.Finding{{Severity: models.SeverityHigh, Summary: "Fraud allegation"}},
		Sources:  []string{"https://news.example.com/a"},
		Payload:  &models.MediaPayload{AdverseMediaFound: true, PEPStatus: models.PEPStatusNone},
	}

	d := Decide("KYC-20260101-ABCDEF01", verdicts, nil)

	s.Equal(MaxDisplayScore, d.RiskScore)
	s.Equal(models.DispositionUnderReview, d.Disposition)
	s.True(d.RequiresManualReview)
	s.Contains(d.Reasoning, "Adverse media found in public records")
	s.Contains(d.Reasoning, ReasonHighPriority)
	s.Equal([]string{"https://news.example.com/a"}, d.Assessment.Citations)
	s.Equal([]string{RuleAdverseMedia, RuleHighPriority}, d.Assessment.Rules)
	s.True(d.Assessment.Breakdown.AdverseMedia)
}

func (s *AggregatorSuite) TestSanctionsHitCapsDisplayedScore() {
	verdicts := cleanVerdicts()
	verdicts[models.RoleSanctionsScreener] = models.Verdict{
		Status:  models.StatusNeedsReview,
		Payload: &models.SanctionsPayload{Screened: true, SanctionsHit: true},
	}

	d := Decide("KYC-20260101-ABCDEF01", verdicts, nil)

	s.Equal(WeightSanctionsHit, d.Assessment.Score)
	s.Equal(MaxDisplayScore, d.RiskScore)
	s.Equal(models.DispositionUnderReview, d.Disposition)
	s.Equal("Sanctions list match detected; "+ReasonHighPriority, d.Reasoning)
}

func (s *AggregatorSuite) TestSanctionsAndMediaFlagBothCount() {
	verdicts := cleanVerdicts()
	verdicts[models.RoleExternalSearch] = models.Verdict{
		Status:  models.StatusCompleted,
		Payload: &models.MediaPayload{SanctionsFlag: true},
	}
	verdicts[models.RoleSanctionsScreener] = models.Verdict{
		Status:  models.StatusNeedsReview,
		Payload: &models.SanctionsPayload{Screened: true, SanctionsHit: true},
	}

	a := Aggregate(verdicts, nil)

	s.Equal(WeightMediaSanctionsFlag+WeightSanctionsHit, a.Score)
}

func (s *AggregatorSuite) TestPreScreenFallback() {
	preScreen := &tools.ScreeningResult{
		Screened:       true,
		SanctionsMatch: true,
		WatchlistHits:  []tools.WatchlistHit{{ListName: "UN", MatchedName: "J. Doe"}},
	}

	s.Run("used when the screener did not screen", func() {
		verdicts := cleanVerdicts()
		verdicts[models.RoleSanctionsScreener] = models.Verdict{
			Status:   models.StatusNeedsReview,
			Degraded: true,
			Payload:  &models.SanctionsPayload{Screened: false},
		}

		a := Aggregate(verdicts, preScreen)

		s.Equal([]string{RuleSanctionsHit}, a.Rules)
		s.Equal("Sanctions list match detected: J. Doe (UN)", a.Findings[0].Summary)
	})

	s.Run("used when the screener verdict is missing", func() {
		verdicts := cleanVerdicts()
		delete(verdicts, models.RoleSanctionsScreener)

		a := Aggregate(verdicts, preScreen)

		s.Equal(WeightSanctionsHit, a.Score)
	})

	s.Run("ignored when the screener screened", func() {
		a := Aggregate(cleanVerdicts(), preScreen)

		s.Zero(a.Score)
	})
}

func (s *AggregatorSuite) TestErrorAndMissingVerdictsAddNothing() {
	verdicts := map[models.Role]models.Verdict{}
	for _, role := range models.WorkerRoles {
		verdicts[role] = models.ErrorVerdict(role, "boom")
	}

	a := Aggregate(verdicts, nil)
	s.Zero(a.Score)
	s.Equal(models.Unknown, a.Breakdown.DocumentRisk)

	a = Aggregate(nil, nil)
	s.Zero(a.Score)
	s.Equal(models.Unknown, a.Breakdown.PEPStatus)
	s.Equal(models.Unknown, a.Breakdown.WealthStatus)
	s.Nil(a.Breakdown.EmploymentVerified)
}

func (s *AggregatorSuite) TestCitationsDeduplicatedInRoleOrder() {
	verdicts := cleanVerdicts()
	doc := verdicts[models.RoleDocumentChecker]
	doc.Sources = []string{"https://b.example.com"}
	verdicts[models.RoleDocumentChecker] = doc
	media := verdicts[models.RoleExternalSearch]
	media.Sources = []string{"https://a.example.com", "https://b.example.com", " "}
	verdicts[models.RoleExternalSearch] = media

	a := Aggregate(verdicts, nil)

	s.Equal([]string{"https://b.example.com", "https://a.example.com"}, a.Citations)
}

func TestAggregateIsIdempotent(t *testing.T) {
	verdicts := cleanVerdicts()
	verdicts[models.RoleDocumentChecker] = models.Verdict{Status: models.StatusNeedsReview}
	verdicts[models.RoleExternalSearch] = models.Verdict{
		Status:   models.StatusCompleted,
		Findings: []models.Finding{{Summary: "x"}},
		Payload:  &models.MediaPayload{AdverseMediaFound: true, PEPStatus: models.PEPStatusConfirmed},
	}

	first := Aggregate(verdicts, nil)
	for range 20 {
		require.Equal(t, first, Aggregate(verdicts, nil))
	}
}

func TestAggregateIsMonotonic(t *testing.T) {
	base := Aggregate(cleanVerdicts(), nil).Score
	steps := []func(map[models.Role]models.Verdict){
		func(v map[models.Role]models.Verdict) {
			v[models.RoleDocumentChecker] = models.Verdict{Status: models.StatusNeedsReview}
		},
		func(v map[models.Role]models.Verdict) {
			v[models.RoleWealthCalculator] = models.Verdict{
				Payload: &models.WealthPayload{WealthVerification: models.WealthQuestionable},
			}
		},
		func(v map[models.Role]models.Verdict) {
			v[models.RoleSanctionsScreener] = models.Verdict{
				Payload: &models.SanctionsPayload{Screened: true, SanctionsHit: true},
			}
		},
	}

	verdicts := cleanVerdicts()
	prev := base
	for _, step := range steps {
		step(verdicts)
		next := Aggregate(verdicts, nil).Score
		assert.Greater(t, next, prev)
		prev = next
	}
}

func TestDisposition(t *testing.T) {
	cases := []struct {
		score       int
		disposition models.Disposition
		review      bool
	}{
		{0, models.DispositionApproved, false},
		{19, models.DispositionApproved, false},
		{20, models.DispositionUnderReview, true},
		{100, models.DispositionUnderReview, true},
		{450, models.DispositionUnderReview, true},
	}
	for _, tc := range cases {
		disposition, review := Disposition(tc.score)
		assert.Equal(t, tc.disposition, disposition, "score %d", tc.score)
		assert.Equal(t, tc.review, review, "score %d", tc.score)
	}
}

func TestDisplayScore(t *testing.T) {
	assert.Equal(t, 0, DisplayScore(-5))
	assert.Equal(t, 45, DisplayScore(45))
	assert.Equal(t, 100, DisplayScore(100))
	assert.Equal(t, 100, DisplayScore(425))
}
