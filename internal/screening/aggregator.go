package screening

import (
	"fmt"
	"strings"

	"kycgate/internal/screening/models"
	"kycgate/internal/tools"
	pkgstrings "kycgate/pkg/platform/strings"
)

// Rule ids, in table order.
const (
	RuleDocumentRejected   = "document_rejected"
	RuleDocumentReview     = "document_needs_review"
	RuleEmploymentMismatch = "employment_discrepancy"
	RuleAdverseMedia       = "adverse_media"
	RulePEPStatus          = "pep_status"
	RuleMediaSanctionsFlag = "media_sanctions_flag"
	RuleWealthQuestionable = "wealth_questionable"
	RuleWealthHighFlag     = "wealth_high_flag"
	RuleSanctionsHit       = "sanctions_hit"
	RuleSanctionsPEPHit    = "sanctions_pep_hit"
	RuleHighPriority       = "high_priority"
)

// Rule weights.
const (
	WeightDocumentRejected   = 50
	WeightDocumentReview     = 20
	WeightEmploymentMismatch = 30
	WeightAdverseMedia       = 100
	WeightPEPStatus          = 50
	WeightMediaSanctionsFlag = 200
	WeightWealthQuestionable = 40
	WeightWealthHighFlag     = 25
	WeightSanctionsHit       = 200
	WeightSanctionsPEPHit    = 50
)

// HITL thresholds on the uncapped score.
const (
	ApproveBelow      = 20
	HighPriorityScore = 100
	MaxDisplayScore   = 100
)

const (
	ReasonHighPriority    = "HIGH PRIORITY: Requires immediate compliance review"
	ReasonCleanProfile    = "Clean profile based on all automated checks."
	ReasonExistingProfile = "Existing verified profile found in database"
	reasonSeparator       = "; "
)

const (
	defaultDocumentFinding   = "Document inconsistency detected"
	defaultEmploymentFinding = "Employment verification failed"
	defaultMediaFinding      = "Adverse media detected"
	defaultWealthFinding     = "Financial concern flagged"
	defaultSanctionsFinding  = "Sanctions list match detected"
)

type scorer struct {
	a models.Assessment
}

func (s *scorer) hit(rule string, weight int, reason string) {
	s.a.Score += weight
	s.a.Rules = append(s.a.Rules, rule)
	s.a.Reasons = append(s.a.Reasons, reason)
}

func (s *scorer) find(f models.Finding) {
	s.a.Findings = append(s.a.Findings, f)
}

// Aggregate folds worker verdicts into an assessment. It is pure: the
// result depends only on the verdict set and pre-screen, never on map
// iteration or arrival order. preScreen feeds the sanctions rules only when
// the sanctions screener did not screen.
func Aggregate(verdicts map[models.Role]models.Verdict, preScreen *tools.ScreeningResult) models.Assessment {
	s := &scorer{}

	doc, hasDoc := verdicts[models.RoleDocumentChecker]
	switch {
	case hasDoc && doc.Status == models.StatusRejected:
		s.hit(RuleDocumentRejected, WeightDocumentRejected, "Document verification failed")
		s.find(models.Finding{
			Agent:    models.RoleDocumentChecker,
			Severity: models.SeverityHigh,
			Summary:  orDefault(doc.Details, defaultDocumentFinding),
		})
	case hasDoc && doc.Status == models.StatusNeedsReview:
		s.hit(RuleDocumentReview, WeightDocumentReview, "Documents require manual verification")
	}

	emp, empOK := verdicts[models.RoleResumeCrosschecker].Employment()
	if empOK && emp.EmploymentStatus == models.EmploymentDiscrepancy {
		s.hit(RuleEmploymentMismatch, WeightEmploymentMismatch, "Employment history discrepancy")
		s.find(models.Finding{
			Agent:    models.RoleResumeCrosschecker,
			Severity: models.SeverityMedium,
			Summary:  orDefault(verdicts[models.RoleResumeCrosschecker].Details, defaultEmploymentFinding),
		})
	}

	mediaVerdict := verdicts[models.RoleExternalSearch]
	media, mediaOK := mediaVerdict.Media()
	if mediaOK && media.AdverseMediaFound {
		s.hit(RuleAdverseMedia, WeightAdverseMedia, "Adverse media found in public records")
		for _, f := range mediaVerdict.Findings {
			f.Agent = models.RoleExternalSearch
			if f.Severity == "" {
				f.Severity = models.SeverityHigh
			}
			f.Summary = orDefault(f.Summary, defaultMediaFinding)
			s.find(f)
		}
	}
	if mediaOK && (media.PEPStatus == models.PEPStatusPotential || media.PEPStatus == models.PEPStatusConfirmed) {
		s.hit(RulePEPStatus, WeightPEPStatus, "PEP status: "+media.PEPStatus)
	}
	if mediaOK && media.SanctionsFlag {
		s.hit(RuleMediaSanctionsFlag, WeightMediaSanctionsFlag, "Potential sanctions list match")
	}

	wealth, wealthOK := verdicts[models.RoleWealthCalculator].Wealth()
	if wealthOK && wealth.WealthVerification == models.WealthQuestionable {
		s.hit(RuleWealthQuestionable, WeightWealthQuestionable, "Source of wealth could not be verified")
	}
	if wealthOK {
		for _, flag := range wealth.Flags {
			if flag.Severity != models.SeverityHigh {
				continue
			}
			desc := orDefault(flag.Description, defaultWealthFinding)
			s.hit(RuleWealthHighFlag, WeightWealthHighFlag, "High-severity wealth flag: "+desc)
			s.find(models.Finding{
				Agent:    models.RoleWealthCalculator,
				Severity: models.SeverityMedium,
				Summary:  desc,
				Type:     flag.Type,
			})
		}
	}

	sanctionsHit, pepHit, sanctionsSummary := sanctionsSignals(verdicts, preScreen)
	if sanctionsHit {
		s.hit(RuleSanctionsHit, WeightSanctionsHit, "Sanctions list match detected")
		s.find(models.Finding{
			Agent:    models.RoleSanctionsScreener,
			Severity: models.SeverityCritical,
			Summary:  sanctionsSummary,
			Type:     "SANCTIONS",
		})
	}
	if pepHit {
		s.hit(RuleSanctionsPEPHit, WeightSanctionsPEPHit, "PEP database match")
	}

	s.a.Citations = citations(verdicts)
	s.a.Breakdown = breakdown(verdicts, sanctionsHit)
	return s.a
}

// sanctionsSignals reads the sanctions screener's verdict, falling back to
// the pre-screen when the screener produced no screening.
func sanctionsSignals(verdicts map[models.Role]models.Verdict, preScreen *tools.ScreeningResult) (hit, pep bool, summary string) {
	if p, ok := verdicts[models.RoleSanctionsScreener].Sanctions(); ok && p.Screened {
		names := make([]string, 0, len(p.WatchlistMatches))
		for _, m := range p.WatchlistMatches {
			names = append(names, fmt.Sprintf("%s (%s)", m.MatchedName, m.ListName))
		}
		return p.SanctionsHit, p.PEPHit, sanctionsSummary(names)
	}
	if preScreen != nil && preScreen.Screened {
		names := make([]string, 0, len(preScreen.WatchlistHits))
		for _, h := range preScreen.WatchlistHits {
			names = append(names, fmt.Sprintf("%s (%s)", h.MatchedName, h.ListName))
		}
		return preScreen.SanctionsMatch, preScreen.PEPMatch, sanctionsSummary(names)
	}
	return false, false, ""
}

func sanctionsSummary(matches []string) string {
	if len(matches) == 0 {
		return defaultSanctionsFinding
	}
	return defaultSanctionsFinding + ": " + strings.Join(matches, ", ")
}

// citations collects every source URL reported by any worker, in role order.
func citations(verdicts map[models.Role]models.Verdict) []string {
	var urls []string
	for _, role := range models.WorkerRoles {
		urls = append(urls, verdicts[role].Sources...)
	}
	out := pkgstrings.DedupeAndTrim(urls)
	if out == nil {
		return []string{}
	}
	return out
}

func breakdown(verdicts map[models.Role]models.Verdict, sanctionsHit bool) models.RiskBreakdown {
	b := models.RiskBreakdown{
		DocumentRisk: models.Unknown,
		PEPStatus:    models.Unknown,
		WealthStatus: models.Unknown,
	}
	if doc, ok := verdicts[models.RoleDocumentChecker]; ok && doc.Status != "" {
		b.DocumentRisk = string(doc.Status)
	}
	if emp, ok := verdicts[models.RoleResumeCrosschecker].Employment(); ok {
		b.EmploymentVerified = emp.Verified
	}
	if media, ok := verdicts[models.RoleExternalSearch].Media(); ok {
		b.AdverseMedia = media.AdverseMediaFound
		b.PEPStatus = orDefault(media.PEPStatus, models.Unknown)
		b.SanctionsFlag = media.SanctionsFlag
	}
	b.SanctionsFlag = b.SanctionsFlag || sanctionsHit
	if wealth, ok := verdicts[models.RoleWealthCalculator].Wealth(); ok {
		b.WealthStatus = orDefault(wealth.WealthVerification, models.Unknown)
	}
	return b
}

// Disposition applies the HITL gate to an uncapped score. No score ever
// yields a rejection.
func Disposition(score int) (models.Disposition, bool) {
	if score < ApproveBelow {
		return models.DispositionApproved, false
	}
	return models.DispositionUnderReview, true
}

// DisplayScore caps a score to [0, MaxDisplayScore].
func DisplayScore(score int) int {
	return max(0, min(score, MaxDisplayScore))
}

// Decide turns verdicts into a decision for caseID.
func Decide(caseID string, verdicts map[models.Role]models.Verdict, preScreen *tools.ScreeningResult) *models.Decision {
	a := Aggregate(verdicts, preScreen)
	disposition, review := Disposition(a.Score)
	if a.Score >= HighPriorityScore {
		a.Reasons = append(a.Reasons, ReasonHighPriority)
		a.Rules = append(a.Rules, RuleHighPriority)
	}

	reasoning := ReasonCleanProfile
	if len(a.Reasons) > 0 {
		reasoning = strings.Join(a.Reasons, reasonSeparator)
	}

	return &models.Decision{
		CaseID:               caseID,
		RiskScore:            DisplayScore(a.Score),
		Disposition:          disposition,
		RequiresManualReview: review,
		Reasoning:            reasoning,
		Assessment:           a,
		Verdicts:             verdicts,
		PreScreen:            preScreen,
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
