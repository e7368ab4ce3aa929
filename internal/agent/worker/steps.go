package worker

import (
	"context"
	"fmt"

	"kycgate/internal/screening/models"
	"kycgate/internal/tools"
)

// Step is a tool bound to a worker. Its result, or the report of its
// failure, is handed to the model under tool_results keyed by capability.
type Step interface {
	Capability() tools.Capability
	Run(ctx context.Context, req models.CaseRequest) (any, error)
}

// Reporter is a step whose result can stand in for a model verdict. Workers
// whose only step is a Reporter skip the model call.
type Reporter interface {
	Step
	Report(result any, failure *tools.Failure) map[string]any
}

type DocumentAnalyzer interface {
	Analyze(ctx context.Context, files []string) (tools.DocumentBatch, error)
}

type EmploymentSearcher interface {
	Employment(ctx context.Context, name, company, linkedInURL string) (tools.EmploymentEvidence, error)
}

type MediaSearcher interface {
	AdverseMedia(ctx context.Context, name string) (tools.MediaSearchResult, error)
}

type Screener interface {
	Screen(ctx context.Context, req tools.ScreeningRequest) (tools.ScreeningResult, error)
}

type WealthCalculator interface {
	Calculate(ctx context.Context, batch tools.DocumentBatch) (tools.WealthMetrics, error)
}

// DocumentStep locates and classifies the case's documents.
type DocumentStep struct {
	Analyzer DocumentAnalyzer
}

func (s *DocumentStep) Capability() tools.Capability { return tools.CapabilityDocumentAnalysis }

func (s *DocumentStep) Run(ctx context.Context, req models.CaseRequest) (any, error) {
	return s.Analyzer.Analyze(ctx, req.Files)
}

// EmploymentStep searches for evidence of the claimed employment.
type EmploymentStep struct {
	Searcher EmploymentSearcher
}

func (s *EmploymentStep) Capability() tools.Capability { return tools.CapabilityEmploymentSearch }

func (s *EmploymentStep) Run(ctx context.Context, req models.CaseRequest) (any, error) {
	return s.Searcher.Employment(ctx, req.Name, req.CompanyName, req.LinkedInURL)
}

// AdverseMediaStep sweeps public media for the applicant's name.
type AdverseMediaStep struct {
	Searcher MediaSearcher
}

func (s *AdverseMediaStep) Capability() tools.Capability { return tools.CapabilityAdverseMedia }

func (s *AdverseMediaStep) Run(ctx context.Context, req models.CaseRequest) (any, error) {
	return s.Searcher.AdverseMedia(ctx, req.Name)
}

// WealthStep derives financial indicators from the case's statements.
type WealthStep struct {
	Analyzer   DocumentAnalyzer
	Calculator WealthCalculator
}

func (s *WealthStep) Capability() tools.Capability { return tools.CapabilityWealthCalculation }

func (s *WealthStep) Run(ctx context.Context, req models.CaseRequest) (any, error) {
	batch, err := s.Analyzer.Analyze(ctx, req.Files)
	if err != nil {
		return nil, err
	}
	return s.Calculator.Calculate(ctx, batch)
}

// SanctionsStep screens the applicant against sanctions and PEP lists.
type SanctionsStep struct {
	Screener     Screener
	Jurisdiction string
}

func (s *SanctionsStep) Capability() tools.Capability { return tools.CapabilitySanctionsScreen }

func (s *SanctionsStep) Run(ctx context.Context, req models.CaseRequest) (any, error) {
	return s.Screener.Screen(ctx, tools.ScreeningRequest{
		Name:           req.Name,
		IdentityNumber: req.IdentityNumber,
		Jurisdiction:   s.Jurisdiction,
	})
}

const sanctionsUnavailable = "Sanctions screening unavailable - requires manual review"

// Report renders a screening result in the sanctions verdict shape. Any
// match is routed to review; nothing is ever blocked outright.
func (s *SanctionsStep) Report(result any, failure *tools.Failure) map[string]any {
	res, ok := result.(tools.ScreeningResult)
	if failure != nil || !ok {
		reason := "unexpected screening result"
		if failure != nil {
			reason = failure.Reason
		}
		return map[string]any{
			"status":            string(models.StatusNeedsReview),
			"screened":          false,
			"sanctions_hit":     false,
			"pep_hit":           false,
			"watchlist_matches": []any{},
			"lists_checked":     []any{},
			"error":             reason,
			"details":           sanctionsUnavailable,
		}
	}

	matches := make([]any, 0, len(res.WatchlistHits))
	for _, h := range res.WatchlistHits {
		matches = append(matches, map[string]any{
			"list_name":    h.ListName,
			"match_type":   h.MatchType,
			"matched_name": h.MatchedName,
			"match_score":  h.Score,
			"details":      h.Details,
		})
	}
	lists := make([]any, 0, len(res.ListsChecked))
	for _, l := range res.ListsChecked {
		lists = append(lists, l)
	}

	status := models.StatusCompleted
	details := fmt.Sprintf("No matches against %d lists", len(res.ListsChecked))
	if len(matches) > 0 {
		status = models.StatusNeedsReview
		details = fmt.Sprintf("%d potential watchlist match(es) flagged for human review", len(matches))
	}

	return map[string]any{
		"status":            string(status),
		"screened":          res.Screened,
		"sanctions_hit":     res.SanctionsMatch,
		"pep_hit":           res.PEPMatch,
		"watchlist_matches": matches,
		"lists_checked":     lists,
		"risk_level":        riskLevel(res),
		"provider":          res.Provider,
		"details":           details,
	}
}

func riskLevel(res tools.ScreeningResult) string {
	switch {
	case res.SanctionsMatch:
		return "HIGH"
	case res.PEPMatch:
		return "MEDIUM"
	case len(res.WatchlistHits) > 0:
		return "LOW"
	default:
		return "CLEAR"
	}
}
