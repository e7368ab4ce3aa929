package handler

import (
	"time"

	"kycgate/internal/screening/models"
	"kycgate/internal/tools"
)

// AnalyzeResponse is the body returned by POST /analyze.
type AnalyzeResponse struct {
	CaseID               *string `json:"case_id"`
	RiskScore            int     `json:"risk_score"`
	Status               string  `json:"status"`
	Reasoning            string  `json:"reasoning"`
	FoundInDB            bool    `json:"found_in_db"`
	RequiresManualReview bool    `json:"requires_manual_review"`
	Details              Details `json:"details"`
	ProcessingTimeMS     int64   `json:"processing_time_ms"`
}

// Details carries the evidence behind a decision.
type Details struct {
	SubAgentResults map[string]map[string]any `json:"sub_agent_results"`
	Findings        []Finding                 `json:"findings"`
	Citations       []string                  `json:"citations"`
	RiskBreakdown   models.RiskBreakdown      `json:"risk_breakdown"`
	PreScreen       *tools.ScreeningResult    `json:"pre_screen,omitempty"`
	ExistingProfile *tools.ProfileRecord      `json:"existing_profile,omitempty"`
}

type Finding struct {
	Agent    string `json:"agent"`
	Severity string `json:"severity"`
	Finding  string `json:"finding"`
	Type     string `json:"type,omitempty"`
	Source   string `json:"source,omitempty"`
}

// QuickResponse is the body returned by POST /analyze/quick.
type QuickResponse struct {
	QuickAssessment bool     `json:"quick_assessment"`
	CustomerID      string   `json:"customer_id"`
	RiskScore       int      `json:"risk_score"`
	RiskIndicators  []string `json:"risk_indicators"`
	Recommendation  string   `json:"recommendation"`
	Message         string   `json:"message"`
}

// HealthResponse is the body returned by GET /.
type HealthResponse struct {
	Status          string   `json:"status"`
	Service         string   `json:"service"`
	Version         string   `json:"version"`
	Timestamp       string   `json:"timestamp"`
	AgentsAvailable []string `json:"agents_available"`
}

// InfoResponse is the body returned by GET /info.
type InfoResponse struct {
	Service     string            `json:"service"`
	Version     string            `json:"version"`
	Description string            `json:"description"`
	Agents      []AgentResponse   `json:"agents"`
	Endpoints   map[string]string `json:"endpoints"`
}

type AgentResponse struct {
	Name        string   `json:"name"`
	Model       string   `json:"model"`
	Description string   `json:"description"`
	Tools       []string `json:"tools"`
}

// FromDecision builds the response for d.
func FromDecision(d *models.Decision) AnalyzeResponse {
	resp := AnalyzeResponse{
		RiskScore:            d.RiskScore,
		Status:               string(d.Disposition),
		Reasoning:            d.Reasoning,
		FoundInDB:            d.FoundInDB,
		RequiresManualReview: d.RequiresManualReview,
		ProcessingTimeMS:     d.Duration.Milliseconds(),
		Details: Details{
			SubAgentResults: subAgentResults(d.Verdicts),
			Findings:        findings(d.Assessment.Findings),
			Citations:       d.Assessment.Citations,
			RiskBreakdown:   d.Assessment.Breakdown,
			PreScreen:       d.PreScreen,
			ExistingProfile: d.Profile,
		},
	}
	if d.CaseID != "" {
		id := d.CaseID
		resp.CaseID = &id
	}
	if resp.Details.Citations == nil {
		resp.Details.Citations = []string{}
	}
	return resp
}

// workerFailedMessage replaces the internal error of a failed worker in
// responses. The detail is logged where the failure happened.
const workerFailedMessage = "worker failed during analysis"

func subAgentResults(verdicts map[models.Role]models.Verdict) map[string]map[string]any {
	out := make(map[string]map[string]any, len(verdicts))
	for role, v := range verdicts {
		if v.Status == models.StatusError {
			out[string(role)] = map[string]any{
				"status": string(models.StatusError),
				"agent":  string(role),
				"error":  workerFailedMessage,
			}
			continue
		}
		if v.Raw != nil {
			out[string(role)] = v.Raw
			continue
		}
		out[string(role)] = envelope(v)
	}
	return out
}

// envelope renders the common verdict fields for a verdict without a raw
// model output.
func envelope(v models.Verdict) map[string]any {
	m := map[string]any{
		"status":     string(v.Status),
		"confidence": v.Confidence,
	}
	if v.Details != "" {
		m["details"] = v.Details
	}
	if v.Duration > 0 {
		m["duration_ms"] = v.Duration.Milliseconds()
	}
	return m
}

func findings(in []models.Finding) []Finding {
	out := make([]Finding, 0, len(in))
	for _, f := range in {
		out = append(out, Finding{
			Agent:    string(f.Agent),
			Severity: string(f.Severity),
			Finding:  f.Summary,
			Type:     f.Type,
			Source:   f.Source,
		})
	}
	return out
}

// FromQuickAssessment builds the response for q.
func FromQuickAssessment(q models.QuickAssessment) QuickResponse {
	return QuickResponse{
		QuickAssessment: true,
		CustomerID:      q.CustomerID,
		RiskScore:       q.RiskScore,
		RiskIndicators:  q.Reasons,
		Recommendation:  q.Recommendation,
		Message:         models.QuickAssessmentReminder,
	}
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
