// Package models holds the screening domain types shared by workers,
// the coordinator and the HTTP layer.
package models

import (
	"time"

	"kycgate/internal/tools"
)

// Role identifies a specialist worker.
type Role string

const (
	RoleDocumentChecker    Role = "Document_Checker"
	RoleResumeCrosschecker Role = "Resume_Crosschecker"
	RoleExternalSearch     Role = "External_Search"
	RoleWealthCalculator   Role = "Wealth_Calculator"
	RoleSanctionsScreener  Role = "Sanctions_Screener"
)

// WorkerRoles lists the worker roles in rule-table order.
var WorkerRoles = []Role{
	RoleDocumentChecker,
	RoleResumeCrosschecker,
	RoleExternalSearch,
	RoleWealthCalculator,
	RoleSanctionsScreener,
}

// ParseRole validates a role name.
func ParseRole(s string) (Role, bool) {
	for _, r := range WorkerRoles {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// Status is the envelope status of a verdict.
type Status string

const (
	StatusVerified    Status = "VERIFIED"
	StatusRejected    Status = "REJECTED"
	StatusNeedsReview Status = "NEEDS_REVIEW"
	StatusCompleted   Status = "COMPLETED"
	StatusError       Status = "ERROR"
)

// ParseStatus maps a model-supplied status onto the closed set. Unknown
// values are reported as not ok.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusVerified, StatusRejected, StatusNeedsReview, StatusCompleted, StatusError:
		return Status(s), true
	}
	return "", false
}

// Employment outcomes reported by the resume crosschecker.
const (
	EmploymentVerified    = "VERIFIED"
	EmploymentUnverified  = "UNVERIFIED"
	EmploymentDiscrepancy = "DISCREPANCY_FOUND"
)

// Wealth verification outcomes reported by the wealth calculator.
const (
	WealthVerified         = "VERIFIED"
	WealthReasonable       = "REASONABLE"
	WealthQuestionable     = "QUESTIONABLE"
	WealthInsufficientData = "INSUFFICIENT_DATA"
)

// PEP statuses reported by the external search worker.
const (
	PEPStatusNone      = "NOT_PEP"
	PEPStatusPotential = "POTENTIAL_PEP"
	PEPStatusConfirmed = "CONFIRMED_PEP"
)

// Unknown is the breakdown placeholder for a dimension no worker reported.
const Unknown = "UNKNOWN"

// Severity grades a finding.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Disposition is the final outcome of a run. Nothing is ever auto-rejected.
type Disposition string

const (
	DispositionApproved    Disposition = "APPROVED"
	DispositionUnderReview Disposition = "UNDER_REVIEW"
)

// CaseRequest is the applicant data for one compliance run.
type CaseRequest struct {
	CustomerID     string
	Name           string
	IdentityNumber string
	Files          []string
	LinkedInURL    string
	CompanyName    string
}

// Input is the applicant data as handed to models, keyed by field name.
// Empty optional fields are omitted.
func (r CaseRequest) Input() map[string]any {
	in := map[string]any{
		"customer_id": r.CustomerID,
		"name":        r.Name,
	}
	if r.IdentityNumber != "" {
		in["nik"] = r.IdentityNumber
	}
	if len(r.Files) > 0 {
		in["files"] = r.Files
	}
	if r.LinkedInURL != "" {
		in["linkedin_url"] = r.LinkedInURL
	}
	if r.CompanyName != "" {
		in["company_name"] = r.CompanyName
	}
	return in
}

// Finding is a single noteworthy observation surfaced to reviewers.
type Finding struct {
	Agent    Role     `json:"agent"`
	Severity Severity `json:"severity"`
	Summary  string   `json:"summary"`
	Type     string   `json:"type,omitempty"`
	Source   string   `json:"source,omitempty"`
}

// RiskBreakdown summarizes each risk dimension for reviewers.
type RiskBreakdown struct {
	DocumentRisk       string `json:"document_risk"`
	EmploymentVerified *bool  `json:"employment_verified"`
	AdverseMedia       bool   `json:"adverse_media"`
	PEPStatus          string `json:"pep_status"`
	SanctionsFlag      bool   `json:"sanctions_flag"`
	WealthStatus       string `json:"wealth_status"`
}

// Assessment is the pure output of aggregation.
type Assessment struct {
	// Score is the uncapped sum of triggered rule weights.
	Score int
	// Rules lists triggered rule ids in table order, once per trigger.
	Rules     []string
	Reasons   []string
	Findings  []Finding
	Citations []string
	Breakdown RiskBreakdown
}

// Decision is the outcome of a compliance run.
type Decision struct {
	CaseID               string
	RiskScore            int
	Disposition          Disposition
	RequiresManualReview bool
	Reasoning            string
	FoundInDB            bool
	Assessment           Assessment
	Verdicts             map[Role]Verdict
	Profile              *tools.ProfileRecord
	PreScreen            *tools.ScreeningResult
	Duration             time.Duration
}

// QuickAssessment is the cheap pre-screen outcome for a case.
type QuickAssessment struct {
	CustomerID     string
	Name           string
	RiskScore      int
	Reasons        []string
	Recommendation string
}

// Quick assessment recommendations.
const (
	RecommendFullAnalysis   = "PROCEED_TO_FULL_ANALYSIS"
	RecommendAdditionalDocs = "REQUIRES_ADDITIONAL_DOCS"
	QuickAssessmentReminder = "This is a quick assessment. Use /analyze for full KYC verification."
)
