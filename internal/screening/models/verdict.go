package models

import "time"

// Verdict is a worker's structured output: a common envelope plus a
// role-specific payload. A verdict whose worker failed carries StatusError and
// a nil Payload; a verdict produced from fallback carries StatusNeedsReview
// and Degraded.
type Verdict struct {
	Role        Role
	Status      Status
	Confidence  float64
	Details     string
	Findings    []Finding
	Sources     []string
	Error       string
	ParseError  string
	RawAnalysis string
	Degraded    bool
	Payload     Payload
	Raw         map[string]any
	Duration    time.Duration
}

// Payload is the role-specific portion of a verdict.
type Payload interface {
	payloadRole() Role
}

// DocumentPayload is reported by the document checker.
type DocumentPayload struct {
	DocumentsAnalyzed []string
	NameMatch         *bool
	IdentityMatch     *bool
	AddressMatch      *bool
	Flags             []string
}

// EmploymentPayload is reported by the resume crosschecker.
type EmploymentPayload struct {
	Verified         *bool
	EmploymentStatus string
	ClaimedPosition  string
	VerifiedPosition string
	TenureVerified   *bool
	Sources          []EmploymentSource
	Flags            []string
}

// EmploymentSource is one place employment was checked.
type EmploymentSource struct {
	Platform string
	URL      string
	Status   string
}

// MediaPayload is reported by the external search worker.
type MediaPayload struct {
	AdverseMediaFound bool
	PEPStatus         string
	SanctionsFlag     bool
	Recommendation    string
	SourcesSearched   []string
}

// WealthPayload is reported by the wealth calculator.
type WealthPayload struct {
	AnalysisComplete       bool
	EstimatedMonthlyIncome *float64
	IncomeCurrency         string
	IncomeStability        string
	EstimatedNetWorth      *float64
	SourceOfWealth         string
	WealthVerification     string
	Flags                  []WealthFlag
}

// WealthFlag is a financial concern raised by the wealth calculator.
type WealthFlag struct {
	Type        string
	Description string
	Severity    Severity
}

// SanctionsPayload is reported by the sanctions screener.
type SanctionsPayload struct {
	Screened         bool
	SanctionsHit     bool
	PEPHit           bool
	WatchlistMatches []WatchlistMatch
	ListsChecked     []string
	RiskLevel        string
}

// WatchlistMatch is one list match reported by the sanctions screener.
type WatchlistMatch struct {
	ListName    string
	MatchType   string
	MatchedName string
	MatchScore  float64
}

func (*DocumentPayload) payloadRole() Role   { return RoleDocumentChecker }
func (*EmploymentPayload) payloadRole() Role { return RoleResumeCrosschecker }
func (*MediaPayload) payloadRole() Role      { return RoleExternalSearch }
func (*WealthPayload) payloadRole() Role     { return RoleWealthCalculator }
func (*SanctionsPayload) payloadRole() Role  { return RoleSanctionsScreener }

// PayloadRole reports which role a payload belongs to.
func PayloadRole(p Payload) Role {
	if p == nil {
		return ""
	}
	return p.payloadRole()
}

// Document returns the document payload when the verdict carries one.
func (v Verdict) Document() (*DocumentPayload, bool) {
	p, ok := v.Payload.(*DocumentPayload)
	return p, ok && p != nil
}

// Employment returns the employment payload when the verdict carries one.
func (v Verdict) Employment() (*EmploymentPayload, bool) {
	p, ok := v.Payload.(*EmploymentPayload)
	return p, ok && p != nil
}

// Media returns the media payload when the verdict carries one.
func (v Verdict) Media() (*MediaPayload, bool) {
	p, ok := v.Payload.(*MediaPayload)
	return p, ok && p != nil
}

// Wealth returns the wealth payload when the verdict carries one.
func (v Verdict) Wealth() (*WealthPayload, bool) {
	p, ok := v.Payload.(*WealthPayload)
	return p, ok && p != nil
}

// Sanctions returns the sanctions payload when the verdict carries one.
func (v Verdict) Sanctions() (*SanctionsPayload, bool) {
	p, ok := v.Payload.(*SanctionsPayload)
	return p, ok && p != nil
}

// ErrorVerdict records a worker that failed internally.
func ErrorVerdict(role Role, msg string) Verdict {
	return Verdict{
		Role:   role,
		Status: StatusError,
		Error:  msg,
		Raw: map[string]any{
			"status": string(StatusError),
			"error":  msg,
			"agent":  string(role),
		},
	}
}
