package tools

import "time"

// ProfileRecord is a previously verified customer profile.
type ProfileRecord struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	RiskScore      int       `json:"risk_score"`
	LastDecisionAt time.Time `json:"last_kyc_date"`
}

// ProfileWrite is an approved decision persisted for later short-circuiting.
type ProfileWrite struct {
	IdentityNumber string
	CustomerID     string
	Name           string
	RiskScore      int
	CaseID         string
	DecidedAt      time.Time
}

// SearchHit is one web search result.
type SearchHit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Source  string `json:"source,omitempty"`
}

// SearchResult groups the hits for a single query.
type SearchResult struct {
	Query   string      `json:"query"`
	Results []SearchHit `json:"results"`
}

// MediaSearchResult is the outcome of an adverse media sweep.
type MediaSearchResult struct {
	Name     string         `json:"name"`
	Searches []SearchResult `json:"searches"`
	Failed   []string       `json:"failed_queries,omitempty"`
}

// EmploymentEvidence is the outcome of an employment verification sweep.
type EmploymentEvidence struct {
	Name     string      `json:"name"`
	Company  string      `json:"company,omitempty"`
	Results  []SearchHit `json:"results"`
	Verified bool        `json:"verified"`
	Sources  []string    `json:"sources"`
}

// ScreeningRequest identifies the subject to screen.
type ScreeningRequest struct {
	Name           string
	IdentityNumber string
	Jurisdiction   string
}

// WatchlistHit is a single list match.
type WatchlistHit struct {
	ListName    string  `json:"list_name"`
	MatchType   string  `json:"match_type"`
	MatchedName string  `json:"matched_name"`
	Score       float64 `json:"match_score"`
	Details     string  `json:"details,omitempty"`
}

// ScreeningResult is the outcome of a sanctions/PEP screen.
type ScreeningResult struct {
	Screened       bool           `json:"screened"`
	Name           string         `json:"name"`
	SanctionsMatch bool           `json:"sanctions_match"`
	PEPMatch       bool           `json:"pep_match"`
	WatchlistHits  []WatchlistHit `json:"watchlist_hits"`
	ListsChecked   []string       `json:"lists_checked"`
	Provider       string         `json:"provider,omitempty"`
}

// DocumentAnalysis describes one located document.
type DocumentAnalysis struct {
	Locator      string     `json:"file"`
	DocumentType string     `json:"document_type"`
	Status       string     `json:"status"`
	ContentType  string     `json:"content_type,omitempty"`
	SizeBytes    int64      `json:"size_bytes,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// DocumentFailure records a document that could not be analyzed.
type DocumentFailure struct {
	Locator  string          `json:"file"`
	Category FailureCategory `json:"category"`
	Reason   string          `json:"error"`
}

// DocumentBatch is the per-document outcome of analyzing a case's files.
type DocumentBatch struct {
	Total     int                `json:"total_files"`
	Documents []DocumentAnalysis `json:"documents"`
	Failures  []DocumentFailure  `json:"failures,omitempty"`
}

// WealthMetrics summarizes financial indicators derived from statements.
type WealthMetrics struct {
	StatementsProcessed    int      `json:"statements_processed"`
	EstimatedMonthlyIncome *float64 `json:"estimated_monthly_income"`
	IncomeStability        string   `json:"income_stability"`
	DebtIndicators         []string `json:"debt_indicators"`
	Notes                  string   `json:"notes"`
}
