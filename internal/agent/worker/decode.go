package worker

import (
	"fmt"
	"strings"

	"kycgate/internal/screening/models"
	pkgstrings "kycgate/pkg/platform/strings"
)

// Decode lifts a worker's loose output into a typed verdict. Missing or
// mistyped fields are left at their zero value; a missing or unknown status
// becomes COMPLETED.
func Decode(role models.Role, out map[string]any, degraded bool) models.Verdict {
	v := models.Verdict{
		Role:        role,
		Status:      models.StatusCompleted,
		Confidence:  number(out["confidence"]),
		Details:     str(out["details"]),
		Error:       str(out["error"]),
		ParseError:  str(out["parse_error"]),
		RawAnalysis: str(out["raw_analysis"]),
		Degraded:    degraded,
		Raw:         out,
	}
	if s, ok := models.ParseStatus(strings.ToUpper(str(out["status"]))); ok {
		v.Status = s
	}

	v.Findings = findings(role, out["findings"])
	urls := make([]string, 0, len(v.Findings))
	for _, f := range v.Findings {
		urls = append(urls, f.Source)
	}
	urls = append(urls, sourceURLs(out["sources"])...)
	v.Sources = pkgstrings.DedupeAndTrim(urls)

	switch role {
	case models.RoleDocumentChecker:
		v.Payload = documentPayload(out)
	case models.RoleResumeCrosschecker:
		v.Payload = employmentPayload(out)
	case models.RoleExternalSearch:
		v.Payload = mediaPayload(out)
	case models.RoleWealthCalculator:
		v.Payload = wealthPayload(out)
	case models.RoleSanctionsScreener:
		v.Payload = sanctionsPayload(out)
	}
	return v
}

func documentPayload(out map[string]any) *models.DocumentPayload {
	p := &models.DocumentPayload{
		DocumentsAnalyzed: strs(out["documents_analyzed"]),
		Flags:             strs(out["flags"]),
	}
	if cc, ok := out["consistency_check"].(map[string]any); ok {
		p.NameMatch = optBool(cc["name_match"])
		p.IdentityMatch = optBool(cc["nik_match"])
		p.AddressMatch = optBool(cc["address_match"])
	}
	return p
}

func employmentPayload(out map[string]any) *models.EmploymentPayload {
	p := &models.EmploymentPayload{
		Verified:         optBool(out["verified"]),
		EmploymentStatus: strings.ToUpper(str(out["employment_status"])),
		ClaimedPosition:  str(out["claimed_position"]),
		VerifiedPosition: str(out["verified_position"]),
		TenureVerified:   optBool(out["tenure_verified"]),
		Flags:            strs(out["flags"]),
	}
	for _, item := range list(out["sources"]) {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		p.Sources = append(p.Sources, models.EmploymentSource{
			Platform: str(m["platform"]),
			URL:      str(m["url"]),
			Status:   str(m["status"]),
		})
	}
	return p
}

func mediaPayload(out map[string]any) *models.MediaPayload {
	return &models.MediaPayload{
		AdverseMediaFound: boolean(out["adverse_media_found"]),
		PEPStatus:         strings.ToUpper(str(out["pep_status"])),
		SanctionsFlag:     boolean(out["sanctions_flag"]),
		Recommendation:    str(out["recommendation"]),
		SourcesSearched:   strs(out["sources_searched"]),
	}
}

func wealthPayload(out map[string]any) *models.WealthPayload {
	p := &models.WealthPayload{
		AnalysisComplete:       boolean(out["analysis_complete"]),
		EstimatedMonthlyIncome: optNumber(out["estimated_monthly_income"]),
		IncomeCurrency:         str(out["income_currency"]),
		IncomeStability:        str(out["income_stability"]),
		EstimatedNetWorth:      optNumber(out["estimated_net_worth"]),
		SourceOfWealth:         str(out["source_of_wealth"]),
		WealthVerification:     strings.ToUpper(str(out["wealth_verification"])),
	}
	for _, item := range list(out["flags"]) {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		p.Flags = append(p.Flags, models.WealthFlag{
			Type:        str(m["type"]),
			Description: str(m["description"]),
			Severity:    models.Severity(strings.ToUpper(str(m["severity"]))),
		})
	}
	return p
}

func sanctionsPayload(out map[string]any) *models.SanctionsPayload {
	p := &models.SanctionsPayload{
		Screened:     boolean(out["screened"]),
		SanctionsHit: boolean(out["sanctions_hit"]),
		PEPHit:       boolean(out["pep_hit"]),
		ListsChecked: strs(out["lists_checked"]),
		RiskLevel:    str(out["risk_level"]),
	}
	for _, item := range list(out["watchlist_matches"]) {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		p.WatchlistMatches = append(p.WatchlistMatches, models.WatchlistMatch{
			ListName:    str(m["list_name"]),
			MatchType:   str(m["match_type"]),
			MatchedName: str(m["matched_name"]),
			MatchScore:  number(m["match_score"]),
		})
	}
	return p
}

func findings(role models.Role, v any) []models.Finding {
	var out []models.Finding
	for _, item := range list(v) {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		source := str(m["url"])
		if source == "" && looksLikeURL(str(m["source"])) {
			source = str(m["source"])
		}
		out = append(out, models.Finding{
			Agent:    role,
			Severity: models.Severity(strings.ToUpper(str(m["severity"]))),
			Summary:  str(m["summary"]),
			Type:     str(m["type"]),
			Source:   source,
		})
	}
	return out
}

// sourceURLs accepts a list of URL strings or of objects with a url field.
func sourceURLs(v any) []string {
	var out []string
	for _, item := range list(v) {
		switch t := item.(type) {
		case string:
			if looksLikeURL(t) {
				out = append(out, t)
			}
		case map[string]any:
			if u := str(t["url"]); u != "" {
				out = append(out, u)
			}
		}
	}
	return out
}

func looksLikeURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func list(v any) []any {
	l, _ := v.([]any)
	return l
}

func str(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func strs(v any) []string {
	items := list(v)
	if len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		if m, ok := item.(map[string]any); ok {
			if d := str(m["description"]); d != "" {
				out = append(out, d)
				continue
			}
		}
		if s := str(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func boolean(v any) bool {
	b, _ := v.(bool)
	return b
}

func optBool(v any) *bool {
	b, ok := v.(bool)
	if !ok {
		return nil
	}
	return &b
}

func number(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	}
	return 0
}

func optNumber(v any) *float64 {
	switch v.(type) {
	case float64, float32, int, int64:
		n := number(v)
		return &n
	}
	return nil
}
