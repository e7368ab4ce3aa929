package handler

import (
	"strings"

	"kycgate/internal/screening/models"
	dErrors "kycgate/pkg/domain-errors"
	pkgstrings "kycgate/pkg/platform/strings"
)

const (
	maxFieldLength = 512
	maxFiles       = 20
)

// AnalyzeRequest is the body of POST /analyze and POST /analyze/quick.
type AnalyzeRequest struct {
	CustomerID  string   `json:"customer_id"`
	Name        string   `json:"name"`
	NIK         string   `json:"nik,omitempty"`
	Files       []string `json:"files,omitempty"`
	LinkedInURL string   `json:"linkedin_url,omitempty"`
	CompanyName string   `json:"company_name,omitempty"`
}

// Validate trims the request and checks required fields. A malformed NIK is
// not rejected here; the quick assessment scores it instead.
func (r *AnalyzeRequest) Validate() error {
	r.CustomerID = strings.TrimSpace(r.CustomerID)
	r.Name = strings.TrimSpace(r.Name)
	r.NIK = strings.TrimSpace(r.NIK)
	r.LinkedInURL = strings.TrimSpace(r.LinkedInURL)
	r.CompanyName = strings.TrimSpace(r.CompanyName)
	r.Files = pkgstrings.DedupeAndTrim(r.Files)

	if r.CustomerID == "" {
		return dErrors.New(dErrors.CodeValidation, "customer_id is required")
	}
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	for _, f := range []struct{ name, value string }{
		{"customer_id", r.CustomerID},
		{"name", r.Name},
		{"nik", r.NIK},
		{"linkedin_url", r.LinkedInURL},
		{"company_name", r.CompanyName},
	} {
		if len(f.value) > maxFieldLength {
			return dErrors.New(dErrors.CodeValidation, f.name+" is too long")
		}
	}
	if len(r.Files) > maxFiles {
		return dErrors.New(dErrors.CodeValidation, "too many files")
	}
	return nil
}

// CaseRequest converts the body into the domain request.
func (r *AnalyzeRequest) CaseRequest() models.CaseRequest {
	return models.CaseRequest{
		CustomerID:     r.CustomerID,
		Name:           r.Name,
		IdentityNumber: r.NIK,
		Files:          r.Files,
		LinkedInURL:    r.LinkedInURL,
		CompanyName:    r.CompanyName,
	}
}
