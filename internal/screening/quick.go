package screening

import "kycgate/internal/screening/models"

// Quick pre-screen weights.
const (
	WeightInvalidIdentity  = 20
	WeightNoDocuments      = 30
	QuickFullAnalysisBelow = 50
)

const identityNumberLength = 16

// QuickAssess scores input completeness only. No worker or tool runs.
func QuickAssess(req models.CaseRequest) models.QuickAssessment {
	score := 0
	reasons := []string{}
	if !validIdentityNumber(req.IdentityNumber) {
		score += WeightInvalidIdentity
		reasons = append(reasons, "Invalid or missing NIK")
	}
	if len(req.Files) == 0 {
		score += WeightNoDocuments
		reasons = append(reasons, "No documents provided")
	}

	rec := models.RecommendFullAnalysis
	if score >= QuickFullAnalysisBelow {
		rec = models.RecommendAdditionalDocs
	}
	return models.QuickAssessment{
		CustomerID:     req.CustomerID,
		Name:           req.Name,
		RiskScore:      DisplayScore(score),
		Reasons:        reasons,
		Recommendation: rec,
	}
}

func validIdentityNumber(nik string) bool {
	return len(nik) == identityNumberLength
}
