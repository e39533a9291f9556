package handler

import (
	"firmus/internal/registry/models"
	"firmus/internal/registry/service"
)

// EnrichResponse is the HTTP response for
// POST /registry/companies/{companyID}/enrich.
type EnrichResponse struct {
	Status             string              `json:"status"`
	Reason             string              `json:"reason,omitempty"`
	RegistrationID     string              `json:"registration_id,omitempty"`
	OfficialName       string              `json:"official_name,omitempty"`
	CredibilityScore   *int                `json:"credibility_score,omitempty"`
	CredibilityFactors map[string]int      `json:"credibility_factors,omitempty"`
	Candidates         []CandidateResponse `json:"candidates,omitempty"`
	AdaptersRun        []string            `json:"adapters_run,omitempty"`
	Errors             map[string]string   `json:"errors,omitempty"`
}

// CandidateResponse is one ambiguous-match candidate. Only the fields a
// caller needs to disambiguate are exposed; the raw record stays server
// side.
type CandidateResponse struct {
	RegistrationID    string  `json:"registration_id"`
	OfficialName      string  `json:"official_name"`
	RegisteredAddress string  `json:"registered_address,omitempty"`
	City              string  `json:"city,omitempty"`
	Country           string  `json:"country,omitempty"`
	Similarity        float64 `json:"similarity"`
}

// AdaptersResponse is the HTTP response for GET /registry/adapters.
type AdaptersResponse struct {
	Adapters []service.AdapterStatus `json:"adapters"`
}

// FromResult converts a domain EnrichmentResult to an HTTP response.
func FromResult(result *models.EnrichmentResult) *EnrichResponse {
	resp := &EnrichResponse{
		Status:             string(result.Status),
		Reason:             result.Reason,
		RegistrationID:     result.RegistrationID,
		OfficialName:       result.OfficialName,
		CredibilityScore:   result.CredibilityScore,
		CredibilityFactors: result.CredibilityFactors,
		AdaptersRun:        result.AdaptersRun,
		Errors:             result.Errors,
	}
	for _, c := range result.Candidates {
		resp.Candidates = append(resp.Candidates, CandidateResponse{
			RegistrationID:    c.Record.RegistrationID,
			OfficialName:      c.Record.OfficialName,
			RegisteredAddress: c.Record.RegisteredAddress,
			City:              c.Record.City,
			Country:           string(c.Record.Country),
			Similarity:        c.Similarity,
		})
	}
	return resp
}
