package handler

import (
	"strings"

	dErrors "firmus/pkg/domain-errors"
)

// EnrichRequest is the HTTP request body for
// POST /registry/companies/{companyID}/enrich.
type EnrichRequest struct {
	Name           string `json:"name"`
	RegistrationID string `json:"registration_id"`
	HQCountry      string `json:"hq_country"`
	Domain         string `json:"domain"`
}

// Validate normalizes and validates the request body.
func (r *EnrichRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Name = strings.TrimSpace(r.Name)
	r.RegistrationID = strings.TrimSpace(r.RegistrationID)
	r.HQCountry = strings.TrimSpace(r.HQCountry)
	r.Domain = strings.TrimSpace(strings.ToLower(r.Domain))

	if r.Name == "" && r.RegistrationID == "" {
		return dErrors.New(dErrors.CodeValidation, "either name or registration_id is required")
	}
	if len(r.Name) > 500 {
		return dErrors.New(dErrors.CodeValidation, "name must be at most 500 characters")
	}
	if len(r.RegistrationID) > 64 {
		return dErrors.New(dErrors.CodeValidation, "registration_id must be at most 64 characters")
	}
	if len(r.HQCountry) > 100 {
		return dErrors.New(dErrors.CodeValidation, "hq_country must be at most 100 characters")
	}
	if len(r.Domain) > 255 {
		return dErrors.New(dErrors.CodeValidation, "domain must be at most 255 characters")
	}

	return nil
}
