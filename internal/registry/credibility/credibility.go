// Package credibility turns a unified legal profile into a deterministic
// 0-100 score with a named factor breakdown.
package credibility

import (
	"math"
	"time"

	"firmus/internal/registry/models"
)

// Factor keys. Every result carries all six, even when zero, so the score
// stays explainable without special-casing absent entries.
const (
	FactorRegistrationVerified = "registration_verified"
	FactorActiveStatus         = "active_status"
	FactorNoInsolvency         = "no_insolvency"
	FactorBusinessHistory      = "business_history"
	FactorDataCompleteness     = "data_completeness"
	FactorDirectorsKnown       = "directors_known"
)

// Compute scores a profile. Pure domain logic - no I/O, no side effects;
// now is passed in so two runs over the same profile agree.
func Compute(p *models.LegalProfile, now time.Time) models.CredibilityResult {
	if p == nil {
		p = &models.LegalProfile{}
	}

	factors := map[string]int{
		FactorRegistrationVerified: registrationVerified(p.RegistrationID, p.MatchConfidence),
		FactorActiveStatus:         activeStatus(p.RegistrationStatus),
		FactorNoInsolvency:         noInsolvency(p.InsolvencyFlag, p.ActiveInsolvencyCount),
		FactorBusinessHistory:      businessHistory(p.DateEstablished, now),
		FactorDataCompleteness:     dataCompleteness(p),
		FactorDirectorsKnown:       directorsKnown(len(p.Directors)),
	}

	score := 0
	for _, v := range factors {
		score += v
	}
	if score > 100 {
		score = 100
	}
	return models.CredibilityResult{Score: score, Factors: factors}
}

// registrationVerified weighs how the registration ID was established.
// Zero confidence means never recorded: accepted matches always carry at
// least the ambiguity floor.
func registrationVerified(registrationID string, confidence float64) int {
	if registrationID == "" {
		return 0
	}
	switch {
	case confidence == 0:
		return 10
	case confidence >= 0.95:
		return 25
	case confidence >= 0.85:
		return 20
	case confidence >= 0.60:
		return 10
	default:
		return 5
	}
}

func activeStatus(s models.RegistrationStatus) int {
	switch s {
	case models.RegistrationActive:
		return 20
	case models.RegistrationUnknown, "":
		return 5
	default:
		return 0
	}
}

func noInsolvency(flag bool, activeCount int) int {
	switch {
	case activeCount > 0:
		return 0
	case flag:
		// Historical proceedings only.
		return 10
	default:
		return 20
	}
}

// businessHistory rewards company age. Missing or unparseable dates score
// zero rather than guessing.
func businessHistory(dateEstablished string, now time.Time) int {
	t, ok := parseDate(dateEstablished)
	if !ok {
		return 0
	}
	years := now.Sub(t).Hours() / 24 / 365.25
	switch {
	case years >= 10:
		return 15
	case years >= 5:
		return 12
	case years >= 2:
		return 8
	case years >= 1:
		return 5
	default:
		return 2
	}
}

// parseDate accepts the plain ISO dates the registries emit, plus full
// RFC 3339 timestamps for profiles that round-tripped through JSON.
func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// dataCompleteness counts the six descriptive fields a well-kept register
// entry carries and scales the ratio to 0-10.
func dataCompleteness(p *models.LegalProfile) int {
	filled := 0
	for _, present := range []bool{
		p.OfficialName != "",
		p.LegalForm != "",
		p.RegisteredAddress != "",
		len(p.NACECodes) > 0,
		p.RegisteredCapital != "",
		p.DateEstablished != "",
	} {
		if present {
			filled++
		}
	}
	return int(math.Round(float64(filled) / 6 * 10))
}

func directorsKnown(count int) int {
	if count >= 1 {
		return 10
	}
	return 0
}
