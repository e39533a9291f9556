package credibility

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firmus/internal/registry/models"
)

var scoredAt = time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC)

func TestCompute_EmptyProfile(t *testing.T) {
	got := Compute(&models.LegalProfile{}, scoredAt)

	assert.Equal(t, 25, got.Score)
	assert.Equal(t, map[string]int{
		FactorRegistrationVerified: 0,
		FactorActiveStatus:         5,
		FactorNoInsolvency:         20,
		FactorBusinessHistory:      0,
		FactorDataCompleteness:     0,
		FactorDirectorsKnown:       0,
	}, got.Factors)

	t.Run("nil profile scores like an empty one", func(t *testing.T) {
		assert.Equal(t, got, Compute(nil, scoredAt))
	})
}

func TestCompute_FullProfile(t *testing.T) {
	p := &models.LegalProfile{
		RegistrationID:     "27082440",
		OfficialName:       "Alza.cz a.s.",
		LegalForm:          "121",
		DateEstablished:    "1994-10-26",
		RegisteredAddress:  "Jankovcova 1522/53, Praha",
		NACECodes:          []models.NACECode{{Code: "47910"}},
		RegisteredCapital:  "2000000 CZK",
		Directors:          []models.Director{{Name: "Aleš Zavoral"}},
		RegistrationStatus: models.RegistrationActive,
		MatchConfidence:    1.0,
		MatchMethod:        models.MatchIDDirect,
	}

	got := Compute(p, scoredAt)

	assert.Equal(t, 100, got.Score)
	require.Len(t, got.Factors, 6)
	assert.Equal(t, 25, got.Factors[FactorRegistrationVerified])
	assert.Equal(t, 20, got.Factors[FactorActiveStatus])
	assert.Equal(t, 20, got.Factors[FactorNoInsolvency])
	assert.Equal(t, 15, got.Factors[FactorBusinessHistory])
	assert.Equal(t, 10, got.Factors[FactorDataCompleteness])
	assert.Equal(t, 10, got.Factors[FactorDirectorsKnown])
}

func TestCompute_PartialProfile(t *testing.T) {
	p := &models.LegalProfile{
		RegistrationID:     "923609016",
		OfficialName:       "Equinor ASA",
		LegalForm:          "ASA",
		DateEstablished:    "2019-03-01",
		NACECodes:          []models.NACECode{{Code: "06.100"}},
		RegistrationStatus: models.RegistrationActive,
		InsolvencyFlag:     true,
		MatchConfidence:    0.87,
		MatchMethod:        models.MatchNameAuto,
	}

	got := Compute(p, scoredAt)

	assert.Equal(t, 20, got.Factors[FactorRegistrationVerified], "confidence 0.87 sits in the 0.85 band")
	assert.Equal(t, 10, got.Factors[FactorNoInsolvency], "historical insolvency halves the factor")
	assert.Equal(t, 12, got.Factors[FactorBusinessHistory])
	assert.Equal(t, 7, got.Factors[FactorDataCompleteness], "4 of 6 fields rounds to 7")
	assert.Equal(t, 0, got.Factors[FactorDirectorsKnown])
	assert.Equal(t, 69, got.Score)
}

func TestCompute_Deterministic(t *testing.T) {
	p := &models.LegalProfile{
		RegistrationID:     "0112038-9",
		OfficialName:       "Nokia Oyj",
		DateEstablished:    "1997-04-07",
		RegistrationStatus: models.RegistrationActive,
		MatchConfidence:    1.0,
	}

	first := Compute(p, scoredAt)
	second := Compute(p, scoredAt)

	assert.Equal(t, first, second)
	assert.GreaterOrEqual(t, first.Score, 0)
	assert.LessOrEqual(t, first.Score, 100)
	assert.Len(t, first.Factors, 6)
}

func TestRegistrationVerified(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		confidence float64
		want       int
	}{
		{"no id", "", 0.99, 0},
		{"id without recorded confidence", "123", 0, 10},
		{"direct lookup", "123", 1.0, 25},
		{"high confidence", "123", 0.95, 25},
		{"auto-accept band", "123", 0.85, 20},
		{"just under auto-accept", "123", 0.849, 10},
		{"ambiguity floor", "123", 0.60, 10},
		{"below the floor", "123", 0.42, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, registrationVerified(tt.id, tt.confidence))
		})
	}
}

func TestActiveStatus(t *testing.T) {
	assert.Equal(t, 20, activeStatus(models.RegistrationActive))
	assert.Equal(t, 5, activeStatus(models.RegistrationUnknown))
	assert.Equal(t, 5, activeStatus(""))
	assert.Equal(t, 0, activeStatus(models.RegistrationDissolved))
}

func TestNoInsolvency(t *testing.T) {
	assert.Equal(t, 20, noInsolvency(false, 0))
	assert.Equal(t, 10, noInsolvency(true, 0))
	assert.Equal(t, 0, noInsolvency(true, 1))
	assert.Equal(t, 0, noInsolvency(false, 2), "active proceedings zero the factor even without the flag")
}

func TestBusinessHistory(t *testing.T) {
	tests := []struct {
		name string
		date string
		want int
	}{
		{"decades old", "2000-05-20", 15},
		{"over five years", "2019-03-01", 12},
		{"over two years", "2023-06-01", 8},
		{"over one year", "2024-09-01", 5},
		{"brand new", "2025-11-01", 2},
		{"missing", "", 0},
		{"czech display format", "26.10.1994", 0},
		{"garbage", "not-a-date", 0},
		{"rfc3339 timestamp", "2010-04-01T00:00:00Z", 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, businessHistory(tt.date, scoredAt))
		})
	}
}

func TestDataCompleteness(t *testing.T) {
	t.Run("scales the filled ratio", func(t *testing.T) {
		p := &models.LegalProfile{
			OfficialName: "Danone",
			LegalForm:    "5599",
			NACECodes:    []models.NACECode{{Code: "70.10Z"}},
		}
		assert.Equal(t, 5, dataCompleteness(p))
	})

	t.Run("single field rounds up", func(t *testing.T) {
		p := &models.LegalProfile{OfficialName: "Danone"}
		assert.Equal(t, 2, dataCompleteness(p))
	})
}
