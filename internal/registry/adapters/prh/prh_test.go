package prh

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firmus/internal/registry/adapters"
	"firmus/internal/registry/models"
)

const companyBody = `{
	"businessId": {"value": "0112038-9", "registrationDate": "1978-07-18"},
	"names": [
		{"name": "Oy Nokia Ab", "type": "1", "endDate": "1997-09-01"},
		{"name": "Nokia Oyj", "type": "1", "endDate": null}
	],
	"companyForms": [
		{"type": "OYJ", "descriptions": [
			{"languageCode": "1", "description": "Julkinen osakeyhtiö"},
			{"languageCode": "3", "description": "Public limited company"}
		]}
	],
	"mainBusinessLine": {"type": "26300", "descriptions": [
		{"languageCode": "3", "description": "Manufacture of communication equipment"}
	]},
	"addresses": [{"street": "Karakaari", "buildingNumber": "7", "postCode": "02610", "city": "ESPOO"}],
	"registrationDate": "1978-07-18",
	"endDate": null
}`

func listBody(companies ...string) string {
	out := `{"totalResults": ` + fmt.Sprint(len(companies)) + `, "companies": [`
	for i, c := range companies {
		if i > 0 {
			out += ","
		}
		out += c
	}
	return out + `]}`
}

func newTestAdapter(t *testing.T, handler http.Handler) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(WithBaseURL(srv.URL), WithClient(adapters.NewClient(2*time.Second)))
}

func TestNormalizeBusinessID(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"0112038-9", "0112038-9", true},
		{"01120389", "0112038-9", true},
		{"FI01120389", "0112038-9", true},
		{" 0112038-9 ", "0112038-9", true},
		{"112038-9", "", false},
		{"0112038-99", "", false},
		{"011203X-9", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := normalizeBusinessID(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestMapCompany(t *testing.T) {
	var dto companyDTO
	require.NoError(t, json.Unmarshal([]byte(companyBody), &dto))

	rec := mapCompany(dto, json.RawMessage(companyBody))

	assert.Equal(t, "0112038-9", rec.RegistrationID)
	assert.Equal(t, "Nokia Oyj", rec.OfficialName, "ended names are skipped")
	assert.Equal(t, "OYJ", rec.LegalForm)
	assert.Equal(t, "Public limited company", rec.LegalFormName, "English description wins")
	assert.Equal(t, "1978-07-18", rec.DateEstablished)
	assert.Equal(t, "Karakaari 7", rec.RegisteredAddress)
	assert.Equal(t, "ESPOO", rec.City)
	assert.Equal(t, "02610", rec.PostalCode)
	assert.Equal(t, models.RegistrationActive, rec.RegistrationStatus)
	assert.Equal(t, models.CountryFI, rec.Country)
	require.Len(t, rec.NACECodes, 1)
	assert.Equal(t, "26300", rec.NACECodes[0].Code)

	t.Run("end date dissolves the company", func(t *testing.T) {
		dto := dto
		dto.EndDate = "2020-06-30"
		rec := mapCompany(dto, nil)
		assert.Equal(t, models.RegistrationDissolved, rec.RegistrationStatus)
		assert.Equal(t, "2020-06-30", rec.DateDissolved)
	})

	t.Run("Finnish description is the fallback", func(t *testing.T) {
		dto := dto
		dto.CompanyForms = []companyFormDTO{{
			Type: "OY",
			Descriptions: []descriptionDTO{
				{LanguageCode: "1", Description: "Osakeyhtiö"},
			},
		}}
		rec := mapCompany(dto, nil)
		assert.Equal(t, "Osakeyhtiö", rec.LegalFormName)
	})
}

func TestAdapter_LookupByID(t *testing.T) {
	t.Run("queries by normalized business id", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /companies", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "0112038-9", r.URL.Query().Get("businessId"))
			w.Write([]byte(listBody(companyBody)))
		})
		a := newTestAdapter(t, mux)

		rec, err := a.LookupByID(context.Background(), "FI01120389")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "Nokia Oyj", rec.OfficialName)
		assert.NotEmpty(t, rec.Raw)
	})

	t.Run("empty company list is a confirmed not-found", func(t *testing.T) {
		a := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(listBody()))
		}))

		rec, err := a.LookupByID(context.Background(), "0112038-9")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("register outage degrades to not-found", func(t *testing.T) {
		a := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))

		rec, err := a.LookupByID(context.Background(), "0112038-9")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("malformed business id never reaches the wire", func(t *testing.T) {
		a := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("unexpected call")
		}))

		rec, err := a.LookupByID(context.Background(), "Y-12345")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})
}

func TestAdapter_SearchByName(t *testing.T) {
	t.Run("scores hits and respects the result cap", func(t *testing.T) {
		second := `{"businessId": {"value": "2336509-6"}, "names": [{"name": "Nokian Panimo Oy"}]}`
		third := `{"businessId": {"value": "0680032-9"}, "names": [{"name": "Nokian Renkaat Oyj"}]}`

		mux := http.NewServeMux()
		mux.HandleFunc("GET /companies", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Nokia", r.URL.Query().Get("name"))
			w.Write([]byte(listBody(companyBody, second, third)))
		})
		a := newTestAdapter(t, mux)

		candidates, err := a.SearchByName(context.Background(), "Nokia", 2)
		require.NoError(t, err)
		require.Len(t, candidates, 2, "capped at maxResults")

		assert.Equal(t, 1.0, candidates[0].Similarity, "identical after Oyj stripping")
		assert.Less(t, candidates[1].Similarity, 1.0)
	})

	t.Run("outage degrades to empty result", func(t *testing.T) {
		a := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))

		candidates, err := a.SearchByName(context.Background(), "Nokia", 10)
		require.NoError(t, err)
		assert.Empty(t, candidates)
	})
}

func TestDescriptor(t *testing.T) {
	d := New().Descriptor()

	assert.Equal(t, ID, d.ID)
	assert.Equal(t, models.CountryFI, d.Country)
	assert.False(t, d.Supplementary)
	assert.True(t, d.MatchesCompany("Suomi", ""))
	assert.True(t, d.MatchesCompany("", "nokia.fi"))
	assert.False(t, d.MatchesCompany("Sweden", "volvo.se"))
	assert.Equal(t, 1.0, d.NameSimilarity("Nokia", "Nokia Oyj"))
}
