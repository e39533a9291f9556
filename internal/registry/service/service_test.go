package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"firmus/internal/audit"
	"firmus/internal/registry/adapters"
	"firmus/internal/registry/models"
	"firmus/internal/registry/ports/mocks"
	"firmus/internal/registry/store"
	id "firmus/pkg/domain"
	dErrors "firmus/pkg/domain-errors"
)

var fixedNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type stubAdapter struct {
	desc        adapters.Descriptor
	lookup      func(ctx context.Context, regID string) (*models.RegistryRecord, error)
	search      func(ctx context.Context, name string, max int) ([]models.Candidate, error)
	lookupCalls int
	searchCalls int
}

func (a *stubAdapter) Descriptor() adapters.Descriptor { return a.desc }

func (a *stubAdapter) LookupByID(ctx context.Context, regID string) (*models.RegistryRecord, error) {
	a.lookupCalls++
	if a.lookup == nil {
		return nil, nil
	}
	return a.lookup(ctx, regID)
}

func (a *stubAdapter) SearchByName(ctx context.Context, name string, max int) ([]models.Candidate, error) {
	a.searchCalls++
	if a.search == nil {
		return nil, nil
	}
	return a.search(ctx, name, max)
}

func (a *stubAdapter) Health(context.Context) error { return nil }

func czPrimary() *stubAdapter {
	return &stubAdapter{desc: adapters.Descriptor{
		ID:           "cz_ares",
		Country:      models.CountryCZ,
		Protocol:     adapters.ProtocolREST,
		CountryNames: []string{"cz", "czechia", "czech republic"},
		TLDs:         []string{".cz"},
	}}
}

func noPrimary() *stubAdapter {
	return &stubAdapter{desc: adapters.Descriptor{
		ID:           "no_brreg",
		Country:      models.CountryNO,
		Protocol:     adapters.ProtocolREST,
		CountryNames: []string{"no", "norway"},
		TLDs:         []string{".no"},
	}}
}

func czSupplementary() *stubAdapter {
	return &stubAdapter{desc: adapters.Descriptor{
		ID:            "cz_isir",
		Country:       models.CountryCZ,
		Protocol:      adapters.ProtocolSOAP,
		Supplementary: true,
		DependsOn:     []string{"cz_ares"},
	}}
}

func czRecord(regID string) *models.RegistryRecord {
	return &models.RegistryRecord{
		RegistrationID:     regID,
		OfficialName:       "Alza.cz a.s.",
		LegalForm:          "121",
		DateEstablished:    "2003-08-26",
		RegisteredAddress:  "Jankovcova 1522/53, Praha",
		RegistrationStatus: models.RegistrationActive,
		Directors:          []models.Director{{Name: "Ales Zavoral"}},
		Country:            models.CountryCZ,
		Raw:                json.RawMessage(`{"ico":"` + regID + `"}`),
		CheckedAt:          fixedNow,
	}
}

func testPolicy() adapters.MatchPolicy {
	return adapters.MatchPolicy{
		AcceptThreshold:    0.85,
		AmbiguousThreshold: 0.60,
		SearchDelay:        -1, // no pacing in unit tests
		MaxCandidates:      10,
	}
}

func newRegistry(t *testing.T, as ...adapters.Adapter) *adapters.Registry {
	t.Helper()
	reg := adapters.NewRegistry()
	for _, a := range as {
		require.NoError(t, reg.Register(a))
	}
	return reg
}

func testRequest() models.EnrichmentRequest {
	return models.EnrichmentRequest{
		CompanyID: id.CompanyID(uuid.New()),
		TenantID:  id.TenantID(uuid.New()),
		Name:      "Alza",
		HQCountry: "Czechia",
	}
}

func TestEnrichCompany_SkippedWithoutApplicableAdapter(t *testing.T) {
	svc := New(newRegistry(t, noPrimary()), testPolicy(), store.NewInMemory(),
		WithClock(func() time.Time { return fixedNow }))

	req := testRequest()
	req.HQCountry = "Germany"
	req.Domain = "example.de"

	result, err := svc.EnrichCompany(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSkipped, result.Status)
	assert.Equal(t, ReasonNoApplicableRegistry, result.Reason)
	assert.Empty(t, result.AdaptersRun)
}

func TestEnrichCompany_CountryWinsOverDomain(t *testing.T) {
	cz := czPrimary()
	no := noPrimary()
	no.lookup = func(context.Context, string) (*models.RegistryRecord, error) {
		return &models.RegistryRecord{
			RegistrationID:     "923609016",
			OfficialName:       "Equinor ASA",
			RegistrationStatus: models.RegistrationActive,
			Country:            models.CountryNO,
		}, nil
	}

	svc := New(newRegistry(t, cz, no), testPolicy(), store.NewInMemory(),
		WithClock(func() time.Time { return fixedNow }))

	result, err := svc.EnrichCompany(context.Background(), models.EnrichmentRequest{
		CompanyID:      id.CompanyID(uuid.New()),
		TenantID:       id.TenantID(uuid.New()),
		Name:           "Equinor",
		RegistrationID: "923609016",
		HQCountry:      "Norway",
		Domain:         "foo.cz",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusEnriched, result.Status)
	assert.Equal(t, []string{"no_brreg"}, result.AdaptersRun)
	assert.Zero(t, cz.lookupCalls)
	assert.Zero(t, cz.searchCalls)
}

func TestEnrichCompany_DirectIDNeverSearches(t *testing.T) {
	cz := czPrimary()
	cz.lookup = func(_ context.Context, regID string) (*models.RegistryRecord, error) {
		return czRecord(regID), nil
	}

	profiles := store.NewInMemory()
	svc := New(newRegistry(t, cz), testPolicy(), profiles,
		WithClock(func() time.Time { return fixedNow }))

	req := testRequest()
	req.RegistrationID = "27082440"

	result, err := svc.EnrichCompany(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEnriched, result.Status)
	assert.Equal(t, "27082440", result.RegistrationID)
	assert.Equal(t, "Alza.cz a.s.", result.OfficialName)
	assert.Zero(t, cz.searchCalls)

	profile, err := profiles.GetByCompany(context.Background(), req.CompanyID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchIDDirect, profile.MatchMethod)
	assert.Equal(t, 1.0, profile.MatchConfidence)
	assert.Contains(t, profile.SourceData, "cz_ares")

	lookups := profiles.Lookups()
	require.Len(t, lookups, 1)
	assert.Equal(t, "lookup", lookups[0].Operation)
	assert.Equal(t, "matched", lookups[0].Outcome)
}

func TestEnrichCompany_AmbiguousReturnsCandidatesUnstored(t *testing.T) {
	cz := czPrimary()
	cz.search = func(context.Context, string, int) ([]models.Candidate, error) {
		return []models.Candidate{
			{Record: models.RegistryRecord{OfficialName: "Alza Group"}, Similarity: 0.65},
			{Record: models.RegistryRecord{OfficialName: "Alza Trade"}, Similarity: 0.72},
			{Record: models.RegistryRecord{OfficialName: "Alzheimer spolek"}, Similarity: 0.40},
		}, nil
	}

	profiles := store.NewInMemory()
	svc := New(newRegistry(t, cz), testPolicy(), profiles,
		WithClock(func() time.Time { return fixedNow }))

	req := testRequest()
	result, err := svc.EnrichCompany(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAmbiguous, result.Status)
	require.Len(t, result.Candidates, 2)
	assert.Equal(t, 0.72, result.Candidates[0].Similarity)
	assert.Equal(t, 0.65, result.Candidates[1].Similarity)

	_, err = profiles.GetByCompany(context.Background(), req.CompanyID)
	assert.Error(t, err, "ambiguous outcome must not persist a profile")
}

func TestEnrichCompany_NoMatchListsAdapters(t *testing.T) {
	cz := czPrimary()
	svc := New(newRegistry(t, cz, czSupplementary()), testPolicy(), store.NewInMemory(),
		WithClock(func() time.Time { return fixedNow }))

	result, err := svc.EnrichCompany(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, models.StatusNoMatch, result.Status)
	assert.Equal(t, []string{"cz_ares"}, result.AdaptersRun,
		"supplementary must not run without a registration id")
}

func TestEnrichCompany_EnricherPerAdapterBuiltUpFront(t *testing.T) {
	cz := czPrimary()
	cz.lookup = func(_ context.Context, regID string) (*models.RegistryRecord, error) {
		return czRecord(regID), nil
	}

	svc := New(newRegistry(t, cz, czSupplementary()), testPolicy(), store.NewInMemory(),
		WithClock(func() time.Time { return fixedNow }))
	require.Len(t, svc.enrichers, 2)

	req := testRequest()
	req.RegistrationID = "27082440"
	_, err := svc.EnrichCompany(context.Background(), req)
	require.NoError(t, err)

	// Enrichment must never mutate the enricher map, it is shared by
	// concurrent requests without a lock.
	assert.Len(t, svc.enrichers, 2)
}

func TestEnrichCompany_SupplementaryOverlay(t *testing.T) {
	cz := czPrimary()
	cz.lookup = func(_ context.Context, regID string) (*models.RegistryRecord, error) {
		return czRecord(regID), nil
	}

	isir := czSupplementary()
	isir.lookup = func(_ context.Context, regID string) (*models.RegistryRecord, error) {
		return &models.RegistryRecord{
			RegistrationID: regID,
			InsolvencyFlag: true,
			Insolvency: &models.InsolvencyDetails{
				Proceedings: []models.InsolvencyProceeding{
					{CaseNumber: "KSPH 42 INS 1234/2024", Status: models.ProceedingKonkurs, IsActive: true},
				},
				ActiveCount: 1,
			},
			Country: models.CountryCZ,
			Raw:     json.RawMessage(`{"stav":"KONKURS"}`),
		}, nil
	}

	profiles := store.NewInMemory()
	svc := New(newRegistry(t, cz, isir), testPolicy(), profiles,
		WithClock(func() time.Time { return fixedNow }))

	req := testRequest()
	req.RegistrationID = "27082440"

	result, err := svc.EnrichCompany(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEnriched, result.Status)
	assert.Equal(t, []string{"cz_ares", "cz_isir"}, result.AdaptersRun)

	profile, err := profiles.GetByCompany(context.Background(), req.CompanyID)
	require.NoError(t, err)
	assert.True(t, profile.InsolvencyFlag)
	assert.Equal(t, 1, profile.ActiveInsolvencyCount)
	require.Len(t, profile.InsolvencyDetails, 1)
	assert.Equal(t, "Alza.cz a.s.", profile.OfficialName,
		"identity fields stay with the primary record")
	assert.Contains(t, profile.SourceData, "cz_ares")
	assert.Contains(t, profile.SourceData, "cz_isir")
}

func TestEnrichCompany_SupplementaryCrashKeepsPrimary(t *testing.T) {
	cz := czPrimary()
	cz.lookup = func(_ context.Context, regID string) (*models.RegistryRecord, error) {
		return czRecord(regID), nil
	}

	isir := czSupplementary()
	isir.lookup = func(context.Context, string) (*models.RegistryRecord, error) {
		panic("isir exploded")
	}

	profiles := store.NewInMemory()
	svc := New(newRegistry(t, cz, isir), testPolicy(), profiles,
		WithClock(func() time.Time { return fixedNow }))

	req := testRequest()
	req.RegistrationID = "27082440"

	result, err := svc.EnrichCompany(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEnriched, result.Status)
	assert.Contains(t, result.Errors, "cz_isir")

	profile, err := profiles.GetByCompany(context.Background(), req.CompanyID)
	require.NoError(t, err)
	assert.Equal(t, "27082440", profile.RegistrationID)
	assert.False(t, profile.InsolvencyFlag)
}

func TestEnrichCompany_PrimaryErrorIsIsolated(t *testing.T) {
	cz := czPrimary()
	cz.lookup = func(context.Context, string) (*models.RegistryRecord, error) {
		return nil, errors.New("contract drift: unexpected schema")
	}

	svc := New(newRegistry(t, cz), testPolicy(), store.NewInMemory(),
		WithClock(func() time.Time { return fixedNow }))

	req := testRequest()
	req.RegistrationID = "27082440"

	result, err := svc.EnrichCompany(context.Background(), req)
	require.NoError(t, err, "adapter failures surface in the result, not as errors")
	assert.Equal(t, models.StatusError, result.Status)
	assert.Contains(t, result.Errors, "cz_ares")
}

func TestEnrichCompany_Idempotent(t *testing.T) {
	cz := czPrimary()
	cz.lookup = func(_ context.Context, regID string) (*models.RegistryRecord, error) {
		return czRecord(regID), nil
	}

	profiles := store.NewInMemory()
	svc := New(newRegistry(t, cz), testPolicy(), profiles,
		WithClock(func() time.Time { return fixedNow }))

	req := testRequest()
	req.RegistrationID = "27082440"

	_, err := svc.EnrichCompany(context.Background(), req)
	require.NoError(t, err)
	first, err := profiles.GetByCompany(context.Background(), req.CompanyID)
	require.NoError(t, err)

	_, err = svc.EnrichCompany(context.Background(), req)
	require.NoError(t, err)
	second, err := profiles.GetByCompany(context.Background(), req.CompanyID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEnrichCompany_PromotesSummaryFields(t *testing.T) {
	ctrl := gomock.NewController(t)
	promoter := mocks.NewMockCompanyPromoter(ctrl)

	cz := czPrimary()
	cz.lookup = func(_ context.Context, regID string) (*models.RegistryRecord, error) {
		return czRecord(regID), nil
	}

	req := testRequest()
	req.RegistrationID = "27082440"

	promoter.EXPECT().
		PromoteLegalFields(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, fields models.PromotedFields) error {
			assert.Equal(t, req.CompanyID, fields.CompanyID)
			assert.Equal(t, "27082440", fields.RegistrationID)
			assert.Equal(t, "Alza.cz a.s.", fields.OfficialName)
			assert.Equal(t, models.RegistrationActive, fields.RegistrationStatus)
			assert.Len(t, fields.CredibilityFactors, 6)
			return nil
		})

	svc := New(newRegistry(t, cz), testPolicy(), store.NewInMemory(),
		WithPromoter(promoter),
		WithClock(func() time.Time { return fixedNow }))

	result, err := svc.EnrichCompany(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEnriched, result.Status)
}

func TestEnrichCompany_PromotionFailureDegrades(t *testing.T) {
	ctrl := gomock.NewController(t)
	promoter := mocks.NewMockCompanyPromoter(ctrl)
	promoter.EXPECT().
		PromoteLegalFields(gomock.Any(), gomock.Any()).
		Return(errors.New("company row locked"))

	cz := czPrimary()
	cz.lookup = func(_ context.Context, regID string) (*models.RegistryRecord, error) {
		return czRecord(regID), nil
	}

	req := testRequest()
	req.RegistrationID = "27082440"

	svc := New(newRegistry(t, cz), testPolicy(), store.NewInMemory(),
		WithPromoter(promoter),
		WithClock(func() time.Time { return fixedNow }))

	result, err := svc.EnrichCompany(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEnriched, result.Status)
	assert.Contains(t, result.Errors, "promotion")
}

func TestEnrichCompany_UpsertFailureIsAnError(t *testing.T) {
	ctrl := gomock.NewController(t)
	profiles := mocks.NewMockProfileStore(ctrl)
	profiles.EXPECT().AppendLookup(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	profiles.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))

	cz := czPrimary()
	cz.lookup = func(_ context.Context, regID string) (*models.RegistryRecord, error) {
		return czRecord(regID), nil
	}

	req := testRequest()
	req.RegistrationID = "27082440"

	svc := New(newRegistry(t, cz), testPolicy(), profiles,
		WithClock(func() time.Time { return fixedNow }))

	_, err := svc.EnrichCompany(context.Background(), req)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestEnrichCompany_EmitsAuditEvent(t *testing.T) {
	events := audit.NewMemoryStore()

	cz := czPrimary()
	cz.lookup = func(_ context.Context, regID string) (*models.RegistryRecord, error) {
		return czRecord(regID), nil
	}

	svc := New(newRegistry(t, cz), testPolicy(), store.NewInMemory(),
		WithAudit(audit.NewPublisher(events)),
		WithClock(func() time.Time { return fixedNow }))

	req := testRequest()
	req.RegistrationID = "27082440"

	_, err := svc.EnrichCompany(context.Background(), req)
	require.NoError(t, err)

	recorded := events.Events()
	require.Len(t, recorded, 1)
	assert.Equal(t, "enriched", recorded[0].Status)
	assert.Equal(t, string(models.MatchIDDirect), recorded[0].MatchMethod)
	assert.Equal(t, []string{"cz_ares"}, recorded[0].AdaptersRun)
	require.NotNil(t, recorded[0].CredibilityScore)
}

func TestEnrichCompany_InputValidation(t *testing.T) {
	svc := New(newRegistry(t, czPrimary()), testPolicy(), store.NewInMemory())

	_, err := svc.EnrichCompany(context.Background(), models.EnrichmentRequest{})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = svc.EnrichCompany(context.Background(), models.EnrichmentRequest{
		CompanyID: id.CompanyID(uuid.New()),
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestGetProfile_NotFound(t *testing.T) {
	svc := New(newRegistry(t, czPrimary()), testPolicy(), store.NewInMemory())

	_, err := svc.GetProfile(context.Background(), id.CompanyID(uuid.New()))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestAdapterStatuses_ListsEveryAdapter(t *testing.T) {
	svc := New(newRegistry(t, czPrimary(), czSupplementary(), noPrimary()), testPolicy(), store.NewInMemory())

	statuses := svc.AdapterStatuses(context.Background())
	require.Len(t, statuses, 3)
	assert.Equal(t, "cz_ares", statuses[0].ID)
	assert.True(t, statuses[0].Healthy)
	assert.True(t, statuses[1].Supplementary)
	assert.Equal(t, []string{"cz_ares"}, statuses[1].DependsOn)
}
