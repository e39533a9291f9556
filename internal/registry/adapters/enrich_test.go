package adapters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firmus/internal/registry/models"
	id "firmus/pkg/domain"
)

type savedRecord struct {
	adapterID  string
	confidence float64
	method     models.MatchMethod
	record     *models.RegistryRecord
}

type recordingSink struct {
	saves []savedRecord
	err   error
}

func (s *recordingSink) SaveRecord(_ context.Context, _ id.CompanyID, _ id.TenantID, adapterID string, rec *models.RegistryRecord, confidence float64, method models.MatchMethod) error {
	if s.err != nil {
		return s.err
	}
	s.saves = append(s.saves, savedRecord{adapterID: adapterID, confidence: confidence, method: method, record: rec})
	return nil
}

func candidate(name string, sim float64) models.Candidate {
	return models.Candidate{
		Record: models.RegistryRecord{
			RegistrationID: "r-" + name,
			OfficialName:   name,
			Country:        models.CountryCZ,
		},
		Similarity: sim,
	}
}

func enrichReq(regID string, store bool) EnrichRequest {
	return EnrichRequest{
		CompanyID:      id.CompanyID(uuid.New()),
		TenantID:       id.TenantID(uuid.New()),
		Name:           "Alza",
		RegistrationID: regID,
		Store:          store,
	}
}

func TestEnricher_DirectLookup(t *testing.T) {
	t.Run("valid ID never touches search", func(t *testing.T) {
		stub := newStub("cz_test", models.CountryCZ, []string{"cz"}, []string{".cz"})
		stub.record = &models.RegistryRecord{RegistrationID: "27082440", OfficialName: "Alza.cz a.s."}

		e := NewEnricher(MatchPolicy{SearchDelay: -1})
		res, err := e.Enrich(context.Background(), stub, enrichReq("27082440", false))

		require.NoError(t, err)
		assert.Equal(t, OutcomeMatched, res.Outcome)
		assert.Equal(t, models.MatchIDDirect, res.Method)
		assert.Equal(t, 1.0, res.Confidence)
		require.NotNil(t, res.Record)
		assert.Equal(t, "27082440", res.Record.RegistrationID)
		assert.Equal(t, 0, stub.searchCalls)
	})

	t.Run("confirmed not-found is terminal no_match", func(t *testing.T) {
		stub := newStub("cz_test", models.CountryCZ, []string{"cz"}, []string{".cz"})

		e := NewEnricher(MatchPolicy{SearchDelay: -1})
		res, err := e.Enrich(context.Background(), stub, enrichReq("00000019", false))

		require.NoError(t, err)
		assert.Equal(t, OutcomeNoMatch, res.Outcome)
		assert.Equal(t, models.MatchIDDirect, res.Method)
		assert.Nil(t, res.Record)
		assert.Equal(t, 0, stub.searchCalls)
	})

	t.Run("store persists the accepted record", func(t *testing.T) {
		stub := newStub("cz_test", models.CountryCZ, []string{"cz"}, []string{".cz"})
		stub.record = &models.RegistryRecord{RegistrationID: "27082440"}
		sink := &recordingSink{}

		e := NewEnricher(MatchPolicy{SearchDelay: -1}, WithSink(sink))
		_, err := e.Enrich(context.Background(), stub, enrichReq("27082440", true))

		require.NoError(t, err)
		require.Len(t, sink.saves, 1)
		assert.Equal(t, "cz_test", sink.saves[0].adapterID)
		assert.Equal(t, 1.0, sink.saves[0].confidence)
		assert.Equal(t, models.MatchIDDirect, sink.saves[0].method)
	})

	t.Run("lookup error propagates", func(t *testing.T) {
		stub := newStub("cz_test", models.CountryCZ, []string{"cz"}, []string{".cz"})
		stub.lookupErr = NewAdapterError(ErrorAuthentication, "cz_test", "bad credentials", nil)

		e := NewEnricher(MatchPolicy{SearchDelay: -1})
		_, err := e.Enrich(context.Background(), stub, enrichReq("27082440", false))

		require.Error(t, err)
		assert.Equal(t, ErrorAuthentication, GetCategory(err))
	})
}

func TestEnricher_NameSearch(t *testing.T) {
	t.Run("top candidate at accept threshold is auto-accepted", func(t *testing.T) {
		stub := newStub("cz_test", models.CountryCZ, []string{"cz"}, []string{".cz"})
		stub.candidates = []models.Candidate{candidate("Alza.cz a.s.", 0.92), candidate("Alzheimer z.s.", 0.41)}
		sink := &recordingSink{}

		e := NewEnricher(MatchPolicy{SearchDelay: -1}, WithSink(sink))
		res, err := e.Enrich(context.Background(), stub, enrichReq("", true))

		require.NoError(t, err)
		assert.Equal(t, OutcomeMatched, res.Outcome)
		assert.Equal(t, models.MatchNameAuto, res.Method)
		assert.Equal(t, 0.92, res.Confidence)
		require.NotNil(t, res.Record)
		assert.Equal(t, "Alza.cz a.s.", res.Record.OfficialName)
		require.Len(t, sink.saves, 1)
		assert.Equal(t, 0.92, sink.saves[0].confidence)
		assert.Equal(t, models.MatchNameAuto, sink.saves[0].method)
	})

	t.Run("ambiguous band returns all candidates above floor, sorted", func(t *testing.T) {
		stub := newStub("cz_test", models.CountryCZ, []string{"cz"}, []string{".cz"})
		// Deliberately unsorted: the template must not trust adapter order.
		stub.candidates = []models.Candidate{
			candidate("Alza Logistics s.r.o.", 0.64),
			candidate("Alza Group a.s.", 0.78),
			candidate("Unrelated spol.", 0.31),
			candidate("Alza Invest s.r.o.", 0.70),
		}
		sink := &recordingSink{}

		e := NewEnricher(MatchPolicy{SearchDelay: -1}, WithSink(sink))
		res, err := e.Enrich(context.Background(), stub, enrichReq("", true))

		require.NoError(t, err)
		assert.Equal(t, OutcomeAmbiguous, res.Outcome)
		assert.Equal(t, 0.78, res.Confidence)
		require.Len(t, res.Candidates, 3)
		assert.Equal(t, 0.78, res.Candidates[0].Similarity)
		assert.Equal(t, 0.70, res.Candidates[1].Similarity)
		assert.Equal(t, 0.64, res.Candidates[2].Similarity)
		assert.Nil(t, res.Record, "no record may be chosen for an ambiguous result")
		assert.Empty(t, sink.saves, "no record may be stored for an ambiguous result")
	})

	t.Run("just below accept threshold stays ambiguous", func(t *testing.T) {
		stub := newStub("cz_test", models.CountryCZ, []string{"cz"}, []string{".cz"})
		stub.candidates = []models.Candidate{candidate("Alza Group", 0.8499)}

		e := NewEnricher(MatchPolicy{SearchDelay: -1})
		res, err := e.Enrich(context.Background(), stub, enrichReq("", false))

		require.NoError(t, err)
		assert.Equal(t, OutcomeAmbiguous, res.Outcome)
	})

	t.Run("below ambiguity floor is no_match", func(t *testing.T) {
		stub := newStub("cz_test", models.CountryCZ, []string{"cz"}, []string{".cz"})
		stub.candidates = []models.Candidate{candidate("Something Else", 0.42)}

		e := NewEnricher(MatchPolicy{SearchDelay: -1})
		res, err := e.Enrich(context.Background(), stub, enrichReq("", false))

		require.NoError(t, err)
		assert.Equal(t, OutcomeNoMatch, res.Outcome)
		assert.Empty(t, res.Candidates)
	})

	t.Run("empty search result is no_match", func(t *testing.T) {
		stub := newStub("cz_test", models.CountryCZ, []string{"cz"}, []string{".cz"})

		e := NewEnricher(MatchPolicy{SearchDelay: -1})
		res, err := e.Enrich(context.Background(), stub, enrichReq("", false))

		require.NoError(t, err)
		assert.Equal(t, OutcomeNoMatch, res.Outcome)
	})

	t.Run("search error propagates", func(t *testing.T) {
		stub := newStub("cz_test", models.CountryCZ, []string{"cz"}, []string{".cz"})
		stub.searchErr = errors.New("boom")

		e := NewEnricher(MatchPolicy{SearchDelay: -1})
		_, err := e.Enrich(context.Background(), stub, enrichReq("", false))
		require.Error(t, err)
	})
}

func TestEnricher_PolitenessDelay(t *testing.T) {
	t.Run("search waits for the pacer", func(t *testing.T) {
		stub := newStub("cz_test", models.CountryCZ, []string{"cz"}, []string{".cz"})
		pacer := NewSearchPacer(200 * time.Millisecond)

		e := NewEnricher(MatchPolicy{}, WithPacer(pacer))
		start := time.Now()
		_, err := e.Enrich(context.Background(), stub, enrichReq("", false))

		require.NoError(t, err)
		assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	})

	t.Run("direct lookup never waits", func(t *testing.T) {
		stub := newStub("cz_test", models.CountryCZ, []string{"cz"}, []string{".cz"})
		stub.record = &models.RegistryRecord{RegistrationID: "27082440"}
		pacer := NewSearchPacer(200 * time.Millisecond)

		e := NewEnricher(MatchPolicy{}, WithPacer(pacer))
		start := time.Now()
		_, err := e.Enrich(context.Background(), stub, enrichReq("27082440", false))

		require.NoError(t, err)
		assert.Less(t, time.Since(start), 100*time.Millisecond)
	})

	t.Run("canceled context aborts the wait", func(t *testing.T) {
		stub := newStub("cz_test", models.CountryCZ, []string{"cz"}, []string{".cz"})
		pacer := NewSearchPacer(5 * time.Second)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		e := NewEnricher(MatchPolicy{}, WithPacer(pacer))
		_, err := e.Enrich(ctx, stub, enrichReq("", false))
		require.Error(t, err)
		assert.Equal(t, 0, stub.searchCalls)
	})
}

func TestMatchPolicy_Defaults(t *testing.T) {
	p := MatchPolicy{}.withDefaults()
	assert.Equal(t, 0.85, p.AcceptThreshold)
	assert.Equal(t, 0.60, p.AmbiguousThreshold)
	assert.Equal(t, 300*time.Millisecond, p.SearchDelay)
	assert.Equal(t, 10, p.MaxCandidates)

	p = MatchPolicy{SearchDelay: -1}.withDefaults()
	assert.Negative(t, p.SearchDelay)
}
