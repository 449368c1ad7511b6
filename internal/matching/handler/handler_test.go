package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"donormatch/internal/donors/store"
	"donormatch/internal/matching/metrics"
	"donormatch/internal/matching/models"
	"donormatch/internal/matching/notify"
	"donormatch/internal/matching/observability"
	"donormatch/internal/matching/ports"
	"donormatch/internal/matching/service"
	"donormatch/internal/matching/source/memory"
	"donormatch/pkg/platform/httputil"
	"donormatch/pkg/testutil"
)

// =============================================================================
// Search Handler Test Suite
// =============================================================================
// Covers request decoding, error mapping to HTTP status codes and publishing
// of search completion events. The matching itself is stubbed.

type stubService struct {
	results  map[models.DonorID]models.MatchResult
	err      error
	received []models.MatchCriteria
}

func (s *stubService) FindMatches(_ context.Context, criteria models.MatchCriteria) (map[models.DonorID]models.MatchResult, error) {
	s.received = append(s.received, criteria)
	return s.results, s.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.SearchCompleted
	err    error
}

func (p *recordingPublisher) PublishSearchCompleted(_ context.Context, event notify.SearchCompleted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

type HandlerSuite struct {
	suite.Suite
	service   *stubService
	publisher *recordingPublisher
	logs      *bytes.Buffer
	router    http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.service = &stubService{}
	s.publisher = &recordingPublisher{}
	s.logs = &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(s.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := New(s.service, logger, WithPublisher(s.publisher))
	s.router = NewRouter(h, nil, nil)
}

func validRequest() SearchRequest {
	return SearchRequest{
		DonorType:          "Adult",
		Registries:         []string{"AN"},
		TotalMismatchCount: 0,
		Loci: map[models.Locus]*LocusRequest{
			models.LocusA:    {PositionOne: []string{"A*1"}, PositionTwo: []string{"A*2"}},
			models.LocusB:    {PositionOne: []string{"B*1"}, PositionTwo: []string{"B*2"}},
			models.LocusDRB1: {PositionOne: []string{"DRB1*1"}, PositionTwo: []string{"DRB1*2"}},
		},
	}
}

func (s *HandlerSuite) search(body any) *httptest.ResponseRecorder {
	return s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/searches", body))
}

func (s *HandlerSuite) do(req *http.Request) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, req)
}

func (s *HandlerSuite) TestSearch() {
	s.Run("returns results ordered by donor id", func() {
		s.SetupTest()
		fullA := models.NewMatchResult(9).WithLocusState(models.LocusA, models.FullMatch)
		enriched, err := fullA.WithDonor(models.DonorRecord{ID: 9, Type: models.DonorTypeAdult, Registry: "AN", AvailableForSearch: true})
		s.Require().NoError(err)
		s.service.results = map[models.DonorID]models.MatchResult{
			9: enriched,
			3: models.NewMatchResult(3).WithLocusState(models.LocusA, models.SingleMatch),
		}

		rr := s.search(validRequest())

		s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
		resp := testutil.DecodeJSON[SearchResponse](s.T(), rr)
		s.NotEqual(uuid.Nil, resp.SearchID)
		s.Equal(2, resp.ResultCount)
		s.Require().Len(resp.Results, 2)
		s.Equal(int64(3), resp.Results[0].DonorID)
		s.Equal(int64(9), resp.Results[1].DonorID)
		s.Equal("AN", resp.Results[1].Registry)
		s.Equal(uint8(2), resp.Results[1].Loci[models.LocusA])
		s.Equal(0, resp.Results[1].TotalMismatchCount)
	})

	s.Run("passes normalised criteria to the service", func() {
		s.SetupTest()
		s.service.results = map[models.DonorID]models.MatchResult{}

		rr := s.search(validRequest())

		s.Require().Equal(http.StatusOK, rr.Code)
		s.Require().Len(s.service.received, 1)
		got := s.service.received[0]
		s.Equal(models.DonorTypeAdult, got.DonorType)
		s.Equal([]models.Registry{"AN"}, got.Registries)
		s.Equal([]models.PGroup{"B*1"}, got.LocusCriteria[models.LocusB].PositionOne)
	})

	s.Run("publishes a completion event", func() {
		s.SetupTest()
		s.service.results = map[models.DonorID]models.MatchResult{1: models.NewMatchResult(1)}

		rr := s.search(validRequest())

		s.Require().Equal(http.StatusOK, rr.Code)
		resp := testutil.DecodeJSON[SearchResponse](s.T(), rr)
		s.Require().Len(s.publisher.events, 1)
		event := s.publisher.events[0]
		s.Equal(resp.SearchID, event.SearchID)
		s.True(event.Succeeded)
		s.Equal(1, event.ResultCount)
		s.Equal("adult", event.DonorType)
	})

	s.Run("publish failure does not fail the search", func() {
		s.SetupTest()
		s.service.results = map[models.DonorID]models.MatchResult{}
		s.publisher.err = errors.New("broker down")

		rr := s.search(validRequest())

		s.Equal(http.StatusOK, rr.Code)
		s.Contains(s.logs.String(), "failed to publish search event")
	})
}

func (s *HandlerSuite) TestSearchErrors() {
	tests := []struct {
		name       string
		serviceErr error
		status     int
		code       string
		event      string
	}{
		{
			name:       "precondition violation",
			serviceErr: fmt.Errorf("%w: total mismatch count out of range", models.ErrInvalidCriteria),
			status:     http.StatusBadRequest,
			code:       "invalid_criteria",
			event:      "invalid_criteria",
		},
		{
			name:       "source outage",
			serviceErr: ports.NewSourceError(ports.ErrorProviderOutage, "postgres", "match_locus", errors.New("connection refused")),
			status:     http.StatusServiceUnavailable,
			code:       "source_unavailable",
			event:      string(ports.ErrorProviderOutage),
		},
		{
			name:       "unexpected failure",
			serviceErr: errors.New("boom"),
			status:     http.StatusInternalServerError,
			code:       "internal_error",
			event:      string(ports.ErrorInternal),
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			s.service.err = tt.serviceErr

			rr := s.search(validRequest())

			s.Equal(tt.status, rr.Code)
			body := testutil.DecodeJSON[httputil.ErrorResponse](s.T(), rr)
			s.Equal(tt.code, body.Error)
			if tt.status >= http.StatusInternalServerError {
				s.NotContains(rr.Body.String(), "connection refused")
				s.NotContains(rr.Body.String(), "boom")
			}
			s.Require().Len(s.publisher.events, 1)
			s.False(s.publisher.events[0].Succeeded)
			s.Equal(tt.event, s.publisher.events[0].Error)
		})
	}
}

func (s *HandlerSuite) TestRejectsBadRequests() {
	s.Run("malformed json", func() {
		s.SetupTest()
		rr := s.do(testutil.NewRequestWithBody(s.T(), http.MethodPost, "/v1/searches", `{"donor_type":`))
		s.Equal(http.StatusBadRequest, rr.Code)
		s.Empty(s.service.received)
	})

	s.Run("unknown field", func() {
		s.SetupTest()
		rr := s.do(testutil.NewRequestWithBody(s.T(), http.MethodPost, "/v1/searches", `{"donor_typ":"adult"}`))
		s.Equal(http.StatusBadRequest, rr.Code)
	})

	s.Run("unknown locus name", func() {
		s.SetupTest()
		rr := s.do(testutil.NewRequestWithBody(s.T(), http.MethodPost, "/v1/searches", `{"loci":{"HLA-Z":{"mismatch_count":0}}}`))
		s.Equal(http.StatusBadRequest, rr.Code)
	})

	s.Run("empty registry code", func() {
		s.SetupTest()
		req := validRequest()
		req.Registries = []string{" "}
		rr := s.search(req)
		s.Equal(http.StatusBadRequest, rr.Code)
		body := testutil.DecodeJSON[httputil.ErrorResponse](s.T(), rr)
		s.Equal("invalid_criteria", body.Error)
	})

	s.Run("locus without criteria", func() {
		s.SetupTest()
		rr := s.do(testutil.NewRequestWithBody(s.T(), http.MethodPost, "/v1/searches", `{"donor_type":"adult","loci":{"A":null}}`))
		s.Equal(http.StatusBadRequest, rr.Code)
		s.Empty(s.service.received)
	})
}

func (s *HandlerSuite) TestRequestIDHeaderIsLogged() {
	s.service.err = errors.New("boom")
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/searches", validRequest())
	req.Header.Set("X-Request-Id", "req-123")

	rr := s.do(req)

	s.Equal(http.StatusInternalServerError, rr.Code)
	s.Contains(s.logs.String(), "req-123")
}

// =============================================================================
// Router
// =============================================================================

func TestHealthz(t *testing.T) {
	h := New(&stubService{}, nil)

	t.Run("healthy", func(t *testing.T) {
		router := NewRouter(h, nil, map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
		})
		rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodGet, "/healthz", ""))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"postgres":"ok"`)
	})

	t.Run("degraded dependency", func(t *testing.T) {
		router := NewRouter(h, nil, map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("dial tcp: refused") },
		})
		rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodGet, "/healthz", ""))
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Contains(t, rr.Body.String(), `"redis":"unavailable"`)
		assert.NotContains(t, rr.Body.String(), "refused")
	})
}

// TestSearchEndToEnd runs a search through the router against the in-memory
// engine and reads the resulting metrics back from the exposition endpoint.
func TestSearchEndToEnd(t *testing.T) {
	src := memory.New()
	records := store.NewInMemoryStore()
	typing := map[models.Locus]memory.LocusTyping{
		models.LocusA:    {PositionOne: []models.PGroup{"A*1"}, PositionTwo: []models.PGroup{"A*2"}},
		models.LocusB:    {PositionOne: []models.PGroup{"B*1"}, PositionTwo: []models.PGroup{"B*2"}},
		models.LocusDRB1: {PositionOne: []models.PGroup{"DRB1*1"}, PositionTwo: []models.PGroup{"DRB1*2"}},
	}
	src.Add(
		memory.DonorTyping{ID: 1, Type: models.DonorTypeAdult, Loci: typing},
		memory.DonorTyping{ID: 2, Type: models.DonorTypeCord, Loci: typing},
	)
	ctx := context.Background()
	require.NoError(t, records.Save(ctx, models.DonorRecord{ID: 1, Type: models.DonorTypeAdult, Registry: "AN", AvailableForSearch: true}))
	require.NoError(t, records.Save(ctx, models.DonorRecord{ID: 2, Type: models.DonorTypeCord, Registry: "AN", AvailableForSearch: true}))

	reg := prometheus.NewRegistry()
	svc, err := service.New(src, records,
		service.WithObserver(observability.NewMetricsObserver(metrics.New(reg))),
	)
	require.NoError(t, err)
	router := NewRouter(New(svc, nil), reg, nil)

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/v1/searches", validRequest()))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := testutil.DecodeJSON[SearchResponse](t, rr)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, int64(1), resp.Results[0].DonorID)
	assert.Equal(t, 6, resp.Results[0].TotalMatchCount)

	rr = testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodGet, "/metrics", ""))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `donormatch_search_outcomes_total{outcome="matched"} 1`)
}
