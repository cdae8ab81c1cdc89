package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphagate/alphagate/internal/calibration"
	"github.com/alphagate/alphagate/internal/decision"
	"github.com/alphagate/alphagate/internal/engine"
	"github.com/alphagate/alphagate/internal/evidence"
	"github.com/alphagate/alphagate/internal/gates"
	"github.com/alphagate/alphagate/internal/metrics"
	"github.com/alphagate/alphagate/internal/outcome"
	"github.com/alphagate/alphagate/internal/perf"
	"github.com/alphagate/alphagate/internal/persistence/memory"
	"github.com/alphagate/alphagate/internal/regime"
	"github.com/alphagate/alphagate/internal/sizing"
)

type noEvidence struct{}

func (noEvidence) Candidates(context.Context, time.Time) ([]*evidence.Bundle, error) {
	return nil, nil
}

type emptyPortfolio struct{}

func (emptyPortfolio) Snapshot(context.Context) (engine.Portfolio, error) {
	return engine.Portfolio{}, nil
}

type noMarket struct{}

func (noMarket) BenchmarkCloses(context.Context, time.Time, int) ([]float64, error) {
	return nil, nil
}

func (noMarket) BenchmarkReturn(context.Context, time.Time, time.Time) (float64, error) {
	return 0, nil
}

func (noMarket) PriceAt(context.Context, string, time.Time) (float64, error) {
	return 100, nil
}

func newTestServer(store *memory.Store) *Server {
	m := metrics.New()
	caps := gates.RiskCaps{MaxPositionPct: 10, MaxSectorExposurePct: 30}
	eng := engine.New(engine.Config{}, engine.Deps{
		Detector:   regime.NewDetector(noMarket{}, regime.DefaultDetectorConfig()),
		Thresholds: gates.NewThresholdProvider(gates.DefaultThresholdConfig()),
		Evaluator:  gates.NewEvaluator(caps, gates.DefaultEvaluatorConfig()),
		Calibrator: calibration.New(calibration.DefaultConfig()),
		Sizer:      sizing.NewSizer(sizing.DefaultConfig()),
		Tracker:    outcome.NewTracker(outcome.DefaultTrackerConfig(), noMarket{}, noMarket{}, nil),
		Analyzer:   perf.NewAnalyzer(5),
		Evidence:   noEvidence{},
		Portfolio:  emptyPortfolio{},
		Decisions:  store.Decisions(),
		Outcomes:   store.Outcomes(),
		Samples:    store.Samples(),
		Metrics:    m,
	})
	return NewServer(Config{ListenAddr: ":0"}, eng, store.Decisions(), m)
}

func doRequest(s *Server, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	s := newTestServer(memory.NewStore())

	rec := doRequest(s, http.MethodGet, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(memory.NewStore())

	rec := doRequest(s, http.MethodGet, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alphagate_")
}

func TestRecentDecisions(t *testing.T) {
	store := memory.NewStore()
	d := decision.Decision{
		ID: decision.NewID(), Instrument: "ACME", Sector: "technology",
		Action: decision.Buy, AsOf: time.Now().UTC(), CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Decisions().Insert(context.Background(), d))
	s := newTestServer(store)

	rec := doRequest(s, http.MethodGet, "/api/v1/decisions?limit=10")

	require.Equal(t, http.StatusOK, rec.Code)
	var got []decision.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "ACME", got[0].Instrument)
}

func TestRecentDecisions_BadLimit(t *testing.T) {
	s := newTestServer(memory.NewStore())

	for _, target := range []string{
		"/api/v1/decisions?limit=0",
		"/api/v1/decisions?limit=501",
		"/api/v1/decisions?limit=many",
	} {
		rec := doRequest(s, http.MethodGet, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestDecisionByID(t *testing.T) {
	store := memory.NewStore()
	d := decision.Decision{ID: decision.NewID(), Instrument: "ACME", AsOf: time.Now().UTC()}
	require.NoError(t, store.Decisions().Insert(context.Background(), d))
	s := newTestServer(store)

	rec := doRequest(s, http.MethodGet, "/api/v1/decisions/"+d.ID)

	require.Equal(t, http.StatusOK, rec.Code)
	var got decision.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, d.ID, got.ID)
}

func TestDecisionByID_NotFound(t *testing.T) {
	s := newTestServer(memory.NewStore())

	rec := doRequest(s, http.MethodGet, "/api/v1/decisions/no-such-id")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPerformance(t *testing.T) {
	store := memory.NewStore()
	o := outcome.NewOutcome(decision.Decision{
		ID: decision.NewID(), Instrument: "ACME", Sector: "technology",
		Action: decision.Buy, RawConfidence: 72, AsOf: time.Now().UTC().AddDate(0, 0, -40),
	})
	o.Status = outcome.Tracking
	o.Horizons = map[int]outcome.HorizonResult{30: {Days: 30, ReturnPct: 12, AlphaPct: 9}}
	require.NoError(t, store.Outcomes().Insert(context.Background(), o))
	s := newTestServer(store)

	rec := doRequest(s, http.MethodGet, "/api/v1/performance?sector=technology")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"tracked":1`)
	assert.Contains(t, body, `"GOOD":1`)
}

func TestPerformance_BadWindow(t *testing.T) {
	s := newTestServer(memory.NewStore())

	rec := doRequest(s, http.MethodGet, "/api/v1/performance?window_days=-5")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
