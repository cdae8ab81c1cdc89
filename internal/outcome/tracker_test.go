package outcome

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphagate/alphagate/internal/decision"
)

type stubPrices struct {
	prices map[string]float64 // keyed by "INSTRUMENT:YYYY-MM-DD"
	err    error
}

func (s stubPrices) PriceAt(_ context.Context, instrument string, date time.Time) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	price, ok := s.prices[instrument+":"+date.Format("2006-01-02")]
	if !ok {
		return 0, errors.New("no price")
	}
	return price, nil
}

type stubBenchmark struct {
	returnPct float64
	err       error
}

func (s stubBenchmark) BenchmarkReturn(_ context.Context, _, _ time.Time) (float64, error) {
	return s.returnPct, s.err
}

type flakyBenchmark struct {
	failures  int // calls to fail before recovering
	returnPct float64
	calls     int
}

func (s *flakyBenchmark) BenchmarkReturn(_ context.Context, _, _ time.Time) (float64, error) {
	s.calls++
	if s.calls <= s.failures {
		return 0, errors.New("benchmark down")
	}
	return s.returnPct, nil
}

type stubInactive map[string]bool

func (s stubInactive) IsInactive(_ context.Context, instrument string) bool { return s[instrument] }

var decidedAt = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func testOutcome(action decision.Action) *Outcome {
	return NewOutcome(decision.Decision{
		ID:            decision.NewID(),
		Instrument:    "ACME",
		Sector:        "technology",
		Action:        action,
		EntryPrice:    100,
		AsOf:          decidedAt,
		RawConfidence: 72,
	})
}

func pricesFor(horizonPrices map[int]float64) stubPrices {
	prices := map[string]float64{}
	for days, price := range horizonPrices {
		key := "ACME:" + decidedAt.AddDate(0, 0, days).Format("2006-01-02")
		prices[key] = price
	}
	return stubPrices{prices: prices}
}

func TestTracker_PendingToTrackingOnFirstHorizon(t *testing.T) {
	tracker := NewTracker(TrackerConfig{Horizons: []int{1, 3, 7}},
		pricesFor(map[int]float64{1: 102}), stubBenchmark{returnPct: 0.5}, nil)

	o := testOutcome(decision.Buy)
	updated := tracker.Process(context.Background(), []*Outcome{o}, decidedAt.AddDate(0, 0, 1))

	require.Len(t, updated, 1)
	assert.Equal(t, Tracking, o.Status)
	require.Contains(t, o.Horizons, 1)
	assert.InDelta(t, 2.0, o.Horizons[1].ReturnPct, 0.001)
	assert.InDelta(t, 1.5, o.Horizons[1].AlphaPct, 0.001)
	assert.Equal(t, NotRated, o.Quality, "quality waits for the 30-day horizon")
	assert.False(t, o.NeedsRetry)
}

func TestTracker_GradesAtThirtyDays(t *testing.T) {
	tracker := NewTracker(TrackerConfig{Horizons: []int{7, 30, 60}},
		pricesFor(map[int]float64{7: 103, 30: 109}), stubBenchmark{returnPct: 1.0}, nil)

	o := testOutcome(decision.Buy)
	tracker.Process(context.Background(), []*Outcome{o}, decidedAt.AddDate(0, 0, 30))

	assert.Equal(t, Tracking, o.Status, "60-day horizon still outstanding")
	assert.Equal(t, Good, o.Quality, "a 9 percent gain on a BUY grades GOOD")
	assert.InDelta(t, 9.0, o.Horizons[30].ReturnPct, 0.001)
}

func TestTracker_CompletesAtLongestHorizon(t *testing.T) {
	tracker := NewTracker(TrackerConfig{Horizons: []int{7, 30}},
		pricesFor(map[int]float64{7: 103, 30: 116}), stubBenchmark{returnPct: 2.0}, nil)

	o := testOutcome(decision.Buy)
	tracker.Process(context.Background(), []*Outcome{o}, decidedAt.AddDate(0, 0, 35))

	assert.Equal(t, Completed, o.Status)
	assert.Equal(t, Excellent, o.Quality)
	assert.Equal(t, 116.0, o.PeakPrice)
	assert.Equal(t, 103.0, o.TroughPrice)
}

func TestTracker_PriceFailureSoftFails(t *testing.T) {
	tracker := NewTracker(TrackerConfig{Horizons: []int{1, 3}},
		stubPrices{err: errors.New("vendor down")}, stubBenchmark{}, nil)

	o := testOutcome(decision.Buy)
	other := testOutcome(decision.Buy)
	other.Instrument = "BTRX"

	updated := tracker.Process(context.Background(), []*Outcome{o, other}, decidedAt.AddDate(0, 0, 3))

	assert.Len(t, updated, 2, "flagged records must be persisted for retry")
	assert.True(t, o.NeedsRetry)
	assert.Equal(t, Pending, o.Status, "failed fetch leaves the state machine alone")
	assert.Empty(t, o.Horizons)
}

func TestTracker_RetryClearsFlagOnSuccess(t *testing.T) {
	o := testOutcome(decision.Buy)
	o.NeedsRetry = true

	tracker := NewTracker(TrackerConfig{Horizons: []int{1}},
		pricesFor(map[int]float64{1: 101}), stubBenchmark{}, nil)
	tracker.Process(context.Background(), []*Outcome{o}, decidedAt.AddDate(0, 0, 2))

	assert.False(t, o.NeedsRetry)
	assert.Equal(t, Completed, o.Status)
}

func TestTracker_BenchmarkFailureSoftFails(t *testing.T) {
	tracker := NewTracker(TrackerConfig{Horizons: []int{1}},
		pricesFor(map[int]float64{1: 105}), stubBenchmark{err: errors.New("no benchmark")}, nil)

	o := testOutcome(decision.Buy)
	updated := tracker.Process(context.Background(), []*Outcome{o}, decidedAt.AddDate(0, 0, 1))

	require.Len(t, updated, 1)
	assert.True(t, o.NeedsRetry)
	assert.Empty(t, o.Horizons, "a horizon without a benchmark would hold a fake alpha")
	assert.Equal(t, Pending, o.Status)
}

func TestTracker_BenchmarkRecoveryRecordsTrueAlpha(t *testing.T) {
	bench := &flakyBenchmark{failures: 1, returnPct: 6.0}
	tracker := NewTracker(TrackerConfig{Horizons: []int{30, 60}},
		pricesFor(map[int]float64{30: 109}), bench, nil)

	o := testOutcome(decision.Buy)
	asOf := decidedAt.AddDate(0, 0, 30)

	tracker.Process(context.Background(), []*Outcome{o}, asOf)
	require.True(t, o.NeedsRetry)
	require.Empty(t, o.Horizons)

	tracker.Process(context.Background(), []*Outcome{o}, asOf.AddDate(0, 0, 1))
	assert.False(t, o.NeedsRetry)
	require.Contains(t, o.Horizons, 30)
	assert.InDelta(t, 9.0, o.Horizons[30].ReturnPct, 0.001)
	assert.InDelta(t, 6.0, o.Horizons[30].BenchmarkReturnPct, 0.001)
	assert.InDelta(t, 3.0, o.Horizons[30].AlphaPct, 0.001)
}

func TestTracker_InactiveInstrumentCompletesEarly(t *testing.T) {
	tracker := NewTracker(TrackerConfig{Horizons: []int{7, 90}},
		pricesFor(map[int]float64{7: 88}), stubBenchmark{},
		stubInactive{"ACME": true})

	o := testOutcome(decision.Buy)
	tracker.Process(context.Background(), []*Outcome{o}, decidedAt.AddDate(0, 0, 10))

	assert.Equal(t, Completed, o.Status)
	assert.Equal(t, Failed, o.Quality, "graded on the best available horizon")
}

func TestTracker_CompletedOutcomesSkipped(t *testing.T) {
	tracker := NewTracker(TrackerConfig{Horizons: []int{1}},
		pricesFor(map[int]float64{1: 120}), stubBenchmark{}, nil)

	o := testOutcome(decision.Buy)
	o.Status = Completed

	updated := tracker.Process(context.Background(), []*Outcome{o}, decidedAt.AddDate(0, 0, 5))

	assert.Empty(t, updated)
	assert.Empty(t, o.Horizons)
}

func TestClassifyQuality_BuyThresholds(t *testing.T) {
	tests := []struct {
		returnPct float64
		want      Quality
	}{
		{20, Excellent},
		{15, Excellent},
		{9, Good},
		{8, Good},
		{3, Neutral},
		{0, Neutral},
		{-3, Poor},
		{-5, Poor},
		{-12, Failed},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("buy %+.0f%%", tt.returnPct), func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyQuality(decision.Buy, tt.returnPct))
		})
	}
}

func TestClassifyQuality_NonBuyMirrors(t *testing.T) {
	tests := []struct {
		returnPct float64
		want      Quality
	}{
		{-15, Excellent},
		{-10, Excellent},
		{-2, Good},
		{0, Good},
		{4, Neutral},
		{8, Poor},
		{12, Failed},
	}
	for _, action := range []decision.Action{decision.Wait, decision.Reject} {
		for _, tt := range tests {
			t.Run(fmt.Sprintf("%s %+.0f%%", action, tt.returnPct), func(t *testing.T) {
				assert.Equal(t, tt.want, ClassifyQuality(action, tt.returnPct))
			})
		}
	}
}

func TestNewOutcome_CopiesDecisionFields(t *testing.T) {
	d := decision.Decision{
		ID:            "d-1",
		Instrument:    "ACME",
		Sector:        "technology",
		Action:        decision.Wait,
		EntryPrice:    42,
		AsOf:          decidedAt,
		RawConfidence: 66,
	}

	o := NewOutcome(d)

	assert.NotEmpty(t, o.ID)
	assert.Equal(t, "d-1", o.DecisionID)
	assert.Equal(t, Pending, o.Status)
	assert.Equal(t, 66.0, o.RawConfidence)
	assert.NotNil(t, o.Horizons)
}
