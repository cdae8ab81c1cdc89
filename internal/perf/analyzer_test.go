package perf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphagate/alphagate/internal/calibration"
	"github.com/alphagate/alphagate/internal/decision"
	"github.com/alphagate/alphagate/internal/outcome"
)

func trackedOutcome(instrument, sector string, action decision.Action, raw float64, horizons map[int]float64) *outcome.Outcome {
	o := outcome.NewOutcome(decision.Decision{
		ID:            decision.NewID(),
		Instrument:    instrument,
		Sector:        sector,
		Action:        action,
		EntryPrice:    100,
		AsOf:          time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		RawConfidence: raw,
	})
	for days, returnPct := range horizons {
		o.Horizons[days] = outcome.HorizonResult{
			Days:      days,
			ReturnPct: returnPct,
			AlphaPct:  returnPct - 1,
		}
		if days >= outcome.CanonicalHorizonDays && o.Quality == outcome.NotRated {
			o.Quality = outcome.ClassifyQuality(action, returnPct)
		}
	}
	if len(o.Horizons) > 0 {
		o.Status = outcome.Tracking
	}
	return o
}

func testSet() []*outcome.Outcome {
	return []*outcome.Outcome{
		trackedOutcome("ACME", "technology", decision.Buy, 72, map[int]float64{7: 4, 30: 12}),  // Good
		trackedOutcome("ACME", "technology", decision.Buy, 68, map[int]float64{7: -2, 30: -8}), // Failed
		trackedOutcome("BTRX", "energy", decision.Buy, 85, map[int]float64{7: 9, 30: 16}),      // Excellent
		trackedOutcome("CGNT", "energy", decision.Wait, 55, map[int]float64{30: -4}),           // Good (mirror)
		trackedOutcome("DYNO", "technology", decision.Buy, 60, nil),                            // pending, no horizons
	}
}

func TestWinRate_SkipsRecordsWithoutHorizons(t *testing.T) {
	a := NewAnalyzer(5)

	rate, total := a.WinRate(testSet(), Filter{}, 30)

	assert.Equal(t, 4, total, "pending record must not count against the denominator")
	assert.InDelta(t, 0.75, rate, 0.001)
}

func TestWinRate_UsesBestHorizonWithinWindow(t *testing.T) {
	a := NewAnalyzer(5)

	// At a 7-day window the 30-day results are out of reach.
	rate, total := a.WinRate(testSet(), Filter{}, 7)

	assert.Equal(t, 3, total)
	// 7-day returns: +4 (neutral, not a win), -2 (poor), +9 (good): 1 of 3.
	assert.InDelta(t, 1.0/3.0, rate, 0.001)
}

func TestWinRate_FilterByInstrumentAndSector(t *testing.T) {
	a := NewAnalyzer(5)

	rate, total := a.WinRate(testSet(), Filter{Instrument: "ACME"}, 30)
	assert.Equal(t, 2, total)
	assert.InDelta(t, 0.5, rate, 0.001)

	_, total = a.WinRate(testSet(), Filter{Sector: "energy"}, 30)
	assert.Equal(t, 2, total)
}

func TestWinRate_EmptySet(t *testing.T) {
	a := NewAnalyzer(5)

	rate, total := a.WinRate(nil, Filter{}, 30)

	assert.Zero(t, rate)
	assert.Zero(t, total)
}

func TestAlphaVsBenchmark(t *testing.T) {
	a := NewAnalyzer(5)

	alpha, total := a.AlphaVsBenchmark(testSet(), Filter{}, 30)

	assert.Equal(t, 4, total)
	// Alphas at 30d: 11, -9, 15, -5.
	assert.InDelta(t, 3.0, alpha, 0.001)
}

func TestQualityDistribution(t *testing.T) {
	a := NewAnalyzer(5)

	dist := a.QualityDistribution(testSet(), Filter{}, 30)

	assert.Equal(t, 1, dist[outcome.Excellent])
	assert.Equal(t, 2, dist[outcome.Good])
	assert.Equal(t, 1, dist[outcome.Failed])
}

func TestWinRateByBucket(t *testing.T) {
	a := NewAnalyzer(5)

	stats := a.WinRateByBucket(testSet(), Filter{}, 30)

	require.Contains(t, stats, "70") // raw 72
	assert.Equal(t, 1, stats["70"].Rated)
	assert.InDelta(t, 1.0, stats["70"].WinRate, 0.001)

	require.Contains(t, stats, "85")
	assert.InDelta(t, 1.0, stats["85"].WinRate, 0.001)
}

func sampleSet() []calibration.Sample {
	decidedAt := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	return []calibration.Sample{
		{Instrument: "ACME", Sector: "technology", RawConfidence: 72, Win: true, DecidedAt: decidedAt},
		{Instrument: "ACME", Sector: "technology", RawConfidence: 68, Win: false, DecidedAt: decidedAt},
		{Instrument: "BTRX", Sector: "energy", RawConfidence: 85, Win: true, DecidedAt: decidedAt},
		{Instrument: "CGNT", Sector: "energy", RawConfidence: 55, Win: true, DecidedAt: decidedAt},
	}
}

func TestBuildCalibrationSnapshot_AggregatesByScope(t *testing.T) {
	a := NewAnalyzer(5)

	snap := a.BuildCalibrationSnapshot(sampleSet(), time.Now().UTC())

	assert.Equal(t, 4, snap.SampleTotal)
	require.Contains(t, snap.Instruments, "ACME")
	assert.Equal(t, 2, snap.Instruments["ACME"].SampleCount)
	assert.InDelta(t, 0.5, snap.Instruments["ACME"].WinRate, 0.001)
	require.Contains(t, snap.Sectors, "energy")
	assert.InDelta(t, 1.0, snap.Sectors["energy"].WinRate, 0.001)
	require.Contains(t, snap.Buckets, "70") // raw 72
}

func TestInstrumentWinRate_MinimumSamples(t *testing.T) {
	a := NewAnalyzer(5)
	snap := a.BuildCalibrationSnapshot(sampleSet(), time.Now().UTC())

	rate := a.InstrumentWinRate(snap, "ACME", 2)
	require.NotNil(t, rate)
	assert.InDelta(t, 0.5, *rate, 0.001)

	assert.Nil(t, a.InstrumentWinRate(snap, "ACME", 3), "below the minimum returns nil")
	assert.Nil(t, a.InstrumentWinRate(snap, "ZZZZ", 1))
}
