package calibration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(instrument, sector string, raw float64, win bool) Sample {
	return Sample{
		Instrument:    instrument,
		Sector:        sector,
		RawConfidence: raw,
		Win:           win,
		DecidedAt:     time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestCalibrate_PerfectRecordBoostsToCeiling(t *testing.T) {
	cal := New(DefaultConfig())
	snap := BuildSnapshot([]Sample{
		sample("ACME", "technology", 70, true),
		sample("ACME", "technology", 72, true),
	}, 5, time.Now().UTC())

	res := cal.Calibrate(snap, 70, "ACME", "technology")

	assert.Equal(t, ScopeInstrument, res.Scope)
	assert.Equal(t, 2, res.SampleCount)
	assert.Equal(t, 1.0, res.WinRate)
	// 70 * 1.0 / 0.70 = 100, clamped at the ceiling.
	assert.Equal(t, 100.0, res.Calibrated)
}

func TestCalibrate_PoorRecordShrinksConfidence(t *testing.T) {
	cal := New(DefaultConfig())
	snap := BuildSnapshot([]Sample{
		sample("ACME", "technology", 80, true),
		sample("ACME", "technology", 80, false),
		sample("ACME", "technology", 80, false),
		sample("ACME", "technology", 80, false),
	}, 5, time.Now().UTC())

	res := cal.Calibrate(snap, 80, "ACME", "technology")

	// 80 * 0.25 / 0.80 = 25.
	assert.InDelta(t, 25.0, res.Calibrated, 0.01)
	assert.Less(t, res.Calibrated, 80.0)
}

func TestCalibrate_FallbackChain(t *testing.T) {
	now := time.Now().UTC()

	// One ACME sample (below instrument minimum of 2), five sector
	// samples, plenty of bucket samples.
	samples := []Sample{
		sample("ACME", "technology", 70, true),
		sample("BTRX", "technology", 71, true),
		sample("CGNT", "technology", 72, false),
		sample("DYNO", "technology", 73, true),
		sample("EXLR", "technology", 74, true),
	}
	snap := BuildSnapshot(samples, 5, now)
	cal := New(DefaultConfig())

	res := cal.Calibrate(snap, 70, "ACME", "technology")
	assert.Equal(t, ScopeSector, res.Scope, "one instrument sample falls through to sector")
	assert.Equal(t, 5, res.SampleCount)

	res = cal.Calibrate(snap, 70, "ZZZZ", "energy")
	assert.Equal(t, ScopeBucket, res.Scope, "unseen sector falls through to the confidence bucket")

	res = cal.Calibrate(snap, 20, "ZZZZ", "energy")
	assert.Equal(t, ScopeNone, res.Scope, "no scope with samples passes confidence through")
	assert.Equal(t, 20.0, res.Calibrated)
}

func TestNew_PartialConfigKeepsCallerFields(t *testing.T) {
	// Only the minimums are set; bucket width and gamma default without
	// wiping the caller's values.
	cal := New(Config{MinSamples: MinSamples{Instrument: 1, Sector: 5, Bucket: 3}})
	snap := BuildSnapshot([]Sample{
		sample("ACME", "technology", 70, true),
	}, 5, time.Now().UTC())

	res := cal.Calibrate(snap, 70, "ACME", "technology")

	assert.Equal(t, ScopeInstrument, res.Scope, "a minimum of one sample must survive defaulting")
	assert.Equal(t, 1, res.SampleCount)
	// 70 * 1.0 / 0.70 with the default gamma of 1.
	assert.Equal(t, 100.0, res.Calibrated)
}

func TestCalibrate_NilSnapshotPassesThrough(t *testing.T) {
	cal := New(DefaultConfig())

	res := cal.Calibrate(nil, 55, "ACME", "technology")

	assert.Equal(t, ScopeNone, res.Scope)
	assert.Equal(t, 55.0, res.Calibrated)
}

func TestCalibrate_OutputAlwaysInRange(t *testing.T) {
	cal := New(DefaultConfig())
	snap := BuildSnapshot([]Sample{
		sample("ACME", "technology", 5, true),
		sample("ACME", "technology", 5, true),
		sample("ACME", "technology", 5, true),
	}, 5, time.Now().UTC())

	for _, raw := range []float64{-10, 0, 5, 50, 100, 140} {
		res := cal.Calibrate(snap, raw, "ACME", "technology")
		assert.GreaterOrEqual(t, res.Calibrated, 0.0, "raw %v", raw)
		assert.LessOrEqual(t, res.Calibrated, 100.0, "raw %v", raw)
	}
}

func TestBucketKey(t *testing.T) {
	tests := []struct {
		raw   float64
		width float64
		want  string
	}{
		{72, 5, "70"},
		{70, 5, "70"},
		{74.9, 5, "70"},
		{75, 5, "75"},
		{0, 5, "0"},
		{100, 10, "100"},
		{33, 0, "30"}, // zero width falls back to 5
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BucketKey(tt.raw, tt.width))
	}
}

func TestBuildSnapshot_TalliesAllScopes(t *testing.T) {
	now := time.Now().UTC()
	snap := BuildSnapshot([]Sample{
		sample("ACME", "technology", 71, true),
		sample("ACME", "technology", 73, false),
		sample("BTRX", "energy", 88, true),
	}, 5, now)

	require.Contains(t, snap.Instruments, "ACME")
	assert.Equal(t, 2, snap.Instruments["ACME"].SampleCount)
	assert.Equal(t, 0.5, snap.Instruments["ACME"].WinRate)

	assert.Equal(t, 1, snap.Sectors["energy"].SampleCount)
	assert.Equal(t, 2, snap.Buckets["70"].SampleCount)
	assert.Equal(t, 1, snap.Buckets["85"].SampleCount)
	assert.Equal(t, 3, snap.SampleTotal)
	assert.Equal(t, now, snap.BuiltAt)
}

func TestCache_PublishSwapsAtomically(t *testing.T) {
	cache := NewCache()
	first := cache.Load()
	require.NotNil(t, first, "cache must start primed with an empty snapshot")
	assert.Zero(t, first.SampleTotal)

	snap := BuildSnapshot([]Sample{sample("ACME", "technology", 70, true)}, 5, time.Now().UTC())
	cache.Publish(snap)
	assert.Same(t, snap, cache.Load())

	cache.Publish(nil)
	assert.Same(t, snap, cache.Load(), "nil publish must be ignored")
}
