package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphagate/alphagate/internal/decision"
	"github.com/alphagate/alphagate/internal/outcome"
	"github.com/alphagate/alphagate/internal/perf"
)

var decided = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

func ratedOutcome(instrument string, raw, returnPct, alphaPct float64, quality outcome.Quality) *outcome.Outcome {
	return &outcome.Outcome{
		ID:            decision.NewID(),
		Instrument:    instrument,
		Sector:        "technology",
		Action:        decision.Buy,
		DecidedAt:     decided,
		Status:        outcome.Tracking,
		RawConfidence: raw,
		Quality:       quality,
		Horizons: map[int]outcome.HorizonResult{
			30: {Days: 30, ReturnPct: returnPct, AlphaPct: alphaPct},
		},
	}
}

func TestBuild_WindowsQualityAndBuckets(t *testing.T) {
	analyzer := perf.NewAnalyzer(5)
	outcomes := []*outcome.Outcome{
		ratedOutcome("ACME", 72, 12, 9, outcome.Good),
		ratedOutcome("BTRX", 88, 20, 16, outcome.Excellent),
		ratedOutcome("CGNT", 66, -9, -11, outcome.Failed),
	}
	now := decided.AddDate(0, 2, 0)

	r := Build(analyzer, outcomes, perf.Filter{}, now)

	assert.Equal(t, now, r.GeneratedAt)
	assert.Equal(t, 3, r.Tracked)
	require.Len(t, r.Windows, len(DefaultWindows))

	// no horizon fits inside 7 days, both longer windows see all three
	assert.Zero(t, r.Windows[0].Rated)
	assert.Equal(t, 3, r.Windows[1].Rated)
	assert.InDelta(t, 2.0/3.0, r.Windows[2].WinRate, 0.001)
	assert.InDelta(t, (9.0+16.0-11.0)/3.0, r.Windows[2].Alpha, 0.001)

	assert.Equal(t, 1, r.Quality["GOOD"])
	assert.Equal(t, 1, r.Quality["EXCELLENT"])
	assert.Equal(t, 1, r.Quality["FAILED"])

	require.Contains(t, r.Buckets, "85")
	assert.InDelta(t, 1.0, r.Buckets["85"].WinRate, 0.001)
	require.Contains(t, r.Buckets, "65")
	assert.Zero(t, r.Buckets["65"].WinRate)
	assert.Equal(t, 1, r.Buckets["65"].Rated)
}

func TestBuild_FilterNarrowsEverySection(t *testing.T) {
	analyzer := perf.NewAnalyzer(5)
	outcomes := []*outcome.Outcome{
		ratedOutcome("ACME", 72, 12, 9, outcome.Good),
		ratedOutcome("BTRX", 88, -9, -11, outcome.Failed),
	}

	r := Build(analyzer, outcomes, perf.Filter{Instrument: "ACME"}, decided.AddDate(0, 2, 0))

	assert.InDelta(t, 1.0, r.Windows[2].WinRate, 0.001)
	assert.Equal(t, 1, r.Quality["GOOD"])
	assert.Zero(t, r.Quality["FAILED"])
	assert.NotContains(t, r.Buckets, "85")
}

func TestRender_ContainsFilterWindowsAndBuckets(t *testing.T) {
	analyzer := perf.NewAnalyzer(5)
	outcomes := []*outcome.Outcome{
		ratedOutcome("ACME", 72, 12, 9, outcome.Good),
	}

	r := Build(analyzer, outcomes, perf.Filter{Sector: "technology"}, decided.AddDate(0, 2, 0))
	text := r.Render()

	assert.Contains(t, text, "Performance report")
	assert.Contains(t, text, "Sector: technology")
	assert.Contains(t, text, "Tracked outcomes: 1")
	assert.Contains(t, text, " 30d")
	assert.Contains(t, text, "GOOD")
	assert.Contains(t, text, "70+")
}

func TestRender_BucketsSortNumerically(t *testing.T) {
	r := &Report{
		GeneratedAt: decided,
		Quality:     map[string]int{},
		Buckets: map[string]perf.BucketStat{
			"100": {WinRate: 1, Rated: 1},
			"55":  {WinRate: 0.5, Rated: 2},
			"90":  {WinRate: 0.8, Rated: 5},
		},
	}

	text := r.Render()

	i55 := strings.Index(text, "55+")
	i90 := strings.Index(text, "90+")
	i100 := strings.Index(text, "100+")
	require.NotEqual(t, -1, i55)
	assert.Less(t, i55, i90)
	assert.Less(t, i90, i100)
}
