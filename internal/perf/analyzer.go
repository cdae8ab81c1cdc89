package perf

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/alphagate/alphagate/internal/calibration"
	"github.com/alphagate/alphagate/internal/outcome"
)

// Filter restricts an aggregation to one instrument or sector; the zero
// value aggregates globally.
type Filter struct {
	Instrument string `json:"instrument,omitempty"`
	Sector     string `json:"sector,omitempty"`
}

// BucketStat is the win rate and sample count for one confidence bucket.
type BucketStat struct {
	WinRate float64 `json:"win_rate"`
	Rated   int     `json:"rated"`
}

func (f Filter) matches(o *outcome.Outcome) bool {
	if f.Instrument != "" && o.Instrument != f.Instrument {
		return false
	}
	if f.Sector != "" && o.Sector != f.Sector {
		return false
	}
	return true
}

// Analyzer is a read-only aggregator over tracked outcomes. It runs after
// the tracker finishes a batch and publishes the calibration snapshot the
// confidence calibrator reads, closing the feedback loop. Aggregations
// tolerate partially completed outcomes: each record contributes its best
// available horizon at or below the requested window, and records with no
// computed horizon are skipped rather than counted against the denominator.
type Analyzer struct {
	bucketWidth float64
}

// NewAnalyzer creates an analyzer. bucketWidth is the confidence bucket
// granularity shared with the calibrator.
func NewAnalyzer(bucketWidth float64) *Analyzer {
	if bucketWidth <= 0 {
		bucketWidth = 5
	}
	return &Analyzer{bucketWidth: bucketWidth}
}

// WinRate returns the fraction of correct calls within the window, and
// the sample count behind it.
func (a *Analyzer) WinRate(outcomes []*outcome.Outcome, f Filter, windowDays int) (float64, int) {
	wins, total := 0, 0
	for _, o := range outcomes {
		if !f.matches(o) {
			continue
		}
		hr, ok := o.BestHorizonAtMost(windowDays)
		if !ok {
			continue
		}
		total++
		q := outcome.ClassifyQuality(o.Action, hr.ReturnPct)
		if q == outcome.Excellent || q == outcome.Good {
			wins++
		}
	}
	if total == 0 {
		return 0, 0
	}
	return float64(wins) / float64(total), total
}

// AlphaVsBenchmark returns the mean realized alpha within the window.
func (a *Analyzer) AlphaVsBenchmark(outcomes []*outcome.Outcome, f Filter, windowDays int) (float64, int) {
	sum, total := 0.0, 0
	for _, o := range outcomes {
		if !f.matches(o) {
			continue
		}
		hr, ok := o.BestHorizonAtMost(windowDays)
		if !ok {
			continue
		}
		sum += hr.AlphaPct
		total++
	}
	if total == 0 {
		return 0, 0
	}
	return sum / float64(total), total
}

// QualityDistribution returns the outcome-quality histogram within the
// window, graded at each record's best available horizon.
func (a *Analyzer) QualityDistribution(outcomes []*outcome.Outcome, f Filter, windowDays int) map[outcome.Quality]int {
	dist := map[outcome.Quality]int{}
	for _, o := range outcomes {
		if !f.matches(o) {
			continue
		}
		hr, ok := o.BestHorizonAtMost(windowDays)
		if !ok {
			continue
		}
		dist[outcome.ClassifyQuality(o.Action, hr.ReturnPct)]++
	}
	return dist
}

// WinRateByBucket returns the win rate per raw-confidence bucket within
// the window, keyed by bucket floor.
func (a *Analyzer) WinRateByBucket(outcomes []*outcome.Outcome, f Filter, windowDays int) map[string]BucketStat {
	wins := map[string]int{}
	totals := map[string]int{}
	for _, o := range outcomes {
		if !f.matches(o) {
			continue
		}
		hr, ok := o.BestHorizonAtMost(windowDays)
		if !ok {
			continue
		}
		key := calibration.BucketKey(o.RawConfidence, a.bucketWidth)
		totals[key]++
		q := outcome.ClassifyQuality(o.Action, hr.ReturnPct)
		if q == outcome.Excellent || q == outcome.Good {
			wins[key]++
		}
	}
	stats := make(map[string]BucketStat, len(totals))
	for key, total := range totals {
		stats[key] = BucketStat{
			WinRate: float64(wins[key]) / float64(total),
			Rated:   total,
		}
	}
	return stats
}

// BuildCalibrationSnapshot aggregates stored (confidence, win) samples
// into the immutable per-batch snapshot the calibrator reads. The sample
// repositories already exclude unrated outcomes; the engine refreshes
// through here so bucket granularity lives in one place.
func (a *Analyzer) BuildCalibrationSnapshot(samples []calibration.Sample, builtAt time.Time) *calibration.Snapshot {
	snap := calibration.BuildSnapshot(samples, a.bucketWidth, builtAt)
	log.Info().Int("samples", len(samples)).
		Int("instruments", len(snap.Instruments)).
		Int("sectors", len(snap.Sectors)).
		Msg("calibration snapshot built")
	return snap
}

// InstrumentWinRate returns the instrument's historical accuracy when it
// has at least minSamples graded outcomes, for the sizer's accuracy
// multiplier.
func (a *Analyzer) InstrumentWinRate(snap *calibration.Snapshot, instrument string, minSamples int) *float64 {
	p, ok := snap.Instruments[instrument]
	if !ok || p.SampleCount < minSamples {
		return nil
	}
	rate := p.WinRate
	return &rate
}
