package outcome

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/alphagate/alphagate/internal/decision"
)

// CanonicalHorizonDays is the horizon at which outcome quality is graded.
const CanonicalHorizonDays = 30

// DefaultHorizons are the elapsed-day marks at which returns are measured.
var DefaultHorizons = []int{1, 3, 7, 14, 30, 60, 90}

// PriceSource provides the instrument price at a date. Unavailable data
// must be signalled with an error, never a zero price.
type PriceSource interface {
	PriceAt(ctx context.Context, instrument string, date time.Time) (float64, error)
}

// BenchmarkReturnSource provides the benchmark return over a window, in
// percent.
type BenchmarkReturnSource interface {
	BenchmarkReturn(ctx context.Context, from, to time.Time) (float64, error)
}

// InactiveChecker reports instruments that have been delisted or
// deactivated; their outcomes complete early.
type InactiveChecker interface {
	IsInactive(ctx context.Context, instrument string) bool
}

// TrackerConfig holds outcome tracking parameters.
type TrackerConfig struct {
	Horizons    []int `yaml:"horizons"`
	Concurrency int   `yaml:"concurrency"` // parallel outcome workers, default 8
}

// DefaultTrackerConfig returns production tracking parameters.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{Horizons: DefaultHorizons, Concurrency: 8}
}

// Tracker advances recommendation outcomes through their
// PENDING -> TRACKING -> COMPLETED lifecycle on each batch run.
// Processing parallelizes across records; each record has a single writer
// goroutine, so no outcome is ever mutated concurrently.
type Tracker struct {
	config    TrackerConfig
	prices    PriceSource
	benchmark BenchmarkReturnSource
	inactive  InactiveChecker
}

// NewTracker creates a tracker over the given market-data collaborators.
// inactive may be nil when no deactivation feed exists.
func NewTracker(config TrackerConfig, prices PriceSource, benchmark BenchmarkReturnSource, inactive InactiveChecker) *Tracker {
	if len(config.Horizons) == 0 {
		config.Horizons = DefaultHorizons
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 8
	}
	sort.Ints(config.Horizons)
	return &Tracker{config: config, prices: prices, benchmark: benchmark, inactive: inactive}
}

// Process updates every non-completed outcome in place and returns the
// records that changed. A failed price or benchmark fetch soft-fails the
// one record (flagged for retry next batch) and never blocks the others.
func (t *Tracker) Process(ctx context.Context, outcomes []*Outcome, asOf time.Time) []*Outcome {
	work := make(chan *Outcome)
	var mu sync.Mutex
	var updated []*Outcome

	var wg sync.WaitGroup
	for i := 0; i < t.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for o := range work {
				if t.update(ctx, o, asOf) {
					mu.Lock()
					updated = append(updated, o)
					mu.Unlock()
				}
			}
		}()
	}

	for _, o := range outcomes {
		if o.Status == Completed {
			continue
		}
		work <- o
	}
	close(work)
	wg.Wait()

	log.Info().Int("processed", len(outcomes)).Int("updated", len(updated)).
		Msg("outcome tracking pass complete")

	return updated
}

// update advances one outcome; returns true when the record changed.
func (t *Tracker) update(ctx context.Context, o *Outcome, asOf time.Time) bool {
	changed := false
	elapsed := int(asOf.Sub(o.DecidedAt).Hours() / 24)

	for _, days := range t.config.Horizons {
		if days > elapsed {
			break
		}
		if _, done := o.Horizons[days]; done {
			continue
		}

		horizonDate := o.DecidedAt.AddDate(0, 0, days)
		price, err := t.prices.PriceAt(ctx, o.Instrument, horizonDate)
		if err != nil {
			// Soft failure: leave the state machine alone, flag for
			// retry, move on to the next record.
			o.NeedsRetry = true
			o.UpdatedAt = asOf
			log.Warn().Err(err).Str("instrument", o.Instrument).Int("horizon_days", days).
				Msg("price unavailable, outcome flagged for retry")
			return true
		}

		result := HorizonResult{
			Days:       days,
			Price:      price,
			ObservedAt: asOf,
		}
		if o.EntryPrice > 0 {
			result.ReturnPct = (price - o.EntryPrice) / o.EntryPrice * 100
		}

		bench, err := t.benchmark.BenchmarkReturn(ctx, o.DecidedAt, horizonDate)
		if err != nil {
			// Same soft failure as a missing price: recording the horizon
			// without a benchmark would bake a fake alpha into the record.
			o.NeedsRetry = true
			o.UpdatedAt = asOf
			log.Warn().Err(err).Str("instrument", o.Instrument).Int("horizon_days", days).
				Msg("benchmark unavailable, outcome flagged for retry")
			return true
		}
		result.BenchmarkReturnPct = bench
		result.AlphaPct = result.ReturnPct - bench

		o.Horizons[days] = result
		o.NeedsRetry = false
		changed = true

		if o.PeakPrice == 0 || price > o.PeakPrice {
			o.PeakPrice = price
		}
		if o.TroughPrice == 0 || price < o.TroughPrice {
			o.TroughPrice = price
		}

		if o.Status == Pending {
			o.Status = Tracking
		}
		if days >= CanonicalHorizonDays && o.Quality == NotRated {
			o.Quality = ClassifyQuality(o.Action, result.ReturnPct)
		}
	}

	longest := t.config.Horizons[len(t.config.Horizons)-1]
	if _, done := o.Horizons[longest]; done {
		o.Status = Completed
	} else if t.inactive != nil && t.inactive.IsInactive(ctx, o.Instrument) {
		// Deactivated instrument: grade on the best data we have.
		if o.Quality == NotRated {
			if hr, ok := o.BestHorizonAtMost(longest); ok {
				o.Quality = ClassifyQuality(o.Action, hr.ReturnPct)
			}
		}
		o.Status = Completed
		changed = true
	}

	if changed {
		o.UpdatedAt = asOf
	}
	return changed
}

// ClassifyQuality grades a realized return against the decision polarity.
// For a BUY, rising prices grade well. For WAIT/REJECT the call was that
// the price would not rise, so the thresholds mirror: a fall grades well
// and a strong rise grades as a failure.
func ClassifyQuality(action decision.Action, returnPct float64) Quality {
	if action == decision.Buy {
		switch {
		case returnPct >= 15:
			return Excellent
		case returnPct >= 8:
			return Good
		case returnPct >= 0:
			return Neutral
		case returnPct >= -5:
			return Poor
		default:
			return Failed
		}
	}

	switch {
	case returnPct <= -10:
		return Excellent
	case returnPct <= 0:
		return Good
	case returnPct <= 5:
		return Neutral
	case returnPct <= 10:
		return Poor
	default:
		return Failed
	}
}
