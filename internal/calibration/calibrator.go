package calibration

import (
	"math"

	"github.com/rs/zerolog/log"
)

// Calibration scope names, in fallback order.
const (
	ScopeInstrument = "instrument"
	ScopeSector     = "sector"
	ScopeBucket     = "bucket"
	ScopeNone       = "none"
)

// MinSamples holds the per-scope sample minimums below which a scope is
// not yet calibratable.
type MinSamples struct {
	Instrument int `yaml:"instrument"` // default 2
	Sector     int `yaml:"sector"`     // default 5
	Bucket     int `yaml:"bucket"`     // default 3
}

// Config holds calibrator parameters.
type Config struct {
	MinSamples  MinSamples `yaml:"min_samples"`
	BucketWidth float64    `yaml:"bucket_width"` // confidence points per bucket, default 5

	// ReferenceGamma shapes the reference win rate curve:
	// reference = (raw/100)^gamma. Gamma 1 means confidence N should
	// correspond to an N% historical win rate. Tunable, validated
	// empirically rather than assumed.
	ReferenceGamma float64 `yaml:"reference_gamma"`
}

// DefaultConfig returns the production calibration parameters.
func DefaultConfig() Config {
	return Config{
		MinSamples:     MinSamples{Instrument: 2, Sector: 5, Bucket: 3},
		BucketWidth:    5,
		ReferenceGamma: 1.0,
	}
}

// Result carries the calibrated confidence and the scope that produced it
// for audit.
type Result struct {
	Calibrated  float64 `json:"calibrated"`
	Scope       string  `json:"scope"`
	WinRate     float64 `json:"win_rate"`
	SampleCount int     `json:"sample_count"`
}

// resolver tries one calibration scope, returning the profile and whether
// the scope is applicable for this lookup.
type resolver struct {
	scope   string
	resolve func(snap *Snapshot, instrument, sector string, raw float64) (Profile, bool)
}

// Calibrator adjusts raw confidence toward historically observed accuracy.
// Scopes are tried in order - instrument, sector, global confidence
// bucket - and the first with enough samples wins; with no calibratable
// scope the raw confidence passes through unchanged.
type Calibrator struct {
	config    Config
	resolvers []resolver
}

// New creates a calibrator with the standard scope fallback chain.
func New(config Config) *Calibrator {
	if config.BucketWidth <= 0 {
		config.BucketWidth = 5
	}
	if config.MinSamples.Instrument <= 0 {
		config.MinSamples.Instrument = 2
	}
	if config.MinSamples.Sector <= 0 {
		config.MinSamples.Sector = 5
	}
	if config.MinSamples.Bucket <= 0 {
		config.MinSamples.Bucket = 3
	}
	if config.ReferenceGamma <= 0 {
		config.ReferenceGamma = 1.0
	}

	c := &Calibrator{config: config}
	c.resolvers = []resolver{
		{
			scope: ScopeInstrument,
			resolve: func(snap *Snapshot, instrument, _ string, _ float64) (Profile, bool) {
				p, ok := snap.Instruments[instrument]
				return p, ok && p.SampleCount >= config.MinSamples.Instrument
			},
		},
		{
			scope: ScopeSector,
			resolve: func(snap *Snapshot, _, sector string, _ float64) (Profile, bool) {
				p, ok := snap.Sectors[sector]
				return p, ok && p.SampleCount >= config.MinSamples.Sector
			},
		},
		{
			scope: ScopeBucket,
			resolve: func(snap *Snapshot, _, _ string, raw float64) (Profile, bool) {
				p, ok := snap.Buckets[BucketKey(raw, config.BucketWidth)]
				return p, ok && p.SampleCount >= config.MinSamples.Bucket
			},
		},
	}
	return c
}

// Calibrate maps raw confidence to calibrated confidence using the first
// applicable scope. The output is always within [0,100] and equals the
// input when no scope has sufficient samples.
func (c *Calibrator) Calibrate(snap *Snapshot, raw float64, instrument, sector string) Result {
	raw = clamp(raw, 0, 100)
	if snap == nil {
		return Result{Calibrated: raw, Scope: ScopeNone}
	}

	for _, r := range c.resolvers {
		profile, ok := r.resolve(snap, instrument, sector, raw)
		if !ok {
			continue
		}
		calibrated := c.apply(raw, profile.WinRate)
		log.Debug().Str("instrument", instrument).
			Str("scope", r.scope).
			Int("samples", profile.SampleCount).
			Float64("win_rate", profile.WinRate).
			Float64("raw", raw).
			Float64("calibrated", calibrated).
			Msg("confidence calibrated")
		return Result{
			Calibrated:  calibrated,
			Scope:       r.scope,
			WinRate:     profile.WinRate,
			SampleCount: profile.SampleCount,
		}
	}

	// Insufficient data everywhere: degrade gracefully, never error.
	return Result{Calibrated: raw, Scope: ScopeNone}
}

// apply scales raw confidence by observed accuracy relative to the
// reference win rate a perfectly calibrated system would show at that
// confidence level.
func (c *Calibrator) apply(raw, winRate float64) float64 {
	if raw <= 0 {
		return 0
	}
	reference := math.Pow(raw/100, c.config.ReferenceGamma)
	if reference <= 0 {
		return raw
	}
	return clamp(raw*winRate/reference, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
