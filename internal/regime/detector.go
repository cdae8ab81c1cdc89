package regime

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
)

// BenchmarkSource provides benchmark index closes for classification.
// Implementations must return closes in chronological order, oldest first.
type BenchmarkSource interface {
	BenchmarkCloses(ctx context.Context, asOf time.Time, days int) ([]float64, error)
}

// DetectorConfig holds classification thresholds
type DetectorConfig struct {
	MAPeriod         int     `yaml:"ma_period"`           // trailing MA window, default 50
	LookbackDays     int     `yaml:"lookback_days"`       // closes fetched per detection, default 120
	MinSamples       int     `yaml:"min_samples"`         // below this the regime is unknown, default 30
	TrendBandPct     float64 `yaml:"trend_band_pct"`      // neutral band around the MA, default 2.0
	VolLowThreshold  float64 `yaml:"vol_low_threshold"`   // annualized, default 0.10
	VolHighThreshold float64 `yaml:"vol_high_threshold"`  // annualized, default 0.20
	VolExtremeThresh float64 `yaml:"vol_extreme_thresh"`  // annualized, default 0.30
	TradingDaysYear  float64 `yaml:"trading_days_a_year"` // default 252
}

// DefaultDetectorConfig returns production classification thresholds
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		MAPeriod:         50,
		LookbackDays:     120,
		MinSamples:       30,
		TrendBandPct:     2.0,
		VolLowThreshold:  0.10,
		VolHighThreshold: 0.20,
		VolExtremeThresh: 0.30,
		TradingDaysYear:  252,
	}
}

// Detector classifies the market regime from benchmark closes.
// Detect is called once per batch; the returned Regime is an immutable
// snapshot threaded through every per-instrument evaluation.
type Detector struct {
	config DetectorConfig
	source BenchmarkSource
}

// NewDetector creates a detector over the given benchmark source
func NewDetector(source BenchmarkSource, config DetectorConfig) *Detector {
	if config.MAPeriod <= 0 {
		config = DefaultDetectorConfig()
	}
	return &Detector{config: config, source: source}
}

// Detect classifies the regime as of the given date. Insufficient history
// yields an unknown regime, never an error: threshold selection degrades to
// base values and the decision reasoning carries a regime-unknown note.
func (d *Detector) Detect(ctx context.Context, asOf time.Time) (Regime, error) {
	closes, err := d.source.BenchmarkCloses(ctx, asOf, d.config.LookbackDays)
	if err != nil {
		return Unknown(asOf), fmt.Errorf("fetch benchmark closes: %w", err)
	}
	if len(closes) < d.config.MinSamples {
		log.Warn().Int("samples", len(closes)).Int("min", d.config.MinSamples).
			Msg("insufficient benchmark history, regime unknown")
		return Unknown(asOf), nil
	}

	r := Regime{AsOf: asOf, Known: true}

	maWindow := d.config.MAPeriod
	if maWindow > len(closes) {
		maWindow = len(closes)
	}
	ma := mean(closes[len(closes)-maWindow:])
	last := closes[len(closes)-1]
	r.PriceVsMA = last/ma - 1

	band := d.config.TrendBandPct / 100
	switch {
	case r.PriceVsMA > band:
		r.Trend = TrendBull
	case r.PriceVsMA < -band:
		r.Trend = TrendBear
	default:
		r.Trend = TrendNeutral
	}

	r.RealizedVolAnnualized = annualizedVol(closes, d.config.TradingDaysYear)
	switch {
	case r.RealizedVolAnnualized < d.config.VolLowThreshold:
		r.Volatility = VolLow
	case r.RealizedVolAnnualized < d.config.VolHighThreshold:
		r.Volatility = VolNormal
	case r.RealizedVolAnnualized < d.config.VolExtremeThresh:
		r.Volatility = VolHigh
	default:
		r.Volatility = VolVeryHigh
	}

	log.Debug().Str("regime", r.String()).
		Float64("price_vs_ma", r.PriceVsMA).
		Float64("realized_vol", r.RealizedVolAnnualized).
		Msg("regime classified")

	return r, nil
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// annualizedVol computes the standard deviation of daily simple returns
// scaled by sqrt of trading days per year.
func annualizedVol(closes []float64, tradingDays float64) float64 {
	if len(closes) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, closes[i]/closes[i-1]-1)
	}
	if len(returns) < 2 {
		return 0
	}
	m := mean(returns)
	ss := 0.0
	for _, ret := range returns {
		ss += (ret - m) * (ret - m)
	}
	daily := math.Sqrt(ss / float64(len(returns)-1))
	return daily * math.Sqrt(tradingDays)
}
