package regime

import "time"

// Trend classifies the benchmark's directional bias
type Trend int

const (
	TrendNeutral Trend = iota
	TrendBull
	TrendBear
)

func (t Trend) String() string {
	switch t {
	case TrendBull:
		return "bull"
	case TrendBear:
		return "bear"
	case TrendNeutral:
		return "neutral"
	default:
		return "unknown"
	}
}

// Volatility classifies realized benchmark volatility into coarse bands
type Volatility int

const (
	VolNormal Volatility = iota
	VolLow
	VolHigh
	VolVeryHigh
)

func (v Volatility) String() string {
	switch v {
	case VolLow:
		return "low"
	case VolNormal:
		return "normal"
	case VolHigh:
		return "high"
	case VolVeryHigh:
		return "very_high"
	default:
		return "unknown"
	}
}

// Regime is the coarse market classification used to adapt gate thresholds.
// Recomputed at most once per batch and treated as immutable afterwards.
type Regime struct {
	Trend      Trend      `json:"trend"`
	Volatility Volatility `json:"volatility"`
	AsOf       time.Time  `json:"as_of"`

	// Known is false when the benchmark history was insufficient to
	// classify; callers fall back to base thresholds and annotate the
	// decision with a regime-unknown note.
	Known bool `json:"known"`

	// Signal values recorded for audit.
	RealizedVolAnnualized float64 `json:"realized_vol_annualized"`
	PriceVsMA             float64 `json:"price_vs_ma"` // last close / trailing MA - 1
}

func (r Regime) String() string {
	if !r.Known {
		return "unknown"
	}
	return r.Trend.String() + "/" + r.Volatility.String()
}

// Unknown returns the fallback regime used when classification fails.
func Unknown(asOf time.Time) Regime {
	return Regime{AsOf: asOf, Known: false}
}
