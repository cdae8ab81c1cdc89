package evidence

import "time"

// Bundle carries the per-instrument analytical evidence consumed by the
// gate evaluator. Every metric group and every field inside a group is
// optional: a nil pointer means the upstream layer could not produce the
// value, which is a first-class state rather than an error.
type Bundle struct {
	Instrument string    `json:"instrument"`
	Sector     string    `json:"sector"`
	AsOf       time.Time `json:"as_of"`

	Fundamental *FundamentalMetrics `json:"fundamental,omitempty"`
	Technical   *TechnicalMetrics   `json:"technical,omitempty"`
	Risk        *RiskMetrics        `json:"risk,omitempty"`
	Timing      *TimingMetrics      `json:"timing,omitempty"`

	// Price at evaluation time, used for entry/stop levels.
	LastPrice *float64 `json:"last_price,omitempty"`
}

// FundamentalMetrics holds valuation, growth, and balance-sheet inputs.
type FundamentalMetrics struct {
	PERatio           *float64 `json:"pe_ratio,omitempty"`
	SectorMedianPE    *float64 `json:"sector_median_pe,omitempty"`
	PBRatio           *float64 `json:"pb_ratio,omitempty"`
	RevenueGrowthPct  *float64 `json:"revenue_growth_pct,omitempty"`
	EarningsGrowthPct *float64 `json:"earnings_growth_pct,omitempty"`
	DebtToEquity      *float64 `json:"debt_to_equity,omitempty"`
	CurrentRatio      *float64 `json:"current_ratio,omitempty"`
	FCFYieldPct       *float64 `json:"fcf_yield_pct,omitempty"`
}

// TechnicalMetrics holds momentum, trend, and volume inputs.
type TechnicalMetrics struct {
	RSI14                 *float64 `json:"rsi_14,omitempty"`
	MACDHistogram         *float64 `json:"macd_histogram,omitempty"`
	Price                 *float64 `json:"price,omitempty"`
	MA50                  *float64 `json:"ma_50,omitempty"`
	MA200                 *float64 `json:"ma_200,omitempty"`
	SupportDistancePct    *float64 `json:"support_distance_pct,omitempty"`    // % above nearest support
	ResistanceDistancePct *float64 `json:"resistance_distance_pct,omitempty"` // % below nearest resistance
	VolumeRatio           *float64 `json:"volume_ratio,omitempty"`            // vs 20-day average
}

// RiskMetrics holds exposure and risk/reward inputs.
type RiskMetrics struct {
	PortfolioExposurePct *float64 `json:"portfolio_exposure_pct,omitempty"`
	SectorExposurePct    *float64 `json:"sector_exposure_pct,omitempty"`
	EstimatedDrawdownPct *float64 `json:"estimated_drawdown_pct,omitempty"`
	RiskReward           *float64 `json:"risk_reward,omitempty"`
	ProposedPositionPct  *float64 `json:"proposed_position_pct,omitempty"`
}

// TimingMetrics holds pattern and catalyst inputs.
type TimingMetrics struct {
	PatternMatchRatePct *float64 `json:"pattern_match_rate_pct,omitempty"`
	CatalystWithinDays  *float64 `json:"catalyst_within_days,omitempty"`
	SectorMomentumPct   *float64 `json:"sector_momentum_pct,omitempty"`
}

// Float is a convenience constructor for optional metric fields.
func Float(v float64) *float64 { return &v }
