// Package sizing turns a calibrated BUY into a position size under
// portfolio caps and attaches the exit plan. The engine only produces
// and persists the plan; ExitState is the consumer-side half, for
// execution systems that open the position and replay observed prices
// through Observe to maintain the trailing stop and fire profit-takes.
package sizing

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/alphagate/alphagate/internal/decision"
	"github.com/alphagate/alphagate/internal/regime"
)

// RiskTolerance scales position size by the operator's risk appetite
type RiskTolerance int

const (
	Moderate RiskTolerance = iota
	Conservative
	Aggressive
)

func (rt RiskTolerance) String() string {
	switch rt {
	case Conservative:
		return "conservative"
	case Moderate:
		return "moderate"
	case Aggressive:
		return "aggressive"
	default:
		return "unknown"
	}
}

// ParseRiskTolerance maps a config string to a tolerance; unknown values
// fall back to moderate.
func ParseRiskTolerance(s string) RiskTolerance {
	switch s {
	case "conservative":
		return Conservative
	case "aggressive":
		return Aggressive
	default:
		return Moderate
	}
}

// CorrelationPolicy selects what happens when the correlation ceiling is
// breached: reject the position outright or scale it down.
type CorrelationPolicy string

const (
	PolicyReject CorrelationPolicy = "reject"
	PolicyScale  CorrelationPolicy = "scale"
)

// ProfitLevelConfig defines one partial profit-take level.
type ProfitLevelConfig struct {
	GainPct      float64 `yaml:"gain_pct"`
	SellFraction float64 `yaml:"sell_fraction"`
}

// Config holds all position sizing parameters.
type Config struct {
	MaxPositionPct       float64             `yaml:"max_position_pct"`        // default 10
	CashReservePct       float64             `yaml:"cash_reserve_pct"`        // default 10
	MaxSectorExposurePct float64             `yaml:"max_sector_exposure_pct"` // default 30
	CorrelationCeiling   float64             `yaml:"correlation_ceiling"`     // default 0.75
	CorrelationPolicy    CorrelationPolicy   `yaml:"correlation_policy"`      // reject | scale
	CorrelationScale     float64             `yaml:"correlation_scale"`       // scale-policy factor, default 0.5
	TrailingStopPct      float64             `yaml:"trailing_stop_pct"`       // default 8
	ProfitLevels         []ProfitLevelConfig `yaml:"partial_profit_levels"`
	MinAccuracySamples   int                 `yaml:"min_accuracy_samples"` // default 3
	UnprovenFactor       float64             `yaml:"unproven_factor"`      // default 0.5
}

// DefaultConfig returns production sizing parameters.
func DefaultConfig() Config {
	return Config{
		MaxPositionPct:       10,
		CashReservePct:       10,
		MaxSectorExposurePct: 30,
		CorrelationCeiling:   0.75,
		CorrelationPolicy:    PolicyReject,
		CorrelationScale:     0.5,
		TrailingStopPct:      8,
		ProfitLevels: []ProfitLevelConfig{
			{GainPct: 5, SellFraction: 0.25},
			{GainPct: 10, SellFraction: 0.25},
			{GainPct: 15, SellFraction: 0.50},
		},
		MinAccuracySamples: 3,
		UnprovenFactor:     0.5,
	}
}

// Holding is an existing position with its correlation to the candidate.
type Holding struct {
	Symbol      string  `json:"symbol"`
	SizePct     float64 `json:"size_pct"`
	Correlation float64 `json:"correlation"` // candidate vs this holding
}

// Inputs carries everything the sizer needs for one candidate.
type Inputs struct {
	Instrument           string
	CalibratedConfidence float64
	Volatility           regime.Volatility
	RiskTolerance        RiskTolerance
	EntryPrice           float64

	// InstrumentWinRate is the historical accuracy for this instrument,
	// nil when sample count is below MinAccuracySamples.
	InstrumentWinRate *float64

	// Portfolio context for the cash-reserve and sector caps.
	PortfolioInvestedPct float64
	SectorExposurePct    float64
	Holdings             []Holding
}

// Result is the sized position with stop/target levels and the audit
// trail of every adjustment applied.
type Result struct {
	PositionSizePct float64                   `json:"position_size_pct"`
	Rejected        bool                      `json:"rejected"`
	RejectReason    string                    `json:"reject_reason,omitempty"`
	Correlation     decision.CorrelationCheck `json:"correlation"`
	Exit            decision.ExitPlan         `json:"exit"`
	Notes           []string                  `json:"notes"`
}

// Sizer turns calibrated confidence into a bounded position size.
type Sizer struct {
	config Config
}

// NewSizer creates a sizer; a zero config gets production defaults.
func NewSizer(config Config) *Sizer {
	if config.MaxPositionPct <= 0 {
		config = DefaultConfig()
	}
	if config.CorrelationPolicy == "" {
		config.CorrelationPolicy = PolicyReject
	}
	if config.CorrelationScale <= 0 || config.CorrelationScale > 1 {
		config.CorrelationScale = 0.5
	}
	return &Sizer{config: config}
}

// Size computes the position size for a candidate. The correlation safety
// check runs before the final caps; caps shrink the size rather than
// rejecting, except when a cap forces the size to zero.
func (s *Sizer) Size(in Inputs) Result {
	res := Result{}

	size := s.config.MaxPositionPct * ladderFraction(in.CalibratedConfidence)
	res.Notes = append(res.Notes,
		fmt.Sprintf("confidence %.0f -> base size %.2f%%", in.CalibratedConfidence, size))

	size *= toleranceMultiplier(in.RiskTolerance)
	size *= volatilityMultiplier(in.Volatility)

	// Historical accuracy replaces pure confidence scaling once the
	// instrument has a track record; unproven names get a conservatism
	// haircut instead.
	if in.InstrumentWinRate != nil {
		mult := clamp(*in.InstrumentWinRate/0.5, 0.5, 2.0)
		size *= mult
		res.Notes = append(res.Notes,
			fmt.Sprintf("accuracy multiplier %.2f (win rate %.0f%%)", mult, *in.InstrumentWinRate*100))
	} else {
		size *= s.config.UnprovenFactor
		res.Notes = append(res.Notes,
			fmt.Sprintf("unproven instrument: sized at %.0f%% of formula", s.config.UnprovenFactor*100))
	}

	// Correlation safety check runs before the final cap.
	res.Correlation = CheckCorrelation(in.Holdings, s.config.CorrelationCeiling)
	if !res.Correlation.Safe {
		switch s.config.CorrelationPolicy {
		case PolicyScale:
			size *= s.config.CorrelationScale
			res.Notes = append(res.Notes,
				fmt.Sprintf("correlation %.2f above ceiling %.2f: scaled by %.2f",
					res.Correlation.MaxCorrelation, s.config.CorrelationCeiling, s.config.CorrelationScale))
		default:
			return s.reject(res, fmt.Sprintf("correlation %.2f with %s exceeds ceiling %.2f",
				res.Correlation.MaxCorrelation, res.Correlation.PeerSymbol, s.config.CorrelationCeiling))
		}
	}

	// Final caps shrink rather than reject.
	if size > s.config.MaxPositionPct {
		size = s.config.MaxPositionPct
	}

	if room := s.config.MaxSectorExposurePct - in.SectorExposurePct; size > room {
		size = room
		res.Notes = append(res.Notes,
			fmt.Sprintf("capped to %.2f%% by sector exposure limit", max(size, 0)))
	}
	if room := (100 - s.config.CashReservePct) - in.PortfolioInvestedPct; size > room {
		size = room
		res.Notes = append(res.Notes,
			fmt.Sprintf("capped to %.2f%% by cash reserve", max(size, 0)))
	}

	if size <= 0 {
		return s.reject(res, "caps reduced position to zero")
	}

	res.PositionSizePct = size
	res.Exit = s.exitPlan(in.EntryPrice)

	log.Debug().Str("instrument", in.Instrument).
		Float64("size_pct", size).
		Float64("max_correlation", res.Correlation.MaxCorrelation).
		Msg("position sized")

	return res
}

func (s *Sizer) reject(res Result, reason string) Result {
	res.PositionSizePct = 0
	res.Rejected = true
	res.RejectReason = reason
	res.Notes = append(res.Notes, reason)
	return res
}

func (s *Sizer) exitPlan(entryPrice float64) decision.ExitPlan {
	plan := decision.ExitPlan{TrailingStopPct: s.config.TrailingStopPct}
	if entryPrice > 0 {
		plan.InitialStopPrice = entryPrice * (1 - s.config.TrailingStopPct/100)
	}
	for _, lvl := range s.config.ProfitLevels {
		plan.ProfitLevels = append(plan.ProfitLevels, decision.ProfitLevel{
			GainPct:      lvl.GainPct,
			SellFraction: lvl.SellFraction,
		})
	}
	return plan
}

// ladderFraction maps calibrated confidence to a fraction of the max size.
func ladderFraction(confidence float64) float64 {
	switch {
	case confidence >= 90:
		return 1.0
	case confidence >= 75:
		return 0.75
	case confidence >= 60:
		return 0.50
	case confidence >= 50:
		return 0.35
	default:
		return 0.25
	}
}

func toleranceMultiplier(rt RiskTolerance) float64 {
	switch rt {
	case Conservative:
		return 0.5
	case Aggressive:
		return 1.5
	default:
		return 1.0
	}
}

func volatilityMultiplier(v regime.Volatility) float64 {
	switch v {
	case regime.VolLow:
		return 1.2
	case regime.VolHigh:
		return 0.8
	case regime.VolVeryHigh:
		return 0.6
	default:
		return 1.0
	}
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

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
