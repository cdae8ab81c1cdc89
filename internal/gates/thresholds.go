package gates

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/alphagate/alphagate/internal/decision"
	"github.com/alphagate/alphagate/internal/regime"
)

// GateThresholds holds the pass scores each gate must reach plus the
// minimum acceptable risk/reward ratio for the risk gate's hard cap.
type GateThresholds struct {
	Fundamental   float64 `yaml:"fundamental" json:"fundamental"`
	Technical     float64 `yaml:"technical" json:"technical"`
	Risk          float64 `yaml:"risk" json:"risk"`
	Timing        float64 `yaml:"timing" json:"timing"`
	MinRiskReward float64 `yaml:"min_risk_reward" json:"min_risk_reward"`
}

// ThresholdAdjustments holds the additive regime deltas applied to the base
// thresholds. Risk/reward overrides replace the base value outright.
type ThresholdAdjustments struct {
	BullFundamental float64 `yaml:"bull_fundamental"` // -5
	BullTechnical   float64 `yaml:"bull_technical"`   // +5
	BearFundamental float64 `yaml:"bear_fundamental"` // +5
	BearTechnical   float64 `yaml:"bear_technical"`   // -5
	HighVolRisk     float64 `yaml:"high_vol_risk"`    // +5
	HighVolMinRR    float64 `yaml:"high_vol_min_rr"`  // 2.5
	LowVolMinRR     float64 `yaml:"low_vol_min_rr"`   // 1.5
}

// ThresholdConfig is the full YAML-loadable threshold surface.
type ThresholdConfig struct {
	Base        GateThresholds       `yaml:"base"`
	Adjustments ThresholdAdjustments `yaml:"adjustments"`
}

// DefaultThresholdConfig returns the production base thresholds and
// regime adjustments.
func DefaultThresholdConfig() ThresholdConfig {
	return ThresholdConfig{
		Base: GateThresholds{
			Fundamental:   70,
			Technical:     65,
			Risk:          70,
			Timing:        60,
			MinRiskReward: 2.0,
		},
		Adjustments: ThresholdAdjustments{
			BullFundamental: -5,
			BullTechnical:   +5,
			BearFundamental: +5,
			BearTechnical:   -5,
			HighVolRisk:     +5,
			HighVolMinRR:    2.5,
			LowVolMinRR:     1.5,
		},
	}
}

// LoadThresholdConfig loads and validates a threshold config from YAML.
func LoadThresholdConfig(path string) (ThresholdConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ThresholdConfig{}, fmt.Errorf("read threshold config %s: %w", path, err)
	}
	config := DefaultThresholdConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return ThresholdConfig{}, fmt.Errorf("parse threshold config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return ThresholdConfig{}, fmt.Errorf("invalid threshold config: %w", err)
	}
	return config, nil
}

// Validate rejects thresholds outside their legal ranges.
func (config ThresholdConfig) Validate() error {
	base := map[string]float64{
		"fundamental": config.Base.Fundamental,
		"technical":   config.Base.Technical,
		"risk":        config.Base.Risk,
		"timing":      config.Base.Timing,
	}
	for name, v := range base {
		if v < 0 || v > 100 {
			return fmt.Errorf("base %s threshold %.1f out of range [0,100]", name, v)
		}
	}
	if config.Base.MinRiskReward <= 0 || config.Base.MinRiskReward > 10 {
		return fmt.Errorf("min risk/reward %.2f out of range (0,10]", config.Base.MinRiskReward)
	}
	return nil
}

// ThresholdProvider resolves the thresholds each gate must use for a given
// market regime. Resolution is pure: the same regime always yields the same
// thresholds, so the result can be snapshotted once per batch.
type ThresholdProvider struct {
	config ThresholdConfig
}

// NewThresholdProvider creates a provider from the given config.
func NewThresholdProvider(config ThresholdConfig) *ThresholdProvider {
	if config.Base == (GateThresholds{}) {
		config = DefaultThresholdConfig()
	}
	return &ThresholdProvider{config: config}
}

// ForRegime applies the regime adjustments to the base thresholds.
// Adjustments are additive and independent; gate thresholds are clamped to
// [0,100]. An unknown regime returns the base thresholds and a note the
// caller attaches to decision reasoning.
func (tp *ThresholdProvider) ForRegime(r regime.Regime) (GateThresholds, []string) {
	t := tp.config.Base
	if !r.Known {
		return t, []string{"regime unknown: using base thresholds"}
	}

	adj := tp.config.Adjustments
	var notes []string

	switch r.Trend {
	case regime.TrendBull:
		t.Fundamental += adj.BullFundamental
		t.Technical += adj.BullTechnical
		notes = append(notes, "bull regime threshold adjustments applied")
	case regime.TrendBear:
		t.Fundamental += adj.BearFundamental
		t.Technical += adj.BearTechnical
		notes = append(notes, "bear regime threshold adjustments applied")
	}

	switch r.Volatility {
	case regime.VolHigh, regime.VolVeryHigh:
		t.Risk += adj.HighVolRisk
		t.MinRiskReward = adj.HighVolMinRR
		notes = append(notes, "high volatility: raised risk threshold and min risk/reward")
	case regime.VolLow:
		t.MinRiskReward = adj.LowVolMinRR
		notes = append(notes, "low volatility: relaxed min risk/reward")
	}

	t.Fundamental = clamp(t.Fundamental, 0, 100)
	t.Technical = clamp(t.Technical, 0, 100)
	t.Risk = clamp(t.Risk, 0, 100)
	t.Timing = clamp(t.Timing, 0, 100)

	return t, notes
}

// Base returns the unadjusted thresholds.
func (tp *ThresholdProvider) Base() GateThresholds {
	return tp.config.Base
}

// For returns the threshold for the named gate. Unrecognized names yield
// an unpassable threshold.
func (t GateThresholds) For(name decision.GateName) float64 {
	switch name {
	case decision.GateFundamental:
		return t.Fundamental
	case decision.GateTechnical:
		return t.Technical
	case decision.GateRisk:
		return t.Risk
	case decision.GateTiming:
		return t.Timing
	default:
		return 100
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
