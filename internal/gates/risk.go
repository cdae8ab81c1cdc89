package gates

import (
	"fmt"

	"github.com/alphagate/alphagate/internal/decision"
	"github.com/alphagate/alphagate/internal/evidence"
)

// RiskCaps are the non-negotiable portfolio limits the risk gate enforces
// independently of its numeric score.
type RiskCaps struct {
	MaxPositionPct       float64 `yaml:"max_position_pct"`
	MaxSectorExposurePct float64 `yaml:"max_sector_exposure_pct"`
}

// RiskGate scores portfolio exposure and risk/reward, and enforces hard
// caps: a candidate whose resulting position or sector exposure would
// breach the configured limits, or whose risk/reward ratio is below the
// regime minimum, fails regardless of score.
// Required inputs: risk/reward ratio, portfolio exposure, sector exposure.
type RiskGate struct {
	caps RiskCaps
}

// NewRiskGate creates the risk gate with the given portfolio caps.
func NewRiskGate(caps RiskCaps) RiskGate {
	return RiskGate{caps: caps}
}

func (RiskGate) Name() decision.GateName { return decision.GateRisk }

func (g RiskGate) Evaluate(bundle *evidence.Bundle, thresholds GateThresholds) decision.GateScore {
	r := bundle.Risk
	if r == nil {
		return unknown(decision.GateRisk, "risk metrics")
	}
	switch {
	case r.RiskReward == nil:
		return unknown(decision.GateRisk, "risk_reward")
	case r.PortfolioExposurePct == nil:
		return unknown(decision.GateRisk, "portfolio_exposure_pct")
	case r.SectorExposurePct == nil:
		return unknown(decision.GateRisk, "sector_exposure_pct")
	}

	s := newScorer()

	rr := *r.RiskReward
	switch {
	case rr >= 3.0:
		s.add(+25, "risk/reward %.1f", rr)
	case rr >= 2.0:
		s.add(+15, "risk/reward %.1f", rr)
	case rr >= 1.5:
		s.add(+5, "risk/reward %.1f", rr)
	default:
		s.add(-20, "poor risk/reward %.1f", rr)
	}

	if r.EstimatedDrawdownPct != nil {
		switch {
		case *r.EstimatedDrawdownPct <= 10:
			s.add(+10, "estimated drawdown %.1f%%", *r.EstimatedDrawdownPct)
		case *r.EstimatedDrawdownPct >= 25:
			s.add(-15, "estimated drawdown %.1f%%", *r.EstimatedDrawdownPct)
		}
	}

	if *r.PortfolioExposurePct <= 60 {
		s.add(+10, "portfolio exposure %.1f%%", *r.PortfolioExposurePct)
	}
	if *r.SectorExposurePct <= g.caps.MaxSectorExposurePct/2 {
		s.add(+5, "sector exposure %.1f%%", *r.SectorExposurePct)
	}

	result := scored(decision.GateRisk, s, thresholds.Risk)

	// Hard caps override the numeric score.
	if rr < thresholds.MinRiskReward {
		result.Passed = false
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("risk/reward %.1f below required %.1f", rr, thresholds.MinRiskReward))
	}
	if r.ProposedPositionPct != nil && *r.ProposedPositionPct > g.caps.MaxPositionPct {
		result.Passed = false
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("position %.1f%% would exceed %.1f%% cap", *r.ProposedPositionPct, g.caps.MaxPositionPct))
	}
	if *r.SectorExposurePct >= g.caps.MaxSectorExposurePct {
		result.Passed = false
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("position would exceed sector cap (%.1f%% >= %.1f%%)", *r.SectorExposurePct, g.caps.MaxSectorExposurePct))
	}

	return result
}
