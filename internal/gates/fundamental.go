package gates

import (
	"github.com/alphagate/alphagate/internal/decision"
	"github.com/alphagate/alphagate/internal/evidence"
)

// FundamentalGate scores valuation, growth, and balance-sheet health.
// Required inputs: P/E ratio, debt-to-equity, revenue growth. The remaining
// sub-metrics refine the score when present.
type FundamentalGate struct{}

func (FundamentalGate) Name() decision.GateName { return decision.GateFundamental }

func (FundamentalGate) Evaluate(bundle *evidence.Bundle, thresholds GateThresholds) decision.GateScore {
	f := bundle.Fundamental
	if f == nil {
		return unknown(decision.GateFundamental, "fundamental metrics")
	}
	switch {
	case f.PERatio == nil:
		return unknown(decision.GateFundamental, "pe_ratio")
	case f.DebtToEquity == nil:
		return unknown(decision.GateFundamental, "debt_to_equity")
	case f.RevenueGrowthPct == nil:
		return unknown(decision.GateFundamental, "revenue_growth_pct")
	}

	s := newScorer()

	pe := *f.PERatio
	if f.SectorMedianPE != nil && *f.SectorMedianPE > 0 {
		switch {
		case pe <= 0:
			s.add(-15, "negative earnings (P/E %.1f)", pe)
		case pe < *f.SectorMedianPE:
			s.add(+15, "P/E %.1f below sector median %.1f", pe, *f.SectorMedianPE)
		case pe > *f.SectorMedianPE*1.5:
			s.add(-15, "P/E %.1f well above sector median %.1f", pe, *f.SectorMedianPE)
		default:
			s.note("P/E %.1f near sector median %.1f", pe, *f.SectorMedianPE)
		}
	} else {
		// No sector context: judge on absolute bands.
		switch {
		case pe <= 0:
			s.add(-15, "negative earnings (P/E %.1f)", pe)
		case pe < 15:
			s.add(+10, "P/E %.1f in value range", pe)
		case pe > 40:
			s.add(-10, "P/E %.1f stretched", pe)
		}
	}

	growth := *f.RevenueGrowthPct
	switch {
	case growth >= 10:
		s.add(+15, "revenue growth %.1f%%", growth)
	case growth >= 0:
		s.add(+5, "revenue growth %.1f%%", growth)
	default:
		s.add(-10, "revenue contracting %.1f%%", growth)
	}

	if f.EarningsGrowthPct != nil {
		switch {
		case *f.EarningsGrowthPct >= 10:
			s.add(+10, "earnings growth %.1f%%", *f.EarningsGrowthPct)
		case *f.EarningsGrowthPct < 0:
			s.add(-5, "earnings declining %.1f%%", *f.EarningsGrowthPct)
		}
	}

	de := *f.DebtToEquity
	switch {
	case de <= 0.5:
		s.add(+15, "low leverage (D/E %.2f)", de)
	case de <= 1.5:
		s.add(+5, "moderate leverage (D/E %.2f)", de)
	case de > 2.0:
		s.add(-15, "high leverage (D/E %.2f)", de)
	}

	if f.CurrentRatio != nil && *f.CurrentRatio >= 1.5 {
		s.add(+5, "healthy current ratio %.2f", *f.CurrentRatio)
	}
	if f.FCFYieldPct != nil && *f.FCFYieldPct >= 5 {
		s.add(+10, "FCF yield %.1f%%", *f.FCFYieldPct)
	}

	return scored(decision.GateFundamental, s, thresholds.Fundamental)
}
