package gates

import (
	"github.com/alphagate/alphagate/internal/decision"
	"github.com/alphagate/alphagate/internal/evidence"
)

// TimingGate scores entry timing from historical pattern matches, catalyst
// proximity, and sector momentum. Timing is advisory: its failure can
// downgrade a BUY to WAIT but never causes a REJECT.
// Required input: pattern match rate.
type TimingGate struct{}

func (TimingGate) Name() decision.GateName { return decision.GateTiming }

func (TimingGate) Evaluate(bundle *evidence.Bundle, thresholds GateThresholds) decision.GateScore {
	t := bundle.Timing
	if t == nil {
		return unknown(decision.GateTiming, "timing metrics")
	}
	if t.PatternMatchRatePct == nil {
		return unknown(decision.GateTiming, "pattern_match_rate_pct")
	}

	s := newScorer()

	match := *t.PatternMatchRatePct
	switch {
	case match >= 70:
		s.add(+20, "pattern match rate %.0f%%", match)
	case match >= 55:
		s.add(+10, "pattern match rate %.0f%%", match)
	case match < 40:
		s.add(-10, "weak pattern match rate %.0f%%", match)
	default:
		s.note("pattern match rate %.0f%%", match)
	}

	if t.CatalystWithinDays != nil {
		switch {
		case *t.CatalystWithinDays <= 14:
			s.add(+15, "catalyst within %.0f days", *t.CatalystWithinDays)
		case *t.CatalystWithinDays <= 30:
			s.add(+5, "catalyst within %.0f days", *t.CatalystWithinDays)
		}
	}

	if t.SectorMomentumPct != nil {
		switch {
		case *t.SectorMomentumPct > 0:
			s.add(+10, "sector momentum %.1f%%", *t.SectorMomentumPct)
		case *t.SectorMomentumPct < -5:
			s.add(-10, "sector momentum %.1f%%", *t.SectorMomentumPct)
		}
	}

	return scored(decision.GateTiming, s, thresholds.Timing)
}
