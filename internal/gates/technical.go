package gates

import (
	"github.com/alphagate/alphagate/internal/decision"
	"github.com/alphagate/alphagate/internal/evidence"
)

// TechnicalGate scores momentum, trend alignment, and volume confirmation.
// Required inputs: RSI, price, and the 200-day moving average.
type TechnicalGate struct{}

func (TechnicalGate) Name() decision.GateName { return decision.GateTechnical }

func (TechnicalGate) Evaluate(bundle *evidence.Bundle, thresholds GateThresholds) decision.GateScore {
	t := bundle.Technical
	if t == nil {
		return unknown(decision.GateTechnical, "technical metrics")
	}
	switch {
	case t.RSI14 == nil:
		return unknown(decision.GateTechnical, "rsi_14")
	case t.Price == nil:
		return unknown(decision.GateTechnical, "price")
	case t.MA200 == nil:
		return unknown(decision.GateTechnical, "ma_200")
	}

	s := newScorer()

	rsi := *t.RSI14
	switch {
	case rsi < 30:
		s.add(+15, "RSI %.0f oversold", rsi)
	case rsi < 50:
		s.add(+10, "RSI %.0f below midline", rsi)
	case rsi <= 70:
		s.add(+5, "RSI %.0f neutral", rsi)
	default:
		s.add(-15, "RSI %.0f overbought", rsi)
	}

	price := *t.Price
	if t.MA50 != nil && price > *t.MA50 && *t.MA50 > *t.MA200 {
		s.add(+20, "price above 50d and 200d MAs in bullish alignment")
	} else if price > *t.MA200 {
		s.add(+10, "price above 200d MA")
	} else {
		s.add(-15, "price below 200d MA")
	}

	if t.MACDHistogram != nil {
		if *t.MACDHistogram > 0 {
			s.add(+10, "MACD histogram positive")
		} else {
			s.add(-5, "MACD histogram negative")
		}
	}

	if t.VolumeRatio != nil && *t.VolumeRatio >= 1.5 {
		s.add(+10, "volume %.1fx average confirms move", *t.VolumeRatio)
	}

	if t.SupportDistancePct != nil && *t.SupportDistancePct <= 3 {
		s.add(+5, "price within %.1f%% of support", *t.SupportDistancePct)
	}
	if t.ResistanceDistancePct != nil && *t.ResistanceDistancePct <= 2 {
		s.add(-5, "resistance %.1f%% overhead", *t.ResistanceDistancePct)
	}

	return scored(decision.GateTechnical, s, thresholds.Technical)
}
