package sizing

import (
	"fmt"

	"github.com/alphagate/alphagate/internal/decision"
)

// ExitState tracks a live position's stop and profit levels as prices are
// observed. It is driven by the position's consumer, not the engine. The
// trailing stop only moves when a new high-water mark is set, and each
// profit level fires at most once: a triggered level never re-arms at a
// lower gain.
type ExitState struct {
	EntryPrice    float64                `json:"entry_price"`
	HighWaterMark float64                `json:"high_water_mark"`
	StopPrice     float64                `json:"stop_price"`
	TrailingPct   float64                `json:"trailing_pct"`
	Levels        []decision.ProfitLevel `json:"levels"`
}

// ExitEvents reports what an observed price triggered.
type ExitEvents struct {
	StopHit      bool                   `json:"stop_hit"`
	StopRaised   bool                   `json:"stop_raised"`
	FiredLevels  []decision.ProfitLevel `json:"fired_levels"`
	Descriptions []string               `json:"descriptions"`
}

// NewExitState initializes exit tracking from a sized decision's plan.
func NewExitState(entryPrice float64, plan decision.ExitPlan) *ExitState {
	levels := make([]decision.ProfitLevel, len(plan.ProfitLevels))
	copy(levels, plan.ProfitLevels)
	return &ExitState{
		EntryPrice:    entryPrice,
		HighWaterMark: entryPrice,
		StopPrice:     plan.InitialStopPrice,
		TrailingPct:   plan.TrailingStopPct,
		Levels:        levels,
	}
}

// Observe applies an observed price. The stop is recalculated whenever the
// price exceeds the previous high-water mark (stop = HWM x (1 - trail));
// profit levels are evaluated independently and monotonically.
func (es *ExitState) Observe(price float64) ExitEvents {
	var ev ExitEvents
	if price <= 0 || es.EntryPrice <= 0 {
		return ev
	}

	if price > es.HighWaterMark {
		es.HighWaterMark = price
		newStop := es.HighWaterMark * (1 - es.TrailingPct/100)
		if newStop > es.StopPrice {
			es.StopPrice = newStop
			ev.StopRaised = true
			ev.Descriptions = append(ev.Descriptions,
				fmt.Sprintf("trailing stop raised to %.2f (HWM %.2f)", es.StopPrice, es.HighWaterMark))
		}
	}

	if es.StopPrice > 0 && price <= es.StopPrice {
		ev.StopHit = true
		ev.Descriptions = append(ev.Descriptions,
			fmt.Sprintf("price %.2f at or below stop %.2f", price, es.StopPrice))
	}

	gainPct := (price/es.EntryPrice - 1) * 100
	for i := range es.Levels {
		if es.Levels[i].Triggered {
			continue
		}
		if gainPct >= es.Levels[i].GainPct {
			es.Levels[i].Triggered = true
			ev.FiredLevels = append(ev.FiredLevels, es.Levels[i])
			ev.Descriptions = append(ev.Descriptions,
				fmt.Sprintf("profit level +%.0f%% hit: sell %.0f%%",
					es.Levels[i].GainPct, es.Levels[i].SellFraction*100))
		}
	}

	return ev
}
