package sizing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphagate/alphagate/internal/decision"
)

func testPlan() decision.ExitPlan {
	return decision.ExitPlan{
		TrailingStopPct:  8,
		InitialStopPrice: 92,
		ProfitLevels: []decision.ProfitLevel{
			{GainPct: 5, SellFraction: 0.25},
			{GainPct: 10, SellFraction: 0.25},
			{GainPct: 15, SellFraction: 0.50},
		},
	}
}

func TestExitState_StopOnlyRises(t *testing.T) {
	es := NewExitState(100, testPlan())

	ev := es.Observe(110)
	assert.True(t, ev.StopRaised)
	assert.InDelta(t, 101.2, es.StopPrice, 0.001)

	// Pullback below the HWM leaves the stop where it is.
	ev = es.Observe(104)
	assert.False(t, ev.StopRaised)
	assert.False(t, ev.StopHit)
	assert.InDelta(t, 101.2, es.StopPrice, 0.001)
	assert.Equal(t, 110.0, es.HighWaterMark)
}

func TestExitState_StopHitAfterTrail(t *testing.T) {
	es := NewExitState(100, testPlan())

	es.Observe(110)
	ev := es.Observe(101)

	assert.True(t, ev.StopHit)
	assert.NotEmpty(t, ev.Descriptions)
}

func TestExitState_ProfitLevelsFireOnce(t *testing.T) {
	es := NewExitState(100, testPlan())

	ev := es.Observe(106)
	require.Len(t, ev.FiredLevels, 1)
	assert.Equal(t, 5.0, ev.FiredLevels[0].GainPct)

	// Dip and recovery through the same level must not re-fire it.
	es.Observe(103)
	ev = es.Observe(107)
	assert.Empty(t, ev.FiredLevels)

	// A jump can fire multiple pending levels at once.
	ev = es.Observe(116)
	require.Len(t, ev.FiredLevels, 2)
	assert.Equal(t, 10.0, ev.FiredLevels[0].GainPct)
	assert.Equal(t, 15.0, ev.FiredLevels[1].GainPct)
}

func TestExitState_IgnoresNonPositivePrices(t *testing.T) {
	es := NewExitState(100, testPlan())

	ev := es.Observe(0)
	assert.False(t, ev.StopHit)
	assert.Empty(t, ev.FiredLevels)
	assert.Equal(t, 100.0, es.HighWaterMark)
}

func TestExitState_PlanLevelsNotShared(t *testing.T) {
	plan := testPlan()
	es := NewExitState(100, plan)
	es.Observe(106)

	assert.False(t, plan.ProfitLevels[0].Triggered, "exit state must copy the plan's levels")
}
