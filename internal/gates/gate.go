package gates

import (
	"fmt"

	"github.com/alphagate/alphagate/internal/decision"
	"github.com/alphagate/alphagate/internal/evidence"
)

// Gate is one independent pass/fail evaluation of an instrument's evidence.
// The engine runs a closed set of four gates: fundamental, technical, risk,
// and timing. Each gate must tolerate missing sub-metrics: when a required
// input is absent the gate reports itself unknown rather than guessing a
// numeric score, and an unknown gate never passes.
type Gate interface {
	Name() decision.GateName
	Evaluate(bundle *evidence.Bundle, thresholds GateThresholds) decision.GateScore
}

// scorer accumulates factor contributions around a neutral baseline of 50
// and records the factors that drove the score, in evaluation order.
type scorer struct {
	score   float64
	reasons []string
}

func newScorer() *scorer {
	return &scorer{score: 50}
}

// add applies a signed contribution with its driving factor.
func (s *scorer) add(delta float64, format string, args ...interface{}) {
	s.score += delta
	s.reasons = append(s.reasons, fmt.Sprintf(format, args...))
}

// note records a factor without changing the score.
func (s *scorer) note(format string, args ...interface{}) {
	s.reasons = append(s.reasons, fmt.Sprintf(format, args...))
}

func (s *scorer) final() float64 {
	return clamp(s.score, 0, 100)
}

// unknown builds the score for a gate that cannot be evaluated.
func unknown(name decision.GateName, missing string) decision.GateScore {
	return decision.GateScore{
		Gate:    name,
		Known:   false,
		Passed:  false,
		Reasons: []string{"missing evidence: " + missing},
	}
}

func scored(name decision.GateName, s *scorer, threshold float64) decision.GateScore {
	score := s.final()
	return decision.GateScore{
		Gate:    name,
		Score:   score,
		Known:   true,
		Passed:  score >= threshold,
		Reasons: s.reasons,
	}
}
