package gates

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/alphagate/alphagate/internal/decision"
	"github.com/alphagate/alphagate/internal/evidence"
)

// GateWeights controls how gate scores combine into raw confidence.
// Blocking gates carry more weight than the advisory timing gate.
type GateWeights struct {
	Fundamental float64 `yaml:"fundamental"`
	Technical   float64 `yaml:"technical"`
	Risk        float64 `yaml:"risk"`
	Timing      float64 `yaml:"timing"`
}

// EvaluatorConfig holds gate aggregation parameters.
type EvaluatorConfig struct {
	Weights GateWeights `yaml:"weights"`

	// UnknownPenalty is subtracted from a gate's threshold to stand in
	// for an unknown gate's score when computing raw confidence. An
	// unknown gate never contributes more than its own threshold.
	UnknownPenalty float64 `yaml:"unknown_penalty"`
}

// DefaultEvaluatorConfig returns the production aggregation weights.
func DefaultEvaluatorConfig() EvaluatorConfig {
	return EvaluatorConfig{
		Weights: GateWeights{
			Fundamental: 0.30,
			Technical:   0.30,
			Risk:        0.25,
			Timing:      0.15,
		},
		UnknownPenalty: 10,
	}
}

// Evaluator runs the closed set of four gates over an evidence bundle and
// aggregates the results into a partial decision (confidence not yet
// calibrated). Evaluation touches no shared state: thresholds arrive as an
// immutable per-batch snapshot, so instruments can be evaluated in parallel.
type Evaluator struct {
	gates  []Gate
	config EvaluatorConfig
}

// NewEvaluator creates an evaluator with the standard four gates.
func NewEvaluator(caps RiskCaps, config EvaluatorConfig) *Evaluator {
	if config.Weights == (GateWeights{}) {
		config = DefaultEvaluatorConfig()
	}
	return &Evaluator{
		gates: []Gate{
			FundamentalGate{},
			TechnicalGate{},
			NewRiskGate(caps),
			TimingGate{},
		},
		config: config,
	}
}

// Evaluate scores every gate and combines them into a decision. The
// returned decision has no position size and an uncalibrated confidence;
// the caller runs it through the calibrator and sizer next. Extra notes
// (e.g. a regime-unknown flag) are attached to the decision's reasoning.
func (e *Evaluator) Evaluate(bundle *evidence.Bundle, thresholds GateThresholds, notes []string) decision.Decision {
	scores := make([]decision.GateScore, 0, len(e.gates))
	for _, g := range e.gates {
		scores = append(scores, g.Evaluate(bundle, thresholds))
	}

	action, confidence := e.Combine(scores, thresholds)

	d := decision.Decision{
		ID:            decision.NewID(),
		Instrument:    bundle.Instrument,
		Sector:        bundle.Sector,
		AsOf:          bundle.AsOf,
		Gates:         scores,
		Action:        action,
		RawConfidence: confidence,
		Notes:         notes,
		CreatedAt:     time.Now().UTC(),
	}
	if bundle.LastPrice != nil {
		d.EntryPrice = *bundle.LastPrice
	}

	log.Debug().Str("instrument", d.Instrument).
		Str("action", action.String()).
		Float64("raw_confidence", confidence).
		Msg("gates evaluated")

	return d
}

// Combine derives the action and raw confidence from gate scores.
// Fundamental, technical, and risk are blocking: all three must pass for a
// BUY. Timing is advisory: its failure downgrades BUY to WAIT, never to
// REJECT. Any blocking failure, including an unknown blocking gate, yields
// REJECT: ambiguity biases away from BUY.
func (e *Evaluator) Combine(scores []decision.GateScore, thresholds GateThresholds) (decision.Action, float64) {
	passed := make(map[decision.GateName]bool, len(scores))
	for _, gs := range scores {
		passed[gs.Gate] = gs.Passed
	}

	blockingPass := passed[decision.GateFundamental] &&
		passed[decision.GateTechnical] &&
		passed[decision.GateRisk]

	action := decision.Reject
	if blockingPass {
		if passed[decision.GateTiming] {
			action = decision.Buy
		} else {
			action = decision.Wait
		}
	}

	return action, e.rawConfidence(scores, thresholds)
}

// rawConfidence is the weighted combination of gate scores. An unknown
// gate contributes its threshold minus a penalty, never a default high
// score.
func (e *Evaluator) rawConfidence(scores []decision.GateScore, thresholds GateThresholds) float64 {
	w := e.config.Weights
	weightFor := func(name decision.GateName) float64 {
		switch name {
		case decision.GateFundamental:
			return w.Fundamental
		case decision.GateTechnical:
			return w.Technical
		case decision.GateRisk:
			return w.Risk
		case decision.GateTiming:
			return w.Timing
		default:
			return 0
		}
	}

	var weighted, total float64
	for _, gs := range scores {
		weight := weightFor(gs.Gate)
		if weight == 0 {
			continue
		}
		score := gs.Score
		if !gs.Known {
			score = clamp(thresholds.For(gs.Gate)-e.config.UnknownPenalty, 0, 100)
		}
		weighted += weight * score
		total += weight
	}
	if total == 0 {
		return 0
	}
	return clamp(weighted/total, 0, 100)
}
