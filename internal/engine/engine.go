// Package engine orchestrates the per-batch evaluation pipeline: regime
// detection, gate evaluation, confidence calibration, position sizing,
// persistence, and outcome tracking.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/alphagate/alphagate/internal/calibration"
	"github.com/alphagate/alphagate/internal/decision"
	"github.com/alphagate/alphagate/internal/evidence"
	"github.com/alphagate/alphagate/internal/gates"
	"github.com/alphagate/alphagate/internal/metrics"
	"github.com/alphagate/alphagate/internal/outcome"
	"github.com/alphagate/alphagate/internal/perf"
	"github.com/alphagate/alphagate/internal/persistence"
	"github.com/alphagate/alphagate/internal/regime"
	"github.com/alphagate/alphagate/internal/report"
	"github.com/alphagate/alphagate/internal/sizing"
)

// EvidenceSource supplies the candidate evidence bundles for a batch.
type EvidenceSource interface {
	Candidates(ctx context.Context, asOf time.Time) ([]*evidence.Bundle, error)
}

// Portfolio is the point-in-time portfolio state the sizer reads.
type Portfolio struct {
	InvestedPct       float64            `json:"invested_pct"`
	SectorExposurePct map[string]float64 `json:"sector_exposure_pct"`

	// Holdings lists existing positions with their correlation to the
	// candidate, keyed by candidate instrument.
	Holdings map[string][]sizing.Holding `json:"holdings"`
}

// PortfolioSource supplies the portfolio state for a batch.
type PortfolioSource interface {
	Snapshot(ctx context.Context) (Portfolio, error)
}

// Config tunes batch orchestration.
type Config struct {
	Concurrency   int                  `yaml:"concurrency"` // default 8
	RiskTolerance sizing.RiskTolerance `yaml:"-"`
}

// Engine wires the decision pipeline together. Thresholds and the
// calibration snapshot are resolved once per batch so every instrument
// in the batch sees the same inputs.
type Engine struct {
	config     Config
	detector   *regime.Detector
	thresholds *gates.ThresholdProvider
	evaluator  *gates.Evaluator
	calibrator *calibration.Calibrator
	calCache   *calibration.Cache
	sizer      *sizing.Sizer
	tracker    *outcome.Tracker
	analyzer   *perf.Analyzer

	evidence  EvidenceSource
	portfolio PortfolioSource

	decisions persistence.DecisionRepo
	outcomes  persistence.OutcomeRepo
	samples   persistence.SampleRepo

	metrics *metrics.Metrics

	minAccuracySamples int
}

// Deps are the engine's constructor dependencies.
type Deps struct {
	Detector   *regime.Detector
	Thresholds *gates.ThresholdProvider
	Evaluator  *gates.Evaluator
	Calibrator *calibration.Calibrator
	Sizer      *sizing.Sizer
	Tracker    *outcome.Tracker
	Analyzer   *perf.Analyzer

	Evidence  EvidenceSource
	Portfolio PortfolioSource

	Decisions persistence.DecisionRepo
	Outcomes  persistence.OutcomeRepo
	Samples   persistence.SampleRepo

	Metrics *metrics.Metrics

	MinAccuracySamples int
}

// New assembles the engine.
func New(config Config, deps Deps) *Engine {
	if config.Concurrency <= 0 {
		config.Concurrency = 8
	}
	if deps.MinAccuracySamples <= 0 {
		deps.MinAccuracySamples = 3
	}
	return &Engine{
		config:             config,
		detector:           deps.Detector,
		thresholds:         deps.Thresholds,
		evaluator:          deps.Evaluator,
		calibrator:         deps.Calibrator,
		calCache:           calibration.NewCache(),
		sizer:              deps.Sizer,
		tracker:            deps.Tracker,
		analyzer:           deps.Analyzer,
		evidence:           deps.Evidence,
		portfolio:          deps.Portfolio,
		decisions:          deps.Decisions,
		outcomes:           deps.Outcomes,
		samples:            deps.Samples,
		metrics:            deps.Metrics,
		minAccuracySamples: deps.MinAccuracySamples,
	}
}

// BatchResult summarizes one evaluation batch.
type BatchResult struct {
	AsOf      time.Time           `json:"as_of"`
	Regime    regime.Regime       `json:"regime"`
	Decisions []decision.Decision `json:"decisions"`
	Failed    int                 `json:"failed"`
	Elapsed   time.Duration       `json:"elapsed"`
}

// RunEvaluation evaluates every candidate and persists a decision plus a
// pending outcome for each. Per-instrument failures are logged and
// counted; they never abort the batch.
func (e *Engine) RunEvaluation(ctx context.Context, asOf time.Time) (*BatchResult, error) {
	start := time.Now()

	r := e.detectRegime(ctx, asOf)
	thresholds, regimeNotes := e.thresholds.ForRegime(r)
	snap := e.refreshSnapshot(ctx)
	port, err := e.portfolio.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("portfolio snapshot: %w", err)
	}

	bundles, err := e.evidence.Candidates(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}

	log.Info().Time("as_of", asOf).
		Str("trend", r.Trend.String()).
		Str("volatility", r.Volatility.String()).
		Int("candidates", len(bundles)).
		Msg("evaluation batch started")

	type item struct {
		d   decision.Decision
		err error
	}
	in := make(chan *evidence.Bundle)
	out := make(chan item)

	var wg sync.WaitGroup
	for w := 0; w < e.config.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for bundle := range in {
				d := e.evaluateOne(bundle, thresholds, regimeNotes, r, snap, port)
				err := e.persist(ctx, d)
				out <- item{d: d, err: err}
			}
		}()
	}
	go func() {
		defer close(in)
		for _, b := range bundles {
			select {
			case in <- b:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(out)
	}()

	result := &BatchResult{AsOf: asOf, Regime: r}
	for it := range out {
		if it.err != nil {
			log.Error().Err(it.err).Str("instrument", it.d.Instrument).Msg("persist decision failed")
			result.Failed++
			continue
		}
		result.Decisions = append(result.Decisions, it.d)
	}

	result.Elapsed = time.Since(start)
	if e.metrics != nil {
		e.metrics.BatchDuration.Observe(result.Elapsed.Seconds())
		e.metrics.BatchSize.Set(float64(len(bundles)))
	}
	log.Info().Int("decisions", len(result.Decisions)).
		Int("failed", result.Failed).
		Dur("elapsed", result.Elapsed).
		Msg("evaluation batch finished")
	return result, nil
}

// evaluateOne runs one candidate through gates, calibration, and sizing.
func (e *Engine) evaluateOne(bundle *evidence.Bundle, thresholds gates.GateThresholds,
	regimeNotes []string, r regime.Regime, snap *calibration.Snapshot, port Portfolio) decision.Decision {

	d := e.evaluator.Evaluate(bundle, thresholds, regimeNotes)

	cal := e.calibrator.Calibrate(snap, d.RawConfidence, d.Instrument, d.Sector)
	d.CalibratedConfidence = cal.Calibrated
	if cal.Scope != calibration.ScopeNone {
		d.Notes = append(d.Notes, fmt.Sprintf("calibrated via %s history (%d samples, %.0f%% win rate)",
			cal.Scope, cal.SampleCount, cal.WinRate*100))
	}

	if d.Action == decision.Buy {
		sized := e.sizer.Size(sizing.Inputs{
			Instrument:           d.Instrument,
			CalibratedConfidence: d.CalibratedConfidence,
			Volatility:           r.Volatility,
			RiskTolerance:        e.config.RiskTolerance,
			EntryPrice:           d.EntryPrice,
			InstrumentWinRate:    e.analyzer.InstrumentWinRate(snap, d.Instrument, e.minAccuracySamples),
			PortfolioInvestedPct: port.InvestedPct,
			SectorExposurePct:    port.SectorExposurePct[d.Sector],
			Holdings:             port.Holdings[d.Instrument],
		})
		d.PositionSizePct = sized.PositionSizePct
		d.Correlation = sized.Correlation
		d.StopPrice = sized.Exit.InitialStopPrice
		d.TargetLevels = sized.Exit.ProfitLevels
		d.Notes = append(d.Notes, sized.Notes...)
		if sized.Rejected {
			d.Action = decision.Reject
			d.PositionSizePct = 0
			d.Notes = append(d.Notes, sized.RejectReason)
		}
	}

	if e.metrics != nil {
		for _, g := range d.Gates {
			e.metrics.ObserveGate(string(g.Gate), g.Passed)
		}
		e.metrics.Decisions.WithLabelValues(d.Action.String()).Inc()
	}

	log.Debug().Str("instrument", d.Instrument).
		Str("action", d.Action.String()).
		Float64("raw", d.RawConfidence).
		Float64("calibrated", d.CalibratedConfidence).
		Float64("size_pct", d.PositionSizePct).
		Msg("candidate evaluated")
	return d
}

func (e *Engine) persist(ctx context.Context, d decision.Decision) error {
	if err := e.decisions.Insert(ctx, d); err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	if err := e.outcomes.Insert(ctx, outcome.NewOutcome(d)); err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// detectRegime never fails the batch: detection errors degrade to the
// unknown regime, which resolves to base thresholds.
func (e *Engine) detectRegime(ctx context.Context, asOf time.Time) regime.Regime {
	r, err := e.detector.Detect(ctx, asOf)
	if err != nil {
		log.Warn().Err(err).Msg("regime detection failed, using unknown regime")
		return regime.Unknown(asOf)
	}
	return r
}

// refreshSnapshot rebuilds the calibration snapshot from stored samples
// and publishes it. On failure the previous snapshot stays live.
func (e *Engine) refreshSnapshot(ctx context.Context) *calibration.Snapshot {
	samples, err := e.samples.LoadCalibrationSamples(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("calibration sample load failed, keeping previous snapshot")
		return e.calCache.Load()
	}
	snap := e.analyzer.BuildCalibrationSnapshot(samples, time.Now().UTC())
	e.calCache.Publish(snap)
	if e.metrics != nil {
		e.metrics.SnapshotAge.Set(0)
		e.metrics.SnapshotSamples.Set(float64(snap.SampleTotal))
	}
	return snap
}

// RunTracking advances every open outcome and persists the changes.
func (e *Engine) RunTracking(ctx context.Context, asOf time.Time) (int, error) {
	open, err := e.outcomes.ListOpen(ctx)
	if err != nil {
		return 0, fmt.Errorf("list open outcomes: %w", err)
	}

	changed := e.tracker.Process(ctx, open, asOf)
	updated := 0
	for _, o := range changed {
		if err := e.outcomes.Update(ctx, o); err != nil {
			log.Error().Err(err).Str("outcome", o.ID).Msg("outcome update failed")
			continue
		}
		updated++
		if e.metrics != nil {
			if o.NeedsRetry {
				e.metrics.TrackerRetries.Inc()
			}
			if o.Status == outcome.Completed {
				e.metrics.OutcomeQuality.WithLabelValues(o.Quality.String()).Inc()
			}
		}
	}
	log.Info().Int("open", len(open)).Int("updated", updated).Msg("tracking pass finished")
	return updated, nil
}

// BuildReport aggregates outcomes decided since the cutoff into a
// performance report.
func (e *Engine) BuildReport(ctx context.Context, f perf.Filter, since time.Time) (*report.Report, error) {
	outcomes, err := e.outcomes.ListSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	return report.Build(e.analyzer, outcomes, f, time.Now().UTC()), nil
}

// Snapshot returns the engine's current calibration snapshot.
func (e *Engine) Snapshot() *calibration.Snapshot {
	return e.calCache.Load()
}
