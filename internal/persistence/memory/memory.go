// Package memory provides in-process repository implementations used by
// dry runs and tests, where no database is configured.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/alphagate/alphagate/internal/calibration"
	"github.com/alphagate/alphagate/internal/decision"
	"github.com/alphagate/alphagate/internal/outcome"
	"github.com/alphagate/alphagate/internal/persistence"
)

// Store holds shared in-memory state behind the repository interfaces.
type Store struct {
	mu        sync.RWMutex
	decisions map[string]decision.Decision
	outcomes  map[string]*outcome.Outcome
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		decisions: map[string]decision.Decision{},
		outcomes:  map[string]*outcome.Outcome{},
	}
}

// Decisions returns the decision repository view.
func (s *Store) Decisions() persistence.DecisionRepo { return (*decisionRepo)(s) }

// Outcomes returns the outcome repository view.
func (s *Store) Outcomes() persistence.OutcomeRepo { return (*outcomeRepo)(s) }

// Samples returns the calibration-sample repository view.
func (s *Store) Samples() persistence.SampleRepo { return (*sampleRepo)(s) }

type decisionRepo Store

func (r *decisionRepo) Insert(_ context.Context, d decision.Decision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions[d.ID] = d
	return nil
}

func (r *decisionRepo) GetByID(_ context.Context, id string) (*decision.Decision, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.decisions[id]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	return &d, nil
}

func (r *decisionRepo) ListByInstrument(_ context.Context, instrument string, tr persistence.TimeRange, limit int) ([]decision.Decision, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []decision.Decision
	for _, d := range r.decisions {
		if d.Instrument != instrument {
			continue
		}
		if d.AsOf.Before(tr.From) || d.AsOf.After(tr.To) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AsOf.After(out[j].AsOf) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *decisionRepo) ListRecent(_ context.Context, limit int) ([]decision.Decision, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]decision.Decision, 0, len(r.decisions))
	for _, d := range r.decisions {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type outcomeRepo Store

func (r *outcomeRepo) Insert(_ context.Context, o *outcome.Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := cloneOutcome(o)
	r.outcomes[o.ID] = clone
	return nil
}

func (r *outcomeRepo) Update(_ context.Context, o *outcome.Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.outcomes[o.ID]; !ok {
		return persistence.ErrNotFound
	}
	r.outcomes[o.ID] = cloneOutcome(o)
	return nil
}

func (r *outcomeRepo) ListOpen(_ context.Context) ([]*outcome.Outcome, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*outcome.Outcome
	for _, o := range r.outcomes {
		if o.Status == outcome.Completed {
			continue
		}
		out = append(out, cloneOutcome(o))
	}
	sortOutcomes(out)
	return out, nil
}

func (r *outcomeRepo) ListSince(_ context.Context, since time.Time) ([]*outcome.Outcome, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*outcome.Outcome
	for _, o := range r.outcomes {
		if o.DecidedAt.Before(since) {
			continue
		}
		out = append(out, cloneOutcome(o))
	}
	sortOutcomes(out)
	return out, nil
}

type sampleRepo Store

func (r *sampleRepo) LoadCalibrationSamples(_ context.Context) ([]calibration.Sample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var samples []calibration.Sample
	for _, o := range r.outcomes {
		if o.Quality == outcome.NotRated {
			continue
		}
		samples = append(samples, calibration.Sample{
			Instrument:    o.Instrument,
			Sector:        o.Sector,
			RawConfidence: o.RawConfidence,
			Win:           o.Win(),
			DecidedAt:     o.DecidedAt,
		})
	}
	return samples, nil
}

func cloneOutcome(o *outcome.Outcome) *outcome.Outcome {
	clone := *o
	clone.Horizons = make(map[int]outcome.HorizonResult, len(o.Horizons))
	for k, v := range o.Horizons {
		clone.Horizons[k] = v
	}
	return &clone
}

func sortOutcomes(out []*outcome.Outcome) {
	sort.Slice(out, func(i, j int) bool { return out[i].DecidedAt.Before(out[j].DecidedAt) })
}
