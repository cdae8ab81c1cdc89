package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/alphagate/alphagate/internal/calibration"
	"github.com/alphagate/alphagate/internal/decision"
	"github.com/alphagate/alphagate/internal/outcome"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// TimeRange is a query window.
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// DecisionRepo stores recommendation records. Decisions are immutable
// after insertion.
type DecisionRepo interface {
	// Insert stores a finished decision.
	Insert(ctx context.Context, d decision.Decision) error

	// GetByID retrieves one decision.
	GetByID(ctx context.Context, id string) (*decision.Decision, error)

	// ListByInstrument retrieves an instrument's decisions, newest first.
	ListByInstrument(ctx context.Context, instrument string, tr TimeRange, limit int) ([]decision.Decision, error)

	// ListRecent retrieves the most recent decisions across instruments.
	ListRecent(ctx context.Context, limit int) ([]decision.Decision, error)
}

// OutcomeRepo stores recommendation outcomes. Only the outcome tracker
// writes here.
type OutcomeRepo interface {
	// Insert stores a fresh PENDING outcome.
	Insert(ctx context.Context, o *outcome.Outcome) error

	// Update persists tracker changes to one outcome.
	Update(ctx context.Context, o *outcome.Outcome) error

	// ListOpen retrieves every non-COMPLETED outcome for a tracking pass.
	ListOpen(ctx context.Context) ([]*outcome.Outcome, error)

	// ListSince retrieves outcomes decided within the window, for
	// performance aggregation.
	ListSince(ctx context.Context, since time.Time) ([]*outcome.Outcome, error)
}

// SampleRepo loads historical (confidence, outcome) pairs for building
// calibration snapshots.
type SampleRepo interface {
	LoadCalibrationSamples(ctx context.Context) ([]calibration.Sample, error)
}
