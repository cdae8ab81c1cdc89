package outcome

import (
	"time"

	"github.com/alphagate/alphagate/internal/decision"
)

// Status is the tracking lifecycle of a recommendation outcome
type Status int

const (
	Pending Status = iota
	Tracking
	Completed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case Tracking:
		return "TRACKING"
	case Completed:
		return "COMPLETED"
	default:
		return "unknown"
	}
}

// ParseStatus maps a stored status string back to its enum value.
func ParseStatus(s string) Status {
	switch s {
	case "TRACKING":
		return Tracking
	case "COMPLETED":
		return Completed
	default:
		return Pending
	}
}

// Quality grades how a recommendation played out
type Quality int

const (
	NotRated Quality = iota
	Excellent
	Good
	Neutral
	Poor
	Failed
)

func (q Quality) String() string {
	switch q {
	case Excellent:
		return "EXCELLENT"
	case Good:
		return "GOOD"
	case Neutral:
		return "NEUTRAL"
	case Poor:
		return "POOR"
	case Failed:
		return "FAILED"
	default:
		return "NOT_RATED"
	}
}

// ParseQuality maps a stored quality string back to its enum value.
func ParseQuality(s string) Quality {
	switch s {
	case "EXCELLENT":
		return Excellent
	case "GOOD":
		return Good
	case "NEUTRAL":
		return Neutral
	case "POOR":
		return Poor
	case "FAILED":
		return Failed
	default:
		return NotRated
	}
}

// HorizonResult is the realized outcome at one fixed horizon.
type HorizonResult struct {
	Days               int       `json:"days"`
	Price              float64   `json:"price"`
	ReturnPct          float64   `json:"return_pct"`
	BenchmarkReturnPct float64   `json:"benchmark_return_pct"`
	AlphaPct           float64   `json:"alpha_pct"`
	ObservedAt         time.Time `json:"observed_at"`
}

// Outcome tracks what actually happened after a decision. Owned
// exclusively by the tracker: the gate evaluator and sizer never read it
// directly, they consume the aggregated calibration snapshot instead.
type Outcome struct {
	ID         string          `json:"id" db:"id"`
	DecisionID string          `json:"decision_id" db:"decision_id"`
	Instrument string          `json:"instrument" db:"instrument"`
	Sector     string          `json:"sector" db:"sector"`
	Action     decision.Action `json:"action"`
	EntryPrice float64         `json:"entry_price" db:"entry_price"`
	DecidedAt  time.Time       `json:"decided_at" db:"decided_at"`

	Status        Status                `json:"status"`
	Horizons      map[int]HorizonResult `json:"horizons"`
	PeakPrice     float64               `json:"peak_price" db:"peak_price"`
	TroughPrice   float64               `json:"trough_price" db:"trough_price"`
	Quality       Quality               `json:"quality"`
	RawConfidence float64               `json:"raw_confidence" db:"raw_confidence"`

	// NeedsRetry marks a record whose external data fetch failed this
	// batch; it is retried on the next run without failing the batch.
	NeedsRetry bool      `json:"needs_retry" db:"needs_retry"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// NewOutcome creates the PENDING outcome stored alongside a fresh decision.
func NewOutcome(d decision.Decision) *Outcome {
	return &Outcome{
		ID:            decision.NewID(),
		DecisionID:    d.ID,
		Instrument:    d.Instrument,
		Sector:        d.Sector,
		Action:        d.Action,
		EntryPrice:    d.EntryPrice,
		DecidedAt:     d.AsOf,
		Status:        Pending,
		Horizons:      map[int]HorizonResult{},
		RawConfidence: d.RawConfidence,
	}
}

// Win reports whether the outcome counts as a correct call for
// calibration purposes.
func (o *Outcome) Win() bool {
	return o.Quality == Excellent || o.Quality == Good
}

// BestHorizonAtMost returns the longest computed horizon no later than
// maxDays, for analyzers that must tolerate partially completed outcomes.
func (o *Outcome) BestHorizonAtMost(maxDays int) (HorizonResult, bool) {
	best := -1
	for days := range o.Horizons {
		if days <= maxDays && days > best {
			best = days
		}
	}
	if best < 0 {
		return HorizonResult{}, false
	}
	return o.Horizons[best], true
}
