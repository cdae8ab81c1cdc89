package decision

import (
	"time"

	"github.com/google/uuid"
)

// Action is the engine's recommendation for an instrument
type Action int

const (
	Reject Action = iota
	Wait
	Buy
)

func (a Action) String() string {
	switch a {
	case Buy:
		return "BUY"
	case Wait:
		return "WAIT"
	case Reject:
		return "REJECT"
	default:
		return "unknown"
	}
}

// ParseAction maps a stored action string back to its enum value.
// Unknown strings map to Reject so a corrupt record can never read as a buy.
func ParseAction(s string) Action {
	switch s {
	case "BUY":
		return Buy
	case "WAIT":
		return Wait
	default:
		return Reject
	}
}

// GateName identifies one of the four evaluation gates
type GateName string

const (
	GateFundamental GateName = "fundamental"
	GateTechnical   GateName = "technical"
	GateRisk        GateName = "risk"
	GateTiming      GateName = "timing"
)

// GateScore is the result of a single gate evaluation.
// Known=false means the gate could not be scored from the available
// evidence; an unknown gate never passes.
type GateScore struct {
	Gate    GateName `json:"gate"`
	Score   float64  `json:"score"` // 0-100, meaningless when Known=false
	Known   bool     `json:"known"`
	Passed  bool     `json:"passed"`
	Reasons []string `json:"reasons"` // ordered factors that drove the score
}

// ExitPlan carries the stop and partial profit-take levels attached to a
// sized position.
type ExitPlan struct {
	TrailingStopPct  float64       `json:"trailing_stop_pct"`
	InitialStopPrice float64       `json:"initial_stop_price"`
	ProfitLevels     []ProfitLevel `json:"profit_levels"`
}

// ProfitLevel fires once when the gain threshold is reached.
type ProfitLevel struct {
	GainPct      float64 `json:"gain_pct"`
	SellFraction float64 `json:"sell_fraction"`
	Triggered    bool    `json:"triggered"`
}

// CorrelationCheck records the portfolio correlation safety result for audit.
type CorrelationCheck struct {
	MaxCorrelation float64 `json:"max_correlation"`
	PeerSymbol     string  `json:"peer_symbol,omitempty"`
	Safe           bool    `json:"safe"`
}

// Decision is the full recommendation record for one instrument on one
// date. Immutable after creation; CalibratedConfidence is set exactly once
// during the same evaluation pass.
type Decision struct {
	ID                   string           `json:"id" db:"id"`
	Instrument           string           `json:"instrument" db:"instrument"`
	Sector               string           `json:"sector" db:"sector"`
	AsOf                 time.Time        `json:"as_of" db:"as_of"`
	Gates                []GateScore      `json:"gates"`
	Action               Action           `json:"action"`
	RawConfidence        float64          `json:"raw_confidence" db:"raw_confidence"`
	CalibratedConfidence float64          `json:"calibrated_confidence" db:"calibrated_confidence"`
	PositionSizePct      float64          `json:"position_size_pct" db:"position_size_pct"`
	EntryPrice           float64          `json:"entry_price" db:"entry_price"`
	StopPrice            float64          `json:"stop_price" db:"stop_price"`
	TargetLevels         []ProfitLevel    `json:"target_levels"`
	Correlation          CorrelationCheck `json:"correlation"`
	Notes                []string         `json:"notes,omitempty"`
	CreatedAt            time.Time        `json:"created_at" db:"created_at"`
}

// NewID returns a fresh decision identifier.
func NewID() string {
	return uuid.NewString()
}

// Gate returns the score for the named gate, or nil if absent.
func (d *Decision) Gate(name GateName) *GateScore {
	for i := range d.Gates {
		if d.Gates[i].Gate == name {
			return &d.Gates[i]
		}
	}
	return nil
}
