package calibration

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"
)

// Sample is one realized (confidence, outcome) observation used to build
// calibration profiles. Win is whether the decision's canonical-horizon
// outcome was favorable.
type Sample struct {
	Instrument    string    `json:"instrument" db:"instrument"`
	Sector        string    `json:"sector" db:"sector"`
	RawConfidence float64   `json:"raw_confidence" db:"raw_confidence"`
	Win           bool      `json:"win" db:"win"`
	DecidedAt     time.Time `json:"decided_at" db:"decided_at"`
}

// Profile is the aggregated historical accuracy for one calibration scope.
// A profile only materializes once its sample count reaches the configured
// minimum; below that the scope is not calibratable and the calibrator
// falls through to a broader one.
type Profile struct {
	Scope       string    `json:"scope"` // instrument | sector | bucket
	Key         string    `json:"key"`
	SampleCount int       `json:"sample_count"`
	WinRate     float64   `json:"win_rate"` // 0..1
	LastUpdated time.Time `json:"last_updated"`
}

// Snapshot is an immutable per-batch view of all calibration profiles.
// Built once by the performance analyzer, then read concurrently by every
// instrument evaluation in the batch. Never mutated after construction.
type Snapshot struct {
	Instruments map[string]Profile `json:"instruments"`
	Sectors     map[string]Profile `json:"sectors"`
	Buckets     map[string]Profile `json:"buckets"` // keyed by bucket floor, e.g. "70"
	BuiltAt     time.Time          `json:"built_at"`
	SampleTotal int                `json:"sample_total"`
}

// EmptySnapshot returns a snapshot with no calibration data; every lookup
// falls through to uncalibrated confidence.
func EmptySnapshot() *Snapshot {
	return &Snapshot{
		Instruments: map[string]Profile{},
		Sectors:     map[string]Profile{},
		Buckets:     map[string]Profile{},
		BuiltAt:     time.Now().UTC(),
	}
}

// BucketKey returns the global-scope bucket key for a raw confidence value
// at the given bucket width.
func BucketKey(rawConfidence, width float64) string {
	if width <= 0 {
		width = 5
	}
	floor := math.Floor(rawConfidence/width) * width
	return fmt.Sprintf("%.0f", floor)
}

// BuildSnapshot aggregates raw samples into per-scope profiles. Counts are
// accumulated for every scope regardless of size; minimum-sample gating
// happens at lookup time so one snapshot serves all scope thresholds.
func BuildSnapshot(samples []Sample, bucketWidth float64, builtAt time.Time) *Snapshot {
	snap := &Snapshot{
		Instruments: map[string]Profile{},
		Sectors:     map[string]Profile{},
		Buckets:     map[string]Profile{},
		BuiltAt:     builtAt,
		SampleTotal: len(samples),
	}

	type acc struct {
		wins, total int
		last        time.Time
	}
	instruments := map[string]*acc{}
	sectors := map[string]*acc{}
	buckets := map[string]*acc{}

	tally := func(m map[string]*acc, key string, s Sample) {
		if key == "" {
			return
		}
		a := m[key]
		if a == nil {
			a = &acc{}
			m[key] = a
		}
		a.total++
		if s.Win {
			a.wins++
		}
		if s.DecidedAt.After(a.last) {
			a.last = s.DecidedAt
		}
	}

	for _, s := range samples {
		tally(instruments, s.Instrument, s)
		tally(sectors, s.Sector, s)
		tally(buckets, BucketKey(s.RawConfidence, bucketWidth), s)
	}

	materialize := func(m map[string]*acc, scope string, out map[string]Profile) {
		for key, a := range m {
			out[key] = Profile{
				Scope:       scope,
				Key:         key,
				SampleCount: a.total,
				WinRate:     float64(a.wins) / float64(a.total),
				LastUpdated: a.last,
			}
		}
	}
	materialize(instruments, ScopeInstrument, snap.Instruments)
	materialize(sectors, ScopeSector, snap.Sectors)
	materialize(buckets, ScopeBucket, snap.Buckets)

	return snap
}

// Cache publishes calibration snapshots with copy-on-refresh semantics:
// a new snapshot is built off to the side and swapped in with a single
// pointer store, so readers never observe a partially updated view.
type Cache struct {
	current atomic.Pointer[Snapshot]
}

// NewCache returns a cache primed with an empty snapshot.
func NewCache() *Cache {
	c := &Cache{}
	c.current.Store(EmptySnapshot())
	return c
}

// Load returns the current snapshot. Safe for concurrent readers.
func (c *Cache) Load() *Snapshot {
	return c.current.Load()
}

// Publish atomically replaces the current snapshot.
func (c *Cache) Publish(snap *Snapshot) {
	if snap == nil {
		return
	}
	c.current.Store(snap)
}
