// Package report renders performance summaries for operators.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alphagate/alphagate/internal/outcome"
	"github.com/alphagate/alphagate/internal/perf"
)

// WindowStats summarizes rated outcomes inside one trailing window.
type WindowStats struct {
	Days    int     `json:"days"`
	WinRate float64 `json:"win_rate"`
	Rated   int     `json:"rated"`
	Alpha   float64 `json:"avg_alpha_pct"`
}

// Report is a point-in-time performance summary.
type Report struct {
	GeneratedAt time.Time                  `json:"generated_at"`
	Filter      perf.Filter                `json:"filter"`
	Windows     []WindowStats              `json:"windows"`
	Quality     map[string]int             `json:"quality"`
	Buckets     map[string]perf.BucketStat `json:"confidence_buckets"`
	Tracked     int                        `json:"tracked"`
}

// DefaultWindows are the trailing horizons shown in reports.
var DefaultWindows = []int{7, 30, 90}

// Build assembles a report from tracked outcomes. Quality and bucket
// breakdowns are graded at the longest window.
func Build(analyzer *perf.Analyzer, outcomes []*outcome.Outcome, f perf.Filter, now time.Time) *Report {
	longest := DefaultWindows[len(DefaultWindows)-1]
	r := &Report{
		GeneratedAt: now,
		Filter:      f,
		Quality:     map[string]int{},
		Buckets:     analyzer.WinRateByBucket(outcomes, f, longest),
		Tracked:     len(outcomes),
	}
	for q, n := range analyzer.QualityDistribution(outcomes, f, longest) {
		r.Quality[q.String()] = n
	}
	for _, days := range DefaultWindows {
		winRate, rated := analyzer.WinRate(outcomes, f, days)
		alpha, _ := analyzer.AlphaVsBenchmark(outcomes, f, days)
		r.Windows = append(r.Windows, WindowStats{
			Days:    days,
			WinRate: winRate,
			Rated:   rated,
			Alpha:   alpha,
		})
	}
	return r
}

// Render formats the report as an operator-readable text block.
func (r *Report) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Performance report (%s)\n", r.GeneratedAt.Format("2006-01-02 15:04 MST"))
	if r.Filter.Instrument != "" {
		fmt.Fprintf(&b, "Instrument: %s\n", r.Filter.Instrument)
	}
	if r.Filter.Sector != "" {
		fmt.Fprintf(&b, "Sector: %s\n", r.Filter.Sector)
	}
	fmt.Fprintf(&b, "Tracked outcomes: %d\n\n", r.Tracked)

	b.WriteString("Window   Win rate   Rated   Avg alpha\n")
	for _, w := range r.Windows {
		fmt.Fprintf(&b, "%3dd     %6.1f%%    %5d   %+7.2f%%\n",
			w.Days, w.WinRate*100, w.Rated, w.Alpha)
	}

	b.WriteString("\nQuality distribution\n")
	for _, q := range []outcome.Quality{
		outcome.Excellent, outcome.Good, outcome.Neutral,
		outcome.Poor, outcome.Failed,
	} {
		if n := r.Quality[q.String()]; n > 0 {
			fmt.Fprintf(&b, "  %-9s %d\n", q.String(), n)
		}
	}

	if len(r.Buckets) > 0 {
		b.WriteString("\nWin rate by confidence bucket\n")
		keys := make([]string, 0, len(r.Buckets))
		for k := range r.Buckets {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			return bucketOrd(keys[i]) < bucketOrd(keys[j])
		})
		for _, k := range keys {
			s := r.Buckets[k]
			fmt.Fprintf(&b, "  %3s+   %6.1f%%  (%d rated)\n", k, s.WinRate*100, s.Rated)
		}
	}
	return b.String()
}

func bucketOrd(key string) int {
	var v int
	fmt.Sscanf(key, "%d", &v)
	return v
}
