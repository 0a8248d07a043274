// Package monitoring watches the run log and raises webhook alerts when
// batches or indicators fail too often.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/indicator-cli/internal/model"
	"github.com/sells-group/indicator-cli/internal/store"
)

// snapshotLimit caps how many runs one snapshot reads.
const snapshotLimit = 10000

// MetricsSnapshot holds a point-in-time view of batch health.
type MetricsSnapshot struct {
	// Run metrics (within lookback window).
	RunsTotal    int     `json:"runs_total"`
	RunsComplete int     `json:"runs_complete"`
	RunsFailed   int     `json:"runs_failed"`
	RunsRunning  int     `json:"runs_running"`
	RunFailRate  float64 `json:"run_fail_rate"`
	AvgDurSecs   float64 `json:"avg_duration_secs"`

	// Indicator metrics, summed over finished runs.
	Indicators          int     `json:"indicators"`
	IndicatorsFailed    int     `json:"indicators_failed"`
	IndicatorFailRate   float64 `json:"indicator_fail_rate"`
	IndicatorsSucceeded int     `json:"indicators_succeeded"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunLister is the part of store.Store the collector reads.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// Collector gathers metrics from the run log.
type Collector struct {
	runs RunLister
}

// NewCollector creates a new metrics collector.
func NewCollector(runs RunLister) *Collector {
	return &Collector{runs: runs}
}

// Collect gathers a snapshot over the given lookback window. A
// non-positive window covers the whole log.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := time.Now().UTC()
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	filter := store.RunFilter{Limit: snapshotLimit}
	if lookbackHours > 0 {
		filter.CreatedAfter = now.Add(-time.Duration(lookbackHours) * time.Hour)
	}
	runs, err := c.runs.ListRuns(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.RunsTotal = len(runs)
	var totalDur time.Duration
	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
			totalDur += r.UpdatedAt.Sub(r.CreatedAt)
		case model.RunStatusFailed:
			snap.RunsFailed++
		case model.RunStatusRunning:
			snap.RunsRunning++
			continue
		}
		snap.Indicators += r.Indicators
		snap.IndicatorsSucceeded += r.Succeeded
		snap.IndicatorsFailed += r.Failed
	}

	if finished := snap.RunsComplete + snap.RunsFailed; finished > 0 {
		snap.RunFailRate = float64(snap.RunsFailed) / float64(finished)
	}
	if snap.RunsComplete > 0 {
		snap.AvgDurSecs = totalDur.Seconds() / float64(snap.RunsComplete)
	}
	if done := snap.IndicatorsSucceeded + snap.IndicatorsFailed; done > 0 {
		snap.IndicatorFailRate = float64(snap.IndicatorsFailed) / float64(done)
	}

	return snap, nil
}
